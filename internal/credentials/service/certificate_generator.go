package service

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"time"

	credentialsDomain "github.com/allisson/credstore/internal/credentials/domain"
)

var (
	keyUsages = map[string]x509.KeyUsage{
		"digital_signature": x509.KeyUsageDigitalSignature,
		"non_repudiation":   x509.KeyUsageContentCommitment,
		"key_encipherment":  x509.KeyUsageKeyEncipherment,
		"data_encipherment": x509.KeyUsageDataEncipherment,
		"key_agreement":     x509.KeyUsageKeyAgreement,
		"key_cert_sign":     x509.KeyUsageCertSign,
		"crl_sign":          x509.KeyUsageCRLSign,
		"encipher_only":     x509.KeyUsageEncipherOnly,
		"decipher_only":     x509.KeyUsageDecipherOnly,
	}
	extKeyUsages = map[string]x509.ExtKeyUsage{
		"server_auth":      x509.ExtKeyUsageServerAuth,
		"client_auth":      x509.ExtKeyUsageClientAuth,
		"code_signing":     x509.ExtKeyUsageCodeSigning,
		"email_protection": x509.ExtKeyUsageEmailProtection,
		"timestamping":     x509.ExtKeyUsageTimeStamping,
	}
	serialLimit = new(big.Int).Lsh(big.NewInt(1), 159)
)

// CertificateGenerator issues X.509 certificates: CAs, self-signed certificates and
// certificates signed by a stored CA.
type CertificateGenerator struct {
	now func() time.Time
}

// NewCertificateGenerator creates a new CertificateGenerator.
func NewCertificateGenerator() *CertificateGenerator {
	return &CertificateGenerator{now: time.Now}
}

// Generate issues a certificate. ca must be set when params name a CA.
func (g *CertificateGenerator) Generate(
	params *credentialsDomain.CertificateParameters,
	ca *CertificateAuthority,
) (*credentialsDomain.CertificateValue, error) {
	if !params.SelfSigned() && ca == nil {
		return nil, credentialsDomain.ErrMissingSigner
	}

	key, err := rsa.GenerateKey(rand.Reader, params.KeyLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate certificate key: %w", err)
	}

	template, err := g.template(params)
	if err != nil {
		return nil, err
	}

	parent, signer := template, any(key)
	if !params.SelfSigned() {
		parent, signer = ca.Certificate, ca.PrivateKey
	}

	der, err := x509.CreateCertificate(rand.Reader, template, parent, &key.PublicKey, signer)
	if err != nil {
		return nil, fmt.Errorf("failed to sign certificate: %w", err)
	}

	certPEM := encodeCertificate(der)
	expiry := template.NotAfter
	value := &credentialsDomain.CertificateValue{
		Certificate:          certPEM,
		PrivateKey:           encodePrivateKey(key),
		CertificateAuthority: params.IsCA,
		SelfSigned:           params.SelfSigned(),
		ExpiryDate:           &expiry,
	}
	if params.SelfSigned() {
		value.CA = certPEM
	} else {
		value.CAName = ca.Name
	}
	return value, nil
}

func (g *CertificateGenerator) template(params *credentialsDomain.CertificateParameters) (*x509.Certificate, error) {
	serial, err := rand.Int(rand.Reader, serialLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	now := g.now().UTC().Truncate(time.Second)
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               subject(params),
		NotBefore:             now,
		NotAfter:              now.AddDate(0, 0, params.Duration),
		BasicConstraintsValid: true,
		IsCA:                  params.IsCA,
	}

	for _, name := range params.AlternativeNames {
		if ip := net.ParseIP(name); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
			continue
		}
		template.DNSNames = append(template.DNSNames, name)
	}
	for _, usage := range params.KeyUsage {
		template.KeyUsage |= keyUsages[usage]
	}
	for _, usage := range params.ExtendedKeyUsage {
		template.ExtKeyUsage = append(template.ExtKeyUsage, extKeyUsages[usage])
	}
	if params.IsCA && len(params.KeyUsage) == 0 {
		template.KeyUsage = x509.KeyUsageCertSign | x509.KeyUsageCRLSign
	}
	return template, nil
}

func subject(params *credentialsDomain.CertificateParameters) pkix.Name {
	name := pkix.Name{CommonName: params.CommonName}
	if params.Organization != "" {
		name.Organization = []string{params.Organization}
	}
	if params.OrganizationUnit != "" {
		name.OrganizationalUnit = []string{params.OrganizationUnit}
	}
	if params.Locality != "" {
		name.Locality = []string{params.Locality}
	}
	if params.State != "" {
		name.Province = []string{params.State}
	}
	if params.Country != "" {
		name.Country = []string{params.Country}
	}
	return name
}
