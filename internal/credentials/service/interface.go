// Package service provides the credential generators and the certificate parsing used to
// validate certificate values before they are persisted.
package service

import (
	"crypto"
	"crypto/x509"
	"time"

	"github.com/google/uuid"

	credentialsDomain "github.com/allisson/credstore/internal/credentials/domain"
)

// CertificateAuthority is a parsed CA credential able to sign certificates.
type CertificateAuthority struct {
	// VersionID is the credential version the CA material was read from.
	VersionID      uuid.UUID
	Name           string
	Certificate    *x509.Certificate
	CertificatePEM string
	PrivateKey     crypto.Signer
}

// CertificateInfo is what the engine reads out of a PEM certificate.
type CertificateInfo struct {
	Issuer    string
	Subject   string
	NotAfter  time.Time
	PublicKey crypto.PublicKey
	IsCA      bool
	// SelfSigned is true when the certificate verifies against its own public key.
	SelfSigned bool

	certificate *x509.Certificate
}

// Generator produces a new value from effective generation parameters.
type Generator interface {
	// Generate returns a fresh value. ca is required when certificate parameters name a CA
	// and ignored otherwise.
	Generate(params credentialsDomain.Parameters, ca *CertificateAuthority) (credentialsDomain.Value, error)
}

// CertificateReader parses PEM certificates and private keys.
type CertificateReader interface {
	// ReadCertificate parses the first certificate block of pemText.
	ReadCertificate(pemText string) (*CertificateInfo, error)

	// ReadPrivateKey parses a PKCS#1, PKCS#8 or SEC 1 private key.
	ReadPrivateKey(pemText string) (crypto.Signer, error)
}

// CertificateValidator checks the consistency of certificate values.
type CertificateValidator interface {
	// Validate parses the PEM fields of value and checks them against each other: the
	// certificate must verify against ca when both are present, and its public key must
	// match private_key when both are present. On success it returns the certificate
	// expiry, nil when the value carries no certificate.
	Validate(value *credentialsDomain.CertificateValue) (*time.Time, error)

	// CertificateAuthority parses a stored certificate value as a signing CA.
	CertificateAuthority(
		name string,
		versionID uuid.UUID,
		value *credentialsDomain.CertificateValue,
	) (*CertificateAuthority, error)
}
