package service

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/google/uuid"

	credentialsDomain "github.com/allisson/credstore/internal/credentials/domain"
)

type certificateReader struct{}

// NewCertificateReader creates a CertificateReader over crypto/x509.
func NewCertificateReader() CertificateReader {
	return &certificateReader{}
}

func (r *certificateReader) ReadCertificate(pemText string) (*CertificateInfo, error) {
	block := findBlock([]byte(pemText), "CERTIFICATE")
	if block == nil {
		return nil, credentialsDomain.ErrInvalidCertificate
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", credentialsDomain.ErrInvalidCertificate, err)
	}

	return &CertificateInfo{
		Issuer:    cert.Issuer.String(),
		Subject:   cert.Subject.String(),
		NotAfter:  cert.NotAfter,
		PublicKey: cert.PublicKey,
		IsCA:      cert.BasicConstraintsValid && cert.IsCA,
		SelfSigned: bytes.Equal(cert.RawIssuer, cert.RawSubject) &&
			cert.CheckSignature(cert.SignatureAlgorithm, cert.RawTBSCertificate, cert.Signature) == nil,
		certificate: cert,
	}, nil
}

func (r *certificateReader) ReadPrivateKey(pemText string) (crypto.Signer, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, credentialsDomain.ErrInvalidPrivateKey
	}

	var (
		key any
		err error
	)
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	default:
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", credentialsDomain.ErrInvalidPrivateKey, err)
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, credentialsDomain.ErrInvalidPrivateKey
	}
	return signer, nil
}

func findBlock(data []byte, blockType string) *pem.Block {
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil
		}
		if block.Type == blockType {
			return block
		}
	}
}

type certificateValidator struct {
	reader CertificateReader
}

// NewCertificateValidator creates a CertificateValidator using reader for parsing.
func NewCertificateValidator(reader CertificateReader) CertificateValidator {
	return &certificateValidator{reader: reader}
}

func (v *certificateValidator) Validate(value *credentialsDomain.CertificateValue) (*time.Time, error) {
	if value.CA == "" && value.Certificate == "" && value.PrivateKey == "" {
		return nil, credentialsDomain.ErrMissingCertificateValue
	}

	var (
		cert *CertificateInfo
		err  error
	)
	if value.Certificate != "" {
		if cert, err = v.reader.ReadCertificate(value.Certificate); err != nil {
			return nil, err
		}
	}

	if cert != nil && value.CA != "" {
		ca, err := v.reader.ReadCertificate(value.CA)
		if err != nil {
			return nil, err
		}
		if err := cert.certificate.CheckSignatureFrom(ca.certificate); err != nil {
			return nil, credentialsDomain.ErrCertificateNotSignedByCA
		}
	}

	if cert != nil && value.PrivateKey != "" {
		key, err := v.reader.ReadPrivateKey(value.PrivateKey)
		if err != nil {
			return nil, err
		}
		if !publicKeysEqual(key.Public(), cert.PublicKey) {
			return nil, credentialsDomain.ErrCertificateKeyMismatch
		}
	} else if value.PrivateKey != "" {
		if _, err := v.reader.ReadPrivateKey(value.PrivateKey); err != nil {
			return nil, err
		}
	}

	if cert == nil {
		return nil, nil
	}
	expiry := cert.NotAfter
	return &expiry, nil
}

func (v *certificateValidator) CertificateAuthority(
	name string,
	versionID uuid.UUID,
	value *credentialsDomain.CertificateValue,
) (*CertificateAuthority, error) {
	if value.Certificate == "" || value.PrivateKey == "" {
		return nil, credentialsDomain.ErrNotACA
	}
	info, err := v.reader.ReadCertificate(value.Certificate)
	if err != nil {
		return nil, err
	}
	if !info.IsCA {
		return nil, credentialsDomain.ErrNotACA
	}
	key, err := v.reader.ReadPrivateKey(value.PrivateKey)
	if err != nil {
		return nil, err
	}
	if !publicKeysEqual(key.Public(), info.PublicKey) {
		return nil, credentialsDomain.ErrCertificateKeyMismatch
	}

	return &CertificateAuthority{
		VersionID:      versionID,
		Name:           name,
		Certificate:    info.certificate,
		CertificatePEM: value.Certificate,
		PrivateKey:     key,
	}, nil
}

func publicKeysEqual(a, b crypto.PublicKey) bool {
	eq, ok := a.(interface{ Equal(crypto.PublicKey) bool })
	return ok && eq.Equal(b)
}
