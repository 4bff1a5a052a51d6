package service

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	credentialsDomain "github.com/allisson/credstore/internal/credentials/domain"
)

// RSAGenerator generates PEM encoded RSA key pairs.
type RSAGenerator struct{}

// NewRSAGenerator creates a new RSAGenerator.
func NewRSAGenerator() *RSAGenerator {
	return &RSAGenerator{}
}

// Generate returns a key pair of the requested length.
func (g *RSAGenerator) Generate(params *credentialsDomain.RSAParameters) (*credentialsDomain.RSAValue, error) {
	key, err := rsa.GenerateKey(rand.Reader, params.KeyLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate rsa key: %w", err)
	}
	publicPEM, err := encodePublicKey(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	return &credentialsDomain.RSAValue{
		PublicKey:  publicPEM,
		PrivateKey: encodePrivateKey(key),
	}, nil
}

func encodePrivateKey(key *rsa.PrivateKey) string {
	return string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}))
}

func encodePublicKey(key *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

func encodeCertificate(der []byte) string {
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
}
