package service

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"

	credentialsDomain "github.com/allisson/credstore/internal/credentials/domain"
)

// SSHGenerator generates RSA SSH key pairs.
type SSHGenerator struct{}

// NewSSHGenerator creates a new SSHGenerator.
func NewSSHGenerator() *SSHGenerator {
	return &SSHGenerator{}
}

// Generate returns an authorized_keys public key, with the comment appended when set, a PEM
// private key and the SHA256 fingerprint of the public key.
func (g *SSHGenerator) Generate(params *credentialsDomain.SSHParameters) (*credentialsDomain.SSHValue, error) {
	key, err := rsa.GenerateKey(rand.Reader, params.KeyLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ssh key: %w", err)
	}
	pub, err := ssh.NewPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ssh public key: %w", err)
	}

	authorized := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(pub)))
	if params.SSHComment != "" {
		authorized += " " + params.SSHComment
	}

	return &credentialsDomain.SSHValue{
		PublicKey:            authorized,
		PrivateKey:           encodePrivateKey(key),
		PublicKeyFingerprint: strings.TrimPrefix(ssh.FingerprintSHA256(pub), "SHA256:"),
	}, nil
}
