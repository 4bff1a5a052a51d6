package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
)

var cipherConstructors = map[encryptionDomain.Algorithm]func(key []byte) (cipher.AEAD, error){
	encryptionDomain.AESGCM: func(key []byte) (cipher.AEAD, error) {
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	},
	encryptionDomain.ChaCha20: chacha20poly1305.New,
}

type aeadManager struct{}

// NewAEADManager returns the AEADManager backing internal keys and canaries.
func NewAEADManager() AEADManager {
	return aeadManager{}
}

// CreateCipher fails with ErrInvalidKeySize unless key is KeySize bytes, and with
// ErrUnsupportedAlgorithm for algorithms other than aes-gcm and chacha20-poly1305.
func (aeadManager) CreateCipher(key []byte, alg encryptionDomain.Algorithm) (AEAD, error) {
	if len(key) != encryptionDomain.KeySize {
		return nil, encryptionDomain.ErrInvalidKeySize
	}
	construct, ok := cipherConstructors[alg]
	if !ok {
		return nil, fmt.Errorf("%w: %s", encryptionDomain.ErrUnsupportedAlgorithm, alg)
	}
	aead, err := construct(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s cipher: %w", alg, err)
	}
	return &randomNonceAEAD{aead: aead, alg: alg}, nil
}

// randomNonceAEAD draws a fresh 12-byte nonce from crypto/rand on every Encrypt and
// returns it next to the ciphertext, which carries the 16-byte tag.
type randomNonceAEAD struct {
	aead cipher.AEAD
	alg  encryptionDomain.Algorithm
}

func (c *randomNonceAEAD) Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return c.aead.Seal(nil, nonce, plaintext, aad), nonce, nil
}

// Decrypt fails when the key, nonce or aad differ from the ones used to encrypt, or when
// the ciphertext was modified.
func (c *randomNonceAEAD) Decrypt(ciphertext, nonce, aad []byte) ([]byte, error) {
	if len(nonce) != c.aead.NonceSize() {
		return nil, fmt.Errorf("%s: invalid nonce size %d", c.alg, len(nonce))
	}
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.alg, err)
	}
	return plaintext, nil
}
