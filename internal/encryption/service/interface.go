// Package service implements the encryption providers: AEAD ciphers, the in-process
// password-derived provider, the remote kms provider and the registry that resolves key
// metadata to memoized key proxies.
package service

import (
	"context"

	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg encryptionDomain.Algorithm) (AEAD, error)
}

// KMSKeeper is the subset of *secrets.Keeper used by the kms provider.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// Provider wraps one key-custody backend. The variant is chosen from the provider type at
// startup and never switched per call.
type Provider interface {
	encryptionDomain.KeyCipher

	// Type returns the discriminant this provider serves.
	Type() encryptionDomain.ProviderType

	// CreateKeyProxy performs the provider-specific bootstrap for a configured key.
	// Failures are configuration errors.
	CreateKeyProxy(ctx context.Context, metadata encryptionDomain.KeyMetadata) (KeyProxy, error)
}

// KeyProxy resolves one configured key to the handle used for encrypt/decrypt calls.
type KeyProxy interface {
	// Metadata returns the configured key this proxy was created for.
	Metadata() encryptionDomain.KeyMetadata

	// Provider returns the provider owning the handles of this proxy.
	Provider() Provider

	// MatchesCanary trial-decrypts canary. A mismatch is reported as false with a nil error;
	// only provider unavailability (timeouts included) is an error.
	MatchesCanary(ctx context.Context, canary *encryptionDomain.Canary) (encryptionDomain.KeyHandle, bool, error)

	// NewCanary encrypts CanaryValue under this key and returns the canary to persist
	// together with the handle that produced it.
	NewCanary(ctx context.Context) (*encryptionDomain.Canary, encryptionDomain.KeyHandle, error)

	// Close releases every handle handed out by this proxy.
	Close() error
}
