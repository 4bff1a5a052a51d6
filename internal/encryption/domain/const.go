package domain

// ProviderType discriminates the key-custody backend behind a provider.
type ProviderType string

const (
	// ProviderInternal keeps a password-derived symmetric key resident in process memory.
	ProviderInternal ProviderType = "internal"

	// ProviderKMS delegates every encrypt/decrypt call to a remote key-custody service
	// (AWS KMS, GCP KMS, Azure Key Vault, HashiCorp Vault transit) through gocloud.dev/secrets.
	// The key handle is an opened keeper, never raw key material.
	ProviderKMS ProviderType = "kms"
)

// Algorithm is the AEAD algorithm used by the internal provider.
type Algorithm string

const (
	// AESGCM is AES-256-GCM. Default for internal keys.
	AESGCM Algorithm = "aes-gcm"
	// ChaCha20 is ChaCha20-Poly1305.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// CanaryValue is the well-known plaintext stored encrypted in every canary.
// Changing it orphans every canary already persisted.
const CanaryValue = "credstore-encryption-key-canary:a3f1c2e4b5d6"

// SaltSize is the size in bytes of the salt used to derive password-based keys.
const SaltSize = 32

// KeySize is the size in bytes of every symmetric key handled by the internal provider.
const KeySize = 32
