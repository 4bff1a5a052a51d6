package domain

import (
	"github.com/allisson/credstore/internal/errors"
)

// Encryption errors.
//
// Configuration problems wrap errors.ErrConfiguration and must stop the process before it
// serves traffic. ErrKeyNotFound is a permanent data-access error for a single value.
var (
	// ErrNoActiveKey indicates no configured key is flagged active.
	ErrNoActiveKey = errors.Wrap(errors.ErrConfiguration, "no active encryption key configured")

	// ErrMultipleActiveKeys indicates more than one configured key is flagged active.
	ErrMultipleActiveKeys = errors.Wrap(errors.ErrConfiguration, "multiple active encryption keys configured")

	// ErrUnsupportedProvider indicates the provider type is unknown.
	ErrUnsupportedProvider = errors.Wrap(errors.ErrConfiguration, "unsupported encryption provider")

	// ErrInvalidKeyMetadata indicates a key entry misses its name, password or key URI.
	ErrInvalidKeyMetadata = errors.Wrap(errors.ErrConfiguration, "invalid encryption key metadata")

	// ErrDuplicateKeyName indicates two configured keys share the same name.
	ErrDuplicateKeyName = errors.Wrap(errors.ErrConfiguration, "duplicate encryption key name")

	// ErrProviderUnavailable indicates the provider could not be reached or bootstrapped,
	// including provider calls that exceeded their timeout.
	ErrProviderUnavailable = errors.Wrap(errors.ErrConfiguration, "encryption provider unavailable")

	// ErrCanaryNotRegistered indicates key creation is disabled and no other instance
	// registered a canary for a configured key before the wait timed out.
	ErrCanaryNotRegistered = errors.Wrap(errors.ErrConfiguration, "encryption key canary was not registered")

	// ErrAmbiguousKey indicates two configured keys resolved to the same canary.
	ErrAmbiguousKey = errors.Wrap(errors.ErrConfiguration, "configured encryption keys share a canary")

	// ErrUnsupportedAlgorithm indicates the AEAD algorithm is unknown.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrConfiguration, "unsupported algorithm")

	// ErrInvalidKeySize indicates key material is not KeySize bytes long.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrDecryptionFailed indicates a decryption operation failed. The cause (wrong key,
	// tampered ciphertext, bad nonce) is not disclosed.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrKeyNotFound indicates stored data references a key that is no longer configured.
	ErrKeyNotFound = errors.New("encryption key not found")
)
