// Package usecase implements encryption key lifecycle management: canary verification and
// active key resolution, atomic key set swaps, value encryption and re-encryption of stored
// values after a key rotation.
package usecase

import (
	"context"

	"github.com/google/uuid"

	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
	encryptionService "github.com/allisson/credstore/internal/encryption/service"
)

// CanaryRepository persists encryption key canaries.
//
// Implementations join the transaction carried by ctx (database.GetTx).
type CanaryRepository interface {
	// Create stores a new canary.
	Create(ctx context.Context, canary *encryptionDomain.Canary) error

	// List returns every canary ordered by creation time, oldest first.
	List(ctx context.Context) ([]*encryptionDomain.Canary, error)

	// Delete removes a canary. Returns ErrNotFound when no row matched.
	Delete(ctx context.Context, id uuid.UUID) error
}

// EncryptedValueRepository persists encrypted values.
type EncryptedValueRepository interface {
	// Create stores a new encrypted value.
	Create(ctx context.Context, value *encryptionDomain.EncryptedValue) error

	// Get returns the encrypted value with the given id or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*encryptionDomain.EncryptedValue, error)

	// Update rewrites the key id, ciphertext and nonce of a value.
	Update(ctx context.Context, value *encryptionDomain.EncryptedValue) error

	// ListEncryptedBy returns up to limit values whose key is in keyIDs, oldest first.
	// Rows are locked for update when called inside a transaction.
	ListEncryptedBy(ctx context.Context, keyIDs []uuid.UUID, limit int) ([]*encryptionDomain.EncryptedValue, error)

	// CountByKey returns the number of values encrypted by keyID.
	CountByKey(ctx context.Context, keyID uuid.UUID) (int64, error)

	// CountNotEncryptedBy returns the number of values whose key is not keyID.
	CountNotEncryptedBy(ctx context.Context, keyID uuid.UUID) (int64, error)
}

// KeyProxyFactory resolves key metadata to memoized key proxies.
type KeyProxyFactory interface {
	CreateKeyProxy(ctx context.Context, metadata encryptionDomain.KeyMetadata) (encryptionService.KeyProxy, error)
}

// KeySetUseCase builds and swaps the runtime key set.
type KeySetUseCase interface {
	// Build runs canary verification for every configured key and returns a new key set
	// without installing it. Fails with a configuration error when a key cannot be
	// resolved or when the active key is not unique.
	Build(ctx context.Context, cfg *encryptionDomain.KeysConfig) (*encryptionDomain.KeySet, error)

	// Load builds a key set from cfg and installs it atomically.
	Load(ctx context.Context, cfg *encryptionDomain.KeysConfig) error

	// Reload rebuilds the key set from the currently installed configuration.
	Reload(ctx context.Context) error

	// RotateActiveKey marks metadata as the only active key (adding it when new), re-runs
	// canary verification and swaps the key set. The previous set stays installed on error.
	RotateActiveKey(ctx context.Context, metadata encryptionDomain.KeyMetadata) error

	// Current returns the installed key set, nil before the first Load.
	Current() *encryptionDomain.KeySet

	// Config returns the installed configuration, nil before the first Load.
	Config() *encryptionDomain.KeysConfig
}

// EncryptionUseCase encrypts and decrypts values with the installed key set.
type EncryptionUseCase interface {
	// Encrypt encrypts plaintext under the active key and persists the value.
	Encrypt(ctx context.Context, plaintext []byte) (*encryptionDomain.EncryptedValue, error)

	// Decrypt loads and decrypts the value with the given id. A value whose key is not
	// configured fails with ErrKeyNotFound.
	Decrypt(ctx context.Context, id uuid.UUID) ([]byte, error)
}

// RotationResult summarizes a rotation run.
type RotationResult struct {
	// Reencrypted counts values moved to the active key.
	Reencrypted int
	// Skipped counts values whose key is not configured.
	Skipped int64
	// DeletedCanaries lists canaries of inactive keys that protected no value anymore.
	DeletedCanaries []uuid.UUID
}

// RotatorUseCase re-encrypts stored values under the active key.
type RotatorUseCase interface {
	// Rotate re-encrypts, in batches of batchSize, every value encrypted by a configured
	// inactive key, then deletes the canaries of inactive keys that no longer protect data.
	Rotate(ctx context.Context, batchSize int) (*RotationResult, error)
}
