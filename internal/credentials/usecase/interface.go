// Package usecase implements credential versioning: generation with overwrite, converge and
// no-overwrite semantics, caller supplied values, and reads of decrypted versions.
package usecase

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	credentialsDomain "github.com/allisson/credstore/internal/credentials/domain"
	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
)

// CredentialRepository persists credentials and their versions.
//
// Implementations join the transaction carried by ctx (database.GetTx).
type CredentialRepository interface {
	// LockName returns the credential row for name, inserting it when absent, and locks it
	// until the surrounding transaction ends.
	LockName(ctx context.Context, name string) (*credentialsDomain.Credential, error)

	// GetCurrent returns the most recent version of name or ErrCredentialNotFound.
	GetCurrent(ctx context.Context, name string) (*credentialsDomain.CredentialVersion, error)

	// ListVersions returns up to limit versions of name, newest first. A limit of zero
	// returns every version.
	ListVersions(ctx context.Context, name string, limit int) ([]*credentialsDomain.CredentialVersion, error)

	// GetVersion returns the version with the given id or ErrCredentialNotFound.
	GetVersion(ctx context.Context, id uuid.UUID) (*credentialsDomain.CredentialVersion, error)

	// CreateVersion appends a version.
	CreateVersion(ctx context.Context, version *credentialsDomain.CredentialVersion) error

	// DeleteByName removes the credential, every version and their encrypted values.
	// Returns ErrCredentialNotFound when name does not exist.
	DeleteByName(ctx context.Context, name string) error
}

// EncryptionUseCase encrypts credential values under the active key.
type EncryptionUseCase interface {
	Encrypt(ctx context.Context, plaintext []byte) (*encryptionDomain.EncryptedValue, error)
	Decrypt(ctx context.Context, id uuid.UUID) ([]byte, error)
}

// GenerateInput is a generate request.
type GenerateInput struct {
	Name       string
	Type       credentialsDomain.CredentialType
	Mode       credentialsDomain.WriteMode
	Parameters json.RawMessage
}

// SetInput is a request to store a caller supplied value.
type SetInput struct {
	Name  string
	Type  credentialsDomain.CredentialType
	Value json.RawMessage
}

// CredentialUseCase defines credential business logic. Every returned version carries its
// decrypted value.
type CredentialUseCase interface {
	// GenerateOrConverge generates a new version or returns the current one, depending on
	// the write mode and the current version of the name.
	GenerateOrConverge(ctx context.Context, input GenerateInput) (*credentialsDomain.CredentialVersion, error)

	// Set validates and stores a caller supplied value as a new version.
	Set(ctx context.Context, input SetInput) (*credentialsDomain.CredentialVersion, error)

	// Get returns the current version of name.
	Get(ctx context.Context, name string) (*credentialsDomain.CredentialVersion, error)

	// GetVersions returns up to limit versions of name, newest first.
	GetVersions(ctx context.Context, name string, limit int) ([]*credentialsDomain.CredentialVersion, error)

	// GetByID returns a single version.
	GetByID(ctx context.Context, id uuid.UUID) (*credentialsDomain.CredentialVersion, error)

	// Delete removes every version of name.
	Delete(ctx context.Context, name string) error
}
