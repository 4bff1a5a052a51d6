package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Credential is the stable row behind every version of a name. Writers lock it to serialize
// convergence decisions for that name.
type Credential struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// CredentialVersion is one immutable version of a credential. The most recent version of a
// name is its current version.
type CredentialVersion struct {
	ID               uuid.UUID
	CredentialID     uuid.UUID
	Name             string
	Type             CredentialType
	EncryptedValueID uuid.UUID
	// GenerationParameters are the effective parameters, defaults applied, that generated the
	// value. Empty for values supplied by the caller.
	GenerationParameters json.RawMessage
	// SignedBy is the CA version that signed a generated certificate.
	SignedBy  uuid.NullUUID
	ExpiresAt *time.Time
	CreatedAt time.Time

	// Value is the decrypted value. It is never persisted in clear.
	Value json.RawMessage `json:"-"`
}

// Generated reports whether the version was produced by a generator.
func (v *CredentialVersion) Generated() bool {
	return len(v.GenerationParameters) > 0
}

// NormalizeName prefixes name with "/" and rejects malformed names.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "/" {
		return "", fmt.Errorf("%w: a name is required", ErrInvalidName)
	}
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	switch {
	case len(name) > MaxNameLength:
		return "", fmt.Errorf("%w: must be at most %d characters", ErrInvalidName, MaxNameLength)
	case strings.Contains(name, "//"):
		return "", fmt.Errorf("%w: must not contain consecutive slashes", ErrInvalidName)
	case strings.HasSuffix(name, "/"):
		return "", fmt.Errorf("%w: must not end with a slash", ErrInvalidName)
	case strings.ContainsAny(name, " \t\r\n"):
		return "", fmt.Errorf("%w: must not contain whitespace", ErrInvalidName)
	}
	return name, nil
}
