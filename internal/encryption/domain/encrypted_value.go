package domain

import (
	"time"

	"github.com/google/uuid"
)

// EncryptedValue is ciphertext produced by one encryption key. It is immutable from the
// credential point of view; only key rotation rewrites it in place, and only to move it to
// the active key without changing its plaintext.
type EncryptedValue struct {
	ID              uuid.UUID
	EncryptionKeyID uuid.UUID // canary id of the key that produced Ciphertext
	Ciphertext      []byte
	Nonce           []byte
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
