package domain

import (
	"time"

	"github.com/google/uuid"
)

// Canary is the persisted sentinel of one encryption key: CanaryValue encrypted under that
// key. Its ID is the stable identity of the key across restarts and configuration changes,
// and every EncryptedValue references it.
type Canary struct {
	ID             uuid.UUID
	EncryptedValue []byte
	Nonce          []byte
	// Salt is the KDF salt of password-derived keys; empty for remote keys.
	Salt      []byte
	CreatedAt time.Time
}
