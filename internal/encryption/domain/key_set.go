package domain

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// KeyHandle is the provider-specific handle of a key. For the internal provider it holds
// derived key material, for the kms provider an opened remote keeper.
type KeyHandle interface {
	Close() error
}

// KeyCipher performs raw encrypt/decrypt calls with a handle it produced.
type KeyCipher interface {
	Encrypt(ctx context.Context, handle KeyHandle, plaintext []byte) (ciphertext, nonce []byte, err error)
	Decrypt(ctx context.Context, handle KeyHandle, ciphertext, nonce []byte) ([]byte, error)
}

// EncryptionKey is a configured key bound to its persisted identity. It only exists in
// memory and is never serialized.
type EncryptionKey struct {
	// ID is the id of the canary this key decrypts.
	ID           uuid.UUID
	Name         string
	ProviderName string
	Cipher       KeyCipher
	Handle       KeyHandle
}

// Encrypt encrypts plaintext and returns a new EncryptedValue referencing this key.
func (k *EncryptionKey) Encrypt(ctx context.Context, plaintext []byte) (*EncryptedValue, error) {
	ciphertext, nonce, err := k.Cipher.Encrypt(ctx, k.Handle, plaintext)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &EncryptedValue{
		ID:              uuid.Must(uuid.NewV7()),
		EncryptionKeyID: k.ID,
		Ciphertext:      ciphertext,
		Nonce:           nonce,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Decrypt decrypts a value produced by this key.
func (k *EncryptionKey) Decrypt(ctx context.Context, value *EncryptedValue) ([]byte, error) {
	if value.EncryptionKeyID != k.ID {
		return nil, fmt.Errorf("%w: value %s is encrypted by key %s", ErrKeyNotFound, value.ID, value.EncryptionKeyID)
	}
	return k.Cipher.Decrypt(ctx, k.Handle, value.Ciphertext, value.Nonce)
}

// KeySet is the immutable mapping from canary id to runtime key plus the active key.
// A new set is built on every reload and swapped in whole.
type KeySet struct {
	keys   map[uuid.UUID]*EncryptionKey
	active *EncryptionKey
}

// NewKeySet builds a key set. activeID must be one of the keys.
func NewKeySet(keys []*EncryptionKey, activeID uuid.UUID) (*KeySet, error) {
	set := &KeySet{keys: make(map[uuid.UUID]*EncryptionKey, len(keys))}
	for _, key := range keys {
		if existing, ok := set.keys[key.ID]; ok {
			return nil, fmt.Errorf("%w: %s and %s", ErrAmbiguousKey, existing.Name, key.Name)
		}
		set.keys[key.ID] = key
	}
	active, ok := set.keys[activeID]
	if !ok {
		return nil, ErrNoActiveKey
	}
	set.active = active
	return set, nil
}

// Get returns the key with the given canary id.
func (s *KeySet) Get(id uuid.UUID) (*EncryptionKey, error) {
	key, ok := s.keys[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, id)
	}
	return key, nil
}

// Active returns the key used for new writes.
func (s *KeySet) Active() *EncryptionKey {
	return s.active
}

// Len returns the number of keys in the set.
func (s *KeySet) Len() int {
	return len(s.keys)
}

// IDs returns every key id in ascending order.
func (s *KeySet) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.keys))
	for id := range s.keys {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// InactiveIDs returns every key id except the active one, in ascending order.
func (s *KeySet) InactiveIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.keys))
	for _, id := range s.IDs() {
		if id != s.active.ID {
			ids = append(ids, id)
		}
	}
	return ids
}
