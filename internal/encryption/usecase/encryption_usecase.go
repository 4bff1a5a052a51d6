package usecase

import (
	"context"

	"github.com/google/uuid"

	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
)

type encryptionUseCase struct {
	keySets   KeySetUseCase
	valueRepo EncryptedValueRepository
}

// NewEncryptionUseCase creates a new EncryptionUseCase.
func NewEncryptionUseCase(keySets KeySetUseCase, valueRepo EncryptedValueRepository) EncryptionUseCase {
	return &encryptionUseCase{keySets: keySets, valueRepo: valueRepo}
}

func (e *encryptionUseCase) current() (*encryptionDomain.KeySet, error) {
	set := e.keySets.Current()
	if set == nil {
		return nil, encryptionDomain.ErrNoActiveKey
	}
	return set, nil
}

// Encrypt encrypts plaintext under the active key of the key set installed at call time.
func (e *encryptionUseCase) Encrypt(ctx context.Context, plaintext []byte) (*encryptionDomain.EncryptedValue, error) {
	set, err := e.current()
	if err != nil {
		return nil, err
	}

	value, err := set.Active().Encrypt(ctx, plaintext)
	if err != nil {
		return nil, err
	}
	if err := e.valueRepo.Create(ctx, value); err != nil {
		return nil, err
	}
	return value, nil
}

// Decrypt loads a value and decrypts it with the key that produced it.
func (e *encryptionUseCase) Decrypt(ctx context.Context, id uuid.UUID) ([]byte, error) {
	set, err := e.current()
	if err != nil {
		return nil, err
	}

	value, err := e.valueRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	key, err := set.Get(value.EncryptionKeyID)
	if err != nil {
		return nil, err
	}
	return key.Decrypt(ctx, value)
}
