package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/credstore/internal/database"
	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
	apperrors "github.com/allisson/credstore/internal/errors"
)

// DefaultRotationBatchSize is used when Rotate is called with a non-positive batch size.
const DefaultRotationBatchSize = 100

type rotatorUseCase struct {
	txManager  database.TxManager
	keySets    KeySetUseCase
	valueRepo  EncryptedValueRepository
	canaryRepo CanaryRepository
	logger     *slog.Logger
}

// NewRotatorUseCase creates a new RotatorUseCase.
func NewRotatorUseCase(
	txManager database.TxManager,
	keySets KeySetUseCase,
	valueRepo EncryptedValueRepository,
	canaryRepo CanaryRepository,
	logger *slog.Logger,
) RotatorUseCase {
	return &rotatorUseCase{
		txManager:  txManager,
		keySets:    keySets,
		valueRepo:  valueRepo,
		canaryRepo: canaryRepo,
		logger:     logger,
	}
}

func (r *rotatorUseCase) Rotate(ctx context.Context, batchSize int) (*RotationResult, error) {
	if batchSize <= 0 {
		batchSize = DefaultRotationBatchSize
	}
	set := r.keySets.Current()
	if set == nil {
		return nil, encryptionDomain.ErrNoActiveKey
	}
	active := set.Active()
	inactive := set.InactiveIDs()
	result := &RotationResult{}

	for len(inactive) > 0 {
		n, err := r.rewrapBatch(ctx, set, inactive, batchSize)
		if err != nil {
			return nil, err
		}
		result.Reencrypted += n
		if n < batchSize {
			break
		}
	}

	skipped, err := r.valueRepo.CountNotEncryptedBy(ctx, active.ID)
	if err != nil {
		return nil, err
	}
	result.Skipped = skipped
	if skipped > 0 {
		r.logger.Warn("values encrypted by unknown keys were skipped", slog.Int64("count", skipped))
	}

	for _, id := range inactive {
		count, err := r.valueRepo.CountByKey(ctx, id)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			continue
		}
		if err := r.canaryRepo.Delete(ctx, id); err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return nil, err
		}
		result.DeletedCanaries = append(result.DeletedCanaries, id)
	}

	r.logger.Info("encryption key rotation completed",
		slog.String("active_key", active.Name),
		slog.Int("reencrypted", result.Reencrypted),
		slog.Int64("skipped", result.Skipped),
		slog.Int("deleted_canaries", len(result.DeletedCanaries)),
	)
	return result, nil
}

// rewrapBatch moves one batch of values to the active key inside a transaction.
func (r *rotatorUseCase) rewrapBatch(
	ctx context.Context,
	set *encryptionDomain.KeySet,
	keyIDs []uuid.UUID,
	batchSize int,
) (int, error) {
	active := set.Active()
	var n int

	err := r.txManager.WithTx(ctx, func(ctx context.Context) error {
		values, err := r.valueRepo.ListEncryptedBy(ctx, keyIDs, batchSize)
		if err != nil {
			return err
		}

		for _, value := range values {
			old, err := set.Get(value.EncryptionKeyID)
			if err != nil {
				return err
			}
			plaintext, err := old.Decrypt(ctx, value)
			if err != nil {
				return err
			}
			rewrapped, err := active.Encrypt(ctx, plaintext)
			encryptionDomain.Zero(plaintext)
			if err != nil {
				return err
			}

			value.EncryptionKeyID = active.ID
			value.Ciphertext = rewrapped.Ciphertext
			value.Nonce = rewrapped.Nonce
			value.UpdatedAt = time.Now().UTC()
			if err := r.valueRepo.Update(ctx, value); err != nil {
				return err
			}
		}
		n = len(values)
		return nil
	})
	return n, err
}
