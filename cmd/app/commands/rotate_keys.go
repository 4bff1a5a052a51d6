package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
	encryptionUseCase "github.com/allisson/credstore/internal/encryption/usecase"
)

// RunRotateKeys re-encrypts every stored value under the active key of the installed key
// set. When keyName is set, that configured key becomes the only active key first; the keys
// file must then be updated to match, or the next start reverts to the file's active key.
//
// Requirements: encryption keys must be loaded into keySetUseCase.
func RunRotateKeys(
	ctx context.Context,
	keySetUseCase encryptionUseCase.KeySetUseCase,
	rotatorUseCase encryptionUseCase.RotatorUseCase,
	logger *slog.Logger,
	writer io.Writer,
	keyName string,
	batchSize int,
	format string,
) error {
	if batchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if err := validateFormat(format); err != nil {
		return err
	}

	if keyName != "" {
		metadata, err := configuredKey(keySetUseCase.Config(), keyName)
		if err != nil {
			return err
		}
		if err := keySetUseCase.RotateActiveKey(ctx, metadata); err != nil {
			return fmt.Errorf("failed to activate key %s: %w", keyName, err)
		}
		logger.Warn("active key changed for this run only, mark it active in the keys file",
			slog.String("key", keyName))
	}

	active := keySetUseCase.Current().Active()
	logger.Info("starting re-encryption",
		slog.String("active_key", active.Name),
		slog.String("active_key_id", active.ID.String()),
		slog.Int("batch_size", batchSize),
	)

	result, err := rotatorUseCase.Rotate(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("failed to re-encrypt values: %w", err)
	}

	logger.Info("re-encryption completed",
		slog.Int("reencrypted", result.Reencrypted),
		slog.Int64("skipped", result.Skipped),
		slog.Int("deleted_canaries", len(result.DeletedCanaries)),
	)

	if format == "json" {
		deleted := make([]string, 0, len(result.DeletedCanaries))
		for _, id := range result.DeletedCanaries {
			deleted = append(deleted, id.String())
		}
		return writeJSON(writer, map[string]any{
			"active_key":       active.Name,
			"active_key_id":    active.ID.String(),
			"reencrypted":      result.Reencrypted,
			"skipped":          result.Skipped,
			"deleted_canaries": deleted,
		})
	}

	_, _ = fmt.Fprintf(writer, "Active key: %s (%s)\n", active.Name, active.ID)
	_, _ = fmt.Fprintf(writer, "Re-encrypted %d value(s)\n", result.Reencrypted)
	if result.Skipped > 0 {
		_, _ = fmt.Fprintf(writer, "Skipped %d value(s) encrypted by unconfigured keys\n", result.Skipped)
	}
	for _, id := range result.DeletedCanaries {
		_, _ = fmt.Fprintf(writer, "Deleted canary of retired key %s\n", id)
	}
	return nil
}

// configuredKey returns the metadata of the configured key named name, marked active.
func configuredKey(cfg *encryptionDomain.KeysConfig, name string) (encryptionDomain.KeyMetadata, error) {
	if cfg != nil {
		for _, key := range cfg.Keys() {
			if key.Name == name {
				key.Active = true
				return key, nil
			}
		}
	}
	return encryptionDomain.KeyMetadata{}, fmt.Errorf("encryption key %s is not configured", name)
}
