package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
	encryptionUseCase "github.com/allisson/credstore/internal/encryption/usecase"
)

// RunVerifyKeys checks that every key of cfg resolves against its canary and that exactly
// one key is active, without installing the resulting key set. Canaries of keys seen for
// the first time are registered when key creation is enabled.
func RunVerifyKeys(
	ctx context.Context,
	keySetUseCase encryptionUseCase.KeySetUseCase,
	cfg *encryptionDomain.KeysConfig,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	set, err := keySetUseCase.Build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("key verification failed: %w", err)
	}

	active := set.Active()
	type keyOutput struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Provider string `json:"provider"`
		Active   bool   `json:"active"`
	}
	keys := make([]keyOutput, 0, set.Len())
	for _, id := range set.IDs() {
		key, err := set.Get(id)
		if err != nil {
			return err
		}
		keys = append(keys, keyOutput{
			ID:       key.ID.String(),
			Name:     key.Name,
			Provider: key.ProviderName,
			Active:   key.ID == active.ID,
		})
	}

	logger.Info("encryption keys verified",
		slog.Int("keys", len(keys)),
		slog.String("active_key", active.Name),
	)

	if format == "json" {
		return writeJSON(writer, map[string]any{"keys": keys})
	}

	for _, key := range keys {
		marker := " "
		if key.Active {
			marker = "*"
		}
		_, _ = fmt.Fprintf(writer, "%s %s  %s/%s\n", marker, key.ID, key.Provider, key.Name)
	}
	_, _ = fmt.Fprintf(writer, "%d key(s) verified\n", len(keys))
	return nil
}
