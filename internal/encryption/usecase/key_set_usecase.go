package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
	encryptionService "github.com/allisson/credstore/internal/encryption/service"
)

// KeySetOptions configures canary registration.
type KeySetOptions struct {
	// CreationEnabled lets this process register canaries for keys seen for the first time.
	// When disabled, the process waits for another instance to register them.
	CreationEnabled bool
	// WaitTimeout bounds the wait for a canary registered by another instance.
	WaitTimeout time.Duration
	// PollInterval is the delay between canary lookups while waiting.
	PollInterval time.Duration
}

type keySetUseCase struct {
	factory    KeyProxyFactory
	canaryRepo CanaryRepository
	opts       KeySetOptions
	logger     *slog.Logger

	// rebuilds are exclusive; readers never take this lock
	mu     sync.Mutex
	set    atomic.Pointer[encryptionDomain.KeySet]
	config atomic.Pointer[encryptionDomain.KeysConfig]
}

// NewKeySetUseCase creates a new KeySetUseCase.
func NewKeySetUseCase(
	factory KeyProxyFactory,
	canaryRepo CanaryRepository,
	opts KeySetOptions,
	logger *slog.Logger,
) KeySetUseCase {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	return &keySetUseCase{
		factory:    factory,
		canaryRepo: canaryRepo,
		opts:       opts,
		logger:     logger,
	}
}

// resolvedKey is a configured key with every canary it decrypts.
type resolvedKey struct {
	metadata encryptionDomain.KeyMetadata
	proxy    encryptionService.KeyProxy
	keys     []*encryptionDomain.EncryptionKey
}

func (k *keySetUseCase) Build(
	ctx context.Context,
	cfg *encryptionDomain.KeysConfig,
) (*encryptionDomain.KeySet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	configured := cfg.Keys()

	resolved := make([]*resolvedKey, len(configured))
	for i, metadata := range configured {
		proxy, err := k.factory.CreateKeyProxy(ctx, metadata)
		if err != nil {
			return nil, err
		}
		resolved[i] = &resolvedKey{metadata: metadata, proxy: proxy}
	}

	canaries, err := k.canaryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list canaries: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range resolved {
		g.Go(func() error {
			keys, err := k.resolve(gctx, r, canaries)
			if err != nil {
				return err
			}
			r.keys = keys
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var (
		keys     []*encryptionDomain.EncryptionKey
		activeID uuid.UUID
	)
	for _, r := range resolved {
		keys = append(keys, r.keys...)
		if r.metadata.Active {
			// oldest matching canary identifies the active key
			activeID = r.keys[0].ID
		}
	}
	return encryptionDomain.NewKeySet(keys, activeID)
}

// resolve maps one configured key to the canaries it decrypts, registering a new canary
// when none matches.
func (k *keySetUseCase) resolve(
	ctx context.Context,
	r *resolvedKey,
	canaries []*encryptionDomain.Canary,
) ([]*encryptionDomain.EncryptionKey, error) {
	keys, err := k.match(ctx, r, canaries)
	if err != nil || len(keys) > 0 {
		return keys, err
	}

	if k.opts.CreationEnabled {
		canary, handle, err := r.proxy.NewCanary(ctx)
		if err != nil {
			return nil, err
		}
		if err := k.canaryRepo.Create(ctx, canary); err != nil {
			return nil, fmt.Errorf("failed to register canary for key %s: %w", r.metadata.Name, err)
		}
		k.logger.Info("registered encryption key canary",
			slog.String("key_name", r.metadata.Name),
			slog.String("canary_id", canary.ID.String()),
		)
		return []*encryptionDomain.EncryptionKey{k.newKey(r, canary.ID, handle)}, nil
	}

	return k.waitForCanary(ctx, r)
}

func (k *keySetUseCase) match(
	ctx context.Context,
	r *resolvedKey,
	canaries []*encryptionDomain.Canary,
) ([]*encryptionDomain.EncryptionKey, error) {
	var keys []*encryptionDomain.EncryptionKey
	for _, canary := range canaries {
		handle, ok, err := r.proxy.MatchesCanary(ctx, canary)
		if err != nil {
			return nil, err
		}
		if ok {
			keys = append(keys, k.newKey(r, canary.ID, handle))
		}
	}
	return keys, nil
}

// waitForCanary polls the canary store until another instance registers a canary for the key.
func (k *keySetUseCase) waitForCanary(
	ctx context.Context,
	r *resolvedKey,
) ([]*encryptionDomain.EncryptionKey, error) {
	k.logger.Warn("encryption key creation disabled, waiting for canary",
		slog.String("key_name", r.metadata.Name),
		slog.Duration("timeout", k.opts.WaitTimeout),
	)

	b := retry.WithMaxRetries(
		uint64(k.opts.WaitTimeout/k.opts.PollInterval),
		retry.NewConstant(k.opts.PollInterval),
	)

	var keys []*encryptionDomain.EncryptionKey
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		canaries, err := k.canaryRepo.List(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		keys, err = k.match(ctx, r, canaries)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return retry.RetryableError(encryptionDomain.ErrCanaryNotRegistered)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("key %s: %w", r.metadata.Name, err)
	}
	return keys, nil
}

func (k *keySetUseCase) newKey(
	r *resolvedKey,
	canaryID uuid.UUID,
	handle encryptionDomain.KeyHandle,
) *encryptionDomain.EncryptionKey {
	return &encryptionDomain.EncryptionKey{
		ID:           canaryID,
		Name:         r.metadata.Name,
		ProviderName: r.metadata.ProviderName,
		Cipher:       r.proxy.Provider(),
		Handle:       handle,
	}
}

func (k *keySetUseCase) Load(ctx context.Context, cfg *encryptionDomain.KeysConfig) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.install(ctx, cfg)
}

// install must be called with mu held.
func (k *keySetUseCase) install(ctx context.Context, cfg *encryptionDomain.KeysConfig) error {
	set, err := k.Build(ctx, cfg)
	if err != nil {
		return err
	}
	k.set.Store(set)
	k.config.Store(cfg)

	k.logger.Info("encryption key set loaded",
		slog.Int("keys", set.Len()),
		slog.String("active_key", set.Active().Name),
		slog.String("active_key_id", set.Active().ID.String()),
	)
	return nil
}

func (k *keySetUseCase) Reload(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	cfg := k.config.Load()
	if cfg == nil {
		return encryptionDomain.ErrNoActiveKey
	}
	return k.install(ctx, cfg)
}

func (k *keySetUseCase) RotateActiveKey(ctx context.Context, metadata encryptionDomain.KeyMetadata) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	cfg := k.config.Load()
	if cfg == nil {
		cfg = &encryptionDomain.KeysConfig{}
	}
	rotated, err := cfg.WithActiveKey(metadata)
	if err != nil {
		return err
	}
	return k.install(ctx, rotated)
}

func (k *keySetUseCase) Current() *encryptionDomain.KeySet {
	return k.set.Load()
}

func (k *keySetUseCase) Config() *encryptionDomain.KeysConfig {
	return k.config.Load()
}
