package app

import (
	"context"
	"fmt"
	"log/slog"

	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
	encryptionHTTP "github.com/allisson/credstore/internal/encryption/http"
	encryptionRepository "github.com/allisson/credstore/internal/encryption/repository"
	encryptionService "github.com/allisson/credstore/internal/encryption/service"
	encryptionUseCase "github.com/allisson/credstore/internal/encryption/usecase"
	"github.com/allisson/credstore/internal/metrics"
)

// ProviderRegistry returns the registry of encryption providers.
func (c *Container) ProviderRegistry() *encryptionService.ProviderRegistry {
	c.providerRegistryInit.Do(func() {
		c.providerRegistry = c.initProviderRegistry()
	})
	return c.providerRegistry
}

// CanaryRepository returns the canary repository based on database driver.
func (c *Container) CanaryRepository() (encryptionUseCase.CanaryRepository, error) {
	var err error
	c.canaryRepoInit.Do(func() {
		c.canaryRepo, err = c.initCanaryRepository()
		if err != nil {
			c.initErrors["canaryRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["canaryRepo"]; exists {
		return nil, storedErr
	}
	return c.canaryRepo, nil
}

// EncryptedValueRepository returns the encrypted value repository based on database driver.
func (c *Container) EncryptedValueRepository() (encryptionUseCase.EncryptedValueRepository, error) {
	var err error
	c.valueRepoInit.Do(func() {
		c.valueRepo, err = c.initEncryptedValueRepository()
		if err != nil {
			c.initErrors["valueRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["valueRepo"]; exists {
		return nil, storedErr
	}
	return c.valueRepo, nil
}

// KeySetUseCase returns the key set use case. The key set stays empty until
// LoadEncryptionKeys succeeds.
func (c *Container) KeySetUseCase() (encryptionUseCase.KeySetUseCase, error) {
	var err error
	c.keySetUseCaseInit.Do(func() {
		c.keySetUseCase, err = c.initKeySetUseCase()
		if err != nil {
			c.initErrors["keySetUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keySetUseCase"]; exists {
		return nil, storedErr
	}
	return c.keySetUseCase, nil
}

// EncryptionUseCase returns the use case encrypting values under the active key.
func (c *Container) EncryptionUseCase() (encryptionUseCase.EncryptionUseCase, error) {
	var err error
	c.encryptionUCInit.Do(func() {
		c.encryptionUC, err = c.initEncryptionUseCase()
		if err != nil {
			c.initErrors["encryptionUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["encryptionUseCase"]; exists {
		return nil, storedErr
	}
	return c.encryptionUC, nil
}

// RotatorUseCase returns the use case re-encrypting values under the active key.
func (c *Container) RotatorUseCase() (encryptionUseCase.RotatorUseCase, error) {
	var err error
	c.rotatorUseCaseInit.Do(func() {
		c.rotatorUseCase, err = c.initRotatorUseCase()
		if err != nil {
			c.initErrors["rotatorUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["rotatorUseCase"]; exists {
		return nil, storedErr
	}
	return c.rotatorUseCase, nil
}

// KeyHandler returns the HTTP handler for key administration.
func (c *Container) KeyHandler() (*encryptionHTTP.KeyHandler, error) {
	var err error
	c.keyHandlerInit.Do(func() {
		c.keyHandler, err = c.initKeyHandler()
		if err != nil {
			c.initErrors["keyHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyHandler"]; exists {
		return nil, storedErr
	}
	return c.keyHandler, nil
}

// LoadEncryptionKeys reads the keys file, verifies every key against its canary and installs
// the key set. Must succeed before credentials can be read or written.
func (c *Container) LoadEncryptionKeys(ctx context.Context) error {
	cfg, err := encryptionDomain.LoadKeysConfig(c.config.EncryptionKeysFile)
	if err != nil {
		return err
	}

	keySetUseCase, err := c.KeySetUseCase()
	if err != nil {
		return err
	}
	if err := keySetUseCase.Load(ctx, cfg); err != nil {
		return fmt.Errorf("failed to load encryption keys: %w", err)
	}

	if err := c.registerKeySetGauges(keySetUseCase); err != nil {
		return err
	}

	set := keySetUseCase.Current()
	c.Logger().Info("encryption keys loaded",
		slog.Int("keys", set.Len()),
		slog.String("active_key", set.Active().Name),
		slog.String("active_key_id", set.Active().ID.String()),
	)
	return nil
}

// registerKeySetGauges exposes the installed key set on the metrics endpoint, once.
func (c *Container) registerKeySetGauges(keySetUseCase encryptionUseCase.KeySetUseCase) error {
	provider, err := c.MetricsProvider()
	if err != nil || provider == nil {
		return err
	}

	c.keySetGaugesInit.Do(func() {
		err = metrics.RegisterKeySetGauges(provider.MeterProvider(), c.config.MetricsNamespace,
			func() (int, string, bool) {
				set := keySetUseCase.Current()
				if set == nil || set.Len() == 0 {
					return 0, "", false
				}
				return set.Len(), set.Active().Name, true
			})
	})
	if err != nil {
		return fmt.Errorf("failed to register key set metrics: %w", err)
	}
	return nil
}

func (c *Container) initProviderRegistry() *encryptionService.ProviderRegistry {
	timeout := c.config.EncryptionProviderTimeout
	return encryptionService.NewProviderRegistry(
		encryptionService.NewInternalProvider(
			encryptionService.NewAEADManager(),
			c.config.EncryptionKDFIterations,
			timeout,
		),
		encryptionService.NewKMSProvider(encryptionService.NewKMSService(), timeout),
	)
}

func (c *Container) initCanaryRepository() (encryptionUseCase.CanaryRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for canary repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return encryptionRepository.NewMySQLCanaryRepository(db), nil
	case "postgres":
		return encryptionRepository.NewPostgreSQLCanaryRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initEncryptedValueRepository() (encryptionUseCase.EncryptedValueRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for encrypted value repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return encryptionRepository.NewMySQLEncryptedValueRepository(db), nil
	case "postgres":
		return encryptionRepository.NewPostgreSQLEncryptedValueRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initKeySetUseCase() (encryptionUseCase.KeySetUseCase, error) {
	canaryRepo, err := c.CanaryRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get canary repository for key set use case: %w", err)
	}

	return encryptionUseCase.NewKeySetUseCase(
		c.ProviderRegistry(),
		canaryRepo,
		encryptionUseCase.KeySetOptions{
			CreationEnabled: c.config.EncryptionKeyCreationEnabled,
			WaitTimeout:     c.config.EncryptionCanaryWaitTimeout,
		},
		c.Logger(),
	), nil
}

func (c *Container) initEncryptionUseCase() (encryptionUseCase.EncryptionUseCase, error) {
	keySetUseCase, err := c.KeySetUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get key set use case for encryption use case: %w", err)
	}

	valueRepo, err := c.EncryptedValueRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get encrypted value repository for encryption use case: %w", err)
	}

	return encryptionUseCase.NewEncryptionUseCase(keySetUseCase, valueRepo), nil
}

func (c *Container) initRotatorUseCase() (encryptionUseCase.RotatorUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for rotator use case: %w", err)
	}

	keySetUseCase, err := c.KeySetUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get key set use case for rotator use case: %w", err)
	}

	valueRepo, err := c.EncryptedValueRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get encrypted value repository for rotator use case: %w", err)
	}

	canaryRepo, err := c.CanaryRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get canary repository for rotator use case: %w", err)
	}

	baseUseCase := encryptionUseCase.NewRotatorUseCase(txManager, keySetUseCase, valueRepo, canaryRepo, c.Logger())

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for rotator use case: %w", err)
		}
		return encryptionUseCase.NewRotatorUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) initKeyHandler() (*encryptionHTTP.KeyHandler, error) {
	keySetUseCase, err := c.KeySetUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get key set use case for key handler: %w", err)
	}

	rotatorUseCase, err := c.RotatorUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get rotator use case for key handler: %w", err)
	}

	auditUseCase, err := c.AuditUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit use case for key handler: %w", err)
	}

	return encryptionHTTP.NewKeyHandler(
		keySetUseCase,
		rotatorUseCase,
		auditUseCase,
		c.config.EncryptionRotationBatchSize,
		c.config.AuditPrincipalHeader,
		c.Logger(),
	), nil
}
