package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	credentialsDomain "github.com/allisson/credstore/internal/credentials/domain"
	credentialsService "github.com/allisson/credstore/internal/credentials/service"
	"github.com/allisson/credstore/internal/database"
	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
)

type credentialUseCase struct {
	txManager  database.TxManager
	repo       CredentialRepository
	encryption EncryptionUseCase
	generator  credentialsService.Generator
	validator  credentialsService.CertificateValidator
	locks      *nameLocker
	logger     *slog.Logger
}

// NewCredentialUseCase creates a new CredentialUseCase.
func NewCredentialUseCase(
	txManager database.TxManager,
	repo CredentialRepository,
	encryption EncryptionUseCase,
	generator credentialsService.Generator,
	validator credentialsService.CertificateValidator,
	logger *slog.Logger,
) CredentialUseCase {
	return &credentialUseCase{
		txManager:  txManager,
		repo:       repo,
		encryption: encryption,
		generator:  generator,
		validator:  validator,
		locks:      newNameLocker(),
		logger:     logger,
	}
}

// GenerateOrConverge decides, under the name lock, whether the current version is kept or
// a new one is generated:
//
//	absent                      -> generate
//	present, overwrite          -> generate
//	present, no-overwrite       -> keep
//	present, converge, same     -> keep
//	present, converge, changed  -> generate
//
// A certificate signed by a CA is also regenerated in converge mode when the CA has a newer
// version than the one that signed it.
func (c *credentialUseCase) GenerateOrConverge(
	ctx context.Context,
	input GenerateInput,
) (*credentialsDomain.CredentialVersion, error) {
	name, err := credentialsDomain.NormalizeName(input.Name)
	if err != nil {
		return nil, err
	}
	if !input.Type.Generatable() {
		return nil, fmt.Errorf("%w: %q cannot be generated", credentialsDomain.ErrInvalidType, input.Type)
	}
	mode := input.Mode
	if mode == "" {
		mode = credentialsDomain.ModeConverge
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", credentialsDomain.ErrInvalidMode, mode)
	}
	params, err := credentialsDomain.ParseParameters(input.Type, input.Parameters)
	if err != nil {
		return nil, err
	}

	unlock := c.locks.Lock(name)
	defer unlock()

	var result *credentialsDomain.CredentialVersion
	err = c.txManager.WithTx(ctx, func(ctx context.Context) error {
		credential, err := c.repo.LockName(ctx, name)
		if err != nil {
			return err
		}
		current, err := c.current(ctx, name, input.Type)
		if err != nil {
			return err
		}

		var ca *credentialsService.CertificateAuthority
		if certParams, ok := params.(*credentialsDomain.CertificateParameters); ok && certParams.CAName != "" {
			if ca, err = c.certificateAuthority(ctx, certParams.CAName); err != nil {
				return err
			}
		}

		if current != nil && !c.shouldGenerate(mode, current, params, ca) {
			result = current
			return c.decrypt(ctx, result)
		}

		value, err := c.generator.Generate(params, ca)
		if err != nil {
			return err
		}
		if certValue, ok := value.(*credentialsDomain.CertificateValue); ok {
			if err := c.checkCertificate(certValue, ca); err != nil {
				return err
			}
		}
		result, err = c.createVersion(ctx, credential, value, params, ca)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// shouldGenerate reports whether a present credential gets a new version.
func (c *credentialUseCase) shouldGenerate(
	mode credentialsDomain.WriteMode,
	current *credentialsDomain.CredentialVersion,
	params credentialsDomain.Parameters,
	ca *credentialsService.CertificateAuthority,
) bool {
	switch mode {
	case credentialsDomain.ModeOverwrite:
		return true
	case credentialsDomain.ModeNoOverwrite:
		return false
	}

	// set values carry no parameters and never match a generate request
	if !current.Generated() {
		return true
	}
	stored, err := credentialsDomain.ParseParameters(current.Type, current.GenerationParameters)
	if err != nil {
		c.logger.Warn("stored generation parameters are not readable",
			slog.String("name", current.Name),
			slog.String("version_id", current.ID.String()),
			slog.Any("error", err),
		)
		return true
	}
	if !credentialsDomain.EqualParameters(stored, params) {
		return true
	}
	if ca != nil && (!current.SignedBy.Valid || current.SignedBy.UUID != ca.VersionID) {
		return true
	}
	return false
}

// Set stores a caller supplied value as a new version. Certificate values are checked for
// chain and key consistency first; a rejected value writes nothing.
func (c *credentialUseCase) Set(ctx context.Context, input SetInput) (*credentialsDomain.CredentialVersion, error) {
	name, err := credentialsDomain.NormalizeName(input.Name)
	if err != nil {
		return nil, err
	}
	if !input.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", credentialsDomain.ErrInvalidType, input.Type)
	}
	value, err := credentialsDomain.ParseValue(input.Type, input.Value)
	if err != nil {
		return nil, err
	}

	unlock := c.locks.Lock(name)
	defer unlock()

	var result *credentialsDomain.CredentialVersion
	err = c.txManager.WithTx(ctx, func(ctx context.Context) error {
		credential, err := c.repo.LockName(ctx, name)
		if err != nil {
			return err
		}
		if _, err := c.current(ctx, name, input.Type); err != nil {
			return err
		}

		var ca *credentialsService.CertificateAuthority
		if certValue, ok := value.(*credentialsDomain.CertificateValue); ok {
			if certValue.CAName != "" {
				if ca, err = c.certificateAuthority(ctx, certValue.CAName); err != nil {
					return err
				}
			}
			if err := c.checkCertificate(certValue, ca); err != nil {
				return err
			}
		}

		result, err = c.createVersion(ctx, credential, value, nil, ca)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// checkCertificate checks value against itself and against ca, then records its expiry.
// A value signed by a stored CA keeps only ca_name; the CA certificate is read from that
// credential.
func (c *credentialUseCase) checkCertificate(
	value *credentialsDomain.CertificateValue,
	ca *credentialsService.CertificateAuthority,
) error {
	checked := *value
	if ca != nil {
		checked.CA = ca.CertificatePEM
	}
	expiry, err := c.validator.Validate(&checked)
	if err != nil {
		return err
	}
	value.ExpiryDate = expiry
	if value.CAName != "" {
		value.CA = ""
	}
	return value.Validate()
}

// current returns the current version of name, nil when absent. A version of another type
// fails with ErrTypeMismatch.
func (c *credentialUseCase) current(
	ctx context.Context,
	name string,
	credentialType credentialsDomain.CredentialType,
) (*credentialsDomain.CredentialVersion, error) {
	current, err := c.repo.GetCurrent(ctx, name)
	if errors.Is(err, credentialsDomain.ErrCredentialNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if current.Type != credentialType {
		return nil, credentialsDomain.ErrTypeMismatch
	}
	return current, nil
}

// certificateAuthority loads the current version of the CA credential name.
func (c *credentialUseCase) certificateAuthority(
	ctx context.Context,
	name string,
) (*credentialsService.CertificateAuthority, error) {
	version, err := c.repo.GetCurrent(ctx, name)
	if errors.Is(err, credentialsDomain.ErrCredentialNotFound) {
		return nil, credentialsDomain.ErrCANotFound
	}
	if err != nil {
		return nil, err
	}
	if version.Type != credentialsDomain.TypeCertificate {
		return nil, credentialsDomain.ErrNotACA
	}

	value, err := c.decryptValue(ctx, version)
	if err != nil {
		return nil, err
	}
	return c.validator.CertificateAuthority(name, version.ID, value.(*credentialsDomain.CertificateValue))
}

func (c *credentialUseCase) createVersion(
	ctx context.Context,
	credential *credentialsDomain.Credential,
	value credentialsDomain.Value,
	params credentialsDomain.Parameters,
	ca *credentialsService.CertificateAuthority,
) (*credentialsDomain.CredentialVersion, error) {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode credential value: %w", err)
	}
	defer encryptionDomain.Zero(plaintext)

	encrypted, err := c.encryption.Encrypt(ctx, plaintext)
	if err != nil {
		return nil, err
	}

	version := &credentialsDomain.CredentialVersion{
		ID:               uuid.Must(uuid.NewV7()),
		CredentialID:     credential.ID,
		Name:             credential.Name,
		Type:             value.CredentialType(),
		EncryptedValueID: encrypted.ID,
		CreatedAt:        time.Now().UTC(),
	}
	if params != nil {
		if version.GenerationParameters, err = json.Marshal(params); err != nil {
			return nil, fmt.Errorf("failed to encode generation parameters: %w", err)
		}
	}
	if ca != nil {
		version.SignedBy = uuid.NullUUID{UUID: ca.VersionID, Valid: true}
	}
	if certValue, ok := value.(*credentialsDomain.CertificateValue); ok {
		version.ExpiresAt = certValue.ExpiryDate
	}

	if err := c.repo.CreateVersion(ctx, version); err != nil {
		return nil, err
	}
	if version.Value, err = credentialsDomain.PresentValue(value); err != nil {
		return nil, err
	}
	return version, nil
}

func (c *credentialUseCase) decryptValue(
	ctx context.Context,
	version *credentialsDomain.CredentialVersion,
) (credentialsDomain.Value, error) {
	plaintext, err := c.encryption.Decrypt(ctx, version.EncryptedValueID)
	if err != nil {
		return nil, err
	}
	defer encryptionDomain.Zero(plaintext)

	return credentialsDomain.DecodeValue(version.Type, plaintext)
}

func (c *credentialUseCase) decrypt(ctx context.Context, version *credentialsDomain.CredentialVersion) error {
	value, err := c.decryptValue(ctx, version)
	if err != nil {
		return err
	}
	version.Value, err = credentialsDomain.PresentValue(value)
	return err
}

// Get returns the current version of name.
func (c *credentialUseCase) Get(ctx context.Context, name string) (*credentialsDomain.CredentialVersion, error) {
	name, err := credentialsDomain.NormalizeName(name)
	if err != nil {
		return nil, err
	}
	version, err := c.repo.GetCurrent(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := c.decrypt(ctx, version); err != nil {
		return nil, err
	}
	return version, nil
}

// GetVersions returns up to limit versions of name, newest first.
func (c *credentialUseCase) GetVersions(
	ctx context.Context,
	name string,
	limit int,
) ([]*credentialsDomain.CredentialVersion, error) {
	name, err := credentialsDomain.NormalizeName(name)
	if err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: versions must be positive", credentialsDomain.ErrInvalidParameters)
	}
	versions, err := c.repo.ListVersions(ctx, name, limit)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, credentialsDomain.ErrCredentialNotFound
	}
	for _, version := range versions {
		if err := c.decrypt(ctx, version); err != nil {
			return nil, err
		}
	}
	return versions, nil
}

// GetByID returns a single version.
func (c *credentialUseCase) GetByID(ctx context.Context, id uuid.UUID) (*credentialsDomain.CredentialVersion, error) {
	version, err := c.repo.GetVersion(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.decrypt(ctx, version); err != nil {
		return nil, err
	}
	return version, nil
}

// Delete removes every version of name.
func (c *credentialUseCase) Delete(ctx context.Context, name string) error {
	name, err := credentialsDomain.NormalizeName(name)
	if err != nil {
		return err
	}

	unlock := c.locks.Lock(name)
	defer unlock()

	return c.txManager.WithTx(ctx, func(ctx context.Context) error {
		return c.repo.DeleteByName(ctx, name)
	})
}
