package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gocloud.dev/gcerrors"

	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
)

// keeperHandle is the handle of the kms provider: an opened keeper, never key material.
type keeperHandle struct {
	keeper KMSKeeper
	once   sync.Once
	err    error
}

func (h *keeperHandle) Close() error {
	h.once.Do(func() { h.err = h.keeper.Close() })
	return h.err
}

// KMSProvider delegates encryption to a remote key-custody service through
// gocloud.dev/secrets. The remote service manages nonces itself; the stored nonce is empty.
type KMSProvider struct {
	kmsService KMSService
	timeout    time.Duration
}

// NewKMSProvider creates a kms provider. A zero timeout selects DefaultProviderTimeout.
func NewKMSProvider(kmsService KMSService, timeout time.Duration) *KMSProvider {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &KMSProvider{kmsService: kmsService, timeout: timeout}
}

// Type returns ProviderKMS.
func (p *KMSProvider) Type() encryptionDomain.ProviderType {
	return encryptionDomain.ProviderKMS
}

// Encrypt calls the remote keeper, bounded by the provider timeout.
func (p *KMSProvider) Encrypt(
	ctx context.Context,
	handle encryptionDomain.KeyHandle,
	plaintext []byte,
) ([]byte, []byte, error) {
	h, ok := handle.(*keeperHandle)
	if !ok {
		return nil, nil, errForeignHandle
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ciphertext, err := h.keeper.Encrypt(ctx, plaintext)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", encryptionDomain.ErrProviderUnavailable, err)
	}
	return ciphertext, []byte{}, nil
}

// Decrypt calls the remote keeper, bounded by the provider timeout.
func (p *KMSProvider) Decrypt(
	ctx context.Context,
	handle encryptionDomain.KeyHandle,
	ciphertext, _ []byte,
) ([]byte, error) {
	h, ok := handle.(*keeperHandle)
	if !ok {
		return nil, errForeignHandle
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	plaintext, err := h.keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, p.classify(ctx, err)
	}
	return plaintext, nil
}

// classify separates connectivity failures from ciphertexts the key cannot open.
func (p *KMSProvider) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil || isUnavailable(err) {
		return fmt.Errorf("%w: %v", encryptionDomain.ErrProviderUnavailable, err)
	}
	return fmt.Errorf("%w: %v", encryptionDomain.ErrDecryptionFailed, err)
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	return unavailableCode(gcerrors.Code(err))
}

// unavailableCode reports whether code means the provider could not do the work, as opposed
// to a key that cannot open the ciphertext. Denied access and provider faults never count as
// a canary mismatch.
func unavailableCode(code gcerrors.ErrorCode) bool {
	switch code {
	case gcerrors.DeadlineExceeded, gcerrors.Canceled, gcerrors.ResourceExhausted,
		gcerrors.PermissionDenied, gcerrors.Internal:
		return true
	default:
		return false
	}
}

// CreateKeyProxy opens the keeper of metadata.KeyURI once.
func (p *KMSProvider) CreateKeyProxy(
	ctx context.Context,
	metadata encryptionDomain.KeyMetadata,
) (KeyProxy, error) {
	if metadata.ProviderType != encryptionDomain.ProviderKMS {
		return nil, fmt.Errorf("%w: %s", encryptionDomain.ErrUnsupportedProvider, metadata.ProviderType)
	}
	if err := metadata.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	keeper, err := p.kmsService.OpenKeeper(ctx, metadata.KeyURI)
	if errors.Is(err, encryptionDomain.ErrInvalidKeyMetadata) {
		return nil, fmt.Errorf("key %s: %w", metadata.Name, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", encryptionDomain.ErrProviderUnavailable, metadata.Name, err)
	}
	return &kmsKeyProxy{provider: p, metadata: metadata, handle: &keeperHandle{keeper: keeper}}, nil
}

type kmsKeyProxy struct {
	provider *KMSProvider
	metadata encryptionDomain.KeyMetadata
	handle   *keeperHandle
}

func (k *kmsKeyProxy) Metadata() encryptionDomain.KeyMetadata { return k.metadata }

func (k *kmsKeyProxy) Provider() Provider { return k.provider }

func (k *kmsKeyProxy) MatchesCanary(
	ctx context.Context,
	canary *encryptionDomain.Canary,
) (encryptionDomain.KeyHandle, bool, error) {
	// canaries of password-derived keys never decrypt remotely
	if len(canary.Salt) > 0 {
		return nil, false, nil
	}

	plaintext, err := k.provider.Decrypt(ctx, k.handle, canary.EncryptedValue, canary.Nonce)
	if err != nil {
		if errors.Is(err, encryptionDomain.ErrProviderUnavailable) {
			return nil, false, fmt.Errorf("%s: %w", k.metadata.Name, err)
		}
		return nil, false, nil
	}
	if subtle.ConstantTimeCompare(plaintext, []byte(encryptionDomain.CanaryValue)) != 1 {
		return nil, false, nil
	}
	return k.handle, true, nil
}

func (k *kmsKeyProxy) NewCanary(
	ctx context.Context,
) (*encryptionDomain.Canary, encryptionDomain.KeyHandle, error) {
	ciphertext, nonce, err := k.provider.Encrypt(ctx, k.handle, []byte(encryptionDomain.CanaryValue))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", k.metadata.Name, err)
	}
	return &encryptionDomain.Canary{
		ID:             uuid.Must(uuid.NewV7()),
		EncryptedValue: ciphertext,
		Nonce:          nonce,
		CreatedAt:      time.Now().UTC(),
	}, k.handle, nil
}

func (k *kmsKeyProxy) Close() error {
	return k.handle.Close()
}
