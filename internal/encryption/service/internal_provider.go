package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"

	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
)

const (
	// DefaultKDFIterations is the PBKDF2 iteration count used when none is configured.
	DefaultKDFIterations = 100000

	// DefaultProviderTimeout bounds provider calls when no timeout is configured.
	DefaultProviderTimeout = 10 * time.Second
)

var errForeignHandle = errors.New("key handle was not produced by this provider")

// derivedKey is the handle of the internal provider: key material kept in process memory.
type derivedKey struct {
	key  []byte
	aead AEAD
	salt []byte
}

// Close zeroes the key material.
func (d *derivedKey) Close() error {
	encryptionDomain.Zero(d.key)
	return nil
}

// InternalProvider derives symmetric keys from configured passwords with PBKDF2-HMAC-SHA256
// and encrypts in process. The salt of every derived key is persisted on its canary so the
// same key can be derived again after a restart.
type InternalProvider struct {
	aeadManager AEADManager
	iterations  int
	timeout     time.Duration
}

// NewInternalProvider creates an internal provider. Zero values select DefaultKDFIterations
// and DefaultProviderTimeout.
func NewInternalProvider(aeadManager AEADManager, iterations int, timeout time.Duration) *InternalProvider {
	if iterations <= 0 {
		iterations = DefaultKDFIterations
	}
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &InternalProvider{aeadManager: aeadManager, iterations: iterations, timeout: timeout}
}

// Type returns ProviderInternal.
func (p *InternalProvider) Type() encryptionDomain.ProviderType {
	return encryptionDomain.ProviderInternal
}

// Encrypt encrypts plaintext with a handle produced by one of this provider's proxies.
func (p *InternalProvider) Encrypt(
	ctx context.Context,
	handle encryptionDomain.KeyHandle,
	plaintext []byte,
) ([]byte, []byte, error) {
	key, ok := handle.(*derivedKey)
	if !ok {
		return nil, nil, errForeignHandle
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return key.aead.Encrypt(plaintext, nil)
}

// Decrypt decrypts ciphertext. Authentication failures are reported as ErrDecryptionFailed.
func (p *InternalProvider) Decrypt(
	ctx context.Context,
	handle encryptionDomain.KeyHandle,
	ciphertext, nonce []byte,
) ([]byte, error) {
	key, ok := handle.(*derivedKey)
	if !ok {
		return nil, errForeignHandle
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	plaintext, err := key.aead.Decrypt(ciphertext, nonce, nil)
	if err != nil {
		return nil, encryptionDomain.ErrDecryptionFailed
	}
	return plaintext, nil
}

// CreateKeyProxy validates the metadata. Key derivation is deferred until a canary salt is
// known.
func (p *InternalProvider) CreateKeyProxy(
	_ context.Context,
	metadata encryptionDomain.KeyMetadata,
) (KeyProxy, error) {
	if metadata.ProviderType != encryptionDomain.ProviderInternal {
		return nil, fmt.Errorf("%w: %s", encryptionDomain.ErrUnsupportedProvider, metadata.ProviderType)
	}
	if err := metadata.Validate(); err != nil {
		return nil, err
	}
	return &passwordKeyProxy{provider: p, metadata: metadata}, nil
}

func (p *InternalProvider) derive(metadata encryptionDomain.KeyMetadata, salt []byte) (*derivedKey, error) {
	key := pbkdf2.Key([]byte(metadata.Password), salt, p.iterations, encryptionDomain.KeySize, sha256.New)
	aead, err := p.aeadManager.CreateCipher(key, metadata.Algorithm)
	if err != nil {
		encryptionDomain.Zero(key)
		return nil, err
	}
	return &derivedKey{key: key, aead: aead, salt: salt}, nil
}

// passwordKeyProxy derives the key of one configured password per canary salt.
type passwordKeyProxy struct {
	provider *InternalProvider
	metadata encryptionDomain.KeyMetadata

	mu      sync.Mutex
	handles map[string]*derivedKey
}

func (k *passwordKeyProxy) Metadata() encryptionDomain.KeyMetadata { return k.metadata }

func (k *passwordKeyProxy) Provider() Provider { return k.provider }

func (k *passwordKeyProxy) MatchesCanary(
	ctx context.Context,
	canary *encryptionDomain.Canary,
) (encryptionDomain.KeyHandle, bool, error) {
	// canaries of remote keys carry no salt
	if len(canary.Salt) == 0 {
		return nil, false, nil
	}

	k.mu.Lock()
	if handle, ok := k.handles[string(canary.Salt)]; ok {
		k.mu.Unlock()
		return k.check(ctx, handle, canary)
	}
	k.mu.Unlock()

	handle, err := k.provider.derive(k.metadata, canary.Salt)
	if err != nil {
		return nil, false, err
	}
	got, ok, err := k.check(ctx, handle, canary)
	if err != nil || !ok {
		_ = handle.Close()
		return nil, false, err
	}
	return k.keep(got.(*derivedKey)), true, nil
}

func (k *passwordKeyProxy) check(
	ctx context.Context,
	handle *derivedKey,
	canary *encryptionDomain.Canary,
) (encryptionDomain.KeyHandle, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, k.provider.timeout)
	defer cancel()

	plaintext, err := k.provider.Decrypt(ctx, handle, canary.EncryptedValue, canary.Nonce)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, fmt.Errorf("%w: %s: %v", encryptionDomain.ErrProviderUnavailable, k.metadata.Name, err)
		}
		return nil, false, nil
	}
	if subtle.ConstantTimeCompare(plaintext, []byte(encryptionDomain.CanaryValue)) != 1 {
		return nil, false, nil
	}
	return handle, true, nil
}

func (k *passwordKeyProxy) NewCanary(
	ctx context.Context,
) (*encryptionDomain.Canary, encryptionDomain.KeyHandle, error) {
	salt := make([]byte, encryptionDomain.SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	handle, err := k.provider.derive(k.metadata, salt)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, k.provider.timeout)
	defer cancel()

	ciphertext, nonce, err := k.provider.Encrypt(ctx, handle, []byte(encryptionDomain.CanaryValue))
	if err != nil {
		_ = handle.Close()
		return nil, nil, fmt.Errorf("%w: %s: %v", encryptionDomain.ErrProviderUnavailable, k.metadata.Name, err)
	}

	canary := &encryptionDomain.Canary{
		ID:             uuid.Must(uuid.NewV7()),
		EncryptedValue: ciphertext,
		Nonce:          nonce,
		Salt:           salt,
		CreatedAt:      time.Now().UTC(),
	}
	return canary, k.keep(handle), nil
}

// keep memoizes handle by salt. A handle derived concurrently for the same salt loses.
func (k *passwordKeyProxy) keep(handle *derivedKey) *derivedKey {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.handles == nil {
		k.handles = make(map[string]*derivedKey)
	}
	if existing, ok := k.handles[string(handle.salt)]; ok {
		_ = handle.Close()
		return existing
	}
	k.handles[string(handle.salt)] = handle
	return handle
}

func (k *passwordKeyProxy) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	for salt, handle := range k.handles {
		_ = handle.Close()
		delete(k.handles, salt)
	}
	return nil
}
