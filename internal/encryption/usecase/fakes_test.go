package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
	encryptionService "github.com/allisson/credstore/internal/encryption/service"
	apperrors "github.com/allisson/credstore/internal/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRegistry() *encryptionService.ProviderRegistry {
	return encryptionService.NewProviderRegistry(
		encryptionService.NewInternalProvider(encryptionService.NewAEADManager(), 1000, time.Second),
		encryptionService.NewKMSProvider(encryptionService.NewKMSService(), time.Second),
	)
}

// fakeTxManager runs fn directly; state changes are not rolled back.
type fakeTxManager struct {
	calls int
}

func (f *fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type memCanaryRepo struct {
	mu        sync.Mutex
	canaries  []*encryptionDomain.Canary
	createErr error
	// onList runs before every List, letting tests simulate another instance.
	onList func(r *memCanaryRepo)
}

func (r *memCanaryRepo) Create(_ context.Context, canary *encryptionDomain.Canary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.canaries = append(r.canaries, canary)
	return nil
}

func (r *memCanaryRepo) List(context.Context) ([]*encryptionDomain.Canary, error) {
	if r.onList != nil {
		r.onList(r)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*encryptionDomain.Canary(nil), r.canaries...), nil
}

func (r *memCanaryRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.canaries {
		if c.ID == id {
			r.canaries = append(r.canaries[:i], r.canaries[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (r *memCanaryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.canaries)
}

type memValueRepo struct {
	mu     sync.Mutex
	values map[uuid.UUID]*encryptionDomain.EncryptedValue
}

func newMemValueRepo() *memValueRepo {
	return &memValueRepo{values: make(map[uuid.UUID]*encryptionDomain.EncryptedValue)}
}

func (r *memValueRepo) Create(_ context.Context, value *encryptionDomain.EncryptedValue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *value
	r.values[value.ID] = &cp
	return nil
}

func (r *memValueRepo) Get(_ context.Context, id uuid.UUID) (*encryptionDomain.EncryptedValue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	value, ok := r.values[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *value
	return &cp, nil
}

func (r *memValueRepo) Update(_ context.Context, value *encryptionDomain.EncryptedValue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.values[value.ID]; !ok {
		return apperrors.ErrNotFound
	}
	cp := *value
	r.values[value.ID] = &cp
	return nil
}

func (r *memValueRepo) ListEncryptedBy(
	_ context.Context,
	keyIDs []uuid.UUID,
	limit int,
) ([]*encryptionDomain.EncryptedValue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(keyIDs))
	for _, id := range keyIDs {
		wanted[id] = true
	}
	var out []*encryptionDomain.EncryptedValue
	for _, v := range r.values {
		if wanted[v.EncryptionKeyID] {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memValueRepo) CountByKey(_ context.Context, keyID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, v := range r.values {
		if v.EncryptionKeyID == keyID {
			n++
		}
	}
	return n, nil
}

func (r *memValueRepo) CountNotEncryptedBy(_ context.Context, keyID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, v := range r.values {
		if v.EncryptionKeyID != keyID {
			n++
		}
	}
	return n, nil
}

// failingFactory fails CreateKeyProxy for every key.
type failingFactory struct{}

func (failingFactory) CreateKeyProxy(
	context.Context,
	encryptionDomain.KeyMetadata,
) (encryptionService.KeyProxy, error) {
	return nil, encryptionDomain.ErrProviderUnavailable
}

var errBoom = errors.New("boom")
