package usecase

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	credentialsDomain "github.com/allisson/credstore/internal/credentials/domain"
	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTxManager restores repo to its state before fn when fn fails.
type fakeTxManager struct {
	calls int
	repo  *memCredentialRepo
}

func (f *fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	if f.repo == nil {
		return fn(ctx)
	}
	restore := f.repo.snapshot()
	if err := fn(ctx); err != nil {
		restore()
		return err
	}
	return nil
}

// memEncryption keeps plaintexts in memory under random value ids.
type memEncryption struct {
	mu     sync.Mutex
	keyID  uuid.UUID
	values map[uuid.UUID][]byte
}

func newMemEncryption() *memEncryption {
	return &memEncryption{keyID: uuid.New(), values: make(map[uuid.UUID][]byte)}
}

func (e *memEncryption) Encrypt(_ context.Context, plaintext []byte) (*encryptionDomain.EncryptedValue, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := uuid.Must(uuid.NewV7())
	e.values[id] = append([]byte(nil), plaintext...)
	return &encryptionDomain.EncryptedValue{ID: id, EncryptionKeyID: e.keyID}, nil
}

func (e *memEncryption) Decrypt(_ context.Context, id uuid.UUID) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	plaintext, ok := e.values[id]
	if !ok {
		return nil, encryptionDomain.ErrKeyNotFound
	}
	return append([]byte(nil), plaintext...), nil
}

type memCredentialRepo struct {
	mu          sync.Mutex
	credentials map[string]*credentialsDomain.Credential
	versions    []*credentialsDomain.CredentialVersion
	seq         time.Time
}

func newMemCredentialRepo() *memCredentialRepo {
	return &memCredentialRepo{
		credentials: make(map[string]*credentialsDomain.Credential),
		seq:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *memCredentialRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	credentials := make(map[string]*credentialsDomain.Credential, len(r.credentials))
	for name, credential := range r.credentials {
		credentials[name] = credential
	}
	versions := append([]*credentialsDomain.CredentialVersion(nil), r.versions...)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.credentials = credentials
		r.versions = versions
	}
}

func (r *memCredentialRepo) LockName(_ context.Context, name string) (*credentialsDomain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	credential, ok := r.credentials[name]
	if !ok {
		credential = &credentialsDomain.Credential{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC()}
		r.credentials[name] = credential
	}
	return credential, nil
}

func (r *memCredentialRepo) list(name string) []*credentialsDomain.CredentialVersion {
	var out []*credentialsDomain.CredentialVersion
	for _, v := range r.versions {
		if v.Name == name {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memCredentialRepo) GetCurrent(_ context.Context, name string) (*credentialsDomain.CredentialVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	versions := r.list(name)
	if len(versions) == 0 {
		return nil, credentialsDomain.ErrCredentialNotFound
	}
	return versions[0], nil
}

func (r *memCredentialRepo) ListVersions(
	_ context.Context,
	name string,
	limit int,
) ([]*credentialsDomain.CredentialVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	versions := r.list(name)
	if limit > 0 && len(versions) > limit {
		versions = versions[:limit]
	}
	return versions, nil
}

func (r *memCredentialRepo) GetVersion(_ context.Context, id uuid.UUID) (*credentialsDomain.CredentialVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.versions {
		if v.ID == id {
			cp := *v
			return &cp, nil
		}
	}
	return nil, credentialsDomain.ErrCredentialNotFound
}

func (r *memCredentialRepo) CreateVersion(_ context.Context, version *credentialsDomain.CredentialVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// strictly increasing timestamps keep the ordering deterministic
	r.seq = r.seq.Add(time.Millisecond)
	version.CreatedAt = r.seq
	cp := *version
	r.versions = append(r.versions, &cp)
	return nil
}

func (r *memCredentialRepo) DeleteByName(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.credentials[name]; !ok {
		return credentialsDomain.ErrCredentialNotFound
	}
	delete(r.credentials, name)
	kept := r.versions[:0]
	for _, v := range r.versions {
		if v.Name != name {
			kept = append(kept, v)
		}
	}
	r.versions = kept
	return nil
}

func (r *memCredentialRepo) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.list(name))
}
