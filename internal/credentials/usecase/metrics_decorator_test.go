package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	credentialsDomain "github.com/allisson/credstore/internal/credentials/domain"
	"github.com/allisson/credstore/internal/metrics"
)

type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

func (m *mockBusinessMetrics) RecordReencryption(ctx context.Context, reencrypted int, skipped int64) {
	m.Called(ctx, reencrypted, skipped)
}

var _ metrics.BusinessMetrics = (*mockBusinessMetrics)(nil)

// stubCredentialUseCase returns err from every method.
type stubCredentialUseCase struct {
	err error
}

func (s *stubCredentialUseCase) version() *credentialsDomain.CredentialVersion {
	if s.err != nil {
		return nil
	}
	return &credentialsDomain.CredentialVersion{ID: uuid.New()}
}

func (s *stubCredentialUseCase) GenerateOrConverge(context.Context, GenerateInput) (*credentialsDomain.CredentialVersion, error) {
	return s.version(), s.err
}

func (s *stubCredentialUseCase) Set(context.Context, SetInput) (*credentialsDomain.CredentialVersion, error) {
	return s.version(), s.err
}

func (s *stubCredentialUseCase) Get(context.Context, string) (*credentialsDomain.CredentialVersion, error) {
	return s.version(), s.err
}

func (s *stubCredentialUseCase) GetVersions(context.Context, string, int) ([]*credentialsDomain.CredentialVersion, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []*credentialsDomain.CredentialVersion{s.version()}, nil
}

func (s *stubCredentialUseCase) GetByID(context.Context, uuid.UUID) (*credentialsDomain.CredentialVersion, error) {
	return s.version(), s.err
}

func (s *stubCredentialUseCase) Delete(context.Context, string) error {
	return s.err
}

func TestCredentialMetricsDecorator(t *testing.T) {
	ctx := context.Background()
	calls := map[string]func(uc CredentialUseCase) error{
		"credential_generate": func(uc CredentialUseCase) error {
			_, err := uc.GenerateOrConverge(ctx, GenerateInput{})
			return err
		},
		"credential_set": func(uc CredentialUseCase) error {
			_, err := uc.Set(ctx, SetInput{})
			return err
		},
		"credential_get": func(uc CredentialUseCase) error {
			_, err := uc.Get(ctx, "/a")
			return err
		},
		"credential_get_versions": func(uc CredentialUseCase) error {
			_, err := uc.GetVersions(ctx, "/a", 1)
			return err
		},
		"credential_get_by_id": func(uc CredentialUseCase) error {
			_, err := uc.GetByID(ctx, uuid.New())
			return err
		},
		"credential_delete": func(uc CredentialUseCase) error {
			return uc.Delete(ctx, "/a")
		},
	}

	for operation, call := range calls {
		for status, stubErr := range map[string]error{"success": nil, "error": errors.New("boom")} {
			t.Run(operation+"_"+status, func(t *testing.T) {
				m := &mockBusinessMetrics{}
				m.On("RecordOperation", ctx, "credentials", operation, status).Return().Once()
				m.On("RecordDuration", ctx, "credentials", operation, mock.AnythingOfType("time.Duration"), status).
					Return().
					Once()

				decorator := NewCredentialUseCaseWithMetrics(&stubCredentialUseCase{err: stubErr}, m)
				err := call(decorator)
				if stubErr != nil {
					require.ErrorIs(t, err, stubErr)
				} else {
					require.NoError(t, err)
				}
				assert.True(t, m.AssertExpectations(t))
			})
		}
	}
}
