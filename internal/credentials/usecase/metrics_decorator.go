package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	credentialsDomain "github.com/allisson/credstore/internal/credentials/domain"
	"github.com/allisson/credstore/internal/metrics"
)

// credentialUseCaseWithMetrics decorates CredentialUseCase with metrics instrumentation.
type credentialUseCaseWithMetrics struct {
	next    CredentialUseCase
	metrics metrics.BusinessMetrics
}

// NewCredentialUseCaseWithMetrics wraps a CredentialUseCase with metrics recording.
func NewCredentialUseCaseWithMetrics(useCase CredentialUseCase, m metrics.BusinessMetrics) CredentialUseCase {
	return &credentialUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (c *credentialUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.StatusOf(err)
	c.metrics.RecordOperation(ctx, metrics.DomainCredentials, operation, status)
	c.metrics.RecordDuration(ctx, metrics.DomainCredentials, operation, time.Since(start), status)
}

// GenerateOrConverge records metrics for generate requests.
func (c *credentialUseCaseWithMetrics) GenerateOrConverge(
	ctx context.Context,
	input GenerateInput,
) (*credentialsDomain.CredentialVersion, error) {
	start := time.Now()
	version, err := c.next.GenerateOrConverge(ctx, input)
	c.record(ctx, "credential_generate", start, err)
	return version, err
}

// Set records metrics for set requests.
func (c *credentialUseCaseWithMetrics) Set(
	ctx context.Context,
	input SetInput,
) (*credentialsDomain.CredentialVersion, error) {
	start := time.Now()
	version, err := c.next.Set(ctx, input)
	c.record(ctx, "credential_set", start, err)
	return version, err
}

// Get records metrics for current version reads.
func (c *credentialUseCaseWithMetrics) Get(ctx context.Context, name string) (*credentialsDomain.CredentialVersion, error) {
	start := time.Now()
	version, err := c.next.Get(ctx, name)
	c.record(ctx, "credential_get", start, err)
	return version, err
}

// GetVersions records metrics for version history reads.
func (c *credentialUseCaseWithMetrics) GetVersions(
	ctx context.Context,
	name string,
	limit int,
) ([]*credentialsDomain.CredentialVersion, error) {
	start := time.Now()
	versions, err := c.next.GetVersions(ctx, name, limit)
	c.record(ctx, "credential_get_versions", start, err)
	return versions, err
}

// GetByID records metrics for reads by version id.
func (c *credentialUseCaseWithMetrics) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*credentialsDomain.CredentialVersion, error) {
	start := time.Now()
	version, err := c.next.GetByID(ctx, id)
	c.record(ctx, "credential_get_by_id", start, err)
	return version, err
}

// Delete records metrics for deletions.
func (c *credentialUseCaseWithMetrics) Delete(ctx context.Context, name string) error {
	start := time.Now()
	err := c.next.Delete(ctx, name)
	c.record(ctx, "credential_delete", start, err)
	return err
}
