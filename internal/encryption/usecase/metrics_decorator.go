package usecase

import (
	"context"
	"time"

	"github.com/allisson/credstore/internal/metrics"
)

// rotatorUseCaseWithMetrics decorates RotatorUseCase with metrics instrumentation.
type rotatorUseCaseWithMetrics struct {
	next    RotatorUseCase
	metrics metrics.BusinessMetrics
}

// NewRotatorUseCaseWithMetrics wraps a RotatorUseCase with metrics recording.
func NewRotatorUseCaseWithMetrics(useCase RotatorUseCase, m metrics.BusinessMetrics) RotatorUseCase {
	return &rotatorUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Rotate records the run outcome and, on success, how many values were re-encrypted.
func (r *rotatorUseCaseWithMetrics) Rotate(ctx context.Context, batchSize int) (*RotationResult, error) {
	start := time.Now()
	result, err := r.next.Rotate(ctx, batchSize)

	status := metrics.StatusOf(err)
	r.metrics.RecordOperation(ctx, metrics.DomainEncryption, "key_rotation", status)
	r.metrics.RecordDuration(ctx, metrics.DomainEncryption, "key_rotation", time.Since(start), status)
	if result != nil {
		r.metrics.RecordReencryption(ctx, result.Reencrypted, result.Skipped)
	}

	return result, err
}
