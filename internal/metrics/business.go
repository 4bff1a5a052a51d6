package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Domains label business operations.
const (
	DomainCredentials = "credentials"
	DomainEncryption  = "encryption"
)

// Operation statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// StatusOf maps an operation error to its status label.
func StatusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// BusinessMetrics records credential and encryption key operations.
type BusinessMetrics interface {
	// RecordOperation counts one operation, e.g. ("credentials", "credential_set", "success").
	RecordOperation(ctx context.Context, domain, operation, status string)

	// RecordDuration records how long an operation took, in seconds.
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)

	// RecordReencryption counts values moved to the active key and values left behind
	// because their key is not configured.
	RecordReencryption(ctx context.Context, reencrypted int, skipped int64)
}

type businessMetrics struct {
	operations  metric.Int64Counter
	durations   metric.Float64Histogram
	reencrypted metric.Int64Counter
	skipped     metric.Int64Counter
}

// NewBusinessMetrics creates the business instruments on meterProvider. Every instrument
// name is prefixed with namespace.
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operations, err := meter.Int64Counter(
		fmt.Sprintf("%s_operations_total", namespace),
		metric.WithDescription("Total number of credential and key operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durations, err := meter.Float64Histogram(
		fmt.Sprintf("%s_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of credential and key operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	reencrypted, err := meter.Int64Counter(
		fmt.Sprintf("%s_values_reencrypted_total", namespace),
		metric.WithDescription("Encrypted values moved to the active key by rotation"),
		metric.WithUnit("{value}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reencrypted counter: %w", err)
	}

	skipped, err := meter.Int64Counter(
		fmt.Sprintf("%s_values_skipped_total", namespace),
		metric.WithDescription("Encrypted values rotation could not read because their key is not configured"),
		metric.WithUnit("{value}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create skipped counter: %w", err)
	}

	return &businessMetrics{
		operations:  operations,
		durations:   durations,
		reencrypted: reencrypted,
		skipped:     skipped,
	}, nil
}

func operationAttributes(domain, operation, status string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("domain", domain),
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
}

func (b *businessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operations.Add(ctx, 1, operationAttributes(domain, operation, status))
}

func (b *businessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	b.durations.Record(ctx, duration.Seconds(), operationAttributes(domain, operation, status))
}

func (b *businessMetrics) RecordReencryption(ctx context.Context, reencrypted int, skipped int64) {
	b.reencrypted.Add(ctx, int64(reencrypted))
	if skipped > 0 {
		b.skipped.Add(ctx, skipped)
	}
}

// NoOpBusinessMetrics discards every measurement. Used when metrics are disabled.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics creates a no-op BusinessMetrics implementation.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return &NoOpBusinessMetrics{}
}

func (n *NoOpBusinessMetrics) RecordOperation(context.Context, string, string, string) {}

func (n *NoOpBusinessMetrics) RecordDuration(context.Context, string, string, time.Duration, string) {
}

func (n *NoOpBusinessMetrics) RecordReencryption(context.Context, int, int64) {}
