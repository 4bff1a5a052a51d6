package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// KeySetStats reports the installed key set. ok is false until keys are loaded.
type KeySetStats func() (loaded int, activeKey string, ok bool)

// RegisterKeySetGauges exports the number of loaded encryption keys and the name of the
// active key, read from stats on every collection.
func RegisterKeySetGauges(meterProvider metric.MeterProvider, namespace string, stats KeySetStats) error {
	meter := meterProvider.Meter(namespace)

	loaded, err := meter.Int64ObservableGauge(
		fmt.Sprintf("%s_encryption_keys_loaded", namespace),
		metric.WithDescription("Number of encryption keys in the installed key set"),
		metric.WithUnit("{key}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create loaded keys gauge: %w", err)
	}

	active, err := meter.Int64ObservableGauge(
		fmt.Sprintf("%s_encryption_active_key_info", namespace),
		metric.WithDescription("Always 1, labeled with the name of the active encryption key"),
	)
	if err != nil {
		return fmt.Errorf("failed to create active key gauge: %w", err)
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		count, activeKey, ok := stats()
		if !ok {
			o.ObserveInt64(loaded, 0)
			return nil
		}
		o.ObserveInt64(loaded, int64(count))
		o.ObserveInt64(active, 1, metric.WithAttributes(attribute.String("key_name", activeKey)))
		return nil
	}, loaded, active)
	if err != nil {
		return fmt.Errorf("failed to register key set callback: %w", err)
	}
	return nil
}
