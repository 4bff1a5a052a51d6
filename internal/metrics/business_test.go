package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertMetricLine checks that the Prometheus output contains a metric matching the given
// name, partial label pattern, and value. Uses regex to handle extra OTel scope labels
// injected by the Prometheus exporter.
func assertMetricLine(t *testing.T, output, name, labels, value string) {
	t.Helper()
	pattern := name + `\{[^}]*` + labels + `[^}]*\} ` + value
	assert.Regexp(t, pattern, output)
}

func scrape(t *testing.T, provider *Provider) string {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	provider.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, StatusSuccess, StatusOf(nil))
	assert.Equal(t, StatusError, StatusOf(errors.New("boom")))
}

func TestNewBusinessMetrics(t *testing.T) {
	provider, err := NewProvider("test_app")
	require.NoError(t, err)

	businessMetrics, err := NewBusinessMetrics(provider.MeterProvider(), "test_app")

	require.NoError(t, err)
	assert.NotNil(t, businessMetrics)
}

func TestBusinessMetrics_Operations(t *testing.T) {
	provider, err := NewProvider("test_app")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "credstore_test")
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordOperation(ctx, DomainCredentials, "credential_set", StatusSuccess)
	bm.RecordOperation(ctx, DomainCredentials, "credential_set", StatusSuccess)
	bm.RecordOperation(ctx, DomainCredentials, "credential_set", StatusError)
	bm.RecordOperation(ctx, DomainEncryption, "rotate", StatusSuccess)

	bm.RecordDuration(ctx, DomainCredentials, "credential_set", 50*time.Millisecond, StatusSuccess)
	bm.RecordDuration(ctx, DomainCredentials, "credential_set", 60*time.Millisecond, StatusSuccess)
	bm.RecordDuration(ctx, DomainEncryption, "rotate", 2*time.Second, StatusSuccess)

	output := scrape(t, provider)

	assertMetricLine(t, output, `credstore_test_operations_total`,
		`domain="credentials".*operation="credential_set".*status="success"`, `2`)
	assertMetricLine(t, output, `credstore_test_operations_total`,
		`domain="credentials".*operation="credential_set".*status="error"`, `1`)
	assertMetricLine(t, output, `credstore_test_operations_total`,
		`domain="encryption".*operation="rotate".*status="success"`, `1`)
	assertMetricLine(t, output, `credstore_test_operation_duration_seconds_count`,
		`domain="credentials".*operation="credential_set".*status="success"`, `2`)
}

func TestBusinessMetrics_RecordReencryption(t *testing.T) {
	provider, err := NewProvider("test_app")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "credstore_test")
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordReencryption(ctx, 7, 0)
	bm.RecordReencryption(ctx, 3, 2)

	output := scrape(t, provider)

	assert.Regexp(t, `credstore_test_values_reencrypted_total\{[^}]*\} 10`, output)
	assert.Regexp(t, `credstore_test_values_skipped_total\{[^}]*\} 2`, output)
}

func TestNoOpBusinessMetrics(t *testing.T) {
	noOp := NewNoOpBusinessMetrics()
	assert.IsType(t, &NoOpBusinessMetrics{}, noOp)

	assert.NotPanics(t, func() {
		noOp.RecordOperation(context.Background(), DomainCredentials, "credential_get", StatusError)
		noOp.RecordDuration(context.Background(), DomainCredentials, "credential_get", time.Second, StatusError)
		noOp.RecordReencryption(context.Background(), 5, 1)
	})
}
