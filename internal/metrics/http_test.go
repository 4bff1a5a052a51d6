package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	provider, err := NewProvider("test_app")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	router := gin.New()
	router.Use(HTTPMetricsMiddleware(provider.MeterProvider(), "credstore_test"))
	router.GET("/v1/data/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	router.DELETE("/v1/data", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for _, id := range []string{"0190c0de-0000-7000-8000-000000000001", "0190c0de-0000-7000-8000-000000000002"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/data/"+id, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/v1/data?name=/db/password", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	output := scrape(t, provider)

	assertMetricLine(t, output, `credstore_test_http_requests_total`,
		`method="GET".*route="/v1/data/:id".*status_code="200"`, `2`)
	assertMetricLine(t, output, `credstore_test_http_requests_total`,
		`method="DELETE".*route="/v1/data".*status_code="204"`, `1`)
	assertMetricLine(t, output, `credstore_test_http_requests_total`,
		`route="unmatched".*status_code="404"`, `1`)
	assertMetricLine(t, output, `credstore_test_http_request_duration_seconds_count`,
		`route="/v1/data/:id"`, `2`)
	assert.Regexp(t, `credstore_test_http_requests_in_flight\{[^}]*\} 0`, output)
	assert.NotContains(t, output, "0190c0de-0000-7000-8000-000000000001")
	assert.NotContains(t, output, "/db/password")
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/v1/data/:id", routeLabel("/v1/data/:id"))
	assert.Equal(t, "unmatched", routeLabel(""))
}
