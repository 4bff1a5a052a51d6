package httputil_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/allisson/credstore/internal/httputil"
)

func auditListContext(query string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/audit"+query, nil)
	return c
}

func TestParsePagination(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("valid", func(t *testing.T) {
		cases := map[string][2]int{
			"":                    {0, 50},
			"?offset=10&limit=20": {10, 20},
			"?limit=100":          {0, 100},
			"?limit=1":            {0, 1},
		}
		for query, want := range cases {
			offset, limit, err := httputil.ParsePagination(auditListContext(query))
			assert.NoError(t, err, query)
			assert.Equal(t, want, [2]int{offset, limit}, query)
		}
	})

	t.Run("invalid offset", func(t *testing.T) {
		for _, query := range []string{"?offset=-1", "?offset=abc"} {
			offset, limit, err := httputil.ParsePagination(auditListContext(query))
			assert.EqualError(t, err, "invalid offset parameter: must be a non-negative integer", query)
			assert.Zero(t, offset)
			assert.Zero(t, limit)
		}
	})

	t.Run("invalid limit", func(t *testing.T) {
		for _, query := range []string{"?limit=0", "?limit=101", "?limit=xyz"} {
			_, _, err := httputil.ParsePagination(auditListContext(query))
			assert.EqualError(t, err, "invalid limit parameter: must be between 1 and 100", query)
		}
	})
}

func TestParseTimeRange(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		url         string
		expectFrom  string
		expectTo    string
		expectError string
	}{
		{
			name: "no bounds",
			url:  "/",
		},
		{
			name:       "both bounds converted to UTC",
			url:        "/?from=2026-02-01T03:00:00%2B03:00&to=2026-02-14T23:59:59Z",
			expectFrom: "2026-02-01T00:00:00Z",
			expectTo:   "2026-02-14T23:59:59Z",
		},
		{
			name:        "invalid from",
			url:         "/?from=yesterday",
			expectError: "invalid from format: must be RFC3339 (e.g., 2026-02-01T00:00:00Z)",
		},
		{
			name:        "from after to",
			url:         "/?from=2026-02-15T00:00:00Z&to=2026-02-14T00:00:00Z",
			expectError: "from must be before or equal to to",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, tt.url, nil)

			from, to, err := httputil.ParseTimeRange(c, "from", "to")

			if tt.expectError != "" {
				assert.EqualError(t, err, tt.expectError)
				return
			}
			assert.NoError(t, err)
			if tt.expectFrom == "" {
				assert.Nil(t, from)
			} else {
				assert.Equal(t, tt.expectFrom, from.Format(time.RFC3339))
			}
			if tt.expectTo == "" {
				assert.Nil(t, to)
			} else {
				assert.Equal(t, tt.expectTo, to.Format(time.RFC3339))
			}
		})
	}
}
