package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_RecordsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/api/v1/documents/:id/export", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	tests := []struct {
		url, path, status string
	}{
		{"/ok", "/ok", "200"},
		{"/api/v1/documents/abc/export", "/api/v1/documents/:id/export", "404"},
		{"/missing", "unknown", "404"},
	}
	for _, tc := range tests {
		t.Run(tc.url, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.url, http.NoBody))
			got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, tc.path, tc.status))
			assert.GreaterOrEqual(t, got, 1.0)
		})
	}
	assert.Positive(t, testutil.CollectAndCount(httpRequestDuration))
}

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestObserveStage(t *testing.T) {
	ObserveStage("map", time.Now().Add(-10*time.Millisecond))
	assert.Positive(t, testutil.CollectAndCount(StageDuration, "invoice_stage_duration_seconds"))
}
