package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phpayroll/internal/domain/auth"
	"phpayroll/internal/platform/config"
	"phpayroll/internal/platform/metrics"
)

const routerSecret = "router-test-secret"

func testRouter(t *testing.T, ready func(context.Context) error, rateLimit int) (http.Handler, *metrics.Collector) {
	t.Helper()
	collector := metrics.New()
	cfg := config.Config{
		Environment:        "test",
		JWTSecret:          routerSecret,
		MaxBodyBytes:       4096,
		CORSAllowedOrigins: []string{"https://payroll.example"},
		RateLimitPerMinute: rateLimit,
		LogLevel:           "error",
	}
	router := NewRouter(Deps{
		Config:  cfg,
		Logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Metrics: collector,
		Ready:   ready,
	})
	return router, collector
}

func bearer(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateToken(routerSecret, auth.Claims{UserID: "u-1", Role: auth.RoleEmployee}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthAndReadiness(t *testing.T) {
	router, _ := testRouter(t, func(context.Context) error { return errors.New("db down") }, 100)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	router, _ = testRouter(t, func(context.Context) error { return nil }, 100)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeductionsThroughFullStack(t *testing.T) {
	router, _ := testRouter(t, nil, 100)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/deductions?salary=25000", nil)
	req.Header.Set("Authorization", bearer(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalDeductions":"2197.55"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/deductions?salary=25000", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetricsEndpointExposesRequests(t *testing.T) {
	router, _ := testRouter(t, nil, 100)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payroll/schedules/sss", nil)
	req.Header.Set("Authorization", bearer(t))
	router.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "phpayroll_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	router, _ := testRouter(t, nil, 100)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/payroll/preview", nil)
	req.Header.Set("Origin", "https://payroll.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "https://payroll.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitApplies(t *testing.T) {
	router, _ := testRouter(t, nil, 4)
	token := bearer(t)

	var last int
	for range 5 {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/deductions?salary=1000", nil)
		req.Header.Set("Authorization", token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
