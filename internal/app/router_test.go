package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quickinvoice/quickinvoice/internal/app"
	"github.com/quickinvoice/quickinvoice/internal/auth"
	"github.com/quickinvoice/quickinvoice/internal/deliveries"
	"github.com/quickinvoice/quickinvoice/internal/inventory"
	"github.com/quickinvoice/quickinvoice/internal/invoices"
	"github.com/quickinvoice/quickinvoice/internal/observability"
	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
	"github.com/quickinvoice/quickinvoice/internal/reports"
	"github.com/quickinvoice/quickinvoice/internal/users"
	_ "github.com/quickinvoice/quickinvoice/testing"
)

type noTokens struct{}

func (noTokens) AccountForToken(context.Context, []byte) (string, error) {
	return "", httpx.ErrNotFound
}

func newRouter(t *testing.T, checks map[string]app.Pinger) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           &app.Config{AppEnv: "test", RateLimitPerMinute: 1000},
		Metrics:          observability.NewMetrics(),
		Auth:             auth.NewService(noTokens{}),
		InvoicesHandler:  invoices.NewHandler(logger, nil),
		UsersHandler:     users.NewHandler(logger, nil),
		ReportsHandler:   reports.NewHandler(logger, nil, nil),
		InventoryHandler: inventory.NewHandler(logger, nil),
		DeliveryHandler:  deliveries.NewHandler(logger, nil),
		Checks:           checks,
	})
}

func TestHealthzReportsDependencies(t *testing.T) {
	router := newRouter(t, map[string]app.Pinger{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return nil },
	})
	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, res.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "ok", body["redis"])
}

func TestHealthzDegradedWhenPingFails(t *testing.T) {
	router := newRouter(t, map[string]app.Pinger{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusServiceUnavailable, res.Code)
	require.Contains(t, res.Body.String(), "connection refused")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newRouter(t, nil)
	for _, path := range []string{"/invoices", "/clients", "/users/me", "/dashboard", "/inventory", "/deliveries"} {
		res := httptest.NewRecorder()
		router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusUnauthorized, res.Code, path)
	}
}

func TestSecurityHeadersAndProblemNotFound(t *testing.T) {
	router := newRouter(t, nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Equal(t, http.StatusNotFound, res.Code)
	require.Equal(t, "nosniff", res.Header().Get("X-Content-Type-Options"))
	require.Contains(t, res.Header().Get("Content-Type"), "application/problem+json")
}

func TestMetricsEndpointIsPublic(t *testing.T) {
	router := newRouter(t, nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, res.Code)
}
