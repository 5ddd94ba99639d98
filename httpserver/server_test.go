package httpserver

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pqops/ake-orchestrator/api/akehandler"
	"github.com/pqops/ake-orchestrator/interfaces"
)

type staticRunner struct{}

func (staticRunner) RunAKE(ctx context.Context, input interfaces.SelectionInput) (*interfaces.AkeResult, error) {
	return &interfaces.AkeResult{Status: interfaces.AkeStatusOK, SharedSecretMatch: true}, nil
}

func (staticRunner) Health(ctx context.Context) interfaces.HealthReport {
	return interfaces.HealthReport{Status: interfaces.HealthDegraded}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := akehandler.NewHandler(staticRunner{}, logger)

	srv, err := New(&HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		Log:                      logger,
		DrainDuration:            10 * time.Millisecond,
		GracefulShutdownDuration: time.Second,
		ReadTimeout:              time.Second,
		WriteTimeout:             time.Second,
	}, handler)
	require.NoError(t, err)
	return srv
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRouter_LivenessAndHealthRoutes(t *testing.T) {
	router := newTestServer(t).getRouter()

	assert.Equal(t, http.StatusOK, get(t, router, "/livez").Code)
	assert.Equal(t, http.StatusOK, get(t, router, "/readyz").Code)

	rec := get(t, router, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

func TestRouter_DrainAndUndrain(t *testing.T) {
	srv := newTestServer(t)
	router := srv.getRouter()

	assert.Equal(t, http.StatusOK, get(t, router, "/drain").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, router, "/readyz").Code)
	assert.Contains(t, get(t, router, "/drain").Body.String(), "already draining")

	assert.Equal(t, http.StatusOK, get(t, router, "/undrain").Code)
	assert.Equal(t, http.StatusOK, get(t, router, "/readyz").Code)
}

func TestRouter_PprofDisabledByDefault(t *testing.T) {
	router := newTestServer(t).getRouter()
	assert.Equal(t, http.StatusNotFound, get(t, router, "/debug/pprof/").Code)
}
