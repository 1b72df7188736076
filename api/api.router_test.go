// FilePath: api/api.router_test.go
package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/avisproject/avis-hub/internal/hubservice"
	"github.com/avisproject/avis-hub/internal/monitoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *Router {
	svc := hubservice.New(nil, nil, nil, nil, nil, monitoring.NewService(monitoring.Config{}))
	return NewRouter(svc, nil)
}

// Health and metrics handlers are wired by the server after the router is
// constructed; the routes must pick them up at request time.
func TestHealthAndMetricsHandlersSetAfterConstruction(t *testing.T) {
	router := newTestRouter()
	router.SetHealthCheck(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	router.SetMetrics(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, path := range []string{"/api/v1/health", "/api/v1/metrics"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}

// Gateways in the field post telemetry with no credentials; the ingest
// route must not sit behind the auth middleware. An incomplete event still
// has to reach the handler and be rejected there, not with a 401.
func TestIngestRouteAcceptsUnauthenticatedRequests(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", strings.NewReader(`{"type":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter()

	requests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/accounts/wren"},
		{http.MethodPut, "/api/v1/accounts/wren"},
		{http.MethodPut, "/api/v1/accounts/wren/password"},
		{http.MethodGet, "/api/v1/sessions"},
		{http.MethodGet, "/api/v1/devices"},
	}
	for _, r := range requests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(r.method, r.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", r.method, r.path)
	}
}
