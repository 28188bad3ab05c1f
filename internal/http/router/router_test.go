package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"parcel-dispatch/internal/http/handlers"
	"parcel-dispatch/internal/http/router"
	testlog "parcel-dispatch/internal/testutil"
)

func newTestRouter() http.Handler {
	logger := testlog.New().Logger()
	base := handlers.New(logger)
	drv := &handlers.DriverHandler{}
	del := &handlers.DeliveryHandler{}

	return router.New(logger, base, drv, del, nil)
}

func TestNew_Ping(t *testing.T) {
	t.Parallel()

	h := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"message": "pong"}`, rr.Body.String())
}

func TestNew_UnknownRouteReturnsJSON404(t *testing.T) {
	t.Parallel()

	h := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/no-such-route", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.JSONEq(t, `{"error": "route not found"}`, rr.Body.String())
}

func TestNew_MetricsExposed(t *testing.T) {
	t.Parallel()

	h := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
}
