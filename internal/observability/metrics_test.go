package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func TestMetricsMiddlewareCountsRequests(t *testing.T) {
	m := NewMetrics()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/orders/42", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	metricsReq := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metricsRec := httptest.NewRecorder()
	m.Handler().ServeHTTP(metricsRec, metricsReq)
	body := metricsRec.Body.String()
	require.True(t, strings.Contains(body, "meridian_http_requests_total"))
	require.True(t, strings.Contains(body, `route="/orders/{id}"`))
}

func TestObserveMatchVerdict(t *testing.T) {
	m := NewMetrics()
	m.ObserveMatchVerdict("MATCHED")
	m.ObserveMatchVerdict("PENDING_MATCH")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	require.True(t, strings.Contains(body, `meridian_match_verdicts_total{verdict="MATCHED"} 1`))
	require.True(t, strings.Contains(body, `meridian_match_verdicts_total{verdict="PENDING_MATCH"} 1`))
}

func TestNilMetricsHandlerDegrades(t *testing.T) {
	var m *Metrics
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
