package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-procure/meridian-procure/internal/shared"
)

func identityProbe(t *testing.T) (http.Handler, *shared.Identity, *bool) {
	t.Helper()
	var got shared.Identity
	var present bool
	h := IdentityMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, present = shared.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	return h, &got, &present
}

func TestIdentityMiddlewareParsesHeaders(t *testing.T) {
	h, got, present := identityProbe(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", "42")
	req.Header.Set("X-User-Role", "supplier")
	req.Header.Set("X-Supplier-ID", "7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, *present)
	require.Equal(t, shared.Identity{UserID: 42, Role: shared.RoleSupplier, SupplierID: 7}, *got)
}

func TestIdentityMiddlewareAllowsAnonymousThrough(t *testing.T) {
	h, _, present := identityProbe(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, *present)
}

func TestIdentityMiddlewareRejectsBadHeaders(t *testing.T) {
	cases := map[string]map[string]string{
		"garbage user id":          {"X-User-ID": "abc", "X-User-Role": "user"},
		"unknown role":             {"X-User-ID": "1", "X-User-Role": "superuser"},
		"supplier without mapping": {"X-User-ID": "1", "X-User-Role": "supplier"},
		"bad supplier id":          {"X-User-ID": "1", "X-User-Role": "supplier", "X-Supplier-ID": "-2"},
	}
	for name, headers := range cases {
		t.Run(name, func(t *testing.T) {
			h, _, _ := identityProbe(t)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}
