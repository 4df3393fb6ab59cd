package httpx

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	type payload struct {
		Amount float64 `json:"amount"`
	}

	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"amount": 5, "amuont": 6}`))
	var p payload
	require.Error(t, DecodeJSON(r, &p))

	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"amount": 5}`))
	require.NoError(t, DecodeJSON(r, &p))
	require.Equal(t, 5.0, p.Amount)
}

func TestProblemCarriesStatusAndDetail(t *testing.T) {
	w := httptest.NewRecorder()
	Problem(w, 422, "Policy Violation", "requester cannot approve")

	require.Equal(t, 422, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.Contains(t, w.Body.String(), `"requester cannot approve"`)
}
