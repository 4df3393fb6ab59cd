package docparse

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-procure/meridian-procure/internal/shared"
)

func TestParseDecodesStructuredQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/parse", r.URL.Path)

		var req parseRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "offer.pdf", req.Filename)
		raw, err := base64.StdEncoding.DecodeString(req.Content)
		require.NoError(t, err)
		require.Equal(t, []byte("%PDF-quote"), raw)

		json.NewEncoder(w).Encode(ParsedQuote{
			Amount:        14250,
			DeliveryWeeks: 5,
			Terms:         "net 60",
			Highlights:    []string{"volume discount"},
			Confidence:    0.92,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	parsed, err := client.Parse(context.Background(), []byte("%PDF-quote"), "offer.pdf")
	require.NoError(t, err)
	require.Equal(t, 14250.0, parsed.Amount)
	require.Equal(t, 5, parsed.DeliveryWeeks)
	require.Equal(t, []string{"volume discount"}, parsed.Highlights)
}

func TestParseServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	_, err := client.Parse(context.Background(), []byte("doc"), "offer.pdf")
	require.ErrorIs(t, err, shared.ErrTransient)
}

func TestParseConnectionFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.Parse(context.Background(), []byte("doc"), "offer.pdf")
	require.ErrorIs(t, err, shared.ErrTransient)
}
