// Package docparse calls the document analysis service that turns supplier
// quote documents into structured offers. The service is optional; callers
// must keep a manual entry path for when it is unreachable.
package docparse

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/meridian-procure/meridian-procure/internal/shared"
)

// ParsedQuote is the structured reading of a quote document.
type ParsedQuote struct {
	Amount        float64  `json:"amount"`
	DeliveryWeeks int      `json:"delivery_weeks"`
	Terms         string   `json:"terms"`
	Highlights    []string `json:"highlights"`
	Confidence    float64  `json:"confidence"`
}

// Client talks to the parsing service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type parseRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Parse submits a document and returns the structured quote. Transport
// failures and non-2xx responses surface as transient errors so callers can
// fall back to manual entry.
func (c *Client) Parse(ctx context.Context, payload []byte, filename string) (ParsedQuote, error) {
	body, err := json.Marshal(parseRequest{
		Filename: filename,
		Content:  base64.StdEncoding.EncodeToString(payload),
	})
	if err != nil {
		return ParsedQuote{}, fmt.Errorf("docparse: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/parse", bytes.NewReader(body))
	if err != nil {
		return ParsedQuote{}, fmt.Errorf("docparse: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return ParsedQuote{}, fmt.Errorf("docparse: %w: %v", shared.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ParsedQuote{}, fmt.Errorf("docparse: %w: service responded %d", shared.ErrTransient, resp.StatusCode)
	}
	var parsed ParsedQuote
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ParsedQuote{}, fmt.Errorf("docparse: decode response: %w", err)
	}
	return parsed, nil
}
