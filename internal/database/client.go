// Package database provides the Supabase PostgREST client.
package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/momentum-labs/habitlog/internal/httputil"
)

const (
	maxResponseBytes  = 8 << 20  // 8 MiB
	maxErrorBodyBytes = 32 << 10 // 32 KiB

	defaultTimeout = 30 * time.Second
)

// Config holds store client configuration.
type Config struct {
	URL        string
	ServiceKey string
	Timeout    time.Duration
}

// Client wraps the Supabase REST API. Every request authenticates with the
// service key; row ownership is still enforced by explicit filters in the
// repositories on top of it.
type Client struct {
	url        string
	serviceKey string
	httpClient *http.Client
}

// NewClient creates a new store client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("store URL is required")
	}
	if cfg.ServiceKey == "" {
		return nil, fmt.Errorf("store service key is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		url:        strings.TrimRight(cfg.URL, "/"),
		serviceKey: cfg.ServiceKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// StoreError is a non-success response from the store. The upstream status
// and body are preserved so handlers can pass them through unmodified.
type StoreError struct {
	Status int
	Body   []byte
}

// Error renders the upstream status plus the PostgREST message when the
// body is JSON, otherwise the raw body.
func (e *StoreError) Error() string {
	msg := strings.TrimSpace(string(e.Body))
	if m := gjson.GetBytes(e.Body, "message"); m.Exists() {
		msg = m.String()
	}
	return fmt.Sprintf("store error %d: %s", e.Status, msg)
}

// Request makes an HTTP request to the store's REST API and returns the raw
// response body. A non-2xx response surfaces as *StoreError; there are no
// retries and no local recovery.
func (c *Client) Request(ctx context.Context, method, table string, body any, query string) ([]byte, error) {
	if table == "" {
		return nil, fmt.Errorf("table is required")
	}

	url := fmt.Sprintf("%s/rest/v1/%s", c.url, table)
	if query != "" {
		url += "?" + query
	}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _, readErr := httputil.ReadAllWithLimit(resp.Body, maxErrorBodyBytes)
		if readErr != nil {
			return nil, fmt.Errorf("read error response: %w", readErr)
		}
		return nil, &StoreError{Status: resp.StatusCode, Body: respBody}
	}

	respBody, err := httputil.ReadAllStrict(resp.Body, maxResponseBytes)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return respBody, nil
}
