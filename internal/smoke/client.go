// Package smoke provides an HTTP client for the population API and the
// end-to-end smoke test that drives it.
package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	httpapi "github.com/dsjohal14/citypop/internal/http"
)

// StatusError is returned when the API answers with a non-200 status
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Client talks to a running API server
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// Health calls GET /health
func (c *Client) Health(ctx context.Context) (httpapi.HealthResponse, error) {
	var resp httpapi.HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, &resp)
	return resp, err
}

// Upsert calls PUT /api/population
func (c *Client) Upsert(ctx context.Context, city string, population int64) (httpapi.UpsertResponse, error) {
	var resp httpapi.UpsertResponse
	req := httpapi.UpsertRequest{City: city, Population: population}
	err := c.do(ctx, http.MethodPut, "/api/population", req, &resp)
	return resp, err
}

// Lookup calls GET /api/population/{city}
func (c *Client) Lookup(ctx context.Context, city string) (httpapi.PopulationResponse, error) {
	var resp httpapi.PopulationResponse
	err := c.do(ctx, http.MethodGet, "/api/population/"+url.PathEscape(city), nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return &StatusError{Code: res.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
