package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/marmos91/glyphcache/pkg/document"
)

// APIError represents an error response from the resolution service.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// resolveRequest is the wire shape of one batch lookup.
type resolveRequest struct {
	IDs []uint64 `json:"ids"`
}

type resolveResponse struct {
	Documents []document.Document `json:"documents"`
}

// Client is an HTTP Resolver talking to a glyphd resolution endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a resolver client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Resolve implements Resolver over POST /v1/documents/resolve.
func (c *Client) Resolve(ctx context.Context, ids []uint64) ([]document.Document, error) {
	if len(ids) > MaxPerRequest {
		return nil, fmt.Errorf("batch of %d ids exceeds the limit of %d", len(ids), MaxPerRequest)
	}

	data, err := json.Marshal(resolveRequest{IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/documents/resolve", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr APIError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			apiErr.StatusCode = resp.StatusCode
			return nil, &apiErr
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}

	var decoded resolveResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return decoded.Documents, nil
}
