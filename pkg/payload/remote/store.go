// Package remote implements a read-only ContentStore over the glyphd
// content endpoint. It is the client-side counterpart of the service's
// payload store: loaders fetch raw asset bytes through it on cache
// misses.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/marmos91/glyphcache/pkg/payload"
)

// Store fetches asset bytes from a glyphd instance by content key.
type Store struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a remote content store for the given base URL.
func New(baseURL string) *Store {
	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ReadContent fetches the bytes stored under key.
// Returns payload.ErrNotFound when the service has no such content.
func (s *Store) ReadContent(ctx context.Context, key string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/v1/content/"+key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, payload.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("content fetch failed with status %d: %s",
			resp.StatusCode, bytes.TrimSpace(body))
	}
	return io.ReadAll(resp.Body)
}

// WriteContent is not supported: the service owns payload ingestion.
func (s *Store) WriteContent(ctx context.Context, key string, data []byte) error {
	return fmt.Errorf("remote content store is read-only")
}

// DeleteContent is not supported: the service owns payload lifecycle.
func (s *Store) DeleteContent(ctx context.Context, key string) error {
	return fmt.Errorf("remote content store is read-only")
}

// Close releases no resources; it exists to satisfy ContentStore.
func (s *Store) Close() error {
	return nil
}
