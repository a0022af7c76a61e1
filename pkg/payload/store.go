// Package payload defines the content byte store contract: raw emoji asset
// bytes addressed by the document's content key. The loader's decode path
// fetches from here on a cache miss; the resolution service serves content
// from here over HTTP.
package payload

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a content key has no stored bytes.
var ErrNotFound = errors.New("content not found")

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("content store closed")

// ContentStore stores raw asset content addressed by content key.
type ContentStore interface {
	// ReadContent returns the bytes stored under key.
	// Returns ErrNotFound if the key does not exist.
	ReadContent(ctx context.Context, key string) ([]byte, error)

	// WriteContent stores bytes under key, replacing any existing entry.
	WriteContent(ctx context.Context, key string, data []byte) error

	// DeleteContent removes the entry. Deleting a missing key is not an
	// error.
	DeleteContent(ctx context.Context, key string) error

	// Close releases store resources.
	Close() error
}
