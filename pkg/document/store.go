package document

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a document id has no record in the store.
var ErrNotFound = errors.New("document not found")

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("document store closed")

// Store persists resolved document records. It backs the resolution
// service's batched lookup endpoint.
type Store interface {
	// Put inserts or replaces a document record.
	Put(ctx context.Context, doc Document) error

	// Get returns the record for a single document id.
	// Returns ErrNotFound if no record exists.
	Get(ctx context.Context, id uint64) (Document, error)

	// GetBatch returns records for the given ids. Missing ids are
	// skipped, not errors: the result may hold fewer records than ids.
	GetBatch(ctx context.Context, ids []uint64) ([]Document, error)

	// Delete removes a record. Deleting a missing id is not an error.
	Delete(ctx context.Context, id uint64) error

	// Close releases store resources.
	Close() error
}
