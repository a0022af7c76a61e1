package document

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store implementation, used in tests and for
// single-process deployments that rebuild state on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[uint64]Document
	closed bool
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[uint64]Document),
	}
}

// Put inserts or replaces a document record.
func (s *MemoryStore) Put(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	s.docs[doc.ID] = doc
	return nil
}

// Get returns the record for a single document id.
func (s *MemoryStore) Get(ctx context.Context, id uint64) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Document{}, ErrStoreClosed
	}
	doc, ok := s.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// GetBatch returns records for the given ids, skipping missing ones.
func (s *MemoryStore) GetBatch(ctx context.Context, ids []uint64) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := s.docs[id]; ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// Delete removes a record if present.
func (s *MemoryStore) Delete(ctx context.Context, id uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	delete(s.docs, id)
	return nil
}

// Close marks the store closed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
