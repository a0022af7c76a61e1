// Package badger provides a BadgerDB-backed document store implementation.
package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/glyphcache/internal/logger"
	"github.com/marmos91/glyphcache/pkg/document"
)

// Config holds configuration for the BadgerDB document store.
type Config struct {
	// Path is the directory holding the BadgerDB database.
	Path string `mapstructure:"path"`

	// InMemory runs the database without disk persistence. Used in tests.
	InMemory bool `mapstructure:"in_memory"`
}

// Store is a BadgerDB-backed implementation of document.Store.
type Store struct {
	db *badger.DB
}

// keyDocument returns the database key for a document id.
func keyDocument(id uint64) []byte {
	key := make([]byte, 4+8)
	copy(key, "doc:")
	binary.BigEndian.PutUint64(key[4:], id)
	return key
}

// New opens (or creates) a BadgerDB document store at cfg.Path.
func New(cfg Config) (*Store, error) {
	if cfg.Path == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger document store: path is required")
	}

	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Info("Opened badger document store",
		"path", cfg.Path,
		"inMemory", cfg.InMemory)

	return &Store{db: db}, nil
}

// Put inserts or replaces a document record.
func (s *Store) Put(ctx context.Context, doc document.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document %d: %w", doc.ID, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyDocument(doc.ID), data)
	})
}

// Get returns the record for a single document id.
func (s *Store) Get(ctx context.Context, id uint64) (document.Document, error) {
	if err := ctx.Err(); err != nil {
		return document.Document{}, err
	}

	var doc document.Document
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyDocument(id))
		if err == badger.ErrKeyNotFound {
			return document.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	if err != nil {
		return document.Document{}, err
	}
	return doc, nil
}

// GetBatch returns records for the given ids under a single read
// transaction. Missing ids are skipped.
func (s *Store) GetBatch(ctx context.Context, ids []uint64) ([]document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docs := make([]document.Document, 0, len(ids))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			item, err := txn.Get(keyDocument(id))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			var doc document.Document
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			}); err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Delete removes a record. Deleting a missing id is not an error.
func (s *Store) Delete(ctx context.Context, id uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(keyDocument(id))
	})
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
