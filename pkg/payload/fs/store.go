// Package fs provides a filesystem-backed content store implementation.
// Content keys map to paths below a base directory; writes go through a
// temporary file and rename for atomicity.
package fs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/marmos91/glyphcache/pkg/payload"
)

// Config holds configuration for the filesystem content store.
type Config struct {
	// BasePath is the root directory for content storage.
	BasePath string `mapstructure:"base_path"`

	// DirMode is the permission mode for created directories.
	// Default: 0755
	DirMode os.FileMode `mapstructure:"dir_mode"`

	// FileMode is the permission mode for created files.
	// Default: 0644
	FileMode os.FileMode `mapstructure:"file_mode"`
}

// Store is a filesystem-backed implementation of payload.ContentStore.
type Store struct {
	mu       sync.RWMutex
	basePath string
	dirMode  os.FileMode
	fileMode os.FileMode
	closed   bool
}

// New creates a new filesystem content store, creating the base directory
// if needed.
func New(cfg Config) (*Store, error) {
	if cfg.BasePath == "" {
		return nil, errors.New("base path is required")
	}
	if cfg.DirMode == 0 {
		cfg.DirMode = 0755
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = 0644
	}

	if err := os.MkdirAll(cfg.BasePath, cfg.DirMode); err != nil {
		return nil, err
	}

	info, err := os.Stat(cfg.BasePath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("base path is not a directory")
	}

	return &Store{
		basePath: cfg.BasePath,
		dirMode:  cfg.DirMode,
		fileMode: cfg.FileMode,
	}, nil
}

// contentPath returns the full filesystem path for a content key.
// Content keys use forward slashes as separators.
func (s *Store) contentPath(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}

// ReadContent returns the bytes stored under key.
func (s *Store) ReadContent(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, payload.ErrStoreClosed
	}

	data, err := os.ReadFile(s.contentPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, payload.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// WriteContent stores bytes under key atomically.
func (s *Store) WriteContent(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return payload.ErrStoreClosed
	}

	path := s.contentPath(key)
	if err := os.MkdirAll(filepath.Dir(path), s.dirMode); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, s.fileMode); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// DeleteContent removes the entry if present.
func (s *Store) DeleteContent(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return payload.ErrStoreClosed
	}

	err := os.Remove(s.contentPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
