// Package api implements the glyphd resolution service HTTP API: batched
// document record lookup, record management and raw content delivery.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/glyphcache/internal/logger"
	"github.com/marmos91/glyphcache/pkg/document"
	"github.com/marmos91/glyphcache/pkg/payload"
)

// Server is the resolution service HTTP server.
//
// The server is created in a stopped state. Call Start to begin serving
// requests; it supports graceful shutdown on context cancellation.
type Server struct {
	server       *http.Server
	config       Config
	shutdownOnce sync.Once
}

// NewServer creates a new API HTTP server over the given stores.
func NewServer(config Config, docs document.Store, content payload.ContentStore) *Server {
	config.applyDefaults()

	router := NewRouter(docs, content)
	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      router,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		config: config,
	}
}

// Start starts the server and blocks until the context is cancelled or an
// error occurs. Cancellation triggers graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "port", s.config.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		// A fresh context: the cancelled one would abort the drain.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop initiates graceful shutdown. Safe to call multiple times.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", "error", err)
		} else {
			logger.Info("API server stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server listens on.
func (s *Server) Port() int {
	return s.config.Port
}
