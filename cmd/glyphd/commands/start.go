package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/glyphcache/internal/logger"
	"github.com/marmos91/glyphcache/pkg/api"
	"github.com/marmos91/glyphcache/pkg/config"
	"github.com/marmos91/glyphcache/pkg/document"
	documentbadger "github.com/marmos91/glyphcache/pkg/document/badger"
	"github.com/marmos91/glyphcache/pkg/metrics"
	"github.com/marmos91/glyphcache/pkg/payload"
	payloadfs "github.com/marmos91/glyphcache/pkg/payload/fs"
	payloads3 "github.com/marmos91/glyphcache/pkg/payload/s3"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the glyphd resolution service",
	Long: `Start the glyphd resolution service with the specified configuration.

The service exposes the batched document resolve endpoint, record
management and raw asset content delivery over HTTP.

Examples:
  # Start with default config location
  glyphd start

  # Start with custom config file
  glyphd start --config /etc/glyphcache/config.yaml

  # Start with environment variable overrides
  GLYPHCACHE_LOGGING_LEVEL=DEBUG glyphd start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Metrics enabled", "endpoint", "/metrics")
	} else {
		logger.Info("Metrics collection disabled")
	}

	docs, err := newDocumentStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to create document store: %w", err)
	}
	defer func() {
		if err := docs.Close(); err != nil {
			logger.Error("Document store close error", "error", err)
		}
	}()
	logger.Info("Document store ready", "type", cfg.Documents.Type)

	content, err := newPayloadStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create payload store: %w", err)
	}
	defer func() {
		if err := content.Close(); err != nil {
			logger.Error("Payload store close error", "error", err)
		}
	}()
	logger.Info("Payload store ready", "type", cfg.Payload.Type)

	apiServer := api.NewServer(cfg.API, docs, content)
	logger.Info("API server enabled", "port", apiServer.Port())

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- apiServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
		logger.Info("Server stopped")
	}
	return nil
}

// newDocumentStore builds the document record store from configuration.
func newDocumentStore(cfg *config.Config) (document.Store, error) {
	switch cfg.Documents.Type {
	case "memory":
		return document.NewMemoryStore(), nil
	case "badger":
		return documentbadger.New(documentbadger.Config{Path: cfg.Documents.Path})
	default:
		return nil, fmt.Errorf("unknown document store type: %s", cfg.Documents.Type)
	}
}

// newPayloadStore builds the raw asset payload store from configuration.
func newPayloadStore(ctx context.Context, cfg *config.Config) (payload.ContentStore, error) {
	switch cfg.Payload.Type {
	case "memory":
		return payload.NewMemoryStore(), nil
	case "fs":
		return payloadfs.New(payloadfs.Config{BasePath: cfg.Payload.Path})
	case "s3":
		return payloads3.NewFromConfig(ctx, payloads3.Config{
			Bucket:    cfg.Payload.S3.Bucket,
			Region:    cfg.Payload.S3.Region,
			Endpoint:  cfg.Payload.S3.Endpoint,
			KeyPrefix: cfg.Payload.S3.KeyPrefix,
		})
	default:
		return nil, fmt.Errorf("unknown payload store type: %s", cfg.Payload.Type)
	}
}
