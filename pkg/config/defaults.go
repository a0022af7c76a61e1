package config

import (
	"strings"
	"time"

	"github.com/marmos91/glyphcache/internal/bytesize"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	applyDocumentsDefaults(&cfg.Documents)
	applyPayloadDefaults(&cfg.Payload)
	applyCacheDefaults(&cfg.Cache)
	applyResolverDefaults(&cfg.Resolver)
	applyRenderDefaults(&cfg.Render)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyDocumentsDefaults(cfg *DocumentsConfig) {
	if cfg.Type == "" {
		cfg.Type = "badger"
	}
}

func applyPayloadDefaults(cfg *PayloadConfig) {
	if cfg.Type == "" {
		cfg.Type = "fs"
	}
}

func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 256 * bytesize.MiB
	}
}

func applyResolverDefaults(cfg *ResolverConfig) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.BatchDelay == 0 {
		cfg.BatchDelay = 10 * time.Millisecond
	}
}

func applyRenderDefaults(cfg *RenderConfig) {
	if cfg.NormalPx == 0 {
		cfg.NormalPx = 36
	}
	if cfg.LargePx == 0 {
		cfg.LargePx = 72
	}
	if cfg.PixelRatio == 0 {
		cfg.PixelRatio = 1.0
	}
}

// GetDefaultConfig returns a Config with all default values applied.
//
// Useful for generating sample configuration files and for tests.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Documents: DocumentsConfig{
			Type: "badger",
			Path: "/var/lib/glyphcache/documents",
		},
		Payload: PayloadConfig{
			Type: "fs",
			Path: "/var/lib/glyphcache/payload",
		},
		Cache: CacheConfig{
			Path: "/var/lib/glyphcache/frames",
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
