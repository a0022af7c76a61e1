// Package config loads, validates and persists the glyphcache
// configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (GLYPHCACHE_*)
//  2. Configuration file (YAML)
//  3. Default values
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/glyphcache/internal/bytesize"
	"github.com/marmos91/glyphcache/pkg/api"
)

// Config represents the glyphcache configuration.
//
// It covers both roles of the binary: the glyphd resolution service
// (document store, payload store, HTTP API) and the client-side emoji
// pipeline (frame cache, render sizing, batching).
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Metrics controls Prometheus metrics collection
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// API contains the resolution service HTTP server configuration
	API api.Config `mapstructure:"api" yaml:"api"`

	// Documents configures the document record store
	Documents DocumentsConfig `mapstructure:"documents" yaml:"documents"`

	// Payload configures the raw asset payload store
	Payload PayloadConfig `mapstructure:"payload" yaml:"payload"`

	// Cache configures the rendered frame cache
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`

	// Resolver configures the client-side resolution endpoint
	Resolver ResolverConfig `mapstructure:"resolver" yaml:"resolver"`

	// Render configures emoji render sizing
	Render RenderConfig `mapstructure:"render" yaml:"render"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig configures Prometheus metrics collection.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether metrics collection is enabled.
	// The scrape endpoint is served by the API server at /metrics.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// DocumentsConfig configures the document record store.
type DocumentsConfig struct {
	// Type selects the store backend.
	// Valid values: badger, memory
	Type string `mapstructure:"type" validate:"required,oneof=badger memory" yaml:"type"`

	// Path is the badger database directory. Required for the badger
	// backend.
	Path string `mapstructure:"path" validate:"required_if=Type badger" yaml:"path,omitempty"`
}

// PayloadConfig configures the raw asset payload store.
type PayloadConfig struct {
	// Type selects the store backend.
	// Valid values: fs, s3, memory
	Type string `mapstructure:"type" validate:"required,oneof=fs s3 memory" yaml:"type"`

	// Path is the filesystem directory for the fs backend.
	Path string `mapstructure:"path" validate:"required_if=Type fs" yaml:"path,omitempty"`

	// S3 configures the s3 backend.
	S3 S3Config `mapstructure:"s3" yaml:"s3,omitempty"`
}

// S3Config configures S3-compatible payload storage.
type S3Config struct {
	// Bucket is the bucket name.
	Bucket string `mapstructure:"bucket" yaml:"bucket"`

	// Region is the AWS region.
	Region string `mapstructure:"region" yaml:"region"`

	// Endpoint overrides the S3 endpoint, for MinIO and other
	// S3-compatible services.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`

	// KeyPrefix is prepended to every object key.
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix,omitempty"`
}

// CacheConfig configures the rendered frame cache.
type CacheConfig struct {
	// Path is the badger database directory for the frame cache.
	// Empty disables the cache: every load decodes from source.
	Path string `mapstructure:"path" yaml:"path,omitempty"`

	// MaxSize caps the approximate total size of the frame cache. The
	// oldest entries are evicted once the cap is reached.
	// Supports human-readable formats: "256MiB", "512Ki", or plain bytes.
	// Default: 256MiB
	MaxSize bytesize.ByteSize `mapstructure:"max_size" yaml:"max_size,omitempty"`
}

// ResolverConfig configures the client-side resolution endpoint.
type ResolverConfig struct {
	// BaseURL is the glyphd resolution service base URL.
	// Default: http://localhost:8080
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// BatchDelay is how long queued identifiers wait before the first
	// batch request fires.
	// Default: 10ms
	BatchDelay time.Duration `mapstructure:"batch_delay" yaml:"batch_delay"`
}

// RenderConfig configures emoji render sizing.
type RenderConfig struct {
	// NormalPx is the logical size of a normal emoji in pixels.
	// Default: 36
	NormalPx int `mapstructure:"normal_px" validate:"omitempty,min=1" yaml:"normal_px"`

	// LargePx is the logical size of a large emoji in pixels.
	// Default: 72
	LargePx int `mapstructure:"large_px" validate:"omitempty,min=1" yaml:"large_px"`

	// PixelRatio is the device pixel density multiplier.
	// Default: 1.0
	PixelRatio float64 `mapstructure:"pixel_ratio" validate:"omitempty,gt=0" yaml:"pixel_ratio"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !configFileFound {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages when the config
// file is missing.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  glyphd init\n\n"+
				"Or specify a custom config file:\n"+
				"  glyphd <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  glyphd init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML
// format.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper configures environment variable and config file handling.
func setupViper(v *viper.Viper, configPath string) {
	// Example: GLYPHCACHE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("GLYPHCACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. A missing file
// is not an error; defaults apply.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and integers to bytesize.ByteSize,
// so config files can use human-readable sizes like "4MiB" or "512Ki".
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.Parse(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings to time.Duration, so config files
// can use durations like "30s" or "10ms".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "glyphcache")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "glyphcache")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default
// location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
