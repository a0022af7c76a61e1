package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/glyphcache/internal/bytesize"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	// A nonexistent path inside an empty dir: defaults apply.
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "badger", cfg.Documents.Type)
	assert.Equal(t, "fs", cfg.Payload.Type)
	assert.Equal(t, 256*bytesize.MiB, cfg.Cache.MaxSize)
	assert.Equal(t, 10*time.Millisecond, cfg.Resolver.BatchDelay)
	assert.Equal(t, 36, cfg.Render.NormalPx)
	assert.Equal(t, 72, cfg.Render.LargePx)
	assert.Equal(t, 1.0, cfg.Render.PixelRatio)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: json
documents:
  type: memory
payload:
  type: memory
cache:
  path: /tmp/glyph-frames
  max_size: 2MiB
resolver:
  base_url: http://resolve.internal:9000
  batch_delay: 25ms
render:
  normal_px: 40
  pixel_ratio: 2.0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// Level is normalized to uppercase.
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "memory", cfg.Documents.Type)
	assert.Equal(t, "memory", cfg.Payload.Type)
	assert.Equal(t, "/tmp/glyph-frames", cfg.Cache.Path)
	assert.Equal(t, 2*bytesize.MiB, cfg.Cache.MaxSize)
	assert.Equal(t, "http://resolve.internal:9000", cfg.Resolver.BaseURL)
	assert.Equal(t, 25*time.Millisecond, cfg.Resolver.BatchDelay)
	assert.Equal(t, 40, cfg.Render.NormalPx)
	assert.Equal(t, 2.0, cfg.Render.PixelRatio)
	// Unset fields still get defaults.
	assert.Equal(t, 72, cfg.Render.LargePx)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: info
documents:
  type: memory
payload:
  type: memory
`)

	t.Setenv("GLYPHCACHE_LOGGING_LEVEL", "ERROR")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ERROR", cfg.Logging.Level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "bad log level",
			yaml: "logging:\n  level: verbose\n",
		},
		{
			name: "bad payload type",
			yaml: "payload:\n  type: ftp\n",
		},
		{
			name: "badger documents without path",
			yaml: "documents:\n  type: badger\n",
		},
		{
			name: "s3 without bucket",
			yaml: "documents:\n  type: memory\npayload:\n  type: s3\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestSaveAndReloadConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "DEBUG"
	cfg.Documents.Type = "memory"
	cfg.Documents.Path = ""
	cfg.Payload.Type = "memory"
	cfg.Payload.Path = ""
	cfg.Cache.MaxSize = 8 * bytesize.MiB

	path := filepath.Join(t.TempDir(), "saved", "config.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", loaded.Logging.Level)
	assert.Equal(t, "memory", loaded.Documents.Type)
	assert.Equal(t, 8*bytesize.MiB, loaded.Cache.MaxSize)
}

func TestMustLoadMissingExplicitFile(t *testing.T) {
	_, err := MustLoad(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "glyphd init")
}
