package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dedupfs/dedupfs/internal/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, "path: /var/lib/dedupfs\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/dedupfs", cfg.Path)
	assert.Equal(t, "badger", cfg.Backend)
	assert.Equal(t, "zstd", cfg.Compression)
	assert.Equal(t, 0, cfg.MinimumFreeGB)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfigFile(t, `path: /data
backend: file
compression: xz
minimumFreeGB: 5
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Config{
		Path:          "/data",
		Backend:       "file",
		Compression:   "xz",
		MinimumFreeGB: 5,
	}, cfg)
}

func TestLoadRequiresPath(t *testing.T) {
	path := writeConfigFile(t, "backend: badger\n")

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := writeConfigFile(t, "path: /data\nbackend: redis\n")

	_, err := config.Load(path)
	assert.ErrorContains(t, err, "unknown backend")
}

func TestLoadRejectsUnknownCompression(t *testing.T) {
	path := writeConfigFile(t, "path: /data\ncompression: brotli\n")

	_, err := config.Load(path)
	assert.ErrorContains(t, err, "unknown compression")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
