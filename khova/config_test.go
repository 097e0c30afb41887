package khova

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	pathname := filepath.Join(dir, "khova.yaml")
	err := os.WriteFile(pathname, []byte("workers: 3\ncatalog_path: /tmp/khova-db\nuse_catalog: true\nverbosity: 2\n"), 0600)
	require.NoError(t, err)

	config, err := LoadConfig(pathname)
	require.NoError(t, err)
	assert.Equal(t, 3, config.Workers)
	assert.Equal(t, "/tmp/khova-db", config.CatalogPath)
	assert.True(t, config.UseCatalog)
	assert.Equal(t, 2, config.Verbosity)
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Workers, config.Workers)
	assert.False(t, config.UseCatalog)
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("KHOVA_WORKERS", "7")
	t.Setenv("KHOVA_CATALOG", "/var/khova")

	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 7, config.Workers)
	assert.Equal(t, "/var/khova", config.CatalogPath)
	assert.True(t, config.UseCatalog)
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("workers: [1, 2"), 0600))
	_, err := LoadConfig(bad)
	assert.True(t, errors.Is(err, ErrBadConfig))

	neg := filepath.Join(dir, "neg.yaml")
	require.NoError(t, os.WriteFile(neg, []byte("workers: -1\n"), 0600))
	_, err = LoadConfig(neg)
	assert.True(t, errors.Is(err, ErrBadConfig))
}
