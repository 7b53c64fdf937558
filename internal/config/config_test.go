package config_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/ddx/internal/config"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	configDir := filepath.Join(dir, "ddx")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(content), 0o644))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Nil(t, cfg.Defaults.BlockSize)
	assert.Nil(t, cfg.Defaults.Status)
	assert.Nil(t, cfg.Resume.Dir)
}

func TestLoad_FullConfig(t *testing.T) {
	writeConfig(t, `
[defaults]
bs = "64K"
status = "progress"
hash = "blake3"
bwlimit = "100MB"
metrics_addr = "127.0.0.1:9100"

[resume]
dir = "/var/lib/ddx"
`)

	cfg, err := config.Load()
	require.NoError(t, err)

	require.NotNil(t, cfg.Defaults.BlockSize)
	assert.Equal(t, "64K", *cfg.Defaults.BlockSize)

	require.NotNil(t, cfg.Defaults.Status)
	assert.Equal(t, "progress", *cfg.Defaults.Status)

	require.NotNil(t, cfg.Defaults.Hash)
	assert.Equal(t, "blake3", *cfg.Defaults.Hash)

	require.NotNil(t, cfg.Defaults.BWLimit)
	assert.Equal(t, "100MB", *cfg.Defaults.BWLimit)

	require.NotNil(t, cfg.Defaults.MetricsAddr)
	assert.Equal(t, "127.0.0.1:9100", *cfg.Defaults.MetricsAddr)

	assert.Equal(t, "/var/lib/ddx", cfg.StateDir())
}

func TestLoad_PartialConfig(t *testing.T) {
	writeConfig(t, `
[defaults]
status = "none"
`)

	cfg, err := config.Load()
	require.NoError(t, err)

	require.NotNil(t, cfg.Defaults.Status)
	assert.Equal(t, "none", *cfg.Defaults.Status)

	// Unset fields should remain nil.
	assert.Nil(t, cfg.Defaults.BlockSize)
	assert.Nil(t, cfg.Defaults.Hash)
	assert.Nil(t, cfg.Resume.Dir)
}

func TestLoad_InvalidTOML(t *testing.T) {
	writeConfig(t, "invalid [[[")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/ddx/config.toml", config.Path())
}

func TestStateDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	assert.Equal(t, "/run/user/1000/ddx", config.Config{}.StateDir())

	t.Setenv("XDG_RUNTIME_DIR", "")
	want := filepath.Join(os.TempDir(), "ddx-"+strconv.Itoa(os.Getuid()))
	assert.Equal(t, want, config.Config{}.StateDir())
}
