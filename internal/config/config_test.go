package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadWithMissingPathReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	require.Equal(t, Default().ListenAddr, cfg.ListenAddr)
	require.Equal(t, Default().Ollama.Model, cfg.Ollama.Model)
}

func TestLoadWithEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default().Rate, cfg.Rate)
}

func TestLoadLayersFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr = ":9090"

[rate]
search_per_minute = 5
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.ListenAddr)
	require.Equal(t, 5, cfg.Rate.SearchPerMinute)
	require.Equal(t, Default().Rate.GlobalPerMinute, cfg.Rate.GlobalPerMinute)
	require.Equal(t, Default().Ollama.Model, cfg.Ollama.Model)
}

func TestLoadResolvesDataDirToAbsolutePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`data_dir = "relative/data"`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(cfg.DataDir))
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("DOCSEARCH_LISTEN_ADDR", ":1234")
	t.Setenv("DOCSEARCH_JWT_SECRET", "from-env")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":1234", cfg.ListenAddr)
	require.Equal(t, "from-env", cfg.JWTSecret)
}

func TestLoadReturnsErrorOnMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`this is not valid toml === `), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}
