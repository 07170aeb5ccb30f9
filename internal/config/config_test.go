package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "https://fakestoreapi.com", cfg.FakeStoreAPI)
	assert.Equal(t, DriverFile, cfg.StoreDriver)
	assert.Equal(t, "data.json", cfg.StorePath())
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, time.Duration(0), cfg.CatalogTTL)
	assert.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
	assert.Empty(t, cfg.JWTSecret)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("FAKE_STORE_API", "http://localhost:9999")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/pc.db")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CATALOG_TTL", "5m")
	t.Setenv("UPSTREAM_TIMEOUT", "2s")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, "http://localhost:9999", cfg.FakeStoreAPI)
	assert.Equal(t, "/tmp/pc.db", cfg.StorePath())
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 5*time.Minute, cfg.CatalogTTL)
	assert.Equal(t, 2*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 4000\ndata_file: /var/lib/pc/data.json\n"), 0o644))

	cfg, err := Load([]string{"--config", path})
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, "/var/lib/pc/data.json", cfg.DataFile)
}

func TestLoad_EnvBeatsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 4000\n"), 0o644))
	t.Setenv("PORT", "5000")

	cfg, err := Load([]string{"--config", path})
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad driver", env: map[string]string{"STORE_DRIVER": "redis"}},
		{name: "bad port", env: map[string]string{"PORT": "70000"}},
		{name: "bad level", env: map[string]string{"LOG_LEVEL": "chatty"}},
		{name: "negative ttl", env: map[string]string{"CATALOG_TTL": "-1s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(nil)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

func TestLogValue_HidesSecret(t *testing.T) {
	cfg := Config{Port: 3000, JWTSecret: "s3cret", StoreDriver: DriverFile}
	assert.NotContains(t, cfg.LogValue().String(), "s3cret")
}
