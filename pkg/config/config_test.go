package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Server.TLS.Enabled)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, 24, cfg.Auth.TokenExpiration)
	assert.Equal(t, "http://localhost:11434", cfg.Providers.DefaultOllamaURL)
	assert.Equal(t, 30*time.Second, cfg.Providers.RequestTimeout())
}

func TestRequestTimeout_DefaultsWhenUnset(t *testing.T) {
	providers := ProvidersConfig{}
	assert.Equal(t, 30*time.Second, providers.RequestTimeout())

	providers.RequestTimeoutSeconds = 5
	assert.Equal(t, 5*time.Second, providers.RequestTimeout())
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := DefaultConfig()
	cfg.Server.Port = 9090
	cfg.Storage.Type = "redis"
	cfg.Storage.Redis.Address = "redis.internal:6379"
	cfg.Auth.JWTSecret = "secret"

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, loaded.Server.Port)
	assert.Equal(t, "redis", loaded.Storage.Type)
	assert.Equal(t, "redis.internal:6379", loaded.Storage.Redis.Address)
	assert.Equal(t, "secret", loaded.Auth.JWTSecret)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}
