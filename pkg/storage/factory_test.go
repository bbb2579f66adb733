package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		provider, err := NewProvider(BackendConfig{Type: MemoryBackendType})
		require.NoError(t, err)
		assert.IsType(t, &MemoryProvider{}, provider)
	})

	t.Run("redis", func(t *testing.T) {
		provider, err := NewProvider(BackendConfig{
			Type:  RedisBackendType,
			Redis: &RedisProviderConfig{Address: "localhost:6379"},
		})
		require.NoError(t, err)
		assert.IsType(t, &RedisProvider{}, provider)
	})

	t.Run("missing backend config", func(t *testing.T) {
		for _, backend := range []BackendType{DynamoDBBackendType, PostgreSQLBackendType, RedisBackendType} {
			_, err := NewProvider(BackendConfig{Type: backend})
			assert.Error(t, err, "backend %s", backend)
		}
	})

	t.Run("unknown backend type", func(t *testing.T) {
		_, err := NewProvider(BackendConfig{Type: "sqlite"})
		assert.EqualError(t, err, "unknown backend type: sqlite")
	})
}
