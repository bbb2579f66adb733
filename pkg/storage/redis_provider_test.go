package storage

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahartwell/graphrunner/pkg/models"
)

func newTestRedisProvider(t *testing.T) *RedisProvider {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisProviderWithClient(client)
}

func TestRedisProvider_StoreContract(t *testing.T) {
	provider := newTestRedisProvider(t)
	require.NoError(t, provider.Initialize())

	runStorageSuite(t, provider)
}

func TestRedisProviderStore_SequentialIDs(t *testing.T) {
	provider := newTestRedisProvider(t)
	require.NoError(t, provider.Initialize())
	store := provider.GetProviderStore()

	first, err := store.SaveProvider(models.Provider{
		AccountID: "acct-1",
		Name:      "Local",
		Type:      models.ProviderTypeOllama,
		BaseURL:   "http://localhost:11434",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)

	second, err := store.SaveProvider(models.Provider{
		AccountID: "acct-1",
		Name:      "Remote",
		Type:      models.ProviderTypeOllama,
		BaseURL:   "http://remote:11434",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)
}
