package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahartwell/graphrunner/pkg/models"
)

func TestMemoryProvider_StoreContract(t *testing.T) {
	provider := NewMemoryProvider()
	require.NoError(t, provider.Initialize())
	defer provider.Close()

	runStorageSuite(t, provider)
}

func TestMemoryProviderStore_SequentialIDs(t *testing.T) {
	store := NewMemoryProviderStore()

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
