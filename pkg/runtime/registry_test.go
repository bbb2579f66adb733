package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahartwell/graphrunner/pkg/models"
	"github.com/ahartwell/graphrunner/pkg/storage"
	"github.com/ahartwell/graphrunner/pkg/utils"
)

func newTestHandlerRegistry(llm *fakeLLMClient, search *fakeSearchClient) *HandlerRegistry {
	providers := storage.NewMemoryProviderStore()
	return NewHandlerRegistry(providers, func(p models.Provider) utils.LLMClient {
		return llm
	}, search)
}

func TestHandlerRegistry_BuiltinHandlers(t *testing.T) {
	registry := newTestHandlerRegistry(&fakeLLMClient{}, &fakeSearchClient{})

	for _, nodeType := range models.NodeTypes() {
		handler, err := registry.Handler(nodeType)
		require.NoError(t, err, "handler for %s", nodeType)
		assert.NotNil(t, handler)
	}
}

func TestHandlerRegistry_UnsupportedType(t *testing.T) {
	registry := newTestHandlerRegistry(&fakeLLMClient{}, &fakeSearchClient{})

	_, err := registry.Handler(models.NodeType("cron"))

	var graphErr *GraphValidationError
	require.ErrorAs(t, err, &graphErr)
	assert.Contains(t, err.Error(), "unsupported node type: cron")
}

func TestHandlerRegistry_ExecuteDispatches(t *testing.T) {
	registry := newTestHandlerRegistry(&fakeLLMClient{}, &fakeSearchClient{})

	result, err := registry.Execute(context.Background(), models.NodeTypeInput, NodeContext{
		InputValue: "pass through",
	})
	require.NoError(t, err)
	assert.Equal(t, "pass through", result)

	result, err = registry.Execute(context.Background(), models.NodeTypeOutput, NodeContext{
		ParentValues: []string{"a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "a\nb", result)
}
