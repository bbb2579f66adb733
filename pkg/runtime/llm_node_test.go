package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahartwell/graphrunner/pkg/models"
	"github.com/ahartwell/graphrunner/pkg/storage"
	"github.com/ahartwell/graphrunner/pkg/utils"
)

// fakeLLMClient records the chat call and returns a canned response
type fakeLLMClient struct {
	response     *utils.ChatResponse
	err          error
	lastModel    string
	lastMessages []utils.ChatMessage
}

func (f *fakeLLMClient) ListModels(ctx context.Context) ([]utils.ModelInfo, error) {
	return nil, f.err
}

func (f *fakeLLMClient) Chat(ctx context.Context, model string, messages []utils.ChatMessage) (*utils.ChatResponse, error) {
	f.lastModel = model
	f.lastMessages = messages
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func newTestLLMHandler(t *testing.T, client *fakeLLMClient) (*LLMNodeHandler, models.Provider) {
	t.Helper()

	providers := storage.NewMemoryProviderStore()
	provider, err := providers.SaveProvider(models.Provider{
		AccountID: "acct-1",
		Name:      "Local Ollama",
		Type:      models.ProviderTypeOllama,
		BaseURL:   "http://localhost:11434",
	})
	require.NoError(t, err)

	handler := NewLLMNodeHandler(providers, func(p models.Provider) utils.LLMClient {
		return client
	})
	return handler, provider
}

func llmData(providerID int64) map[string]interface{} {
	return map[string]interface{}{
		"label":           "LLM",
		"llm_provider_id": providerID,
		"model":           "llama3",
		"system_prompt":   "You are terse.",
	}
}

func TestLLMNode_Chat(t *testing.T) {
	client := &fakeLLMClient{response: &utils.ChatResponse{
		Message: utils.ChatMessage{Role: "assistant", Content: "hello there"},
		Done:    true,
	}}
	handler, provider := newTestLLMHandler(t, client)

	result, err := handler.Execute(context.Background(), NodeContext{
		AccountID:    "acct-1",
		NodeData:     llmData(provider.ID),
		ParentValues: []string{"first parent", "second parent"},
	})
	require.NoError(t, err)

	assert.Equal(t, "hello there", result)
	assert.Equal(t, "llama3", client.lastModel)
	require.Len(t, client.lastMessages, 2)
	assert.Equal(t, utils.ChatMessage{Role: "system", Content: "You are terse."}, client.lastMessages[0])
	assert.Equal(t, utils.ChatMessage{Role: "user", Content: "first parent\nsecond parent"}, client.lastMessages[1])
}

func TestLLMNode_ConfigValidation(t *testing.T) {
	handler, provider := newTestLLMHandler(t, &fakeLLMClient{})

	t.Run("missing provider id", func(t *testing.T) {
		data := llmData(provider.ID)
		delete(data, "llm_provider_id")

		_, err := handler.Execute(context.Background(), NodeContext{AccountID: "acct-1", NodeData: data})

		var configErr *NodeConfigError
		require.ErrorAs(t, err, &configErr)
		assert.Contains(t, err.Error(), "llm_provider_id")
	})

	t.Run("non-positive provider id", func(t *testing.T) {
		_, err := handler.Execute(context.Background(), NodeContext{AccountID: "acct-1", NodeData: llmData(0)})

		var configErr *NodeConfigError
		require.ErrorAs(t, err, &configErr)
	})

	t.Run("empty model", func(t *testing.T) {
		data := llmData(provider.ID)
		data["model"] = ""

		_, err := handler.Execute(context.Background(), NodeContext{AccountID: "acct-1", NodeData: data})

		var configErr *NodeConfigError
		require.ErrorAs(t, err, &configErr)
		assert.Contains(t, err.Error(), "model")
	})

	t.Run("non-string system prompt", func(t *testing.T) {
		data := llmData(provider.ID)
		data["system_prompt"] = 42

		_, err := handler.Execute(context.Background(), NodeContext{AccountID: "acct-1", NodeData: data})

		var configErr *NodeConfigError
		require.ErrorAs(t, err, &configErr)
		assert.Contains(t, err.Error(), "system_prompt")
	})
}

func TestLLMNode_ProviderLookup(t *testing.T) {
	handler, provider := newTestLLMHandler(t, &fakeLLMClient{})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := handler.Execute(context.Background(), NodeContext{
			AccountID: "acct-1",
			NodeData:  llmData(provider.ID + 100),
		})

		var configErr *NodeConfigError
		require.ErrorAs(t, err, &configErr)
		assert.Contains(t, err.Error(), "referenced LLM provider does not exist")
	})

	t.Run("provider owned by another account", func(t *testing.T) {
		_, err := handler.Execute(context.Background(), NodeContext{
			AccountID: "acct-2",
			NodeData:  llmData(provider.ID),
		})

		var configErr *NodeConfigError
		require.ErrorAs(t, err, &configErr)
	})
}

func TestLLMNode_ProviderErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{
			name:    "timeout",
			err:     context.DeadlineExceeded,
			message: "LLM provider request timed out while running execution",
		},
		{
			name:    "status error with body",
			err:     &utils.StatusError{StatusCode: 500, Body: "model not loaded"},
			message: "LLM provider returned 500: model not loaded",
		},
		{
			name:    "status error without body",
			err:     &utils.StatusError{StatusCode: 404},
			message: "LLM provider returned 404",
		},
		{
			name:    "other transport failure",
			err:     errors.New("connection refused"),
			message: "LLM provider request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, provider := newTestLLMHandler(t, &fakeLLMClient{err: tt.err})

			_, err := handler.Execute(context.Background(), NodeContext{
				AccountID:    "acct-1",
				NodeData:     llmData(provider.ID),
				ParentValues: []string{"prompt"},
			})

			var providerErr *ProviderConnectionError
			require.ErrorAs(t, err, &providerErr)
			assert.Equal(t, tt.message, err.Error())
		})
	}
}

func TestProviderIDFromData(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  int64
		ok    bool
	}{
		{name: "int", value: 7, want: 7, ok: true},
		{name: "whole float", value: float64(3), want: 3, ok: true},
		{name: "zero", value: 0, ok: false},
		{name: "negative", value: -1, ok: false},
		{name: "fractional", value: 1.5, ok: false},
		{name: "string", value: "1", ok: false},
		{name: "absent", value: nil, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := map[string]interface{}{}
			if tt.value != nil {
				data["llm_provider_id"] = tt.value
			}

			got, ok := ProviderIDFromData(data)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
