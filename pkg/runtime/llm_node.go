package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ahartwell/graphrunner/pkg/models"
	"github.com/ahartwell/graphrunner/pkg/storage"
	"github.com/ahartwell/graphrunner/pkg/utils"
)

// bodyExcerptLimit bounds the response body excerpt included in
// provider connectivity errors
const bodyExcerptLimit = 300

// LLMClientFactory builds a provider client from a provider record
type LLMClientFactory func(provider models.Provider) utils.LLMClient

// LLMNodeHandler handles LLM nodes. It validates the node configuration,
// dereferences the owner-scoped provider and issues one chat request.
type LLMNodeHandler struct {
	providers storage.ProviderStore
	newClient LLMClientFactory
}

// NewLLMNodeHandler creates a new LLM node handler
func NewLLMNodeHandler(providers storage.ProviderStore, newClient LLMClientFactory) *LLMNodeHandler {
	return &LLMNodeHandler{
		providers: providers,
		newClient: newClient,
	}
}

// ProviderIDFromData extracts the llm_provider_id reference from a node
// data map. It returns false when the field is absent, non-integer or
// not positive.
func ProviderIDFromData(data map[string]interface{}) (int64, bool) {
	providerID, ok := intValue(data["llm_provider_id"])
	if !ok || providerID <= 0 {
		return 0, false
	}
	return providerID, true
}

// Execute runs one LLM node and returns the assistant message text
func (h *LLMNodeHandler) Execute(ctx context.Context, nodeCtx NodeContext) (string, error) {
	providerID, ok := ProviderIDFromData(nodeCtx.NodeData)
	if !ok {
		return "", NewNodeConfigError("LLM node requires a valid llm_provider_id")
	}

	model, ok := nodeCtx.NodeData["model"].(string)
	if !ok || model == "" {
		return "", NewNodeConfigError("LLM node requires a non-empty model")
	}

	systemPrompt := ""
	if value, present := nodeCtx.NodeData["system_prompt"]; present {
		systemPrompt, ok = value.(string)
		if !ok {
			return "", NewNodeConfigError("LLM node field system_prompt must be a string")
		}
	}

	// A provider that vanished or changed owner mid-run is a node
	// configuration problem, not a lookup failure
	provider, err := h.providers.GetProvider(nodeCtx.AccountID, providerID)
	if err != nil {
		if errors.Is(err, storage.ErrProviderNotFound) {
			return "", NewNodeConfigError("referenced LLM provider does not exist")
		}
		return "", err
	}

	response, err := h.newClient(provider).Chat(ctx, model, []utils.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: strings.Join(nodeCtx.ParentValues, "\n")},
	})
	if err != nil {
		return "", MapLLMProviderError(err)
	}

	return response.Message.Content, nil
}

// MapLLMProviderError maps transport failures onto the engine's
// provider connectivity taxonomy. The API layer reuses it when proxying
// provider model listings.
func MapLLMProviderError(err error) error {
	if utils.IsTimeout(err) {
		return NewProviderConnectionError("LLM provider request timed out while running execution")
	}

	var statusErr *utils.StatusError
	if errors.As(err, &statusErr) {
		message := fmt.Sprintf("LLM provider returned %d", statusErr.StatusCode)
		if excerpt := statusErr.BodyExcerpt(bodyExcerptLimit); excerpt != "" {
			message = fmt.Sprintf("%s: %s", message, excerpt)
		}
		return NewProviderConnectionError(message)
	}

	return NewProviderConnectionError("LLM provider request failed")
}
