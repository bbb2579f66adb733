package runtime

import (
	"context"
	"fmt"

	"github.com/ahartwell/graphrunner/pkg/models"
	"github.com/ahartwell/graphrunner/pkg/storage"
)

// HandlerRegistry maps node types to their handlers
type HandlerRegistry struct {
	handlers map[models.NodeType]NodeHandler
}

// NewHandlerRegistry builds the registry with the built-in handlers wired
// to the given provider store and clients
func NewHandlerRegistry(providers storage.ProviderStore, newLLMClient LLMClientFactory, search SearchClient) *HandlerRegistry {
	return &HandlerRegistry{
		handlers: map[models.NodeType]NodeHandler{
			models.NodeTypeInput:     NewInputNodeHandler(),
			models.NodeTypeLLM:       NewLLMNodeHandler(providers, newLLMClient),
			models.NodeTypeWebSearch: NewWebSearchNodeHandler(search),
			models.NodeTypeOutput:    NewOutputNodeHandler(),
		},
	}
}

// Handler returns the handler for a node type
func (r *HandlerRegistry) Handler(nodeType models.NodeType) (NodeHandler, error) {
	handler, ok := r.handlers[nodeType]
	if !ok {
		return nil, NewGraphValidationError(fmt.Sprintf("unsupported node type: %s", nodeType))
	}
	return handler, nil
}

// Execute dispatches one node to its handler
func (r *HandlerRegistry) Execute(ctx context.Context, nodeType models.NodeType, nodeCtx NodeContext) (string, error) {
	handler, err := r.Handler(nodeType)
	if err != nil {
		return "", err
	}
	return handler.Execute(ctx, nodeCtx)
}
