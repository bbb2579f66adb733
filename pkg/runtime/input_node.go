package runtime

import "context"

// InputNodeHandler handles input nodes
type InputNodeHandler struct{}

// NewInputNodeHandler creates a new input node handler
func NewInputNodeHandler() *InputNodeHandler {
	return &InputNodeHandler{}
}

// Execute returns the run's input value verbatim
func (h *InputNodeHandler) Execute(ctx context.Context, nodeCtx NodeContext) (string, error) {
	return nodeCtx.InputValue, nil
}
