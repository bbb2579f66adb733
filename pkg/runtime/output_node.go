package runtime

import (
	"context"
	"strings"
)

// OutputNodeHandler handles output nodes
type OutputNodeHandler struct{}

// NewOutputNodeHandler creates a new output node handler
func NewOutputNodeHandler() *OutputNodeHandler {
	return &OutputNodeHandler{}
}

// Execute joins the upstream values into the final output. Parent values
// arrive in edge declaration order; the orchestrator already guarantees
// at least one.
func (h *OutputNodeHandler) Execute(ctx context.Context, nodeCtx NodeContext) (string, error) {
	return strings.Join(nodeCtx.ParentValues, "\n"), nil
}
