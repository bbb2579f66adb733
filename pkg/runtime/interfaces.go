// Package runtime implements the workflow graph execution engine: graph
// validation, topological ordering, the node handler registry and the
// orchestrator that reduces one run to a terminal execution record.
package runtime

import (
	"context"
)

// NodeContext is the ephemeral per-node, per-run execution context passed
// to a node handler
type NodeContext struct {
	// AccountID is the workflow owner, needed by handlers that
	// dereference owner-scoped resources such as an LLM provider
	AccountID string

	// NodeData is the node's own configuration map
	NodeData map[string]interface{}

	// ParentValues holds the outputs of the node's upstream neighbors,
	// in edge declaration order
	ParentValues []string

	// InputValue is the run's original input value
	InputValue string
}

// NodeHandler turns an execution context into an output string for one
// node type. Handlers are stateless apart from held collaborator
// references.
type NodeHandler interface {
	// Execute runs the node logic and returns the node output
	Execute(ctx context.Context, nodeCtx NodeContext) (string, error)
}
