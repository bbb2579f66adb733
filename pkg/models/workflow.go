// Package models defines the persisted entities shared across graphrunner.
package models

import "time"

// NodeType identifies the kind of processing a node performs
type NodeType string

// Supported node types
const (
	NodeTypeInput     NodeType = "input"
	NodeTypeLLM       NodeType = "llm"
	NodeTypeWebSearch NodeType = "web_search"
	NodeTypeOutput    NodeType = "output"
)

// NodeTypes lists all supported node types in catalog order
func NodeTypes() []NodeType {
	return []NodeType{NodeTypeInput, NodeTypeLLM, NodeTypeWebSearch, NodeTypeOutput}
}

// Valid reports whether the node type is one of the supported types
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeInput, NodeTypeLLM, NodeTypeWebSearch, NodeTypeOutput:
		return true
	}
	return false
}

// Workflow represents a user-owned graph of nodes and edges
type Workflow struct {
	// ID of the workflow
	ID string `json:"id"`

	// AccountID is the ID of the account that owns the workflow
	AccountID string `json:"account_id"`

	// Name of the workflow
	Name string `json:"name"`

	// Description of the workflow
	Description string `json:"description,omitempty"`

	// CreatedAt is when the workflow was created
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the workflow was last updated
	UpdatedAt time.Time `json:"updated_at"`
}

// Node is one typed processing step inside a workflow
type Node struct {
	// ID of the node
	ID string `json:"id"`

	// WorkflowID is the ID of the workflow the node belongs to
	WorkflowID string `json:"workflow_id"`

	// Type of the node
	Type NodeType `json:"type"`

	// Data holds the type-specific configuration for the node. Required
	// keys are determined by the node catalog for the node's type.
	Data map[string]interface{} `json:"data"`

	// CreatedAt is when the node was created
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the node was last updated
	UpdatedAt time.Time `json:"updated_at"`
}

// Edge is a directed dependency between two nodes of the same workflow.
// The target node consumes the source node's output.
type Edge struct {
	// ID of the edge
	ID string `json:"id"`

	// WorkflowID is the ID of the workflow the edge belongs to
	WorkflowID string `json:"workflow_id"`

	// SourceNodeID is the node producing the value
	SourceNodeID string `json:"source_node_id"`

	// TargetNodeID is the node consuming the value
	TargetNodeID string `json:"target_node_id"`

	// CreatedAt is when the edge was created
	CreatedAt time.Time `json:"created_at"`
}
