// Package registry manages workflow definitions: CRUD over workflows,
// nodes and edges with ownership and node catalog validation applied at
// write time.
package registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ahartwell/graphrunner/pkg/models"
	"github.com/ahartwell/graphrunner/pkg/runtime"
	"github.com/ahartwell/graphrunner/pkg/storage"
)

// Errors returned by the workflow registry
var (
	ErrInvalidNodeType   = errors.New("invalid node type")
	ErrEdgeNodeMismatch  = errors.New("edge endpoints must belong to the same workflow")
	ErrWorkflowNameEmpty = errors.New("workflow name is required")
)

// WorkflowRegistry manages workflow definitions on top of a workflow store
type WorkflowRegistry struct {
	store     storage.WorkflowStore
	providers storage.ProviderStore
}

// NewWorkflowRegistry creates a new workflow registry
func NewWorkflowRegistry(store storage.WorkflowStore, providers storage.ProviderStore) *WorkflowRegistry {
	return &WorkflowRegistry{
		store:     store,
		providers: providers,
	}
}

// CreateWorkflow stores a new workflow definition
func (r *WorkflowRegistry) CreateWorkflow(accountID, name, description string) (models.Workflow, error) {
	if name == "" {
		return models.Workflow{}, ErrWorkflowNameEmpty
	}

	now := time.Now().UTC()
	workflow := models.Workflow{
		ID:          uuid.New().String(),
		AccountID:   accountID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.store.SaveWorkflow(workflow); err != nil {
		return models.Workflow{}, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

// GetWorkflow retrieves a workflow scoped to its owner account
func (r *WorkflowRegistry) GetWorkflow(accountID, workflowID string) (models.Workflow, error) {
	return r.store.GetWorkflow(accountID, workflowID)
}

// ListWorkflows returns all workflows for an account
func (r *WorkflowRegistry) ListWorkflows(accountID string) ([]models.Workflow, error) {
	return r.store.ListWorkflows(accountID)
}

// UpdateWorkflow modifies a workflow's name and description
func (r *WorkflowRegistry) UpdateWorkflow(accountID, workflowID, name, description string) (models.Workflow, error) {
	workflow, err := r.store.GetWorkflow(accountID, workflowID)
	if err != nil {
		return models.Workflow{}, err
	}

	if name != "" {
		workflow.Name = name
	}
	workflow.Description = description
	workflow.UpdatedAt = time.Now().UTC()

	if err := r.store.SaveWorkflow(workflow); err != nil {
		return models.Workflow{}, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

// DeleteWorkflow removes a workflow with its nodes and edges
func (r *WorkflowRegistry) DeleteWorkflow(accountID, workflowID string) error {
	return r.store.DeleteWorkflow(accountID, workflowID)
}

// AddNode adds a node to a workflow after validating its configuration
// against the node catalog
func (r *WorkflowRegistry) AddNode(accountID, workflowID string, nodeType models.NodeType, data map[string]interface{}) (models.Node, error) {
	if _, err := r.store.GetWorkflow(accountID, workflowID); err != nil {
		return models.Node{}, err
	}

	if !nodeType.Valid() {
		return models.Node{}, fmt.Errorf("%w: %s", ErrInvalidNodeType, nodeType)
	}

	if err := r.validateNodeData(accountID, nodeType, data); err != nil {
		return models.Node{}, err
	}

	now := time.Now().UTC()
	node := models.Node{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		Type:       nodeType,
		Data:       data,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := r.store.SaveNode(node); err != nil {
		return models.Node{}, fmt.Errorf("failed to save node: %w", err)
	}

	return node, nil
}

// GetNode retrieves a node scoped to its owner account
func (r *WorkflowRegistry) GetNode(accountID, workflowID, nodeID string) (models.Node, error) {
	if _, err := r.store.GetWorkflow(accountID, workflowID); err != nil {
		return models.Node{}, err
	}

	node, err := r.store.GetNode(nodeID)
	if err != nil {
		return models.Node{}, err
	}
	if node.WorkflowID != workflowID {
		return models.Node{}, storage.ErrNodeNotFound
	}

	return node, nil
}

// ListNodes returns all nodes of a workflow in creation order
func (r *WorkflowRegistry) ListNodes(accountID, workflowID string) ([]models.Node, error) {
	if _, err := r.store.GetWorkflow(accountID, workflowID); err != nil {
		return nil, err
	}
	return r.store.ListNodes(workflowID)
}

// UpdateNode replaces a node's configuration after validating it
func (r *WorkflowRegistry) UpdateNode(accountID, workflowID, nodeID string, data map[string]interface{}) (models.Node, error) {
	node, err := r.GetNode(accountID, workflowID, nodeID)
	if err != nil {
		return models.Node{}, err
	}

	if err := r.validateNodeData(accountID, node.Type, data); err != nil {
		return models.Node{}, err
	}

	node.Data = data
	node.UpdatedAt = time.Now().UTC()

	if err := r.store.SaveNode(node); err != nil {
		return models.Node{}, fmt.Errorf("failed to save node: %w", err)
	}

	return node, nil
}

// DeleteNode removes a node and any edges touching it
func (r *WorkflowRegistry) DeleteNode(accountID, workflowID, nodeID string) error {
	if _, err := r.GetNode(accountID, workflowID, nodeID); err != nil {
		return err
	}

	// Drop edges referencing the node first
	edges, err := r.store.ListEdges(workflowID)
	if err != nil {
		return fmt.Errorf("failed to list edges: %w", err)
	}
	for _, edge := range edges {
		if edge.SourceNodeID == nodeID || edge.TargetNodeID == nodeID {
			if err := r.store.DeleteEdge(edge.ID); err != nil {
				return fmt.Errorf("failed to delete edge: %w", err)
			}
		}
	}

	return r.store.DeleteNode(nodeID)
}

// AddEdge adds a directed edge between two nodes of the same workflow
func (r *WorkflowRegistry) AddEdge(accountID, workflowID, sourceNodeID, targetNodeID string) (models.Edge, error) {
	if _, err := r.store.GetWorkflow(accountID, workflowID); err != nil {
		return models.Edge{}, err
	}

	// Both endpoints must exist and belong to this workflow
	source, err := r.store.GetNode(sourceNodeID)
	if err != nil {
		return models.Edge{}, err
	}
	target, err := r.store.GetNode(targetNodeID)
	if err != nil {
		return models.Edge{}, err
	}
	if source.WorkflowID != workflowID || target.WorkflowID != workflowID {
		return models.Edge{}, ErrEdgeNodeMismatch
	}

	edge := models.Edge{
		ID:           uuid.New().String(),
		WorkflowID:   workflowID,
		SourceNodeID: sourceNodeID,
		TargetNodeID: targetNodeID,
		CreatedAt:    time.Now().UTC(),
	}

	if err := r.store.SaveEdge(edge); err != nil {
		return models.Edge{}, fmt.Errorf("failed to save edge: %w", err)
	}

	return edge, nil
}

// ListEdges returns all edges of a workflow in creation order
func (r *WorkflowRegistry) ListEdges(accountID, workflowID string) ([]models.Edge, error) {
	if _, err := r.store.GetWorkflow(accountID, workflowID); err != nil {
		return nil, err
	}
	return r.store.ListEdges(workflowID)
}

// DeleteEdge removes an edge
func (r *WorkflowRegistry) DeleteEdge(accountID, workflowID, edgeID string) error {
	if _, err := r.store.GetWorkflow(accountID, workflowID); err != nil {
		return err
	}

	edge, err := r.store.GetEdge(edgeID)
	if err != nil {
		return err
	}
	if edge.WorkflowID != workflowID {
		return storage.ErrEdgeNotFound
	}

	return r.store.DeleteEdge(edgeID)
}

// validateNodeData checks node data against the catalog and, for LLM
// nodes, verifies the referenced provider exists for the account
func (r *WorkflowRegistry) validateNodeData(accountID string, nodeType models.NodeType, data map[string]interface{}) error {
	if _, err := runtime.ValidateNodeData(nodeType, data); err != nil {
		return err
	}

	if nodeType == models.NodeTypeLLM && r.providers != nil {
		providerID, ok := runtime.ProviderIDFromData(data)
		if !ok {
			return runtime.NewNodeConfigError("LLM node requires a valid llm_provider_id")
		}
		if _, err := r.providers.GetProvider(accountID, providerID); err != nil {
			if err == storage.ErrProviderNotFound {
				return runtime.NewNodeConfigError("referenced LLM provider does not exist")
			}
			return fmt.Errorf("failed to look up provider: %w", err)
		}
	}

	return nil
}
