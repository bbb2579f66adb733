// Package storage provides interfaces for persistent storage.
package storage

import (
	"errors"

	"github.com/ahartwell/graphrunner/pkg/auth"
	"github.com/ahartwell/graphrunner/pkg/models"
)

// Errors returned by storage backends
var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrWorkflowNotFound  = errors.New("workflow not found")
	ErrNodeNotFound      = errors.New("node not found")
	ErrEdgeNotFound      = errors.New("edge not found")
	ErrProviderNotFound  = errors.New("llm provider not found")
	ErrExecutionNotFound = errors.New("execution not found")
)

// StorageProvider defines the interface for persistence backends
type StorageProvider interface {
	// Initialize sets up the storage backend
	Initialize() error

	// Close cleans up resources
	Close() error

	// GetAccountStore returns a store for account data
	GetAccountStore() AccountStore

	// GetWorkflowStore returns a store for workflows, nodes and edges
	GetWorkflowStore() WorkflowStore

	// GetProviderStore returns a store for LLM provider configurations
	GetProviderStore() ProviderStore

	// GetExecutionStore returns a store for execution records
	GetExecutionStore() ExecutionStore
}

// AccountStore manages account persistence
type AccountStore interface {
	// SaveAccount persists an account
	SaveAccount(account auth.Account) error

	// GetAccount retrieves an account
	GetAccount(accountID string) (auth.Account, error)

	// GetAccountByUsername retrieves an account by username
	GetAccountByUsername(username string) (auth.Account, error)

	// GetAccountByToken retrieves an account by API token
	GetAccountByToken(token string) (auth.Account, error)

	// ListAccounts returns all accounts
	ListAccounts() ([]auth.Account, error)

	// DeleteAccount removes an account
	DeleteAccount(accountID string) error
}

// WorkflowStore manages workflow, node and edge persistence. Node and
// edge listings preserve creation order; edge order determines the order
// of parent values seen by multi-parent nodes during a run.
type WorkflowStore interface {
	// SaveWorkflow persists a workflow
	SaveWorkflow(workflow models.Workflow) error

	// GetWorkflow retrieves a workflow scoped to its owner account
	GetWorkflow(accountID, workflowID string) (models.Workflow, error)

	// ListWorkflows returns all workflows for an account
	ListWorkflows(accountID string) ([]models.Workflow, error)

	// DeleteWorkflow removes a workflow with its nodes and edges
	DeleteWorkflow(accountID, workflowID string) error

	// SaveNode persists a node
	SaveNode(node models.Node) error

	// GetNode retrieves a node by ID
	GetNode(nodeID string) (models.Node, error)

	// ListNodes returns all nodes of a workflow in creation order
	ListNodes(workflowID string) ([]models.Node, error)

	// DeleteNode removes a node
	DeleteNode(nodeID string) error

	// SaveEdge persists an edge
	SaveEdge(edge models.Edge) error

	// GetEdge retrieves an edge by ID
	GetEdge(edgeID string) (models.Edge, error)

	// ListEdges returns all edges of a workflow in creation order
	ListEdges(workflowID string) ([]models.Edge, error)

	// DeleteEdge removes an edge
	DeleteEdge(edgeID string) error
}

// ProviderStore manages LLM provider persistence. Provider IDs are
// positive integers assigned by the store on first save.
type ProviderStore interface {
	// SaveProvider persists a provider, assigning an ID when zero
	SaveProvider(provider models.Provider) (models.Provider, error)

	// GetProvider retrieves a provider scoped to its owner account
	GetProvider(accountID string, providerID int64) (models.Provider, error)

	// ListProviders returns all providers for an account
	ListProviders(accountID string) ([]models.Provider, error)

	// DeleteProvider removes a provider
	DeleteProvider(accountID string, providerID int64) error
}

// ExecutionStore manages execution record persistence
type ExecutionStore interface {
	// SaveExecution persists an execution record
	SaveExecution(execution models.Execution) error

	// GetExecution retrieves an execution record
	GetExecution(executionID string) (models.Execution, error)

	// ListExecutions returns all executions for a workflow
	ListExecutions(workflowID string) ([]models.Execution, error)
}
