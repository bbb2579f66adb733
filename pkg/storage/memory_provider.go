package storage

import (
	"sync"

	"github.com/ahartwell/graphrunner/pkg/auth"
	"github.com/ahartwell/graphrunner/pkg/models"
)

// MemoryProvider implements the StorageProvider interface using in-memory storage
type MemoryProvider struct {
	accountStore   *MemoryAccountStore
	workflowStore  *MemoryWorkflowStore
	providerStore  *MemoryProviderStore
	executionStore *MemoryExecutionStore
}

// NewMemoryProvider creates a new in-memory storage provider
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		accountStore:   NewMemoryAccountStore(),
		workflowStore:  NewMemoryWorkflowStore(),
		providerStore:  NewMemoryProviderStore(),
		executionStore: NewMemoryExecutionStore(),
	}
}

// Initialize sets up the storage backend
func (p *MemoryProvider) Initialize() error {
	// Nothing to initialize for in-memory storage
	return nil
}

// Close cleans up resources
func (p *MemoryProvider) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

// GetAccountStore returns a store for account data
func (p *MemoryProvider) GetAccountStore() AccountStore {
	return p.accountStore
}

// GetWorkflowStore returns a store for workflows, nodes and edges
func (p *MemoryProvider) GetWorkflowStore() WorkflowStore {
	return p.workflowStore
}

// GetProviderStore returns a store for LLM provider configurations
func (p *MemoryProvider) GetProviderStore() ProviderStore {
	return p.providerStore
}

// GetExecutionStore returns a store for execution records
func (p *MemoryProvider) GetExecutionStore() ExecutionStore {
	return p.executionStore
}

// MemoryWorkflowStore implements the WorkflowStore interface using in-memory storage.
// Node and edge order per workflow is tracked explicitly so listings come
// back in creation order.
type MemoryWorkflowStore struct {
	workflows     map[string]models.Workflow
	nodes         map[string]models.Node
	edges         map[string]models.Edge
	nodeOrder     map[string][]string
	edgeOrder     map[string][]string
	workflowOrder []string
	mu            sync.RWMutex
}

// NewMemoryWorkflowStore creates a new in-memory workflow store
func NewMemoryWorkflowStore() *MemoryWorkflowStore {
	return &MemoryWorkflowStore{
		workflows: make(map[string]models.Workflow),
		nodes:     make(map[string]models.Node),
		edges:     make(map[string]models.Edge),
		nodeOrder: make(map[string][]string),
		edgeOrder: make(map[string][]string),
	}
}

// SaveWorkflow persists a workflow
func (s *MemoryWorkflowStore) SaveWorkflow(workflow models.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Track creation order for new workflows
	if _, ok := s.workflows[workflow.ID]; !ok {
		s.workflowOrder = append(s.workflowOrder, workflow.ID)
	}

	s.workflows[workflow.ID] = workflow

	return nil
}

// GetWorkflow retrieves a workflow scoped to its owner account
func (s *MemoryWorkflowStore) GetWorkflow(accountID, workflowID string) (models.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Check if workflow exists and is owned by the account
	workflow, ok := s.workflows[workflowID]
	if !ok || workflow.AccountID != accountID {
		return models.Workflow{}, ErrWorkflowNotFound
	}

	return workflow, nil
}

// ListWorkflows returns all workflows for an account
func (s *MemoryWorkflowStore) ListWorkflows(accountID string) ([]models.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workflowList := make([]models.Workflow, 0)
	for _, workflowID := range s.workflowOrder {
		workflow, ok := s.workflows[workflowID]
		if ok && workflow.AccountID == accountID {
			workflowList = append(workflowList, workflow)
		}
	}

	return workflowList, nil
}

// DeleteWorkflow removes a workflow with its nodes and edges
func (s *MemoryWorkflowStore) DeleteWorkflow(accountID, workflowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check if workflow exists and is owned by the account
	workflow, ok := s.workflows[workflowID]
	if !ok || workflow.AccountID != accountID {
		return ErrWorkflowNotFound
	}

	// Delete nodes and edges belonging to the workflow
	for _, nodeID := range s.nodeOrder[workflowID] {
		delete(s.nodes, nodeID)
	}
	for _, edgeID := range s.edgeOrder[workflowID] {
		delete(s.edges, edgeID)
	}
	delete(s.nodeOrder, workflowID)
	delete(s.edgeOrder, workflowID)

	// Delete the workflow and its order entry
	delete(s.workflows, workflowID)
	for i, id := range s.workflowOrder {
		if id == workflowID {
			s.workflowOrder = append(s.workflowOrder[:i], s.workflowOrder[i+1:]...)
			break
		}
	}

	return nil
}

// SaveNode persists a node
func (s *MemoryWorkflowStore) SaveNode(node models.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Track creation order for new nodes
	if _, ok := s.nodes[node.ID]; !ok {
		s.nodeOrder[node.WorkflowID] = append(s.nodeOrder[node.WorkflowID], node.ID)
	}

	s.nodes[node.ID] = node

	return nil
}

// GetNode retrieves a node by ID
func (s *MemoryWorkflowStore) GetNode(nodeID string) (models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[nodeID]
	if !ok {
		return models.Node{}, ErrNodeNotFound
	}

	return node, nil
}

// ListNodes returns all nodes of a workflow in creation order
func (s *MemoryWorkflowStore) ListNodes(workflowID string) ([]models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodeList := make([]models.Node, 0, len(s.nodeOrder[workflowID]))
	for _, nodeID := range s.nodeOrder[workflowID] {
		if node, ok := s.nodes[nodeID]; ok {
			nodeList = append(nodeList, node)
		}
	}

	return nodeList, nil
}

// DeleteNode removes a node
func (s *MemoryWorkflowStore) DeleteNode(nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[nodeID]
	if !ok {
		return ErrNodeNotFound
	}

	delete(s.nodes, nodeID)
	order := s.nodeOrder[node.WorkflowID]
	for i, id := range order {
		if id == nodeID {
			s.nodeOrder[node.WorkflowID] = append(order[:i], order[i+1:]...)
			break
		}
	}

	return nil
}

// SaveEdge persists an edge
func (s *MemoryWorkflowStore) SaveEdge(edge models.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Track creation order for new edges
	if _, ok := s.edges[edge.ID]; !ok {
		s.edgeOrder[edge.WorkflowID] = append(s.edgeOrder[edge.WorkflowID], edge.ID)
	}

	s.edges[edge.ID] = edge

	return nil
}

// GetEdge retrieves an edge by ID
func (s *MemoryWorkflowStore) GetEdge(edgeID string) (models.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edge, ok := s.edges[edgeID]
	if !ok {
		return models.Edge{}, ErrEdgeNotFound
	}

	return edge, nil
}

// ListEdges returns all edges of a workflow in creation order
func (s *MemoryWorkflowStore) ListEdges(workflowID string) ([]models.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edgeList := make([]models.Edge, 0, len(s.edgeOrder[workflowID]))
	for _, edgeID := range s.edgeOrder[workflowID] {
		if edge, ok := s.edges[edgeID]; ok {
			edgeList = append(edgeList, edge)
		}
	}

	return edgeList, nil
}

// DeleteEdge removes an edge
func (s *MemoryWorkflowStore) DeleteEdge(edgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	edge, ok := s.edges[edgeID]
	if !ok {
		return ErrEdgeNotFound
	}

	delete(s.edges, edgeID)
	order := s.edgeOrder[edge.WorkflowID]
	for i, id := range order {
		if id == edgeID {
			s.edgeOrder[edge.WorkflowID] = append(order[:i], order[i+1:]...)
			break
		}
	}

	return nil
}

// MemoryProviderStore implements the ProviderStore interface using in-memory storage
type MemoryProviderStore struct {
	providers map[int64]models.Provider
	order     []int64
	nextID    int64
	mu        sync.RWMutex
}

// NewMemoryProviderStore creates a new in-memory provider store
func NewMemoryProviderStore() *MemoryProviderStore {
	return &MemoryProviderStore{
		providers: make(map[int64]models.Provider),
		nextID:    1,
	}
}

// SaveProvider persists a provider, assigning an ID when zero
func (s *MemoryProviderStore) SaveProvider(provider models.Provider) (models.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Assign the next ID in sequence for new providers
	if provider.ID == 0 {
		provider.ID = s.nextID
		s.nextID++
	}
	if _, ok := s.providers[provider.ID]; !ok {
		s.order = append(s.order, provider.ID)
		if provider.ID >= s.nextID {
			s.nextID = provider.ID + 1
		}
	}

	s.providers[provider.ID] = provider

	return provider, nil
}

// GetProvider retrieves a provider scoped to its owner account
func (s *MemoryProviderStore) GetProvider(accountID string, providerID int64) (models.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	provider, ok := s.providers[providerID]
	if !ok || provider.AccountID != accountID {
		return models.Provider{}, ErrProviderNotFound
	}

	return provider, nil
}

// ListProviders returns all providers for an account
func (s *MemoryProviderStore) ListProviders(accountID string) ([]models.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	providerList := make([]models.Provider, 0)
	for _, providerID := range s.order {
		provider, ok := s.providers[providerID]
		if ok && provider.AccountID == accountID {
			providerList = append(providerList, provider)
		}
	}

	return providerList, nil
}

// DeleteProvider removes a provider
func (s *MemoryProviderStore) DeleteProvider(accountID string, providerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	provider, ok := s.providers[providerID]
	if !ok || provider.AccountID != accountID {
		return ErrProviderNotFound
	}

	delete(s.providers, providerID)
	for i, id := range s.order {
		if id == providerID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	return nil
}

// MemoryExecutionStore implements the ExecutionStore interface using in-memory storage
type MemoryExecutionStore struct {
	executions map[string]models.Execution
	order      []string
	mu         sync.RWMutex
}

// NewMemoryExecutionStore creates a new in-memory execution store
func NewMemoryExecutionStore() *MemoryExecutionStore {
	return &MemoryExecutionStore{
		executions: make(map[string]models.Execution),
	}
}

// SaveExecution persists an execution record
func (s *MemoryExecutionStore) SaveExecution(execution models.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Track creation order for new executions
	if _, ok := s.executions[execution.ID]; !ok {
		s.order = append(s.order, execution.ID)
	}

	s.executions[execution.ID] = execution

	return nil
}

// GetExecution retrieves an execution record
func (s *MemoryExecutionStore) GetExecution(executionID string) (models.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	execution, ok := s.executions[executionID]
	if !ok {
		return models.Execution{}, ErrExecutionNotFound
	}

	return execution, nil
}

// ListExecutions returns all executions for a workflow
func (s *MemoryExecutionStore) ListExecutions(workflowID string) ([]models.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	executionList := make([]models.Execution, 0)
	for _, executionID := range s.order {
		execution, ok := s.executions[executionID]
		if ok && execution.WorkflowID == workflowID {
			executionList = append(executionList, execution)
		}
	}

	return executionList, nil
}

// MemoryAccountStore implements the AccountStore interface using in-memory storage
type MemoryAccountStore struct {
	accounts        map[string]auth.Account
	accountsByName  map[string]string
	accountsByToken map[string]string
	mu              sync.RWMutex
}

// NewMemoryAccountStore creates a new in-memory account store
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		accounts:        make(map[string]auth.Account),
		accountsByName:  make(map[string]string),
		accountsByToken: make(map[string]string),
	}
}

// SaveAccount persists an account
func (s *MemoryAccountStore) SaveAccount(account auth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store the account
	s.accounts[account.ID] = account
	s.accountsByName[account.Username] = account.ID
	s.accountsByToken[account.APIToken] = account.ID

	return nil
}

// GetAccount retrieves an account
func (s *MemoryAccountStore) GetAccount(accountID string) (auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return auth.Account{}, ErrAccountNotFound
	}

	return account, nil
}

// GetAccountByUsername retrieves an account by username
func (s *MemoryAccountStore) GetAccountByUsername(username string) (auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accountID, ok := s.accountsByName[username]
	if !ok {
		return auth.Account{}, ErrAccountNotFound
	}

	account, ok := s.accounts[accountID]
	if !ok {
		return auth.Account{}, ErrAccountNotFound
	}

	return account, nil
}

// GetAccountByToken retrieves an account by API token
func (s *MemoryAccountStore) GetAccountByToken(token string) (auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accountID, ok := s.accountsByToken[token]
	if !ok {
		return auth.Account{}, ErrAccountNotFound
	}

	account, ok := s.accounts[accountID]
	if !ok {
		return auth.Account{}, ErrAccountNotFound
	}

	return account, nil
}

// ListAccounts returns all accounts
func (s *MemoryAccountStore) ListAccounts() ([]auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accountList := make([]auth.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		accountList = append(accountList, account)
	}

	return accountList, nil
}

// DeleteAccount removes an account
func (s *MemoryAccountStore) DeleteAccount(accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}

	delete(s.accounts, accountID)
	delete(s.accountsByName, account.Username)
	delete(s.accountsByToken, account.APIToken)

	return nil
}
