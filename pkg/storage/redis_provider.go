package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/ahartwell/graphrunner/pkg/auth"
	"github.com/ahartwell/graphrunner/pkg/models"
)

// RedisProvider implements the StorageProvider interface using Redis.
// Entities are stored as JSON strings; per-owner lists preserve creation
// order for workflows, nodes, edges and executions.
type RedisProvider struct {
	client         *redis.Client
	accountStore   *RedisAccountStore
	workflowStore  *RedisWorkflowStore
	providerStore  *RedisProviderStore
	executionStore *RedisExecutionStore
}

// RedisProviderConfig contains configuration for the Redis provider
type RedisProviderConfig struct {
	Address  string
	Password string
	DB       int
}

// NewRedisProvider creates a new Redis storage provider
func NewRedisProvider(config RedisProviderConfig) *RedisProvider {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})

	return NewRedisProviderWithClient(client)
}

// NewRedisProviderWithClient creates a new Redis storage provider with a custom client.
// This is primarily used for testing against miniredis.
func NewRedisProviderWithClient(client *redis.Client) *RedisProvider {
	return &RedisProvider{
		client:         client,
		accountStore:   &RedisAccountStore{client: client},
		workflowStore:  &RedisWorkflowStore{client: client},
		providerStore:  &RedisProviderStore{client: client},
		executionStore: &RedisExecutionStore{client: client},
	}
}

// Initialize sets up the storage backend
func (p *RedisProvider) Initialize() error {
	if err := p.client.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close cleans up resources
func (p *RedisProvider) Close() error {
	return p.client.Close()
}

// GetAccountStore returns a store for account data
func (p *RedisProvider) GetAccountStore() AccountStore {
	return p.accountStore
}

// GetWorkflowStore returns a store for workflows, nodes and edges
func (p *RedisProvider) GetWorkflowStore() WorkflowStore {
	return p.workflowStore
}

// GetProviderStore returns a store for LLM provider configurations
func (p *RedisProvider) GetProviderStore() ProviderStore {
	return p.providerStore
}

// GetExecutionStore returns a store for execution records
func (p *RedisProvider) GetExecutionStore() ExecutionStore {
	return p.executionStore
}

// getJSON loads and unmarshals a JSON entity, mapping a missing key to notFound
func getJSON(client *redis.Client, key string, out interface{}, notFound error) error {
	data, err := client.Get(context.Background(), key).Result()
	if err == redis.Nil {
		return notFound
	}
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(data), out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}

	return nil
}

// setJSON marshals and stores a JSON entity
func setJSON(client *redis.Client, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	if err := client.Set(context.Background(), key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	return nil
}

// RedisWorkflowStore implements the WorkflowStore interface using Redis
type RedisWorkflowStore struct {
	client *redis.Client
}

func workflowKey(workflowID string) string { return "workflow:" + workflowID }
func nodeKey(nodeID string) string         { return "node:" + nodeID }
func edgeKey(edgeID string) string         { return "edge:" + edgeID }

func accountWorkflowsKey(accountID string) string { return "workflows:" + accountID }
func workflowNodesKey(workflowID string) string   { return "workflow_nodes:" + workflowID }
func workflowEdgesKey(workflowID string) string   { return "workflow_edges:" + workflowID }

// SaveWorkflow persists a workflow
func (s *RedisWorkflowStore) SaveWorkflow(workflow models.Workflow) error {
	ctx := context.Background()

	// Append to the owner's creation-order list only for new workflows
	exists, err := s.client.Exists(ctx, workflowKey(workflow.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check if workflow exists: %w", err)
	}
	if exists == 0 {
		if err := s.client.RPush(ctx, accountWorkflowsKey(workflow.AccountID), workflow.ID).Err(); err != nil {
			return fmt.Errorf("failed to index workflow: %w", err)
		}
	}

	return setJSON(s.client, workflowKey(workflow.ID), workflow)
}

// GetWorkflow retrieves a workflow scoped to its owner account
func (s *RedisWorkflowStore) GetWorkflow(accountID, workflowID string) (models.Workflow, error) {
	var workflow models.Workflow
	if err := getJSON(s.client, workflowKey(workflowID), &workflow, ErrWorkflowNotFound); err != nil {
		return models.Workflow{}, err
	}
	if workflow.AccountID != accountID {
		return models.Workflow{}, ErrWorkflowNotFound
	}
	return workflow, nil
}

// ListWorkflows returns all workflows for an account
func (s *RedisWorkflowStore) ListWorkflows(accountID string) ([]models.Workflow, error) {
	ids, err := s.client.LRange(context.Background(), accountWorkflowsKey(accountID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	workflows := make([]models.Workflow, 0, len(ids))
	for _, id := range ids {
		var workflow models.Workflow
		if err := getJSON(s.client, workflowKey(id), &workflow, ErrWorkflowNotFound); err != nil {
			if err == ErrWorkflowNotFound {
				continue
			}
			return nil, err
		}
		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

// DeleteWorkflow removes a workflow with its nodes and edges
func (s *RedisWorkflowStore) DeleteWorkflow(accountID, workflowID string) error {
	if _, err := s.GetWorkflow(accountID, workflowID); err != nil {
		return err
	}

	ctx := context.Background()

	// Delete nodes and edges belonging to the workflow
	nodeIDs, err := s.client.LRange(ctx, workflowNodesKey(workflowID), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to list workflow nodes: %w", err)
	}
	for _, nodeID := range nodeIDs {
		if err := s.client.Del(ctx, nodeKey(nodeID)).Err(); err != nil {
			return fmt.Errorf("failed to delete node: %w", err)
		}
	}

	edgeIDs, err := s.client.LRange(ctx, workflowEdgesKey(workflowID), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to list workflow edges: %w", err)
	}
	for _, edgeID := range edgeIDs {
		if err := s.client.Del(ctx, edgeKey(edgeID)).Err(); err != nil {
			return fmt.Errorf("failed to delete edge: %w", err)
		}
	}

	if err := s.client.Del(ctx, workflowNodesKey(workflowID), workflowEdgesKey(workflowID), workflowKey(workflowID)).Err(); err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}
	if err := s.client.LRem(ctx, accountWorkflowsKey(accountID), 0, workflowID).Err(); err != nil {
		return fmt.Errorf("failed to unindex workflow: %w", err)
	}

	return nil
}

// SaveNode persists a node
func (s *RedisWorkflowStore) SaveNode(node models.Node) error {
	ctx := context.Background()

	exists, err := s.client.Exists(ctx, nodeKey(node.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check if node exists: %w", err)
	}
	if exists == 0 {
		if err := s.client.RPush(ctx, workflowNodesKey(node.WorkflowID), node.ID).Err(); err != nil {
			return fmt.Errorf("failed to index node: %w", err)
		}
	}

	return setJSON(s.client, nodeKey(node.ID), node)
}

// GetNode retrieves a node by ID
func (s *RedisWorkflowStore) GetNode(nodeID string) (models.Node, error) {
	var node models.Node
	if err := getJSON(s.client, nodeKey(nodeID), &node, ErrNodeNotFound); err != nil {
		return models.Node{}, err
	}
	return node, nil
}

// ListNodes returns all nodes of a workflow in creation order
func (s *RedisWorkflowStore) ListNodes(workflowID string) ([]models.Node, error) {
	ids, err := s.client.LRange(context.Background(), workflowNodesKey(workflowID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	nodes := make([]models.Node, 0, len(ids))
	for _, id := range ids {
		node, err := s.GetNode(id)
		if err != nil {
			if err == ErrNodeNotFound {
				continue
			}
			return nil, err
		}
		nodes = append(nodes, node)
	}

	return nodes, nil
}

// DeleteNode removes a node
func (s *RedisWorkflowStore) DeleteNode(nodeID string) error {
	node, err := s.GetNode(nodeID)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := s.client.Del(ctx, nodeKey(nodeID)).Err(); err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}
	if err := s.client.LRem(ctx, workflowNodesKey(node.WorkflowID), 0, nodeID).Err(); err != nil {
		return fmt.Errorf("failed to unindex node: %w", err)
	}

	return nil
}

// SaveEdge persists an edge
func (s *RedisWorkflowStore) SaveEdge(edge models.Edge) error {
	ctx := context.Background()

	exists, err := s.client.Exists(ctx, edgeKey(edge.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check if edge exists: %w", err)
	}
	if exists == 0 {
		if err := s.client.RPush(ctx, workflowEdgesKey(edge.WorkflowID), edge.ID).Err(); err != nil {
			return fmt.Errorf("failed to index edge: %w", err)
		}
	}

	return setJSON(s.client, edgeKey(edge.ID), edge)
}

// GetEdge retrieves an edge by ID
func (s *RedisWorkflowStore) GetEdge(edgeID string) (models.Edge, error) {
	var edge models.Edge
	if err := getJSON(s.client, edgeKey(edgeID), &edge, ErrEdgeNotFound); err != nil {
		return models.Edge{}, err
	}
	return edge, nil
}

// ListEdges returns all edges of a workflow in creation order
func (s *RedisWorkflowStore) ListEdges(workflowID string) ([]models.Edge, error) {
	ids, err := s.client.LRange(context.Background(), workflowEdgesKey(workflowID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}

	edges := make([]models.Edge, 0, len(ids))
	for _, id := range ids {
		edge, err := s.GetEdge(id)
		if err != nil {
			if err == ErrEdgeNotFound {
				continue
			}
			return nil, err
		}
		edges = append(edges, edge)
	}

	return edges, nil
}

// DeleteEdge removes an edge
func (s *RedisWorkflowStore) DeleteEdge(edgeID string) error {
	edge, err := s.GetEdge(edgeID)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := s.client.Del(ctx, edgeKey(edgeID)).Err(); err != nil {
		return fmt.Errorf("failed to delete edge: %w", err)
	}
	if err := s.client.LRem(ctx, workflowEdgesKey(edge.WorkflowID), 0, edgeID).Err(); err != nil {
		return fmt.Errorf("failed to unindex edge: %w", err)
	}

	return nil
}

// RedisProviderStore implements the ProviderStore interface using Redis
type RedisProviderStore struct {
	client *redis.Client
}

func providerKey(providerID int64) string { return "provider:" + strconv.FormatInt(providerID, 10) }

func accountProvidersKey(accountID string) string { return "providers:" + accountID }

// SaveProvider persists a provider, assigning an ID when zero
func (s *RedisProviderStore) SaveProvider(provider models.Provider) (models.Provider, error) {
	ctx := context.Background()

	if provider.ID == 0 {
		// Allocate the next ID from the sequence counter
		id, err := s.client.Incr(ctx, "provider_seq").Result()
		if err != nil {
			return models.Provider{}, fmt.Errorf("failed to allocate provider ID: %w", err)
		}
		provider.ID = id
	}

	exists, err := s.client.Exists(ctx, providerKey(provider.ID)).Result()
	if err != nil {
		return models.Provider{}, fmt.Errorf("failed to check if provider exists: %w", err)
	}
	if exists == 0 {
		if err := s.client.RPush(ctx, accountProvidersKey(provider.AccountID), provider.ID).Err(); err != nil {
			return models.Provider{}, fmt.Errorf("failed to index provider: %w", err)
		}
	}

	if err := setJSON(s.client, providerKey(provider.ID), provider); err != nil {
		return models.Provider{}, err
	}

	return provider, nil
}

// GetProvider retrieves a provider scoped to its owner account
func (s *RedisProviderStore) GetProvider(accountID string, providerID int64) (models.Provider, error) {
	var provider models.Provider
	if err := getJSON(s.client, providerKey(providerID), &provider, ErrProviderNotFound); err != nil {
		return models.Provider{}, err
	}
	if provider.AccountID != accountID {
		return models.Provider{}, ErrProviderNotFound
	}
	return provider, nil
}

// ListProviders returns all providers for an account
func (s *RedisProviderStore) ListProviders(accountID string) ([]models.Provider, error) {
	ids, err := s.client.LRange(context.Background(), accountProvidersKey(accountID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}

	providers := make([]models.Provider, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse provider ID: %w", err)
		}

		provider, err := s.GetProvider(accountID, id)
		if err != nil {
			if err == ErrProviderNotFound {
				continue
			}
			return nil, err
		}
		providers = append(providers, provider)
	}

	return providers, nil
}

// DeleteProvider removes a provider
func (s *RedisProviderStore) DeleteProvider(accountID string, providerID int64) error {
	if _, err := s.GetProvider(accountID, providerID); err != nil {
		return err
	}

	ctx := context.Background()
	if err := s.client.Del(ctx, providerKey(providerID)).Err(); err != nil {
		return fmt.Errorf("failed to delete provider: %w", err)
	}
	if err := s.client.LRem(ctx, accountProvidersKey(accountID), 0, providerID).Err(); err != nil {
		return fmt.Errorf("failed to unindex provider: %w", err)
	}

	return nil
}

// RedisExecutionStore implements the ExecutionStore interface using Redis
type RedisExecutionStore struct {
	client *redis.Client
}

func executionKey(executionID string) string { return "execution:" + executionID }

func workflowExecutionsKey(workflowID string) string { return "executions:" + workflowID }

// SaveExecution persists an execution record
func (s *RedisExecutionStore) SaveExecution(execution models.Execution) error {
	ctx := context.Background()

	exists, err := s.client.Exists(ctx, executionKey(execution.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check if execution exists: %w", err)
	}
	if exists == 0 {
		if err := s.client.RPush(ctx, workflowExecutionsKey(execution.WorkflowID), execution.ID).Err(); err != nil {
			return fmt.Errorf("failed to index execution: %w", err)
		}
	}

	return setJSON(s.client, executionKey(execution.ID), execution)
}

// GetExecution retrieves an execution record
func (s *RedisExecutionStore) GetExecution(executionID string) (models.Execution, error) {
	var execution models.Execution
	if err := getJSON(s.client, executionKey(executionID), &execution, ErrExecutionNotFound); err != nil {
		return models.Execution{}, err
	}
	return execution, nil
}

// ListExecutions returns all executions for a workflow
func (s *RedisExecutionStore) ListExecutions(workflowID string) ([]models.Execution, error) {
	ids, err := s.client.LRange(context.Background(), workflowExecutionsKey(workflowID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	executions := make([]models.Execution, 0, len(ids))
	for _, id := range ids {
		execution, err := s.GetExecution(id)
		if err != nil {
			if err == ErrExecutionNotFound {
				continue
			}
			return nil, err
		}
		executions = append(executions, execution)
	}

	return executions, nil
}

// RedisAccountStore implements the AccountStore interface using Redis
type RedisAccountStore struct {
	client *redis.Client
}

func accountKey(accountID string) string { return "account:" + accountID }

func usernameKey(username string) string { return "account_username:" + username }
func tokenKey(token string) string       { return "account_token:" + token }

// SaveAccount persists an account
func (s *RedisAccountStore) SaveAccount(account auth.Account) error {
	ctx := context.Background()

	if err := setJSON(s.client, accountKey(account.ID), account); err != nil {
		return err
	}
	if err := s.client.Set(ctx, usernameKey(account.Username), account.ID, 0).Err(); err != nil {
		return fmt.Errorf("failed to index account username: %w", err)
	}
	if err := s.client.Set(ctx, tokenKey(account.APIToken), account.ID, 0).Err(); err != nil {
		return fmt.Errorf("failed to index account token: %w", err)
	}
	if err := s.client.SAdd(ctx, "accounts", account.ID).Err(); err != nil {
		return fmt.Errorf("failed to index account: %w", err)
	}

	return nil
}

// GetAccount retrieves an account
func (s *RedisAccountStore) GetAccount(accountID string) (auth.Account, error) {
	var account auth.Account
	if err := getJSON(s.client, accountKey(accountID), &account, ErrAccountNotFound); err != nil {
		return auth.Account{}, err
	}
	return account, nil
}

// GetAccountByUsername retrieves an account by username
func (s *RedisAccountStore) GetAccountByUsername(username string) (auth.Account, error) {
	return s.getAccountByIndex(usernameKey(username))
}

// GetAccountByToken retrieves an account by API token
func (s *RedisAccountStore) GetAccountByToken(token string) (auth.Account, error) {
	return s.getAccountByIndex(tokenKey(token))
}

// getAccountByIndex resolves a secondary index key to its account
func (s *RedisAccountStore) getAccountByIndex(key string) (auth.Account, error) {
	accountID, err := s.client.Get(context.Background(), key).Result()
	if err == redis.Nil {
		return auth.Account{}, ErrAccountNotFound
	}
	if err != nil {
		return auth.Account{}, fmt.Errorf("failed to resolve account index: %w", err)
	}

	return s.GetAccount(accountID)
}

// ListAccounts returns all accounts
func (s *RedisAccountStore) ListAccounts() ([]auth.Account, error) {
	ids, err := s.client.SMembers(context.Background(), "accounts").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	accounts := make([]auth.Account, 0, len(ids))
	for _, id := range ids {
		account, err := s.GetAccount(id)
		if err != nil {
			if err == ErrAccountNotFound {
				continue
			}
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, nil
}

// DeleteAccount removes an account
func (s *RedisAccountStore) DeleteAccount(accountID string) error {
	account, err := s.GetAccount(accountID)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := s.client.Del(ctx, accountKey(accountID), usernameKey(account.Username), tokenKey(account.APIToken)).Err(); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if err := s.client.SRem(ctx, "accounts", accountID).Err(); err != nil {
		return fmt.Errorf("failed to unindex account: %w", err)
	}

	return nil
}
