package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/ahartwell/graphrunner/pkg/auth"
	"github.com/ahartwell/graphrunner/pkg/models"
)

// PostgreSQLProvider implements the StorageProvider interface using PostgreSQL
type PostgreSQLProvider struct {
	db             *sql.DB
	accountStore   *PostgreSQLAccountStore
	workflowStore  *PostgreSQLWorkflowStore
	providerStore  *PostgreSQLProviderStore
	executionStore *PostgreSQLExecutionStore
}

// PostgreSQLProviderConfig contains configuration for the PostgreSQL provider
type PostgreSQLProviderConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewPostgreSQLProvider creates a new PostgreSQL storage provider
func NewPostgreSQLProvider(config PostgreSQLProviderConfig) (*PostgreSQLProvider, error) {
	// Set default port if not specified
	if config.Port == 0 {
		config.Port = 5432
	}

	// Set default SSL mode if not specified
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.Database, config.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	provider := &PostgreSQLProvider{
		db: db,
	}

	provider.accountStore = NewPostgreSQLAccountStore(db)
	provider.workflowStore = NewPostgreSQLWorkflowStore(db)
	provider.providerStore = NewPostgreSQLProviderStore(db)
	provider.executionStore = NewPostgreSQLExecutionStore(db)

	return provider, nil
}

// Initialize sets up the storage backend
func (p *PostgreSQLProvider) Initialize() error {
	if err := p.accountStore.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize account store: %w", err)
	}

	if err := p.workflowStore.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize workflow store: %w", err)
	}

	if err := p.providerStore.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize provider store: %w", err)
	}

	if err := p.executionStore.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize execution store: %w", err)
	}

	return nil
}

// Close cleans up resources
func (p *PostgreSQLProvider) Close() error {
	return p.db.Close()
}

// GetAccountStore returns a store for account data
func (p *PostgreSQLProvider) GetAccountStore() AccountStore {
	return p.accountStore
}

// GetWorkflowStore returns a store for workflows, nodes and edges
func (p *PostgreSQLProvider) GetWorkflowStore() WorkflowStore {
	return p.workflowStore
}

// GetProviderStore returns a store for LLM provider configurations
func (p *PostgreSQLProvider) GetProviderStore() ProviderStore {
	return p.providerStore
}

// GetExecutionStore returns a store for execution records
func (p *PostgreSQLProvider) GetExecutionStore() ExecutionStore {
	return p.executionStore
}

// PostgreSQLWorkflowStore implements the WorkflowStore interface using PostgreSQL
type PostgreSQLWorkflowStore struct {
	db *sql.DB
}

// NewPostgreSQLWorkflowStore creates a new PostgreSQL workflow store
func NewPostgreSQLWorkflowStore(db *sql.DB) *PostgreSQLWorkflowStore {
	return &PostgreSQLWorkflowStore{
		db: db,
	}
}

// Initialize creates the PostgreSQL tables if they don't exist. Node and
// edge tables carry a sequence column so listings can preserve creation
// order.
func (s *PostgreSQLWorkflowStore) Initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS workflows (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS workflows_account_id_idx ON workflows (account_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to create workflows table: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS workflow_nodes (
			id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL,
			type TEXT NOT NULL,
			data JSONB NOT NULL,
			seq BIGSERIAL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS workflow_nodes_workflow_id_idx ON workflow_nodes (workflow_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to create workflow nodes table: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS workflow_edges (
			id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL,
			source_node_id TEXT NOT NULL,
			target_node_id TEXT NOT NULL,
			seq BIGSERIAL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS workflow_edges_workflow_id_idx ON workflow_edges (workflow_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to create workflow edges table: %w", err)
	}

	return nil
}

// SaveWorkflow persists a workflow
func (s *PostgreSQLWorkflowStore) SaveWorkflow(workflow models.Workflow) error {
	// Check if workflow already exists
	var exists bool
	err := s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM workflows WHERE id = $1)", workflow.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check if workflow exists: %w", err)
	}

	if exists {
		// Update existing workflow
		_, err = s.db.Exec(
			"UPDATE workflows SET account_id = $1, name = $2, description = $3, updated_at = $4 WHERE id = $5",
			workflow.AccountID, workflow.Name, workflow.Description, workflow.UpdatedAt, workflow.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update workflow: %w", err)
		}
	} else {
		// Insert new workflow
		_, err = s.db.Exec(
			"INSERT INTO workflows (id, account_id, name, description, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)",
			workflow.ID, workflow.AccountID, workflow.Name, workflow.Description, workflow.CreatedAt, workflow.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert workflow: %w", err)
		}
	}

	return nil
}

// GetWorkflow retrieves a workflow scoped to its owner account
func (s *PostgreSQLWorkflowStore) GetWorkflow(accountID, workflowID string) (models.Workflow, error) {
	var workflow models.Workflow
	var description sql.NullString

	err := s.db.QueryRow(
		"SELECT id, account_id, name, description, created_at, updated_at FROM workflows WHERE account_id = $1 AND id = $2",
		accountID, workflowID,
	).Scan(
		&workflow.ID,
		&workflow.AccountID,
		&workflow.Name,
		&description,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return models.Workflow{}, ErrWorkflowNotFound
		}
		return models.Workflow{}, fmt.Errorf("failed to get workflow: %w", err)
	}

	if description.Valid {
		workflow.Description = description.String
	}

	return workflow, nil
}

// ListWorkflows returns all workflows for an account
func (s *PostgreSQLWorkflowStore) ListWorkflows(accountID string) ([]models.Workflow, error) {
	rows, err := s.db.Query(
		"SELECT id, account_id, name, description, created_at, updated_at FROM workflows WHERE account_id = $1 ORDER BY created_at ASC",
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	workflows := make([]models.Workflow, 0)
	for rows.Next() {
		var workflow models.Workflow
		var description sql.NullString

		if err := rows.Scan(
			&workflow.ID,
			&workflow.AccountID,
			&workflow.Name,
			&description,
			&workflow.CreatedAt,
			&workflow.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		if description.Valid {
			workflow.Description = description.String
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflow rows: %w", err)
	}

	return workflows, nil
}

// DeleteWorkflow removes a workflow with its nodes and edges
func (s *PostgreSQLWorkflowStore) DeleteWorkflow(accountID, workflowID string) error {
	result, err := s.db.Exec(
		"DELETE FROM workflows WHERE account_id = $1 AND id = $2",
		accountID, workflowID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrWorkflowNotFound
	}

	// Delete nodes and edges belonging to the workflow
	if _, err := s.db.Exec("DELETE FROM workflow_nodes WHERE workflow_id = $1", workflowID); err != nil {
		return fmt.Errorf("failed to delete workflow nodes: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM workflow_edges WHERE workflow_id = $1", workflowID); err != nil {
		return fmt.Errorf("failed to delete workflow edges: %w", err)
	}

	return nil
}

// SaveNode persists a node
func (s *PostgreSQLWorkflowStore) SaveNode(node models.Node) error {
	dataJSON, err := json.Marshal(node.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal node data: %w", err)
	}

	// Check if node already exists
	var exists bool
	err = s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM workflow_nodes WHERE id = $1)", node.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check if node exists: %w", err)
	}

	if exists {
		// Update existing node, keeping its sequence position
		_, err = s.db.Exec(
			"UPDATE workflow_nodes SET workflow_id = $1, type = $2, data = $3, updated_at = $4 WHERE id = $5",
			node.WorkflowID, string(node.Type), dataJSON, node.UpdatedAt, node.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update node: %w", err)
		}
	} else {
		// Insert new node
		_, err = s.db.Exec(
			"INSERT INTO workflow_nodes (id, workflow_id, type, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)",
			node.ID, node.WorkflowID, string(node.Type), dataJSON, node.CreatedAt, node.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert node: %w", err)
		}
	}

	return nil
}

// GetNode retrieves a node by ID
func (s *PostgreSQLWorkflowStore) GetNode(nodeID string) (models.Node, error) {
	var node models.Node
	var nodeType string
	var dataJSON []byte

	err := s.db.QueryRow(
		"SELECT id, workflow_id, type, data, created_at, updated_at FROM workflow_nodes WHERE id = $1",
		nodeID,
	).Scan(
		&node.ID,
		&node.WorkflowID,
		&nodeType,
		&dataJSON,
		&node.CreatedAt,
		&node.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return models.Node{}, ErrNodeNotFound
		}
		return models.Node{}, fmt.Errorf("failed to get node: %w", err)
	}

	node.Type = models.NodeType(nodeType)
	if len(dataJSON) > 0 {
		if err := json.Unmarshal(dataJSON, &node.Data); err != nil {
			return models.Node{}, fmt.Errorf("failed to unmarshal node data: %w", err)
		}
	}

	return node, nil
}

// ListNodes returns all nodes of a workflow in creation order
func (s *PostgreSQLWorkflowStore) ListNodes(workflowID string) ([]models.Node, error) {
	rows, err := s.db.Query(
		"SELECT id, workflow_id, type, data, created_at, updated_at FROM workflow_nodes WHERE workflow_id = $1 ORDER BY seq ASC",
		workflowID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	defer rows.Close()

	nodes := make([]models.Node, 0)
	for rows.Next() {
		var node models.Node
		var nodeType string
		var dataJSON []byte

		if err := rows.Scan(
			&node.ID,
			&node.WorkflowID,
			&nodeType,
			&dataJSON,
			&node.CreatedAt,
			&node.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}

		node.Type = models.NodeType(nodeType)
		if len(dataJSON) > 0 {
			if err := json.Unmarshal(dataJSON, &node.Data); err != nil {
				return nil, fmt.Errorf("failed to unmarshal node data: %w", err)
			}
		}

		nodes = append(nodes, node)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating node rows: %w", err)
	}

	return nodes, nil
}

// DeleteNode removes a node
func (s *PostgreSQLWorkflowStore) DeleteNode(nodeID string) error {
	result, err := s.db.Exec("DELETE FROM workflow_nodes WHERE id = $1", nodeID)
	if err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNodeNotFound
	}

	return nil
}

// SaveEdge persists an edge
func (s *PostgreSQLWorkflowStore) SaveEdge(edge models.Edge) error {
	// Check if edge already exists
	var exists bool
	err := s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM workflow_edges WHERE id = $1)", edge.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check if edge exists: %w", err)
	}

	if exists {
		// Update existing edge, keeping its sequence position
		_, err = s.db.Exec(
			"UPDATE workflow_edges SET workflow_id = $1, source_node_id = $2, target_node_id = $3 WHERE id = $4",
			edge.WorkflowID, edge.SourceNodeID, edge.TargetNodeID, edge.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update edge: %w", err)
		}
	} else {
		// Insert new edge
		_, err = s.db.Exec(
			"INSERT INTO workflow_edges (id, workflow_id, source_node_id, target_node_id, created_at) VALUES ($1, $2, $3, $4, $5)",
			edge.ID, edge.WorkflowID, edge.SourceNodeID, edge.TargetNodeID, edge.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert edge: %w", err)
		}
	}

	return nil
}

// GetEdge retrieves an edge by ID
func (s *PostgreSQLWorkflowStore) GetEdge(edgeID string) (models.Edge, error) {
	var edge models.Edge

	err := s.db.QueryRow(
		"SELECT id, workflow_id, source_node_id, target_node_id, created_at FROM workflow_edges WHERE id = $1",
		edgeID,
	).Scan(
		&edge.ID,
		&edge.WorkflowID,
		&edge.SourceNodeID,
		&edge.TargetNodeID,
		&edge.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return models.Edge{}, ErrEdgeNotFound
		}
		return models.Edge{}, fmt.Errorf("failed to get edge: %w", err)
	}

	return edge, nil
}

// ListEdges returns all edges of a workflow in creation order
func (s *PostgreSQLWorkflowStore) ListEdges(workflowID string) ([]models.Edge, error) {
	rows, err := s.db.Query(
		"SELECT id, workflow_id, source_node_id, target_node_id, created_at FROM workflow_edges WHERE workflow_id = $1 ORDER BY seq ASC",
		workflowID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}
	defer rows.Close()

	edges := make([]models.Edge, 0)
	for rows.Next() {
		var edge models.Edge

		if err := rows.Scan(
			&edge.ID,
			&edge.WorkflowID,
			&edge.SourceNodeID,
			&edge.TargetNodeID,
			&edge.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}

		edges = append(edges, edge)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edge rows: %w", err)
	}

	return edges, nil
}

// DeleteEdge removes an edge
func (s *PostgreSQLWorkflowStore) DeleteEdge(edgeID string) error {
	result, err := s.db.Exec("DELETE FROM workflow_edges WHERE id = $1", edgeID)
	if err != nil {
		return fmt.Errorf("failed to delete edge: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrEdgeNotFound
	}

	return nil
}

// PostgreSQLProviderStore implements the ProviderStore interface using PostgreSQL
type PostgreSQLProviderStore struct {
	db *sql.DB
}

// NewPostgreSQLProviderStore creates a new PostgreSQL provider store
func NewPostgreSQLProviderStore(db *sql.DB) *PostgreSQLProviderStore {
	return &PostgreSQLProviderStore{
		db: db,
	}
}

// Initialize creates the PostgreSQL tables if they don't exist
func (s *PostgreSQLProviderStore) Initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS llm_providers (
			id BIGSERIAL PRIMARY KEY,
			account_id TEXT NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			base_url TEXT NOT NULL,
			config JSONB,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS llm_providers_account_id_idx ON llm_providers (account_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to create llm providers table: %w", err)
	}

	return nil
}

// SaveProvider persists a provider, assigning an ID when zero
func (s *PostgreSQLProviderStore) SaveProvider(provider models.Provider) (models.Provider, error) {
	var configJSON []byte
	var err error
	if provider.Config != nil {
		configJSON, err = json.Marshal(provider.Config)
		if err != nil {
			return models.Provider{}, fmt.Errorf("failed to marshal provider config: %w", err)
		}
	}

	if provider.ID == 0 {
		// Insert new provider; the database assigns the ID
		err = s.db.QueryRow(
			"INSERT INTO llm_providers (account_id, name, type, base_url, config, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id",
			provider.AccountID, provider.Name, string(provider.Type), provider.BaseURL, configJSON, provider.CreatedAt, provider.UpdatedAt,
		).Scan(&provider.ID)
		if err != nil {
			return models.Provider{}, fmt.Errorf("failed to insert provider: %w", err)
		}
	} else {
		// Update existing provider
		_, err = s.db.Exec(
			"UPDATE llm_providers SET account_id = $1, name = $2, type = $3, base_url = $4, config = $5, updated_at = $6 WHERE id = $7",
			provider.AccountID, provider.Name, string(provider.Type), provider.BaseURL, configJSON, provider.UpdatedAt, provider.ID,
		)
		if err != nil {
			return models.Provider{}, fmt.Errorf("failed to update provider: %w", err)
		}
	}

	return provider, nil
}

// GetProvider retrieves a provider scoped to its owner account
func (s *PostgreSQLProviderStore) GetProvider(accountID string, providerID int64) (models.Provider, error) {
	var provider models.Provider
	var providerType string
	var configJSON []byte

	err := s.db.QueryRow(
		"SELECT id, account_id, name, type, base_url, config, created_at, updated_at FROM llm_providers WHERE account_id = $1 AND id = $2",
		accountID, providerID,
	).Scan(
		&provider.ID,
		&provider.AccountID,
		&provider.Name,
		&providerType,
		&provider.BaseURL,
		&configJSON,
		&provider.CreatedAt,
		&provider.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return models.Provider{}, ErrProviderNotFound
		}
		return models.Provider{}, fmt.Errorf("failed to get provider: %w", err)
	}

	provider.Type = models.ProviderType(providerType)
	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &provider.Config); err != nil {
			return models.Provider{}, fmt.Errorf("failed to unmarshal provider config: %w", err)
		}
	}

	return provider, nil
}

// ListProviders returns all providers for an account
func (s *PostgreSQLProviderStore) ListProviders(accountID string) ([]models.Provider, error) {
	rows, err := s.db.Query(
		"SELECT id, account_id, name, type, base_url, config, created_at, updated_at FROM llm_providers WHERE account_id = $1 ORDER BY id ASC",
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	providers := make([]models.Provider, 0)
	for rows.Next() {
		var provider models.Provider
		var providerType string
		var configJSON []byte

		if err := rows.Scan(
			&provider.ID,
			&provider.AccountID,
			&provider.Name,
			&providerType,
			&provider.BaseURL,
			&configJSON,
			&provider.CreatedAt,
			&provider.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}

		provider.Type = models.ProviderType(providerType)
		if len(configJSON) > 0 {
			if err := json.Unmarshal(configJSON, &provider.Config); err != nil {
				return nil, fmt.Errorf("failed to unmarshal provider config: %w", err)
			}
		}

		providers = append(providers, provider)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating provider rows: %w", err)
	}

	return providers, nil
}

// DeleteProvider removes a provider
func (s *PostgreSQLProviderStore) DeleteProvider(accountID string, providerID int64) error {
	result, err := s.db.Exec(
		"DELETE FROM llm_providers WHERE account_id = $1 AND id = $2",
		accountID, providerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete provider: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProviderNotFound
	}

	return nil
}

// PostgreSQLExecutionStore implements the ExecutionStore interface using PostgreSQL
type PostgreSQLExecutionStore struct {
	db *sql.DB
}

// NewPostgreSQLExecutionStore creates a new PostgreSQL execution store
func NewPostgreSQLExecutionStore(db *sql.DB) *PostgreSQLExecutionStore {
	return &PostgreSQLExecutionStore{
		db: db,
	}
}

// Initialize creates the PostgreSQL tables if they don't exist
func (s *PostgreSQLExecutionStore) Initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL,
			account_id TEXT NOT NULL,
			status TEXT NOT NULL,
			input_data JSONB,
			output_data JSONB,
			error TEXT,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS executions_workflow_id_idx ON executions (workflow_id);
		CREATE INDEX IF NOT EXISTS executions_account_id_idx ON executions (account_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to create executions table: %w", err)
	}

	return nil
}

// SaveExecution persists an execution record
func (s *PostgreSQLExecutionStore) SaveExecution(execution models.Execution) error {
	inputJSON, err := json.Marshal(execution.InputData)
	if err != nil {
		return fmt.Errorf("failed to marshal execution input: %w", err)
	}

	var outputJSON []byte
	if execution.OutputData != nil {
		outputJSON, err = json.Marshal(execution.OutputData)
		if err != nil {
			return fmt.Errorf("failed to marshal execution output: %w", err)
		}
	}

	// Check if execution already exists
	var exists bool
	err = s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM executions WHERE id = $1)", execution.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check if execution exists: %w", err)
	}

	if exists {
		// Update existing execution
		_, err = s.db.Exec(
			`UPDATE executions SET
				workflow_id = $1,
				account_id = $2,
				status = $3,
				input_data = $4,
				output_data = $5,
				error = $6,
				started_at = $7,
				finished_at = $8
			WHERE id = $9`,
			execution.WorkflowID,
			execution.AccountID,
			string(execution.Status),
			inputJSON,
			outputJSON,
			execution.Error,
			execution.StartedAt,
			execution.FinishedAt,
			execution.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update execution: %w", err)
		}
	} else {
		// Insert new execution
		_, err = s.db.Exec(
			`INSERT INTO executions (
				id,
				workflow_id,
				account_id,
				status,
				input_data,
				output_data,
				error,
				started_at,
				finished_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			execution.ID,
			execution.WorkflowID,
			execution.AccountID,
			string(execution.Status),
			inputJSON,
			outputJSON,
			execution.Error,
			execution.StartedAt,
			execution.FinishedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert execution: %w", err)
		}
	}

	return nil
}

// GetExecution retrieves an execution record
func (s *PostgreSQLExecutionStore) GetExecution(executionID string) (models.Execution, error) {
	var execution models.Execution
	var status string
	var inputJSON, outputJSON []byte
	var errorText sql.NullString
	var finishedAt sql.NullTime

	err := s.db.QueryRow(
		`SELECT
			id,
			workflow_id,
			account_id,
			status,
			input_data,
			output_data,
			error,
			started_at,
			finished_at
		FROM executions WHERE id = $1`,
		executionID,
	).Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.AccountID,
		&status,
		&inputJSON,
		&outputJSON,
		&errorText,
		&execution.StartedAt,
		&finishedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return models.Execution{}, ErrExecutionNotFound
		}
		return models.Execution{}, fmt.Errorf("failed to get execution: %w", err)
	}

	execution.Status = models.ExecutionStatus(status)
	if errorText.Valid {
		execution.Error = errorText.String
	}
	if finishedAt.Valid {
		execution.FinishedAt = &finishedAt.Time
	}
	if len(inputJSON) > 0 {
		if err := json.Unmarshal(inputJSON, &execution.InputData); err != nil {
			return models.Execution{}, fmt.Errorf("failed to unmarshal execution input: %w", err)
		}
	}
	if len(outputJSON) > 0 {
		if err := json.Unmarshal(outputJSON, &execution.OutputData); err != nil {
			return models.Execution{}, fmt.Errorf("failed to unmarshal execution output: %w", err)
		}
	}

	return execution, nil
}

// ListExecutions returns all executions for a workflow
func (s *PostgreSQLExecutionStore) ListExecutions(workflowID string) ([]models.Execution, error) {
	rows, err := s.db.Query(
		`SELECT
			id,
			workflow_id,
			account_id,
			status,
			input_data,
			output_data,
			error,
			started_at,
			finished_at
		FROM executions WHERE workflow_id = $1
		ORDER BY started_at ASC`,
		workflowID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	defer rows.Close()

	executions := make([]models.Execution, 0)
	for rows.Next() {
		var execution models.Execution
		var status string
		var inputJSON, outputJSON []byte
		var errorText sql.NullString
		var finishedAt sql.NullTime

		if err := rows.Scan(
			&execution.ID,
			&execution.WorkflowID,
			&execution.AccountID,
			&status,
			&inputJSON,
			&outputJSON,
			&errorText,
			&execution.StartedAt,
			&finishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		execution.Status = models.ExecutionStatus(status)
		if errorText.Valid {
			execution.Error = errorText.String
		}
		if finishedAt.Valid {
			execution.FinishedAt = &finishedAt.Time
		}
		if len(inputJSON) > 0 {
			if err := json.Unmarshal(inputJSON, &execution.InputData); err != nil {
				return nil, fmt.Errorf("failed to unmarshal execution input: %w", err)
			}
		}
		if len(outputJSON) > 0 {
			if err := json.Unmarshal(outputJSON, &execution.OutputData); err != nil {
				return nil, fmt.Errorf("failed to unmarshal execution output: %w", err)
			}
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution rows: %w", err)
	}

	return executions, nil
}

// PostgreSQLAccountStore implements the AccountStore interface using PostgreSQL
type PostgreSQLAccountStore struct {
	db *sql.DB
}

// NewPostgreSQLAccountStore creates a new PostgreSQL account store
func NewPostgreSQLAccountStore(db *sql.DB) *PostgreSQLAccountStore {
	return &PostgreSQLAccountStore{
		db: db,
	}
}

// Initialize creates the PostgreSQL tables if they don't exist
func (s *PostgreSQLAccountStore) Initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			api_token TEXT UNIQUE NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS accounts_username_idx ON accounts (username);
		CREATE INDEX IF NOT EXISTS accounts_api_token_idx ON accounts (api_token);
	`)
	if err != nil {
		return fmt.Errorf("failed to create accounts table: %w", err)
	}

	return nil
}

// SaveAccount persists an account
func (s *PostgreSQLAccountStore) SaveAccount(account auth.Account) error {
	// Check if account already exists
	var exists bool
	err := s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)", account.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check if account exists: %w", err)
	}

	if exists {
		// Update existing account
		_, err = s.db.Exec(
			"UPDATE accounts SET username = $1, password_hash = $2, api_token = $3, updated_at = $4 WHERE id = $5",
			account.Username,
			account.PasswordHash,
			account.APIToken,
			account.UpdatedAt,
			account.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update account: %w", err)
		}
	} else {
		// Insert new account
		_, err = s.db.Exec(
			"INSERT INTO accounts (id, username, password_hash, api_token, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)",
			account.ID,
			account.Username,
			account.PasswordHash,
			account.APIToken,
			account.CreatedAt,
			account.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert account: %w", err)
		}
	}

	return nil
}

// GetAccount retrieves an account
func (s *PostgreSQLAccountStore) GetAccount(accountID string) (auth.Account, error) {
	var account auth.Account

	err := s.db.QueryRow(
		"SELECT id, username, password_hash, api_token, created_at, updated_at FROM accounts WHERE id = $1",
		accountID,
	).Scan(
		&account.ID,
		&account.Username,
		&account.PasswordHash,
		&account.APIToken,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return auth.Account{}, ErrAccountNotFound
		}
		return auth.Account{}, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// GetAccountByUsername retrieves an account by username
func (s *PostgreSQLAccountStore) GetAccountByUsername(username string) (auth.Account, error) {
	var account auth.Account

	err := s.db.QueryRow(
		"SELECT id, username, password_hash, api_token, created_at, updated_at FROM accounts WHERE username = $1",
		username,
	).Scan(
		&account.ID,
		&account.Username,
		&account.PasswordHash,
		&account.APIToken,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return auth.Account{}, ErrAccountNotFound
		}
		return auth.Account{}, fmt.Errorf("failed to get account by username: %w", err)
	}

	return account, nil
}

// GetAccountByToken retrieves an account by API token
func (s *PostgreSQLAccountStore) GetAccountByToken(token string) (auth.Account, error) {
	var account auth.Account

	err := s.db.QueryRow(
		"SELECT id, username, password_hash, api_token, created_at, updated_at FROM accounts WHERE api_token = $1",
		token,
	).Scan(
		&account.ID,
		&account.Username,
		&account.PasswordHash,
		&account.APIToken,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return auth.Account{}, ErrAccountNotFound
		}
		return auth.Account{}, fmt.Errorf("failed to get account by token: %w", err)
	}

	return account, nil
}

// ListAccounts returns all accounts
func (s *PostgreSQLAccountStore) ListAccounts() ([]auth.Account, error) {
	rows, err := s.db.Query(
		"SELECT id, username, password_hash, api_token, created_at, updated_at FROM accounts",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []auth.Account
	for rows.Next() {
		var account auth.Account

		if err := rows.Scan(
			&account.ID,
			&account.Username,
			&account.PasswordHash,
			&account.APIToken,
			&account.CreatedAt,
			&account.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}

		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}

	return accounts, nil
}

// DeleteAccount removes an account
func (s *PostgreSQLAccountStore) DeleteAccount(accountID string) error {
	result, err := s.db.Exec(
		"DELETE FROM accounts WHERE id = $1",
		accountID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrAccountNotFound
	}

	return nil
}
