package storage

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/aws/aws-sdk-go/service/dynamodb/expression"

	"github.com/ahartwell/graphrunner/pkg/auth"
	"github.com/ahartwell/graphrunner/pkg/models"
)

// DynamoDBProvider implements the StorageProvider interface using DynamoDB
type DynamoDBProvider struct {
	client         dynamodbiface.DynamoDBAPI
	accountStore   *DynamoDBAccountStore
	workflowStore  *DynamoDBWorkflowStore
	providerStore  *DynamoDBProviderStore
	executionStore *DynamoDBExecutionStore
	tablePrefix    string
}

// DynamoDBProviderConfig contains configuration for the DynamoDB provider
type DynamoDBProviderConfig struct {
	Region      string
	AccessKey   string
	SecretKey   string
	TablePrefix string
	Endpoint    string // Optional, for local DynamoDB
}

// NewDynamoDBProvider creates a new DynamoDB storage provider
func NewDynamoDBProvider(config DynamoDBProviderConfig) (*DynamoDBProvider, error) {
	// Create AWS session
	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
	}

	// Set credentials if provided
	if config.AccessKey != "" && config.SecretKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"",
		)
	}

	// Set endpoint for local DynamoDB if provided
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	client := dynamodb.New(sess)

	return NewDynamoDBProviderWithClient(client, config.TablePrefix), nil
}

// NewDynamoDBProviderWithClient creates a new DynamoDB storage provider with a custom client.
// This is primarily used for testing with mock clients.
func NewDynamoDBProviderWithClient(client dynamodbiface.DynamoDBAPI, tablePrefix string) *DynamoDBProvider {
	provider := &DynamoDBProvider{
		client:      client,
		tablePrefix: tablePrefix,
	}

	provider.accountStore = NewDynamoDBAccountStore(client, tablePrefix)
	provider.workflowStore = NewDynamoDBWorkflowStore(client, tablePrefix)
	provider.providerStore = NewDynamoDBProviderStore(client, tablePrefix)
	provider.executionStore = NewDynamoDBExecutionStore(client, tablePrefix)

	return provider
}

// Initialize sets up the storage backend
func (p *DynamoDBProvider) Initialize() error {
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
func (p *DynamoDBProvider) Close() error {
	// Nothing to close for DynamoDB client
	return nil
}

// GetAccountStore returns a store for account data
func (p *DynamoDBProvider) GetAccountStore() AccountStore {
	return p.accountStore
}

// GetWorkflowStore returns a store for workflows, nodes and edges
func (p *DynamoDBProvider) GetWorkflowStore() WorkflowStore {
	return p.workflowStore
}

// GetProviderStore returns a store for LLM provider configurations
func (p *DynamoDBProvider) GetProviderStore() ProviderStore {
	return p.providerStore
}

// GetExecutionStore returns a store for execution records
func (p *DynamoDBProvider) GetExecutionStore() ExecutionStore {
	return p.executionStore
}

// ensureTable creates a DynamoDB table with the given schema if it doesn't exist
func ensureTable(client dynamodbiface.DynamoDBAPI, tableName string, attributes []*dynamodb.AttributeDefinition, keySchema []*dynamodb.KeySchemaElement) error {
	// Check if table exists
	_, err := client.DescribeTable(&dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	})

	if err == nil {
		// Table exists
		return nil
	}

	// Check if error is "table not found"
	if aerr, ok := err.(awserr.Error); ok && aerr.Code() == dynamodb.ErrCodeResourceNotFoundException {
		_, err = client.CreateTable(&dynamodb.CreateTableInput{
			TableName:            aws.String(tableName),
			AttributeDefinitions: attributes,
			KeySchema:            keySchema,
			BillingMode:          aws.String("PAY_PER_REQUEST"),
		})
		if err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}

		// Wait for table to be created
		err = client.WaitUntilTableExists(&dynamodb.DescribeTableInput{
			TableName: aws.String(tableName),
		})
		if err != nil {
			return fmt.Errorf("failed to wait for table creation: %w", err)
		}

		return nil
	}

	return fmt.Errorf("failed to check if table exists: %w", err)
}

// DynamoDBWorkflowStore implements the WorkflowStore interface using DynamoDB
type DynamoDBWorkflowStore struct {
	client         dynamodbiface.DynamoDBAPI
	workflowsTable string
	nodesTable     string
	edgesTable     string
}

// NewDynamoDBWorkflowStore creates a new DynamoDB workflow store
func NewDynamoDBWorkflowStore(client dynamodbiface.DynamoDBAPI, tablePrefix string) *DynamoDBWorkflowStore {
	return &DynamoDBWorkflowStore{
		client:         client,
		workflowsTable: tablePrefix + "workflows",
		nodesTable:     tablePrefix + "workflow_nodes",
		edgesTable:     tablePrefix + "workflow_edges",
	}
}

// workflowItem is the DynamoDB representation of a workflow
type workflowItem struct {
	ID          string `dynamodbav:"ID"`
	AccountID   string `dynamodbav:"AccountID"`
	Name        string `dynamodbav:"Name"`
	Description string `dynamodbav:"Description"`
	CreatedAt   int64  `dynamodbav:"CreatedAt"`
	UpdatedAt   int64  `dynamodbav:"UpdatedAt"`
}

// nodeItem is the DynamoDB representation of a node. Data is stored as a
// JSON string; Seq preserves creation order within the workflow.
type nodeItem struct {
	ID         string `dynamodbav:"ID"`
	WorkflowID string `dynamodbav:"WorkflowID"`
	Type       string `dynamodbav:"Type"`
	Data       string `dynamodbav:"Data"`
	Seq        int64  `dynamodbav:"Seq"`
	CreatedAt  int64  `dynamodbav:"CreatedAt"`
	UpdatedAt  int64  `dynamodbav:"UpdatedAt"`
}

// edgeItem is the DynamoDB representation of an edge
type edgeItem struct {
	ID           string `dynamodbav:"ID"`
	WorkflowID   string `dynamodbav:"WorkflowID"`
	SourceNodeID string `dynamodbav:"SourceNodeID"`
	TargetNodeID string `dynamodbav:"TargetNodeID"`
	Seq          int64  `dynamodbav:"Seq"`
	CreatedAt    int64  `dynamodbav:"CreatedAt"`
}

// Initialize creates the DynamoDB tables if they don't exist
func (s *DynamoDBWorkflowStore) Initialize() error {
	idKey := []*dynamodb.AttributeDefinition{
		{
			AttributeName: aws.String("ID"),
			AttributeType: aws.String("S"),
		},
	}
	idSchema := []*dynamodb.KeySchemaElement{
		{
			AttributeName: aws.String("ID"),
			KeyType:       aws.String("HASH"),
		},
	}

	if err := ensureTable(s.client, s.workflowsTable, idKey, idSchema); err != nil {
		return err
	}
	if err := ensureTable(s.client, s.nodesTable, idKey, idSchema); err != nil {
		return err
	}
	if err := ensureTable(s.client, s.edgesTable, idKey, idSchema); err != nil {
		return err
	}

	return nil
}

// SaveWorkflow persists a workflow
func (s *DynamoDBWorkflowStore) SaveWorkflow(workflow models.Workflow) error {
	item, err := dynamodbattribute.MarshalMap(workflowItem{
		ID:          workflow.ID,
		AccountID:   workflow.AccountID,
		Name:        workflow.Name,
		Description: workflow.Description,
		CreatedAt:   workflow.CreatedAt.UnixNano(),
		UpdatedAt:   workflow.UpdatedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}

	_, err = s.client.PutItem(&dynamodb.PutItemInput{
		TableName: aws.String(s.workflowsTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}

	return nil
}

// GetWorkflow retrieves a workflow scoped to its owner account
func (s *DynamoDBWorkflowStore) GetWorkflow(accountID, workflowID string) (models.Workflow, error) {
	result, err := s.client.GetItem(&dynamodb.GetItemInput{
		TableName: aws.String(s.workflowsTable),
		Key: map[string]*dynamodb.AttributeValue{
			"ID": {S: aws.String(workflowID)},
		},
	})
	if err != nil {
		return models.Workflow{}, fmt.Errorf("failed to get workflow: %w", err)
	}

	if result.Item == nil {
		return models.Workflow{}, ErrWorkflowNotFound
	}

	var item workflowItem
	if err := dynamodbattribute.UnmarshalMap(result.Item, &item); err != nil {
		return models.Workflow{}, fmt.Errorf("failed to unmarshal workflow: %w", err)
	}

	if item.AccountID != accountID {
		return models.Workflow{}, ErrWorkflowNotFound
	}

	return workflowFromItem(item), nil
}

// ListWorkflows returns all workflows for an account
func (s *DynamoDBWorkflowStore) ListWorkflows(accountID string) ([]models.Workflow, error) {
	filter := expression.Name("AccountID").Equal(expression.Value(accountID))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build filter expression: %w", err)
	}

	result, err := s.client.Scan(&dynamodb.ScanInput{
		TableName:                 aws.String(s.workflowsTable),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	var items []workflowItem
	if err := dynamodbattribute.UnmarshalListOfMaps(result.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflows: %w", err)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt < items[j].CreatedAt })

	workflows := make([]models.Workflow, 0, len(items))
	for _, item := range items {
		workflows = append(workflows, workflowFromItem(item))
	}

	return workflows, nil
}

// DeleteWorkflow removes a workflow with its nodes and edges
func (s *DynamoDBWorkflowStore) DeleteWorkflow(accountID, workflowID string) error {
	// Ownership check first
	if _, err := s.GetWorkflow(accountID, workflowID); err != nil {
		return err
	}

	_, err := s.client.DeleteItem(&dynamodb.DeleteItemInput{
		TableName: aws.String(s.workflowsTable),
		Key: map[string]*dynamodb.AttributeValue{
			"ID": {S: aws.String(workflowID)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	// Delete nodes and edges belonging to the workflow
	nodes, err := s.ListNodes(workflowID)
	if err != nil {
		return err
	}
	for _, node := range nodes {
		if err := s.DeleteNode(node.ID); err != nil {
			return err
		}
	}

	edges, err := s.ListEdges(workflowID)
	if err != nil {
		return err
	}
	for _, edge := range edges {
		if err := s.DeleteEdge(edge.ID); err != nil {
			return err
		}
	}

	return nil
}

// SaveNode persists a node
func (s *DynamoDBWorkflowStore) SaveNode(node models.Node) error {
	dataJSON, err := json.Marshal(node.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal node data: %w", err)
	}

	item, err := dynamodbattribute.MarshalMap(nodeItem{
		ID:         node.ID,
		WorkflowID: node.WorkflowID,
		Type:       string(node.Type),
		Data:       string(dataJSON),
		Seq:        node.CreatedAt.UnixNano(),
		CreatedAt:  node.CreatedAt.UnixNano(),
		UpdatedAt:  node.UpdatedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal node: %w", err)
	}

	_, err = s.client.PutItem(&dynamodb.PutItemInput{
		TableName: aws.String(s.nodesTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save node: %w", err)
	}

	return nil
}

// GetNode retrieves a node by ID
func (s *DynamoDBWorkflowStore) GetNode(nodeID string) (models.Node, error) {
	result, err := s.client.GetItem(&dynamodb.GetItemInput{
		TableName: aws.String(s.nodesTable),
		Key: map[string]*dynamodb.AttributeValue{
			"ID": {S: aws.String(nodeID)},
		},
	})
	if err != nil {
		return models.Node{}, fmt.Errorf("failed to get node: %w", err)
	}

	if result.Item == nil {
		return models.Node{}, ErrNodeNotFound
	}

	var item nodeItem
	if err := dynamodbattribute.UnmarshalMap(result.Item, &item); err != nil {
		return models.Node{}, fmt.Errorf("failed to unmarshal node: %w", err)
	}

	return nodeFromItem(item)
}

// ListNodes returns all nodes of a workflow in creation order
func (s *DynamoDBWorkflowStore) ListNodes(workflowID string) ([]models.Node, error) {
	filter := expression.Name("WorkflowID").Equal(expression.Value(workflowID))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build filter expression: %w", err)
	}

	result, err := s.client.Scan(&dynamodb.ScanInput{
		TableName:                 aws.String(s.nodesTable),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	var items []nodeItem
	if err := dynamodbattribute.UnmarshalListOfMaps(result.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Seq < items[j].Seq })

	nodes := make([]models.Node, 0, len(items))
	for _, item := range items {
		node, err := nodeFromItem(item)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	return nodes, nil
}

// DeleteNode removes a node
func (s *DynamoDBWorkflowStore) DeleteNode(nodeID string) error {
	if _, err := s.GetNode(nodeID); err != nil {
		return err
	}

	_, err := s.client.DeleteItem(&dynamodb.DeleteItemInput{
		TableName: aws.String(s.nodesTable),
		Key: map[string]*dynamodb.AttributeValue{
			"ID": {S: aws.String(nodeID)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}

	return nil
}

// SaveEdge persists an edge
func (s *DynamoDBWorkflowStore) SaveEdge(edge models.Edge) error {
	item, err := dynamodbattribute.MarshalMap(edgeItem{
		ID:           edge.ID,
		WorkflowID:   edge.WorkflowID,
		SourceNodeID: edge.SourceNodeID,
		TargetNodeID: edge.TargetNodeID,
		Seq:          edge.CreatedAt.UnixNano(),
		CreatedAt:    edge.CreatedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal edge: %w", err)
	}

	_, err = s.client.PutItem(&dynamodb.PutItemInput{
		TableName: aws.String(s.edgesTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save edge: %w", err)
	}

	return nil
}

// GetEdge retrieves an edge by ID
func (s *DynamoDBWorkflowStore) GetEdge(edgeID string) (models.Edge, error) {
	result, err := s.client.GetItem(&dynamodb.GetItemInput{
		TableName: aws.String(s.edgesTable),
		Key: map[string]*dynamodb.AttributeValue{
			"ID": {S: aws.String(edgeID)},
		},
	})
	if err != nil {
		return models.Edge{}, fmt.Errorf("failed to get edge: %w", err)
	}

	if result.Item == nil {
		return models.Edge{}, ErrEdgeNotFound
	}

	var item edgeItem
	if err := dynamodbattribute.UnmarshalMap(result.Item, &item); err != nil {
		return models.Edge{}, fmt.Errorf("failed to unmarshal edge: %w", err)
	}

	return edgeFromItem(item), nil
}

// ListEdges returns all edges of a workflow in creation order
func (s *DynamoDBWorkflowStore) ListEdges(workflowID string) ([]models.Edge, error) {
	filter := expression.Name("WorkflowID").Equal(expression.Value(workflowID))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build filter expression: %w", err)
	}

	result, err := s.client.Scan(&dynamodb.ScanInput{
		TableName:                 aws.String(s.edgesTable),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}

	var items []edgeItem
	if err := dynamodbattribute.UnmarshalListOfMaps(result.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal edges: %w", err)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Seq < items[j].Seq })

	edges := make([]models.Edge, 0, len(items))
	for _, item := range items {
		edges = append(edges, edgeFromItem(item))
	}

	return edges, nil
}

// DeleteEdge removes an edge
func (s *DynamoDBWorkflowStore) DeleteEdge(edgeID string) error {
	if _, err := s.GetEdge(edgeID); err != nil {
		return err
	}

	_, err := s.client.DeleteItem(&dynamodb.DeleteItemInput{
		TableName: aws.String(s.edgesTable),
		Key: map[string]*dynamodb.AttributeValue{
			"ID": {S: aws.String(edgeID)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete edge: %w", err)
	}

	return nil
}

// DynamoDBProviderStore implements the ProviderStore interface using DynamoDB
type DynamoDBProviderStore struct {
	client    dynamodbiface.DynamoDBAPI
	tableName string
}

// NewDynamoDBProviderStore creates a new DynamoDB provider store
func NewDynamoDBProviderStore(client dynamodbiface.DynamoDBAPI, tablePrefix string) *DynamoDBProviderStore {
	return &DynamoDBProviderStore{
		client:    client,
		tableName: tablePrefix + "llm_providers",
	}
}

// providerItem is the DynamoDB representation of an LLM provider
type providerItem struct {
	ID        int64  `dynamodbav:"ID"`
	AccountID string `dynamodbav:"AccountID"`
	Name      string `dynamodbav:"Name"`
	Type      string `dynamodbav:"Type"`
	BaseURL   string `dynamodbav:"BaseURL"`
	Config    string `dynamodbav:"Config"`
	CreatedAt int64  `dynamodbav:"CreatedAt"`
	UpdatedAt int64  `dynamodbav:"UpdatedAt"`
}

// Initialize creates the DynamoDB tables if they don't exist
func (s *DynamoDBProviderStore) Initialize() error {
	return ensureTable(s.client, s.tableName,
		[]*dynamodb.AttributeDefinition{
			{
				AttributeName: aws.String("ID"),
				AttributeType: aws.String("N"),
			},
		},
		[]*dynamodb.KeySchemaElement{
			{
				AttributeName: aws.String("ID"),
				KeyType:       aws.String("HASH"),
			},
		},
	)
}

// nextProviderID increments and returns the provider ID counter. The
// counter lives in item 0 of the providers table.
func (s *DynamoDBProviderStore) nextProviderID() (int64, error) {
	result, err := s.client.UpdateItem(&dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]*dynamodb.AttributeValue{
			"ID": {N: aws.String("0")},
		},
		UpdateExpression: aws.String("ADD NextID :one"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":one": {N: aws.String("1")},
		},
		ReturnValues: aws.String("UPDATED_NEW"),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to allocate provider ID: %w", err)
	}

	next := result.Attributes["NextID"]
	if next == nil || next.N == nil {
		return 0, fmt.Errorf("failed to allocate provider ID: counter attribute missing")
	}

	var id int64
	if err := dynamodbattribute.Unmarshal(next, &id); err != nil {
		return 0, fmt.Errorf("failed to unmarshal provider ID: %w", err)
	}

	return id, nil
}

// SaveProvider persists a provider, assigning an ID when zero
func (s *DynamoDBProviderStore) SaveProvider(provider models.Provider) (models.Provider, error) {
	if provider.ID == 0 {
		id, err := s.nextProviderID()
		if err != nil {
			return models.Provider{}, err
		}
		provider.ID = id
	}

	var configJSON []byte
	if provider.Config != nil {
		var err error
		configJSON, err = json.Marshal(provider.Config)
		if err != nil {
			return models.Provider{}, fmt.Errorf("failed to marshal provider config: %w", err)
		}
	}

	item, err := dynamodbattribute.MarshalMap(providerItem{
		ID:        provider.ID,
		AccountID: provider.AccountID,
		Name:      provider.Name,
		Type:      string(provider.Type),
		BaseURL:   provider.BaseURL,
		Config:    string(configJSON),
		CreatedAt: provider.CreatedAt.UnixNano(),
		UpdatedAt: provider.UpdatedAt.UnixNano(),
	})
	if err != nil {
		return models.Provider{}, fmt.Errorf("failed to marshal provider: %w", err)
	}

	_, err = s.client.PutItem(&dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return models.Provider{}, fmt.Errorf("failed to save provider: %w", err)
	}

	return provider, nil
}

// GetProvider retrieves a provider scoped to its owner account
func (s *DynamoDBProviderStore) GetProvider(accountID string, providerID int64) (models.Provider, error) {
	result, err := s.client.GetItem(&dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]*dynamodb.AttributeValue{
			"ID": {N: aws.String(fmt.Sprintf("%d", providerID))},
		},
	})
	if err != nil {
		return models.Provider{}, fmt.Errorf("failed to get provider: %w", err)
	}

	if result.Item == nil {
		return models.Provider{}, ErrProviderNotFound
	}

	var item providerItem
	if err := dynamodbattribute.UnmarshalMap(result.Item, &item); err != nil {
		return models.Provider{}, fmt.Errorf("failed to unmarshal provider: %w", err)
	}

	if item.AccountID != accountID {
		return models.Provider{}, ErrProviderNotFound
	}

	return providerFromItem(item)
}

// ListProviders returns all providers for an account
func (s *DynamoDBProviderStore) ListProviders(accountID string) ([]models.Provider, error) {
	filter := expression.Name("AccountID").Equal(expression.Value(accountID))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build filter expression: %w", err)
	}

	result, err := s.client.Scan(&dynamodb.ScanInput{
		TableName:                 aws.String(s.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}

	var items []providerItem
	if err := dynamodbattribute.UnmarshalListOfMaps(result.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal providers: %w", err)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	providers := make([]models.Provider, 0, len(items))
	for _, item := range items {
		provider, err := providerFromItem(item)
		if err != nil {
			return nil, err
		}
		providers = append(providers, provider)
	}

	return providers, nil
}

// DeleteProvider removes a provider
func (s *DynamoDBProviderStore) DeleteProvider(accountID string, providerID int64) error {
	if _, err := s.GetProvider(accountID, providerID); err != nil {
		return err
	}

	_, err := s.client.DeleteItem(&dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]*dynamodb.AttributeValue{
			"ID": {N: aws.String(fmt.Sprintf("%d", providerID))},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete provider: %w", err)
	}

	return nil
}

// DynamoDBExecutionStore implements the ExecutionStore interface using DynamoDB
type DynamoDBExecutionStore struct {
	client    dynamodbiface.DynamoDBAPI
	tableName string
}

// NewDynamoDBExecutionStore creates a new DynamoDB execution store
func NewDynamoDBExecutionStore(client dynamodbiface.DynamoDBAPI, tablePrefix string) *DynamoDBExecutionStore {
	return &DynamoDBExecutionStore{
		client:    client,
		tableName: tablePrefix + "executions",
	}
}

// executionItem is the DynamoDB representation of an execution record
type executionItem struct {
	ID         string `dynamodbav:"ID"`
	WorkflowID string `dynamodbav:"WorkflowID"`
	AccountID  string `dynamodbav:"AccountID"`
	Status     string `dynamodbav:"Status"`
	InputData  string `dynamodbav:"InputData"`
	OutputData string `dynamodbav:"OutputData"`
	Error      string `dynamodbav:"Error"`
	StartedAt  int64  `dynamodbav:"StartedAt"`
	FinishedAt int64  `dynamodbav:"FinishedAt"`
}

// Initialize creates the DynamoDB tables if they don't exist
func (s *DynamoDBExecutionStore) Initialize() error {
	return ensureTable(s.client, s.tableName,
		[]*dynamodb.AttributeDefinition{
			{
				AttributeName: aws.String("ID"),
				AttributeType: aws.String("S"),
			},
		},
		[]*dynamodb.KeySchemaElement{
			{
				AttributeName: aws.String("ID"),
				KeyType:       aws.String("HASH"),
			},
		},
	)
}

// SaveExecution persists an execution record
func (s *DynamoDBExecutionStore) SaveExecution(execution models.Execution) error {
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

	item := executionItem{
		ID:         execution.ID,
		WorkflowID: execution.WorkflowID,
		AccountID:  execution.AccountID,
		Status:     string(execution.Status),
		InputData:  string(inputJSON),
		OutputData: string(outputJSON),
		Error:      execution.Error,
		StartedAt:  execution.StartedAt.UnixNano(),
	}
	if execution.FinishedAt != nil {
		item.FinishedAt = execution.FinishedAt.UnixNano()
	}

	marshaled, err := dynamodbattribute.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal execution: %w", err)
	}

	_, err = s.client.PutItem(&dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      marshaled,
	})
	if err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}

	return nil
}

// GetExecution retrieves an execution record
func (s *DynamoDBExecutionStore) GetExecution(executionID string) (models.Execution, error) {
	result, err := s.client.GetItem(&dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]*dynamodb.AttributeValue{
			"ID": {S: aws.String(executionID)},
		},
	})
	if err != nil {
		return models.Execution{}, fmt.Errorf("failed to get execution: %w", err)
	}

	if result.Item == nil {
		return models.Execution{}, ErrExecutionNotFound
	}

	var item executionItem
	if err := dynamodbattribute.UnmarshalMap(result.Item, &item); err != nil {
		return models.Execution{}, fmt.Errorf("failed to unmarshal execution: %w", err)
	}

	return executionFromItem(item)
}

// ListExecutions returns all executions for a workflow
func (s *DynamoDBExecutionStore) ListExecutions(workflowID string) ([]models.Execution, error) {
	filter := expression.Name("WorkflowID").Equal(expression.Value(workflowID))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build filter expression: %w", err)
	}

	result, err := s.client.Scan(&dynamodb.ScanInput{
		TableName:                 aws.String(s.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	var items []executionItem
	if err := dynamodbattribute.UnmarshalListOfMaps(result.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal executions: %w", err)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].StartedAt < items[j].StartedAt })

	executions := make([]models.Execution, 0, len(items))
	for _, item := range items {
		execution, err := executionFromItem(item)
		if err != nil {
			return nil, err
		}
		executions = append(executions, execution)
	}

	return executions, nil
}

// DynamoDBAccountStore implements the AccountStore interface using DynamoDB
type DynamoDBAccountStore struct {
	client    dynamodbiface.DynamoDBAPI
	tableName string
}

// NewDynamoDBAccountStore creates a new DynamoDB account store
func NewDynamoDBAccountStore(client dynamodbiface.DynamoDBAPI, tablePrefix string) *DynamoDBAccountStore {
	return &DynamoDBAccountStore{
		client:    client,
		tableName: tablePrefix + "accounts",
	}
}

// accountItem is the DynamoDB representation of an account
type accountItem struct {
	ID           string `dynamodbav:"ID"`
	Username     string `dynamodbav:"Username"`
	PasswordHash string `dynamodbav:"PasswordHash"`
	APIToken     string `dynamodbav:"APIToken"`
	CreatedAt    int64  `dynamodbav:"CreatedAt"`
	UpdatedAt    int64  `dynamodbav:"UpdatedAt"`
}

// Initialize creates the DynamoDB tables if they don't exist
func (s *DynamoDBAccountStore) Initialize() error {
	return ensureTable(s.client, s.tableName,
		[]*dynamodb.AttributeDefinition{
			{
				AttributeName: aws.String("ID"),
				AttributeType: aws.String("S"),
			},
		},
		[]*dynamodb.KeySchemaElement{
			{
				AttributeName: aws.String("ID"),
				KeyType:       aws.String("HASH"),
			},
		},
	)
}

// SaveAccount persists an account
func (s *DynamoDBAccountStore) SaveAccount(account auth.Account) error {
	item, err := dynamodbattribute.MarshalMap(accountItem{
		ID:           account.ID,
		Username:     account.Username,
		PasswordHash: account.PasswordHash,
		APIToken:     account.APIToken,
		CreatedAt:    account.CreatedAt.UnixNano(),
		UpdatedAt:    account.UpdatedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	_, err = s.client.PutItem(&dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}

	return nil
}

// GetAccount retrieves an account
func (s *DynamoDBAccountStore) GetAccount(accountID string) (auth.Account, error) {
	result, err := s.client.GetItem(&dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]*dynamodb.AttributeValue{
			"ID": {S: aws.String(accountID)},
		},
	})
	if err != nil {
		return auth.Account{}, fmt.Errorf("failed to get account: %w", err)
	}

	if result.Item == nil {
		return auth.Account{}, ErrAccountNotFound
	}

	var item accountItem
	if err := dynamodbattribute.UnmarshalMap(result.Item, &item); err != nil {
		return auth.Account{}, fmt.Errorf("failed to unmarshal account: %w", err)
	}

	return accountFromItem(item), nil
}

// GetAccountByUsername retrieves an account by username
func (s *DynamoDBAccountStore) GetAccountByUsername(username string) (auth.Account, error) {
	return s.findAccount(expression.Name("Username").Equal(expression.Value(username)))
}

// GetAccountByToken retrieves an account by API token
func (s *DynamoDBAccountStore) GetAccountByToken(token string) (auth.Account, error) {
	return s.findAccount(expression.Name("APIToken").Equal(expression.Value(token)))
}

// findAccount scans for the first account matching the filter
func (s *DynamoDBAccountStore) findAccount(filter expression.ConditionBuilder) (auth.Account, error) {
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return auth.Account{}, fmt.Errorf("failed to build filter expression: %w", err)
	}

	result, err := s.client.Scan(&dynamodb.ScanInput{
		TableName:                 aws.String(s.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return auth.Account{}, fmt.Errorf("failed to scan accounts: %w", err)
	}

	if len(result.Items) == 0 {
		return auth.Account{}, ErrAccountNotFound
	}

	var item accountItem
	if err := dynamodbattribute.UnmarshalMap(result.Items[0], &item); err != nil {
		return auth.Account{}, fmt.Errorf("failed to unmarshal account: %w", err)
	}

	return accountFromItem(item), nil
}

// ListAccounts returns all accounts
func (s *DynamoDBAccountStore) ListAccounts() ([]auth.Account, error) {
	result, err := s.client.Scan(&dynamodb.ScanInput{
		TableName: aws.String(s.tableName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	var items []accountItem
	if err := dynamodbattribute.UnmarshalListOfMaps(result.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal accounts: %w", err)
	}

	accounts := make([]auth.Account, 0, len(items))
	for _, item := range items {
		accounts = append(accounts, accountFromItem(item))
	}

	return accounts, nil
}

// DeleteAccount removes an account
func (s *DynamoDBAccountStore) DeleteAccount(accountID string) error {
	if _, err := s.GetAccount(accountID); err != nil {
		return err
	}

	_, err := s.client.DeleteItem(&dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]*dynamodb.AttributeValue{
			"ID": {S: aws.String(accountID)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	return nil
}
