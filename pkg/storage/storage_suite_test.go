package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahartwell/graphrunner/pkg/auth"
	"github.com/ahartwell/graphrunner/pkg/models"
)

// runStorageSuite exercises the store contract shared by every backend:
// CRUD, owner scoping, and creation-order preservation.
func runStorageSuite(t *testing.T, provider StorageProvider) {
	t.Run("workflows", func(t *testing.T) { testWorkflowStore(t, provider.GetWorkflowStore()) })
	t.Run("providers", func(t *testing.T) { testProviderStore(t, provider.GetProviderStore()) })
	t.Run("executions", func(t *testing.T) { testExecutionStore(t, provider.GetExecutionStore()) })
	t.Run("accounts", func(t *testing.T) { testAccountStore(t, provider.GetAccountStore()) })
}

func testWorkflowStore(t *testing.T, store WorkflowStore) {
	now := time.Now().UTC().Truncate(time.Second)

	workflow := models.Workflow{
		ID:        "suite-wf-1",
		AccountID: "suite-acct-1",
		Name:      "first workflow",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.SaveWorkflow(workflow))

	t.Run("get scoped to owner", func(t *testing.T) {
		got, err := store.GetWorkflow("suite-acct-1", workflow.ID)
		require.NoError(t, err)
		assert.Equal(t, workflow.Name, got.Name)

		_, err = store.GetWorkflow("other-acct", workflow.ID)
		assert.ErrorIs(t, err, ErrWorkflowNotFound)

		_, err = store.GetWorkflow("suite-acct-1", "missing")
		assert.ErrorIs(t, err, ErrWorkflowNotFound)
	})

	t.Run("update in place", func(t *testing.T) {
		workflow.Description = "updated"
		require.NoError(t, store.SaveWorkflow(workflow))

		got, err := store.GetWorkflow("suite-acct-1", workflow.ID)
		require.NoError(t, err)
		assert.Equal(t, "updated", got.Description)

		// An update does not duplicate the listing
		workflows, err := store.ListWorkflows("suite-acct-1")
		require.NoError(t, err)
		assert.Len(t, workflows, 1)
	})

	t.Run("list preserves creation order", func(t *testing.T) {
		second := workflow
		second.ID = "suite-wf-2"
		second.Name = "second workflow"
		require.NoError(t, store.SaveWorkflow(second))

		workflows, err := store.ListWorkflows("suite-acct-1")
		require.NoError(t, err)
		require.Len(t, workflows, 2)
		assert.Equal(t, "suite-wf-1", workflows[0].ID)
		assert.Equal(t, "suite-wf-2", workflows[1].ID)

		require.NoError(t, store.DeleteWorkflow("suite-acct-1", second.ID))
	})

	t.Run("nodes keep creation order", func(t *testing.T) {
		for _, id := range []string{"n-in", "n-llm", "n-out"} {
			require.NoError(t, store.SaveNode(models.Node{
				ID:         id,
				WorkflowID: workflow.ID,
				Type:       models.NodeTypeLLM,
				Data:       map[string]interface{}{"label": id},
				CreatedAt:  now,
				UpdatedAt:  now,
			}))
		}

		nodes, err := store.ListNodes(workflow.ID)
		require.NoError(t, err)
		require.Len(t, nodes, 3)
		assert.Equal(t, "n-in", nodes[0].ID)
		assert.Equal(t, "n-llm", nodes[1].ID)
		assert.Equal(t, "n-out", nodes[2].ID)

		// Updating the middle node must not move it
		middle := nodes[1]
		middle.Data = map[string]interface{}{"label": "renamed"}
		require.NoError(t, store.SaveNode(middle))

		nodes, err = store.ListNodes(workflow.ID)
		require.NoError(t, err)
		require.Len(t, nodes, 3)
		assert.Equal(t, "n-llm", nodes[1].ID)
		assert.Equal(t, "renamed", nodes[1].Data["label"])
	})

	t.Run("edges keep creation order", func(t *testing.T) {
		for _, pair := range [][2]string{{"n-in", "n-llm"}, {"n-llm", "n-out"}} {
			require.NoError(t, store.SaveEdge(models.Edge{
				ID:           pair[0] + "->" + pair[1],
				WorkflowID:   workflow.ID,
				SourceNodeID: pair[0],
				TargetNodeID: pair[1],
				CreatedAt:    now,
			}))
		}

		edges, err := store.ListEdges(workflow.ID)
		require.NoError(t, err)
		require.Len(t, edges, 2)
		assert.Equal(t, "n-in", edges[0].SourceNodeID)
		assert.Equal(t, "n-llm", edges[1].SourceNodeID)
	})

	t.Run("delete node", func(t *testing.T) {
		require.NoError(t, store.DeleteNode("n-llm"))

		_, err := store.GetNode("n-llm")
		assert.ErrorIs(t, err, ErrNodeNotFound)

		nodes, err := store.ListNodes(workflow.ID)
		require.NoError(t, err)
		assert.Len(t, nodes, 2)
	})

	t.Run("delete edge", func(t *testing.T) {
		require.NoError(t, store.DeleteEdge("n-in->n-llm"))

		_, err := store.GetEdge("n-in->n-llm")
		assert.ErrorIs(t, err, ErrEdgeNotFound)
	})

	t.Run("delete workflow cascades", func(t *testing.T) {
		require.NoError(t, store.DeleteWorkflow("suite-acct-1", workflow.ID))

		_, err := store.GetWorkflow("suite-acct-1", workflow.ID)
		assert.ErrorIs(t, err, ErrWorkflowNotFound)

		nodes, err := store.ListNodes(workflow.ID)
		require.NoError(t, err)
		assert.Empty(t, nodes)

		edges, err := store.ListEdges(workflow.ID)
		require.NoError(t, err)
		assert.Empty(t, edges)
	})
}

func testProviderStore(t *testing.T, store ProviderStore) {
	first, err := store.SaveProvider(models.Provider{
		AccountID: "suite-acct-1",
		Name:      "Ollama A",
		Type:      models.ProviderTypeOllama,
		BaseURL:   "http://a.localhost:11434",
	})
	require.NoError(t, err)
	assert.Greater(t, first.ID, int64(0))

	second, err := store.SaveProvider(models.Provider{
		AccountID: "suite-acct-1",
		Name:      "Ollama B",
		Type:      models.ProviderTypeOllama,
		BaseURL:   "http://b.localhost:11434",
	})
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	t.Run("get scoped to owner", func(t *testing.T) {
		got, err := store.GetProvider("suite-acct-1", first.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ollama A", got.Name)

		_, err = store.GetProvider("other-acct", first.ID)
		assert.ErrorIs(t, err, ErrProviderNotFound)
	})

	t.Run("update keeps the assigned ID", func(t *testing.T) {
		first.Name = "Ollama A renamed"
		updated, err := store.SaveProvider(first)
		require.NoError(t, err)
		assert.Equal(t, first.ID, updated.ID)

		providers, err := store.ListProviders("suite-acct-1")
		require.NoError(t, err)
		require.Len(t, providers, 2)
		assert.Equal(t, "Ollama A renamed", providers[0].Name)
		assert.Equal(t, "Ollama B", providers[1].Name)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.DeleteProvider("suite-acct-1", second.ID))

		_, err := store.GetProvider("suite-acct-1", second.ID)
		assert.ErrorIs(t, err, ErrProviderNotFound)

		err = store.DeleteProvider("suite-acct-1", second.ID)
		assert.ErrorIs(t, err, ErrProviderNotFound)

		require.NoError(t, store.DeleteProvider("suite-acct-1", first.ID))
	})
}

func testExecutionStore(t *testing.T, store ExecutionStore) {
	started := time.Now().UTC().Truncate(time.Second)

	first := models.Execution{
		ID:         "suite-exec-1",
		WorkflowID: "suite-wf-exec",
		AccountID:  "suite-acct-1",
		Status:     models.ExecutionStatusRunning,
		InputData:  map[string]interface{}{"value": "one"},
		StartedAt:  started,
	}
	require.NoError(t, store.SaveExecution(first))

	second := first
	second.ID = "suite-exec-2"
	second.InputData = map[string]interface{}{"value": "two"}
	second.StartedAt = started.Add(time.Second)
	require.NoError(t, store.SaveExecution(second))

	t.Run("get", func(t *testing.T) {
		got, err := store.GetExecution(first.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ExecutionStatusRunning, got.Status)
		assert.Equal(t, map[string]interface{}{"value": "one"}, got.InputData)

		_, err = store.GetExecution("missing")
		assert.ErrorIs(t, err, ErrExecutionNotFound)
	})

	t.Run("terminal update", func(t *testing.T) {
		finished := started.Add(2 * time.Second)
		first.Status = models.ExecutionStatusSuccess
		first.OutputData = map[string]interface{}{"value": "result"}
		first.FinishedAt = &finished
		require.NoError(t, store.SaveExecution(first))

		got, err := store.GetExecution(first.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ExecutionStatusSuccess, got.Status)
		assert.Equal(t, map[string]interface{}{"value": "result"}, got.OutputData)
		require.NotNil(t, got.FinishedAt)
		assert.True(t, got.FinishedAt.Equal(finished))
	})

	t.Run("list preserves creation order", func(t *testing.T) {
		executions, err := store.ListExecutions("suite-wf-exec")
		require.NoError(t, err)
		require.Len(t, executions, 2)
		assert.Equal(t, first.ID, executions[0].ID)
		assert.Equal(t, second.ID, executions[1].ID)
	})
}

func testAccountStore(t *testing.T, store AccountStore) {
	now := time.Now().UTC().Truncate(time.Second)

	account := auth.Account{
		ID:           "suite-acct-store-1",
		Username:     "suite-user",
		PasswordHash: "hash",
		APIToken:     "token-1234",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, store.SaveAccount(account))

	t.Run("lookups", func(t *testing.T) {
		got, err := store.GetAccount(account.ID)
		require.NoError(t, err)
		assert.Equal(t, "suite-user", got.Username)

		got, err = store.GetAccountByUsername("suite-user")
		require.NoError(t, err)
		assert.Equal(t, account.ID, got.ID)

		got, err = store.GetAccountByToken("token-1234")
		require.NoError(t, err)
		assert.Equal(t, account.ID, got.ID)

		_, err = store.GetAccountByUsername("nobody")
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.DeleteAccount(account.ID))

		_, err := store.GetAccount(account.ID)
		assert.ErrorIs(t, err, ErrAccountNotFound)

		_, err = store.GetAccountByUsername("suite-user")
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}
