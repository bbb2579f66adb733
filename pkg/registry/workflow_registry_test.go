package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahartwell/graphrunner/pkg/models"
	"github.com/ahartwell/graphrunner/pkg/runtime"
	"github.com/ahartwell/graphrunner/pkg/storage"
)

func newTestRegistry(t *testing.T) (*WorkflowRegistry, storage.StorageProvider) {
	t.Helper()

	provider := storage.NewMemoryProvider()
	require.NoError(t, provider.Initialize())

	return NewWorkflowRegistry(provider.GetWorkflowStore(), provider.GetProviderStore()), provider
}

func seedProvider(t *testing.T, provider storage.StorageProvider, accountID string) models.Provider {
	t.Helper()

	now := time.Now().UTC()
	saved, err := provider.GetProviderStore().SaveProvider(models.Provider{
		AccountID: accountID,
		Name:      "Local Ollama",
		Type:      models.ProviderTypeOllama,
		BaseURL:   "http://localhost:11434",
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)

	return saved
}

func TestCreateWorkflow(t *testing.T) {
	registry, _ := newTestRegistry(t)

	workflow, err := registry.CreateWorkflow("acct-1", "My Workflow", "a description")
	require.NoError(t, err)
	assert.NotEmpty(t, workflow.ID)
	assert.Equal(t, "acct-1", workflow.AccountID)
	assert.Equal(t, "My Workflow", workflow.Name)

	t.Run("empty name rejected", func(t *testing.T) {
		_, err := registry.CreateWorkflow("acct-1", "", "")
		assert.ErrorIs(t, err, ErrWorkflowNameEmpty)
	})
}

func TestGetWorkflow_OwnershipEnforced(t *testing.T) {
	registry, _ := newTestRegistry(t)

	workflow, err := registry.CreateWorkflow("acct-1", "Mine", "")
	require.NoError(t, err)

	_, err = registry.GetWorkflow("acct-2", workflow.ID)
	assert.ErrorIs(t, err, storage.ErrWorkflowNotFound)
}

func TestUpdateWorkflow(t *testing.T) {
	registry, _ := newTestRegistry(t)

	workflow, err := registry.CreateWorkflow("acct-1", "Original", "original description")
	require.NoError(t, err)

	t.Run("rename", func(t *testing.T) {
		updated, err := registry.UpdateWorkflow("acct-1", workflow.ID, "Renamed", "new description")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Name)
		assert.Equal(t, "new description", updated.Description)
	})

	t.Run("empty name keeps existing", func(t *testing.T) {
		updated, err := registry.UpdateWorkflow("acct-1", workflow.ID, "", "only description")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Name)
		assert.Equal(t, "only description", updated.Description)
	})

	t.Run("ownership enforced", func(t *testing.T) {
		_, err := registry.UpdateWorkflow("acct-2", workflow.ID, "Stolen", "")
		assert.ErrorIs(t, err, storage.ErrWorkflowNotFound)
	})
}

func TestAddNode(t *testing.T) {
	registry, provider := newTestRegistry(t)
	llmProvider := seedProvider(t, provider, "acct-1")

	workflow, err := registry.CreateWorkflow("acct-1", "Graph", "")
	require.NoError(t, err)

	t.Run("valid input node", func(t *testing.T) {
		node, err := registry.AddNode("acct-1", workflow.ID, models.NodeTypeInput, map[string]interface{}{
			"label": "Input",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, node.ID)
		assert.Equal(t, models.NodeTypeInput, node.Type)
	})

	t.Run("invalid node type", func(t *testing.T) {
		_, err := registry.AddNode("acct-1", workflow.ID, "cron", map[string]interface{}{
			"label": "Cron",
		})
		assert.ErrorIs(t, err, ErrInvalidNodeType)
	})

	t.Run("catalog validation applied", func(t *testing.T) {
		_, err := registry.AddNode("acct-1", workflow.ID, models.NodeTypeInput, map[string]interface{}{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing required field: 'label'")
	})

	t.Run("llm node requires existing provider", func(t *testing.T) {
		_, err := registry.AddNode("acct-1", workflow.ID, models.NodeTypeLLM, map[string]interface{}{
			"label":           "LLM",
			"llm_provider_id": llmProvider.ID + 100,
			"model":           "llama3",
			"system_prompt":   "You are terse.",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "referenced LLM provider does not exist")
		assert.True(t, runtime.IsDomainError(err))
	})

	t.Run("llm node with valid provider", func(t *testing.T) {
		node, err := registry.AddNode("acct-1", workflow.ID, models.NodeTypeLLM, map[string]interface{}{
			"label":           "LLM",
			"llm_provider_id": llmProvider.ID,
			"model":           "llama3",
			"system_prompt":   "You are terse.",
		})
		require.NoError(t, err)
		assert.Equal(t, models.NodeTypeLLM, node.Type)
	})

	t.Run("unknown workflow", func(t *testing.T) {
		_, err := registry.AddNode("acct-1", "missing", models.NodeTypeInput, map[string]interface{}{
			"label": "Input",
		})
		assert.ErrorIs(t, err, storage.ErrWorkflowNotFound)
	})
}

func TestUpdateNode(t *testing.T) {
	registry, _ := newTestRegistry(t)

	workflow, err := registry.CreateWorkflow("acct-1", "Graph", "")
	require.NoError(t, err)

	node, err := registry.AddNode("acct-1", workflow.ID, models.NodeTypeInput, map[string]interface{}{
		"label": "Input",
	})
	require.NoError(t, err)

	t.Run("valid update", func(t *testing.T) {
		updated, err := registry.UpdateNode("acct-1", workflow.ID, node.ID, map[string]interface{}{
			"label": "Renamed Input",
		})
		require.NoError(t, err)
		assert.Equal(t, "Renamed Input", updated.Data["label"])
	})

	t.Run("revalidates against catalog", func(t *testing.T) {
		_, err := registry.UpdateNode("acct-1", workflow.ID, node.ID, map[string]interface{}{
			"label":      "Input",
			"unexpected": true,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected fields")
	})

	t.Run("unknown node", func(t *testing.T) {
		_, err := registry.UpdateNode("acct-1", workflow.ID, "missing", map[string]interface{}{
			"label": "Input",
		})
		assert.ErrorIs(t, err, storage.ErrNodeNotFound)
	})
}

func TestAddEdge(t *testing.T) {
	registry, _ := newTestRegistry(t)

	workflow, err := registry.CreateWorkflow("acct-1", "Graph", "")
	require.NoError(t, err)
	other, err := registry.CreateWorkflow("acct-1", "Other", "")
	require.NoError(t, err)

	input, err := registry.AddNode("acct-1", workflow.ID, models.NodeTypeInput, map[string]interface{}{"label": "Input"})
	require.NoError(t, err)
	output, err := registry.AddNode("acct-1", workflow.ID, models.NodeTypeOutput, map[string]interface{}{"label": "Output"})
	require.NoError(t, err)
	foreign, err := registry.AddNode("acct-1", other.ID, models.NodeTypeInput, map[string]interface{}{"label": "Foreign"})
	require.NoError(t, err)

	t.Run("valid edge", func(t *testing.T) {
		edge, err := registry.AddEdge("acct-1", workflow.ID, input.ID, output.ID)
		require.NoError(t, err)
		assert.Equal(t, input.ID, edge.SourceNodeID)
		assert.Equal(t, output.ID, edge.TargetNodeID)
	})

	t.Run("cross-workflow edge rejected", func(t *testing.T) {
		_, err := registry.AddEdge("acct-1", workflow.ID, input.ID, foreign.ID)
		assert.ErrorIs(t, err, ErrEdgeNodeMismatch)
	})

	t.Run("unknown endpoint", func(t *testing.T) {
		_, err := registry.AddEdge("acct-1", workflow.ID, input.ID, "missing")
		assert.ErrorIs(t, err, storage.ErrNodeNotFound)
	})
}

func TestDeleteNode_DropsTouchingEdges(t *testing.T) {
	registry, _ := newTestRegistry(t)

	workflow, err := registry.CreateWorkflow("acct-1", "Graph", "")
	require.NoError(t, err)

	input, err := registry.AddNode("acct-1", workflow.ID, models.NodeTypeInput, map[string]interface{}{"label": "Input"})
	require.NoError(t, err)
	search, err := registry.AddNode("acct-1", workflow.ID, models.NodeTypeWebSearch, map[string]interface{}{"label": "Search"})
	require.NoError(t, err)
	output, err := registry.AddNode("acct-1", workflow.ID, models.NodeTypeOutput, map[string]interface{}{"label": "Output"})
	require.NoError(t, err)

	_, err = registry.AddEdge("acct-1", workflow.ID, input.ID, search.ID)
	require.NoError(t, err)
	_, err = registry.AddEdge("acct-1", workflow.ID, search.ID, output.ID)
	require.NoError(t, err)

	require.NoError(t, registry.DeleteNode("acct-1", workflow.ID, search.ID))

	edges, err := registry.ListEdges("acct-1", workflow.ID)
	require.NoError(t, err)
	assert.Empty(t, edges)

	nodes, err := registry.ListNodes("acct-1", workflow.ID)
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
}

func TestDeleteEdge(t *testing.T) {
	registry, _ := newTestRegistry(t)

	workflow, err := registry.CreateWorkflow("acct-1", "Graph", "")
	require.NoError(t, err)

	input, err := registry.AddNode("acct-1", workflow.ID, models.NodeTypeInput, map[string]interface{}{"label": "Input"})
	require.NoError(t, err)
	output, err := registry.AddNode("acct-1", workflow.ID, models.NodeTypeOutput, map[string]interface{}{"label": "Output"})
	require.NoError(t, err)

	edge, err := registry.AddEdge("acct-1", workflow.ID, input.ID, output.ID)
	require.NoError(t, err)

	t.Run("ownership enforced", func(t *testing.T) {
		err := registry.DeleteEdge("acct-2", workflow.ID, edge.ID)
		assert.ErrorIs(t, err, storage.ErrWorkflowNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, registry.DeleteEdge("acct-1", workflow.ID, edge.ID))

		edges, err := registry.ListEdges("acct-1", workflow.ID)
		require.NoError(t, err)
		assert.Empty(t, edges)
	})
}

func TestDeleteWorkflow_Cascades(t *testing.T) {
	registry, provider := newTestRegistry(t)

	workflow, err := registry.CreateWorkflow("acct-1", "Graph", "")
	require.NoError(t, err)

	input, err := registry.AddNode("acct-1", workflow.ID, models.NodeTypeInput, map[string]interface{}{"label": "Input"})
	require.NoError(t, err)
	output, err := registry.AddNode("acct-1", workflow.ID, models.NodeTypeOutput, map[string]interface{}{"label": "Output"})
	require.NoError(t, err)
	_, err = registry.AddEdge("acct-1", workflow.ID, input.ID, output.ID)
	require.NoError(t, err)

	require.NoError(t, registry.DeleteWorkflow("acct-1", workflow.ID))

	_, err = registry.GetWorkflow("acct-1", workflow.ID)
	assert.ErrorIs(t, err, storage.ErrWorkflowNotFound)

	nodes, err := provider.GetWorkflowStore().ListNodes(workflow.ID)
	require.NoError(t, err)
	assert.Empty(t, nodes)
}
