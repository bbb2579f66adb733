package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahartwell/graphrunner/pkg/models"
)

func TestCatalog_ListsAllTypesInOrder(t *testing.T) {
	items := Catalog()

	require.Len(t, items, 4)
	assert.Equal(t, models.NodeTypeInput, items[0].Type)
	assert.Equal(t, models.NodeTypeLLM, items[1].Type)
	assert.Equal(t, models.NodeTypeWebSearch, items[2].Type)
	assert.Equal(t, models.NodeTypeOutput, items[3].Type)

	// Graph participation: input has no inbound, output no outbound
	assert.False(t, items[0].Graph.HasInput)
	assert.True(t, items[0].Graph.HasOutput)
	assert.True(t, items[3].Graph.HasInput)
	assert.False(t, items[3].Graph.HasOutput)
}

func TestCatalogItemFor(t *testing.T) {
	item, ok := CatalogItemFor(models.NodeTypeLLM)
	require.True(t, ok)
	assert.Equal(t, "LLM", item.Label)

	_, ok = CatalogItemFor(models.NodeType("cron"))
	assert.False(t, ok)
}

func TestValidateNodeData_Input(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		_, err := ValidateNodeData(models.NodeTypeInput, map[string]interface{}{
			"label":  "My input",
			"format": "txt",
		})
		assert.NoError(t, err)
	})

	t.Run("missing required fields", func(t *testing.T) {
		_, err := ValidateNodeData(models.NodeTypeInput, map[string]interface{}{})

		var configErr *NodeConfigError
		require.ErrorAs(t, err, &configErr)
		assert.Contains(t, err.Error(), "missing required field: 'label'")
		assert.Contains(t, err.Error(), "missing required field: 'format'")
	})

	t.Run("format outside select options", func(t *testing.T) {
		_, err := ValidateNodeData(models.NodeTypeInput, map[string]interface{}{
			"label":  "My input",
			"format": "pdf",
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "field 'format' must be one of: txt")
	})

	t.Run("empty label", func(t *testing.T) {
		_, err := ValidateNodeData(models.NodeTypeInput, map[string]interface{}{
			"label":  "",
			"format": "txt",
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "field 'label' must be a string with min length 1")
	})
}

func TestValidateNodeData_UnexpectedFields(t *testing.T) {
	_, err := ValidateNodeData(models.NodeTypeInput, map[string]interface{}{
		"label":  "My input",
		"format": "txt",
		"zeta":   true,
		"alpha":  1,
	})

	require.Error(t, err)
	// Unexpected field names are reported sorted
	assert.Contains(t, err.Error(), "unexpected fields: alpha, zeta")
}

func TestValidateNodeData_LLM(t *testing.T) {
	valid := map[string]interface{}{
		"label":           "LLM",
		"llm_provider_id": 1,
		"model":           "llama3",
		"system_prompt":   "",
	}

	t.Run("valid", func(t *testing.T) {
		_, err := ValidateNodeData(models.NodeTypeLLM, valid)
		assert.NoError(t, err)
	})

	t.Run("provider id below minimum", func(t *testing.T) {
		data := map[string]interface{}{
			"label":           "LLM",
			"llm_provider_id": 0,
			"model":           "llama3",
			"system_prompt":   "",
		}

		_, err := ValidateNodeData(models.NodeTypeLLM, data)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "field 'llm_provider_id' must be >= 1")
	})
}

func TestValidateNodeData_WebSearch(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		_, err := ValidateNodeData(models.NodeTypeWebSearch, map[string]interface{}{
			"label":       "Search",
			"max_results": 5,
		})
		assert.NoError(t, err)
	})

	t.Run("max_results above maximum", func(t *testing.T) {
		_, err := ValidateNodeData(models.NodeTypeWebSearch, map[string]interface{}{
			"label":       "Search",
			"max_results": 11,
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "field 'max_results' must be <= 10")
	})
}

func TestValidateNodeData_UnsupportedType(t *testing.T) {
	_, err := ValidateNodeData(models.NodeType("cron"), map[string]interface{}{})

	var configErr *NodeConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Contains(t, err.Error(), "unsupported node type: cron")
}
