package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ahartwell/graphrunner/pkg/auth"
	"github.com/ahartwell/graphrunner/pkg/models"
)

// Conversions between DynamoDB item structs and the domain models.
// Timestamps are stored as UnixNano integers.

func workflowFromItem(item workflowItem) models.Workflow {
	return models.Workflow{
		ID:          item.ID,
		AccountID:   item.AccountID,
		Name:        item.Name,
		Description: item.Description,
		CreatedAt:   time.Unix(0, item.CreatedAt).UTC(),
		UpdatedAt:   time.Unix(0, item.UpdatedAt).UTC(),
	}
}

func nodeFromItem(item nodeItem) (models.Node, error) {
	node := models.Node{
		ID:         item.ID,
		WorkflowID: item.WorkflowID,
		Type:       models.NodeType(item.Type),
		CreatedAt:  time.Unix(0, item.CreatedAt).UTC(),
		UpdatedAt:  time.Unix(0, item.UpdatedAt).UTC(),
	}

	if item.Data != "" {
		if err := json.Unmarshal([]byte(item.Data), &node.Data); err != nil {
			return models.Node{}, fmt.Errorf("failed to unmarshal node data: %w", err)
		}
	}

	return node, nil
}

func edgeFromItem(item edgeItem) models.Edge {
	return models.Edge{
		ID:           item.ID,
		WorkflowID:   item.WorkflowID,
		SourceNodeID: item.SourceNodeID,
		TargetNodeID: item.TargetNodeID,
		CreatedAt:    time.Unix(0, item.CreatedAt).UTC(),
	}
}

func providerFromItem(item providerItem) (models.Provider, error) {
	provider := models.Provider{
		ID:        item.ID,
		AccountID: item.AccountID,
		Name:      item.Name,
		Type:      models.ProviderType(item.Type),
		BaseURL:   item.BaseURL,
		CreatedAt: time.Unix(0, item.CreatedAt).UTC(),
		UpdatedAt: time.Unix(0, item.UpdatedAt).UTC(),
	}

	if item.Config != "" && item.Config != "null" {
		if err := json.Unmarshal([]byte(item.Config), &provider.Config); err != nil {
			return models.Provider{}, fmt.Errorf("failed to unmarshal provider config: %w", err)
		}
	}

	return provider, nil
}

func executionFromItem(item executionItem) (models.Execution, error) {
	execution := models.Execution{
		ID:         item.ID,
		WorkflowID: item.WorkflowID,
		AccountID:  item.AccountID,
		Status:     models.ExecutionStatus(item.Status),
		Error:      item.Error,
		StartedAt:  time.Unix(0, item.StartedAt).UTC(),
	}

	if item.FinishedAt != 0 {
		finishedAt := time.Unix(0, item.FinishedAt).UTC()
		execution.FinishedAt = &finishedAt
	}
	if item.InputData != "" {
		if err := json.Unmarshal([]byte(item.InputData), &execution.InputData); err != nil {
			return models.Execution{}, fmt.Errorf("failed to unmarshal execution input: %w", err)
		}
	}
	if item.OutputData != "" && item.OutputData != "null" {
		if err := json.Unmarshal([]byte(item.OutputData), &execution.OutputData); err != nil {
			return models.Execution{}, fmt.Errorf("failed to unmarshal execution output: %w", err)
		}
	}

	return execution, nil
}

func accountFromItem(item accountItem) auth.Account {
	return auth.Account{
		ID:           item.ID,
		Username:     item.Username,
		PasswordHash: item.PasswordHash,
		APIToken:     item.APIToken,
		CreatedAt:    time.Unix(0, item.CreatedAt).UTC(),
		UpdatedAt:    time.Unix(0, item.UpdatedAt).UTC(),
	}
}
