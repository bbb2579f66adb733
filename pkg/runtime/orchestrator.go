package runtime

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ahartwell/graphrunner/pkg/models"
	"github.com/ahartwell/graphrunner/pkg/storage"
)

// Runtime orchestrates workflow runs: it validates the input payload and
// graph, creates the execution record, walks the topological order
// dispatching nodes through the handler registry, and reduces the run to
// a terminal execution record.
type Runtime struct {
	workflows  storage.WorkflowStore
	executions storage.ExecutionStore
	registry   *HandlerRegistry
}

// NewRuntime creates a workflow runtime
func NewRuntime(workflows storage.WorkflowStore, executions storage.ExecutionStore, registry *HandlerRegistry) *Runtime {
	return &Runtime{
		workflows:  workflows,
		executions: executions,
		registry:   registry,
	}
}

// CreateAndRun executes a workflow synchronously against one input payload
// and returns the terminal execution record. Payload or graph validation
// failures surface to the caller without creating a record; domain errors
// raised while a record is running are absorbed into the record as FAILED.
func (r *Runtime) CreateAndRun(ctx context.Context, accountID, workflowID string, inputData map[string]interface{}) (models.Execution, error) {
	workflow, err := r.workflows.GetWorkflow(accountID, workflowID)
	if err != nil {
		return models.Execution{}, err
	}

	inputValue, err := extractInputValue(inputData)
	if err != nil {
		return models.Execution{}, err
	}

	graph, err := r.buildWorkflowGraph(workflow.ID)
	if err != nil {
		return models.Execution{}, err
	}

	execution := models.Execution{
		ID:         uuid.New().String(),
		WorkflowID: workflow.ID,
		AccountID:  accountID,
		Status:     models.ExecutionStatusRunning,
		InputData:  inputData,
		StartedAt:  time.Now().UTC(),
	}
	if err := r.executions.SaveExecution(execution); err != nil {
		return models.Execution{}, fmt.Errorf("failed to save execution: %w", err)
	}

	execution, runErr := r.run(ctx, execution, graph, inputValue)
	if runErr != nil && !IsDomainError(runErr) {
		// Infrastructure failure, not a run outcome
		return models.Execution{}, runErr
	}
	if runErr != nil {
		log.Printf("execution %s failed: %v", execution.ID, runErr)
	}

	return execution, nil
}

// GetExecution retrieves an execution record scoped to its owner account
func (r *Runtime) GetExecution(accountID, executionID string) (models.Execution, error) {
	execution, err := r.executions.GetExecution(executionID)
	if err != nil {
		return models.Execution{}, err
	}
	if execution.AccountID != accountID {
		return models.Execution{}, storage.ErrExecutionNotFound
	}
	return execution, nil
}

// ListExecutions returns the executions of a workflow scoped to its owner
func (r *Runtime) ListExecutions(accountID, workflowID string) ([]models.Execution, error) {
	if _, err := r.workflows.GetWorkflow(accountID, workflowID); err != nil {
		return nil, err
	}
	return r.executions.ListExecutions(workflowID)
}

// buildWorkflowGraph loads the current node/edge snapshot and derives the
// validated graph context
func (r *Runtime) buildWorkflowGraph(workflowID string) (*GraphContext, error) {
	nodes, err := r.workflows.ListNodes(workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow nodes: %w", err)
	}
	edges, err := r.workflows.ListEdges(workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow edges: %w", err)
	}
	return BuildGraph(nodes, edges)
}

// run walks the topological order, dispatches each node through the
// registry, and finalizes the record. The returned error is the domain
// error that failed the run, already persisted into the record, so a
// caller driving runs asynchronously can still observe the failure.
func (r *Runtime) run(ctx context.Context, execution models.Execution, graph *GraphContext, inputValue string) (models.Execution, error) {
	outputs := make(map[string]string, len(graph.TopologicalOrder))

	for _, nodeID := range graph.TopologicalOrder {
		node := graph.NodesByID[nodeID]

		parentValues := make([]string, 0, len(graph.Inbound[nodeID]))
		for _, parentID := range graph.Inbound[nodeID] {
			parentValues = append(parentValues, outputs[parentID])
		}
		if node.Type != models.NodeTypeInput && len(parentValues) == 0 {
			return r.finalize(execution, "", NewGraphValidationError(fmt.Sprintf(
				"node %s does not have input value", nodeID)))
		}

		value, err := r.registry.Execute(ctx, node.Type, NodeContext{
			AccountID:    execution.AccountID,
			NodeData:     node.Data,
			ParentValues: parentValues,
			InputValue:   inputValue,
		})
		if err != nil {
			return r.finalize(execution, "", err)
		}

		outputs[nodeID] = value
	}

	return r.finalize(execution, outputs[graph.OutputNodeID], nil)
}

// finalize persists the terminal state of a run. On success the output
// value is stored and any prior error cleared; on a domain error the
// message is stored verbatim. The incoming error is passed back through
// unless persisting the record itself fails.
func (r *Runtime) finalize(execution models.Execution, outputValue string, runErr error) (models.Execution, error) {
	now := time.Now().UTC()
	execution.FinishedAt = &now

	if runErr != nil {
		execution.Status = models.ExecutionStatusFailed
		execution.Error = runErr.Error()
		execution.OutputData = nil
	} else {
		execution.Status = models.ExecutionStatusSuccess
		execution.OutputData = map[string]interface{}{"value": outputValue}
		execution.Error = ""
	}

	if err := r.executions.SaveExecution(execution); err != nil {
		return execution, fmt.Errorf("failed to save execution: %w", err)
	}

	return execution, runErr
}

// extractInputValue validates the {value: string} payload shape and
// returns the input value
func extractInputValue(inputData map[string]interface{}) (string, error) {
	if len(inputData) == 0 {
		return "", NewInputValidationError("execution input payload is required")
	}
	value, ok := inputData["value"].(string)
	if !ok {
		return "", NewInputValidationError("execution input_data.value must be a string")
	}
	return value, nil
}
