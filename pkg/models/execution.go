package models

import "time"

// ExecutionStatus represents the terminal-state machine of one run
type ExecutionStatus string

// Execution statuses. A record is created already running and transitions
// exactly once to success or failed.
const (
	ExecutionStatusRunning ExecutionStatus = "running"
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusFailed  ExecutionStatus = "failed"
)

// Execution is one run of a workflow graph against one input value
type Execution struct {
	// ID of the execution
	ID string `json:"id"`

	// WorkflowID is the ID of the workflow that was executed
	WorkflowID string `json:"workflow_id"`

	// AccountID is the ID of the account that owns the workflow
	AccountID string `json:"account_id"`

	// Status of the execution
	Status ExecutionStatus `json:"status"`

	// InputData is the raw input payload the run was launched with
	InputData map[string]interface{} `json:"input_data"`

	// OutputData holds the final output value; populated only on success
	OutputData map[string]interface{} `json:"output_data,omitempty"`

	// Error message if the execution failed
	Error string `json:"error,omitempty"`

	// StartedAt is when the execution started
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the execution reached a terminal state
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
