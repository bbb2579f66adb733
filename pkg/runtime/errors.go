package runtime

import "errors"

// GraphValidationError reports a structural problem with a workflow graph:
// wrong input/output node count, dangling edge reference, cycle,
// disconnected node, starved non-input node, or an unsupported node type.
type GraphValidationError struct {
	Message string
}

func (e *GraphValidationError) Error() string {
	return e.Message
}

// NewGraphValidationError creates a graph validation error
func NewGraphValidationError(message string) *GraphValidationError {
	return &GraphValidationError{Message: message}
}

// InputValidationError reports an execution input payload that is missing
// or not shaped as {value: string}
type InputValidationError struct {
	Message string
}

func (e *InputValidationError) Error() string {
	return e.Message
}

// NewInputValidationError creates an input validation error
func NewInputValidationError(message string) *InputValidationError {
	return &InputValidationError{Message: message}
}

// NodeConfigError reports node data that fails its type's field contract,
// or a reference to a provider that does not exist or is not owned by the
// workflow owner
type NodeConfigError struct {
	Message string
}

func (e *NodeConfigError) Error() string {
	return e.Message
}

// NewNodeConfigError creates a node configuration error
func NewNodeConfigError(message string) *NodeConfigError {
	return &NodeConfigError{Message: message}
}

// ProviderConnectionError reports a timeout, non-success status, transport
// failure or malformed response from an external LLM or search provider
type ProviderConnectionError struct {
	Message string
}

func (e *ProviderConnectionError) Error() string {
	return e.Message
}

// NewProviderConnectionError creates a provider connectivity error
func NewProviderConnectionError(message string) *ProviderConnectionError {
	return &ProviderConnectionError{Message: message}
}

// IsDomainError reports whether err belongs to the engine's error taxonomy.
// Domain errors raised during a run are captured into the execution record
// and finalize it as failed; anything else propagates to the caller.
func IsDomainError(err error) bool {
	var graphErr *GraphValidationError
	var inputErr *InputValidationError
	var configErr *NodeConfigError
	var providerErr *ProviderConnectionError

	return errors.As(err, &graphErr) ||
		errors.As(err, &inputErr) ||
		errors.As(err, &configErr) ||
		errors.As(err, &providerErr)
}
