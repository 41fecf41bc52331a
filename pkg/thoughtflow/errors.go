package thoughtflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for engine dispatch.
var (
	// ErrFlowNotFound indicates the flow definition does not exist.
	ErrFlowNotFound = errors.New("flow not found")

	// ErrFlowInactive indicates the definition exists but is not active.
	ErrFlowInactive = errors.New("flow is inactive")

	// ErrProcessorNotRegistered indicates no processor is registered
	// for the definition's flow type.
	ErrProcessorNotRegistered = errors.New("processor not registered")

	// ErrDuplicateProcessor indicates a second processor was registered
	// for the same flow type.
	ErrDuplicateProcessor = errors.New("processor already registered")

	// ErrInvalidConfiguration indicates the definition's configuration
	// was rejected by the processor before any model call.
	ErrInvalidConfiguration = errors.New("invalid flow configuration")
)

// Sentinel errors for the storage contracts.
var (
	// ErrExecutionNotFound indicates the execution record does not exist.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrVersionConflict indicates a flow definition update carried a
	// stale version and lost the compare-and-swap.
	ErrVersionConflict = errors.New("flow definition version conflict")
)

// UnknownFlowTypeError indicates a wire name outside the FlowType
// enumeration.
type UnknownFlowTypeError struct {
	// Name is the rejected wire name.
	Name string
}

// Error implements the error interface.
func (e *UnknownFlowTypeError) Error() string {
	return fmt.Sprintf("unknown flow type: %q", e.Name)
}

// DispatchError wraps an engine failure with the flow it concerned.
type DispatchError struct {
	// FlowID is the flow definition involved.
	FlowID string
	// Op is the dispatch phase that failed ("lookup", "validate", "record").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	return fmt.Sprintf("flow %s: %s: %v", e.FlowID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *DispatchError) Unwrap() error {
	return e.Err
}
