// Package store provides persistence for flow definitions and their
// execution history.
//
// Two implementations share the same contracts: a SQLite-backed store
// for single-process production use and an in-memory store for tests
// and prototyping. Both expose a flow-definition store and an
// execution store over one underlying database, so referential checks
// (an execution must point at an existing flow) see a consistent view.
package store

import (
	"errors"

	"github.com/mindfold/thoughtflow/pkg/thoughtflow"
)

// ErrStoreClosed is returned when operating on a closed store.
var ErrStoreClosed = errors.New("store is closed")

// FlowNotFoundError reports a lookup or referential check that failed
// because no flow definition with the given ID exists. It unwraps to
// thoughtflow.ErrFlowNotFound.
type FlowNotFoundError struct {
	FlowID string
}

func (e *FlowNotFoundError) Error() string {
	return "Flow not found: " + e.FlowID
}

func (e *FlowNotFoundError) Unwrap() error {
	return thoughtflow.ErrFlowNotFound
}

// ExecutionNotFoundError reports a missing execution record. It
// unwraps to thoughtflow.ErrExecutionNotFound.
type ExecutionNotFoundError struct {
	ExecutionID string
}

func (e *ExecutionNotFoundError) Error() string {
	return "Execution not found: " + e.ExecutionID
}

func (e *ExecutionNotFoundError) Unwrap() error {
	return thoughtflow.ErrExecutionNotFound
}

// changeRate turns the two counters into a rate, avoiding division by
// zero over an empty history.
func changeRate(changes, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(changes) / float64(total)
}
