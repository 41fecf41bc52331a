package thoughtflow

import (
	"time"
)

// FlowStore is the durable contract for flow definitions.
//
// Save is an upsert: absent IDs insert, present IDs update the mutable
// fields (name, description, configuration, status) while preserving
// identity, type, organization and CreatedAt. Updates are guarded by a
// compare-and-swap on Version; a stale Version fails with
// ErrVersionConflict.
type FlowStore interface {
	Save(flow *FlowDefinition) (*FlowDefinition, error)
	FindByID(id string) (*FlowDefinition, error)
	FindByOrganization(orgID string) ([]*FlowDefinition, error)
	FindByType(flowType FlowType) ([]*FlowDefinition, error)
	FindByOrganizationAndType(orgID string, flowType FlowType) ([]*FlowDefinition, error)
	FindByOrganizationAndStatus(orgID string, status FlowStatus) ([]*FlowDefinition, error)

	// Delete removes a definition and reports whether it existed.
	Delete(id string) (bool, error)
}

// ExecutionStore is the append-only execution log together with its
// aggregate analytics reads. Save requires the referenced flow
// definition to exist and fails with a "Flow not found" error
// otherwise, before any write happens. Records are never mutated after
// creation.
type ExecutionStore interface {
	Save(execution *FlowExecution) (*FlowExecution, error)
	FindByID(id string) (*FlowExecution, error)

	// FindByFlowID returns a flow's executions newest-first.
	// limit=0 means unbounded.
	FindByFlowID(flowID string, limit int) ([]*FlowExecution, error)
	FindByDebateID(debateID string) ([]*FlowExecution, error)

	// Aggregate reads. Over an empty history the averages and rates
	// are zero, never a division error.
	CountExecutions(flowID string) (int64, error)
	CountResponseChanges(flowID string) (int64, error)
	AverageProcessingTime(flowID string) (float64, error)
	ResponseChangeRate(flowID string) (float64, error)

	// Diagnostic reads.
	FindWithErrors(flowID string) ([]*FlowExecution, error)
	FindSlowest(flowID string, limit int) ([]*FlowExecution, error)

	// DeleteBefore removes all executions created before cutoff and
	// returns the number removed, derived from the delete itself
	// rather than a count-before/count-after comparison.
	DeleteBefore(cutoff time.Time) (int64, error)
}
