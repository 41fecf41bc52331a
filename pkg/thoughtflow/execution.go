package thoughtflow

import (
	"time"
)

// FlowExecution is one persisted, immutable record of a processor
// invocation. Executions form an append-only log: they are created
// exactly once per persisted invocation and never mutated afterwards.
//
// FlowID must reference an existing FlowDefinition at save time; the
// stores enforce this.
type FlowExecution struct {
	ID               string
	FlowID           string
	DebateID         string
	ParticipantID    string
	Prompt           string
	Result           map[string]any
	ProcessingTimeMs int64
	ResponseChanged  bool
	ErrorMessage     *string
	CreatedAt        time.Time
}

// NewFlowExecution builds the execution record for one invocation.
// The error message is taken from the result when the pipeline degraded
// into a failure.
func NewFlowExecution(flowID, debateID, participantID string, result *FlowResult) *FlowExecution {
	exec := &FlowExecution{
		ID:               NewID(),
		FlowID:           flowID,
		DebateID:         debateID,
		ParticipantID:    participantID,
		Prompt:           result.Prompt,
		Result:           result.ResultMap(),
		ProcessingTimeMs: result.ProcessingTime.Milliseconds(),
		ResponseChanged:  result.ResponseChanged,
		CreatedAt:        time.Now().UTC(),
	}
	if result.Failed() {
		msg := result.Reasoning
		exec.ErrorMessage = &msg
	}
	return exec
}

// Failed reports whether the recorded invocation carried an error.
func (e *FlowExecution) Failed() bool {
	return e.ErrorMessage != nil
}
