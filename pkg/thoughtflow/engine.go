package thoughtflow

import (
	"context"
	"log/slog"

	"github.com/mindfold/thoughtflow/pkg/thoughtflow/observability"
)

// Well-known CallContext keys read by the engine.
const (
	// CallKeyDebateID associates the invocation with a debate.
	CallKeyDebateID = "debate_id"
	// CallKeyParticipantID identifies the debate participant.
	CallKeyParticipantID = "participant_id"
)

// Engine ties the pieces together: it loads a flow definition, guards
// it, dispatches to the registered processor and records the resulting
// execution.
//
// Guard failures (missing flow, inactive flow, unregistered type,
// invalid configuration) return errors and record nothing. Once the
// processor runs, its failures are data: they come back inside the
// recorded execution, not as an Execute error.
type Engine struct {
	flows      FlowStore
	executions ExecutionStore
	registry   *Registry
	logger     *slog.Logger
	metrics    observability.MetricsRecorder
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the structured logger. Default: none (silent).
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// WithEngineMetrics sets the metrics recorder. Default: NoopMetrics.
func WithEngineMetrics(m observability.MetricsRecorder) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an execution engine over the given stores and
// processor registry.
func NewEngine(flows FlowStore, executions ExecutionStore, registry *Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		flows:      flows,
		executions: executions,
		registry:   registry,
		metrics:    observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the flow identified by flowID against prompt and
// persists the execution record.
//
// The returned error is nil whenever an execution was recorded, even
// if the processor pipeline itself failed; inspect
// FlowExecution.Failed for that.
func (e *Engine) Execute(ctx context.Context, flowID, prompt string, callCtx CallContext) (*FlowExecution, error) {
	flow, err := e.flows.FindByID(flowID)
	if err != nil {
		return nil, &DispatchError{FlowID: flowID, Op: "lookup", Err: err}
	}
	if !flow.Active() {
		return nil, &DispatchError{FlowID: flowID, Op: "lookup", Err: ErrFlowInactive}
	}

	processor, ok := e.registry.Get(flow.Type)
	if !ok {
		return nil, &DispatchError{FlowID: flowID, Op: "lookup", Err: ErrProcessorNotRegistered}
	}
	if !processor.ValidateConfiguration(flow.Configuration) {
		return nil, &DispatchError{FlowID: flowID, Op: "validate", Err: ErrInvalidConfiguration}
	}

	debateID := callString(callCtx, CallKeyDebateID)
	participantID := callString(callCtx, CallKeyParticipantID)

	logger := observability.EnrichLogger(e.logger, flowID, flow.Type.String(), debateID)
	observability.LogProcessStart(logger, flow.Type.String(), len(prompt))

	result := processor.Process(ctx, prompt, flow.Configuration, callCtx)

	execution := NewFlowExecution(flowID, debateID, participantID, result)
	saved, err := e.executions.Save(execution)
	if err != nil {
		return nil, &DispatchError{FlowID: flowID, Op: "record", Err: err}
	}

	e.metrics.RecordExecution(ctx, flow.Type.String(), result.ProcessingTime, result.Failed())
	observability.LogExecutionSaved(logger, saved.ID, saved.FlowID, saved.Failed())
	return saved, nil
}

// Analytics summarizes a flow's recorded execution history.
type Analytics struct {
	FlowID                string
	TotalExecutions       int64
	ResponseChanges       int64
	ResponseChangeRate    float64
	AverageProcessingTime float64
}

// Analytics computes the aggregate view of a flow's history. A flow
// with no executions yields all-zero aggregates.
func (e *Engine) Analytics(flowID string) (*Analytics, error) {
	total, err := e.executions.CountExecutions(flowID)
	if err != nil {
		return nil, &DispatchError{FlowID: flowID, Op: "analytics", Err: err}
	}
	changes, err := e.executions.CountResponseChanges(flowID)
	if err != nil {
		return nil, &DispatchError{FlowID: flowID, Op: "analytics", Err: err}
	}
	rate, err := e.executions.ResponseChangeRate(flowID)
	if err != nil {
		return nil, &DispatchError{FlowID: flowID, Op: "analytics", Err: err}
	}
	avg, err := e.executions.AverageProcessingTime(flowID)
	if err != nil {
		return nil, &DispatchError{FlowID: flowID, Op: "analytics", Err: err}
	}
	return &Analytics{
		FlowID:                flowID,
		TotalExecutions:       total,
		ResponseChanges:       changes,
		ResponseChangeRate:    rate,
		AverageProcessingTime: avg,
	}, nil
}

func callString(callCtx CallContext, key string) string {
	if callCtx == nil {
		return ""
	}
	if v, ok := callCtx[key].(string); ok {
		return v
	}
	return ""
}
