package thoughtflow

import (
	"time"
)

// Metric keys every processor populates in FlowResult.Metrics.
// Strategy-specific keys (tree sizes, path scores) are documented on
// the processor that emits them.
const (
	MetricError    = "error"
	MetricDegraded = "degraded"
)

// ProcessingStep records one notable phase of a processor invocation:
// the prompt that was sent, the raw output that came back, and any
// phase-specific metadata. Steps are appended in execution order and
// never mutated, so a persisted trace replays the run exactly.
type ProcessingStep struct {
	Label      string         `json:"label"`
	PromptSent string         `json:"prompt_sent"`
	RawOutput  string         `json:"raw_output"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// FlowResult is the outcome of a single processor invocation.
//
// Processors never fail with an error: any failure inside the pipeline
// is converted into a terminal result with Metrics["error"]=true and
// the failure message embedded in FullResponse and Reasoning. Callers
// treat such a result as degraded-but-valid, not as a hard failure.
type FlowResult struct {
	// Prompt is the original caller prompt.
	Prompt string `json:"prompt"`
	// EnhancedPrompt is the prompt actually sent for the first
	// generation phase, after strategy-specific framing.
	EnhancedPrompt string `json:"enhanced_prompt"`
	// FullResponse is the complete formatted output of the strategy
	// (for Tree-of-Thoughts, the tree outline plus the winning path).
	FullResponse string `json:"full_response"`
	// FinalResponse is the distilled answer.
	FinalResponse string `json:"final_response"`
	// Reasoning is a human-readable narrative of how the answer was
	// reached.
	Reasoning string `json:"reasoning"`
	// Steps is the ordered, append-only trace of the invocation.
	Steps []ProcessingStep `json:"steps"`
	// ProcessingTime is the wall-clock duration of the invocation.
	ProcessingTime time.Duration `json:"processing_time"`
	// ResponseChanged reports whether the strategy produced an answer
	// that differs from a naive single-shot baseline.
	ResponseChanged bool `json:"response_changed"`
	// Degraded reports that at least one value in this result came
	// from a parse fallback (synthetic thoughts, default path or
	// score) rather than from genuine model output.
	Degraded bool `json:"degraded"`
	// Metrics carries strategy metrics plus the error/degraded flags.
	Metrics map[string]any `json:"metrics"`
}

// AddStep appends a processing step to the trace.
func (r *FlowResult) AddStep(label, promptSent, rawOutput string, metadata map[string]any) {
	r.Steps = append(r.Steps, ProcessingStep{
		Label:      label,
		PromptSent: promptSent,
		RawOutput:  rawOutput,
		Metadata:   metadata,
	})
}

// Failed reports whether the result carries the error flag.
func (r *FlowResult) Failed() bool {
	if r.Metrics == nil {
		return false
	}
	failed, _ := r.Metrics[MetricError].(bool)
	return failed
}

// FailureResult converts a pipeline error into the terminal result
// contract: error flag set, message embedded in FullResponse and
// Reasoning, ResponseChanged false.
func FailureResult(prompt string, elapsed time.Duration, err error) *FlowResult {
	msg := "ERROR: " + err.Error()
	return &FlowResult{
		Prompt:          prompt,
		FullResponse:    msg,
		FinalResponse:   "",
		Reasoning:       msg,
		ProcessingTime:  elapsed,
		ResponseChanged: false,
		Metrics: map[string]any{
			MetricError: true,
		},
	}
}

// ResultMap flattens a FlowResult into the generic key/value structure
// persisted on a FlowExecution.
func (r *FlowResult) ResultMap() map[string]any {
	steps := make([]map[string]any, 0, len(r.Steps))
	for _, s := range r.Steps {
		step := map[string]any{
			"label":       s.Label,
			"prompt_sent": s.PromptSent,
			"raw_output":  s.RawOutput,
		}
		if len(s.Metadata) > 0 {
			step["metadata"] = s.Metadata
		}
		steps = append(steps, step)
	}
	return map[string]any{
		"prompt":             r.Prompt,
		"enhanced_prompt":    r.EnhancedPrompt,
		"full_response":      r.FullResponse,
		"final_response":     r.FinalResponse,
		"reasoning":          r.Reasoning,
		"steps":              steps,
		"processing_time_ms": r.ProcessingTime.Milliseconds(),
		"response_changed":   r.ResponseChanged,
		"degraded":           r.Degraded,
		"metrics":            r.Metrics,
	}
}
