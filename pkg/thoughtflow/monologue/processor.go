// Package monologue implements the Internal-Monologue reasoning
// strategy: the model thinks out loud before answering, then optional
// reflection rounds may revise the answer.
package monologue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mindfold/thoughtflow/pkg/thoughtflow"
	"github.com/mindfold/thoughtflow/pkg/thoughtflow/config"
	"github.com/mindfold/thoughtflow/pkg/thoughtflow/llm"
	"github.com/mindfold/thoughtflow/pkg/thoughtflow/observability"
	"github.com/mindfold/thoughtflow/pkg/thoughtflow/prompt"
)

// Configuration parameter names.
const (
	KeyReflectionRounds = "reflection_rounds"
	KeyShowReasoning    = "show_reasoning"
)

// Parameter defaults and validation ranges.
const (
	DefaultReflectionRounds = 1
	MinReflectionRounds     = 1
	MaxReflectionRounds     = 3
)

var (
	monologueTemplate = prompt.New(strings.TrimSpace(`
Think through the following problem out loud before answering.

Problem: ${problem}

First write your inner monologue, then your answer, in this format:
MONOLOGUE:
<your step-by-step thinking>
ANSWER: <your final answer>
`))

	reflectionTemplate = prompt.New(strings.TrimSpace(`
You previously answered a problem.

Problem: ${problem}

Your answer: ${answer}

Reflect on the answer. If it should change, respond with
REVISED: <the improved answer>
If it should stand, respond with
KEEP
`))
)

// Processor implements the Internal-Monologue strategy.
type Processor struct {
	client  llm.Client
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the structured logger. Default: none (silent).
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

// WithMetrics sets the metrics recorder. Default: NoopMetrics.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithSpanManager sets the span manager. Default: NoopSpanManager.
func WithSpanManager(s observability.SpanManager) Option {
	return func(p *Processor) { p.spans = s }
}

// New creates an Internal-Monologue processor over the given model port.
func New(client llm.Client, opts ...Option) *Processor {
	p := &Processor{
		client:  client,
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FlowType implements thoughtflow.Processor.
func (p *Processor) FlowType() thoughtflow.FlowType {
	return thoughtflow.FlowTypeInternalMonologue
}

// ValidateConfiguration implements thoughtflow.Processor.
func (p *Processor) ValidateConfiguration(cfg config.Config) bool {
	if !cfg.IntInRange(KeyReflectionRounds, MinReflectionRounds, MaxReflectionRounds) {
		return false
	}
	if cfg.Has(KeyShowReasoning) {
		// Present but not a bool means a type error, not a default.
		raw := cfg.Raw()[KeyShowReasoning]
		if _, ok := raw.(bool); !ok {
			return false
		}
	}
	return true
}

// Process implements thoughtflow.Processor.
func (p *Processor) Process(ctx context.Context, problem string, cfg config.Config, callCtx thoughtflow.CallContext) *thoughtflow.FlowResult {
	start := time.Now()
	flowType := p.FlowType().String()

	ctx, span := p.spans.StartProcessSpan(ctx, flowType, "")
	observability.LogProcessStart(p.logger, flowType, len(problem))

	result, err := p.run(ctx, problem, cfg)
	elapsed := time.Since(start)

	if err != nil {
		p.spans.EndSpanWithError(span, err)
		p.metrics.RecordExecution(ctx, flowType, elapsed, true)
		observability.LogProcessError(p.logger, flowType, err, float64(elapsed.Milliseconds()))
		return thoughtflow.FailureResult(problem, elapsed, err)
	}

	result.ProcessingTime = elapsed
	p.spans.EndSpanWithError(span, nil)
	p.metrics.RecordExecution(ctx, flowType, elapsed, false)
	observability.LogProcessComplete(p.logger, flowType, float64(elapsed.Milliseconds()), len(result.Steps), result.Degraded)
	return result
}

func (p *Processor) run(ctx context.Context, problem string, cfg config.Config) (result *thoughtflow.FlowResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal-monologue pipeline panic: %v", r)
		}
	}()

	rounds := cfg.Int(KeyReflectionRounds, DefaultReflectionRounds)
	showReasoning := cfg.Bool(KeyShowReasoning, true)

	result = &thoughtflow.FlowResult{Prompt: problem}

	enhanced := monologueTemplate.MustRender(map[string]any{"problem": problem})
	result.EnhancedPrompt = enhanced

	resp, err := p.generate(ctx, "monologue", enhanced)
	if err != nil {
		return nil, err
	}
	thinking, answer, degraded := splitMonologue(resp.Text)
	result.Degraded = degraded
	result.AddStep("monologue", enhanced, resp.Text, map[string]any{"degraded": degraded})

	first := answer
	revisions := 0
	for round := 1; round <= rounds; round++ {
		reflPrompt := reflectionTemplate.MustRender(map[string]any{
			"problem": problem,
			"answer":  answer,
		})
		resp, err = p.generate(ctx, "reflection", reflPrompt)
		if err != nil {
			return nil, err
		}
		revised, changed := parseReflection(resp.Text)
		if changed {
			answer = revised
			revisions++
		}
		result.AddStep(fmt.Sprintf("reflection_%d", round), reflPrompt, resp.Text, map[string]any{
			"revised": changed,
		})
	}

	result.FinalResponse = answer
	result.Reasoning = thinking
	if showReasoning {
		result.FullResponse = fmt.Sprintf("Inner monologue:\n%s\n\nAnswer:\n%s", thinking, answer)
	} else {
		result.FullResponse = answer
	}
	result.ResponseChanged = answer != first
	result.Metrics = map[string]any{
		"reflection_rounds":        rounds,
		"revisions":                revisions,
		thoughtflow.MetricError:    false,
		thoughtflow.MetricDegraded: result.Degraded,
	}
	return result, nil
}

// generate performs one model round trip with phase tracing, metrics
// and logging.
func (p *Processor) generate(ctx context.Context, phase, promptSent string) (*llm.Response, error) {
	ctx, span := p.spans.StartPhaseSpan(ctx, phase)
	resp, err := p.client.Generate(ctx, promptSent, nil)
	p.spans.EndSpanWithError(span, err)

	if err != nil {
		p.metrics.RecordLLMCall(ctx, phase, 0, err)
		return nil, fmt.Errorf("%s: %w", phase, err)
	}
	p.metrics.RecordLLMCall(ctx, phase, resp.Duration, nil)
	observability.LogLLMCall(p.logger, phase, len(promptSent), len(resp.Text), float64(resp.Duration.Milliseconds()))
	return resp, nil
}

// splitMonologue separates the inner monologue from the answer. A
// response without the ANSWER marker is treated entirely as the answer
// and flagged degraded.
func splitMonologue(text string) (thinking, answer string, degraded bool) {
	idx := strings.Index(text, "ANSWER:")
	if idx < 0 {
		return "", strings.TrimSpace(text), true
	}
	thinking = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text[:idx]), "MONOLOGUE:"))
	answer = strings.TrimSpace(text[idx+len("ANSWER:"):])
	return thinking, answer, false
}

// parseReflection extracts a revision from a reflection response.
func parseReflection(text string) (revised string, changed bool) {
	idx := strings.Index(text, "REVISED:")
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(text[idx+len("REVISED:"):]), true
}
