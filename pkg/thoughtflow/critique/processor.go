// Package critique implements the Self-Critique reasoning strategy:
// draft, critique the draft, then rewrite it, for a configurable
// number of rounds.
package critique

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

// KeyCritiqueRounds names the configuration parameter controlling how
// many critique/revision cycles run.
const KeyCritiqueRounds = "critique_rounds"

// Parameter defaults and validation range.
const (
	DefaultCritiqueRounds = 1
	MinCritiqueRounds     = 1
	MaxCritiqueRounds     = 3
)

var (
	draftTemplate = prompt.New(strings.TrimSpace(`
Answer the following problem as well as you can.

Problem: ${problem}
`))

	critiqueTemplate = prompt.New(strings.TrimSpace(`
You are a demanding reviewer. Identify the most significant flaws,
gaps or errors in the answer below. Be specific.

Problem: ${problem}

Answer: ${answer}
`))

	reviseTemplate = prompt.New(strings.TrimSpace(`
Rewrite the answer so it fully addresses the critique. Keep what was
already correct.

Problem: ${problem}

Answer: ${answer}

Critique: ${critique}

Provide only the rewritten answer.
`))
)

// Processor implements the Self-Critique strategy.
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

// New creates a Self-Critique processor over the given model port.
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
	return thoughtflow.FlowTypeSelfCritique
}

// ValidateConfiguration implements thoughtflow.Processor.
func (p *Processor) ValidateConfiguration(cfg config.Config) bool {
	return cfg.IntInRange(KeyCritiqueRounds, MinCritiqueRounds, MaxCritiqueRounds)
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
			err = fmt.Errorf("self-critique pipeline panic: %v", r)
		}
	}()

	rounds := cfg.Int(KeyCritiqueRounds, DefaultCritiqueRounds)

	result = &thoughtflow.FlowResult{Prompt: problem}

	draftPrompt := draftTemplate.MustRender(map[string]any{"problem": problem})
	result.EnhancedPrompt = draftPrompt

	resp, err := p.generate(ctx, "draft", draftPrompt)
	if err != nil {
		return nil, err
	}
	draft := strings.TrimSpace(resp.Text)
	answer := draft
	result.AddStep("draft", draftPrompt, resp.Text, nil)

	var critiques []string
	for round := 1; round <= rounds; round++ {
		critPrompt := critiqueTemplate.MustRender(map[string]any{
			"problem": problem,
			"answer":  answer,
		})
		resp, err = p.generate(ctx, "critique", critPrompt)
		if err != nil {
			return nil, err
		}
		critique := strings.TrimSpace(resp.Text)
		critiques = append(critiques, fmt.Sprintf("Round %d critique: %s", round, critique))
		result.AddStep(fmt.Sprintf("critique_%d", round), critPrompt, resp.Text, nil)

		revPrompt := reviseTemplate.MustRender(map[string]any{
			"problem":  problem,
			"answer":   answer,
			"critique": critique,
		})
		resp, err = p.generate(ctx, "revision", revPrompt)
		if err != nil {
			return nil, err
		}
		answer = strings.TrimSpace(resp.Text)
		result.AddStep(fmt.Sprintf("revision_%d", round), revPrompt, resp.Text, nil)
	}

	result.FinalResponse = answer
	result.Reasoning = strings.Join(critiques, "\n\n")
	result.FullResponse = fmt.Sprintf("Draft:\n%s\n\n%s\n\nFinal answer:\n%s", draft, result.Reasoning, answer)
	result.ResponseChanged = answer != draft
	result.Metrics = map[string]any{
		"critique_rounds":          rounds,
		thoughtflow.MetricError:    false,
		thoughtflow.MetricDegraded: false,
	}
	return result, nil
}

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
