package tot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mindfold/thoughtflow/pkg/thoughtflow"
	"github.com/mindfold/thoughtflow/pkg/thoughtflow/config"
	"github.com/mindfold/thoughtflow/pkg/thoughtflow/llm"
	"github.com/mindfold/thoughtflow/pkg/thoughtflow/observability"
)

// Configuration parameter names.
const (
	KeyBranchingFactor  = "branching_factor"
	KeyMaxDepth         = "max_depth"
	KeyEvaluationMethod = "evaluation_method"
)

// Parameter defaults and validation ranges.
const (
	DefaultBranchingFactor = 3
	DefaultMaxDepth        = 3
	DefaultEvaluation      = EvaluationLLMScoring

	MinBranchingFactor = 2
	MaxBranchingFactor = 5
	MinDepth           = 1
	MaxDepth           = 5
)

// defaultMaxConcurrency bounds parallel sibling expansions per depth
// level.
const defaultMaxConcurrency = 4

// Processor implements the Tree-of-Thoughts reasoning strategy: it
// grows a branching_factor-ary tree of candidate thoughts to max_depth,
// scores every root-to-leaf path, and synthesizes a final answer from
// the winning path.
//
// One Process call owns a private Tree, so concurrent invocations need
// no coordination. Sibling expansions within a depth level run on a
// bounded worker pool and are joined before the next level starts,
// which turns O(nodes) sequential model round trips into O(depth)
// parallel batches without changing the result.
type Processor struct {
	client         llm.Client
	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	callParams     map[string]any
	maxConcurrency int
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

// WithModelParams sets parameters forwarded on every model call
// (temperature, max_tokens, system). Default: none.
func WithModelParams(params map[string]any) Option {
	return func(p *Processor) { p.callParams = params }
}

// WithMaxConcurrency bounds parallel sibling expansions per depth
// level. Values below 1 are ignored. Default: 4.
func WithMaxConcurrency(n int) Option {
	return func(p *Processor) {
		if n >= 1 {
			p.maxConcurrency = n
		}
	}
}

// New creates a Tree-of-Thoughts processor over the given model port.
func New(client llm.Client, opts ...Option) *Processor {
	p := &Processor{
		client:         client,
		metrics:        observability.NoopMetrics{},
		spans:          observability.NoopSpanManager{},
		maxConcurrency: defaultMaxConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FlowType implements thoughtflow.Processor.
func (p *Processor) FlowType() thoughtflow.FlowType {
	return thoughtflow.FlowTypeTreeOfThoughts
}

// ValidateConfiguration implements thoughtflow.Processor. Missing
// parameters are valid because defaults apply.
func (p *Processor) ValidateConfiguration(cfg config.Config) bool {
	return cfg.IntInRange(KeyBranchingFactor, MinBranchingFactor, MaxBranchingFactor) &&
		cfg.IntInRange(KeyMaxDepth, MinDepth, MaxDepth) &&
		cfg.StringInSet(KeyEvaluationMethod, EvaluationLLMScoring, EvaluationHeuristic, EvaluationCombined)
}

// Process implements thoughtflow.Processor. It never returns an error:
// any failure in the pipeline is converted into a terminal result with
// the error flag set and the message embedded in the response.
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

// run drives the four pipeline phases. Panics anywhere in the pipeline
// are converted into errors so Process can degrade them into a result.
func (p *Processor) run(ctx context.Context, problem string, cfg config.Config) (result *thoughtflow.FlowResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tree-of-thoughts pipeline panic: %v", r)
		}
	}()

	bf := cfg.Int(KeyBranchingFactor, DefaultBranchingFactor)
	maxDepth := cfg.Int(KeyMaxDepth, DefaultMaxDepth)
	method := cfg.String(KeyEvaluationMethod, DefaultEvaluation)

	result = &thoughtflow.FlowResult{Prompt: problem}

	// Phase 1: initial thoughts.
	enhanced := initialTemplate.MustRender(map[string]any{"problem": problem, "count": bf})
	result.EnhancedPrompt = enhanced

	resp, err := p.generate(ctx, "initial_thoughts", enhanced)
	if err != nil {
		return nil, err
	}
	thoughts, degraded := parseThoughts(resp.Text, bf)
	result.Degraded = result.Degraded || degraded

	tree := NewTree()
	for _, t := range thoughts {
		tree.AddRoot(t)
	}
	result.AddStep("initial_thoughts", enhanced, resp.Text, map[string]any{
		"thoughts": len(thoughts),
		"degraded": degraded,
	})

	// Phase 2: expansion, one level at a time. Every node of the
	// previous depth gains bf children, so a finished tree holds
	// sum(bf^i, i=1..maxDepth) nodes.
	for depth := 2; depth <= maxDepth; depth++ {
		parents := tree.NodesAtDepth(depth - 1)
		expansions, expErr := p.expandLevel(ctx, problem, tree, parents, bf)
		if expErr != nil {
			return nil, expErr
		}
		for _, exp := range expansions {
			for _, t := range exp.thoughts {
				tree.AddChild(exp.parent, t)
			}
			result.Degraded = result.Degraded || exp.degraded
			result.AddStep(
				fmt.Sprintf("expansion_depth_%d_node_%d", depth, exp.parent),
				exp.promptSent, exp.rawOutput,
				map[string]any{"parent": exp.parent, "degraded": exp.degraded},
			)
		}
	}
	p.metrics.RecordTreeSize(ctx, p.FlowType().String(), int64(tree.TotalNodes()))

	// Phase 3: path evaluation.
	paths := tree.AllPaths()
	var eval evaluation
	switch method {
	case EvaluationHeuristic:
		eval = evaluateHeuristic(paths)
	case EvaluationCombined:
		eval, err = p.evaluateCombined(ctx, problem, paths)
	default:
		eval, err = p.evaluateLLM(ctx, problem, paths)
	}
	if err != nil {
		return nil, err
	}
	result.Degraded = result.Degraded || eval.degraded
	result.AddStep("path_evaluation", eval.promptSent, eval.rawOutput, map[string]any{
		"method":    method,
		"best_path": eval.index + 1,
		"score":     eval.score,
		"degraded":  eval.degraded,
	})

	best := paths[eval.index]
	p.spans.AddSpanEvent(ctx, "path_selected",
		attribute.Int("path_index", eval.index),
		attribute.Float64("score", eval.score),
	)

	// Phase 4: synthesis.
	synthPrompt := synthesisTemplate.MustRender(map[string]any{
		"problem": problem,
		"chain":   formatChain(best.Contents),
	})
	resp, err = p.generate(ctx, "synthesis", synthPrompt)
	if err != nil {
		return nil, err
	}
	final := strings.TrimSpace(resp.Text)
	result.AddStep("synthesis", synthPrompt, resp.Text, nil)

	result.FinalResponse = final
	result.Reasoning = best.Reasoning()
	result.FullResponse = fmt.Sprintf(
		"Thought tree:\n%s\n\nBest path (score %.1f):\n%s\n\nFinal answer:\n%s",
		tree.FormatOutline(), eval.score, best.Reasoning(), final,
	)
	result.ResponseChanged = final != ""
	result.Metrics = map[string]any{
		"branching_factor":         bf,
		"max_depth":                maxDepth,
		"total_nodes":              tree.TotalNodes(),
		"total_paths":              len(paths),
		"best_path_score":          eval.score,
		"best_path_depth":          best.Depth(),
		thoughtflow.MetricError:    false,
		thoughtflow.MetricDegraded: result.Degraded,
	}
	return result, nil
}

// expansion is the outcome of expanding one parent node.
type expansion struct {
	parent     int
	promptSent string
	rawOutput  string
	thoughts   []string
	degraded   bool
}

// expandLevel expands every parent of one depth level through the
// bounded worker pool and joins before returning. Results come back in
// parent order so the step trace stays deterministic regardless of
// goroutine scheduling. The tree is only read here; children are added
// by the caller after the join.
func (p *Processor) expandLevel(ctx context.Context, problem string, tree *Tree, parents []int, bf int) ([]expansion, error) {
	results := make([]expansion, len(parents))
	errs := make([]error, len(parents))

	sem := make(chan struct{}, p.maxConcurrency)
	var wg sync.WaitGroup

	for i, parent := range parents {
		wg.Add(1)
		go func(i, parent int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("expansion panic: %v", r)
				}
			}()
			sem <- struct{}{}
			defer func() { <-sem }()

			promptSent := expansionTemplate.MustRender(map[string]any{
				"problem": problem,
				"chain":   formatChain(tree.Chain(parent)),
				"count":   bf,
			})
			resp, err := p.generate(ctx, "expansion", promptSent)
			if err != nil {
				errs[i] = err
				return
			}
			thoughts, degraded := parseThoughts(resp.Text, bf)
			results[i] = expansion{
				parent:     parent,
				promptSent: promptSent,
				rawOutput:  resp.Text,
				thoughts:   thoughts,
				degraded:   degraded,
			}
		}(i, parent)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// generate performs one model round trip with phase tracing, metrics
// and logging.
func (p *Processor) generate(ctx context.Context, phase, promptSent string) (*llm.Response, error) {
	ctx, span := p.spans.StartPhaseSpan(ctx, phase)
	resp, err := p.client.Generate(ctx, promptSent, p.callParams)
	p.spans.EndSpanWithError(span, err)

	if err != nil {
		p.metrics.RecordLLMCall(ctx, phase, 0, err)
		return nil, fmt.Errorf("%s: %w", phase, err)
	}
	p.metrics.RecordLLMCall(ctx, phase, resp.Duration, nil)
	observability.LogLLMCall(p.logger, phase, len(promptSent), len(resp.Text), float64(resp.Duration.Milliseconds()))
	return resp, nil
}
