package tot_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mindfold/thoughtflow/pkg/thoughtflow"
	"github.com/mindfold/thoughtflow/pkg/thoughtflow/config"
	"github.com/mindfold/thoughtflow/pkg/thoughtflow/llm"
	"github.com/mindfold/thoughtflow/pkg/thoughtflow/tot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// thoughtLines renders bf well-formed thought markers.
func thoughtLines(bf int, prefix string) string {
	var b strings.Builder
	for i := 1; i <= bf; i++ {
		fmt.Fprintf(&b, "THOUGHT %d: %s-%d\n", i, prefix, i)
	}
	return b.String()
}

// scriptedClient dispatches on the pipeline phase by recognizing
// phrases from the prompt templates, which keeps it deterministic
// under parallel expansion.
func scriptedClient(bf int, evalResponse, synthesis string) llm.Client {
	return llm.GenerateFunc(func(_ context.Context, prompt string, _ map[string]any) (*llm.Response, error) {
		switch {
		case strings.Contains(prompt, "judging complete reasoning paths"):
			return &llm.Response{Text: evalResponse}, nil
		case strings.Contains(prompt, "comprehensive final answer"):
			return &llm.Response{Text: synthesis}, nil
		default:
			return &llm.Response{Text: thoughtLines(bf, "idea")}, nil
		}
	})
}

func cfg(bf, depth int, method string) config.Config {
	return config.New(map[string]any{
		tot.KeyBranchingFactor:  bf,
		tot.KeyMaxDepth:         depth,
		tot.KeyEvaluationMethod: method,
	})
}

func TestProcess_TreeShape(t *testing.T) {
	tests := []struct {
		bf, depth            int
		wantNodes, wantPaths int
	}{
		{2, 2, 6, 4},
		{2, 3, 14, 8},
		{3, 2, 12, 9},
		{3, 3, 39, 27},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("bf=%d_depth=%d", tt.bf, tt.depth), func(t *testing.T) {
			p := tot.New(scriptedClient(tt.bf, "", "answer"))
			result := p.Process(context.Background(), "problem", cfg(tt.bf, tt.depth, tot.EvaluationHeuristic), nil)

			require.False(t, result.Failed())
			assert.Equal(t, tt.wantNodes, result.Metrics["total_nodes"])
			assert.Equal(t, tt.wantPaths, result.Metrics["total_paths"])
			assert.Equal(t, tt.depth, result.Metrics["best_path_depth"])
			assert.Equal(t, tt.bf, result.Metrics["branching_factor"])
			assert.Equal(t, tt.depth, result.Metrics["max_depth"])
			assert.False(t, result.Degraded)
		})
	}
}

func TestProcess_StepTrace(t *testing.T) {
	// bf=2 depth=2 with heuristic evaluation: one initial step, two
	// expansion steps, one evaluation step, one synthesis step.
	p := tot.New(scriptedClient(2, "", "answer"))
	result := p.Process(context.Background(), "problem", cfg(2, 2, tot.EvaluationHeuristic), nil)

	require.False(t, result.Failed())
	require.Len(t, result.Steps, 5)
	assert.Equal(t, "initial_thoughts", result.Steps[0].Label)
	assert.Equal(t, "expansion_depth_2_node_0", result.Steps[1].Label)
	assert.Equal(t, "expansion_depth_2_node_1", result.Steps[2].Label)
	assert.Equal(t, "path_evaluation", result.Steps[3].Label)
	assert.Equal(t, "synthesis", result.Steps[4].Label)

	// Heuristic evaluation makes no model call.
	assert.Empty(t, result.Steps[3].PromptSent)
	assert.Equal(t, "heuristic", result.Steps[3].Metadata["method"])
}

func TestProcess_LLMCallCount(t *testing.T) {
	// bf=2 depth=3, llm_scoring: 1 initial + 2 + 4 expansions +
	// 1 evaluation + 1 synthesis = 9 calls.
	mock := llm.NewMock(thoughtLines(2, "idea"))
	p := tot.New(llm.GenerateFunc(func(ctx context.Context, prompt string, params map[string]any) (*llm.Response, error) {
		if strings.Contains(prompt, "judging complete reasoning paths") {
			_, _ = mock.Generate(ctx, prompt, params)
			return &llm.Response{Text: "Path 1, score: 80"}, nil
		}
		return mock.Generate(ctx, prompt, params)
	}))

	result := p.Process(context.Background(), "problem", cfg(2, 3, tot.EvaluationLLMScoring), nil)
	require.False(t, result.Failed())
	assert.Equal(t, 9, mock.CallCount())
}

func TestProcess_LLMScoringSelectsPath(t *testing.T) {
	// Path 2 of a bf=2 depth=2 tree is root 1's second child.
	client := llm.GenerateFunc(func(_ context.Context, prompt string, _ map[string]any) (*llm.Response, error) {
		switch {
		case strings.Contains(prompt, "judging complete reasoning paths"):
			return &llm.Response{Text: "Path 2 is the best choice, score: 88"}, nil
		case strings.Contains(prompt, "comprehensive final answer"):
			return &llm.Response{Text: "the answer"}, nil
		case strings.Contains(prompt, "Alpha"):
			return &llm.Response{Text: "THOUGHT 1: Alpha-X\nTHOUGHT 2: Alpha-Y"}, nil
		case strings.Contains(prompt, "Beta"):
			return &llm.Response{Text: "THOUGHT 1: Beta-X\nTHOUGHT 2: Beta-Y"}, nil
		default:
			return &llm.Response{Text: "THOUGHT 1: Alpha\nTHOUGHT 2: Beta"}, nil
		}
	})

	p := tot.New(client)
	result := p.Process(context.Background(), "problem", cfg(2, 2, tot.EvaluationLLMScoring), nil)

	require.False(t, result.Failed())
	assert.Equal(t, 88.0, result.Metrics["best_path_score"])
	assert.Equal(t, "Step 1: Alpha\nStep 2: Alpha-Y", result.Reasoning)
	assert.Equal(t, "the answer", result.FinalResponse)
	assert.True(t, result.ResponseChanged)
	assert.False(t, result.Degraded)
}

func TestProcess_ExpansionFailureDegrades(t *testing.T) {
	// A model failure during expansion never escapes Process: it
	// becomes a terminal result with the error flag and message.
	mock := llm.NewMock(thoughtLines(2, "idea")).FailAt(2, errors.New("llm unavailable"))
	p := tot.New(mock)

	result := p.Process(context.Background(), "problem", cfg(2, 2, tot.EvaluationHeuristic), nil)

	require.NotNil(t, result)
	assert.True(t, result.Failed())
	assert.Equal(t, true, result.Metrics[thoughtflow.MetricError])
	assert.True(t, strings.HasPrefix(result.FullResponse, "ERROR: "))
	assert.Contains(t, result.FullResponse, "llm unavailable")
	assert.Contains(t, result.Reasoning, "llm unavailable")
	assert.False(t, result.ResponseChanged)
	assert.Empty(t, result.FinalResponse)
}

func TestProcess_InitialFailureDegrades(t *testing.T) {
	p := tot.New(llm.NewMock().FailAt(1, errors.New("boom")))
	result := p.Process(context.Background(), "problem", config.New(nil), nil)

	assert.True(t, result.Failed())
	assert.True(t, strings.HasPrefix(result.FullResponse, "ERROR: "))
}

func TestProcess_PanicConverted(t *testing.T) {
	p := tot.New(llm.GenerateFunc(func(context.Context, string, map[string]any) (*llm.Response, error) {
		panic("wild pointer")
	}))
	result := p.Process(context.Background(), "problem", cfg(2, 2, tot.EvaluationHeuristic), nil)

	assert.True(t, result.Failed())
	assert.Contains(t, result.FullResponse, "wild pointer")
}

func TestProcess_SparseThoughtsDegrade(t *testing.T) {
	// One parsed thought where two were requested: the gap is filled
	// with placeholders and the result is flagged degraded.
	client := llm.GenerateFunc(func(_ context.Context, prompt string, _ map[string]any) (*llm.Response, error) {
		if strings.Contains(prompt, "comprehensive final answer") {
			return &llm.Response{Text: "answer"}, nil
		}
		return &llm.Response{Text: "THOUGHT 1: only one idea"}, nil
	})

	p := tot.New(client)
	result := p.Process(context.Background(), "problem", cfg(2, 2, tot.EvaluationHeuristic), nil)

	require.False(t, result.Failed())
	assert.True(t, result.Degraded)
	assert.Equal(t, true, result.Metrics[thoughtflow.MetricDegraded])
	// The tree is still complete.
	assert.Equal(t, 6, result.Metrics["total_nodes"])
	assert.Equal(t, 4, result.Metrics["total_paths"])
}

func TestProcess_DefaultsApply(t *testing.T) {
	// Empty configuration: bf=3, depth=3, llm_scoring.
	p := tot.New(scriptedClient(3, "Path 1, score: 70", "answer"))
	result := p.Process(context.Background(), "problem", config.New(nil), nil)

	require.False(t, result.Failed())
	assert.Equal(t, 39, result.Metrics["total_nodes"])
	assert.Equal(t, 27, result.Metrics["total_paths"])
	assert.Equal(t, 70.0, result.Metrics["best_path_score"])
}

func TestProcess_ResultShape(t *testing.T) {
	p := tot.New(scriptedClient(2, "", "  final answer  "))
	result := p.Process(context.Background(), "the problem", cfg(2, 2, tot.EvaluationHeuristic), nil)

	require.False(t, result.Failed())
	assert.Equal(t, "the problem", result.Prompt)
	assert.Contains(t, result.EnhancedPrompt, "the problem")
	assert.Equal(t, "final answer", result.FinalResponse)
	assert.Contains(t, result.FullResponse, "Thought tree:")
	assert.Contains(t, result.FullResponse, "Best path")
	assert.Contains(t, result.FullResponse, "final answer")
	assert.Contains(t, result.Reasoning, "Step 1:")
	assert.Greater(t, result.ProcessingTime.Nanoseconds(), int64(0))
}

func TestValidateConfiguration(t *testing.T) {
	p := tot.New(llm.NewMock("x"))

	tests := []struct {
		name string
		data map[string]any
		want bool
	}{
		{"empty config uses defaults", nil, true},
		{"all valid", map[string]any{"branching_factor": 3, "max_depth": 2, "evaluation_method": "combined"}, true},
		{"branching too low", map[string]any{"branching_factor": 1}, false},
		{"branching too high", map[string]any{"branching_factor": 6}, false},
		{"depth too low", map[string]any{"max_depth": 0}, false},
		{"depth too high", map[string]any{"max_depth": 6}, false},
		{"unknown method", map[string]any{"evaluation_method": "vibes"}, false},
		{"method llm_scoring", map[string]any{"evaluation_method": "llm_scoring"}, true},
		{"method heuristic", map[string]any{"evaluation_method": "heuristic"}, true},
		{"branching wrong type", map[string]any{"branching_factor": "three"}, false},
		{"json numbers accepted", map[string]any{"branching_factor": float64(4), "max_depth": float64(2)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.ValidateConfiguration(config.New(tt.data)))
		})
	}
}

func TestProcessor_FlowType(t *testing.T) {
	p := tot.New(llm.NewMock("x"))
	assert.Equal(t, thoughtflow.FlowTypeTreeOfThoughts, p.FlowType())
}

func TestProcess_BoundedConcurrency(t *testing.T) {
	// With max concurrency 1 the expansion wave is sequential; the
	// result is identical to the parallel run.
	sequential := tot.New(scriptedClient(3, "", "answer"), tot.WithMaxConcurrency(1))
	parallel := tot.New(scriptedClient(3, "", "answer"), tot.WithMaxConcurrency(8))

	c := cfg(3, 3, tot.EvaluationHeuristic)
	rSeq := sequential.Process(context.Background(), "problem", c, nil)
	rPar := parallel.Process(context.Background(), "problem", c, nil)

	require.False(t, rSeq.Failed())
	require.False(t, rPar.Failed())
	assert.Equal(t, rSeq.Metrics["total_nodes"], rPar.Metrics["total_nodes"])
	assert.Equal(t, rSeq.Reasoning, rPar.Reasoning)
	require.Len(t, rPar.Steps, len(rSeq.Steps))
	for i := range rSeq.Steps {
		assert.Equal(t, rSeq.Steps[i].Label, rPar.Steps[i].Label)
	}
}
