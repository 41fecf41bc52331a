package benchmarks

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/mindfold/thoughtflow/pkg/thoughtflow/config"
	"github.com/mindfold/thoughtflow/pkg/thoughtflow/llm"
	"github.com/mindfold/thoughtflow/pkg/thoughtflow/tot"
)

// thoughtBlock builds a model response carrying n thought markers.
func thoughtBlock(n int) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "THOUGHT %d: consider approach %d in more depth\n", i, i)
	}
	return sb.String()
}

// scriptedClient answers every call instantly so the benchmarks
// measure pipeline overhead, not model latency.
func scriptedClient(branching int) llm.Client {
	thoughts := thoughtBlock(branching)
	return llm.GenerateFunc(func(ctx context.Context, prompt string, params map[string]any) (*llm.Response, error) {
		text := thoughts
		if strings.Contains(prompt, "judging complete reasoning paths") {
			text = "Path 1, score: 80"
		} else if strings.Contains(prompt, "comprehensive final answer") {
			text = "the synthesized answer"
		}
		return &llm.Response{Text: text}, nil
	})
}

func benchmarkProcess(b *testing.B, branching, depth int, method string) {
	processor := tot.New(scriptedClient(branching))
	cfg := config.New(map[string]any{
		"branching_factor":  branching,
		"max_depth":         depth,
		"evaluation_method": method,
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		result := processor.Process(context.Background(), "benchmark prompt", cfg, nil)
		if result.Failed() {
			b.Fatal(result.FullResponse)
		}
	}
}

// BenchmarkProcess_Small measures a 2x2 tree with heuristic scoring.
func BenchmarkProcess_Small(b *testing.B) {
	benchmarkProcess(b, 2, 2, "heuristic")
}

// BenchmarkProcess_Default measures the default 3x3 tree.
func BenchmarkProcess_Default(b *testing.B) {
	benchmarkProcess(b, 3, 3, "llm_scoring")
}

// BenchmarkProcess_Wide measures the widest allowed tree.
func BenchmarkProcess_Wide(b *testing.B) {
	benchmarkProcess(b, 5, 3, "heuristic")
}

// BenchmarkTreeBuild measures arena tree construction alone.
func BenchmarkTreeBuild(b *testing.B) {
	for i := 0; i < b.N; i++ {
		tree := tot.NewTree()
		var level []int
		for r := 0; r < 3; r++ {
			level = append(level, tree.AddRoot("root thought"))
		}
		for depth := 1; depth <= 3; depth++ {
			var next []int
			for _, parent := range level {
				for c := 0; c < 3; c++ {
					next = append(next, tree.AddChild(parent, "child thought"))
				}
			}
			level = next
		}
	}
}

// BenchmarkAllPaths measures path enumeration over a full 3x3 tree.
func BenchmarkAllPaths(b *testing.B) {
	tree := tot.NewTree()
	var level []int
	for r := 0; r < 3; r++ {
		level = append(level, tree.AddRoot("root thought"))
	}
	for depth := 1; depth <= 3; depth++ {
		var next []int
		for _, parent := range level {
			for c := 0; c < 3; c++ {
				next = append(next, tree.AddChild(parent, "child thought"))
			}
		}
		level = next
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		paths := tree.AllPaths()
		if len(paths) != 27 {
			b.Fatalf("expected 27 paths, got %d", len(paths))
		}
	}
}
