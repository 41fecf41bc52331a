package tot

import (
	"context"
	"strings"
	"testing"

	"github.com/mindfold/thoughtflow/pkg/thoughtflow/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pathOfDepth builds a path of the given depth where every node
// carries the same content.
func pathOfDepth(depth int, content string) Path {
	ids := make([]int, depth)
	contents := make([]string, depth)
	for i := range ids {
		ids[i] = i
		contents[i] = content
	}
	return Path{NodeIDs: ids, Contents: contents}
}

func TestHeuristic_PrefersDepthNearIdeal(t *testing.T) {
	// Depth 2 is closer to the 2.5 peak than depth 4. Content lengths
	// are held identical so only the depth term differs.
	shallow := Path{NodeIDs: []int{0, 1}, Contents: []string{"aaaa", "bbbb"}}
	deep := Path{NodeIDs: []int{2, 3, 4, 5}, Contents: []string{"aa", "bb", "cc", "dd"}}

	eval := evaluateHeuristic([]Path{deep, shallow})
	assert.Equal(t, 1, eval.index)

	eval = evaluateHeuristic([]Path{shallow, deep})
	assert.Equal(t, 0, eval.index)
}

func TestHeuristic_LengthCapped(t *testing.T) {
	// Beyond 1000 characters of cumulative content, length stops helping.
	capped := pathOfDepth(2, strings.Repeat("x", 500))
	overflowing := pathOfDepth(2, strings.Repeat("x", 5000))

	assert.Equal(t, heuristicScore(capped), heuristicScore(overflowing))

	short := pathOfDepth(2, "x")
	assert.Greater(t, heuristicScore(capped), heuristicScore(short))
}

func TestHeuristic_TieBrokenByIterationOrder(t *testing.T) {
	a := pathOfDepth(2, "same")
	b := pathOfDepth(2, "same")

	eval := evaluateHeuristic([]Path{a, b})
	assert.Equal(t, 0, eval.index)
}

func TestHeuristic_ScoreScale(t *testing.T) {
	// Scores live on a 0-100 scale like llm_scoring, so combined can
	// average the two directly.
	p := pathOfDepth(2, strings.Repeat("x", 1000))
	score := heuristicScore(p)
	assert.Greater(t, score, 0.0)
	assert.LessOrEqual(t, score, 100.0)

	// depth 2: depth term 0.8, length term 1.0, coherence 0.8.
	assert.InDelta(t, (0.8+1.0+0.8)/3*100, score, 0.0001)
}

func TestEvaluateLLM(t *testing.T) {
	p := New(llm.NewMock("Path 2 is the best choice, score: 88"))
	paths := []Path{pathOfDepth(2, "a"), pathOfDepth(2, "b")}

	eval, err := p.evaluateLLM(context.Background(), "problem", paths)
	require.NoError(t, err)
	assert.Equal(t, 1, eval.index)
	assert.Equal(t, 88.0, eval.score)
	assert.False(t, eval.degraded)
	assert.Contains(t, eval.promptSent, "Path 1:")
	assert.Contains(t, eval.promptSent, "Path 2:")
	assert.Equal(t, "Path 2 is the best choice, score: 88", eval.rawOutput)
}

func TestEvaluateCombined_Agreement(t *testing.T) {
	// Heuristic favors the longer depth-2 path; the model agrees, so
	// the llm score is used unchanged.
	short := pathOfDepth(1, "x")
	long := pathOfDepth(2, strings.Repeat("y", 400))
	p := New(llm.NewMock("Path 2, score: 90"))

	eval, err := p.evaluateCombined(context.Background(), "problem", []Path{short, long})
	require.NoError(t, err)
	assert.Equal(t, 1, eval.index)
	assert.Equal(t, 90.0, eval.score)
}

func TestEvaluateCombined_Disagreement(t *testing.T) {
	// Heuristic favors path 2, the model picks path 1: the model wins
	// the path, and its score is averaged with path 1's heuristic score.
	short := pathOfDepth(1, "x")
	long := pathOfDepth(2, strings.Repeat("y", 400))
	p := New(llm.NewMock("Path 1, score: 90"))

	eval, err := p.evaluateCombined(context.Background(), "problem", []Path{short, long})
	require.NoError(t, err)
	assert.Equal(t, 0, eval.index)
	assert.InDelta(t, (90.0+heuristicScore(short))/2, eval.score, 0.0001)
}
