package tot

import (
	"context"
	"math"
)

// Evaluation methods for picking the best reasoning path.
const (
	EvaluationLLMScoring = "llm_scoring"
	EvaluationHeuristic  = "heuristic"
	EvaluationCombined   = "combined"
)

// idealDepth is the depth the heuristic curve peaks at: deep enough to
// have developed an idea, shallow enough not to have wandered.
const idealDepth = 2.5

// lengthCap caps the cumulative content length that still increases
// the heuristic length score.
const lengthCap = 1000

// coherencePlaceholder stands in for a real coherence model.
const coherencePlaceholder = 0.8

// evaluation is the outcome of one path-selection pass.
type evaluation struct {
	index    int
	score    float64
	degraded bool
	// promptSent/rawOutput are set only when a model call was made.
	promptSent string
	rawOutput  string
}

// heuristicScore scores one path on a 0-100 scale: the average of a
// depth-preference curve peaking at idealDepth, a length score capped
// at lengthCap characters, and a fixed coherence placeholder.
func heuristicScore(p Path) float64 {
	depthScore := 1 - math.Abs(float64(p.Depth())-idealDepth)/idealDepth
	if depthScore < 0 {
		depthScore = 0
	}
	lengthScore := math.Min(float64(p.CombinedLength()), lengthCap) / lengthCap
	return (depthScore + lengthScore + coherencePlaceholder) / 3 * 100
}

// evaluateHeuristic picks the highest-scoring path, ties broken by
// iteration order.
func evaluateHeuristic(paths []Path) evaluation {
	best := 0
	bestScore := math.Inf(-1)
	for i, p := range paths {
		if s := heuristicScore(p); s > bestScore {
			best = i
			bestScore = s
		}
	}
	return evaluation{index: best, score: bestScore}
}

// evaluateLLM asks the model to pick the best path with one call over
// all paths enumerated as "Path 1..N".
func (p *Processor) evaluateLLM(ctx context.Context, problem string, paths []Path) (evaluation, error) {
	promptSent := evaluationTemplate.MustRender(map[string]any{
		"problem": problem,
		"paths":   formatPathsForEvaluation(paths),
	})

	resp, err := p.generate(ctx, "path_evaluation", promptSent)
	if err != nil {
		return evaluation{}, err
	}

	index, score, degraded := parsePathSelection(resp.Text, len(paths))
	return evaluation{
		index:      index,
		score:      score,
		degraded:   degraded,
		promptSent: promptSent,
		rawOutput:  resp.Text,
	}, nil
}

// evaluateCombined runs both strategies. Agreement keeps the llm
// verdict unchanged; disagreement takes the llm winner and averages
// its score with that same path's heuristic score.
func (p *Processor) evaluateCombined(ctx context.Context, problem string, paths []Path) (evaluation, error) {
	llmEval, err := p.evaluateLLM(ctx, problem, paths)
	if err != nil {
		return evaluation{}, err
	}

	heurEval := evaluateHeuristic(paths)
	if heurEval.index == llmEval.index {
		return llmEval, nil
	}

	llmEval.score = (llmEval.score + heuristicScore(paths[llmEval.index])) / 2
	return llmEval, nil
}
