package tot

import (
	"fmt"
	"strings"

	"github.com/mindfold/thoughtflow/pkg/thoughtflow/prompt"
)

// Prompt templates for the four pipeline phases. The THOUGHT marker
// format is load-bearing: parseThoughts recognizes exactly this shape.
var (
	initialTemplate = prompt.New(strings.TrimSpace(`
You are exploring multiple reasoning paths for a problem.

Problem: ${problem}

Generate ${count} genuinely different approaches to this problem.
Format each approach on its own line as:
THOUGHT 1: <first approach>
THOUGHT 2: <second approach>
and so on. Make every approach self-contained and concrete.
`))

	expansionTemplate = prompt.New(strings.TrimSpace(`
You are continuing one reasoning path for a problem.

Problem: ${problem}

Reasoning so far:
${chain}

Continue this line of reasoning with ${count} different next steps.
Format each step on its own line as:
THOUGHT 1: <first continuation>
THOUGHT 2: <second continuation>
and so on. Each continuation must follow from the reasoning so far.
`))

	evaluationTemplate = prompt.New(strings.TrimSpace(`
You are judging complete reasoning paths for a problem.

Problem: ${problem}

${paths}

Pick the single best path. Answer with "Path <number>" and a score
between 0 and 100 for how promising it is, for example:
Path 2, score: 85
`))

	synthesisTemplate = prompt.New(strings.TrimSpace(`
You followed this reasoning path for a problem.

Problem: ${problem}

Reasoning path:
${chain}

Write a comprehensive final answer to the problem based on this
reasoning. Answer directly; do not mention the reasoning process.
`))
)

// formatChain renders a reasoning chain for inclusion in a prompt.
func formatChain(contents []string) string {
	var b strings.Builder
	for i, c := range contents {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatPathsForEvaluation enumerates paths as "Path 1..N" blocks for
// the llm_scoring prompt.
func formatPathsForEvaluation(paths []Path) string {
	var b strings.Builder
	for i, p := range paths {
		fmt.Fprintf(&b, "Path %d:\n%s\n\n", i+1, formatChain(p.Contents))
	}
	return strings.TrimRight(b.String(), "\n")
}
