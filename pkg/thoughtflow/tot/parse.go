package tot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// thoughtMarker matches "THOUGHT <n>: <content>" at the start of a line.
	thoughtMarker = regexp.MustCompile(`^THOUGHT\s+(\d+)\s*:\s*(.*)$`)

	// pathMention matches the first "Path <k>" reference in a selection
	// response, case-insensitively.
	pathMention = regexp.MustCompile(`(?i)path\s+(\d+)`)

	// number matches an integer or decimal literal.
	number = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// Fallback values when a selection response cannot be parsed.
const (
	defaultPathIndex = 0
	defaultScore     = 75.0
)

// parseThoughts extracts up to expected thoughts from a model response.
// A thought starts at a "THOUGHT <n>: <content>" line and accumulates
// continuation lines until the next marker. Content is trimmed, with
// continuation lines joined by single spaces, and thoughts keep input
// order regardless of their numbering.
//
// If the response yields fewer thoughts than expected, synthetic
// placeholders fill the gap and degraded is true, so downstream
// consumers can tell best-effort fill from genuine model output.
func parseThoughts(text string, expected int) (thoughts []string, degraded bool) {
	var current []string
	flush := func() {
		if current != nil {
			thoughts = append(thoughts, strings.Join(current, " "))
			current = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if m := thoughtMarker.FindStringSubmatch(line); m != nil {
			flush()
			current = []string{}
			if m[2] != "" {
				current = append(current, m[2])
			}
			continue
		}
		if current != nil && line != "" {
			current = append(current, line)
		}
	}
	flush()

	if len(thoughts) > expected {
		thoughts = thoughts[:expected]
	}
	for len(thoughts) < expected {
		degraded = true
		thoughts = append(thoughts, fmt.Sprintf(
			"Placeholder thought %d: continue reasoning from the current context", len(thoughts)+1))
	}
	return thoughts, degraded
}

// parsePathSelection extracts the winning path index and its score from
// an llm_scoring response over pathCount enumerated paths.
//
// The first "Path <k>" mention selects the path (1-based on the wire);
// the first number in [0,100] elsewhere in the text is the score.
// Either falls back to its default (path 1, score 75.0) when absent or
// out of range, and degraded reports that any fallback was used.
func parsePathSelection(text string, pathCount int) (index int, score float64, degraded bool) {
	index = defaultPathIndex
	score = defaultScore

	scoreText := text
	if m := pathMention.FindStringSubmatchIndex(text); m != nil {
		k, err := strconv.Atoi(text[m[2]:m[3]])
		if err == nil && k >= 1 && k <= pathCount {
			index = k - 1
		} else {
			degraded = true
		}
		// The path number must not be mistaken for the score.
		scoreText = text[:m[0]] + text[m[1]:]
	} else {
		degraded = true
	}

	found := false
	for _, loc := range number.FindAllString(scoreText, -1) {
		n, err := strconv.ParseFloat(loc, 64)
		if err == nil && n >= 0 && n <= 100 {
			score = n
			found = true
			break
		}
	}
	if !found {
		degraded = true
	}
	return index, score, degraded
}
