package tot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseThoughts_WellFormed(t *testing.T) {
	text := "THOUGHT 1: Approach A\nmore text\nTHOUGHT 2: Approach B"

	thoughts, degraded := parseThoughts(text, 2)
	require.Len(t, thoughts, 2)
	assert.False(t, degraded)
	assert.Equal(t, "Approach A more text", thoughts[0])
	assert.Equal(t, "Approach B", thoughts[1])
}

func TestParseThoughts_ContinuationAndWhitespace(t *testing.T) {
	text := "preamble the model wrote\nTHOUGHT 1:   padded content  \n  second line  \n\nTHOUGHT 2: short"

	thoughts, degraded := parseThoughts(text, 2)
	require.Len(t, thoughts, 2)
	assert.False(t, degraded)
	assert.Equal(t, "padded content second line", thoughts[0])
	assert.Equal(t, "short", thoughts[1])
}

func TestParseThoughts_FillsPlaceholders(t *testing.T) {
	thoughts, degraded := parseThoughts("THOUGHT 1: only one", 3)
	require.Len(t, thoughts, 3)
	assert.True(t, degraded)
	assert.Equal(t, "only one", thoughts[0])
	assert.Contains(t, thoughts[1], "Placeholder thought 2")
	assert.Contains(t, thoughts[2], "Placeholder thought 3")
}

func TestParseThoughts_NothingParsable(t *testing.T) {
	thoughts, degraded := parseThoughts("the model rambled with no markers", 2)
	require.Len(t, thoughts, 2)
	assert.True(t, degraded)
	for _, th := range thoughts {
		assert.Contains(t, th, "Placeholder thought")
	}
}

func TestParseThoughts_TruncatesExtras(t *testing.T) {
	text := "THOUGHT 1: a\nTHOUGHT 2: b\nTHOUGHT 3: c"
	thoughts, degraded := parseThoughts(text, 2)
	require.Len(t, thoughts, 2)
	assert.False(t, degraded)
	assert.Equal(t, []string{"a", "b"}, thoughts)
}

func TestParseThoughts_InputOrderNotNumbering(t *testing.T) {
	// Thoughts keep input order even when the model misnumbers them.
	text := "THOUGHT 2: came first\nTHOUGHT 1: came second"
	thoughts, degraded := parseThoughts(text, 2)
	require.Len(t, thoughts, 2)
	assert.False(t, degraded)
	assert.Equal(t, "came first", thoughts[0])
	assert.Equal(t, "came second", thoughts[1])
}

func TestParsePathSelection_WellFormed(t *testing.T) {
	index, score, degraded := parsePathSelection("Path 2 is the best choice, score: 88", 4)
	assert.Equal(t, 1, index)
	assert.Equal(t, 88.0, score)
	assert.False(t, degraded)
}

func TestParsePathSelection_CaseInsensitive(t *testing.T) {
	index, score, degraded := parsePathSelection("I pick path 3 with 91.5 confidence", 4)
	assert.Equal(t, 2, index)
	assert.Equal(t, 91.5, score)
	assert.False(t, degraded)
}

func TestParsePathSelection_NoPathMention(t *testing.T) {
	index, score, degraded := parsePathSelection("the second option looks strong, 60", 4)
	assert.Equal(t, 0, index)
	assert.Equal(t, 60.0, score)
	assert.True(t, degraded)
}

func TestParsePathSelection_NoScore(t *testing.T) {
	index, score, degraded := parsePathSelection("Path 4 is clearly superior", 4)
	assert.Equal(t, 3, index)
	assert.Equal(t, 75.0, score)
	assert.True(t, degraded)
}

func TestParsePathSelection_PathOutOfRange(t *testing.T) {
	index, score, degraded := parsePathSelection("Path 9, score: 50", 4)
	assert.Equal(t, 0, index)
	assert.Equal(t, 50.0, score)
	assert.True(t, degraded)
}

func TestParsePathSelection_ScoreOutOfRange(t *testing.T) {
	// Numbers outside [0,100] are not scores.
	index, score, degraded := parsePathSelection("Path 1 rated 150 out of 200", 4)
	assert.Equal(t, 0, index)
	assert.Equal(t, 75.0, score)
	assert.True(t, degraded)
}

func TestParsePathSelection_Empty(t *testing.T) {
	index, score, degraded := parsePathSelection("", 4)
	assert.Equal(t, 0, index)
	assert.Equal(t, 75.0, score)
	assert.True(t, degraded)
}

func TestParsePathSelection_PathNumberNotScore(t *testing.T) {
	// The path number itself must not be read as the score.
	index, score, degraded := parsePathSelection("Path 2", 4)
	assert.Equal(t, 1, index)
	assert.Equal(t, 75.0, score)
	assert.True(t, degraded)
}
