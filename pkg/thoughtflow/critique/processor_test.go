package critique_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindfold/thoughtflow/pkg/thoughtflow"
	"github.com/mindfold/thoughtflow/pkg/thoughtflow/config"
	"github.com/mindfold/thoughtflow/pkg/thoughtflow/critique"
	"github.com/mindfold/thoughtflow/pkg/thoughtflow/llm"
)

func TestProcess_SingleRound(t *testing.T) {
	mock := llm.NewMock(
		"first draft",
		"the draft misses the edge case",
		"final answer covering the edge case",
	)
	p := critique.New(mock)

	result := p.Process(context.Background(), "question", config.New(nil), nil)

	require.False(t, result.Failed())
	assert.Equal(t, "final answer covering the edge case", result.FinalResponse)
	assert.True(t, result.ResponseChanged)
	assert.Contains(t, result.Reasoning, "Round 1 critique: the draft misses the edge case")
	assert.Contains(t, result.FullResponse, "Draft:\nfirst draft")
	assert.Equal(t, 3, mock.CallCount())

	require.Len(t, result.Steps, 3)
	assert.Equal(t, "draft", result.Steps[0].Label)
	assert.Equal(t, "critique_1", result.Steps[1].Label)
	assert.Equal(t, "revision_1", result.Steps[2].Label)
}

func TestProcess_UnchangedAnswer(t *testing.T) {
	mock := llm.NewMock(
		"the answer",
		"no real flaws",
		"the answer",
	)
	p := critique.New(mock)

	result := p.Process(context.Background(), "question", config.New(nil), nil)

	require.False(t, result.Failed())
	assert.False(t, result.ResponseChanged)
}

func TestProcess_MultipleRounds(t *testing.T) {
	mock := llm.NewMock(
		"v1",
		"flaw a",
		"v2",
		"flaw b",
		"v3",
	)
	cfg := config.New(map[string]any{"critique_rounds": 2})
	p := critique.New(mock)

	result := p.Process(context.Background(), "question", cfg, nil)

	require.False(t, result.Failed())
	assert.Equal(t, "v3", result.FinalResponse)
	assert.Equal(t, 5, mock.CallCount())
	require.Len(t, result.Steps, 5)
	assert.Equal(t, "critique_2", result.Steps[3].Label)

	// Second critique must review the first revision, not the draft.
	calls := mock.Calls()
	assert.Contains(t, calls[3], "Answer: v2")
}

func TestProcess_CritiqueFailureConverts(t *testing.T) {
	mock := llm.NewMock("draft").FailAt(2, errors.New("rate limited"))
	p := critique.New(mock)

	result := p.Process(context.Background(), "question", config.New(nil), nil)

	require.True(t, result.Failed())
	assert.True(t, strings.HasPrefix(result.FullResponse, "ERROR: "))
	assert.Contains(t, result.FullResponse, "rate limited")
	assert.Equal(t, true, result.Metrics[thoughtflow.MetricError])
}

func TestValidateConfiguration(t *testing.T) {
	p := critique.New(llm.NewMock("x"))

	assert.True(t, p.ValidateConfiguration(config.New(nil)))
	assert.True(t, p.ValidateConfiguration(config.New(map[string]any{"critique_rounds": 3})))
	assert.False(t, p.ValidateConfiguration(config.New(map[string]any{"critique_rounds": 0})))
	assert.False(t, p.ValidateConfiguration(config.New(map[string]any{"critique_rounds": "two"})))
}

func TestFlowType(t *testing.T) {
	p := critique.New(llm.NewMock("x"))
	assert.Equal(t, thoughtflow.FlowTypeSelfCritique, p.FlowType())
}
