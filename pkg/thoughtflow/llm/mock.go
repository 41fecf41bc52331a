package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Mock is an in-memory Client for tests and examples. It replays a
// queue of canned completions in order and records every prompt it
// receives. When the queue is exhausted it keeps returning the last
// completion, so a single canned response can serve a whole pipeline.
type Mock struct {
	mu        sync.Mutex
	responses []string
	errAt     map[int]error
	calls     []string
}

// NewMock creates a mock that replays the given completions in order.
func NewMock(responses ...string) *Mock {
	return &Mock{
		responses: responses,
		errAt:     make(map[int]error),
	}
}

// FailAt makes the nth call (1-based) return err instead of a
// completion. Returns the mock for chaining.
func (m *Mock) FailAt(n int, err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errAt[n] = err
	return m
}

// Generate implements Client.
func (m *Mock) Generate(ctx context.Context, prompt string, params map[string]any) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, prompt)
	call := len(m.calls)

	if err, ok := m.errAt[call]; ok {
		return nil, err
	}
	if len(m.responses) == 0 {
		return nil, fmt.Errorf("mock has no responses (call %d)", call)
	}

	idx := call - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return &Response{
		Text:     m.responses[idx],
		Model:    "mock",
		Duration: time.Millisecond,
	}, nil
}

// Calls returns the prompts received so far, in order.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Generate invocations so far.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
