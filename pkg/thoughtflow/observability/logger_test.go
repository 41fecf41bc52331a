package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogHandler captures log records for testing.
type testLogHandler struct {
	buf   *bytes.Buffer
	attrs []slog.Attr
}

func newTestLogHandler() *testLogHandler {
	return &testLogHandler{buf: &bytes.Buffer{}}
}

func (h *testLogHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *testLogHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	for _, a := range h.attrs {
		data[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})
	return json.NewEncoder(h.buf).Encode(data)
}

func (h *testLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &testLogHandler{buf: h.buf, attrs: append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...)}
}

func (h *testLogHandler) WithGroup(name string) slog.Handler { return h }

func (h *testLogHandler) records() []map[string]any {
	var records []map[string]any
	for _, line := range bytes.Split(h.buf.Bytes(), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(line, &m); err == nil {
			records = append(records, m)
		}
	}
	return records
}

func TestEnrichLogger(t *testing.T) {
	h := newTestLogHandler()
	logger := slog.New(h)

	enriched := EnrichLogger(logger, "flow-1", "tree_of_thoughts", "debate-9")
	require.NotNil(t, enriched)
	enriched.Info("processing")

	records := h.records()
	require.Len(t, records, 1)
	assert.Equal(t, "flow-1", records[0]["flow_id"])
	assert.Equal(t, "tree_of_thoughts", records[0]["flow_type"])
	assert.Equal(t, "debate-9", records[0]["debate_id"])
}

func TestEnrichLogger_NilLogger(t *testing.T) {
	assert.Nil(t, EnrichLogger(nil, "flow-1", "tree_of_thoughts", ""))
}

func TestLogHelpers(t *testing.T) {
	h := newTestLogHandler()
	logger := slog.New(h)

	LogProcessStart(logger, "tree_of_thoughts", 42)
	LogProcessComplete(logger, "tree_of_thoughts", 1200, 5, true)
	LogProcessError(logger, "tree_of_thoughts", errors.New("boom"), 90)
	LogLLMCall(logger, "synthesis", 100, 200, 350)
	LogExecutionSaved(logger, "exec-1", "flow-1", false)

	records := h.records()
	require.Len(t, records, 5)

	assert.Equal(t, "flow processing starting", records[0]["msg"])
	assert.Equal(t, float64(42), records[0]["prompt_len"])

	assert.Equal(t, "flow processing completed", records[1]["msg"])
	assert.Equal(t, true, records[1]["degraded"])

	assert.Equal(t, "flow processing failed", records[2]["msg"])
	assert.Equal(t, "boom", records[2]["error"])

	assert.Equal(t, "llm call", records[3]["msg"])
	assert.Equal(t, "synthesis", records[3]["phase"])

	assert.Equal(t, "execution recorded", records[4]["msg"])
	assert.Equal(t, "exec-1", records[4]["execution_id"])
}

func TestLogHelpers_NilLoggerSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		LogProcessStart(nil, "t", 1)
		LogProcessComplete(nil, "t", 1, 1, false)
		LogProcessError(nil, "t", errors.New("x"), 1)
		LogLLMCall(nil, "p", 1, 1, 1)
		LogExecutionSaved(nil, "e", "f", false)
	})
}

func TestTimedOperation(t *testing.T) {
	done := TimedOperation()
	elapsed := done()
	assert.GreaterOrEqual(t, elapsed, float64(0))
}
