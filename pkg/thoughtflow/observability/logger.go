// Package observability provides structured logging, metrics, and
// distributed tracing for the reasoning engine.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds flow context to a logger.
// Returns a new logger with flow_id, flow_type, and debate_id fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "flow-123", "tree_of_thoughts", "debate-9")
//	enriched.Info("processing") // includes flow_id, flow_type, debate_id
func EnrichLogger(logger *slog.Logger, flowID, flowType, debateID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("flow_id", flowID),
		slog.String("flow_type", flowType),
		slog.String("debate_id", debateID),
	)
}

// LogProcessStart logs the start of a processor invocation.
func LogProcessStart(logger *slog.Logger, flowType string, promptLen int) {
	if logger == nil {
		return
	}
	logger.Info("flow processing starting",
		slog.String("flow_type", flowType),
		slog.Int("prompt_len", promptLen),
	)
}

// LogProcessComplete logs a completed invocation, degraded or not.
func LogProcessComplete(logger *slog.Logger, flowType string, durationMs float64, steps int, degraded bool) {
	if logger == nil {
		return
	}
	logger.Info("flow processing completed",
		slog.String("flow_type", flowType),
		slog.Float64("duration_ms", durationMs),
		slog.Int("steps", steps),
		slog.Bool("degraded", degraded),
	)
}

// LogProcessError logs an invocation that degraded into a failure result.
func LogProcessError(logger *slog.Logger, flowType string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("flow processing failed",
		slog.String("flow_type", flowType),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogLLMCall logs one round trip through the model port.
func LogLLMCall(logger *slog.Logger, phase string, promptLen, responseLen int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("llm call",
		slog.String("phase", phase),
		slog.Int("prompt_len", promptLen),
		slog.Int("response_len", responseLen),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogExecutionSaved logs a persisted execution record.
func LogExecutionSaved(logger *slog.Logger, executionID, flowID string, failed bool) {
	if logger == nil {
		return
	}
	logger.Debug("execution recorded",
		slog.String("execution_id", executionID),
		slog.String("flow_id", flowID),
		slog.Bool("failed", failed),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
