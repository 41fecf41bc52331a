package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records reasoning-engine metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordExecution records one processor invocation with its
	// duration and whether it degraded into a failure result.
	RecordExecution(ctx context.Context, flowType string, duration time.Duration, failed bool)

	// RecordLLMCall records one round trip through the model port.
	RecordLLMCall(ctx context.Context, phase string, duration time.Duration, err error)

	// RecordTreeSize records the node count of a completed thought tree.
	RecordTreeSize(ctx context.Context, flowType string, nodes int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	executions  metric.Int64Counter
	execLatency metric.Float64Histogram
	execErrors  metric.Int64Counter
	llmCalls    metric.Int64Counter
	llmLatency  metric.Float64Histogram
	llmErrors   metric.Int64Counter
	treeSize    metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("thoughtflow")

	executions, err := meter.Int64Counter("thoughtflow.flow.executions",
		metric.WithDescription("Number of processor invocations"),
	)
	if err != nil {
		return nil, err
	}

	execLatency, err := meter.Float64Histogram("thoughtflow.flow.latency_ms",
		metric.WithDescription("Processor invocation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	execErrors, err := meter.Int64Counter("thoughtflow.flow.errors",
		metric.WithDescription("Number of invocations that degraded into failure results"),
	)
	if err != nil {
		return nil, err
	}

	llmCalls, err := meter.Int64Counter("thoughtflow.llm.calls",
		metric.WithDescription("Number of model port round trips"),
	)
	if err != nil {
		return nil, err
	}

	llmLatency, err := meter.Float64Histogram("thoughtflow.llm.latency_ms",
		metric.WithDescription("Model call latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	llmErrors, err := meter.Int64Counter("thoughtflow.llm.errors",
		metric.WithDescription("Number of failed model calls"),
	)
	if err != nil {
		return nil, err
	}

	treeSize, err := meter.Int64Histogram("thoughtflow.tree.nodes",
		metric.WithDescription("Thought tree node count per invocation"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		executions:  executions,
		execLatency: execLatency,
		execErrors:  execErrors,
		llmCalls:    llmCalls,
		llmLatency:  llmLatency,
		llmErrors:   llmErrors,
		treeSize:    treeSize,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordExecution records one processor invocation.
func (m *otelMetrics) RecordExecution(ctx context.Context, flowType string, duration time.Duration, failed bool) {
	attrs := []attribute.KeyValue{
		attribute.String("flow_type", flowType),
	}

	m.executions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.execLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if failed {
		m.execErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordLLMCall records one model port round trip.
func (m *otelMetrics) RecordLLMCall(ctx context.Context, phase string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("phase", phase),
	}

	m.llmCalls.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.llmLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.llmErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordTreeSize records the node count of a completed tree.
func (m *otelMetrics) RecordTreeSize(ctx context.Context, flowType string, nodes int64) {
	attrs := []attribute.KeyValue{
		attribute.String("flow_type", flowType),
	}
	m.treeSize.Record(ctx, nodes, metric.WithAttributes(attrs...))
}
