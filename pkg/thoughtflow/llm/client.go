// Package llm defines the language-model port used by reasoning
// processors, with adapters for the OpenAI and Anthropic APIs and a
// scripted mock for tests.
//
// The port is narrow: one prompt in, one text completion out. No
// retry or backoff is implemented here; resilience (circuit
// breaking, retries, rate limiting) belongs to an adapter wrapping the
// client, and cancellation belongs to the caller's context.
package llm

import (
	"context"
	"time"
)

// Client is the language-model port. One call per Generate; the
// implementation is expected to enforce its own request timeout.
type Client interface {
	// Generate produces a completion for the prompt. Recognized
	// parameters (all optional): "temperature" (float64),
	// "max_tokens" (int), "system" (string).
	Generate(ctx context.Context, prompt string, params map[string]any) (*Response, error)
}

// Response is the outcome of one model call.
type Response struct {
	// Text is the completion text.
	Text string `json:"text"`
	// Model is the provider model that produced the completion.
	Model string `json:"model"`
	// Usage tracks token consumption when the provider reports it.
	Usage TokenUsage `json:"usage"`
	// Duration is the round-trip time of the call.
	Duration time.Duration `json:"duration"`
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add accumulates usage from another call.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// GenerateFunc adapts a function to the Client interface, the way
// http.HandlerFunc adapts handlers. Useful for tests and lightweight
// wrappers.
type GenerateFunc func(ctx context.Context, prompt string, params map[string]any) (*Response, error)

// Generate implements Client.
func (f GenerateFunc) Generate(ctx context.Context, prompt string, params map[string]any) (*Response, error) {
	return f(ctx, prompt, params)
}

// paramFloat reads an optional float parameter.
func paramFloat(params map[string]any, key string, defaultVal float64) float64 {
	if v, ok := params[key]; ok {
		switch val := v.(type) {
		case float64:
			return val
		case int:
			return float64(val)
		}
	}
	return defaultVal
}

// paramInt reads an optional int parameter.
func paramInt(params map[string]any, key string, defaultVal int64) int64 {
	if v, ok := params[key]; ok {
		switch val := v.(type) {
		case int:
			return int64(val)
		case int64:
			return val
		case float64:
			if val == float64(int64(val)) {
				return int64(val)
			}
		}
	}
	return defaultVal
}

// paramString reads an optional string parameter.
func paramString(params map[string]any, key, defaultVal string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return defaultVal
}
