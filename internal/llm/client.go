// Package llm abstracts the language model the coaching stages talk to.
//
// The pipeline depends only on the Client interface. HTTPClient speaks
// the OpenAI-compatible chat completions wire format with a model
// fallback chain; RuleClient is the deterministic offline coach used
// when no API key is configured, and ScriptClient replays canned
// responses in tests. Call accounting is shared so the stats surface
// works the same against any implementation.
package llm

import (
	"context"
	"sync/atomic"
)

// Request is one completion request. Schema, when set, is the JSON
// Schema the response payload must conform to; clients embed it in the
// prompt so the model emits the contract.
type Request struct {
	System string
	Prompt string
	Schema string
}

// Response is one completion. Calls counts the model invocations the
// request cost, including fallback attempts.
type Response struct {
	Text  string
	Model string
	Calls int
}

// Client is the surface the coaching stages depend on.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Usage is a point-in-time snapshot of a client's call accounting.
type Usage struct {
	Requests   int64 `json:"requests"`
	ModelCalls int64 `json:"model_calls"`
	Failures   int64 `json:"failures"`
}

// Instrumented is implemented by clients that track usage.
type Instrumented interface {
	Usage() Usage
}

// counters is embedded by client implementations.
type counters struct {
	requests   atomic.Int64
	modelCalls atomic.Int64
	failures   atomic.Int64
}

// Usage returns the current counter snapshot.
func (c *counters) Usage() Usage {
	return Usage{
		Requests:   c.requests.Load(),
		ModelCalls: c.modelCalls.Load(),
		Failures:   c.failures.Load(),
	}
}
