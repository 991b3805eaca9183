package llm

import (
	"context"
	"fmt"
	"sync"
)

// ScriptStep is one scripted turn: either a text reply or an error.
type ScriptStep struct {
	Text string
	Err  error
}

// ScriptClient replays a fixed sequence of steps, one per Complete
// call. Tests use it to drive retry and failure paths without a
// network. Exported rather than kept in a _test.go file because the
// pipeline and coach packages script it too.
type ScriptClient struct {
	counters

	mu       sync.Mutex
	steps    []ScriptStep
	pos      int
	received []Request
}

// NewScriptClient builds a client that answers with the given steps in
// order and errors once the script runs out.
func NewScriptClient(steps ...ScriptStep) *ScriptClient {
	return &ScriptClient{steps: steps}
}

// Complete pops the next scripted step.
func (c *ScriptClient) Complete(ctx context.Context, req Request) (Response, error) {
	c.requests.Add(1)
	c.modelCalls.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = append(c.received, req)

	if err := ctx.Err(); err != nil {
		c.failures.Add(1)
		return Response{}, fmt.Errorf("llm: script client: %w", err)
	}
	if c.pos >= len(c.steps) {
		c.failures.Add(1)
		return Response{}, fmt.Errorf("llm: script exhausted after %d calls", c.pos)
	}
	step := c.steps[c.pos]
	c.pos++
	if step.Err != nil {
		c.failures.Add(1)
		return Response{}, step.Err
	}
	return Response{Text: step.Text, Model: "scripted", Calls: 1}, nil
}

// Received returns a copy of every request seen so far, in order.
func (c *ScriptClient) Received() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Request, len(c.received))
	copy(out, c.received)
	return out
}
