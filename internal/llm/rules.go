package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// timeNow is a package-level var to allow test injection.
var timeNow = time.Now

// RuleModel is the model name reported by the rule-based client.
const RuleModel = "rule-based"

// RuleClient is the deterministic offline coach. It emits
// contract-valid payloads derived from the request schema, so the
// pipeline runs end to end without an API key: same states, same
// validation, same persistence, just no language model judgement.
type RuleClient struct {
	counters
}

// NewRuleClient creates the offline client.
func NewRuleClient() *RuleClient {
	return &RuleClient{}
}

// Complete answers from rules. The schema tells it which contract the
// caller expects; free-form requests get a plain text reply.
func (c *RuleClient) Complete(ctx context.Context, req Request) (Response, error) {
	c.requests.Add(1)
	c.modelCalls.Add(1)

	if err := ctx.Err(); err != nil {
		c.failures.Add(1)
		return Response{}, fmt.Errorf("llm: rule client: %w", err)
	}

	// The chat contract embeds the plan schema, so it must be sniffed
	// before the plan contract.
	var text string
	switch {
	case strings.Contains(req.Schema, "agent_persona"):
		text = c.mockChatJSON()
	case strings.Contains(req.Schema, "week_start_date"):
		text = c.mockPlanJSON()
	case strings.Contains(req.Schema, "findings"):
		text = `{"findings": []}`
	default:
		text = "Offline coach here. I can propose and revise plans from your logged training data; configure an API key for conversational coaching."
	}
	return Response{Text: text, Model: RuleModel, Calls: 1}, nil
}

// mockChatJSON is the canned conversational reply.
func (c *RuleClient) mockChatJSON() string {
	reply := map[string]any{
		"message":       "Offline coach here. I can propose and revise plans from your logged training data; configure an API key for conversational coaching.",
		"agent_persona": "Mock Coach",
	}
	data, _ := json.Marshal(reply)
	return string(data)
}

// mockPlanJSON is the fixed starter plan: one upper body session on
// Monday of the current week.
func (c *RuleClient) mockPlanJSON() string {
	plan := map[string]any{
		"week_start_date": timeNow().UTC().Format("2006-01-02"),
		"goal":            "General Strength (Mock)",
		"workouts": []map[string]any{
			{
				"day":   "Monday",
				"focus": "Upper Body",
				"exercises": []map[string]any{
					{"name": "Bench Press", "target_sets": 3, "target_reps": "8-12", "target_rpe": 8.0},
				},
			},
		},
	}
	data, _ := json.Marshal(plan)
	return string(data)
}
