package coachtools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/patrickpassosb/biome/internal/coach"
	"github.com/patrickpassosb/biome/internal/memory"
	"github.com/patrickpassosb/biome/internal/pipeline"
	"github.com/patrickpassosb/biome/internal/plan"
)

// ChatTool handles the coach_chat MCP tool.
type ChatTool struct {
	orch  *pipeline.Orchestrator
	store memory.Store
}

// NewChatTool creates a ChatTool.
func NewChatTool(orch *pipeline.Orchestrator, store memory.Store) *ChatTool {
	return &ChatTool{orch: orch, store: store}
}

// Definition returns the MCP tool definition for coach_chat.
func (t *ChatTool) Definition() mcp.Tool {
	return mcp.NewTool("coach_chat",
		mcp.WithDescription(
			"Talk to the coaching team (workout, nutrition, recovery). The coach answers over "+
				"the live training data and the current plan, and may propose a plan change; a "+
				"proposed plan is journaled so coach_revise can pick it up.",
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The user's message"),
		),
		mcp.WithString("history_json",
			mcp.Description(`Prior conversation turns as a JSON array of {"role", "content"}`),
		),
		mcp.WithString("plan_json",
			mcp.Description("The active plan as JSON (default: the latest journaled plan, if any)"),
		),
	)
}

// Handle processes the coach_chat tool call.
func (t *ChatTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message := strings.TrimSpace(req.GetString("message", ""))
	if message == "" {
		return mcp.NewToolResultError("'message' is required"), nil
	}

	var history []pipeline.Message
	if raw := req.GetString("history_json", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &history); err != nil {
			return mcp.NewToolResultError(`history_json must be a JSON array of {"role", "content"} objects`), nil
		}
	}

	current, result := t.activePlan(ctx, req.GetString("plan_json", ""))
	if result != nil {
		return result, nil
	}

	out, err := t.orch.Chat(ctx, pipeline.ChatTurn{Message: message, History: history, Current: current})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("chat failed: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**: %s\n", out.Persona, out.Reply)

	if out.Plan != nil {
		b.WriteString("\n## Proposed Plan\n\n")
		b.WriteString(plan.RenderMarkdown(*out.Plan))
		b.WriteString("\n\n## Plan JSON\n\n")
		b.WriteString(jsonBlock(out.Plan))
		b.WriteString("\n")
		writeJournalFooter(&b, out)
	}

	return mcp.NewToolResultText(b.String()), nil
}

// activePlan resolves the conversation's plan context. Chat works
// without one; a brand-new user simply has no plan yet.
func (t *ChatTool) activePlan(ctx context.Context, planJSON string) (*plan.WeeklyPlan, *mcp.CallToolResult) {
	if planJSON != "" {
		parsed, err := plan.ParseWeeklyPlan([]byte(planJSON))
		if err != nil {
			return nil, mcp.NewToolResultError(fmt.Sprintf("plan_json: %v", err))
		}
		return &parsed, nil
	}

	current, ok, err := coach.LatestPlan(ctx, t.store)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("loading the latest plan: %v", err))
	}
	if !ok {
		return nil, nil
	}
	return &current, nil
}
