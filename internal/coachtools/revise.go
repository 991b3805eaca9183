package coachtools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/patrickpassosb/biome/internal/coach"
	"github.com/patrickpassosb/biome/internal/memory"
	"github.com/patrickpassosb/biome/internal/pipeline"
	"github.com/patrickpassosb/biome/internal/plan"
)

// ReviseTool handles the coach_revise MCP tool.
type ReviseTool struct {
	orch  *pipeline.Orchestrator
	store memory.Store
}

// NewReviseTool creates a ReviseTool.
func NewReviseTool(orch *pipeline.Orchestrator, store memory.Store) *ReviseTool {
	return &ReviseTool{orch: orch, store: store}
}

// Definition returns the MCP tool definition for coach_revise.
func (t *ReviseTool) Definition() mcp.Tool {
	return mcp.NewTool("coach_revise",
		mcp.WithDescription(
			"Revise the current weekly plan according to user feedback while keeping the rest "+
				"of the week intact. Without plan_json the latest journaled plan is revised.",
		),
		mcp.WithString("feedback",
			mcp.Required(),
			mcp.Description("What the user wants changed, in their own words"),
		),
		mcp.WithString("plan_json",
			mcp.Description("The plan to revise as JSON (default: the latest journaled plan)"),
		),
	)
}

// Handle processes the coach_revise tool call.
func (t *ReviseTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	feedback := strings.TrimSpace(req.GetString("feedback", ""))
	if feedback == "" {
		return mcp.NewToolResultError("'feedback' is required — what should change about the plan?"), nil
	}

	current, result := t.currentPlan(ctx, req.GetString("plan_json", ""))
	if result != nil {
		return result, nil
	}

	out, err := t.orch.Revise(ctx, current, feedback)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("revise failed: %v", err)), nil
	}

	var b strings.Builder
	b.WriteString("# Plan Revised\n\n")
	b.WriteString(plan.RenderMarkdown(*out.Plan))
	b.WriteString("\n\n## Plan JSON\n\n")
	b.WriteString(jsonBlock(out.Plan))
	b.WriteString("\n")
	writeJournalFooter(&b, out)

	return mcp.NewToolResultText(b.String()), nil
}

// currentPlan resolves the plan to revise: the explicit argument when
// given, otherwise the latest journaled snapshot.
func (t *ReviseTool) currentPlan(ctx context.Context, planJSON string) (plan.WeeklyPlan, *mcp.CallToolResult) {
	if planJSON != "" {
		parsed, err := plan.ParseWeeklyPlan([]byte(planJSON))
		if err != nil {
			var violation *plan.SchemaViolationError
			if errors.As(err, &violation) {
				return plan.WeeklyPlan{}, mcp.NewToolResultError(
					"plan_json is not a valid weekly plan:\n- " + strings.Join(violation.Issues, "\n- "))
			}
			return plan.WeeklyPlan{}, mcp.NewToolResultError(fmt.Sprintf("plan_json: %v", err))
		}
		return parsed, nil
	}

	current, ok, err := coach.LatestPlan(ctx, t.store)
	if err != nil {
		return plan.WeeklyPlan{}, mcp.NewToolResultError(fmt.Sprintf("loading the latest plan: %v", err))
	}
	if !ok {
		return plan.WeeklyPlan{}, mcp.NewToolResultError("no plan to revise yet — run coach_propose first")
	}
	return current, nil
}
