package coachtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/patrickpassosb/biome/internal/pipeline"
	"github.com/patrickpassosb/biome/internal/plan"
)

// ProposeTool handles the coach_propose MCP tool.
type ProposeTool struct {
	orch *pipeline.Orchestrator
}

// NewProposeTool creates a ProposeTool.
func NewProposeTool(orch *pipeline.Orchestrator) *ProposeTool {
	return &ProposeTool{orch: orch}
}

// Definition returns the MCP tool definition for coach_propose.
func (t *ProposeTool) Definition() mcp.Tool {
	return mcp.NewTool("coach_propose",
		mcp.WithDescription(
			"Run the full coaching cycle: analyze the training history, draft a weekly plan "+
				"from the findings, and journal the result. Use this to get a fresh plan; use "+
				"coach_revise to adjust the current one instead of regenerating it.",
		),
		mcp.WithString("user_id",
			mcp.Description("User to coach (default: the local profile)"),
		),
	)
}

// Handle processes the coach_propose tool call.
func (t *ProposeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := t.orch.Propose(ctx, req.GetString("user_id", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("propose failed: %v", err)), nil
	}

	var b strings.Builder
	b.WriteString("# Weekly Plan Proposed\n\n")
	b.WriteString(plan.RenderMarkdown(*out.Plan))

	if len(out.Findings) > 0 {
		fmt.Fprintf(&b, "\n\n## Findings (%d)\n\n", len(out.Findings))
		b.WriteString(plan.RenderFindings(out.Findings))
	}

	b.WriteString("\n\n## Plan JSON\n\n")
	b.WriteString(jsonBlock(out.Plan))
	b.WriteString("\n")
	writeJournalFooter(&b, out)

	return mcp.NewToolResultText(b.String()), nil
}

// writeJournalFooter reports how the cycle was persisted. A warning
// means the plan is good but the journal write failed.
func writeJournalFooter(b *strings.Builder, out pipeline.Outcome) {
	if out.Warning != "" {
		fmt.Fprintf(b, "\n⚠️ %s — the plan above is valid but was not journaled.\n", out.Warning)
		return
	}
	if out.RecordID != "" {
		fmt.Fprintf(b, "\nJournaled as record %s.\n", out.RecordID)
	}
}
