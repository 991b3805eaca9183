package coachtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/patrickpassosb/biome/internal/memory"
)

// TimelineTool handles the mem_timeline MCP tool.
type TimelineTool struct {
	store memory.Store
}

// NewTimelineTool creates a TimelineTool.
func NewTimelineTool(store memory.Store) *TimelineTool {
	return &TimelineTool{store: store}
}

// Definition returns the MCP tool definition for mem_timeline.
func (t *TimelineTool) Definition() mcp.Tool {
	return mcp.NewTool("mem_timeline",
		mcp.WithDescription(
			"Show the coaching journal newest first: plan snapshots, finding snapshots, user "+
				"feedback and reflections. This is the memory of every coaching cycle; use "+
				"mem_search to find a specific week or topic.",
		),
		mcp.WithNumber("limit",
			mcp.Description("Max records to show (default: 10)"),
		),
		mcp.WithString("detail_level",
			mcp.Description(
				"Level of detail: 'summary' (types and tags only — minimal tokens), "+
					"'standard' (default — 200-char content snippets), "+
					"'full' (complete record content).",
			),
			mcp.Enum(memory.DetailLevelValues()...),
		),
	)
}

// Handle processes the mem_timeline tool call.
func (t *TimelineTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := intArg(req, "limit", 10)
	detailLevel := memory.ParseDetailLevel(req.GetString("detail_level", ""))

	records, err := t.store.Timeline(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reading timeline: %v", err)), nil
	}
	if len(records) == 0 {
		return mcp.NewToolResultText("The journal is empty — run coach_propose to start the timeline."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Last %d journal record(s), newest first:\n\n", len(records))
	for i, rec := range records {
		formatRecord(&b, i+1, rec, detailLevel)
	}
	if detailLevel == memory.DetailSummary {
		b.WriteString(memory.SummaryFooter)
	}

	return mcp.NewToolResultText(b.String()), nil
}
