package coachtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/patrickpassosb/biome/internal/memory"
)

// SearchTool handles the mem_search MCP tool.
type SearchTool struct {
	store memory.Store
}

// NewSearchTool creates a SearchTool.
func NewSearchTool(store memory.Store) *SearchTool {
	return &SearchTool{store: store}
}

// Definition returns the MCP tool definition for mem_search.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("mem_search",
		mcp.WithDescription(
			"Search the coaching journal. Matches record content and tags (weeks are tagged "+
				"week:YYYY-MM-DD, cycles flow:propose/revise/chat). With no query the most "+
				"recent records come back, so this also works as a filtered timeline.",
		),
		mcp.WithString("query",
			mcp.Description("Search terms — exercise names, week tags, feedback wording"),
		),
		mcp.WithString("type",
			mcp.Description("Filter by record type: plan_snapshot, finding_snapshot, user_feedback, reflection"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 10)"),
		),
		mcp.WithString("detail_level",
			mcp.Description(
				"Level of detail: 'summary' (types and tags only), 'standard' (default — "+
					"200-char snippets), 'full' (complete record content).",
			),
			mcp.Enum(memory.DetailLevelValues()...),
		),
	)
}

// Handle processes the mem_search tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	recordType := req.GetString("type", "")
	limit := intArg(req, "limit", 10)
	detailLevel := memory.ParseDetailLevel(req.GetString("detail_level", ""))

	records, err := t.store.Search(ctx, memory.SearchOptions{Query: query, Type: recordType, Limit: limit})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(records) == 0 {
		return mcp.NewToolResultText("No journal records match."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d record(s), newest first:\n\n", len(records))
	for i, rec := range records {
		formatRecord(&b, i+1, rec, detailLevel)
	}
	if detailLevel == memory.DetailSummary {
		b.WriteString(memory.SummaryFooter)
	}

	return mcp.NewToolResultText(b.String()), nil
}
