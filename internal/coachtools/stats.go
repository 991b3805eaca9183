package coachtools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/patrickpassosb/biome/internal/llm"
	"github.com/patrickpassosb/biome/internal/memory"
)

// statsWindow is how many recent records the journal summary covers.
const statsWindow = 50

// StatsTool handles the coach_stats MCP tool.
type StatsTool struct {
	client llm.Instrumented
	store  memory.Store
	model  string
}

// NewStatsTool creates a StatsTool. model names the active backend for
// display ("rule-based" when running offline).
func NewStatsTool(client llm.Instrumented, store memory.Store, model string) *StatsTool {
	return &StatsTool{client: client, store: store, model: model}
}

// Definition returns the MCP tool definition for coach_stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("coach_stats",
		mcp.WithDescription(
			"Show coaching system statistics — model backend and call counters, plus a "+
				"summary of recent journal activity.",
		),
	)
}

// Handle processes the coach_stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	usage := t.client.Usage()

	var b strings.Builder
	b.WriteString("## Coach Statistics\n\n")
	b.WriteString("### Model\n")
	fmt.Fprintf(&b, "- **Backend**: %s\n", t.model)
	fmt.Fprintf(&b, "- **Requests**: %d\n", usage.Requests)
	fmt.Fprintf(&b, "- **Model calls**: %d\n", usage.ModelCalls)
	fmt.Fprintf(&b, "- **Failures**: %d\n", usage.Failures)

	b.WriteString("\n### Journal\n")
	records, err := t.store.Timeline(ctx, statsWindow)
	if err != nil {
		fmt.Fprintf(&b, "- unavailable: %v\n", err)
		return mcp.NewToolResultText(b.String()), nil
	}
	if len(records) == 0 {
		b.WriteString("- empty\n")
		return mcp.NewToolResultText(b.String()), nil
	}

	byType := map[string]int{}
	for _, rec := range records {
		byType[rec.Type]++
	}
	types := make([]string, 0, len(byType))
	for k := range byType {
		types = append(types, k)
	}
	sort.Strings(types)

	fmt.Fprintf(&b, "- **Recent records**: %d\n", len(records))
	for _, typ := range types {
		fmt.Fprintf(&b, "  - %s: %d\n", typ, byType[typ])
	}
	fmt.Fprintf(&b, "- **Latest**: %s at %s\n", records[0].Type, records[0].CreatedAt)

	return mcp.NewToolResultText(b.String()), nil
}
