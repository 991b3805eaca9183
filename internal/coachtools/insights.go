package coachtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/patrickpassosb/biome/internal/analytics"
)

// InsightsTool handles the metrics_insights MCP tool.
type InsightsTool struct {
	engine *analytics.Engine
}

// NewInsightsTool creates an InsightsTool.
func NewInsightsTool(engine *analytics.Engine) *InsightsTool {
	return &InsightsTool{engine: engine}
}

// Definition returns the MCP tool definition for metrics_insights.
func (t *InsightsTool) Definition() mcp.Tool {
	return mcp.NewTool("metrics_insights",
		mcp.WithDescription(
			"Run the deterministic insight detections over the training history: data "+
				"integrity problems, stagnation, recent progress, and high-RPE fatigue. "+
				"These are the raw signals the coaching pipeline curates into findings.",
		),
		mcp.WithString("exercise",
			mcp.Description("Restrict detection to one exercise (exact name as logged)"),
		),
	)
}

// Handle processes the metrics_insights tool call.
func (t *InsightsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	insights, err := t.engine.Insights(ctx, req.GetString("exercise", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("running detections: %v", err)), nil
	}

	if len(insights) == 0 {
		return mcp.NewToolResultText("No insights detected. Either the log is clean or there is not enough history yet."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Detected %d insight(s):\n\n", len(insights))
	for _, in := range insights {
		fmt.Fprintf(&b, "- [%s] %s", in.Severity, in.Category)
		if in.Exercise != "" {
			fmt.Fprintf(&b, " (%s)", in.Exercise)
		}
		fmt.Fprintf(&b, ": %s\n", in.Message)
	}

	return mcp.NewToolResultText(b.String()), nil
}
