package coachtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/patrickpassosb/biome/internal/analytics"
)

// OverviewTool handles the metrics_overview MCP tool.
type OverviewTool struct {
	engine *analytics.Engine
}

// NewOverviewTool creates an OverviewTool.
func NewOverviewTool(engine *analytics.Engine) *OverviewTool {
	return &OverviewTool{engine: engine}
}

// Definition returns the MCP tool definition for metrics_overview.
func (t *OverviewTool) Definition() mcp.Tool {
	return mcp.NewTool("metrics_overview",
		mcp.WithDescription(
			"Show the current training snapshot — latest session, this week's frequency and "+
				"volume load, active weak points, and lifetime set count.",
		),
	)
}

// Handle processes the metrics_overview tool call.
func (t *OverviewTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	overview, err := t.engine.OverviewMetrics(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("computing overview: %v", err)), nil
	}

	if overview.TotalSetsAllTime == 0 {
		return mcp.NewToolResultText("No training history yet. Once sets are logged, the overview lights up."), nil
	}

	var b strings.Builder
	b.WriteString("## Training Overview\n\n")
	fmt.Fprintf(&b, "- **Latest session**: %s\n", overview.LatestDate)
	fmt.Fprintf(&b, "- **Current week** (from %s): %d session(s), %.0f kg·reps volume\n",
		overview.WeekStart, overview.WeeklyFrequency, overview.VolumeLoadWeek)
	fmt.Fprintf(&b, "- **Active weak points**: %d\n", overview.WeakPointCount)
	fmt.Fprintf(&b, "- **Total sets logged**: %d\n", overview.TotalSetsAllTime)

	return mcp.NewToolResultText(b.String()), nil
}
