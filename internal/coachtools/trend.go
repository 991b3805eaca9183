package coachtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/patrickpassosb/biome/internal/analytics"
	"github.com/patrickpassosb/biome/internal/memory"
)

// trendMaxPoints caps how many series points one response shows.
const trendMaxPoints = 60

// TrendTool handles the metrics_trend MCP tool.
type TrendTool struct {
	engine *analytics.Engine
}

// NewTrendTool creates a TrendTool.
func NewTrendTool(engine *analytics.Engine) *TrendTool {
	return &TrendTool{engine: engine}
}

// Definition returns the MCP tool definition for metrics_trend.
func (t *TrendTool) Definition() mcp.Tool {
	return mcp.NewTool("metrics_trend",
		mcp.WithDescription(
			"Compute one metric over a date range: a time series for volume_load, "+
				"machine_volume, average_rpe and weekly_frequency, or a scalar for max_weight. "+
				"Defaults to the full history; narrow with start/end.",
		),
		mcp.WithString("metric",
			mcp.Required(),
			mcp.Description("One of: volume_load, machine_volume, average_rpe, max_weight, weekly_frequency"),
		),
		mcp.WithString("exercise",
			mcp.Description("Restrict to one exercise (exact name as logged)"),
		),
		mcp.WithString("start",
			mcp.Description("Range start, YYYY-MM-DD (inclusive)"),
		),
		mcp.WithString("end",
			mcp.Description("Range end, YYYY-MM-DD (inclusive)"),
		),
	)
}

// Handle processes the metrics_trend tool call.
func (t *TrendTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("metric", "")
	if name == "" {
		return mcp.NewToolResultError("'metric' is required"), nil
	}

	r := analytics.AllTime()
	if start := req.GetString("start", ""); start != "" {
		r.Start = start
	}
	if end := req.GetString("end", ""); end != "" {
		r.End = end
	}

	metric, err := t.engine.Compute(ctx, name, r, req.GetString("exercise", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", metric.Name)

	switch {
	case metric.Scalar != nil:
		fmt.Fprintf(&b, "%.1f\n", *metric.Scalar)
	case len(metric.Series) == 0:
		b.WriteString("No data in this range.\n")
	default:
		points := metric.Series
		total := len(points)
		if total > trendMaxPoints {
			points = points[total-trendMaxPoints:]
		}
		for _, p := range points {
			fmt.Fprintf(&b, "%s  %.1f\n", p.Date, p.Value)
		}
		b.WriteString(memory.NavigationHint(len(points), total, "Narrow the range with start/end."))
	}

	return mcp.NewToolResultText(b.String()), nil
}
