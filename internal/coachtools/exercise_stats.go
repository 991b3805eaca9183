package coachtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/patrickpassosb/biome/internal/analytics"
)

// ExerciseStatsTool handles the exercise_stats MCP tool.
type ExerciseStatsTool struct {
	engine *analytics.Engine
}

// NewExerciseStatsTool creates an ExerciseStatsTool.
func NewExerciseStatsTool(engine *analytics.Engine) *ExerciseStatsTool {
	return &ExerciseStatsTool{engine: engine}
}

// Definition returns the MCP tool definition for exercise_stats.
func (t *ExerciseStatsTool) Definition() mcp.Tool {
	return mcp.NewTool("exercise_stats",
		mcp.WithDescription(
			"Lifetime statistics for one exercise: max weight and machine level, average RPE, "+
				"total volume and set count, plus the machine-aware all-time best effort.",
		),
		mcp.WithString("exercise",
			mcp.Required(),
			mcp.Description("Exercise name, exactly as logged"),
		),
	)
}

// Handle processes the exercise_stats tool call.
func (t *ExerciseStatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise := strings.TrimSpace(req.GetString("exercise", ""))
	if exercise == "" {
		return mcp.NewToolResultError("'exercise' is required"), nil
	}

	stats, err := t.engine.ExerciseStatsFor(ctx, exercise)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("computing stats: %v", err)), nil
	}
	if stats.TotalSets == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No sets logged for %q.", exercise)), nil
	}

	best, err := t.engine.MaxEffortFor(ctx, exercise)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("computing max effort: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", stats.Exercise)
	fmt.Fprintf(&b, "- **Total sets**: %d\n", stats.TotalSets)
	fmt.Fprintf(&b, "- **Total volume**: %.0f kg·reps\n", stats.TotalVolume)
	if stats.MaxWeight > 0 {
		fmt.Fprintf(&b, "- **Max weight**: %.1f kg\n", stats.MaxWeight)
	}
	if stats.MaxLevel > 0 {
		fmt.Fprintf(&b, "- **Max machine level**: %.1f\n", stats.MaxLevel)
	}
	if stats.AverageRPE > 0 {
		fmt.Fprintf(&b, "- **Average RPE**: %.1f\n", stats.AverageRPE)
	}

	b.WriteString("- **Best effort**: ")
	switch {
	case best.MachineLevel != nil && best.WeightKg != nil:
		fmt.Fprintf(&b, "level %.1f at %.1f kg\n", *best.MachineLevel, *best.WeightKg)
	case best.MachineLevel != nil:
		fmt.Fprintf(&b, "level %.1f\n", *best.MachineLevel)
	case best.WeightKg != nil:
		fmt.Fprintf(&b, "%.1f kg\n", *best.WeightKg)
	default:
		b.WriteString("no weighted sets logged\n")
	}

	return mcp.NewToolResultText(b.String()), nil
}
