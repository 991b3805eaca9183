package plan

import (
	"fmt"
	"sort"
	"strings"
)

// RenderMarkdown formats a plan for chat surfaces and plan snapshots.
// Workouts render in weekday order regardless of payload order.
func RenderMarkdown(p WeeklyPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Training Week of %s\n\n", p.WeekStartDate)
	fmt.Fprintf(&b, "**Goal:** %s\n", p.Goal)

	workouts := make([]Workout, len(p.Workouts))
	copy(workouts, p.Workouts)
	sort.SliceStable(workouts, func(i, j int) bool {
		return dayOrder[workouts[i].Day] < dayOrder[workouts[j].Day]
	})

	for _, w := range workouts {
		fmt.Fprintf(&b, "\n### %s: %s\n", w.Day, w.Focus)
		for _, e := range w.Exercises {
			fmt.Fprintf(&b, "- %s: %d x %s", e.Name, e.TargetSets, e.TargetReps)
			if e.TargetRPE != nil {
				fmt.Fprintf(&b, " @ RPE %.1f", *e.TargetRPE)
			}
			if e.Notes != "" {
				fmt.Fprintf(&b, " (%s)", e.Notes)
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// RenderFindings formats analysis findings as a severity-tagged list.
func RenderFindings(items []Finding) string {
	if len(items) == 0 {
		return "No findings for this period."
	}
	var b strings.Builder
	for _, f := range items {
		fmt.Fprintf(&b, "- [%s] %s: %s", strings.ToUpper(string(f.Severity)), f.Type, f.Message)
		if f.RelatedExercise != "" {
			fmt.Fprintf(&b, " (%s)", f.RelatedExercise)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
