package plan

import (
	"fmt"
	"strings"
)

// maxSetsPerSession is the advisory ceiling before a session is
// considered junk volume.
const maxSetsPerSession = 30

// Lint runs the plan quality checks that go beyond the schema: they
// never reject a plan, but each advisory should either be fixed or
// consciously overridden by the coach.
func Lint(p WeeklyPlan) []string {
	var advisories []string

	for _, w := range p.Workouts {
		sets := 0
		seen := make(map[string]bool)
		for _, e := range w.Exercises {
			sets += e.TargetSets
			key := strings.ToLower(strings.TrimSpace(e.Name))
			if seen[key] {
				advisories = append(advisories,
					fmt.Sprintf("%s lists %s more than once; merge the prescriptions", w.Day, e.Name))
			}
			seen[key] = true
		}
		if sets > maxSetsPerSession {
			advisories = append(advisories,
				fmt.Sprintf("%s prescribes %d sets; more than %d in one session is rarely recoverable", w.Day, sets, maxSetsPerSession))
		}
	}

	if len(p.Workouts) == 7 {
		advisories = append(advisories, "plan trains all seven days; schedule at least one full rest day")
	}

	unpaced := 0
	for _, w := range p.Workouts {
		for _, e := range w.Exercises {
			if e.TargetRPE == nil {
				unpaced++
			}
		}
	}
	if unpaced > 0 {
		advisories = append(advisories,
			fmt.Sprintf("%d exercises have no target RPE; intensity will drift without one", unpaced))
	}

	return advisories
}

// Review combines contract validation and lint into one report. A
// schema violation makes the plan invalid; lint advisories alone leave
// it valid but annotated.
func Review(p WeeklyPlan) ValidationResult {
	if err := ValidateWeeklyPlan(p); err != nil {
		if v, ok := err.(*SchemaViolationError); ok {
			return ValidationResult{Valid: false, Issues: v.Issues}
		}
		return ValidationResult{Valid: false, Issues: []string{err.Error()}}
	}
	return ValidationResult{Valid: true, Issues: Lint(p)}
}
