package plan

import (
	"fmt"
	"strings"
)

// Validation stage names, used to report which contract was violated.
const (
	StageFindings   = "findings"
	StageWeeklyPlan = "weekly_plan"
)

// SchemaViolationError reports a payload that failed contract
// validation. Issues carries every violation found so a generator can
// repair them all in a single retry.
type SchemaViolationError struct {
	Stage  string
	Issues []string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("plan: %s failed validation: %s", e.Stage, strings.Join(e.Issues, "; "))
}

// ValidateFindings checks an analysis payload against the findings
// contract. All violations are collected before returning.
func ValidateFindings(f Findings) error {
	var issues []string

	if len(f.Items) > MaxFindings {
		issues = append(issues, fmt.Sprintf("findings: %d entries exceeds the maximum of %d", len(f.Items), MaxFindings))
	}

	for i, item := range f.Items {
		at := fmt.Sprintf("findings[%d]", i)
		if err := ValidateFindingType(item.Type); err != nil {
			issues = append(issues, fmt.Sprintf("%s: %v", at, err))
		}
		if strings.TrimSpace(item.Message) == "" {
			issues = append(issues, fmt.Sprintf("%s: message must not be empty", at))
		}
		if err := ValidateSeverity(item.Severity); err != nil {
			issues = append(issues, fmt.Sprintf("%s: %v", at, err))
		}
		if item.RelatedMetric != "" && !validRelatedMetrics[item.RelatedMetric] {
			issues = append(issues, fmt.Sprintf("%s: unknown related_metric %q", at, item.RelatedMetric))
		}
	}

	if len(issues) > 0 {
		return &SchemaViolationError{Stage: StageFindings, Issues: issues}
	}
	return nil
}

// ValidateWeeklyPlan checks a generated plan against the weekly plan
// contract: well-formed dates, known day names with no duplicates, and
// complete exercise prescriptions.
func ValidateWeeklyPlan(p WeeklyPlan) error {
	var issues []string

	if _, err := parsePlanDate(p.WeekStartDate); err != nil {
		issues = append(issues, fmt.Sprintf("week_start_date %q is not a valid YYYY-MM-DD date", p.WeekStartDate))
	}
	if strings.TrimSpace(p.Goal) == "" {
		issues = append(issues, "goal must not be empty")
	}
	if len(p.Workouts) == 0 {
		issues = append(issues, "plan must schedule at least one workout")
	}
	if len(p.Workouts) > 7 {
		issues = append(issues, fmt.Sprintf("plan schedules %d workouts; a week has at most 7", len(p.Workouts)))
	}

	seenDays := make(map[string]bool)
	for i, w := range p.Workouts {
		at := fmt.Sprintf("workouts[%d]", i)
		if !validDays[w.Day] {
			issues = append(issues, fmt.Sprintf("%s: invalid day %q: must be a full English weekday name", at, w.Day))
		} else if seenDays[w.Day] {
			issues = append(issues, fmt.Sprintf("%s: duplicate workout on %s", at, w.Day))
		}
		seenDays[w.Day] = true

		if strings.TrimSpace(w.Focus) == "" {
			issues = append(issues, fmt.Sprintf("%s: focus must not be empty", at))
		}
		if len(w.Exercises) == 0 {
			issues = append(issues, fmt.Sprintf("%s: workout must prescribe at least one exercise", at))
		}

		for j, e := range w.Exercises {
			eAt := fmt.Sprintf("%s.exercises[%d]", at, j)
			if strings.TrimSpace(e.Name) == "" {
				issues = append(issues, fmt.Sprintf("%s: name must not be empty", eAt))
			}
			if e.TargetSets < 1 || e.TargetSets > 20 {
				issues = append(issues, fmt.Sprintf("%s: target_sets %d out of range 1-20", eAt, e.TargetSets))
			}
			if strings.TrimSpace(e.TargetReps) == "" {
				issues = append(issues, fmt.Sprintf("%s: target_reps must not be empty", eAt))
			}
			if e.TargetRPE != nil && (*e.TargetRPE < 1 || *e.TargetRPE > 10) {
				issues = append(issues, fmt.Sprintf("%s: target_rpe %.1f out of range 1-10", eAt, *e.TargetRPE))
			}
		}
	}

	if len(issues) > 0 {
		return &SchemaViolationError{Stage: StageWeeklyPlan, Issues: issues}
	}
	return nil
}
