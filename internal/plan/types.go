// Package plan defines the data contracts flowing through the coaching
// pipeline: analyst findings, the weekly training plan, and the
// validation that gates a plan before it reaches the athlete.
//
// The package follows the same design principles as the analytics side:
// - SRP: types, validation, schema generation, and rendering in separate files
// - contracts are strict: unknown fields and out-of-range values are rejected
// - validation reports every issue at once so a generator can repair in one pass
package plan

import (
	"fmt"
	"strings"
	"time"
)

// MaxFindings caps how many findings a single analysis may carry.
const MaxFindings = 20

// --- Finding type enum ---

// FindingType categorizes what an analysis finding describes.
type FindingType string

const (
	FindingWeakPoint     FindingType = "weak_point"
	FindingProgress      FindingType = "progress"
	FindingConsistency   FindingType = "consistency"
	FindingVolumeAlert   FindingType = "volume_alert"
	FindingTechniqueNote FindingType = "technique_note"
)

// validFindingTypes is the set of allowed finding types.
var validFindingTypes = map[FindingType]bool{
	FindingWeakPoint:     true,
	FindingProgress:      true,
	FindingConsistency:   true,
	FindingVolumeAlert:   true,
	FindingTechniqueNote: true,
}

// ValidateFindingType returns an error if the type is not recognized.
func ValidateFindingType(t FindingType) error {
	if !validFindingTypes[t] {
		return fmt.Errorf("invalid finding type %q: must be one of: weak_point, progress, consistency, volume_alert, technique_note", t)
	}
	return nil
}

// --- Severity enum ---

// Severity ranks how urgently a finding should influence the plan.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// validSeverities is the set of allowed severities.
var validSeverities = map[Severity]bool{
	SeverityInfo:     true,
	SeverityWarning:  true,
	SeverityCritical: true,
}

// ValidateSeverity returns an error if the severity is not recognized.
func ValidateSeverity(s Severity) error {
	if !validSeverities[s] {
		return fmt.Errorf("invalid severity %q: must be one of: info, warning, critical", s)
	}
	return nil
}

// --- Related metric enum ---

// validRelatedMetrics lists the metric names a finding may reference.
// It is a superset of the computable metrics: set_count and
// failure_rate exist only as finding annotations.
var validRelatedMetrics = map[string]bool{
	"volume_load":      true,
	"average_rpe":      true,
	"max_weight":       true,
	"weekly_frequency": true,
	"set_count":        true,
	"failure_rate":     true,
}

// --- Weekday enum ---

// validDays is the set of allowed workout day names.
var validDays = map[string]bool{
	"Monday":    true,
	"Tuesday":   true,
	"Wednesday": true,
	"Thursday":  true,
	"Friday":    true,
	"Saturday":  true,
	"Sunday":    true,
}

// dayOrder maps day names to their position in the training week.
var dayOrder = map[string]int{
	"Monday": 0, "Tuesday": 1, "Wednesday": 2, "Thursday": 3,
	"Friday": 4, "Saturday": 5, "Sunday": 6,
}

// --- Core data structures ---

// Finding is one observation produced by the analysis stage.
type Finding struct {
	Type            FindingType `json:"type" jsonschema:"enum=weak_point,enum=progress,enum=consistency,enum=volume_alert,enum=technique_note"`
	Message         string      `json:"message"`
	Severity        Severity    `json:"severity" jsonschema:"enum=info,enum=warning,enum=critical"`
	RelatedMetric   string      `json:"related_metric,omitempty"`
	RelatedExercise string      `json:"related_exercise,omitempty"`
}

// Findings is the analysis stage's full output.
type Findings struct {
	Items []Finding `json:"findings"`
}

// Exercise is one prescribed movement within a workout.
type Exercise struct {
	Name       string   `json:"name"`
	TargetSets int      `json:"target_sets" jsonschema:"minimum=1,maximum=20"`
	TargetReps string   `json:"target_reps"`
	TargetRPE  *float64 `json:"target_rpe,omitempty" jsonschema:"minimum=1,maximum=10"`
	Notes      string   `json:"notes,omitempty"`
}

// Workout is one training session within the weekly plan.
type Workout struct {
	Day       string     `json:"day" jsonschema:"enum=Monday,enum=Tuesday,enum=Wednesday,enum=Thursday,enum=Friday,enum=Saturday,enum=Sunday"`
	Focus     string     `json:"focus"`
	Exercises []Exercise `json:"exercises" jsonschema:"minItems=1"`
}

// WeeklyPlan is the deliverable of the planning stage: a goal plus one
// workout per scheduled day.
type WeeklyPlan struct {
	WeekStartDate string    `json:"week_start_date"`
	Goal          string    `json:"goal"`
	Workouts      []Workout `json:"workouts" jsonschema:"minItems=1,maxItems=7"`
}

// ValidationResult reports a validation pass over a generated plan.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues,omitempty"`
}

// TotalSets sums the prescribed sets across all workouts.
func (p *WeeklyPlan) TotalSets() int {
	total := 0
	for _, w := range p.Workouts {
		for _, e := range w.Exercises {
			total += e.TargetSets
		}
	}
	return total
}

// WorkoutOn returns the workout scheduled for the named day, if any.
func (p *WeeklyPlan) WorkoutOn(day string) (Workout, bool) {
	for _, w := range p.Workouts {
		if strings.EqualFold(w.Day, day) {
			return w, true
		}
	}
	return Workout{}, false
}

// parsePlanDate validates the YYYY-MM-DD plan date format.
func parsePlanDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
