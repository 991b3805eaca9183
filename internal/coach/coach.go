// Package coach implements the pipeline stages: the Analyst that turns
// logged training into findings, the Planner that drafts and revises
// weekly plans and carries the conversation, and the Curator that
// writes each cycle into the journal.
//
// Detections are deterministic and computed from the analytics engine;
// the language model enriches and ranks them but never replaces real
// data with invention. Every model payload passes through the plan
// package's validation before it leaves a stage.
package coach

import "github.com/patrickpassosb/biome/internal/plan"

// The coaching personas. The model picks whichever fits the question;
// Config.Persona is the lead used when it stays silent.
const (
	PersonaWorkout   = "Workout Specialist"
	PersonaNutrition = "Nutrition Guru"
	PersonaRecovery  = "Sleep/Recovery Expert"
)

// Config tunes the stages.
type Config struct {
	// PlanAttempts is the total number of model attempts for a draft
	// or revision. Validation issues from a rejected attempt are fed
	// back as corrective context.
	PlanAttempts int
	// RepairRetries is how many times the analyst re-asks after a
	// schema violation in the enriched findings.
	RepairRetries int
	// MaxFindings caps the findings list.
	MaxFindings int
	// Persona leads chat replies when the model does not pick one.
	Persona string
}

// DefaultConfig returns the stock stage settings.
func DefaultConfig() Config {
	return Config{
		PlanAttempts:  2,
		RepairRetries: 1,
		MaxFindings:   plan.MaxFindings,
		Persona:       PersonaWorkout,
	}
}

// withDefaults backfills zero values so a partially built Config
// behaves like DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PlanAttempts <= 0 {
		c.PlanAttempts = d.PlanAttempts
	}
	if c.RepairRetries < 0 {
		c.RepairRetries = d.RepairRetries
	}
	if c.MaxFindings <= 0 {
		c.MaxFindings = d.MaxFindings
	}
	if c.Persona == "" {
		c.Persona = d.Persona
	}
	return c
}
