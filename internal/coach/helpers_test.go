package coach_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/patrickpassosb/biome/internal/analytics"
	"github.com/patrickpassosb/biome/internal/coach"
	"github.com/patrickpassosb/biome/internal/llm"
	"github.com/patrickpassosb/biome/internal/profile"
)

// ─── Shared fixtures ─────────────────────────────────────────────────────────

func newTestAnalytics(t *testing.T) (*analytics.Engine, *analytics.DB) {
	t.Helper()
	db, err := analytics.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return analytics.NewEngine(db, analytics.DefaultWeakPointConfig()), db
}

func newTestProfiles(t *testing.T) *profile.Store {
	t.Helper()
	return profile.NewStore(filepath.Join(t.TempDir(), "profile.json"))
}

func newTestPlanner(t *testing.T, client llm.Client) *coach.Planner {
	t.Helper()
	engine, db := newTestAnalytics(t)
	builder := coach.NewContextBuilder(engine, db)
	return coach.NewPlanner(builder, newTestProfiles(t), client, coach.DefaultConfig())
}

// seedStagnation logs three flat bench sessions, which always trips
// the stagnation detection regardless of the wall clock.
func seedStagnation(t *testing.T, db *analytics.DB) {
	t.Helper()
	var sets []analytics.Set
	for _, date := range []string{"2023-05-01", "2023-05-08", "2023-05-15"} {
		sets = append(sets, analytics.Set{
			Date:      date,
			Workout:   "Upper Body",
			Exercise:  "Bench Press",
			SetNumber: 1,
			Reps:      analytics.Int(5),
			WeightKg:  analytics.Float(100),
		})
	}
	if _, err := db.InsertSets(context.Background(), sets); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

const scriptedPlanJSON = `{
  "week_start_date": "2024-01-08",
  "goal": "General Strength",
  "workouts": [
    {"day": "Monday", "focus": "Upper Body", "exercises": [
      {"name": "Bench Press", "target_sets": 3, "target_reps": "8-12", "target_rpe": 8.0}
    ]},
    {"day": "Wednesday", "focus": "Lower Body", "exercises": [
      {"name": "Squat", "target_sets": 3, "target_reps": "5", "target_rpe": 8.0}
    ]}
  ]
}`

const curatedFindingsJSON = `{"findings": [
  {"type": "technique_note", "message": "Film your bench setup; bar path drifts under fatigue.", "severity": "info", "related_exercise": "Bench Press"}
]}`
