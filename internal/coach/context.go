package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/patrickpassosb/biome/internal/analytics"
	"github.com/patrickpassosb/biome/internal/profile"
)

// recentContextSets is how much raw history every prompt carries.
const recentContextSets = 30

// Snapshot is the training context block embedded in every prompt.
type Snapshot struct {
	Overview    analytics.Overview          `json:"overview"`
	Recent      []analytics.Set             `json:"recent_history"`
	Progression analytics.ProgressionReport `json:"progression"`
	Weight      []analytics.WeightEntry     `json:"weight_history"`
}

// ContextBuilder assembles snapshots from the analytics stores.
type ContextBuilder struct {
	engine *analytics.Engine
	db     *analytics.DB
}

// NewContextBuilder wires a builder over the engine and its database.
func NewContextBuilder(engine *analytics.Engine, db *analytics.DB) *ContextBuilder {
	return &ContextBuilder{engine: engine, db: db}
}

// Snapshot gathers the current metrics, recent sets, progression and
// body-weight trend.
func (b *ContextBuilder) Snapshot(ctx context.Context) (Snapshot, error) {
	overview, err := b.engine.OverviewMetrics(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("coach: overview: %w", err)
	}
	recent, err := b.engine.RecentHistory(ctx, recentContextSets)
	if err != nil {
		return Snapshot{}, fmt.Errorf("coach: recent history: %w", err)
	}
	progression, err := b.engine.ProgressionAnalysis(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("coach: progression: %w", err)
	}
	weight, err := b.db.WeightHistory(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("coach: weight history: %w", err)
	}
	return Snapshot{
		Overview:    overview,
		Recent:      recent,
		Progression: progression,
		Weight:      weight,
	}, nil
}

// Render formats the snapshot as the labelled data block the prompts
// embed.
func (s Snapshot) Render() string {
	var b strings.Builder
	b.WriteString("Current Metrics: ")
	b.WriteString(mustJSON(s.Overview))
	b.WriteString(fmt.Sprintf("\nRecent Training History (Last %d sets): ", recentContextSets))
	b.WriteString(mustJSON(s.Recent))
	b.WriteString("\nProgression & Trend Analysis: ")
	b.WriteString(mustJSON(s.Progression))
	b.WriteString("\nWeight History (Evolution): ")
	b.WriteString(mustJSON(s.Weight))
	return b.String()
}

// renderProfile formats the lifter block for prompts, skipping what
// the user never provided.
func renderProfile(p profile.Profile) string {
	var b strings.Builder
	b.WriteString("Goal: " + p.Goal)
	b.WriteString("\nExperience: " + p.ExperienceLevel)
	b.WriteString(fmt.Sprintf("\nAvailable days per week: %d", p.DaysPerWeek))
	if p.Name != "" {
		b.WriteString("\nName: " + p.Name)
	}
	if p.Sex != "" {
		b.WriteString("\nSex: " + p.Sex)
	}
	if age := p.Age(); age > 0 {
		b.WriteString(fmt.Sprintf("\nAge: %d", age))
	}
	if len(p.FocusAreas) > 0 {
		b.WriteString("\nFocus areas: " + strings.Join(p.FocusAreas, ", "))
	}
	if len(p.Equipment) > 0 {
		b.WriteString("\nEquipment: " + strings.Join(p.Equipment, ", "))
	}
	if p.Bio != "" {
		b.WriteString("\nAbout: " + p.Bio)
	}
	return b.String()
}

// mustJSON marshals prompt context. The snapshot types are plain data
// and cannot fail to marshal; an empty object keeps the prompt shape
// stable if one ever does.
func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
