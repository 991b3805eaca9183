package coach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/patrickpassosb/biome/internal/memory"
	"github.com/patrickpassosb/biome/internal/pipeline"
	"github.com/patrickpassosb/biome/internal/plan"
)

// Curator writes each coaching cycle into the journal. Findings and
// feedback land as their own records first; the plan snapshot is
// written last and its id is the one callers keep.
type Curator struct {
	store memory.Store
}

// NewCurator wires the curation stage.
func NewCurator(store memory.Store) *Curator {
	return &Curator{store: store}
}

// PlanSnapshotContent is the journal payload of a persisted plan. The
// full plan rides along so revisions and the current-plan resource can
// recover it without replanning.
type PlanSnapshotContent struct {
	Flow          string          `json:"flow"`
	WeekStartDate string          `json:"week_start_date"`
	Goal          string          `json:"goal"`
	Days          []string        `json:"days"`
	TotalSets     int             `json:"total_sets"`
	FindingCount  int             `json:"finding_count,omitempty"`
	Feedback      string          `json:"feedback,omitempty"`
	Plan          plan.WeeklyPlan `json:"plan"`
}

// findingSnapshotContent compresses a findings list to its shape: the
// one-line messages stay, model transcripts never do.
type findingSnapshotContent struct {
	Count      int            `json:"count"`
	BySeverity map[string]int `json:"by_severity"`
	Types      []string       `json:"types"`
	Exercises  []string       `json:"exercises,omitempty"`
	Messages   []string       `json:"messages"`
}

// feedbackContent records what the user asked to change.
type feedbackContent struct {
	Feedback      string `json:"feedback"`
	WeekStartDate string `json:"week_start_date"`
	Goal          string `json:"goal"`
}

// Persist writes the cycle to the journal and returns the plan
// snapshot's record id.
func (c *Curator) Persist(ctx context.Context, in pipeline.Curation) (string, error) {
	if in.Plan == nil {
		return "", errors.New("coach: nothing to persist without a plan")
	}

	baseTags := []string{"week:" + in.Plan.WeekStartDate, "flow:" + string(in.Flow)}
	if in.UserID != "" {
		baseTags = append(baseTags, "user:"+in.UserID)
	}

	if in.Feedback != "" {
		content := feedbackContent{
			Feedback:      in.Feedback,
			WeekStartDate: in.Plan.WeekStartDate,
			Goal:          in.Plan.Goal,
		}
		if err := c.append(ctx, memory.TypeUserFeedback, content, baseTags); err != nil {
			return "", err
		}
	}

	if len(in.Findings.Items) > 0 {
		content, tags := compressFindings(in.Findings)
		tags = append(append([]string{}, baseTags...), tags...)
		if err := c.append(ctx, memory.TypeFindingSnapshot, content, tags); err != nil {
			return "", err
		}
	}

	snapshot := PlanSnapshotContent{
		Flow:          string(in.Flow),
		WeekStartDate: in.Plan.WeekStartDate,
		Goal:          in.Plan.Goal,
		Days:          planDays(*in.Plan),
		TotalSets:     in.Plan.TotalSets(),
		FindingCount:  len(in.Findings.Items),
		Feedback:      in.Feedback,
		Plan:          *in.Plan,
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("coach: marshaling plan snapshot: %w", err)
	}
	rec, err := c.store.Append(ctx, memory.AppendParams{
		Type:    memory.TypePlanSnapshot,
		Content: data,
		Tags:    baseTags,
	})
	if err != nil {
		return "", fmt.Errorf("coach: appending plan snapshot: %w", err)
	}
	return rec.ID, nil
}

func (c *Curator) append(ctx context.Context, recordType string, content any, tags []string) error {
	data, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("coach: marshaling %s: %w", recordType, err)
	}
	if _, err := c.store.Append(ctx, memory.AppendParams{Type: recordType, Content: data, Tags: tags}); err != nil {
		return fmt.Errorf("coach: appending %s: %w", recordType, err)
	}
	return nil
}

// compressFindings reduces a findings list to counts, distinct types
// and exercises, and the messages themselves. The distinct types come
// back as tags too.
func compressFindings(f plan.Findings) (findingSnapshotContent, []string) {
	content := findingSnapshotContent{
		Count:      len(f.Items),
		BySeverity: map[string]int{},
	}
	types := map[string]bool{}
	exercises := map[string]bool{}
	for _, item := range f.Items {
		content.BySeverity[string(item.Severity)]++
		types[string(item.Type)] = true
		if item.RelatedExercise != "" {
			exercises[item.RelatedExercise] = true
		}
		content.Messages = append(content.Messages, item.Message)
	}
	content.Types = sortedKeys(types)
	content.Exercises = sortedKeys(exercises)
	return content, content.Types
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func planDays(p plan.WeeklyPlan) []string {
	days := make([]string, len(p.Workouts))
	for i, w := range p.Workouts {
		days[i] = w.Day
	}
	return days
}

// LatestPlan recovers the most recent persisted plan from the journal.
func LatestPlan(ctx context.Context, store memory.Store) (plan.WeeklyPlan, bool, error) {
	rec, ok, err := store.Latest(ctx, memory.TypePlanSnapshot)
	if err != nil || !ok {
		return plan.WeeklyPlan{}, false, err
	}
	var content PlanSnapshotContent
	if err := json.Unmarshal(rec.Content, &content); err != nil {
		return plan.WeeklyPlan{}, false, fmt.Errorf("coach: parsing plan snapshot %s: %w", rec.ID, err)
	}
	return content.Plan, true, nil
}
