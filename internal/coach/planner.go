package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/patrickpassosb/biome/internal/llm"
	"github.com/patrickpassosb/biome/internal/plan"
	"github.com/patrickpassosb/biome/internal/profile"
)

const plannerSystem = `You are the Biome Workout Specialist. You design one-week training plans from analysis findings, the lifter's profile, and their logged history. Respect the stated availability and equipment, keep sessions focused, and prefer progressive overload over novelty. week_start_date is the Monday of the upcoming week.`

// Planner drafts and revises weekly plans, and carries the coaching
// conversation. Invalid model plans are retried with the validation
// issues as corrective context; a plan is never coerced into validity.
type Planner struct {
	builder  *ContextBuilder
	profiles *profile.Store
	client   llm.Client
	cfg      Config
}

// NewPlanner wires the planning stage.
func NewPlanner(builder *ContextBuilder, profiles *profile.Store, client llm.Client, cfg Config) *Planner {
	return &Planner{builder: builder, profiles: profiles, client: client, cfg: cfg.withDefaults()}
}

// Draft produces a fresh weekly plan from the findings.
func (p *Planner) Draft(ctx context.Context, findings plan.Findings) (plan.WeeklyPlan, error) {
	base, err := p.promptBase(ctx)
	if err != nil {
		return plan.WeeklyPlan{}, err
	}

	var b strings.Builder
	b.WriteString("Generate the weekly plan.\n\n")
	b.WriteString(base)
	if len(findings.Items) > 0 {
		b.WriteString("\n\nAnalysis findings to address:\n")
		b.WriteString(mustJSON(findings))
	}
	return p.request(ctx, b.String())
}

// Revise adjusts an existing plan to the user's feedback, touching as
// little of the rest of the week as possible.
func (p *Planner) Revise(ctx context.Context, current plan.WeeklyPlan, feedback string) (plan.WeeklyPlan, error) {
	base, err := p.promptBase(ctx)
	if err != nil {
		return plan.WeeklyPlan{}, err
	}

	var b strings.Builder
	b.WriteString("Revise the current plan according to the user's feedback. Apply the feedback precisely and keep the rest of the week intact unless the feedback forces a change.\n\n")
	b.WriteString(base)
	b.WriteString("\n\nCurrent plan:\n")
	b.WriteString(mustJSON(current))
	b.WriteString("\n\nUser feedback:\n\"")
	b.WriteString(feedback)
	b.WriteString("\"")
	return p.request(ctx, b.String())
}

// promptBase is the profile + data context shared by draft and revise.
func (p *Planner) promptBase(ctx context.Context) (string, error) {
	prof, err := p.profiles.Load()
	if err != nil {
		return "", fmt.Errorf("coach: profile: %w", err)
	}
	snapshot, err := p.builder.Snapshot(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Lifter profile:\n")
	b.WriteString(renderProfile(prof))
	b.WriteString("\n\nContext (User Data & Trends):\n")
	b.WriteString(snapshot.Render())
	return b.String(), nil
}

// request runs the attempt loop: every rejected plan feeds its issue
// list into the next prompt.
func (p *Planner) request(ctx context.Context, prompt string) (plan.WeeklyPlan, error) {
	schema, err := plan.WeeklyPlanSchema()
	if err != nil {
		return plan.WeeklyPlan{}, err
	}

	attempt := prompt
	var lastErr error
	for i := 0; i < p.cfg.PlanAttempts; i++ {
		resp, err := p.client.Complete(ctx, llm.Request{System: plannerSystem, Prompt: attempt, Schema: schema})
		if err != nil {
			return plan.WeeklyPlan{}, fmt.Errorf("coach: plan request: %w", err)
		}

		parsed, err := plan.ParseWeeklyPlanResponse(resp.Text)
		if err == nil {
			return parsed, nil
		}
		lastErr = err

		var violation *plan.SchemaViolationError
		if !errors.As(err, &violation) {
			return plan.WeeklyPlan{}, err
		}
		attempt = repairPrompt(prompt, resp.Text, violation.Issues)
	}
	return plan.WeeklyPlan{}, fmt.Errorf("coach: no valid plan after %d attempts: %w", p.cfg.PlanAttempts, lastErr)
}
