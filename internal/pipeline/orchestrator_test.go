package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/patrickpassosb/biome/internal/plan"
)

// --- Stage fakes ---

type fakeAnalyst struct {
	fn func(ctx context.Context) (plan.Findings, error)
}

func (f *fakeAnalyst) Analyze(ctx context.Context) (plan.Findings, error) {
	if f.fn == nil {
		return plan.Findings{}, errors.New("unexpected Analyze call")
	}
	return f.fn(ctx)
}

type fakePlanner struct {
	draft    func(ctx context.Context, findings plan.Findings) (plan.WeeklyPlan, error)
	revise   func(ctx context.Context, current plan.WeeklyPlan, feedback string) (plan.WeeklyPlan, error)
	converse func(ctx context.Context, turn ChatTurn) (ChatReply, error)
}

func (f *fakePlanner) Draft(ctx context.Context, findings plan.Findings) (plan.WeeklyPlan, error) {
	if f.draft == nil {
		return plan.WeeklyPlan{}, errors.New("unexpected Draft call")
	}
	return f.draft(ctx, findings)
}

func (f *fakePlanner) Revise(ctx context.Context, current plan.WeeklyPlan, feedback string) (plan.WeeklyPlan, error) {
	if f.revise == nil {
		return plan.WeeklyPlan{}, errors.New("unexpected Revise call")
	}
	return f.revise(ctx, current, feedback)
}

func (f *fakePlanner) Converse(ctx context.Context, turn ChatTurn) (ChatReply, error) {
	if f.converse == nil {
		return ChatReply{}, errors.New("unexpected Converse call")
	}
	return f.converse(ctx, turn)
}

type fakeCurator struct {
	fn    func(ctx context.Context, in Curation) (string, error)
	calls []Curation
}

func (f *fakeCurator) Persist(ctx context.Context, in Curation) (string, error) {
	f.calls = append(f.calls, in)
	if f.fn == nil {
		return "rec-1", nil
	}
	return f.fn(ctx, in)
}

// --- Fixtures ---

func samplePlan() plan.WeeklyPlan {
	rpe := 8.0
	return plan.WeeklyPlan{
		WeekStartDate: "2024-01-08",
		Goal:          "General Strength",
		Workouts: []plan.Workout{
			{
				Day:   "Monday",
				Focus: "Upper Body",
				Exercises: []plan.Exercise{
					{Name: "Bench Press", TargetSets: 3, TargetReps: "8-12", TargetRPE: &rpe},
				},
			},
		},
	}
}

func sampleFindings() plan.Findings {
	return plan.Findings{
		Items: []plan.Finding{
			{
				Type:          plan.FindingWeakPoint,
				Message:       "Pressing volume dropped below baseline.",
				Severity:      plan.SeverityWarning,
				RelatedMetric: "volume_load",
			},
		},
	}
}

func passingStages() (*fakeAnalyst, *fakePlanner, *fakeCurator) {
	analyst := &fakeAnalyst{fn: func(ctx context.Context) (plan.Findings, error) {
		return sampleFindings(), nil
	}}
	planner := &fakePlanner{
		draft: func(ctx context.Context, findings plan.Findings) (plan.WeeklyPlan, error) {
			return samplePlan(), nil
		},
		revise: func(ctx context.Context, current plan.WeeklyPlan, feedback string) (plan.WeeklyPlan, error) {
			return samplePlan(), nil
		},
	}
	return analyst, planner, &fakeCurator{}
}

// --- Propose ---

func TestPropose_HappyPath(t *testing.T) {
	analyst, planner, curator := passingStages()
	o := New(analyst, planner, curator, DefaultConfig())

	out, err := o.Propose(context.Background(), "athlete-1")
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}

	if out.State != StateDone {
		t.Errorf("State = %s, want DONE", out.State)
	}
	if out.Plan == nil || out.Plan.Goal != "General Strength" {
		t.Errorf("Plan = %+v", out.Plan)
	}
	if len(out.Findings) != 1 {
		t.Errorf("got %d findings, want 1", len(out.Findings))
	}
	if out.RecordID != "rec-1" {
		t.Errorf("RecordID = %q", out.RecordID)
	}
	if out.Warning != "" {
		t.Errorf("unexpected warning %q", out.Warning)
	}

	if len(curator.calls) != 1 {
		t.Fatalf("curator called %d times, want 1", len(curator.calls))
	}
	got := curator.calls[0]
	if got.Flow != FlowPropose {
		t.Errorf("curation flow = %s", got.Flow)
	}
	if got.UserID != "athlete-1" {
		t.Errorf("curation user = %q, want athlete-1", got.UserID)
	}
	if got.Plan == nil || len(got.Findings.Items) != 1 {
		t.Errorf("curation payload incomplete: %+v", got)
	}

	for i, entry := range out.Run.Stages {
		if entry.Status != "completed" {
			t.Errorf("stage %d = %q, want completed", i, entry.Status)
		}
	}
}

func TestPropose_AnalystFailureIsFatal(t *testing.T) {
	analyst := &fakeAnalyst{fn: func(ctx context.Context) (plan.Findings, error) {
		return plan.Findings{}, errors.New("history unreadable")
	}}
	_, planner, curator := passingStages()
	o := New(analyst, planner, curator, DefaultConfig())

	out, err := o.Propose(context.Background(), "")
	if err == nil {
		t.Fatal("expected analyst failure to surface")
	}
	var analysisErr *AnalysisError
	if !errors.As(err, &analysisErr) {
		t.Fatalf("error = %T %v, want *AnalysisError", err, err)
	}
	if out.State != StateFailed {
		t.Errorf("State = %s, want FAILED", out.State)
	}
	if out.Plan != nil {
		t.Error("failed run must not surface a plan")
	}
	if len(curator.calls) != 0 {
		t.Errorf("curator called %d times after fatal failure", len(curator.calls))
	}
}

func TestPropose_PlannerFailureIsFatal(t *testing.T) {
	analyst, _, curator := passingStages()
	planner := &fakePlanner{draft: func(ctx context.Context, findings plan.Findings) (plan.WeeklyPlan, error) {
		return plan.WeeklyPlan{}, errors.New("invalid plan after 2 attempts")
	}}
	o := New(analyst, planner, curator, DefaultConfig())

	out, err := o.Propose(context.Background(), "")
	var planErr *PlanGenerationError
	if !errors.As(err, &planErr) {
		t.Fatalf("error = %T %v, want *PlanGenerationError", err, err)
	}
	if out.State != StateFailed {
		t.Errorf("State = %s, want FAILED", out.State)
	}
	if len(curator.calls) != 0 {
		t.Error("nothing may be persisted when planning fails")
	}
}

func TestPropose_JournalFailureIsWarning(t *testing.T) {
	analyst, planner, _ := passingStages()
	curator := &fakeCurator{fn: func(ctx context.Context, in Curation) (string, error) {
		return "", errors.New("disk full")
	}}
	o := New(analyst, planner, curator, DefaultConfig())

	out, err := o.Propose(context.Background(), "")
	if err != nil {
		t.Fatalf("journal failure must not fail the run: %v", err)
	}
	if out.State != StateDoneWithWarning {
		t.Errorf("State = %s, want DONE_WITH_WARNING", out.State)
	}
	if !strings.Contains(out.Warning, "memory write failed") {
		t.Errorf("Warning = %q, want the journal failure surfaced", out.Warning)
	}
	if out.Plan == nil {
		t.Error("plan must still be returned on a journal failure")
	}
	if out.RecordID != "" {
		t.Errorf("RecordID = %q, want empty", out.RecordID)
	}
}

func TestPropose_StageTimeout(t *testing.T) {
	analyst := &fakeAnalyst{fn: func(ctx context.Context) (plan.Findings, error) {
		<-ctx.Done()
		return plan.Findings{}, ctx.Err()
	}}
	_, planner, curator := passingStages()
	o := New(analyst, planner, curator, Config{StageTimeout: 20 * time.Millisecond})

	out, err := o.Propose(context.Background(), "")
	if err == nil {
		t.Fatal("expected timeout failure")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded in the chain", err)
	}
	if out.State != StateFailed {
		t.Errorf("State = %s, want FAILED", out.State)
	}
	if len(curator.calls) != 0 {
		t.Error("nothing may be persisted after a stage timeout")
	}
}

func TestPropose_CanceledBeforeStart(t *testing.T) {
	analyst, planner, curator := passingStages()
	o := New(analyst, planner, curator, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := o.Propose(ctx, "")
	if err == nil {
		t.Fatal("expected cancellation failure")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want canceled in the chain", err)
	}
	if out.State != StateFailed {
		t.Errorf("State = %s, want FAILED", out.State)
	}
	if len(curator.calls) != 0 {
		t.Error("nothing may be persisted after cancellation")
	}
}

func TestPropose_CancellationDuringCuratingAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	analyst, planner, _ := passingStages()
	curator := &fakeCurator{fn: func(stageCtx context.Context, in Curation) (string, error) {
		// The caller walks away mid-write.
		cancel()
		return "", stageCtx.Err()
	}}
	o := New(analyst, planner, curator, DefaultConfig())

	out, err := o.Propose(ctx, "")
	if err == nil {
		t.Fatal("cancellation during curating must abort, not warn")
	}
	if out.State != StateFailed {
		t.Errorf("State = %s, want FAILED", out.State)
	}
	if out.Warning != "" {
		t.Errorf("Warning = %q, want empty on abort", out.Warning)
	}
}

// --- Revise ---

func TestRevise_HappyPath(t *testing.T) {
	var gotCurrent plan.WeeklyPlan
	var gotFeedback string

	analyst, _, curator := passingStages()
	planner := &fakePlanner{revise: func(ctx context.Context, current plan.WeeklyPlan, feedback string) (plan.WeeklyPlan, error) {
		gotCurrent = current
		gotFeedback = feedback
		revised := samplePlan()
		revised.Goal = "General Strength, lighter Wednesday"
		return revised, nil
	}}
	o := New(analyst, planner, curator, DefaultConfig())

	current := samplePlan()
	out, err := o.Revise(context.Background(), current, "Wednesday felt too heavy")
	if err != nil {
		t.Fatalf("Revise: %v", err)
	}

	if out.State != StateDone {
		t.Errorf("State = %s, want DONE", out.State)
	}
	if gotCurrent.WeekStartDate != current.WeekStartDate {
		t.Errorf("planner saw current plan %q", gotCurrent.WeekStartDate)
	}
	if gotFeedback != "Wednesday felt too heavy" {
		t.Errorf("planner saw feedback %q", gotFeedback)
	}
	if out.Plan == nil || out.Plan.Goal != "General Strength, lighter Wednesday" {
		t.Errorf("Plan = %+v", out.Plan)
	}

	if len(curator.calls) != 1 {
		t.Fatalf("curator called %d times", len(curator.calls))
	}
	if curator.calls[0].Flow != FlowRevise {
		t.Errorf("curation flow = %s", curator.calls[0].Flow)
	}
	if curator.calls[0].Feedback != "Wednesday felt too heavy" {
		t.Errorf("curation feedback = %q", curator.calls[0].Feedback)
	}

	// Revise runs two stages: no analysis.
	if len(out.Run.Stages) != 2 {
		t.Errorf("got %d stages, want 2", len(out.Run.Stages))
	}
}

// --- Chat ---

func TestChat_TextOnlyFinishesWithoutCurating(t *testing.T) {
	analyst, _, curator := passingStages()
	planner := &fakePlanner{converse: func(ctx context.Context, turn ChatTurn) (ChatReply, error) {
		return ChatReply{Persona: "Workout Specialist", Message: "Keep your elbows tucked."}, nil
	}}
	o := New(analyst, planner, curator, DefaultConfig())

	out, err := o.Chat(context.Background(), ChatTurn{Message: "How do I bench?"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if out.State != StateDone {
		t.Errorf("State = %s, want DONE", out.State)
	}
	if out.Reply != "Keep your elbows tucked." {
		t.Errorf("Reply = %q", out.Reply)
	}
	if out.Persona != "Workout Specialist" {
		t.Errorf("Persona = %q", out.Persona)
	}
	if out.Plan != nil {
		t.Error("text-only chat must not surface a plan")
	}
	if len(curator.calls) != 0 {
		t.Error("text-only chat must not persist anything")
	}
	if len(out.Run.Stages) != 1 {
		t.Errorf("got %d stages, want 1", len(out.Run.Stages))
	}
}

func TestChat_ProposedPlanGetsCurated(t *testing.T) {
	analyst, _, curator := passingStages()
	planner := &fakePlanner{converse: func(ctx context.Context, turn ChatTurn) (ChatReply, error) {
		p := samplePlan()
		return ChatReply{
			Persona:      "Workout Specialist",
			Message:      "Here is a week that fixes that.",
			ProposedPlan: &p,
		}, nil
	}}
	o := New(analyst, planner, curator, DefaultConfig())

	out, err := o.Chat(context.Background(), ChatTurn{Message: "Plan me a week"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if out.State != StateDone {
		t.Errorf("State = %s, want DONE", out.State)
	}
	if out.Plan == nil {
		t.Fatal("proposed plan missing from outcome")
	}
	if out.RecordID != "rec-1" {
		t.Errorf("RecordID = %q", out.RecordID)
	}
	if len(curator.calls) != 1 {
		t.Fatalf("curator called %d times, want 1", len(curator.calls))
	}
	if curator.calls[0].Flow != FlowChat {
		t.Errorf("curation flow = %s", curator.calls[0].Flow)
	}
	if len(out.Run.Stages) != 2 {
		t.Errorf("got %d stages, want 2 after appending curating", len(out.Run.Stages))
	}
}

func TestChat_PlannerFailure(t *testing.T) {
	analyst, _, curator := passingStages()
	planner := &fakePlanner{converse: func(ctx context.Context, turn ChatTurn) (ChatReply, error) {
		return ChatReply{}, errors.New("model unreachable")
	}}
	o := New(analyst, planner, curator, DefaultConfig())

	out, err := o.Chat(context.Background(), ChatTurn{Message: "hi"})
	var planErr *PlanGenerationError
	if !errors.As(err, &planErr) {
		t.Fatalf("error = %T %v, want *PlanGenerationError", err, err)
	}
	if out.State != StateFailed {
		t.Errorf("State = %s, want FAILED", out.State)
	}
	if out.Reply != "" {
		t.Error("failed chat must not surface a reply")
	}
	if len(curator.calls) != 0 {
		t.Error("nothing may be persisted when chat fails")
	}
}

// --- Repeatability ---

func TestPropose_RepeatRunsAreIndependent(t *testing.T) {
	analyst, planner, curator := passingStages()
	o := New(analyst, planner, curator, DefaultConfig())

	first, err := o.Propose(context.Background(), "")
	if err != nil {
		t.Fatalf("first Propose: %v", err)
	}
	second, err := o.Propose(context.Background(), "")
	if err != nil {
		t.Fatalf("second Propose: %v", err)
	}

	if first.Run.ID == second.Run.ID {
		t.Error("runs share an ID")
	}
	if second.State != StateDone {
		t.Errorf("second State = %s, want DONE", second.State)
	}
	if len(curator.calls) != 2 {
		t.Errorf("curator called %d times, want 2", len(curator.calls))
	}
}
