package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickpassosb/biome/internal/plan"
)

// defaultStageTimeout bounds each stage; a stalled model call fails
// the stage rather than hanging the run.
const defaultStageTimeout = 45 * time.Second

// Config tunes the orchestrator.
type Config struct {
	StageTimeout time.Duration
}

// DefaultConfig returns the stock orchestrator settings.
func DefaultConfig() Config {
	return Config{StageTimeout: defaultStageTimeout}
}

// --- Stage interfaces ---

// Analyst inspects the training history and produces findings.
type Analyst interface {
	Analyze(ctx context.Context) (plan.Findings, error)
}

// Planner turns findings and feedback into weekly plans, and carries
// the coaching conversation.
type Planner interface {
	Draft(ctx context.Context, findings plan.Findings) (plan.WeeklyPlan, error)
	Revise(ctx context.Context, current plan.WeeklyPlan, feedback string) (plan.WeeklyPlan, error)
	Converse(ctx context.Context, turn ChatTurn) (ChatReply, error)
}

// Curator persists one cycle's output to the journal.
type Curator interface {
	Persist(ctx context.Context, in Curation) (string, error)
}

// --- Stage payloads ---

// Message is one chat history entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatTurn is one user message with its surrounding context. Current
// is the plan under discussion, when there is one.
type ChatTurn struct {
	Message string
	History []Message
	Current *plan.WeeklyPlan
}

// ChatReply is the planner's conversational output. ProposedPlan is
// set only when the reply carries a plan that survived validation.
type ChatReply struct {
	Persona      string
	Message      string
	ProposedPlan *plan.WeeklyPlan
}

// Curation is everything the curator may persist for one cycle.
// UserID is a label only; the core is single-user.
type Curation struct {
	Flow     Flow
	UserID   string
	Plan     *plan.WeeklyPlan
	Findings plan.Findings
	Feedback string
}

// Outcome is the result of one coaching cycle. Plan is nil unless the
// flow produced a validated plan; Warning is set when the run finished
// DONE_WITH_WARNING.
type Outcome struct {
	State    State
	Findings []plan.Finding
	Plan     *plan.WeeklyPlan
	Reply    string
	Persona  string
	RecordID string
	Warning  string
	Run      *Run
}

// --- Orchestrator ---

// Orchestrator sequences the coaching stages. It owns run state,
// per-stage timeouts, and the fatal-versus-warning classification;
// everything domain-shaped happens inside the stages.
type Orchestrator struct {
	analyst Analyst
	planner Planner
	curator Curator
	cfg     Config
}

// New wires an orchestrator. Zero config values fall back to defaults.
func New(analyst Analyst, planner Planner, curator Curator, cfg Config) *Orchestrator {
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = defaultStageTimeout
	}
	return &Orchestrator{
		analyst: analyst,
		planner: planner,
		curator: curator,
		cfg:     cfg,
	}
}

// Propose runs the full cycle: analyze history, draft a plan, persist
// the snapshot. userID may be empty; when set it is recorded on the
// journal entries as a label.
func (o *Orchestrator) Propose(ctx context.Context, userID string) (Outcome, error) {
	run, err := NewRun(FlowPropose)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Run: run}

	var findings plan.Findings
	err = o.runStage(ctx, run, func(ctx context.Context) error {
		var err error
		findings, err = o.analyst.Analyze(ctx)
		return err
	})
	if err != nil {
		return o.fail(run, out, &AnalysisError{Err: err})
	}
	out.Findings = findings.Items

	var p plan.WeeklyPlan
	err = o.runStage(ctx, run, func(ctx context.Context) error {
		var err error
		p, err = o.planner.Draft(ctx, findings)
		return err
	})
	if err != nil {
		return o.fail(run, out, &PlanGenerationError{Err: err})
	}
	out.Plan = &p

	return o.curate(ctx, run, out, Curation{Flow: FlowPropose, UserID: userID, Plan: &p, Findings: findings})
}

// Revise re-plans from user feedback on an existing plan and persists
// both the feedback and the new snapshot.
func (o *Orchestrator) Revise(ctx context.Context, current plan.WeeklyPlan, feedback string) (Outcome, error) {
	run, err := NewRun(FlowRevise)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Run: run}

	var p plan.WeeklyPlan
	err = o.runStage(ctx, run, func(ctx context.Context) error {
		var err error
		p, err = o.planner.Revise(ctx, current, feedback)
		return err
	})
	if err != nil {
		return o.fail(run, out, &PlanGenerationError{Err: err})
	}
	out.Plan = &p

	return o.curate(ctx, run, out, Curation{Flow: FlowRevise, Plan: &p, Feedback: feedback})
}

// Chat runs one conversational turn. When the reply proposes a plan, a
// curating stage is appended so the proposal lands in the journal;
// otherwise the run finishes after planning.
func (o *Orchestrator) Chat(ctx context.Context, turn ChatTurn) (Outcome, error) {
	run, err := NewRun(FlowChat)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Run: run}

	var reply ChatReply
	err = o.runStage(ctx, run, func(ctx context.Context) error {
		var err error
		reply, err = o.planner.Converse(ctx, turn)
		return err
	})
	if err != nil {
		return o.fail(run, out, &PlanGenerationError{Err: err})
	}
	out.Reply = reply.Message
	out.Persona = reply.Persona
	out.Plan = reply.ProposedPlan

	if reply.ProposedPlan == nil {
		if err := FinishRun(run, ""); err != nil {
			return o.fail(run, out, err)
		}
		out.State = run.State
		return out, nil
	}

	if err := AppendStage(run, StateCurating); err != nil {
		return o.fail(run, out, err)
	}
	return o.curate(ctx, run, out, Curation{Flow: FlowChat, Plan: reply.ProposedPlan})
}

// runStage begins the next pending stage, runs fn under the stage
// timeout, and records the result on the run log.
func (o *Orchestrator) runStage(ctx context.Context, run *Run, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := BeginStage(run); err != nil {
		return err
	}

	stageCtx, cancel := context.WithTimeout(ctx, o.cfg.StageTimeout)
	defer cancel()

	if err := fn(stageCtx); err != nil {
		FailStage(run, err)
		return err
	}
	return CompleteStage(run)
}

// curate runs the final stage. A journal failure downgrades the run to
// DONE_WITH_WARNING instead of failing it, unless the caller's context
// is gone, which is an abort.
func (o *Orchestrator) curate(ctx context.Context, run *Run, out Outcome, in Curation) (Outcome, error) {
	var recordID string
	err := o.runStage(ctx, run, func(ctx context.Context) error {
		var err error
		recordID, err = o.curator.Persist(ctx, in)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return o.fail(run, out, fmt.Errorf("curation aborted: %w", err))
		}
		warn := &MemoryWriteError{Err: err}
		if ferr := FinishRun(run, warn.Error()); ferr != nil {
			return o.fail(run, out, ferr)
		}
		out.State = run.State
		out.Warning = run.Warning
		return out, nil
	}
	out.RecordID = recordID

	if err := FinishRun(run, ""); err != nil {
		return o.fail(run, out, err)
	}
	out.State = run.State
	return out, nil
}

// fail finalizes a run as FAILED. The plan never surfaces from a
// failed run.
func (o *Orchestrator) fail(run *Run, out Outcome, err error) (Outcome, error) {
	FailRun(run)
	out.State = run.State
	out.Plan = nil
	out.Reply = ""
	out.RecordID = ""
	return out, err
}
