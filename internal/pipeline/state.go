// Package pipeline drives one coaching cycle through its stages.
//
// A Run walks a stage sequence chosen by Flow: propose analyzes the
// training history before planning, revise re-plans from feedback, and
// chat only plans (curating is appended when the conversation yields a
// plan). The orchestrator owns sequencing, per-stage timeouts, and
// failure classification; stage semantics live with the stage
// implementations behind the Analyst/Planner/Curator interfaces.
//
// This package follows the same design principles as the rest of the
// module:
// - SRP: states, flows, errors, and the orchestrator in separate files
// - DIP: stages are interfaces; the orchestrator depends on abstractions
// - OCP: new flows are registry entries, not control-flow rewrites
package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// --- Run state enum ---

// State is the lifecycle position of a coaching run. The three stage
// states double as "this stage is executing now".
type State string

const (
	StateIdle            State = "IDLE"
	StateAnalyzing       State = "ANALYZING"
	StatePlanning        State = "PLANNING"
	StateCurating        State = "CURATING"
	StateDone            State = "DONE"
	StateDoneWithWarning State = "DONE_WITH_WARNING"
	StateFailed          State = "FAILED"
)

// validNext is the transition table. Revise and chat runs start
// planning directly, chat runs may finish without curating, and
// DONE_WITH_WARNING is only reachable from curating because the only
// tolerated failure is a journal write after a validated plan.
var validNext = map[State]map[State]bool{
	StateIdle:      {StateAnalyzing: true, StatePlanning: true},
	StateAnalyzing: {StatePlanning: true},
	StatePlanning:  {StateCurating: true, StateDone: true},
	StateCurating:  {StateDone: true, StateDoneWithWarning: true},
}

// Terminal reports whether the state ends a run.
func Terminal(s State) bool {
	return s == StateDone || s == StateDoneWithWarning || s == StateFailed
}

// CanTransition returns an error if moving from one state to the other
// is not legal. FAILED is reachable from every non-terminal state.
func CanTransition(from, to State) error {
	if to == StateFailed {
		if Terminal(from) {
			return fmt.Errorf("pipeline: run already finished in %s", from)
		}
		return nil
	}
	if validNext[from][to] {
		return nil
	}
	return fmt.Errorf("pipeline: illegal transition from %s to %s", from, to)
}

// --- Stage log ---

// Stage entry statuses within a run log.
const (
	stagePending    = "pending"
	stageInProgress = "in_progress"
	stageCompleted  = "completed"
	stageFailed     = "failed"
)

// StageEntry tracks one stage's lifecycle within a run.
type StageEntry struct {
	Name        State  `json:"name"`
	Status      string `json:"status"`
	StartedAt   string `json:"started_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Run is the record of one coaching cycle.
type Run struct {
	ID        string       `json:"id"`
	Flow      Flow         `json:"flow"`
	State     State        `json:"state"`
	Stages    []StageEntry `json:"stages"`
	StartedAt string       `json:"started_at"`
	EndedAt   string       `json:"ended_at,omitempty"`
	Warning   string       `json:"warning,omitempty"`
}

func stamp() string {
	return timeNow().UTC().Format(time.RFC3339)
}

// NewRun creates an idle run with the flow's stages pending.
func NewRun(flow Flow) (*Run, error) {
	stages, err := StageFlow(flow)
	if err != nil {
		return nil, err
	}
	entries := make([]StageEntry, len(stages))
	for i, s := range stages {
		entries[i] = StageEntry{Name: s, Status: stagePending}
	}
	return &Run{
		ID:        uuid.NewString(),
		Flow:      flow,
		State:     StateIdle,
		Stages:    entries,
		StartedAt: stamp(),
	}, nil
}

// CurrentStageIndex returns the position of the in-progress stage, or
// -1 when no stage is executing.
func CurrentStageIndex(run *Run) int {
	for i, entry := range run.Stages {
		if entry.Status == stageInProgress {
			return i
		}
	}
	return -1
}

// BeginStage moves the run into its next pending stage and returns the
// stage name.
func BeginStage(run *Run) (State, error) {
	if Terminal(run.State) {
		return "", fmt.Errorf("pipeline: run %s already finished in %s", run.ID, run.State)
	}
	if idx := CurrentStageIndex(run); idx >= 0 {
		return "", fmt.Errorf("pipeline: stage %s still in progress in run %s", run.Stages[idx].Name, run.ID)
	}
	for i := range run.Stages {
		if run.Stages[i].Status != stagePending {
			continue
		}
		next := run.Stages[i].Name
		if err := CanTransition(run.State, next); err != nil {
			return "", err
		}
		run.Stages[i].Status = stageInProgress
		run.Stages[i].StartedAt = stamp()
		run.State = next
		return next, nil
	}
	return "", fmt.Errorf("pipeline: no pending stage left in run %s", run.ID)
}

// CompleteStage marks the in-progress stage completed. The run state
// keeps pointing at the completed stage until the next BeginStage or
// FinishRun.
func CompleteStage(run *Run) error {
	idx := CurrentStageIndex(run)
	if idx < 0 {
		return fmt.Errorf("pipeline: no stage in progress in run %s", run.ID)
	}
	run.Stages[idx].Status = stageCompleted
	run.Stages[idx].CompletedAt = stamp()
	return nil
}

// FailStage marks the in-progress stage failed and records the cause.
func FailStage(run *Run, cause error) {
	idx := CurrentStageIndex(run)
	if idx < 0 {
		return
	}
	run.Stages[idx].Status = stageFailed
	run.Stages[idx].CompletedAt = stamp()
	if cause != nil {
		run.Stages[idx].Error = cause.Error()
	}
}

// AppendStage adds a pending stage to the end of the run's flow. Chat
// runs use it to curate once the conversation has produced a plan.
func AppendStage(run *Run, s State) error {
	if Terminal(run.State) {
		return fmt.Errorf("pipeline: run %s already finished in %s", run.ID, run.State)
	}
	run.Stages = append(run.Stages, StageEntry{Name: s, Status: stagePending})
	return nil
}

// FailRun moves the run to FAILED. Safe to call at most once; a
// finished run is left untouched.
func FailRun(run *Run) {
	if Terminal(run.State) {
		return
	}
	run.State = StateFailed
	run.EndedAt = stamp()
}

// FinishRun moves a run whose stages have all resolved into DONE, or
// DONE_WITH_WARNING when a warning is carried.
func FinishRun(run *Run, warning string) error {
	target := StateDone
	if warning != "" {
		target = StateDoneWithWarning
	}
	if err := CanTransition(run.State, target); err != nil {
		return err
	}
	run.State = target
	run.Warning = warning
	run.EndedAt = stamp()
	return nil
}
