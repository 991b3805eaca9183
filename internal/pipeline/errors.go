package pipeline

import "fmt"

// AnalysisError reports a fatal analyst failure. Nothing has been
// persisted when it is returned.
type AnalysisError struct {
	Err error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis stage failed: %v", e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// PlanGenerationError reports that the planner could not produce a
// valid plan within its attempt budget. Nothing has been persisted
// when it is returned.
type PlanGenerationError struct {
	Err error
}

func (e *PlanGenerationError) Error() string {
	return fmt.Sprintf("plan generation failed: %v", e.Err)
}

func (e *PlanGenerationError) Unwrap() error { return e.Err }

// MemoryWriteError reports a journal write failure after a validated
// plan was produced. It is non-fatal: the run finishes
// DONE_WITH_WARNING and the plan is still returned.
type MemoryWriteError struct {
	Err error
}

func (e *MemoryWriteError) Error() string {
	return fmt.Sprintf("memory write failed: %v", e.Err)
}

func (e *MemoryWriteError) Unwrap() error { return e.Err }
