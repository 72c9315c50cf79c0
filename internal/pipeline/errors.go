package pipeline

import (
	"errors"
	"fmt"

	"github.com/draftforge/longform/internal/article"
)

// TerminalError aborts the whole job: a sequential-prefix stage exhausted
// its retry budget or failed unrecoverably. No artifact is produced.
type TerminalError struct {
	Stage string
	Err   error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("pipeline: stage %s failed terminally: %v", e.Stage, e.Err)
}

func (e *TerminalError) Unwrap() error { return e.Err }

// IsTerminal reports whether err is (or wraps) a TerminalError.
func IsTerminal(err error) bool {
	var t *TerminalError
	return errors.As(err, &t)
}

// RunState is the single user-visible end state of a job.
type RunState string

const (
	// StatePublished means the artifact passed every critical check.
	StatePublished RunState = "published"

	// StateRejected means the quality gate found critical violations; the
	// artifact and its itemized report are returned for repair, never
	// published.
	StateRejected RunState = "rejected"
)

// Result is the successful (published or rejected) outcome of a run.
// Terminal failures are returned as errors instead.
type Result struct {
	State    RunState
	Artifact *article.ValidatedArtifact
	Report   *article.QualityReport

	// Stages and Branches expose per-step outcomes for observability.
	Stages   []StageResult
	Branches map[string]BranchOutput
}
