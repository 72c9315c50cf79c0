package pipeline

import (
	"context"
	"time"

	"github.com/draftforge/longform/internal/article"
	"github.com/draftforge/longform/internal/retry"
)

// Status is the outcome class of a stage or branch.
type Status string

const (
	// StatusSuccess means the step produced its full payload.
	StatusSuccess Status = "success"

	// StatusDegraded means the step fell back to a safe default instead
	// of failing.
	StatusDegraded Status = "degraded"

	// StatusFailed means the step produced nothing usable. Only parallel
	// branches may end failed; a failed sequential stage aborts the job.
	StatusFailed Status = "failed"

	// StatusSkipped means the step's skip predicate held and it never ran.
	StatusSkipped Status = "skipped"
)

// StageResult records one sequential stage execution.
type StageResult struct {
	Name     string
	Status   Status
	Err      error
	Duration time.Duration
}

// stageDescriptor declares one sequential stage: its retry policy, its skip
// predicate, and its body. Stages run strictly in declared order.
type stageDescriptor struct {
	name string

	// skip, when non-nil and true for the current context, records a
	// skipped StageResult without running the body.
	skip func(*Context) bool

	// policy wraps the body's external calls. The zero policy runs the
	// body exactly once.
	policy retry.Policy

	// degradeOnFailure turns a final failure into a degraded success
	// instead of a terminal abort.
	degradeOnFailure bool

	run func(ctx context.Context, ec *Context) error
}

// BranchPayload carries one branch's typed contribution to the merge.
// Exactly one field group is populated per branch.
type BranchPayload struct {
	Citations []article.Citation
	Links     []article.Link
	Nav       []article.NavLabel
	Meta      *article.Metadata
	FAQ       []article.QA
	PAA       []article.QA
	Image     *article.ImageRef
}

// BranchOutput is one parallel branch's result, keyed by branch name in the
// context's branch map.
type BranchOutput struct {
	Name     string
	Status   Status
	Err      error
	Payload  BranchPayload
	Duration time.Duration
}

// branchDescriptor declares one parallel branch. Optional branches may end
// skipped or failed without affecting the merge; the others degrade to safe
// defaults.
type branchDescriptor struct {
	name     string
	optional bool
	skip     func(snap Snapshot) bool
	run      func(ctx context.Context, snap Snapshot) (BranchPayload, error)
}

// Snapshot is the read-only view of sequential-path data handed to each
// branch. Branches never see each other's output.
type Snapshot struct {
	Spec    article.JobSpec
	Article article.Article
}
