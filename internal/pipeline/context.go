package pipeline

import "github.com/draftforge/longform/internal/article"

// Context is the per-job aggregate threaded through every stage. It is
// owned exclusively by one Pipeline.Run invocation: sequential stages
// replace its fields in order, and each parallel branch writes only its own
// slot in the branch map, so no field is ever mutated concurrently.
type Context struct {
	Spec article.JobSpec

	// Prompt is produced by the prompt-build stage.
	Prompt string

	// RawDraft is the unparsed generation output, possibly refined.
	RawDraft string

	// Article is the structured extraction of RawDraft.
	Article article.Article

	// Stages records each sequential stage outcome in execution order.
	Stages []StageResult

	// Branches holds one output per parallel branch, keyed by branch
	// name. Populated all at once when the branch group resolves.
	Branches map[string]BranchOutput

	// Artifact and Report are created exactly once, after merge.
	Artifact *article.ValidatedArtifact
	Report   *article.QualityReport
}

// newContext seeds a Context for one job.
func newContext(spec article.JobSpec) *Context {
	return &Context{
		Spec:     spec,
		Branches: make(map[string]BranchOutput),
	}
}

// snapshot returns the read-only view branches receive. Article is copied
// by value; branches must not retain or mutate slice members.
func (c *Context) snapshot() Snapshot {
	return Snapshot{Spec: c.Spec, Article: c.Article}
}
