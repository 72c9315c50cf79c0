// Package pipeline schedules one article job end to end: a sequential
// prefix that drafts and structures the article, a parallel branch group
// that enriches it, and a fan-in that merges, sanitizes and quality-gates
// the result. The package owns scheduling, retries and degradation; the
// domain work lives in the collaborator packages.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/draftforge/longform/internal/article"
	"github.com/draftforge/longform/internal/extract"
	"github.com/draftforge/longform/internal/genai"
	"github.com/draftforge/longform/internal/prompt"
	"github.com/draftforge/longform/internal/retry"
	"github.com/draftforge/longform/internal/webtool"
)

// Sequential stage names.
const (
	StagePromptBuild = "prompt-build"
	StageGenerate    = "generate"
	StageRefine      = "refine"
	StageExtract     = "extract"
)

// minDraftLength is the research-quality floor for raw generation output.
// Drafts failing the precheck are treated like transient backend failures
// and retried.
const minDraftLength = 500

// errThinDraft marks a draft that failed the research-quality precheck.
var errThinDraft = errors.New("pipeline: generated draft failed research precheck")

// draftUsable is the research-quality precheck: a full draft is long enough
// to carry the article and grounds its claims in at least one URL.
func draftUsable(draft string) bool {
	draft = strings.TrimSpace(draft)
	return len(draft) >= minDraftLength && strings.Contains(draft, "http")
}

// PromptBuilder composes the generation prompt for one job. Satisfied by
// prompt.Builder.
type PromptBuilder interface {
	Build(spec article.JobSpec) (string, error)
}

var _ PromptBuilder = (*prompt.Builder)(nil)

// Pipeline runs article jobs. One Pipeline is safe for concurrent Run
// calls; all per-job state lives in the run's Context.
type Pipeline struct {
	gen     genai.ContentGenerationService
	images  genai.ImageCreationService
	search  webtool.SearchService
	checker webtool.ReachabilityChecker

	prompts   PromptBuilder
	extractor extract.Service

	log      *slog.Logger
	progress *ProgressReporter
	cfg      Config
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithImageService enables the image branch.
func WithImageService(svc genai.ImageCreationService) Option {
	return func(p *Pipeline) { p.images = svc }
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithConfig overrides the default tunables.
func WithConfig(cfg Config) Option {
	return func(p *Pipeline) { p.cfg = cfg.withDefaults() }
}

// WithProgress attaches a progress reporter.
func WithProgress(pr *ProgressReporter) Option {
	return func(p *Pipeline) { p.progress = pr }
}

// WithExtractor overrides the default JSON extractor.
func WithExtractor(svc extract.Service) Option {
	return func(p *Pipeline) { p.extractor = svc }
}

// WithPromptBuilder overrides the default prompt builder.
func WithPromptBuilder(b PromptBuilder) Option {
	return func(p *Pipeline) { p.prompts = b }
}

// New creates a Pipeline around the required collaborators.
func New(gen genai.ContentGenerationService, search webtool.SearchService, checker webtool.ReachabilityChecker, opts ...Option) (*Pipeline, error) {
	if gen == nil {
		return nil, errors.New("pipeline: content generation service is required")
	}
	if search == nil {
		return nil, errors.New("pipeline: search service is required")
	}
	if checker == nil {
		return nil, errors.New("pipeline: reachability checker is required")
	}

	p := &Pipeline{
		gen:     gen,
		search:  search,
		checker: checker,
		log:     slog.Default(),
		cfg:     DefaultConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.prompts == nil {
		b, err := prompt.NewBuilder()
		if err != nil {
			return nil, err
		}
		p.prompts = b
	}
	if p.extractor == nil {
		p.extractor = extract.NewJSONExtractor()
	}
	return p, nil
}

// Run executes one job to its end state. A published or rejected artifact
// comes back as a Result; a terminal failure of the sequential prefix comes
// back as an error wrapping a TerminalError.
func (p *Pipeline) Run(ctx context.Context, spec article.JobSpec) (*Result, error) {
	if strings.TrimSpace(spec.Topic) == "" {
		return nil, &TerminalError{Stage: StagePromptBuild, Err: errors.New("job topic is required")}
	}

	log := p.log.With("job_id", spec.ID)
	log.Info("pipeline run starting", "topic", spec.Topic)

	ec := newContext(spec)

	for _, st := range p.stages() {
		if err := p.runStage(ctx, st, ec); err != nil {
			log.Error("stage failed terminally", "stage", st.name, "error", err)
			return nil, err
		}
	}

	p.emit(ProgressEvent{Step: "branches", Status: ProgressWorking})
	ec.Branches = runBranches(ctx, ec.snapshot(), p.branchSet())
	for name, br := range ec.Branches {
		log.Info("branch finished", "branch", name, "status", br.Status, "error", br.Err)
	}
	p.emit(ProgressEvent{Step: "branches", Status: ProgressComplete})

	ec.Artifact = merge(ec)
	ec.Report = p.inspect(spec, ec.Artifact)

	state := StatePublished
	if !ec.Report.Publishable() {
		state = StateRejected
	}
	log.Info("pipeline run finished", "state", state, "score", ec.Report.Score)

	return &Result{
		State:    state,
		Artifact: ec.Artifact,
		Report:   ec.Report,
		Stages:   ec.Stages,
		Branches: ec.Branches,
	}, nil
}

// stages declares the sequential prefix in execution order.
func (p *Pipeline) stages() []stageDescriptor {
	return []stageDescriptor{
		{
			name: StagePromptBuild,
			run: func(_ context.Context, ec *Context) error {
				built, err := p.prompts.Build(ec.Spec)
				if err != nil {
					return err
				}
				ec.Prompt = built
				return nil
			},
		},
		{
			name: StageGenerate,
			policy: retry.Policy{
				MaxAttempts:  p.cfg.GenerateAttempts,
				InitialDelay: p.cfg.GenerateDelay,
				Multiplier:   2,
				Retryable: func(err error) bool {
					return genai.IsTransient(err) || errors.Is(err, errThinDraft)
				},
			},
			run: func(ctx context.Context, ec *Context) error {
				draft, err := p.gen.Generate(ctx, ec.Prompt, true)
				if err != nil {
					return err
				}
				if !draftUsable(draft) {
					return errThinDraft
				}
				ec.RawDraft = draft
				return nil
			},
		},
		{
			name:             StageRefine,
			degradeOnFailure: true,
			skip:             func(*Context) bool { return p.cfg.SkipRefine },
			run: func(ctx context.Context, ec *Context) error {
				refined, err := p.gen.Generate(ctx, refinePrompt(ec.RawDraft), false)
				if err != nil {
					return err
				}
				if !draftUsable(refined) {
					return errThinDraft
				}
				ec.RawDraft = refined
				return nil
			},
		},
		{
			name:   StageExtract,
			policy: retry.Fixed(p.cfg.ExtractAttempts, p.cfg.ExtractDelay),
			run: func(_ context.Context, ec *Context) error {
				a, err := p.extractor.Extract(ec.RawDraft)
				if err != nil {
					return err
				}
				ec.Article = a
				return nil
			},
		},
	}
}

// runStage executes one sequential stage under its retry policy and records
// the outcome. A terminal failure is returned wrapped in a TerminalError
// unless the stage degrades on failure.
func (p *Pipeline) runStage(ctx context.Context, st stageDescriptor, ec *Context) error {
	if st.skip != nil && st.skip(ec) {
		ec.Stages = append(ec.Stages, StageResult{Name: st.name, Status: StatusSkipped})
		p.emit(ProgressEvent{Step: st.name, Status: ProgressSkipped})
		return nil
	}

	p.emit(ProgressEvent{Step: st.name, Status: ProgressWorking})
	start := time.Now()

	stageCtx := ctx
	if p.cfg.StageTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, p.cfg.StageTimeout)
		defer cancel()
	}

	_, err := retry.Do(stageCtx, st.policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, st.run(ctx, ec)
	})

	res := StageResult{Name: st.name, Duration: time.Since(start)}
	switch {
	case err == nil:
		res.Status = StatusSuccess
		p.emit(ProgressEvent{Step: st.name, Status: ProgressComplete})
	case st.degradeOnFailure:
		res.Status = StatusDegraded
		res.Err = err
		p.emit(ProgressEvent{Step: st.name, Status: ProgressDegraded, Message: err.Error()})
		err = nil
	default:
		res.Status = StatusFailed
		res.Err = err
		p.emit(ProgressEvent{Step: st.name, Status: ProgressFailed, Message: err.Error()})
		err = &TerminalError{Stage: st.name, Err: err}
	}
	ec.Stages = append(ec.Stages, res)
	return err
}

func (p *Pipeline) emit(e ProgressEvent) {
	if p.progress != nil {
		p.progress.Emit(e)
	}
}

// refinePrompt wraps a draft in the polish instruction for the second
// generation pass.
func refinePrompt(draft string) string {
	return fmt.Sprintf(`Polish the following article draft. Keep the JSON structure, every field and every inline [n] citation marker exactly as they are. Improve flow, remove repetition and tighten wording. Return only the JSON object.

%s`, draft)
}
