package pipeline

import (
	"time"

	"github.com/draftforge/longform/internal/citations"
	"github.com/draftforge/longform/internal/links"
)

// Config carries the pipeline tunables. Zero values fall back to the
// defaults at construction time, so a partially filled Config is valid.
type Config struct {
	// GenerateAttempts and GenerateDelay shape the generation stage's
	// exponential retry policy.
	GenerateAttempts int
	GenerateDelay    time.Duration

	// ExtractAttempts and ExtractDelay shape the extraction stage's fixed
	// retry policy.
	ExtractAttempts int
	ExtractDelay    time.Duration

	// SkipRefine disables the draft refinement stage.
	SkipRefine bool

	// CitationBudget is the shared search-round budget for citation
	// validation.
	CitationBudget int

	// LinkCandidates sizes the related-link candidate pool; MinLinks is
	// the advisory lower bound the quality gate checks against.
	LinkCandidates int
	MinLinks       int

	// StageTimeout bounds each sequential stage attempt. Zero means no
	// per-stage bound beyond the caller's context.
	StageTimeout time.Duration
}

// DefaultConfig returns the standard production tunables.
func DefaultConfig() Config {
	return Config{
		GenerateAttempts: 3,
		GenerateDelay:    5 * time.Second,
		ExtractAttempts:  2,
		ExtractDelay:     2 * time.Second,
		CitationBudget:   citations.DefaultBudget,
		LinkCandidates:   links.DefaultCandidateCount,
		MinLinks:         links.DefaultMinLinks,
		StageTimeout:     10 * time.Minute,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.GenerateAttempts <= 0 {
		c.GenerateAttempts = def.GenerateAttempts
	}
	if c.GenerateDelay <= 0 {
		c.GenerateDelay = def.GenerateDelay
	}
	if c.ExtractAttempts <= 0 {
		c.ExtractAttempts = def.ExtractAttempts
	}
	if c.ExtractDelay <= 0 {
		c.ExtractDelay = def.ExtractDelay
	}
	if c.CitationBudget <= 0 {
		c.CitationBudget = def.CitationBudget
	}
	if c.LinkCandidates <= 0 {
		c.LinkCandidates = def.LinkCandidates
	}
	if c.MinLinks <= 0 {
		c.MinLinks = def.MinLinks
	}
	return c
}
