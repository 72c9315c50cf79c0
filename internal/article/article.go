// Package article defines the data model shared by every pipeline stage:
// the immutable job specification, the structured article record extracted
// from raw generation output, and the final validated artifact.
package article

import (
	"strings"

	"github.com/google/uuid"
)

// MaxSections is the maximum number of titled body sections an article
// carries. Unused trailing sections stay empty.
const MaxSections = 9

// JobSpec is the immutable input for one pipeline run. It is created at
// submission time and never mutated afterwards.
type JobSpec struct {
	ID uuid.UUID

	// Topic is the primary subject phrase the article is written around.
	Topic string

	// SubjectName and SubjectURL identify the entity the article is
	// produced for. SubjectURL doubles as the canonical fallback reference
	// for citations that cannot be repaired.
	SubjectName string
	SubjectURL  string

	// SubjectContext is free-form background text injected into the
	// generation prompt. May be empty.
	SubjectContext string

	// ExcludedNames lists entities (typically competitors) that must not
	// be referenced anywhere in the final artifact.
	ExcludedNames []string

	// ExcludedDomains lists domains that citations and related links must
	// never point at.
	ExcludedDomains []string

	Language  string
	WordCount int

	// DisableCitations and DisableImage skip the corresponding optional
	// branches.
	DisableCitations bool
	DisableImage     bool
}

// NewJobSpec creates a JobSpec with a fresh ID and defaults applied.
func NewJobSpec(topic string) JobSpec {
	return JobSpec{
		ID:        uuid.New(),
		Topic:     topic,
		Language:  "en",
		WordCount: 2500,
	}
}

// Section is one titled body block of the article.
type Section struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// QA is a question/answer pair used for both FAQ and PAA entries.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Article is the structured record produced by the extraction stage. It is
// the read-only input snapshot handed to every parallel branch.
type Article struct {
	Headline     string `json:"headline"`
	Subtitle     string `json:"subtitle,omitempty"`
	Teaser       string `json:"teaser"`
	DirectAnswer string `json:"direct_answer"`
	Intro        string `json:"intro"`

	Sections []Section `json:"sections"`

	Takeaways []string `json:"takeaways,omitempty"`
	FAQ       []QA     `json:"faq,omitempty"`
	PAA       []QA     `json:"paa,omitempty"`

	MetaTitle       string `json:"meta_title"`
	MetaDescription string `json:"meta_description"`

	// SourcesBlock is the raw sources listing emitted by the generation
	// service ("[1]: https://... – Title" per line). The citations branch
	// parses it; it never appears in the final artifact.
	SourcesBlock string `json:"sources_block,omitempty"`
}

// ActiveSections returns the sections with a non-empty body, in order.
func (a *Article) ActiveSections() []Section {
	out := make([]Section, 0, len(a.Sections))
	for _, s := range a.Sections {
		if strings.TrimSpace(s.Body) != "" {
			out = append(out, s)
		}
	}
	return out
}

// WordCount returns the approximate word count of the article body fields.
func (a *Article) WordCount() int {
	n := len(strings.Fields(a.Intro)) + len(strings.Fields(a.DirectAnswer))
	for _, s := range a.Sections {
		n += len(strings.Fields(s.Body))
	}
	for _, qa := range a.FAQ {
		n += len(strings.Fields(qa.Answer))
	}
	return n
}

// Citation is one validated source reference in the final artifact.
type Citation struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
	Title  string `json:"title"`
}

// Link is one outbound related-reading reference.
type Link struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Relevance int    `json:"relevance"`
}

// NavLabel is one table-of-contents entry.
type NavLabel struct {
	Anchor string `json:"anchor"`
	Label  string `json:"label"`
}

// Metadata holds the normalized publication metadata.
type Metadata struct {
	MetaTitle       string `json:"meta_title"`
	MetaDescription string `json:"meta_description"`
	Slug            string `json:"slug"`
}

// ImageRef points at a created illustration. Zero value means no image.
type ImageRef struct {
	URL     string `json:"url,omitempty"`
	AltText string `json:"alt_text,omitempty"`
}

// ValidatedArtifact is the flattened fan-in result: the article body plus
// every branch contribution, with all placeholder markers resolved. It is
// created exactly once per job, after merge.
type ValidatedArtifact struct {
	JobID uuid.UUID `json:"job_id"`

	Article Article `json:"article"`

	Citations []Citation `json:"citations,omitempty"`
	Links     []Link     `json:"links,omitempty"`
	Nav       []NavLabel `json:"nav"`
	Meta      Metadata   `json:"meta"`
	FAQ       []QA       `json:"faq,omitempty"`
	PAA       []QA       `json:"paa,omitempty"`
	Image     ImageRef   `json:"image,omitempty"`
}

// Issue is a single quality gate finding.
type Issue struct {
	// Category groups findings for scoring: each category is penalized
	// once no matter how many instances it produced.
	Category string `json:"category"`
	Message  string `json:"message"`
}

// QualityReport is the quality gate outcome for one artifact. A non-empty
// Critical list means the artifact was rejected.
type QualityReport struct {
	Critical []Issue `json:"critical,omitempty"`
	Advisory []Issue `json:"advisory,omitempty"`
	Score    int     `json:"score"`
}

// Publishable reports whether the artifact passed every critical check.
func (r *QualityReport) Publishable() bool {
	return len(r.Critical) == 0
}
