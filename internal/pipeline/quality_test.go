package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/longform/internal/article"
)

func newInspector(t *testing.T) *Pipeline {
	t.Helper()
	gen := &mockGenerator{generateFunc: func(context.Context, string, bool) (string, error) {
		return validDraft(), nil
	}}
	return newTestPipeline(t, gen)
}

func cleanArtifact() *article.ValidatedArtifact {
	return &article.ValidatedArtifact{
		Article: article.Article{
			Headline:     "Understanding Distributed Tracing",
			Teaser:       "A practical look at traces.",
			DirectAnswer: "Tracing records request paths across services so latency can be attributed [1].",
			Intro:        "Intro text with enough substance to read naturally.",
			Sections: []article.Section{
				{Title: "How Spans Work", Body: "Spans carry timing."},
				{Title: "Sampling", Body: "Sampling bounds cost."},
			},
			Takeaways: []string{"One", "Two", "Three"},
		},
		Citations: []article.Citation{{Number: 1, URL: "https://example.org/a", Title: "A"}},
		Links: []article.Link{
			{URL: "https://en.wikipedia.org/wiki/Tracing", Title: "Tracing"},
			{URL: "https://example.edu/guide", Title: "Guide"},
			{URL: "https://example.org/ref", Title: "Ref"},
		},
		Meta: article.Metadata{
			MetaTitle:       "Distributed Tracing Explained",
			MetaDescription: "Learn how distributed tracing connects spans into traces and how sampling keeps observability costs firmly under control.",
			Slug:            "understanding-distributed-tracing",
		},
		FAQ:   []article.QA{{Question: "What is a span?", Answer: "A timed unit."}},
		Image: article.ImageRef{URL: "https://img.example.com/hero.png"},
	}
}

func TestInspectCleanArtifactIsPublishable(t *testing.T) {
	p := newInspector(t)
	spec := article.NewJobSpec("tracing")
	spec.WordCount = 0 // no length target

	report := p.inspect(spec, cleanArtifact())

	assert.Empty(t, report.Critical)
	assert.True(t, report.Publishable())
	assert.Equal(t, 100, report.Score)
}

func TestInspectFlagsMissingRequiredFields(t *testing.T) {
	p := newInspector(t)
	art := cleanArtifact()
	art.Article.Headline = ""
	art.Article.DirectAnswer = ""
	art.Article.Sections = nil

	report := p.inspect(article.NewJobSpec("tracing"), art)

	assert.False(t, report.Publishable())
	require.NotEmpty(t, report.Critical)
	for _, issue := range report.Critical {
		assert.Equal(t, IssueMissingField, issue.Category)
	}
}

func TestInspectRejectsDuplicateSections(t *testing.T) {
	p := newInspector(t)
	art := cleanArtifact()
	art.Article.Sections = append(art.Article.Sections, article.Section{
		Title: "how spans work", Body: "Repeated coverage.",
	})

	report := p.inspect(article.NewJobSpec("tracing"), art)

	assert.False(t, report.Publishable())
	require.Len(t, report.Critical, 1)
	assert.Equal(t, IssueDuplicateSection, report.Critical[0].Category)
}

func TestInspectRejectsExcludedNames(t *testing.T) {
	p := newInspector(t)
	art := cleanArtifact()
	art.Article.Sections[0].Body = "Spans carry timing, unlike Acme Corp's approach."

	spec := article.NewJobSpec("tracing")
	spec.ExcludedNames = []string{"Acme Corp"}

	report := p.inspect(spec, art)

	assert.False(t, report.Publishable())
	require.Len(t, report.Critical, 1)
	assert.Equal(t, IssueExcludedName, report.Critical[0].Category)
}

func TestInspectRejectsExcludedDomains(t *testing.T) {
	p := newInspector(t)
	art := cleanArtifact()
	art.Links = append(art.Links, article.Link{URL: "https://rival.example.net/post", Title: "Rival"})

	spec := article.NewJobSpec("tracing")
	spec.ExcludedDomains = []string{"rival.example.net"}

	report := p.inspect(spec, art)

	assert.False(t, report.Publishable())
	require.Len(t, report.Critical, 1)
	assert.Equal(t, IssueExcludedDomain, report.Critical[0].Category)
}

func TestInspectFlagsDanglingMarkers(t *testing.T) {
	p := newInspector(t)
	art := cleanArtifact()
	art.Article.Intro = "A claim with a broken reference [9]."

	report := p.inspect(article.NewJobSpec("tracing"), art)

	assert.False(t, report.Publishable())
	require.NotEmpty(t, report.Critical)
	assert.Equal(t, IssueDanglingMarker, report.Critical[0].Category)
}

func TestInspectAdvisoryFindingsDoNotBlock(t *testing.T) {
	p := newInspector(t)
	art := cleanArtifact()
	art.Meta.MetaTitle = "A meta title that runs well past the sixty character search result limit"
	art.Article.Takeaways = art.Article.Takeaways[:1]
	art.Links = art.Links[:1]
	art.FAQ = nil
	art.Image = article.ImageRef{}

	spec := article.NewJobSpec("tracing")
	spec.WordCount = 0

	report := p.inspect(spec, art)

	assert.True(t, report.Publishable())
	assert.NotEmpty(t, report.Advisory)
}

func TestInspectScoresPerCategory(t *testing.T) {
	p := newInspector(t)
	art := cleanArtifact()

	// Two instances of one critical category plus two advisory categories.
	art.Article.Sections = append(art.Article.Sections,
		article.Section{Title: "How Spans Work", Body: "dup one"},
		article.Section{Title: "Sampling", Body: "dup two"},
	)
	art.Article.Takeaways = nil
	art.FAQ = nil

	spec := article.NewJobSpec("tracing")
	spec.WordCount = 0

	report := p.inspect(spec, art)

	require.Len(t, report.Critical, 2)
	// 100 - 20 (one critical category) - 10 (two advisory categories).
	assert.Equal(t, 70, report.Score)
}

func TestInspectScoreFloorsAtZero(t *testing.T) {
	p := newInspector(t)
	art := &article.ValidatedArtifact{}

	spec := article.NewJobSpec("tracing")
	spec.ExcludedNames = nil

	report := p.inspect(spec, art)

	assert.False(t, report.Publishable())
	assert.GreaterOrEqual(t, report.Score, 0)
}

func TestInspectSkipsImageCheckWhenDisabled(t *testing.T) {
	p := newInspector(t)
	art := cleanArtifact()
	art.Image = article.ImageRef{}

	spec := article.NewJobSpec("tracing")
	spec.WordCount = 0
	spec.DisableImage = true

	report := p.inspect(spec, art)

	for _, issue := range report.Advisory {
		assert.NotEqual(t, IssueMissingImage, issue.Category)
	}
}
