package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/longform/internal/article"
)

func mergeFixture(spec article.JobSpec) (*Context, map[string]BranchOutput) {
	ec := newContext(spec)
	ec.Article = article.Article{
		Headline:     "Understanding Distributed Tracing",
		Teaser:       "A practical look at traces.",
		DirectAnswer: "Tracing records request paths [1].",
		Intro:        "Intro text.",
		Sections: []article.Section{
			{Title: "How Spans Work", Body: "Spans carry timing [2]."},
		},
		Takeaways: []string{"Traces attribute latency"},
		FAQ:       []article.QA{{Question: "What is a span?", Answer: "A timed unit."}},
	}

	outputs := map[string]BranchOutput{
		BranchCitations: {Name: BranchCitations, Status: StatusSuccess, Payload: BranchPayload{
			Citations: []article.Citation{
				{Number: 1, URL: "https://example.org/a", Title: "A"},
				{Number: 2, URL: "https://example.org/b", Title: "B"},
			},
		}},
		BranchLinks: {Name: BranchLinks, Status: StatusSuccess, Payload: BranchPayload{
			Links: []article.Link{{URL: "https://en.wikipedia.org/wiki/Tracing", Title: "Tracing", Relevance: 10}},
		}},
		BranchNavigation: {Name: BranchNavigation, Status: StatusSuccess, Payload: BranchPayload{
			Nav: []article.NavLabel{{Anchor: "how-spans-work", Label: "How Spans Work"}},
		}},
		BranchMetadata: {Name: BranchMetadata, Status: StatusSuccess, Payload: BranchPayload{
			Meta: &article.Metadata{MetaTitle: "T", MetaDescription: "D", Slug: "understanding-distributed-tracing"},
		}},
		BranchFAQ: {Name: BranchFAQ, Status: StatusSuccess, Payload: BranchPayload{
			FAQ: []article.QA{{Question: "What is a span?", Answer: "A timed unit."}},
		}},
		BranchImage: {Name: BranchImage, Status: StatusSkipped},
	}
	return ec, outputs
}

func TestMergeIsOrderIndependent(t *testing.T) {
	insertionOrders := [][]string{
		{BranchCitations, BranchLinks, BranchNavigation, BranchMetadata, BranchFAQ, BranchImage},
		{BranchImage, BranchFAQ, BranchMetadata, BranchNavigation, BranchLinks, BranchCitations},
		{BranchMetadata, BranchImage, BranchCitations, BranchFAQ, BranchLinks, BranchNavigation},
	}

	// One spec for every permutation, so artifacts are comparable.
	spec := article.NewJobSpec("tracing")

	var first *article.ValidatedArtifact
	for _, order := range insertionOrders {
		ec, outputs := mergeFixture(spec)
		for _, name := range order {
			ec.Branches[name] = outputs[name]
		}
		got := merge(ec)
		if first == nil {
			first = got
			continue
		}
		assert.Equal(t, first, got, "merge result must not depend on branch completion order")
	}
}

func TestMergeUsesSafeDefaultsForDegradedBranches(t *testing.T) {
	ec, outputs := mergeFixture(article.NewJobSpec("tracing"))
	outputs[BranchNavigation] = BranchOutput{Name: BranchNavigation, Status: StatusDegraded}
	outputs[BranchMetadata] = BranchOutput{Name: BranchMetadata, Status: StatusDegraded}
	for name, out := range outputs {
		ec.Branches[name] = out
	}

	got := merge(ec)

	require.Len(t, got.Nav, 1, "nav must fall back to section titles")
	assert.Equal(t, "how-spans-work", got.Nav[0].Anchor)
	assert.Equal(t, "understanding-distributed-tracing", got.Meta.Slug)
}

func TestMergeDropsFailedCitations(t *testing.T) {
	ec, outputs := mergeFixture(article.NewJobSpec("tracing"))
	outputs[BranchCitations] = BranchOutput{Name: BranchCitations, Status: StatusFailed}
	for name, out := range outputs {
		ec.Branches[name] = out
	}

	got := merge(ec)

	assert.Empty(t, got.Citations)
	assert.NotContains(t, got.Article.DirectAnswer, "[1]", "markers without citations must be stripped")
}

func TestNormalizeTakeawaysExtractsInlineLines(t *testing.T) {
	a := article.Article{
		Intro: "Opening paragraph.\nKey takeaway: Sampling controls cost.",
		Sections: []article.Section{
			{Title: "S", Body: "Body line.\n- Key takeaway: Spans nest into traces.\nMore body."},
		},
		Takeaways: []string{"Traces attribute latency"},
	}

	normalizeTakeaways(&a)

	assert.Equal(t, []string{
		"Traces attribute latency",
		"Sampling controls cost.",
		"Spans nest into traces.",
	}, a.Takeaways)
	assert.NotContains(t, a.Intro, "Key takeaway")
	assert.NotContains(t, a.Sections[0].Body, "Key takeaway")
	assert.Contains(t, a.Sections[0].Body, "More body.")
}

func TestNormalizeTakeawaysRemovesVerbatimDuplicates(t *testing.T) {
	a := article.Article{
		Intro:     "Traces attribute latency\nActual intro text.",
		Takeaways: []string{"Traces attribute latency"},
	}

	normalizeTakeaways(&a)

	assert.Equal(t, "Actual intro text.", a.Intro)
	assert.Len(t, a.Takeaways, 1)
}
