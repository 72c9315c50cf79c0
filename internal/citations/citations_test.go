package citations

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/longform/internal/webtool"
)

// mockChecker implements webtool.ReachabilityChecker with a configurable
// func.
type mockChecker struct {
	check func(ctx context.Context, url string) (webtool.CheckResult, error)
}

func (m *mockChecker) Check(ctx context.Context, url string) (webtool.CheckResult, error) {
	return m.check(ctx, url)
}

// mockSearch implements webtool.SearchService with a configurable func.
type mockSearch struct {
	search func(ctx context.Context, query string) ([]webtool.SearchResult, error)
}

func (m *mockSearch) Search(ctx context.Context, query string) ([]webtool.SearchResult, error) {
	return m.search(ctx, query)
}

func reachableSet(urls ...string) *mockChecker {
	ok := make(map[string]bool, len(urls))
	for _, u := range urls {
		ok[u] = true
	}
	return &mockChecker{check: func(_ context.Context, url string) (webtool.CheckResult, error) {
		return webtool.CheckResult{Reachable: ok[url], StatusCode: 200, FinalURL: url}, nil
	}}
}

func noSearch() *mockSearch {
	return &mockSearch{search: func(context.Context, string) ([]webtool.SearchResult, error) {
		return nil, nil
	}}
}

func TestParseSources_DashSeparated(t *testing.T) {
	block := `[1]: https://example.org/study – 2024 Churn Study
[2]: https://saas-metrics.com/report/annual-q3 — Annual Metrics Report
[3]: https://example.com/page Another Source`

	list := ParseSources(block)
	require.Len(t, list, 3)
	assert.Equal(t, "https://example.org/study", list[0].RawURL)
	assert.Equal(t, "2024 Churn Study", list[0].Title)
	// Dashes inside the URL must not be treated as the separator.
	assert.Equal(t, "https://saas-metrics.com/report/annual-q3", list[1].RawURL)
	assert.Equal(t, "Another Source", list[2].Title)
	for i, c := range list {
		assert.Equal(t, i+1, c.Index)
		assert.Equal(t, StatusUnvalidated, c.Status)
	}
}

func TestParseSources_BareLineWithEmbeddedURL(t *testing.T) {
	list := ParseSources(`[1]: see https://example.org/deep/page for the full data`)
	require.Len(t, list, 1)
	assert.Equal(t, "https://example.org/deep/page", list[0].RawURL)
	assert.Equal(t, "see  for the full data", list[0].Title)
}

func TestParseSources_SkipsGarbageAndRenumbers(t *testing.T) {
	block := `[4]: https://example.org/a – A
not a citation line
[9]: /relative/path – rejected
[2]: https://example.org/b – B`

	list := ParseSources(block)
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].Index)
	assert.Equal(t, 2, list[1].Index)
	assert.Equal(t, "https://example.org/b", list[1].RawURL)
}

func TestValidateAll_AllReachable(t *testing.T) {
	list := ParseSources(`[1]: https://example.org/a – A
[2]: https://example.org/b – B`)

	v := NewValidator(reachableSet("https://example.org/a", "https://example.org/b"), noSearch(), nil)
	v.FallbackURL = "https://subject.example"
	v.ValidateAll(context.Background(), list)

	for _, c := range list {
		assert.Equal(t, StatusValid, c.Status)
		assert.Equal(t, c.RawURL, c.URL)
	}
}

func TestValidateAll_UnreachableRepairsViaSearch(t *testing.T) {
	list := ParseSources(`[1]: https://example.org/a – A
[2]: https://dead.example/gone – Dead Study
[3]: https://example.org/c – C`)

	searched := 0
	search := &mockSearch{search: func(_ context.Context, query string) ([]webtool.SearchResult, error) {
		searched++
		assert.Equal(t, "Dead Study", query)
		return []webtool.SearchResult{
			{URL: "https://alt.example/also-dead", Title: "Bad Alt"},
			{URL: "https://alt.example/study", Title: "Replacement Study"},
		}, nil
	}}

	v := NewValidator(reachableSet(
		"https://example.org/a",
		"https://example.org/c",
		"https://alt.example/study",
	), search, nil)
	v.FallbackURL = "https://subject.example"
	v.ValidateAll(context.Background(), list)

	require.Equal(t, 1, searched, "only the dead citation consumes a search round")
	assert.Equal(t, StatusValid, list[1].Status)
	assert.Equal(t, "https://alt.example/study", list[1].URL)
	assert.NotEqual(t, list[1].RawURL, list[1].URL)
	assert.Equal(t, "Replacement Study", list[1].Title)

	// Final numbering is contiguous from 1.
	for i, c := range list {
		assert.Equal(t, i+1, c.Index)
	}
}

func TestValidateAll_BudgetExhaustionAssignsFallback(t *testing.T) {
	list := ParseSources(`[1]: https://dead.example/a – A
[2]: https://dead.example/b – B`)

	searches := 0
	search := &mockSearch{search: func(context.Context, string) ([]webtool.SearchResult, error) {
		searches++
		return []webtool.SearchResult{{URL: "https://alt.example/nope"}}, nil
	}}

	v := NewValidator(reachableSet(), search, nil)
	v.Budget = 4
	v.FallbackURL = "https://subject.example"
	v.ValidateAll(context.Background(), list)

	assert.Equal(t, 4, searches, "shared budget bounds total search rounds")
	for _, c := range list {
		require.True(t, c.Resolved(), "no citation may end unvalidated")
		assert.Equal(t, StatusFallbackAssigned, c.Status)
		assert.Equal(t, "https://subject.example", c.URL)
	}
}

func TestValidateAll_SearchErrorsCountAgainstBudget(t *testing.T) {
	list := ParseSources(`[1]: https://dead.example/a – A`)

	search := &mockSearch{search: func(context.Context, string) ([]webtool.SearchResult, error) {
		return nil, errors.New("search backend down")
	}}

	v := NewValidator(reachableSet(), search, nil)
	v.Budget = 3
	v.FallbackURL = "https://subject.example"
	v.ValidateAll(context.Background(), list)

	assert.Equal(t, StatusFallbackAssigned, list[0].Status)
}

func TestValidateAll_ExcludedDomainRejectedEvenWhenReachable(t *testing.T) {
	list := ParseSources(`[1]: https://rival.example/report – Rival Report`)

	checker := &mockChecker{check: func(_ context.Context, url string) (webtool.CheckResult, error) {
		return webtool.CheckResult{Reachable: true, StatusCode: 200, FinalURL: url}, nil
	}}
	search := &mockSearch{search: func(context.Context, string) ([]webtool.SearchResult, error) {
		return []webtool.SearchResult{
			{URL: "https://sub.rival.example/other", Title: "Still Rival"},
			{URL: "https://neutral.example/report", Title: "Neutral Report"},
		}, nil
	}}

	v := NewValidator(checker, search, nil)
	v.ExcludedDomains = []string{"rival.example"}
	v.FallbackURL = "https://subject.example"
	v.ValidateAll(context.Background(), list)

	assert.Equal(t, StatusValid, list[0].Status)
	assert.Equal(t, "https://neutral.example/report", list[0].URL)
}
