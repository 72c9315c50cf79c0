package citations

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/draftforge/longform/internal/webtool"
)

// DefaultBudget is the shared search-round budget for one validation run.
const DefaultBudget = 20

// maxCandidatesPerRound caps how many search hits one round probes.
const maxCandidatesPerRound = 3

// forbiddenHosts are never acceptable as citation targets regardless of the
// job's exclusion list.
var forbiddenHosts = []string{
	"vertexaisearch.cloud.google.com",
	"cloud.google.com",
}

// Validator drives the per-citation state machine. One Validator instance
// serves one branch execution; it is not safe for concurrent use.
type Validator struct {
	checker webtool.ReachabilityChecker
	search  webtool.SearchService
	log     *slog.Logger

	// Budget is the shared number of search rounds available across all
	// citations in one run.
	Budget int

	// FallbackURL is assigned to citations the budget could not repair.
	// Typically the subject's canonical page.
	FallbackURL string

	// ExcludedDomains are rejected both for original URLs and for search
	// candidates.
	ExcludedDomains []string
}

// NewValidator creates a Validator with the default budget.
func NewValidator(checker webtool.ReachabilityChecker, search webtool.SearchService, log *slog.Logger) *Validator {
	if log == nil {
		log = slog.Default()
	}
	return &Validator{
		checker: checker,
		search:  search,
		log:     log,
		Budget:  DefaultBudget,
	}
}

// ValidateAll resolves every citation to Valid or FallbackAssigned.
//
// Pass 1 probes each raw URL; reachable, unfiltered URLs become Valid
// without touching the budget. Pass 2 runs search rounds over the remaining
// invalid citations round-robin, one search-plus-probe round per budget
// unit, until everything is resolved or the budget runs out. Leftovers get
// the fallback reference. The input slice is renumbered contiguously and
// returned.
func (v *Validator) ValidateAll(ctx context.Context, list []*Citation) []*Citation {
	remaining := v.Budget
	if remaining <= 0 {
		remaining = DefaultBudget
	}

	for _, c := range list {
		c.Status = StatusChecking
		if v.probeAcceptable(ctx, c.RawURL) {
			c.URL = c.RawURL
			c.Status = StatusValid
			continue
		}
		c.Status = StatusInvalid
		v.log.Debug("citation raw URL rejected", "index", c.Index, "url", c.RawURL)
	}

	for remaining > 0 && v.unresolved(list) > 0 {
		for _, c := range list {
			if remaining == 0 {
				break
			}
			if c.Resolved() {
				continue
			}
			remaining--
			if v.searchRound(ctx, c) {
				v.log.Debug("citation repaired", "index", c.Index, "url", c.URL)
			}
		}
	}

	for _, c := range list {
		if c.Resolved() {
			continue
		}
		c.URL = v.FallbackURL
		c.Status = StatusFallbackAssigned
		v.log.Warn("citation budget exhausted, fallback assigned",
			"index", c.Index, "raw_url", c.RawURL)
	}

	renumber(list)
	return list
}

// searchRound runs one search-for-alternative round for c. Returns true when
// the citation became Valid.
func (v *Validator) searchRound(ctx context.Context, c *Citation) bool {
	c.Status = StatusSearching

	results, err := v.search.Search(ctx, buildQuery(c.Title))
	if err != nil {
		v.log.Debug("citation search failed", "index", c.Index, "error", err)
		c.Status = StatusInvalid
		return false
	}

	probed := 0
	for _, hit := range results {
		if probed == maxCandidatesPerRound {
			break
		}
		if v.filtered(hit.URL) {
			continue
		}
		probed++
		c.Candidates = append(c.Candidates, hit.URL)
		if v.probeReachable(ctx, hit.URL) {
			c.URL = hit.URL
			if hit.Title != "" {
				c.Title = hit.Title
			}
			c.Status = StatusValid
			return true
		}
	}

	c.Status = StatusInvalid
	return false
}

// probeAcceptable combines the reachability probe with the exclusion filter.
func (v *Validator) probeAcceptable(ctx context.Context, rawURL string) bool {
	if v.filtered(rawURL) {
		return false
	}
	return v.probeReachable(ctx, rawURL)
}

func (v *Validator) probeReachable(ctx context.Context, rawURL string) bool {
	result, err := v.checker.Check(ctx, rawURL)
	if err != nil {
		return false
	}
	return result.Reachable
}

// filtered rejects excluded and forbidden hosts.
func (v *Validator) filtered(rawURL string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return true
	}
	for _, f := range forbiddenHosts {
		if host == f || strings.HasSuffix(host, "."+f) {
			return true
		}
	}
	for _, d := range v.ExcludedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func (v *Validator) unresolved(list []*Citation) int {
	n := 0
	for _, c := range list {
		if !c.Resolved() {
			n++
		}
	}
	return n
}

// buildQuery turns a citation title into a search query, trimming
// punctuation noise.
func buildQuery(title string) string {
	q := strings.TrimSpace(title)
	q = strings.Trim(q, `"'`)
	if len(q) > 120 {
		q = q[:120]
	}
	return q
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(u.Host, "www."))
}
