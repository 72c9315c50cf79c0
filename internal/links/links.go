// Package links discovers and filters the outbound related-reading set: a
// bounded candidate pool biased toward authoritative, topic-aligned sources,
// validated for reachability and deduplicated to one link per domain.
package links

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/draftforge/longform/internal/article"
	"github.com/draftforge/longform/internal/webtool"
)

const (
	// DefaultCandidateCount is the size of the initial candidate pool.
	DefaultCandidateCount = 10

	// DefaultMaxLinks caps the validated set.
	DefaultMaxLinks = 10

	// DefaultMinLinks is advisory: below it the branch still proceeds with
	// whatever validated, it just logs the shortfall.
	DefaultMinLinks = 3

	// canonicalKnowledgeHost is the general-knowledge source every link set
	// tries to include once.
	canonicalKnowledgeHost = "en.wikipedia.org"
)

// authorityHints mark domains favored when ranking candidates.
var authorityHints = []string{".edu", ".gov", ".org"}

// Finder assembles the related-link set for one article.
type Finder struct {
	search  webtool.SearchService
	checker webtool.ReachabilityChecker
	log     *slog.Logger

	CandidateCount int
	MaxLinks       int
	MinLinks       int

	// ExcludedDomains are never linked.
	ExcludedDomains []string
}

// NewFinder creates a Finder with default bounds.
func NewFinder(search webtool.SearchService, checker webtool.ReachabilityChecker, log *slog.Logger) *Finder {
	if log == nil {
		log = slog.Default()
	}
	return &Finder{
		search:         search,
		checker:        checker,
		log:            log,
		CandidateCount: DefaultCandidateCount,
		MaxLinks:       DefaultMaxLinks,
		MinLinks:       DefaultMinLinks,
	}
}

// Find builds the link set from article topics. Topic order matters: earlier
// topics produce higher-relevance candidates, and the pool is validated in
// relevance order so authority-biased sources win the per-domain slots.
// Find never fails outright; an empty result is a legitimate degraded
// outcome.
func (f *Finder) Find(ctx context.Context, topics []string) []article.Link {
	candidates := f.gather(ctx, topics)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Relevance > candidates[j].Relevance
	})

	valid := make([]article.Link, 0, len(candidates))
	seen := make(map[string]bool)

	for _, cand := range candidates {
		if len(valid) == f.MaxLinks {
			break
		}
		domain := hostOf(cand.URL)
		if domain == "" || seen[domain] {
			continue
		}
		result, err := f.checker.Check(ctx, cand.URL)
		if err != nil || !result.Reachable {
			continue
		}
		seen[domain] = true
		valid = append(valid, cand)
	}

	valid = f.ensureCanonical(ctx, topics, valid, seen)

	if len(valid) < f.MinLinks {
		f.log.Warn("related links below minimum threshold, proceeding anyway",
			"validated", len(valid), "minimum", f.MinLinks)
	}
	return valid
}

// gather collects up to CandidateCount candidates from topic searches,
// filtered against the exclusion set and ranked by topic order plus
// authority bias.
func (f *Finder) gather(ctx context.Context, topics []string) []article.Link {
	var out []article.Link
	seen := make(map[string]bool)

	for ti, topic := range topics {
		if len(out) >= f.CandidateCount {
			break
		}
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}

		results, err := f.search.Search(ctx, topic)
		if err != nil {
			f.log.Debug("link candidate search failed", "topic", topic, "error", err)
			continue
		}

		for ri, hit := range results {
			if len(out) >= f.CandidateCount {
				break
			}
			if hit.URL == "" || seen[hit.URL] || f.excluded(hit.URL) {
				continue
			}
			seen[hit.URL] = true

			relevance := 10 - ti - ri
			if relevance < 1 {
				relevance = 1
			}
			if isAuthority(hit.URL) {
				relevance += 2
			}
			title := hit.Title
			if title == "" {
				title = topic
			}
			out = append(out, article.Link{URL: hit.URL, Title: title, Relevance: relevance})
		}
	}
	return out
}

// ensureCanonical appends one canonical general-knowledge reference when the
// set lacks one and the topic page is reachable.
func (f *Finder) ensureCanonical(ctx context.Context, topics []string, valid []article.Link, seen map[string]bool) []article.Link {
	if seen[canonicalKnowledgeHost] || len(topics) == 0 || f.excluded("https://"+canonicalKnowledgeHost+"/") {
		return valid
	}

	topic := strings.TrimSpace(topics[0])
	if topic == "" {
		return valid
	}
	slug := strings.ReplaceAll(titleCase(topic), " ", "_")
	candidate := fmt.Sprintf("https://%s/wiki/%s", canonicalKnowledgeHost, url.PathEscape(slug))

	result, err := f.checker.Check(ctx, candidate)
	if err != nil || !result.Reachable {
		return valid
	}

	if len(valid) == f.MaxLinks {
		valid = valid[:f.MaxLinks-1]
	}
	seen[canonicalKnowledgeHost] = true
	return append(valid, article.Link{URL: result.FinalURL, Title: topic, Relevance: 5})
}

func (f *Finder) excluded(rawURL string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return true
	}
	for _, d := range f.ExcludedDomains {
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

func isAuthority(rawURL string) bool {
	host := hostOf(rawURL)
	for _, hint := range authorityHints {
		if strings.HasSuffix(host, hint) {
			return true
		}
	}
	return false
}

// titleCase upper-cases the first letter of each space-separated word, the
// convention encyclopedia page titles follow.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(u.Host, "www."))
}
