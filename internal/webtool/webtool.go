// Package webtool provides the narrow web-facing collaborator interfaces the
// pipeline consumes: a lightweight URL reachability probe and a search
// service, plus their HTTP implementations.
package webtool

import "context"

// CheckResult is the outcome of a reachability probe.
type CheckResult struct {
	// Reachable is true only for a 2xx response that does not resolve to
	// an error page.
	Reachable bool

	// StatusCode is the final HTTP status observed, 0 on transport error.
	StatusCode int

	// FinalURL is the URL after redirects. Equals the input URL when no
	// redirect occurred or the probe failed before a response.
	FinalURL string
}

// ReachabilityChecker probes whether a reference exists without fetching its
// full content.
type ReachabilityChecker interface {
	Check(ctx context.Context, url string) (CheckResult, error)
}

// SearchResult is one hit returned by a SearchService.
type SearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet,omitempty"`
}

// SearchService runs a web search and returns ranked results.
type SearchService interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}
