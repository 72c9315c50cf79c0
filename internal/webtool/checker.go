package webtool

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Compile-time interface check.
var _ ReachabilityChecker = (*HTTPChecker)(nil)

const (
	defaultCheckTimeout = 8 * time.Second
	maxRedirects        = 3

	// Successful probes are cached longer than failures so that a flaky
	// URL gets another chance sooner.
	okCacheTTL     = 3 * time.Minute
	failedCacheTTL = time.Minute
)

// errorPagePaths are URL path fragments that indicate a soft 404: the server
// answered 200 but redirected to a not-found page.
var errorPagePaths = []string{
	"/notfound",
	"/not-found",
	"/404",
	"/error",
	"/page-not-found",
	"notfound.aspx",
}

type cachedCheck struct {
	result CheckResult
	at     time.Time
}

// HTTPChecker probes URLs with HEAD requests, falling back to GET when the
// server rejects HEAD. Results are cached briefly so that the citation and
// link branches do not re-probe the same URL.
type HTTPChecker struct {
	http *http.Client

	mu    sync.Mutex
	cache map[string]cachedCheck
}

// CheckerOption configures an HTTPChecker.
type CheckerOption func(*HTTPChecker)

// WithCheckTimeout sets the per-probe timeout.
func WithCheckTimeout(d time.Duration) CheckerOption {
	return func(c *HTTPChecker) {
		c.http.Timeout = d
	}
}

// WithCheckHTTPClient replaces the underlying *http.Client entirely.
func WithCheckHTTPClient(hc *http.Client) CheckerOption {
	return func(c *HTTPChecker) {
		c.http = hc
	}
}

// NewHTTPChecker creates a reachability checker with a bounded redirect
// policy and an internal result cache.
func NewHTTPChecker(opts ...CheckerOption) *HTTPChecker {
	c := &HTTPChecker{
		http: &http.Client{
			Timeout: defaultCheckTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		cache: make(map[string]cachedCheck),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check probes url. A transport failure is reported as unreachable with a
// nil error: from the caller's point of view an unreachable URL is a normal
// outcome, not a fault.
func (c *HTTPChecker) Check(ctx context.Context, url string) (CheckResult, error) {
	if cached, ok := c.lookup(url); ok {
		return cached, nil
	}

	result := c.probe(ctx, url, http.MethodHead)

	// Some servers refuse HEAD outright; retry those with GET.
	if !result.Reachable && (result.StatusCode == http.StatusMethodNotAllowed || result.StatusCode == http.StatusForbidden) {
		result = c.probe(ctx, url, http.MethodGet)
	}

	c.store(url, result)
	return result, nil
}

func (c *HTTPChecker) probe(ctx context.Context, url, method string) CheckResult {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return CheckResult{FinalURL: url}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return CheckResult{FinalURL: url}
	}
	defer resp.Body.Close()

	final := url
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}

	reachable := resp.StatusCode >= 200 && resp.StatusCode < 300 && !isErrorPageURL(final)
	return CheckResult{
		Reachable:  reachable,
		StatusCode: resp.StatusCode,
		FinalURL:   final,
	}
}

func (c *HTTPChecker) lookup(url string) (CheckResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache[url]
	if !ok {
		return CheckResult{}, false
	}
	ttl := failedCacheTTL
	if entry.result.Reachable {
		ttl = okCacheTTL
	}
	if time.Since(entry.at) > ttl {
		delete(c.cache, url)
		return CheckResult{}, false
	}
	return entry.result, true
}

func (c *HTTPChecker) store(url string, result CheckResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[url] = cachedCheck{result: result, at: time.Now()}
}

// isErrorPageURL reports whether a URL path looks like a not-found page.
func isErrorPageURL(url string) bool {
	lower := strings.ToLower(url)
	for _, p := range errorPagePaths {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
