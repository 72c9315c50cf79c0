package webtool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Compile-time interface check.
var _ SearchService = (*HTTPSearch)(nil)

const defaultSearchTimeout = 15 * time.Second

// HTTPSearch implements SearchService against a JSON search API: a POST of
// {"q": query} to the configured endpoint, results read from the "organic"
// array of the response.
type HTTPSearch struct {
	http     *http.Client
	endpoint string
	apiKey   string
}

// SearchOption configures an HTTPSearch.
type SearchOption func(*HTTPSearch)

// WithSearchTimeout sets the HTTP client timeout.
func WithSearchTimeout(d time.Duration) SearchOption {
	return func(s *HTTPSearch) {
		s.http.Timeout = d
	}
}

// WithSearchHTTPClient replaces the underlying *http.Client entirely.
func WithSearchHTTPClient(hc *http.Client) SearchOption {
	return func(s *HTTPSearch) {
		s.http = hc
	}
}

// NewHTTPSearch creates a search client for the given endpoint. The API key
// is sent in the X-API-KEY header; pass "" for keyless endpoints.
func NewHTTPSearch(endpoint, apiKey string, opts ...SearchOption) *HTTPSearch {
	s := &HTTPSearch{
		http:     &http.Client{Timeout: defaultSearchTimeout},
		endpoint: endpoint,
		apiKey:   apiKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type searchRequest struct {
	Query string `json:"q"`
}

type searchResponse struct {
	Organic []struct {
		Link    string `json:"link"`
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Search runs the query and returns results in rank order.
func (s *HTTPSearch) Search(ctx context.Context, query string) ([]SearchResult, error) {
	body, err := json.Marshal(searchRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("webtool: marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("webtool: build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("X-API-KEY", s.apiKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webtool: search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("webtool: search returned HTTP %d: %s", resp.StatusCode, string(data))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("webtool: decode search response: %w", err)
	}

	results := make([]SearchResult, 0, len(parsed.Organic))
	for _, hit := range parsed.Organic {
		if hit.Link == "" {
			continue
		}
		results = append(results, SearchResult{
			URL:     hit.Link,
			Title:   hit.Title,
			Snippet: hit.Snippet,
		})
	}
	return results, nil
}
