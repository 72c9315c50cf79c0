// Package extract turns raw generation output into the structured article
// record. The generation service is asked for JSON but routinely wraps it in
// markdown fences or prose; extraction is tolerant of that, strict about the
// required fields.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/draftforge/longform/internal/article"
)

// IncompleteError reports a parseable record that is missing required
// content. Repeated incompleteness signals a structural problem with the
// generated draft, not a transient fault.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("extract: record incomplete, missing %s", strings.Join(e.Missing, ", "))
}

// Service extracts structured article records from raw text.
type Service interface {
	Extract(rawText string) (article.Article, error)
}

// Compile-time interface check.
var _ Service = (*JSONExtractor)(nil)

// JSONExtractor is the default extraction implementation: locate the JSON
// object in the raw text, unmarshal it, apply defaults, then verify
// completeness.
type JSONExtractor struct{}

// NewJSONExtractor creates a JSONExtractor.
func NewJSONExtractor() *JSONExtractor {
	return &JSONExtractor{}
}

// rawRecord mirrors the requested generation schema. Sections may arrive as
// a list or as numbered fields; only the list form is requested, but some
// models flatten anyway, so both are accepted.
type rawRecord struct {
	Headline     string `json:"headline"`
	Subtitle     string `json:"subtitle"`
	Teaser       string `json:"teaser"`
	DirectAnswer string `json:"direct_answer"`
	Intro        string `json:"intro"`

	Sections []article.Section `json:"sections"`

	Takeaways []string     `json:"takeaways"`
	FAQ       []article.QA `json:"faq"`
	PAA       []article.QA `json:"paa"`

	MetaTitle       string `json:"meta_title"`
	MetaDescription string `json:"meta_description"`
	SourcesBlock    string `json:"sources_block"`
}

// Extract parses rawText into an Article. It returns an IncompleteError
// when required fields are empty, and a plain error when no JSON object can
// be decoded at all.
func (x *JSONExtractor) Extract(rawText string) (article.Article, error) {
	payload, err := locateJSON(rawText)
	if err != nil {
		return article.Article{}, err
	}

	var raw rawRecord
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return article.Article{}, fmt.Errorf("extract: decode record: %w", err)
	}

	a := article.Article{
		Headline:        strings.TrimSpace(raw.Headline),
		Subtitle:        strings.TrimSpace(raw.Subtitle),
		Teaser:          strings.TrimSpace(raw.Teaser),
		DirectAnswer:    strings.TrimSpace(raw.DirectAnswer),
		Intro:           strings.TrimSpace(raw.Intro),
		Takeaways:       compact(raw.Takeaways),
		FAQ:             compactQA(raw.FAQ),
		PAA:             compactQA(raw.PAA),
		MetaTitle:       strings.TrimSpace(raw.MetaTitle),
		MetaDescription: strings.TrimSpace(raw.MetaDescription),
		SourcesBlock:    strings.TrimSpace(raw.SourcesBlock),
	}
	for _, s := range raw.Sections {
		if len(a.Sections) == article.MaxSections {
			break
		}
		if strings.TrimSpace(s.Body) == "" {
			continue
		}
		a.Sections = append(a.Sections, article.Section{
			Title: strings.TrimSpace(s.Title),
			Body:  strings.TrimSpace(s.Body),
		})
	}

	// Defaults for soft fields before the completeness check.
	if a.MetaTitle == "" {
		a.MetaTitle = a.Headline
	}
	if a.MetaDescription == "" {
		a.MetaDescription = a.Teaser
	}

	if missing := missingFields(a); len(missing) > 0 {
		return article.Article{}, &IncompleteError{Missing: missing}
	}
	return a, nil
}

// missingFields lists empty required fields.
func missingFields(a article.Article) []string {
	var missing []string
	if a.Headline == "" {
		missing = append(missing, "headline")
	}
	if a.Teaser == "" {
		missing = append(missing, "teaser")
	}
	if a.DirectAnswer == "" {
		missing = append(missing, "direct_answer")
	}
	if a.Intro == "" {
		missing = append(missing, "intro")
	}
	if len(a.Sections) == 0 {
		missing = append(missing, "sections")
	}
	return missing
}

// locateJSON returns the outermost JSON object embedded in text.
func locateJSON(text string) (string, error) {
	text = strings.TrimSpace(text)

	// Strip a markdown fence when the whole payload is fenced.
	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("extract: no JSON object found in %d chars of output", len(text))
	}
	return text[start : end+1], nil
}

func compact(in []string) []string {
	out := in[:0:0]
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func compactQA(in []article.QA) []article.QA {
	out := in[:0:0]
	for _, qa := range in {
		q, a := strings.TrimSpace(qa.Question), strings.TrimSpace(qa.Answer)
		if q == "" || a == "" {
			continue
		}
		out = append(out, article.QA{Question: q, Answer: a})
	}
	return out
}
