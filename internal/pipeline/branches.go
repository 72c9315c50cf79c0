package pipeline

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/draftforge/longform/internal/article"
	"github.com/draftforge/longform/internal/citations"
	"github.com/draftforge/longform/internal/genai"
	"github.com/draftforge/longform/internal/links"
)

// Branch names, used as keys in the context's branch map.
const (
	BranchCitations  = "citations"
	BranchLinks      = "links"
	BranchNavigation = "navigation"
	BranchMetadata   = "metadata"
	BranchFAQ        = "faq"
	BranchImage      = "image"
)

// branchSet assembles the parallel branch descriptors for one run. The
// citations and image branches are the only optional ones: they may end
// skipped or failed and the merge still proceeds.
func (p *Pipeline) branchSet() []branchDescriptor {
	return []branchDescriptor{
		{
			name:     BranchCitations,
			optional: true,
			skip: func(snap Snapshot) bool {
				return snap.Spec.DisableCitations ||
					strings.TrimSpace(snap.Article.SourcesBlock) == ""
			},
			run: p.runCitations,
		},
		{
			name: BranchLinks,
			run:  p.runLinks,
		},
		{
			name: BranchNavigation,
			run:  p.runNavigation,
		},
		{
			name: BranchMetadata,
			run:  p.runMetadata,
		},
		{
			name: BranchFAQ,
			run:  p.runFAQ,
		},
		{
			name:     BranchImage,
			optional: true,
			skip: func(snap Snapshot) bool {
				return snap.Spec.DisableImage || p.images == nil
			},
			run: p.runImage,
		},
	}
}

// runCitations parses the sources block and drives the validation loop.
func (p *Pipeline) runCitations(ctx context.Context, snap Snapshot) (BranchPayload, error) {
	parsed := citations.ParseSources(snap.Article.SourcesBlock)
	if len(parsed) == 0 {
		return BranchPayload{}, errors.New("pipeline: sources block yielded no citations")
	}

	v := citations.NewValidator(p.checker, p.search, p.log)
	v.Budget = p.cfg.CitationBudget
	v.FallbackURL = snap.Spec.SubjectURL
	v.ExcludedDomains = snap.Spec.ExcludedDomains

	resolved := v.ValidateAll(ctx, parsed)

	// Number carries the source bracket number the draft's inline markers
	// reference; the sanitation pass assigns the final contiguous numbers.
	out := make([]article.Citation, 0, len(resolved))
	for _, c := range resolved {
		out = append(out, article.Citation{
			Number: c.Source,
			URL:    c.URL,
			Title:  c.Title,
		})
	}
	return BranchPayload{Citations: out}, nil
}

// runLinks discovers the related-reading set. The finder itself never
// fails; an empty result is a degraded outcome the merge tolerates.
func (p *Pipeline) runLinks(ctx context.Context, snap Snapshot) (BranchPayload, error) {
	f := links.NewFinder(p.search, p.checker, p.log)
	f.ExcludedDomains = snap.Spec.ExcludedDomains
	if p.cfg.LinkCandidates > 0 {
		f.CandidateCount = p.cfg.LinkCandidates
	}

	topics := []string{snap.Spec.Topic}
	for _, s := range snap.Article.ActiveSections() {
		topics = append(topics, s.Title)
	}

	found := f.Find(ctx, topics)
	return BranchPayload{Links: found}, nil
}

// runNavigation derives table-of-contents labels from section titles.
func (p *Pipeline) runNavigation(_ context.Context, snap Snapshot) (BranchPayload, error) {
	sections := snap.Article.ActiveSections()
	if len(sections) == 0 {
		return BranchPayload{}, errors.New("pipeline: no sections to build navigation from")
	}

	nav := make([]article.NavLabel, 0, len(sections))
	for _, s := range sections {
		nav = append(nav, article.NavLabel{
			Anchor: slugify(s.Title),
			Label:  shortenLabel(s.Title, 40),
		})
	}
	return BranchPayload{Nav: nav}, nil
}

// runMetadata normalizes publication metadata within search-result limits.
func (p *Pipeline) runMetadata(_ context.Context, snap Snapshot) (BranchPayload, error) {
	a := snap.Article

	title := strings.TrimSpace(a.MetaTitle)
	if title == "" {
		title = a.Headline
	}
	title = shortenLabel(title, 60)

	desc := strings.TrimSpace(a.MetaDescription)
	if desc == "" {
		desc = a.Teaser
	}
	desc = shortenLabel(desc, 160)

	slug := slugify(a.Headline)
	if slug == "" {
		slug = slugify(snap.Spec.Topic)
	}

	return BranchPayload{Meta: &article.Metadata{
		MetaTitle:       title,
		MetaDescription: desc,
		Slug:            slug,
	}}, nil
}

// runFAQ filters the generated question pools: empty pairs and questions
// duplicated between FAQ and PAA are dropped, keeping the FAQ copy.
func (p *Pipeline) runFAQ(_ context.Context, snap Snapshot) (BranchPayload, error) {
	seen := make(map[string]bool)

	// Answers past this length read like sections, not answers.
	const maxAnswerWords = 120

	keep := func(pool []article.QA) []article.QA {
		out := make([]article.QA, 0, len(pool))
		for _, qa := range pool {
			q := strings.ToLower(strings.TrimSpace(qa.Question))
			if q == "" || strings.TrimSpace(qa.Answer) == "" || seen[q] {
				continue
			}
			if len(strings.Fields(qa.Answer)) > maxAnswerWords {
				continue
			}
			seen[q] = true
			out = append(out, qa)
		}
		return out
	}

	faq := keep(snap.Article.FAQ)
	paa := keep(snap.Article.PAA)

	if len(faq) == 0 && len(paa) == 0 {
		return BranchPayload{}, errors.New("pipeline: no usable question pairs")
	}
	return BranchPayload{FAQ: faq, PAA: paa}, nil
}

// runImage asks the image service for one illustration.
func (p *Pipeline) runImage(ctx context.Context, snap Snapshot) (BranchPayload, error) {
	imgPrompt := fmt.Sprintf(
		"Editorial header illustration for an article titled %q. Clean, professional, no embedded text.",
		snap.Article.Headline,
	)

	ref, err := p.images.Create(ctx, imgPrompt)
	if err != nil {
		if errors.Is(err, genai.ErrNoImageService) {
			return BranchPayload{}, err
		}
		return BranchPayload{}, fmt.Errorf("pipeline: create image: %w", err)
	}

	alt := ref.AltText
	if alt == "" {
		alt = "Illustration for " + snap.Article.Headline
	}
	return BranchPayload{Image: &article.ImageRef{URL: ref.URL, AltText: alt}}, nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// slugify lowercases text and collapses runs of non-alphanumerics to single
// hyphens.
func slugify(text string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(text), "-")
	return strings.Trim(s, "-")
}

// shortenLabel truncates text to max runes on a word boundary where
// possible, appending an ellipsis when something was cut.
func shortenLabel(text string, max int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	cut := string(runes[:max-1])
	if i := strings.LastIndex(cut, " "); i > max/2 {
		cut = cut[:i]
	}
	return cut + "…"
}
