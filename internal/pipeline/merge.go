package pipeline

import (
	"strings"

	"github.com/draftforge/longform/internal/article"
)

// merge folds every branch output into one ValidatedArtifact. It reads the
// branch map by name, so the order branches finished in never affects the
// result. Missing or failed branch payloads collapse to safe defaults: the
// artifact is always structurally complete.
func merge(ec *Context) *article.ValidatedArtifact {
	a := ec.Article
	normalizeTakeaways(&a)

	out := &article.ValidatedArtifact{
		JobID:   ec.Spec.ID,
		Article: a,
	}

	if br, ok := ec.Branches[BranchCitations]; ok && br.Status == StatusSuccess {
		out.Citations = br.Payload.Citations
	}
	if br, ok := ec.Branches[BranchLinks]; ok {
		out.Links = br.Payload.Links
	}

	if br, ok := ec.Branches[BranchNavigation]; ok && len(br.Payload.Nav) > 0 {
		out.Nav = br.Payload.Nav
	} else {
		out.Nav = defaultNav(&a)
	}

	if br, ok := ec.Branches[BranchMetadata]; ok && br.Payload.Meta != nil {
		out.Meta = *br.Payload.Meta
	} else {
		out.Meta = article.Metadata{
			MetaTitle:       a.MetaTitle,
			MetaDescription: a.MetaDescription,
			Slug:            slugify(a.Headline),
		}
	}

	if br, ok := ec.Branches[BranchFAQ]; ok && br.Status == StatusSuccess {
		out.Article.FAQ = br.Payload.FAQ
		out.Article.PAA = br.Payload.PAA
		out.FAQ = br.Payload.FAQ
		out.PAA = br.Payload.PAA
	} else {
		out.FAQ = a.FAQ
		out.PAA = a.PAA
	}

	if br, ok := ec.Branches[BranchImage]; ok && br.Status == StatusSuccess && br.Payload.Image != nil {
		out.Image = *br.Payload.Image
	}

	sanitize(out)
	return out
}

// defaultNav derives table-of-contents entries directly from section
// titles. Used when the navigation branch produced nothing.
func defaultNav(a *article.Article) []article.NavLabel {
	sections := a.ActiveSections()
	nav := make([]article.NavLabel, 0, len(sections))
	for _, s := range sections {
		nav = append(nav, article.NavLabel{Anchor: slugify(s.Title), Label: s.Title})
	}
	return nav
}

// takeawayPrefix marks inline takeaway lines some drafts embed in section
// bodies instead of filling the takeaways list.
const takeawayPrefix = "key takeaway:"

// normalizeTakeaways reconciles the takeaways list with the body text.
// Takeaway lines embedded in section bodies or the intro are moved into the
// list (or dropped if already there), so no takeaway appears twice in the
// artifact.
func normalizeTakeaways(a *article.Article) {
	present := make(map[string]bool, len(a.Takeaways))
	for _, t := range a.Takeaways {
		present[normKey(t)] = true
	}

	harvest := func(text string) string {
		var kept []string
		for _, line := range strings.Split(text, "\n") {
			trimmed := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*• "))
			lower := strings.ToLower(trimmed)

			if strings.HasPrefix(lower, takeawayPrefix) {
				t := strings.TrimSpace(trimmed[len(takeawayPrefix):])
				if t != "" && !present[normKey(t)] {
					present[normKey(t)] = true
					a.Takeaways = append(a.Takeaways, t)
				}
				continue
			}
			if trimmed != "" && present[normKey(trimmed)] {
				// Verbatim duplicate of a listed takeaway.
				continue
			}
			kept = append(kept, line)
		}
		return strings.TrimSpace(strings.Join(kept, "\n"))
	}

	a.Intro = harvest(a.Intro)
	for i := range a.Sections {
		a.Sections[i].Body = harvest(a.Sections[i].Body)
	}
}

func normKey(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimRight(s, ".")))
}
