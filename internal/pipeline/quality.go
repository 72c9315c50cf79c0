package pipeline

import (
	"fmt"
	"strings"

	"github.com/draftforge/longform/internal/article"
)

// Quality gate issue categories. Each category is penalized once per
// report: critical categories cost 20 points, advisory categories 5.
const (
	IssueMissingField     = "missing_field"
	IssueDuplicateSection = "duplicate_section"
	IssueExcludedName     = "excluded_name"
	IssueExcludedDomain   = "excluded_domain"
	IssueDanglingMarker   = "dangling_marker"
	IssueUnbalancedMarkup = "unbalanced_markup"

	IssueMetaLength    = "meta_length"
	IssueWordCount     = "word_count"
	IssueTakeaways     = "takeaways"
	IssueThinLinks     = "thin_links"
	IssueMissingFAQ    = "missing_faq"
	IssueMissingImage  = "missing_image"
	IssueLongParagraph = "long_paragraph"
	IssueTermDensity   = "term_density"
)

const (
	criticalPenalty = 20
	advisoryPenalty = 5
)

// inspect runs every quality check against the merged artifact. Critical
// findings block publication; advisory findings only lower the score.
func (p *Pipeline) inspect(spec article.JobSpec, art *article.ValidatedArtifact) *article.QualityReport {
	r := &article.QualityReport{}

	checkRequiredFields(r, &art.Article)
	checkDuplicateSections(r, &art.Article)
	checkExcludedNames(r, spec, art)
	checkExcludedDomains(r, spec, art)
	checkMarkers(r, art)
	checkMarkup(r, &art.Article)

	checkMeta(r, art.Meta)
	checkWordCount(r, spec, &art.Article)
	checkTakeaways(r, &art.Article)
	checkParagraphs(r, &art.Article)
	checkTermDensity(r, spec, art)
	p.checkLinks(r, art)
	checkFAQ(r, art)
	if !spec.DisableImage {
		checkImage(r, art)
	}

	r.Score = score(r)
	return r
}

// score is 100 minus one penalty per distinct category, floored at zero.
func score(r *article.QualityReport) int {
	s := 100
	s -= criticalPenalty * len(categories(r.Critical))
	s -= advisoryPenalty * len(categories(r.Advisory))
	if s < 0 {
		s = 0
	}
	return s
}

func categories(issues []article.Issue) map[string]bool {
	out := make(map[string]bool, len(issues))
	for _, is := range issues {
		out[is.Category] = true
	}
	return out
}

func checkRequiredFields(r *article.QualityReport, a *article.Article) {
	required := []struct {
		name  string
		value string
	}{
		{"headline", a.Headline},
		{"teaser", a.Teaser},
		{"direct answer", a.DirectAnswer},
		{"intro", a.Intro},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			r.Critical = append(r.Critical, article.Issue{
				Category: IssueMissingField,
				Message:  "required field is empty: " + f.name,
			})
		}
	}
	if len(a.ActiveSections()) == 0 {
		r.Critical = append(r.Critical, article.Issue{
			Category: IssueMissingField,
			Message:  "article has no body sections",
		})
	}
}

func checkDuplicateSections(r *article.QualityReport, a *article.Article) {
	titles := make(map[string]bool)
	bodies := make(map[string]bool)
	for _, s := range a.ActiveSections() {
		title := strings.ToLower(strings.TrimSpace(s.Title))
		if title != "" {
			if titles[title] {
				r.Critical = append(r.Critical, article.Issue{
					Category: IssueDuplicateSection,
					Message:  fmt.Sprintf("duplicate section title %q", s.Title),
				})
			}
			titles[title] = true
		}

		body := strings.ToLower(strings.TrimSpace(s.Body))
		if bodies[body] {
			r.Critical = append(r.Critical, article.Issue{
				Category: IssueDuplicateSection,
				Message:  fmt.Sprintf("section %q repeats another section's body", s.Title),
			})
		}
		bodies[body] = true
	}
}

// markupTags are the inline HTML tags generation output may carry. Each
// must open and close the same number of times.
var markupTags = []string{"strong", "em", "ul", "li", "p"}

func checkMarkup(r *article.QualityReport, a *article.Article) {
	texts := []string{a.Intro, a.DirectAnswer}
	for _, s := range a.Sections {
		texts = append(texts, s.Body)
	}
	body := strings.ToLower(strings.Join(texts, "\n"))

	for _, tag := range markupTags {
		open := strings.Count(body, "<"+tag+">")
		closed := strings.Count(body, "</"+tag+">")
		if open != closed {
			r.Critical = append(r.Critical, article.Issue{
				Category: IssueUnbalancedMarkup,
				Message:  fmt.Sprintf("<%s> opened %d times, closed %d", tag, open, closed),
			})
		}
	}
}

// checkExcludedNames scans every text surface for excluded entity mentions.
func checkExcludedNames(r *article.QualityReport, spec article.JobSpec, art *article.ValidatedArtifact) {
	if len(spec.ExcludedNames) == 0 {
		return
	}
	corpus := strings.ToLower(collectText(art))
	for _, name := range spec.ExcludedNames {
		n := strings.ToLower(strings.TrimSpace(name))
		if n == "" {
			continue
		}
		if strings.Contains(corpus, n) {
			r.Critical = append(r.Critical, article.Issue{
				Category: IssueExcludedName,
				Message:  fmt.Sprintf("excluded name %q appears in the article", name),
			})
		}
	}
}

func checkExcludedDomains(r *article.QualityReport, spec article.JobSpec, art *article.ValidatedArtifact) {
	flag := func(kind, rawURL string) {
		for _, d := range spec.ExcludedDomains {
			d = strings.ToLower(strings.TrimSpace(d))
			if d == "" {
				continue
			}
			if strings.Contains(strings.ToLower(rawURL), d) {
				r.Critical = append(r.Critical, article.Issue{
					Category: IssueExcludedDomain,
					Message:  fmt.Sprintf("%s points at excluded domain %s: %s", kind, d, rawURL),
				})
			}
		}
	}
	for _, c := range art.Citations {
		flag("citation", c.URL)
	}
	for _, l := range art.Links {
		flag("link", l.URL)
	}
}

// checkMarkers verifies every surviving inline marker resolves to a
// citation entry. Sanitation guarantees this; a violation here means the
// merge itself misbehaved.
func checkMarkers(r *article.QualityReport, art *article.ValidatedArtifact) {
	known := make(map[string]bool, len(art.Citations))
	for _, c := range art.Citations {
		known[fmt.Sprintf("[%d]", c.Number)] = true
	}
	for _, m := range inlineMarker.FindAllString(collectText(art), -1) {
		if !known[m] {
			r.Critical = append(r.Critical, article.Issue{
				Category: IssueDanglingMarker,
				Message:  "inline marker " + m + " has no citation entry",
			})
		}
	}
}

func checkMeta(r *article.QualityReport, meta article.Metadata) {
	if n := len([]rune(meta.MetaTitle)); n > 60 {
		r.Advisory = append(r.Advisory, article.Issue{
			Category: IssueMetaLength,
			Message:  fmt.Sprintf("meta title is %d characters, limit 60", n),
		})
	}
	if n := len([]rune(meta.MetaDescription)); n > 0 && (n < 100 || n > 160) {
		r.Advisory = append(r.Advisory, article.Issue{
			Category: IssueMetaLength,
			Message:  fmt.Sprintf("meta description is %d characters, want 100-160", n),
		})
	}
}

func checkWordCount(r *article.QualityReport, spec article.JobSpec, a *article.Article) {
	if spec.WordCount <= 0 {
		return
	}
	got := a.WordCount()
	low := spec.WordCount * 70 / 100
	if got < low {
		r.Advisory = append(r.Advisory, article.Issue{
			Category: IssueWordCount,
			Message:  fmt.Sprintf("article is %d words, target %d", got, spec.WordCount),
		})
	}
}

func checkTakeaways(r *article.QualityReport, a *article.Article) {
	if len(a.Takeaways) < 3 {
		r.Advisory = append(r.Advisory, article.Issue{
			Category: IssueTakeaways,
			Message:  fmt.Sprintf("only %d key takeaways, want at least 3", len(a.Takeaways)),
		})
	}
}

// maxParagraphWords is the advisory ceiling for one paragraph.
const maxParagraphWords = 150

func checkParagraphs(r *article.QualityReport, a *article.Article) {
	for _, s := range a.ActiveSections() {
		for _, para := range strings.Split(s.Body, "\n") {
			if n := len(strings.Fields(para)); n > maxParagraphWords {
				r.Advisory = append(r.Advisory, article.Issue{
					Category: IssueLongParagraph,
					Message:  fmt.Sprintf("paragraph of %d words in section %q, want at most %d", n, s.Title, maxParagraphWords),
				})
			}
		}
	}
}

// checkTermDensity verifies the topic phrase actually appears in the
// article.
func checkTermDensity(r *article.QualityReport, spec article.JobSpec, art *article.ValidatedArtifact) {
	topic := strings.ToLower(strings.TrimSpace(spec.Topic))
	if topic == "" {
		return
	}
	if !strings.Contains(strings.ToLower(collectText(art)), topic) {
		r.Advisory = append(r.Advisory, article.Issue{
			Category: IssueTermDensity,
			Message:  fmt.Sprintf("topic %q never appears in the article", spec.Topic),
		})
	}
}

func (p *Pipeline) checkLinks(r *article.QualityReport, art *article.ValidatedArtifact) {
	min := p.cfg.MinLinks
	if min <= 0 {
		min = 3
	}
	if len(art.Links) < min {
		r.Advisory = append(r.Advisory, article.Issue{
			Category: IssueThinLinks,
			Message:  fmt.Sprintf("only %d related links, want at least %d", len(art.Links), min),
		})
	}
}

func checkFAQ(r *article.QualityReport, art *article.ValidatedArtifact) {
	if len(art.FAQ) == 0 {
		r.Advisory = append(r.Advisory, article.Issue{
			Category: IssueMissingFAQ,
			Message:  "article carries no FAQ entries",
		})
	}
}

func checkImage(r *article.QualityReport, art *article.ValidatedArtifact) {
	if art.Image.URL == "" {
		r.Advisory = append(r.Advisory, article.Issue{
			Category: IssueMissingImage,
			Message:  "no header image was produced",
		})
	}
}

// collectText concatenates every user-visible text surface of the artifact.
func collectText(art *article.ValidatedArtifact) string {
	var sb strings.Builder
	a := &art.Article
	for _, s := range []string{a.Headline, a.Subtitle, a.Teaser, a.DirectAnswer, a.Intro, a.MetaTitle, a.MetaDescription} {
		sb.WriteString(s)
		sb.WriteByte('\n')
	}
	for _, s := range a.Sections {
		sb.WriteString(s.Title)
		sb.WriteByte('\n')
		sb.WriteString(s.Body)
		sb.WriteByte('\n')
	}
	for _, t := range a.Takeaways {
		sb.WriteString(t)
		sb.WriteByte('\n')
	}
	for _, pool := range [][]article.QA{art.FAQ, art.PAA} {
		for _, qa := range pool {
			sb.WriteString(qa.Question)
			sb.WriteByte('\n')
			sb.WriteString(qa.Answer)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
