package pipeline

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/draftforge/longform/internal/article"
)

// inlineMarker matches one bracketed citation reference in body text.
var inlineMarker = regexp.MustCompile(`\[(\d+)\]`)

// sanitize reconciles the artifact's inline citation markers with its
// citation list and strips generation residue. It is idempotent: running it
// on its own output changes nothing.
//
// Final numbering follows reading order across every text surface of the
// article: the first marker to appear becomes [1], the next new one [2],
// and so on. Markers pointing at citations that
// did not survive validation are removed, and citations no marker
// references are dropped, so marker set and citation list always agree.
// A draft with no inline markers at all keeps its full citation list.
func sanitize(art *article.ValidatedArtifact) {
	// The raw sources listing never ships.
	art.Article.SourcesBlock = ""

	byNumber := make(map[int]article.Citation, len(art.Citations))
	for _, c := range art.Citations {
		byNumber[c.Number] = c
	}

	// First pass establishes the final numbering.
	assigned := make(map[int]int)
	order := make([]int, 0, len(art.Citations))
	walkBody(&art.Article, func(text string) string {
		for _, m := range inlineMarker.FindAllStringSubmatch(text, -1) {
			n, _ := strconv.Atoi(m[1])
			if _, known := byNumber[n]; !known {
				continue
			}
			if _, done := assigned[n]; !done {
				assigned[n] = len(order) + 1
				order = append(order, n)
			}
		}
		return text
	})

	if len(assigned) == 0 {
		// No usable markers. Strip whatever stray markers remain and keep
		// the citation list as-is, renumbered contiguously.
		walkBody(&art.Article, func(text string) string {
			return rewriteMarkers(text, func(int) (string, bool) { return "", false })
		})
		for i := range art.Citations {
			art.Citations[i].Number = i + 1
		}
		return
	}

	// Second pass rewrites markers and removes dangling ones.
	walkBody(&art.Article, func(text string) string {
		return rewriteMarkers(text, func(n int) (string, bool) {
			if newNum, ok := assigned[n]; ok {
				return "[" + strconv.Itoa(newNum) + "]", true
			}
			return "", false
		})
	})

	kept := make([]article.Citation, 0, len(order))
	for _, n := range order {
		c := byNumber[n]
		c.Number = assigned[n]
		kept = append(kept, c)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Number < kept[j].Number })
	art.Citations = kept
}

// walkBody applies fn to every text surface that may carry inline citation
// markers, in reading order. This is the same surface set the quality
// gate's marker check scans; the two must not drift apart.
func walkBody(a *article.Article, fn func(string) string) {
	a.Headline = fn(a.Headline)
	a.Subtitle = fn(a.Subtitle)
	a.Teaser = fn(a.Teaser)
	a.DirectAnswer = fn(a.DirectAnswer)
	a.Intro = fn(a.Intro)
	for i := range a.Sections {
		a.Sections[i].Title = fn(a.Sections[i].Title)
		a.Sections[i].Body = fn(a.Sections[i].Body)
	}
	for i := range a.Takeaways {
		a.Takeaways[i] = fn(a.Takeaways[i])
	}
	for i := range a.FAQ {
		a.FAQ[i].Answer = fn(a.FAQ[i].Answer)
	}
	for i := range a.PAA {
		a.PAA[i].Answer = fn(a.PAA[i].Answer)
	}
	a.MetaTitle = fn(a.MetaTitle)
	a.MetaDescription = fn(a.MetaDescription)
}

// rewriteMarkers rewrites every inline marker in text through repl. repl
// returns the replacement and whether the marker survives; removed markers
// leave tidied whitespace behind, and a line that carried nothing but
// removed markers is dropped. Lines without markers pass through untouched.
func rewriteMarkers(text string, repl func(n int) (string, bool)) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if !inlineMarker.MatchString(line) {
			kept = append(kept, line)
			continue
		}

		out := inlineMarker.ReplaceAllStringFunc(line, func(marker string) string {
			n, _ := strconv.Atoi(strings.Trim(marker, "[]"))
			if s, ok := repl(n); ok {
				return s
			}
			return ""
		})
		out = strings.TrimRight(spaceBeforePunct.ReplaceAllString(out, "$1"), " \t")
		out = doubleSpace.ReplaceAllString(out, " ")

		if strings.Trim(out, " \t.,;:()") == "" {
			// The line carried nothing but markers.
			continue
		}
		kept = append(kept, out)
	}
	return strings.Join(kept, "\n")
}

var (
	spaceBeforePunct = regexp.MustCompile(`\s+([.,;:])`)
	doubleSpace      = regexp.MustCompile(`  +`)
)
