// Package citations parses the generated sources block and repairs every
// reference through a bounded search-and-validate loop. The loop shares one
// iteration budget across all citations and always terminates in a state
// where no citation points at a dead anchor.
package citations

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Status is the validation state of one citation.
type Status string

const (
	// StatusUnvalidated is the initial state after parsing.
	StatusUnvalidated Status = "unvalidated"

	// StatusChecking marks a citation whose raw URL probe is in flight.
	StatusChecking Status = "checking"

	// StatusValid means the citation's current URL answered the probe.
	StatusValid Status = "valid"

	// StatusInvalid means the raw URL failed and no alternative has been
	// accepted yet.
	StatusInvalid Status = "invalid"

	// StatusSearching marks a citation inside a search-for-alternative
	// round.
	StatusSearching Status = "searching"

	// StatusFallbackAssigned means the budget ran out and the citation
	// received the safe default reference.
	StatusFallbackAssigned Status = "fallback_assigned"
)

// Citation is one source reference tracked through validation. Mutated only
// inside the validation loop; frozen once the branch hands it to merge.
type Citation struct {
	Index int

	// Source is the bracket number the generation output used for this
	// citation. Inline markers in the article body reference it; the
	// sanitation pass maps them to the final Index.
	Source int

	RawURL string
	URL    string
	Title  string
	Status Status

	// Candidates are alternative URLs proposed by search rounds, kept for
	// diagnostics.
	Candidates []string
}

// Resolved reports whether the citation reached a terminal state.
func (c *Citation) Resolved() bool {
	return c.Status == StatusValid || c.Status == StatusFallbackAssigned
}

// sourceLine matches "[n]: URL – Title" with en/em-dash or plain space
// separators. URLs may themselves contain dashes, so the separator must be
// surrounded by whitespace.
var sourceLine = regexp.MustCompile(`^\[(\d+)\]:\s*(https?://\S+?)(?:\s+[–—-]\s+|\s+)(.+)$`)

// bareLine matches "[n]: free text" lines where the URL sits somewhere in
// the text.
var (
	bareLine = regexp.MustCompile(`^\[(\d+)\]:\s*(.+)$`)
	inlineURL = regexp.MustCompile(`https?://[^\s–—\)\]\}]+`)
)

// ParseSources extracts citations from a raw sources block, one per line.
// Unparseable lines are skipped; surviving citations are renumbered
// contiguously from 1 in order of appearance.
func ParseSources(block string) []*Citation {
	var out []*Citation

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := sourceLine.FindStringSubmatch(line); m != nil {
			idx, _ := strconv.Atoi(m[1])
			out = append(out, &Citation{
				Index:  idx,
				Source: idx,
				RawURL: strings.TrimRight(m[2], ".,;:!?)"),
				Title:  strings.TrimSpace(m[3]),
				Status: StatusUnvalidated,
			})
			continue
		}

		m := bareLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		url := inlineURL.FindString(m[2])
		if url == "" || strings.HasPrefix(url, "/") {
			continue
		}
		url = strings.TrimRight(url, ".,;:!?)")
		title := strings.TrimSpace(inlineURL.ReplaceAllString(m[2], ""))
		title = strings.Trim(title, " –—-")
		if title == "" {
			title = url
		}
		idx, _ := strconv.Atoi(m[1])
		out = append(out, &Citation{
			Index:  idx,
			Source: idx,
			RawURL: url,
			Title:  title,
			Status: StatusUnvalidated,
		})
	}

	renumber(out)
	return out
}

// renumber assigns contiguous indices from 1 in slice order.
func renumber(list []*Citation) {
	for i, c := range list {
		c.Index = i + 1
	}
}

func (c *Citation) String() string {
	return fmt.Sprintf("[%d] %s (%s)", c.Index, c.URL, c.Status)
}
