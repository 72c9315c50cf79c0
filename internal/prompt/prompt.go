// Package prompt composes the generation prompt from a job specification.
// Subject context is trimmed to a token budget so that oversized inputs
// never push the request past the model's context window.
package prompt

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/draftforge/longform/internal/article"
)

// DefaultContextTokenBudget bounds the subject-context portion of the
// prompt. The instruction scaffolding is small and fixed; the free-form
// context is the only part that can grow without bound.
const DefaultContextTokenBudget = 4096

// Builder composes article prompts.
type Builder struct {
	encoding      *tiktoken.Tiktoken
	contextBudget int
}

// NewBuilder creates a Builder using the cl100k_base encoding.
func NewBuilder() (*Builder, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("prompt: get tiktoken encoding: %w", err)
	}
	return &Builder{encoding: encoding, contextBudget: DefaultContextTokenBudget}, nil
}

// WithContextBudget overrides the subject-context token budget.
func (b *Builder) WithContextBudget(tokens int) *Builder {
	if tokens > 0 {
		b.contextBudget = tokens
	}
	return b
}

// CountTokens returns the token count of text under the builder's encoding.
func (b *Builder) CountTokens(text string) int {
	return len(b.encoding.Encode(text, nil, nil))
}

// Build composes the generation prompt for spec.
func (b *Builder) Build(spec article.JobSpec) (string, error) {
	if strings.TrimSpace(spec.Topic) == "" {
		return "", fmt.Errorf("prompt: job topic is required")
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "Write a comprehensive, well-researched article about %q.\n\n", spec.Topic)
	fmt.Fprintf(&sb, "Language: %s. Target length: about %d words.\n\n", spec.Language, spec.WordCount)

	if spec.SubjectName != "" {
		fmt.Fprintf(&sb, "The article is published by %s (%s). Write from their perspective without overt self-promotion.\n\n",
			spec.SubjectName, spec.SubjectURL)
	}

	if ctx := b.trimToBudget(spec.SubjectContext); ctx != "" {
		sb.WriteString("Background on the publisher:\n")
		sb.WriteString(ctx)
		sb.WriteString("\n\n")
	}

	if len(spec.ExcludedNames) > 0 {
		fmt.Fprintf(&sb, "Never mention: %s.\n\n", strings.Join(spec.ExcludedNames, ", "))
	}

	sb.WriteString(`Structure the output as a JSON object with these fields:
- headline, subtitle, teaser (2-3 sentence hook), direct_answer (40-60 words), intro
- sections: up to 9 objects of {title, body}; leave unused sections out
- takeaways: 3 short key insights
- faq: 6 {question, answer} pairs; paa: 4 {question, answer} pairs
- meta_title (max 60 chars), meta_description (100-160 chars)
- sources_block: numbered source list, one per line, "[n]: URL - Title"

Cite sources inline with [n] markers that match the sources_block numbering.
Use research tools to verify every statistic before citing it.`)

	return sb.String(), nil
}

// trimToBudget cuts context to the token budget on a line boundary.
func (b *Builder) trimToBudget(context string) string {
	context = strings.TrimSpace(context)
	if context == "" {
		return ""
	}
	if b.CountTokens(context) <= b.contextBudget {
		return context
	}

	lines := strings.Split(context, "\n")
	var kept []string
	used := 0
	for _, line := range lines {
		n := b.CountTokens(line)
		if used+n > b.contextBudget {
			break
		}
		kept = append(kept, line)
		used += n
	}
	if len(kept) == 0 {
		// Single oversized line: hard-cut by tokens.
		tokens := b.encoding.Encode(context, nil, nil)
		return b.encoding.Decode(tokens[:b.contextBudget])
	}
	return strings.Join(kept, "\n")
}
