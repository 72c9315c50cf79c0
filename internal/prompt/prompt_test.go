package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/longform/internal/article"
)

func TestBuildComposesInstructions(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)

	spec := article.NewJobSpec("container orchestration")
	spec.SubjectName = "Example Labs"
	spec.SubjectURL = "https://example.com"
	spec.ExcludedNames = []string{"Rival Inc", "OtherCo"}

	got, err := b.Build(spec)
	require.NoError(t, err)

	assert.Contains(t, got, `"container orchestration"`)
	assert.Contains(t, got, "Example Labs")
	assert.Contains(t, got, "Never mention: Rival Inc, OtherCo.")
	assert.Contains(t, got, "sources_block")
	assert.Contains(t, got, "[n] markers")
}

func TestBuildRequiresTopic(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)

	_, err = b.Build(article.JobSpec{Topic: "   "})
	assert.Error(t, err)
}

func TestBuildTrimsOversizedContext(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)
	b.WithContextBudget(50)

	lines := make([]string, 100)
	for i := range lines {
		lines[i] = "Background detail about the publisher and its long product history."
	}

	spec := article.NewJobSpec("testing")
	spec.SubjectContext = strings.Join(lines, "\n")

	got, err := b.Build(spec)
	require.NoError(t, err)

	start := strings.Index(got, "Background on the publisher:")
	require.GreaterOrEqual(t, start, 0)
	end := strings.Index(got[start:], "\n\n")
	require.Greater(t, end, 0)

	kept := got[start : start+end]
	assert.LessOrEqual(t, b.CountTokens(kept), 50+10, "context must be cut near the budget")
}

func TestBuildSmallContextKeptVerbatim(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)

	spec := article.NewJobSpec("testing")
	spec.SubjectContext = "Founded in 2004. Ships developer tools."

	got, err := b.Build(spec)
	require.NoError(t, err)
	assert.Contains(t, got, "Founded in 2004. Ships developer tools.")
}
