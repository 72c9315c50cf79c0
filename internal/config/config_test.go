package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReadsYAML(t *testing.T) {
	dir := t.TempDir()
	content := []byte("model: gpt-4o\nwordCount: 1800\nexcludedDomains:\n  - rival.example.net\nskipRefine: true\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "longform.yml"), content, 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, 1800, cfg.WordCount)
	assert.Equal(t, []string{"rival.example.net"}, cfg.ExcludedDomains)
	assert.True(t, cfg.SkipRefine)
}

func TestLoadMissingFileReturnsZeroConfig(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "longform.yaml"), []byte("model: [broken"), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestSearchCredentials(t *testing.T) {
	t.Setenv("SEARCH_API_ENDPOINT", "https://search.example.com/api")
	t.Setenv("SEARCH_API_KEY", "test-key")

	endpoint, key, err := SearchCredentials()
	require.NoError(t, err)
	assert.Equal(t, "https://search.example.com/api", endpoint)
	assert.Equal(t, "test-key", key)
}

func TestSearchCredentialsMissing(t *testing.T) {
	t.Setenv("SEARCH_API_ENDPOINT", "")
	t.Setenv("SEARCH_API_KEY", "")

	_, _, err := SearchCredentials()
	assert.Error(t, err)
}
