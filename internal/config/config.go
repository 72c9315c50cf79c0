// Package config loads project-level settings from longform.yml plus the
// credential environment. File settings are tunables safe to commit;
// credentials only ever come from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names for the search backend credentials.
const (
	envSearchEndpoint = "SEARCH_API_ENDPOINT"
	envSearchKey      = "SEARCH_API_KEY"
)

// Config holds project-level settings loaded from longform.yml.
type Config struct {
	// Model selects the chat model used for generation. Empty uses the
	// backend default.
	Model string `yaml:"model,omitempty"`

	// OutputDir is where finished artifacts are written.
	OutputDir string `yaml:"outputDir,omitempty"`

	// Language and WordCount are job defaults, overridable per job.
	Language  string `yaml:"language,omitempty"`
	WordCount int    `yaml:"wordCount,omitempty"`

	// SkipRefine disables the draft refinement pass.
	SkipRefine bool `yaml:"skipRefine,omitempty"`

	// CitationBudget bounds the citation repair loop's search rounds.
	CitationBudget int `yaml:"citationBudget,omitempty"`

	// LinkCandidates and MinLinks shape related-link discovery.
	LinkCandidates int `yaml:"linkCandidates,omitempty"`
	MinLinks       int `yaml:"minLinks,omitempty"`

	// ExcludedNames and ExcludedDomains apply to every job run under this
	// project.
	ExcludedNames   []string `yaml:"excludedNames,omitempty"`
	ExcludedDomains []string `yaml:"excludedDomains,omitempty"`

	// DisableImage turns the illustration branch off project-wide.
	DisableImage bool `yaml:"disableImage,omitempty"`

	Verbose bool `yaml:"verbose,omitempty"`
}

// Load attempts to read longform.yml or longform.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*Config, error) {
	for _, name := range []string{"longform.yml", "longform.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", name, err)
		}
		return &cfg, nil
	}
	return &Config{}, nil
}

// LoadEnv reads a .env file from dir into the process environment when one
// exists. Variables already set win over file values.
func LoadEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load .env: %w", err)
	}
	return nil
}

// SearchCredentials returns the search backend endpoint and API key from
// the environment.
func SearchCredentials() (endpoint, key string, err error) {
	endpoint = os.Getenv(envSearchEndpoint)
	key = os.Getenv(envSearchKey)
	if endpoint == "" {
		return "", "", fmt.Errorf("config: %s not set", envSearchEndpoint)
	}
	if key == "" {
		return "", "", fmt.Errorf("config: %s not set", envSearchKey)
	}
	return endpoint, key, nil
}
