package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/draftforge/longform/internal/article"
	"github.com/draftforge/longform/internal/config"
	"github.com/draftforge/longform/internal/genai"
	"github.com/draftforge/longform/internal/pipeline"
	"github.com/draftforge/longform/internal/webtool"
)

// CLI flags parsed from command line.
type cliFlags struct {
	Topic          string
	SubjectName    string
	SubjectURL     string
	ContextFile    string
	ExcludeNames   string
	ExcludeDomains string
	Language       string
	WordCount      int
	NoCitations    bool
	NoImage        bool
	OutputDir      string
	ConfigDir      string
	Verbose        bool
	Version        bool
}

// version is set by goreleaser at build time.
var version = "dev"

// errRejected signals a completed run whose artifact failed the quality
// gate. The artifact and report are still written out.
var errRejected = errors.New("artifact rejected by quality gate")

func main() {
	err := run(os.Args[1:])
	switch {
	case err == nil:
	case errors.Is(err, errRejected):
		fmt.Fprintf(os.Stderr, "longform: %v\n", err)
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var flags cliFlags

	fs := flag.NewFlagSet("longform", flag.ContinueOnError)
	fs.StringVar(&flags.Topic, "topic", "", "article topic (required)")
	fs.StringVar(&flags.SubjectName, "subject-name", "", "publishing entity name")
	fs.StringVar(&flags.SubjectURL, "subject-url", "", "publishing entity canonical URL, used as citation fallback")
	fs.StringVar(&flags.ContextFile, "context-file", "", "file with background text for the prompt")
	fs.StringVar(&flags.ExcludeNames, "exclude-names", "", "comma-separated entity names to never mention")
	fs.StringVar(&flags.ExcludeDomains, "exclude-domains", "", "comma-separated domains to never link")
	fs.StringVar(&flags.Language, "language", "", "article language")
	fs.IntVar(&flags.WordCount, "word-count", 0, "target word count")
	fs.BoolVar(&flags.NoCitations, "no-citations", false, "skip the citation branch")
	fs.BoolVar(&flags.NoImage, "no-image", false, "skip the image branch")
	fs.StringVar(&flags.OutputDir, "output-dir", "", "output directory for the finished artifact")
	fs.StringVar(&flags.ConfigDir, "config-dir", ".", "directory holding longform.yml and .env")
	fs.BoolVar(&flags.Verbose, "verbose", false, "enable verbose output")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Println(version)
		return nil
	}
	if strings.TrimSpace(flags.Topic) == "" {
		return errors.New("-topic is required")
	}

	if err := config.LoadEnv(flags.ConfigDir); err != nil {
		return err
	}
	cfg, err := config.Load(flags.ConfigDir)
	if err != nil {
		return err
	}

	log := newLogger(flags.Verbose || cfg.Verbose)
	spec := buildSpec(flags, cfg)

	p, progress, err := buildPipeline(flags, cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("longform: generating %q\n", spec.Topic)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for event := range progress.Subscribe() {
			fmt.Println(pipeline.FormatProgress(event))
		}
	}()

	result, runErr := p.Run(ctx, spec)
	progress.Close()
	wg.Wait()

	if runErr != nil {
		return runErr
	}

	outPath, err := writeArtifact(flags, cfg, result)
	if err != nil {
		return err
	}

	printReport(result)
	fmt.Printf("artifact written to %s\n", outPath)

	if result.State == pipeline.StateRejected {
		return errRejected
	}
	return nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildSpec merges flags over project config defaults into one job spec.
func buildSpec(flags cliFlags, cfg *config.Config) article.JobSpec {
	spec := article.NewJobSpec(flags.Topic)
	spec.SubjectName = flags.SubjectName
	spec.SubjectURL = flags.SubjectURL
	spec.DisableCitations = flags.NoCitations
	spec.DisableImage = flags.NoImage || cfg.DisableImage

	if flags.Language != "" {
		spec.Language = flags.Language
	} else if cfg.Language != "" {
		spec.Language = cfg.Language
	}
	if flags.WordCount > 0 {
		spec.WordCount = flags.WordCount
	} else if cfg.WordCount > 0 {
		spec.WordCount = cfg.WordCount
	}

	spec.ExcludedNames = append(splitList(flags.ExcludeNames), cfg.ExcludedNames...)
	spec.ExcludedDomains = append(splitList(flags.ExcludeDomains), cfg.ExcludedDomains...)

	if flags.ContextFile != "" {
		if data, err := os.ReadFile(flags.ContextFile); err == nil {
			spec.SubjectContext = string(data)
		}
	}
	return spec
}

// buildPipeline wires the production services into a pipeline.
func buildPipeline(flags cliFlags, cfg *config.Config, log *slog.Logger) (*pipeline.Pipeline, *pipeline.ProgressReporter, error) {
	endpoint, apiKey, err := config.SearchCredentials()
	if err != nil {
		return nil, nil, err
	}
	search := webtool.NewHTTPSearch(endpoint, apiKey)
	checker := webtool.NewHTTPChecker()

	gen, err := genai.NewOpenAIGenerator(cfg.Model, genai.WithSearchTool(search))
	if err != nil {
		return nil, nil, err
	}

	progress := pipeline.NewProgressReporter()

	pcfg := pipeline.DefaultConfig()
	pcfg.SkipRefine = cfg.SkipRefine
	if cfg.CitationBudget > 0 {
		pcfg.CitationBudget = cfg.CitationBudget
	}
	if cfg.LinkCandidates > 0 {
		pcfg.LinkCandidates = cfg.LinkCandidates
	}
	if cfg.MinLinks > 0 {
		pcfg.MinLinks = cfg.MinLinks
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithConfig(pcfg),
		pipeline.WithProgress(progress),
	}

	if !flags.NoImage && !cfg.DisableImage {
		img, err := genai.NewOpenAIImageCreator()
		if err != nil {
			log.Warn("image service unavailable, branch will be skipped", "error", err)
		} else {
			opts = append(opts, pipeline.WithImageService(img))
		}
	}

	p, err := pipeline.New(gen, search, checker, opts...)
	if err != nil {
		return nil, nil, err
	}
	return p, progress, nil
}

// writeArtifact stores the artifact plus its quality report as JSON, named
// after the article slug.
func writeArtifact(flags cliFlags, cfg *config.Config, result *pipeline.Result) (string, error) {
	dir := flags.OutputDir
	if dir == "" {
		dir = cfg.OutputDir
	}
	if dir == "" {
		dir = "out"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	name := result.Artifact.Meta.Slug
	if name == "" {
		name = result.Artifact.JobID.String()
	}
	path := filepath.Join(dir, name+".json")

	payload := struct {
		State    string                     `json:"state"`
		Artifact *article.ValidatedArtifact `json:"artifact"`
		Report   *article.QualityReport     `json:"report"`
	}{string(result.State), result.Artifact, result.Report}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}

func printReport(result *pipeline.Result) {
	report := result.Report
	fmt.Printf("\nquality score: %d/100 (%s)\n", report.Score, result.State)
	for _, issue := range report.Critical {
		fmt.Printf("  critical [%s] %s\n", issue.Category, issue.Message)
	}
	for _, issue := range report.Advisory {
		fmt.Printf("  advisory [%s] %s\n", issue.Category, issue.Message)
	}
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
