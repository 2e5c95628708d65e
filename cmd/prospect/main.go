// Copyright 2025 Quartier Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/quartierlab/prospect"
	"github.com/quartierlab/prospect/config"
	"github.com/quartierlab/prospect/discovery"
	"github.com/quartierlab/prospect/features"
	"github.com/quartierlab/prospect/scoring"
	"github.com/quartierlab/prospect/storage/badger"
	"github.com/quartierlab/prospect/strategy"
)

func main() {
	app := &cli.App{
		Name:  "prospect",
		Usage: "Discover and score local kids-activity candidates",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file (searched in common locations if omitted)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "discover",
				Usage:  "Run discovery cycles and store new candidates",
				Action: discoverCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "area",
						Usage: "Area label to search, e.g. 20e (defaults to configured area)",
					},
					&cli.IntFlag{
						Name:  "cycles",
						Usage: "Number of discovery cycles to run",
						Value: 1,
					},
				},
			},
			{
				Name:   "score",
				Usage:  "Score stored candidates and print the assessment",
				Action: scoreCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum candidates to score (0 scores all)",
						Value: 20,
					},
				},
			},
			{
				Name:   "train",
				Usage:  "Retrain the quality scorer from stored review decisions",
				Action: trainCommand,
			},
			{
				Name:   "stats",
				Usage:  "Print discovery, strategy and storage statistics",
				Action: statsCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// loadConfig resolves the config file, falling back to built-in
// defaults when none is found.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := config.FindConfigPath(c.String("config"))
	if path == "" {
		return config.Default(), nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}
	fmt.Fprintf(os.Stderr, "Config: %s\n", path)
	return cfg, nil
}

// buildPipeline assembles the full pipeline from configuration: the
// badger store (records, reviews and model snapshots), the four
// discovery providers behind one fetcher, and a scorer and strategy
// tuned to the configured area.
func buildPipeline(cfg *config.Config) (*prospect.Pipeline, error) {
	area, err := cfg.Area.TargetArea()
	if err != nil {
		return nil, err
	}
	vocab := cfg.Vocabulary.Vocabulary()

	store, err := badger.NewStore(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	fetcher := discovery.NewHTTPFetcher()

	var registryOpts []discovery.RegistryOption
	if cfg.Discovery.OpenDataURL != "" {
		registryOpts = append(registryOpts, discovery.WithOpenDataURL(cfg.Discovery.OpenDataURL))
	}
	if cfg.Discovery.SPARQLURL != "" {
		registryOpts = append(registryOpts, discovery.WithSPARQLURL(cfg.Discovery.SPARQLURL))
	}
	registry, err := discovery.NewRegistryProvider(fetcher, vocab, registryOpts...)
	if err != nil {
		store.Close()
		return nil, err
	}

	documents, err := discovery.NewDocumentsProvider(fetcher, discovery.NewRegexExtractor(vocab))
	if err != nil {
		store.Close()
		return nil, err
	}

	var metaOpts []discovery.MetaSearchOption
	if cfg.Discovery.MetaSearchURL != "" {
		metaOpts = append(metaOpts, discovery.WithMetaSearchURL(cfg.Discovery.MetaSearchURL))
	}
	metaSearch, err := discovery.NewMetaSearchProvider(fetcher, vocab, metaOpts...)
	if err != nil {
		documents.Release()
		store.Close()
		return nil, err
	}

	var webOpts []discovery.WebSearchOption
	if metered := cfg.Discovery.MeteredSearch; metered.APIKey != "" && metered.CX != "" {
		webOpts = append(webOpts, discovery.WithAPICredentials(metered.APIKey, metered.CX))
		if metered.URL != "" {
			webOpts = append(webOpts, discovery.WithMeteredURL(metered.URL))
		}
	}
	webSearch, err := discovery.NewWebSearchProvider(fetcher, vocab, webOpts...)
	if err != nil {
		documents.Release()
		store.Close()
		return nil, err
	}

	disc, err := discovery.NewDiscovery([]discovery.Provider{
		registry, documents, metaSearch, webSearch,
	})
	if err != nil {
		documents.Release()
		store.Close()
		return nil, err
	}

	extractor := features.NewExtractor(
		features.WithVocabulary(vocab),
		features.WithTargetArea(area),
	)
	scorer := scoring.NewScorer(
		scoring.WithExtractor(extractor),
		scoring.WithAcceptThreshold(cfg.Scoring.AcceptThreshold),
	)
	adaptive := strategy.NewAdaptive(
		strategy.WithArea(area.Label),
		strategy.WithHistoryLimit(cfg.Strategy.HistoryLimit),
		strategy.WithRejectionWindow(cfg.Strategy.RejectionWindow),
		strategy.WithMaxRejections(cfg.Strategy.MaxRejections),
	)

	return prospect.NewPipeline(store, store, disc,
		prospect.WithTargetArea(area),
		prospect.WithScorer(scorer),
		prospect.WithStrategy(adaptive),
		prospect.WithModelRepository(store),
	)
}

func discoverCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	pipeline, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	if err := pipeline.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}

	cycles := c.Int("cycles")
	if cycles < 1 {
		cycles = 1
	}

	totalStored := 0
	for i := 0; i < cycles; i++ {
		result, err := pipeline.RunCycle(ctx, c.String("area"))
		if err != nil {
			return fmt.Errorf("discovery cycle %d/%d: %w", i+1, cycles, err)
		}

		fmt.Printf("Cycle %d/%d  query=%q source=%s\n", i+1, cycles, result.Directive.Query, result.Directive.Source)
		for _, scored := range result.Candidates {
			fmt.Printf("  %5.2f  %-12s  %s\n", scored.Result.Score, scored.Result.Recommendation, scored.Record.Name)
		}
		fmt.Printf("  stored=%d duplicates=%d\n", result.Stored, result.Duplicates)
		totalStored += result.Stored
	}

	fmt.Printf("\n%d new candidate(s) stored\n", totalStored)
	return nil
}

func scoreCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	pipeline, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	if err := pipeline.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}

	scored, err := pipeline.ScoreStored(ctx, c.Int("limit"))
	if err != nil {
		return err
	}
	if len(scored) == 0 {
		fmt.Println("No stored candidates to score.")
		return nil
	}

	fmt.Printf("%-8s %-12s %-10s %s\n", "SCORE", "RECOMMEND", "METHOD", "NAME")
	for _, s := range scored {
		fmt.Printf("%-8.2f %-12s %-10s %s\n", s.Result.Score, s.Result.Recommendation, s.Result.Method, s.Record.Name)
	}
	return nil
}

func trainCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	pipeline, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	if err := pipeline.Retrain(ctx); err != nil {
		if errors.Is(err, prospect.ErrNoReviews) {
			return fmt.Errorf("no review decisions stored yet; review candidates before training")
		}
		return fmt.Errorf("training failed: %w", err)
	}

	fmt.Println("Scorer retrained from stored reviews.")
	return nil
}

func statsCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	pipeline, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	if err := pipeline.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}

	stats, err := pipeline.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Records:      %d\n", stats.Records)
	fmt.Printf("Reviews:      %d\n", stats.Reviews)
	fmt.Printf("Model:        %s\n", modelState(stats.Trained))
	fmt.Printf("Searches:     %d (approved %d, rejected %d)\n",
		stats.Strategy.TotalSearches, stats.Strategy.Approved, stats.Strategy.Rejected)
	if stats.Strategy.TotalSearches > 0 {
		fmt.Printf("Approval:     %.1f%%\n", stats.Strategy.ApprovalRate)
	}
	for _, p := range stats.Strategy.TopPatterns {
		fmt.Printf("  pattern %-40s %.0f%% success\n", p.Pattern, p.SuccessRate)
	}
	return nil
}

func modelState(trained bool) string {
	if trained {
		return "trained"
	}
	return "rule-based"
}
