// Package main is the entry point for the newsgraphctl operator CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amlandas/newsgraph/internal/batch"
	"github.com/amlandas/newsgraph/internal/config"
	"github.com/amlandas/newsgraph/internal/cost"
	"github.com/amlandas/newsgraph/internal/extract"
	"github.com/amlandas/newsgraph/internal/graph"
	"github.com/amlandas/newsgraph/internal/ingest"
	"github.com/amlandas/newsgraph/internal/kbclient"
	"github.com/amlandas/newsgraph/internal/observability"
	"github.com/amlandas/newsgraph/internal/pipeline"
	"github.com/amlandas/newsgraph/internal/store"
)

var (
	// Version is set at build time.
	Version = "dev"
	// BuildTime is set at build time.
	BuildTime = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "newsgraphctl",
		Short:   "newsgraphctl - operator CLI for the newsgraph extraction pipeline",
		Version: Version,
	}
	rootCmd.PersistentFlags().String("data-dir", "", "Data directory (default: ~/.newsgraph)")

	rootCmd.AddCommand(
		runCmd(),
		statusCmd(),
		ingestCmd(),
		regenerateRelationshipsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	observability.SetupLogging(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	return cfg, nil
}

func openStore(cfg *config.Config) (*store.Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return store.New(cfg.DatabasePath())
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Process every pending article through the pipeline once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := context.Background()
			tracker, err := cost.New(ctx, s.DB(), cost.Config{
				DailyCap:   cfg.Pipeline.DailyCap,
				MonthlyCap: cfg.Pipeline.MonthlyCap,
				Pricing:    pricingTable(cfg),
			})
			if err != nil {
				return fmt.Errorf("init cost tracker: %w", err)
			}

			extractorA := extract.NewOllamaClient(extract.OllamaConfig{Host: cfg.Ollama.Endpoint, Timeout: cfg.ExtractorTimeout()})
			extractorB := extract.NewOllamaClient(extract.OllamaConfig{Host: cfg.Ollama.Endpoint, Timeout: cfg.ExtractorTimeout()})

			p := pipeline.New(pipeline.Config{
				ChunkSize:           cfg.Pipeline.ChunkSize,
				ChunkOverlap:        cfg.Pipeline.ChunkOverlap,
				ConfidenceThreshold: cfg.Pipeline.ConfidenceThreshold,
				SimilarityThreshold: cfg.Pipeline.SimilarityThreshold,
				WindowSize:          cfg.Pipeline.WindowSize,
				MinFrequencyForPMI:  cfg.Pipeline.MinFrequencyForPMI,
				Smoothing:           cfg.Pipeline.Smoothing,
				MaxRetries:          cfg.Pipeline.MaxRetries,
				TimeoutSeconds:      cfg.Pipeline.TimeoutSeconds,
			}, pipeline.Deps{
				Store:      s,
				ExtractorA: extractorA,
				ExtractorB: extractorB,
				ModelA:     cfg.Ollama.ModelA,
				ModelB:     cfg.Ollama.ModelB,
				KB:         kbclient.Disabled{},
				Tracker:    tracker,
			})

			runner := batch.New(s, p, tracker, cfg.Pipeline.BatchSize)
			result, err := runner.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("processed=%d failed=%d halted=%v\n", result.Processed, result.Failed, result.Halted != nil)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print pipeline progress and cost spend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			stats, err := s.Stats(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("pending:        %d\n", stats.ArticlesPending)
			fmt.Printf("completed:      %d\n", stats.ArticlesCompleted)
			fmt.Printf("failed:         %d\n", stats.ArticlesFailed)
			fmt.Printf("facts:          %d\n", stats.TotalFacts)
			fmt.Printf("relationships:  %d\n", stats.TotalRelationships)
			fmt.Printf("cost (usd):     %.4f\n", stats.TotalCostUSD)
			return nil
		},
	}
}

func ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <directory>",
		Short: "Load *.json article files from a directory as pending articles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := ingest.LoadDirectory(context.Background(), s, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("scanned=%d inserted=%d errors=%d\n", result.Scanned, result.Inserted, len(result.Errors))
			for _, e := range result.Errors {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", e.Path, e.Message)
			}
			return nil
		},
	}
}

func regenerateRelationshipsCmd() *cobra.Command {
	var window int
	cmd := &cobra.Command{
		Use:   "regenerate-relationships <article-id>",
		Short: "Recompute the proximity/PMI relationship graph for one already-processed article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			articleID := args[0]
			ctx := context.Background()
			mentions, err := s.ReadPositionedEntities(ctx, articleID)
			if err != nil {
				return fmt.Errorf("read positioned entities: %w", err)
			}
			if len(mentions) < 2 {
				return s.UpsertRelationships(ctx, articleID, nil)
			}

			if window <= 0 {
				window = cfg.Pipeline.WindowSize
			}
			matrix := graph.BuildMatrix(mentions, window)

			distinct := make(map[string]bool)
			for _, m := range mentions {
				distinct[m.Normalized+"|"+string(m.Type)] = true
			}

			entityDocFreq, totalDocs, err := s.EntityFrequencies(ctx)
			if err != nil {
				return fmt.Errorf("load entity frequencies: %w", err)
			}
			freqs := graph.Frequencies{EntityDocFreq: entityDocFreq, TotalDocs: totalDocs}
			scores := graph.PMIBatch(matrix, freqs, cfg.Pipeline.Smoothing, cfg.Pipeline.MinFrequencyForPMI)

			edges := make([]graph.Edge, 0, len(scores))
			for key, score := range scores {
				edges = append(edges, graph.Edge{Pair: key, Score: score})
			}
			filtered := graph.FilterEdges(edges, len(distinct))
			display := graph.DisplayLabels(mentions)

			writes := make([]store.RelationshipWrite, 0, len(filtered))
			for _, e := range filtered {
				c := matrix[e.Pair]
				entityA, entityB := display[e.Pair.A], display[e.Pair.B]
				if entityA == "" {
					entityA = graph.StripTypeSuffix(e.Pair.A)
				}
				if entityB == "" {
					entityB = graph.StripTypeSuffix(e.Pair.B)
				}
				writes = append(writes, store.RelationshipWrite{
					EntityA:              entityA,
					EntityB:              entityB,
					Type:                 c.RelationshipType(),
					Confidence:           c.MeanConfidence(),
					PMIScore:             e.Score.PMI,
					NPMIScore:            e.Score.NPMI,
					ScoringMethod:        e.Score.ScoringMethod,
					RawCooccurrenceCount: c.Contributions,
					ProximityWeight:      c.TotalWeight,
					MinSentenceDistance:  c.MinDistance,
					AvgSentenceDistance:  c.AvgDistance(),
				})
			}

			if err := s.UpsertRelationships(ctx, articleID, writes); err != nil {
				return fmt.Errorf("upsert relationships: %w", err)
			}
			fmt.Printf("regenerated %d relationships for %s\n", len(writes), articleID)
			return nil
		},
	}
	cmd.Flags().IntVar(&window, "window", 0, "Sentence proximity window (default: config pipeline.window_size)")
	return cmd
}

func pricingTable(cfg *config.Config) cost.PricingTable {
	table := make(cost.PricingTable, len(cfg.Pricing))
	for key, rate := range cfg.Pricing {
		table[key] = cost.PricingEntry{InputPerMillion: rate.InputRate, OutputPerMillion: rate.OutputRate}
	}
	return table
}
