// Package main is the entry point for the newsgraph batch worker.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/amlandas/newsgraph/internal/batch"
	"github.com/amlandas/newsgraph/internal/config"
	"github.com/amlandas/newsgraph/internal/cost"
	"github.com/amlandas/newsgraph/internal/domain"
	"github.com/amlandas/newsgraph/internal/extract"
	"github.com/amlandas/newsgraph/internal/kbclient"
	"github.com/amlandas/newsgraph/internal/observability"
	"github.com/amlandas/newsgraph/internal/pipeline"
	"github.com/amlandas/newsgraph/internal/store"
	"github.com/amlandas/newsgraph/internal/validate"
)

var (
	// Version is set at build time.
	Version = "dev"
	// BuildTime is set at build time.
	BuildTime = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "newsgraph-batch",
		Short:   "newsgraph batch worker - processes pending articles through the extraction pipeline",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		RunE:    runBatch,
	}

	rootCmd.Flags().String("data-dir", "", "Data directory (default: ~/.newsgraph)")
	rootCmd.Flags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.Flags().String("log-format", "", "Log format: json, console")
	rootCmd.Flags().String("health-addr", ":8089", "Address for the /healthz and /metrics endpoints")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.LogFormat = v
	}

	observability.SetupLogging(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	logger := observability.Logger("main")

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	s, err := store.New(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	tracker, err := cost.New(context.Background(), s.DB(), cost.Config{
		DailyCap:   cfg.Pipeline.DailyCap,
		MonthlyCap: cfg.Pipeline.MonthlyCap,
		Pricing:    pricingTable(cfg),
	})
	if err != nil {
		return fmt.Errorf("init cost tracker: %w", err)
	}

	extractorA := extract.NewOllamaClient(extract.OllamaConfig{
		Host:    cfg.Ollama.Endpoint,
		Timeout: cfg.ExtractorTimeout(),
	})
	extractorB := extract.NewOllamaClient(extract.OllamaConfig{
		Host:    cfg.Ollama.Endpoint,
		Timeout: cfg.ExtractorTimeout(),
	})

	kbClient, err := buildKBClient(cfg)
	if err != nil {
		return fmt.Errorf("init kb client: %w", err)
	}
	defer kbClient.Close()

	arbitrator, err := buildArbitrator(cfg)
	if err != nil {
		return fmt.Errorf("init arbitrator: %w", err)
	}

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
		Arbitrator: arbitrator,
		KB:         kbClient,
		Tracker:    tracker,
	})

	runner := batch.New(s, p, tracker, cfg.Pipeline.BatchSize)

	healthAddr, _ := cmd.Flags().GetString("health-addr")
	healthSrv := startHealthServer(healthAddr, s)
	defer healthSrv.Shutdown(context.Background())

	result, err := runner.Run(context.Background())
	if err != nil {
		return fmt.Errorf("run batch: %w", err)
	}

	logger.Info().
		Int("processed", result.Processed).
		Int("failed", result.Failed).
		Bool("halted", result.Halted != nil).
		Msg("batch run complete")
	return nil
}

func pricingTable(cfg *config.Config) cost.PricingTable {
	table := make(cost.PricingTable, len(cfg.Pricing))
	for key, rate := range cfg.Pricing {
		table[key] = cost.PricingEntry{InputPerMillion: rate.InputRate, OutputPerMillion: rate.OutputRate}
	}
	return table
}

func buildKBClient(cfg *config.Config) (kbclient.Client, error) {
	if !cfg.KB.Enabled {
		return kbclient.Disabled{}, nil
	}
	var cache kbclient.Cache
	if cfg.KB.UseRedis {
		redisCfg := kbclient.DefaultRedisConfig()
		redisCfg.Addr = cfg.KB.RedisAddr
		cache = kbclient.NewRedisCache(redisCfg)
	} else {
		cache = kbclient.NewMemoryCache()
	}
	wdCfg := kbclient.DefaultConfig(cache)
	wdCfg.RatePerMinute = cfg.KB.RatePerMin
	wdCfg.TTL = time.Duration(cfg.KB.TTLDays) * 24 * time.Hour
	return kbclient.NewWikidataClient(wdCfg), nil
}

// buildArbitrator wires a ClientArbitrator over the Anthropic extractor,
// used only when conflicting ensemble summaries fall below the
// similarity threshold. Without an API key, arbitration is skipped and
// the pipeline keeps the longer of the two summaries instead.
func buildArbitrator(cfg *config.Config) (validate.Arbitrator, error) {
	if cfg.Anthropic.APIKey == "" {
		return nil, nil
	}
	client, err := extract.NewAnthropicClient(extract.AnthropicConfig{
		APIKey:  cfg.Anthropic.APIKey,
		Timeout: cfg.ExtractorTimeout(),
	})
	if err != nil {
		return nil, err
	}
	call := func(ctx context.Context, modelID, articleTitle, text string) (*domain.Extraction, error) {
		extraction, _, err := client.Extract(ctx, modelID, articleTitle, text)
		return extraction, err
	}
	return validate.NewClientArbitrator(call, cfg.Anthropic.Model), nil
}

func startHealthServer(addr string, s *store.Store) *http.Server {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := s.Health(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(err.Error()))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		stats, err := s.Stats(req.Context())
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "newsgraph_articles_pending %d\n", stats.ArticlesPending)
		fmt.Fprintf(w, "newsgraph_articles_completed %d\n", stats.ArticlesCompleted)
		fmt.Fprintf(w, "newsgraph_articles_failed %d\n", stats.ArticlesFailed)
		fmt.Fprintf(w, "newsgraph_facts_total %d\n", stats.TotalFacts)
		fmt.Fprintf(w, "newsgraph_relationships_total %d\n", stats.TotalRelationships)
		fmt.Fprintf(w, "newsgraph_cost_usd_total %f\n", stats.TotalCostUSD)
	})

	srv := &http.Server{Addr: addr, Handler: r}
	go srv.ListenAndServe()
	return srv
}
