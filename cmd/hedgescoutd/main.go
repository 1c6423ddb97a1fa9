// hedgescoutd is the hedge scouting daemon. It serves the analysis, quote,
// and scoring APIs and keeps the persisted market cache fresh.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/smbrisk/hedgescout/internal/api"
	"github.com/smbrisk/hedgescout/internal/config"
	"github.com/smbrisk/hedgescout/internal/logger"
	"github.com/smbrisk/hedgescout/internal/store"
	"github.com/smbrisk/hedgescout/pkg/llm"
	"github.com/smbrisk/hedgescout/pkg/market"
	"github.com/smbrisk/hedgescout/pkg/metrics"
	"github.com/smbrisk/hedgescout/pkg/profile"
	"github.com/smbrisk/hedgescout/pkg/rank"
	"github.com/smbrisk/hedgescout/pkg/scorer"
	"github.com/smbrisk/hedgescout/pkg/scout"
	"github.com/smbrisk/hedgescout/pkg/venues/kalshi"
)

var (
	configPath  = flag.String("config", "", "Path to config file (defaults + env when empty)")
	fixtureOnly = flag.Bool("fixture-only", false, "Serve from bundled fixture markets, no live venue")
	noSync      = flag.Bool("no-sync", false, "Disable the market cache sync job")
)

func main() {
	flag.Parse()

	// Missing .env is fine; env vars may come from anywhere.
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal("load config: %v", err)
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	pm := metrics.NewPipelineMetrics()

	llmClient := newLLMClient(cfg)
	venueClient, adapters := newAdapters(cfg)

	filter := market.NewHygieneFilter(cfg.Aggregator.LiquidityFloor)
	aggregator := market.NewAggregator(filter, adapters...)
	aggregator.SetRecorder(pm)

	var extractor scout.Extractor
	if llmClient != nil {
		extractor = profile.NewLLMExtractor(llmClient)
	} else {
		extractor = scout.WrapExtractor(profile.NewRuleExtractor())
	}

	var ranker *rank.LLMRanker
	if llmClient != nil {
		ranker = rank.NewLLMRanker(llmClient)
	}

	engine := rank.NewEngine(rank.Weights{
		Relevance:        cfg.Scoring.RelevanceWeight,
		Liquidity:        cfg.Scoring.LiquidityWeight,
		Time:             cfg.Scoring.TimeWeight,
		TopCategoryBoost: cfg.Scoring.TopCategoryBoost,
		StrongMin:        cfg.Scoring.StrongMin,
		PartialMin:       cfg.Scoring.PartialMin,
	})

	pipeline := scout.NewPipeline(scout.Options{
		Extractor:  extractor,
		Aggregator: aggregator,
		Engine:     engine,
		Ranker:     ranker,
		Metrics:    pm,
	})

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		logger.Fatal("open market cache: %v", err)
	}
	defer st.Close()
	sc := scorer.New(llmClient, st, cfg.LLM.Model)

	if venueClient != nil && !*noSync {
		syncer := store.NewSyncer(venueClient, st, cfg.Store.AllowedCategories, cfg.Store.ExcludedTags)
		go runSync(ctx, syncer, st, pm, cfg.Store.SyncInterval)
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewServer(pipeline, sc, pm).Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error: %v", err)
		}
	}()

	<-sigCh
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown: %v", err)
	}
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLLMClient returns nil when the LLM collaborator is disabled or has no
// key; the pipeline degrades to rules-only extraction and local ranking.
func newLLMClient(cfg *config.Config) llm.Client {
	if !cfg.LLM.Enabled {
		return nil
	}
	key := cfg.LLM.APIKey
	if key == "" {
		key = os.Getenv("HEDGESCOUT_LLM_API_KEY")
	}
	if key == "" && cfg.LLM.Provider != "ollama" {
		logger.Warn("no LLM API key configured, running without the LLM collaborator")
		return nil
	}

	return llm.NewHTTPClient(llm.Config{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      key,
		BaseURL:     cfg.LLM.BaseURL,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		MaxRetries:  cfg.LLM.MaxRetries,
		Backoff:     time.Second,
	})
}

// newAdapters returns the venue client (nil in fixture-only mode) and the
// adapter list in aggregation order: live venue first, fixtures last.
func newAdapters(cfg *config.Config) (*kalshi.Client, []market.Adapter) {
	fixture := market.NewFixtureAdapter()
	if *fixtureOnly {
		logger.Info("running in fixture-only mode")
		return nil, []market.Adapter{fixture}
	}

	client := kalshi.NewClient(
		kalshi.WithBaseURL(cfg.Venue.APIBaseURL),
		kalshi.WithRateLimit(cfg.Venue.RatePerSec, cfg.Venue.Burst),
		kalshi.WithRetry(cfg.Venue.MaxRetries, cfg.Venue.RetryBaseWait, cfg.Venue.RetryMaxWait),
		kalshi.WithCacheTTL(cfg.Venue.CacheTTL),
		kalshi.WithTimeout(cfg.Venue.Timeout),
	)
	adapter := kalshi.NewAdapter(client,
		kalshi.WithSeriesCaps(cfg.Aggregator.SeriesPerCategory, cfg.Aggregator.SeriesGlobalCap))

	return client, []market.Adapter{adapter, fixture}
}

// runSync keeps the market cache fresh and reports cache size to metrics.
func runSync(ctx context.Context, syncer *store.Syncer, st *store.Store, pm *metrics.PipelineMetrics, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status := "ok"
		if err := syncer.Run(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			status = "error"
			logger.Warn("market cache sync failed: %v", err)
		}
		count, err := st.Count(ctx)
		if err != nil {
			count = -1
		}
		pm.RecordSync(status, count)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
