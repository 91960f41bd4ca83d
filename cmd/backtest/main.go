// Backtest runner: simulates every configured strategy variant over the
// configured timeframes and writes a JSON report.
//
// Usage:
//
//	go run cmd/backtest/main.go -config config/backtest.yaml -out report.json
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bhuvan-advantix/Back-testing/internal/allocator"
	"github.com/bhuvan-advantix/Back-testing/internal/candidates"
	"github.com/bhuvan-advantix/Back-testing/internal/config"
	"github.com/bhuvan-advantix/Back-testing/internal/engine"
	"github.com/bhuvan-advantix/Back-testing/internal/marketdata"
	"github.com/bhuvan-advantix/Back-testing/internal/metrics"
	"github.com/bhuvan-advantix/Back-testing/internal/report"
	"github.com/bhuvan-advantix/Back-testing/internal/store"
	"github.com/bhuvan-advantix/Back-testing/internal/strategy/builtins"
	"github.com/bhuvan-advantix/Back-testing/internal/util"
)

func main() {
	cfgPath := flag.String("config", "config/backtest.yaml", "path to YAML configuration")
	outPath := flag.String("out", "", "write the JSON report to this file instead of stdout")
	flag.Parse()

	// A missing .env is fine; explicit environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start, err := cfg.StartDate()
	if err != nil {
		log.Fatalf("invalid start date: %v", err)
	}
	end, err := cfg.EndDate()
	if err != nil {
		log.Fatalf("invalid end date: %v", err)
	}

	sqlite, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open sqlite store: %v", err)
	}
	defer sqlite.Close()

	bars := store.NewParquetStore(cfg.Storage.DataDir)
	provider := marketdata.NewStoreProvider(bars, logger)
	series, err := marketdata.LoadSeries(ctx, provider, cfg.Universe, start, end, logger)
	if err != nil {
		log.Fatalf("failed to load market data: %v", err)
	}

	feed := buildFeed(cfg, sqlite, logger)

	registry, err := builtins.FromConfig(cfg.Variants)
	if err != nil {
		log.Fatalf("failed to build variants: %v", err)
	}

	alloc := allocator.New(cfg.Constraints, logger)
	opts := engine.Options{
		InitialCash:         cfg.Simulation.InitialCash,
		OrderTTLSessions:    cfg.Simulation.OrderTTLDays,
		FeeBps:              cfg.Simulation.FeeBps,
		SlippageBps:         cfg.Simulation.SlippageBps,
		MaxTradePctOfVolume: cfg.Constraints.MaxTradePctOfVolume,
	}
	orch := engine.NewOrchestrator(series, feed, registry, alloc, opts, logger)

	results, err := orch.Run(ctx, cfg.Timeframes(), start, end)
	if err != nil {
		logger.Error("run finished with errors", "error", err)
	}
	if len(results) == 0 {
		log.Fatal("no timeframe produced results")
	}

	summaries := make([]metrics.Summary, 0, len(results))
	for _, r := range results {
		summaries = append(summaries, metrics.Compute(r, cfg.Simulation.InitialCash, cfg.Simulation.AnnualizationFactor))
	}

	doc := report.Build(results, summaries, cfg.Simulation.InitialCash, start, end, time.Now())
	var sink report.Sink = &report.JSONSink{Out: os.Stdout}
	if *outPath != "" {
		sink = &report.FileSink{Path: *outPath}
	}
	if err := sink.Write(doc); err != nil {
		log.Fatalf("failed to write report: %v", err)
	}

	for _, ranking := range doc.Rankings {
		logger.Info("ranking",
			"timeframe", ranking.Timeframe,
			"best_by_return", ranking.BestByReturn,
			"worst_by_return", ranking.WorstByReturn,
			"best_by_win_rate", ranking.BestByWinRate,
			"worst_by_win_rate", ranking.WorstByWinRate)
	}
	logger.Info("run complete", "results", len(results))
}

// buildFeed wires the candidate source: the AI provider behind a
// query-keyed cache when an API key is configured, otherwise an empty
// static feed for offline replays.
func buildFeed(cfg *config.Config, cache *store.SQLiteStore, logger *slog.Logger) candidates.Feed {
	oai := cfg.Providers.OpenAI
	if oai.APIKey == "" {
		logger.Warn("no OpenAI API key configured, using empty static feed")
		return candidates.NewStaticFeed(nil)
	}

	timeout := time.Duration(oai.TimeoutSeconds) * time.Second
	chain := candidates.NewChain(timeout, logger,
		candidates.NewOpenAIFeed(oai.APIKey, oai.Model, oai.MaxStocks, oai.RateLimitPerMin))
	return candidates.NewCachingFeed(chain, cache, logger)
}
