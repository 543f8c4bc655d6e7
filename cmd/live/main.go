// Package main evaluates the configured strategies against a live
// trade feed until interrupted, then prints and persists the results.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"btc-strategy-lab/internal/config"
	"btc-strategy-lab/internal/marketdata"
	"btc-strategy-lab/internal/orchestrator"
	"btc-strategy-lab/internal/reporting"
	"btc-strategy-lab/internal/storage"
	"btc-strategy-lab/internal/storage/memory"
	"btc-strategy-lab/internal/storage/migrations"
	pgstore "btc-strategy-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	feedURL := flag.String("feed-url", os.Getenv("FEED_URL"), "Websocket trade stream URL")
	configPath := flag.String("config", "", "Path to YAML config file")
	barInterval := flag.Duration("bar-interval", time.Minute, "Bar width")
	duration := flag.Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
	maxCurvePoints := flag.Int("max-curve-points", 10_000, "Equity curve samples retained per strategy")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "Persist the run to PostgreSQL (optional)")
	outputJSON := flag.Bool("json", false, "Output as JSON instead of Markdown")

	flag.Parse()

	logger := log.New(os.Stderr, "[live] ", log.LstdFlags)

	if *feedURL == "" {
		logger.Fatal("--feed-url is required")
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Fatalf("Failed to load config: %v", err)
		}
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if *duration > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, *duration)
		defer timeoutCancel()
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, finishing run...", sig)
		cancel()

		sig = <-sigCh
		logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
		os.Exit(1)
	}()

	var store storage.ResultStore = memory.NewResultStore(0)
	if *postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("postgres migrations: %v", err)
		}
		store = pgstore.NewRunStore(pool)
	}

	orch, err := orchestrator.New(orchestrator.Options{
		Strategies:     cfg.Strategies,
		Simulation:     cfg.SimulationConfig(),
		MaxGapMs:       cfg.Data.MaxGapMs,
		MaxCurvePoints: *maxCurvePoints,
		ResultStore:    store,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create orchestrator: %v", err)
	}

	liveCfg := marketdata.DefaultLiveConfig(*feedURL)
	liveCfg.BarIntervalMs = barInterval.Milliseconds()
	src := marketdata.NewLiveSource(liveCfg)
	defer src.Close()

	logger.Printf("Evaluating %d strategies on %s bars from %s", len(cfg.Strategies), barInterval, *feedURL)

	run, err := orch.RunStream(ctx, src)
	if err != nil {
		logger.Fatalf("Live run failed: %v", err)
	}
	if run.Partial {
		logger.Println("Run stopped before the feed ended; results are partial")
	}

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(run); err != nil {
			logger.Fatalf("Failed to encode results: %v", err)
		}
		return
	}
	report := reporting.NewGenerator(store).FromRun(run)
	fmt.Print(reporting.RenderMarkdown(report))
}
