// Package main runs the backtest service: the HTTP API for the
// dashboard, optional live bar ingestion from a trade feed, and
// Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"btc-strategy-lab/internal/api"
	"btc-strategy-lab/internal/config"
	"btc-strategy-lab/internal/domain"
	"btc-strategy-lab/internal/marketdata"
	"btc-strategy-lab/internal/observability"
	"btc-strategy-lab/internal/orchestrator"
	"btc-strategy-lab/internal/storage"
	chstore "btc-strategy-lab/internal/storage/clickhouse"
	"btc-strategy-lab/internal/storage/memory"
	"btc-strategy-lab/internal/storage/migrations"
	pgstore "btc-strategy-lab/internal/storage/postgres"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	barsFile := flag.String("bars-file", "", "CSV of historical bars (overrides config)")
	feedURL := flag.String("feed-url", "", "Websocket trade feed URL (overrides config)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	applyOverrides(cfg, *addr, *barsFile, *feedURL, *postgresDSN, *clickhouseDSN, *useMemory)
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultStore, barStore, cleanup, err := createStores(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	orch, err := orchestrator.New(orchestrator.Options{
		Strategies:     cfg.Strategies,
		Simulation:     cfg.SimulationConfig(),
		MaxGapMs:       cfg.Data.MaxGapMs,
		MaxCurvePoints: cfg.Data.MaxCurvePoints,
		ResultStore:    resultStore,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create orchestrator: %v", err)
	}

	srv, err := api.New(api.Options{
		Orchestrator: orch,
		Store:        resultStore,
		LoadBars:     barLoader(cfg, barStore),
		Logger:       logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create API server: %v", err)
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Handler(),
	}

	// Optional live bar ingestion from the trade feed.
	feedDone := make(chan struct{})
	if cfg.Data.FeedURL != "" {
		go runFeed(ctx, cfg, barStore, logger, feedDone)
	} else {
		close(feedDone)
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown: %v", err)
		}

		// Second signal forces immediate exit.
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(cfg.Server.ShutdownTimeout):
		}
	}()

	logger.Printf("Listening on %s (%d strategies, %s storage)",
		cfg.Server.Addr, len(cfg.Strategies), cfg.Storage.Backend)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server: %v", err)
	}

	<-feedDone
	logger.Println("Shutdown complete")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// applyOverrides folds command-line overrides into the loaded config.
func applyOverrides(cfg *config.Config, addr, barsFile, feedURL, postgresDSN, clickhouseDSN string, useMemory bool) {
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if barsFile != "" {
		cfg.Data.BarsFile = barsFile
	}
	if feedURL != "" {
		cfg.Data.FeedURL = feedURL
	}
	if postgresDSN != "" {
		cfg.Storage.PostgresDSN = postgresDSN
		cfg.Storage.Backend = config.BackendPostgres
	}
	if clickhouseDSN != "" {
		cfg.Storage.ClickhouseDSN = clickhouseDSN
	}
	if useMemory {
		cfg.Storage.Backend = config.BackendMemory
	}
}

// createStores builds the result store and, when available, a bar store
// for ingesting and replaying live data. The bar store may be nil.
func createStores(ctx context.Context, cfg *config.Config) (storage.ResultStore, storage.BarStore, func(), error) {
	if cfg.Storage.Backend == config.BackendMemory {
		return memory.NewResultStore(cfg.Storage.MaxRuns), memory.NewBarStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}
	resultStore := pgstore.NewRunStore(pool)

	// ClickHouse is optional; without it bar history is kept in memory.
	if cfg.Storage.ClickhouseDSN == "" {
		return resultStore, memory.NewBarStore(), pool.Close, nil
	}

	chConn, err := chstore.NewConn(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	if err := migrations.RunClickhouseMigrations(ctx, chConn); err != nil {
		chConn.Close()
		pool.Close()
		return nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return resultStore, chstore.NewBarStore(chConn), cleanup, nil
}

// barLoader supplies bars for /start_test: from the configured CSV
// when set, otherwise from persisted bar history.
func barLoader(cfg *config.Config, barStore storage.BarStore) api.BarLoader {
	return func(ctx context.Context) ([]domain.Bar, error) {
		if cfg.Data.BarsFile != "" {
			return marketdata.LoadCSV(cfg.Data.BarsFile)
		}
		if barStore != nil {
			return barStore.GetRange(ctx, cfg.Data.Symbol, 0, math.MaxInt64)
		}
		return nil, errors.New("no bar source configured: set data.bars_file or a feed")
	}
}

// runFeed consumes the live trade feed, persisting each completed bar.
func runFeed(ctx context.Context, cfg *config.Config, barStore storage.BarStore, logger *log.Logger, done chan<- struct{}) {
	defer close(done)

	liveCfg := marketdata.DefaultLiveConfig(cfg.Data.FeedURL)
	liveCfg.BarIntervalMs = cfg.Data.BarIntervalMs
	src := marketdata.NewLiveSource(liveCfg)
	defer src.Close()

	logger.Printf("Ingesting live bars from %s", cfg.Data.FeedURL)
	for {
		bar, err := src.Next(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Printf("Feed ended: %v", err)
			}
			return
		}
		if err := barStore.InsertBars(ctx, cfg.Data.Symbol, []domain.Bar{bar}); err != nil {
			// Duplicate timestamps can happen across reconnects.
			if !errors.Is(err, storage.ErrDuplicateKey) {
				logger.Printf("Persist bar: %v", err)
			}
			continue
		}
		observability.RecordBarIngested()
	}
}

// loadEnvFile loads KEY=VALUE pairs from .env without overriding
// variables already present in the environment.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
