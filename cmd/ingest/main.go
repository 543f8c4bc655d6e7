// Package main ingests live trades from a websocket feed, bucketing
// them into bars and persisting the bar history for later backtests.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"btc-strategy-lab/internal/domain"
	"btc-strategy-lab/internal/marketdata"
	"btc-strategy-lab/internal/observability"
	"btc-strategy-lab/internal/storage"
	chstore "btc-strategy-lab/internal/storage/clickhouse"
	"btc-strategy-lab/internal/storage/memory"
	"btc-strategy-lab/internal/storage/migrations"
)

func main() {
	// Parse flags
	feedURL := flag.String("feed-url", os.Getenv("FEED_URL"), "Websocket trade stream URL")
	symbol := flag.String("symbol", "BTCUSDT", "Symbol label for persisted bars")
	barInterval := flag.Duration("bar-interval", time.Minute, "Bar width")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of ClickHouse")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	if *feedURL == "" {
		logger.Fatal("--feed-url is required")
	}
	if !*useMemory && *clickhouseDSN == "" {
		logger.Fatal("--clickhouse-dsn is required (use --use-memory for in-memory storage)")
	}

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()

		sig = <-sigCh
		logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
		os.Exit(1)
	}()

	var barStore storage.BarStore
	if *useMemory {
		barStore = memory.NewBarStore()
	} else {
		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("connect to clickhouse: %v", err)
		}
		defer conn.Close()
		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			logger.Fatalf("clickhouse migrations: %v", err)
		}
		barStore = chstore.NewBarStore(conn)
	}

	liveCfg := marketdata.DefaultLiveConfig(*feedURL)
	liveCfg.BarIntervalMs = barInterval.Milliseconds()
	src := marketdata.NewLiveSource(liveCfg)
	defer src.Close()

	logger.Printf("Ingesting %s bars for %s from %s", barInterval, *symbol, *feedURL)

	ingested := 0
	for {
		bar, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				break
			}
			logger.Fatalf("Feed error: %v", err)
		}

		if err := barStore.InsertBars(ctx, *symbol, []domain.Bar{bar}); err != nil {
			// Reconnects can rebuild a bar that was already persisted.
			if errors.Is(err, storage.ErrDuplicateKey) {
				continue
			}
			logger.Printf("Persist bar: %v", err)
			continue
		}
		observability.RecordBarIngested()
		if ingested++; ingested%60 == 0 {
			logger.Printf("Ingested %d bars (last close %.2f)", ingested, bar.Close)
		}
	}

	logger.Printf("Shutdown complete (%d bars ingested)", ingested)
}
