// Package main runs a one-shot backtest over a CSV of historical bars
// and prints the per-strategy results.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"btc-strategy-lab/internal/config"
	"btc-strategy-lab/internal/domain"
	"btc-strategy-lab/internal/marketdata"
	"btc-strategy-lab/internal/orchestrator"
	"btc-strategy-lab/internal/reporting"
	"btc-strategy-lab/internal/storage/memory"
	"btc-strategy-lab/internal/verification"
)

func main() {
	// Parse flags
	barsFile := flag.String("bars", "", "CSV of historical bars (required)")
	configPath := flag.String("config", "", "Path to YAML config file")
	outputDir := flag.String("output-dir", "", "Directory for trade CSV exports (optional)")
	outputJSON := flag.Bool("json", false, "Output as JSON instead of Markdown")
	verify := flag.Bool("verify", false, "Check result invariants after the run")

	// Execution overrides
	initialCapital := flag.Float64("initial-capital", 0, "Override simulated starting capital")
	positionFraction := flag.Float64("position-fraction", 0, "Override capital fraction per entry")
	feePct := flag.Float64("fee-pct", -1, "Override fee percentage per fill")

	flag.Parse()

	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	if *barsFile == "" {
		logger.Fatal("--bars is required")
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Fatalf("Failed to load config: %v", err)
		}
	}
	if *initialCapital > 0 {
		cfg.Simulation.InitialCapital = *initialCapital
	}
	if *positionFraction > 0 {
		cfg.Simulation.PositionFraction = *positionFraction
	}
	if *feePct >= 0 {
		cfg.Simulation.FeePct = *feePct
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	bars, err := marketdata.LoadCSV(*barsFile)
	if err != nil {
		logger.Fatalf("Failed to load bars: %v", err)
	}
	logger.Printf("Loaded %d bars from %s", len(bars), *barsFile)

	store := memory.NewResultStore(0)
	orch, err := orchestrator.New(orchestrator.Options{
		Strategies:     cfg.Strategies,
		Simulation:     cfg.SimulationConfig(),
		MaxGapMs:       cfg.Data.MaxGapMs,
		MaxCurvePoints: cfg.Data.MaxCurvePoints,
		ResultStore:    store,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create orchestrator: %v", err)
	}

	run, err := orch.Run(ctx, bars)
	if err != nil {
		logger.Fatalf("Backtest failed: %v", err)
	}
	if run.Partial {
		logger.Println("Run was cancelled; results are partial")
	}

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(run); err != nil {
			logger.Fatalf("Failed to encode results: %v", err)
		}
	} else {
		report := reporting.NewGenerator(store).FromRun(run)
		fmt.Print(reporting.RenderMarkdown(report))
	}

	if *outputDir != "" {
		if err := exportTrades(*outputDir, run); err != nil {
			logger.Fatalf("Failed to export trades: %v", err)
		}
		logger.Printf("Trade ledgers written to %s", *outputDir)
	}

	if *verify {
		report := verification.VerifyRun(run, cfg.Simulation.InitialCapital)
		if !report.OK() {
			for _, v := range report.Violations {
				logger.Printf("Invariant violation: %s", v)
			}
			logger.Fatalf("Verification failed: %d violations", len(report.Violations))
		}
		logger.Printf("Verification passed (%d strategies checked)", report.Strategies)
	}
}

// exportTrades writes one trades CSV per strategy.
func exportTrades(dir string, run *domain.TestRun) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for name, result := range run.Results {
		if result.Failed {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("trades_%s.csv", sanitize(name)))
		if err := reporting.WriteTradesCSV(path, result); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

// sanitize makes a strategy name safe for use in a file name.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
