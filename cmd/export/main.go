// Package main renders the most recent stored test run (or a specific
// run id) as a Markdown summary plus per-strategy trade CSVs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"btc-strategy-lab/internal/domain"
	"btc-strategy-lab/internal/reporting"
	"btc-strategy-lab/internal/storage"
	"btc-strategy-lab/internal/storage/migrations"
	pgstore "btc-strategy-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	outputDir := flag.String("output-dir", "reports", "Output directory for generated files")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	runID := flag.String("run-id", "", "Report a specific run instead of the latest")
	flag.Parse()

	ctx := context.Background()

	if *postgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn is required (reports read persisted runs)")
		os.Exit(1)
	}

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to postgres: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "Error running migrations: %v\n", err)
		os.Exit(1)
	}
	store := pgstore.NewRunStore(pool)

	run, err := loadRun(ctx, store, *runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Fprintln(os.Stderr, "No completed test run found")
		} else {
			fmt.Fprintf(os.Stderr, "Error loading run: %v\n", err)
		}
		os.Exit(1)
	}

	if err := writeReport(*outputDir, store, run); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Report for run %s written to %s\n", run.RunID, *outputDir)
}

func loadRun(ctx context.Context, store storage.ResultStore, runID string) (*domain.TestRun, error) {
	if runID != "" {
		return store.GetRun(ctx, runID)
	}
	return store.LatestRun(ctx)
}

func writeReport(dir string, store storage.ResultStore, run *domain.TestRun) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	report := reporting.NewGenerator(store).FromRun(run)
	md := reporting.RenderMarkdown(report)
	if err := os.WriteFile(filepath.Join(dir, "REPORT.md"), []byte(md), 0o644); err != nil {
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
