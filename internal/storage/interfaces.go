package storage

import (
	"context"

	"btc-strategy-lab/internal/domain"
)

// ResultStore persists completed test runs and serves the most recent
// one to the API. Runs are immutable once saved.
type ResultStore interface {
	// SaveRun stores a completed run. Returns ErrDuplicateKey if run_id exists.
	SaveRun(ctx context.Context, run *domain.TestRun) error

	// LatestRun returns the most recently started run.
	// Returns ErrNotFound when no run has completed yet.
	LatestRun(ctx context.Context) (*domain.TestRun, error)

	// GetRun retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetRun(ctx context.Context, runID string) (*domain.TestRun, error)

	// ListRuns returns up to limit runs, most recently started first.
	ListRuns(ctx context.Context, limit int) ([]*domain.TestRun, error)
}

// BarStore persists OHLCV history per symbol.
type BarStore interface {
	// InsertBars adds bars for a symbol. Duplicate timestamps within the
	// batch fail it entirely with ErrDuplicateKey.
	InsertBars(ctx context.Context, symbol string, bars []domain.Bar) error

	// GetRange retrieves bars for a symbol within [fromMs, toMs]
	// (inclusive), ordered by timestamp ASC.
	GetRange(ctx context.Context, symbol string, fromMs, toMs int64) ([]domain.Bar, error)
}
