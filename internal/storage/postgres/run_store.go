package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"btc-strategy-lab/internal/domain"
	"btc-strategy-lab/internal/storage"
)

// RunStore implements storage.ResultStore using Postgres. A run is one
// row in test_runs plus one strategy_results row per strategy; the
// trade ledger and equity curve are stored as JSONB alongside the
// flattened metric columns.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new Postgres-backed result store.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

var _ storage.ResultStore = (*RunStore)(nil)

// SaveRun stores a completed run atomically.
func (s *RunStore) SaveRun(ctx context.Context, run *domain.TestRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO test_runs (run_id, started_at_ms, completed_at_ms, partial)
		VALUES ($1, $2, $3, $4)
	`, run.RunID, run.StartedAtMs, run.CompletedAtMs, run.Partial)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert test_run: %w", err)
	}

	for name, result := range run.Results {
		trades, err := json.Marshal(result.Trades)
		if err != nil {
			return fmt.Errorf("marshal trades for %s: %w", name, err)
		}
		curve, err := json.Marshal(result.EquityCurve)
		if err != nil {
			return fmt.Errorf("marshal equity curve for %s: %w", name, err)
		}

		m := result.Metrics
		_, err = tx.Exec(ctx, `
			INSERT INTO strategy_results (
				run_id, strategy_name, failed, error,
				total_pnl, roi, win_rate, total_trades, max_drawdown,
				winning_trades, losing_trades, total_fees,
				trades, equity_curve
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`, run.RunID, name, result.Failed, result.Error,
			m.TotalPnL, m.ROI, m.WinRate, m.TotalTrades, m.MaxDrawdown,
			m.WinningTrades, m.LosingTrades, m.TotalFees,
			trades, curve)
		if err != nil {
			return fmt.Errorf("insert strategy_result %s: %w", name, err)
		}
	}

	return tx.Commit(ctx)
}

// LatestRun returns the most recently started run.
func (s *RunStore) LatestRun(ctx context.Context) (*domain.TestRun, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT run_id, started_at_ms, completed_at_ms, partial
		FROM test_runs
		ORDER BY started_at_ms DESC
		LIMIT 1
	`)
	return s.scanRun(ctx, rowScanner{row})
}

// GetRun retrieves a run by its ID.
func (s *RunStore) GetRun(ctx context.Context, runID string) (*domain.TestRun, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT run_id, started_at_ms, completed_at_ms, partial
		FROM test_runs
		WHERE run_id = $1
	`, runID)
	return s.scanRun(ctx, rowScanner{row})
}

// ListRuns returns up to limit runs, most recently started first.
// Results maps are not loaded; use GetRun for the full payload.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]*domain.TestRun, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, started_at_ms, completed_at_ms, partial
		FROM test_runs
		ORDER BY started_at_ms DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query test_runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.TestRun
	for rows.Next() {
		var run domain.TestRun
		if err := rows.Scan(&run.RunID, &run.StartedAtMs, &run.CompletedAtMs, &run.Partial); err != nil {
			return nil, fmt.Errorf("scan test_run: %w", err)
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// rowScanner narrows pgx.Row for scanRun.
type rowScanner struct {
	row interface{ Scan(dest ...any) error }
}

func (s *RunStore) scanRun(ctx context.Context, row rowScanner) (*domain.TestRun, error) {
	var run domain.TestRun
	err := row.row.Scan(&run.RunID, &run.StartedAtMs, &run.CompletedAtMs, &run.Partial)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("scan test_run: %w", err)
	}

	results, err := s.loadResults(ctx, run.RunID)
	if err != nil {
		return nil, err
	}
	run.Results = results
	return &run, nil
}

func (s *RunStore) loadResults(ctx context.Context, runID string) (map[string]*domain.StrategyResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT strategy_name, failed, error,
			total_pnl, roi, win_rate, total_trades, max_drawdown,
			winning_trades, losing_trades, total_fees,
			trades, equity_curve
		FROM strategy_results
		WHERE run_id = $1
		ORDER BY strategy_name
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query strategy_results: %w", err)
	}
	defer rows.Close()

	results := make(map[string]*domain.StrategyResult)
	for rows.Next() {
		var r domain.StrategyResult
		var trades, curve []byte
		err := rows.Scan(&r.StrategyName, &r.Failed, &r.Error,
			&r.Metrics.TotalPnL, &r.Metrics.ROI, &r.Metrics.WinRate,
			&r.Metrics.TotalTrades, &r.Metrics.MaxDrawdown,
			&r.Metrics.WinningTrades, &r.Metrics.LosingTrades, &r.Metrics.TotalFees,
			&trades, &curve)
		if err != nil {
			return nil, fmt.Errorf("scan strategy_result: %w", err)
		}
		if err := json.Unmarshal(trades, &r.Trades); err != nil {
			return nil, fmt.Errorf("unmarshal trades for %s: %w", r.StrategyName, err)
		}
		if err := json.Unmarshal(curve, &r.EquityCurve); err != nil {
			return nil, fmt.Errorf("unmarshal equity curve for %s: %w", r.StrategyName, err)
		}
		results[r.StrategyName] = &r
	}
	return results, rows.Err()
}
