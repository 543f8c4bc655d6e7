// Package reporting renders completed test runs as Markdown summaries
// and CSV trade exports.
package reporting

import (
	"context"
	"sort"
	"time"

	"btc-strategy-lab/internal/domain"
	"btc-strategy-lab/internal/storage"
)

// Generator produces reports from stored runs.
type Generator struct {
	store storage.ResultStore
	now   func() time.Time // injectable clock for deterministic output
}

// NewGenerator creates a report generator over a result store.
func NewGenerator(store storage.ResultStore) *Generator {
	return &Generator{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Latest builds a report for the most recent run.
func (g *Generator) Latest(ctx context.Context) (*Report, error) {
	run, err := g.store.LatestRun(ctx)
	if err != nil {
		return nil, err
	}
	return g.FromRun(run), nil
}

// ForRun builds a report for a specific run id.
func (g *Generator) ForRun(ctx context.Context, runID string) (*Report, error) {
	run, err := g.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return g.FromRun(run), nil
}

// FromRun builds a report from an in-memory run. Rows are sorted by
// strategy name so output is stable across invocations.
func (g *Generator) FromRun(run *domain.TestRun) *Report {
	rows := make([]StrategyRow, 0, len(run.Results))
	for name, r := range run.Results {
		rows = append(rows, StrategyRow{
			Name:            name,
			TotalPnL:        r.Metrics.TotalPnL,
			ROI:             r.Metrics.ROI,
			WinRate:         r.Metrics.WinRate,
			TotalTrades:     r.Metrics.TotalTrades,
			MaxDrawdown:     r.Metrics.MaxDrawdown,
			WinningTrades:   r.Metrics.WinningTrades,
			LosingTrades:    r.Metrics.LosingTrades,
			TotalFees:       r.Metrics.TotalFees,
			DegradedSignals: r.DegradedSignals,
			Failed:          r.Failed,
			Error:           r.Error,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	return &Report{
		GeneratedAt: g.now(),
		RunID:       run.RunID,
		StartedAt:   time.UnixMilli(run.StartedAtMs).UTC(),
		CompletedAt: time.UnixMilli(run.CompletedAtMs).UTC(),
		Partial:     run.Partial,
		Strategies:  rows,
	}
}
