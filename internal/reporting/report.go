package reporting

import "time"

// Report is the rendered summary of one test run.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string
	StartedAt   time.Time
	CompletedAt time.Time
	Partial     bool

	// One row per strategy, sorted by name.
	Strategies []StrategyRow
}

// StrategyRow is one row of the strategy summary table.
type StrategyRow struct {
	Name            string
	TotalPnL        float64
	ROI             float64
	WinRate         float64
	TotalTrades     int
	MaxDrawdown     float64
	WinningTrades   int
	LosingTrades    int
	TotalFees       float64
	DegradedSignals int
	Failed          bool
	Error           string
}
