package domain

// Metrics holds the published performance numbers for one strategy run.
// TotalPnL is in currency units; ROI, WinRate and MaxDrawdown are
// percentages. WinRate is 0 (not NaN) when TotalTrades is 0.
type Metrics struct {
	TotalPnL    float64 `json:"total_pnl"`
	ROI         float64 `json:"roi"`
	WinRate     float64 `json:"win_rate"`
	TotalTrades int     `json:"total_trades"`
	MaxDrawdown float64 `json:"max_drawdown"`

	// Supporting figures, not part of the dashboard contract.
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	TotalFees     float64 `json:"total_fees"`
}

// StrategyResult is the derived, read-only outcome of replaying one
// strategy over a bar sequence: its trade ledger in chronological order,
// the (possibly downsampled) equity curve, and computed metrics.
type StrategyResult struct {
	StrategyName string        `json:"strategy_name"`
	Trades       []*Trade      `json:"trades"`
	EquityCurve  []EquityPoint `json:"equity_curve"`
	Metrics      Metrics       `json:"metrics"`

	// DegradedSignals counts entry signals skipped for lack of capital.
	DegradedSignals int `json:"degraded_signals,omitempty"`

	// Failed marks a per-strategy data error; Error carries the message.
	// Sibling strategies in the same run are unaffected.
	Failed bool   `json:"failed,omitempty"`
	Error  string `json:"error,omitempty"`
}

// TestRun is one complete backtest execution across one or more strategies.
// Immutable after completion; the unit persisted by the results store.
type TestRun struct {
	RunID         string                     `json:"run_id"`
	StartedAtMs   int64                      `json:"started_at_ms"`
	CompletedAtMs int64                      `json:"completed_at_ms"`
	Partial       bool                       `json:"partial"` // cancelled before all bars were processed
	Results       map[string]*StrategyResult `json:"results"` // keyed by strategy name, keys unique
}
