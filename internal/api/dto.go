package api

import (
	"math"

	"btc-strategy-lab/internal/domain"
)

// MetricsDTO is the dashboard-facing metric block. Percentages are
// rounded to two decimals for display.
type MetricsDTO struct {
	TotalPnL    float64 `json:"total_pnl"`
	ROI         float64 `json:"roi"`
	WinRate     float64 `json:"win_rate"`
	TotalTrades int     `json:"total_trades"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

// StrategyResultDTO is one entry of the results map keyed by strategy
// name. Failed strategies carry the error message instead of trades.
type StrategyResultDTO struct {
	Metrics MetricsDTO `json:"metrics"`
	Failed  bool       `json:"failed,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// RunResponse is the body of /start_test and /get_latest_results:
// a map from strategy name to its result.
type RunResponse map[string]StrategyResultDTO

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func toMetricsDTO(m domain.Metrics) MetricsDTO {
	return MetricsDTO{
		TotalPnL:    round2(m.TotalPnL),
		ROI:         round2(m.ROI),
		WinRate:     round2(m.WinRate),
		TotalTrades: m.TotalTrades,
		MaxDrawdown: round2(m.MaxDrawdown),
	}
}

func toRunResponse(run *domain.TestRun) RunResponse {
	resp := make(RunResponse, len(run.Results))
	for name, r := range run.Results {
		resp[name] = StrategyResultDTO{
			Metrics: toMetricsDTO(r.Metrics),
			Failed:  r.Failed,
			Error:   r.Error,
		}
	}
	return resp
}
