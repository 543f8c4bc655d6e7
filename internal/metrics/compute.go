package metrics

import (
	"errors"

	"btc-strategy-lab/internal/domain"
)

// ErrInvalidCapital is returned when metrics are requested against a
// non-positive initial capital.
var ErrInvalidCapital = errors.New("initial capital must be positive")

// Compute calculates performance metrics from a closed trade ledger and
// an equity curve. Trades must be in chronological order; the curve
// must cover the full run. An empty run yields all-zero metrics, never
// NaN or Inf.
func Compute(trades []*domain.Trade, curve []domain.EquityPoint, initialCapital float64) (domain.Metrics, error) {
	if initialCapital <= 0 {
		return domain.Metrics{}, ErrInvalidCapital
	}
	return FromLedger(trades, MaxDrawdown(curve), initialCapital), nil
}

// FromLedger assembles metrics from a trade ledger and a pre-computed
// max drawdown percentage. The engine uses this form with a streaming
// DrawdownTracker so the stored curve can be downsampled freely.
func FromLedger(trades []*domain.Trade, maxDrawdownPct, initialCapital float64) domain.Metrics {
	m := domain.Metrics{
		TotalTrades: len(trades),
		MaxDrawdown: maxDrawdownPct,
	}

	for _, t := range trades {
		m.TotalPnL += t.RealizedPnL
		m.TotalFees += t.Fees
		if t.RealizedPnL > 0 {
			m.WinningTrades++
		} else {
			m.LosingTrades++
		}
	}

	m.ROI = m.TotalPnL / initialCapital * 100
	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
	}
	return m
}

// MaxDrawdown returns the worst peak-to-trough decline of the curve as
// a percentage of the peak.
func MaxDrawdown(curve []domain.EquityPoint) float64 {
	var tracker DrawdownTracker
	for _, p := range curve {
		tracker.Observe(p.Equity)
	}
	return tracker.MaxDrawdownPct()
}
