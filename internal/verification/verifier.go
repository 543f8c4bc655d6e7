// Package verification checks completed results against the engine's
// published invariants: ledger ordering, metric consistency and value
// ranges. It is used by tests and the backtest CLI's --verify flag.
package verification

import (
	"fmt"
	"math"

	"btc-strategy-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// Violation is one failed invariant on a strategy result.
type Violation struct {
	Strategy string // strategy name
	Field    string // offending field or trade index
	Message  string // what was expected
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s: %s", v.Strategy, v.Field, v.Message)
}

// Report contains results for run-level verification.
type Report struct {
	Strategies int         // strategies checked
	Clean      int         // strategies with no violations
	Violations []Violation // all violations found
}

// OK reports whether every checked invariant held.
func (r *Report) OK() bool {
	return len(r.Violations) == 0
}

// VerifyRun checks every successful strategy result in a run.
// Failed results are skipped; their error is already recorded.
func VerifyRun(run *domain.TestRun, initialCapital float64) *Report {
	report := &Report{}
	for _, result := range run.Results {
		if result.Failed {
			continue
		}
		report.Strategies++
		violations := VerifyResult(result, initialCapital)
		if len(violations) == 0 {
			report.Clean++
		}
		report.Violations = append(report.Violations, violations...)
	}
	return report
}

// VerifyResult checks one strategy result. Returns nil when all
// invariants hold.
func VerifyResult(r *domain.StrategyResult, initialCapital float64) []Violation {
	var violations []Violation
	add := func(field, format string, args ...any) {
		violations = append(violations, Violation{
			Strategy: r.StrategyName,
			Field:    field,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	// Ledger invariants.
	var pnlSum, feeSum float64
	wins := 0
	prevExit := int64(math.MinInt64)
	for i, t := range r.Trades {
		field := fmt.Sprintf("trades[%d]", i)
		if t.ExitTimeMs <= t.EntryTimeMs {
			add(field, "exit %d not after entry %d", t.ExitTimeMs, t.EntryTimeMs)
		}
		if t.Quantity <= 0 {
			add(field, "quantity %v not positive", t.Quantity)
		}
		if t.Side != domain.SideLong && t.Side != domain.SideShort {
			add(field, "side %q neither LONG nor SHORT", t.Side)
		}
		if t.ExitTimeMs < prevExit {
			add(field, "ledger not chronological: exit %d before %d", t.ExitTimeMs, prevExit)
		}
		prevExit = t.ExitTimeMs
		pnlSum += t.RealizedPnL
		feeSum += t.Fees
		if t.RealizedPnL > 0 {
			wins++
		}
	}

	// Metric consistency.
	m := r.Metrics
	if m.TotalTrades != len(r.Trades) {
		add("total_trades", "%d does not equal ledger length %d", m.TotalTrades, len(r.Trades))
	}
	if math.Abs(m.TotalPnL-pnlSum) > FloatTolerance {
		add("total_pnl", "%v does not equal ledger sum %v", m.TotalPnL, pnlSum)
	}
	if math.Abs(m.TotalFees-feeSum) > FloatTolerance {
		add("total_fees", "%v does not equal ledger sum %v", m.TotalFees, feeSum)
	}
	if m.WinningTrades != wins {
		add("winning_trades", "%d does not equal ledger count %d", m.WinningTrades, wins)
	}
	if m.WinningTrades+m.LosingTrades != m.TotalTrades {
		add("losing_trades", "wins %d + losses %d != trades %d", m.WinningTrades, m.LosingTrades, m.TotalTrades)
	}

	// Value ranges.
	if m.WinRate < 0 || m.WinRate > 100 {
		add("win_rate", "%v outside [0, 100]", m.WinRate)
	}
	if m.TotalTrades == 0 && m.WinRate != 0 {
		add("win_rate", "%v nonzero with no trades", m.WinRate)
	}
	if m.MaxDrawdown < 0 || m.MaxDrawdown > 100 {
		add("max_drawdown", "%v outside [0, 100]", m.MaxDrawdown)
	}
	if initialCapital > 0 {
		wantROI := m.TotalPnL / initialCapital * 100
		if math.Abs(m.ROI-wantROI) > FloatTolerance {
			add("roi", "%v does not equal pnl/capital*100 = %v", m.ROI, wantROI)
		}
	}

	// Equity curve timestamps strictly increasing.
	for i := 1; i < len(r.EquityCurve); i++ {
		if r.EquityCurve[i].TimestampMs <= r.EquityCurve[i-1].TimestampMs {
			add(fmt.Sprintf("equity_curve[%d]", i), "timestamp %d not after %d",
				r.EquityCurve[i].TimestampMs, r.EquityCurve[i-1].TimestampMs)
			break
		}
	}

	return violations
}
