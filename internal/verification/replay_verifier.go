package verification

import (
	"context"
	"fmt"

	"btc-strategy-lab/internal/backtest"
	"btc-strategy-lab/internal/domain"
	"btc-strategy-lab/internal/marketdata"
	"btc-strategy-lab/internal/strategy"
)

// DeterminismResult is the outcome of replaying a strategy twice over
// the same bars.
type DeterminismResult struct {
	Strategy    string
	Match       bool
	Divergences []Violation
}

// VerifyDeterminism replays one strategy configuration twice over the
// same bar sequence and compares the results field by field. Identical
// input must produce identical metrics and ledgers.
func VerifyDeterminism(ctx context.Context, bars []domain.Bar, cfg domain.StrategyConfig, opts backtest.Options) (*DeterminismResult, error) {
	first, err := replayOnce(ctx, bars, cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("first replay: %w", err)
	}
	second, err := replayOnce(ctx, bars, cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("second replay: %w", err)
	}

	res := &DeterminismResult{Strategy: first.StrategyName}
	add := func(field, format string, args ...any) {
		res.Divergences = append(res.Divergences, Violation{
			Strategy: res.Strategy,
			Field:    field,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	if first.Metrics != second.Metrics {
		add("metrics", "%+v != %+v", first.Metrics, second.Metrics)
	}
	if len(first.Trades) != len(second.Trades) {
		add("trades", "ledger lengths differ: %d != %d", len(first.Trades), len(second.Trades))
	} else {
		for i := range first.Trades {
			if *first.Trades[i] != *second.Trades[i] {
				add(fmt.Sprintf("trades[%d]", i), "%+v != %+v", *first.Trades[i], *second.Trades[i])
			}
		}
	}
	if len(first.EquityCurve) != len(second.EquityCurve) {
		add("equity_curve", "lengths differ: %d != %d", len(first.EquityCurve), len(second.EquityCurve))
	}

	res.Match = len(res.Divergences) == 0
	return res, nil
}

func replayOnce(ctx context.Context, bars []domain.Bar, cfg domain.StrategyConfig, opts backtest.Options) (*domain.StrategyResult, error) {
	strat, err := strategy.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backtest.Run(ctx, marketdata.NewSliceSource(bars), strat, opts)
}
