package backtest

import (
	"context"
	"errors"
	"io"

	"btc-strategy-lab/internal/domain"
	"btc-strategy-lab/internal/marketdata"
	"btc-strategy-lab/internal/strategy"
)

// Run drives every bar from the source through a fresh engine for the
// strategy. Cancellation is cooperative: the context is checked between
// bars, and a cancelled run still returns the result accumulated so
// far alongside the context error so callers can mark it partial.
func Run(ctx context.Context, src marketdata.BarSource, strat strategy.Strategy, opts Options) (*domain.StrategyResult, error) {
	engine, err := NewEngine(strat, opts)
	if err != nil {
		return nil, err
	}

	for {
		bar, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return engine.Finish(), nil
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return engine.Finish(), err
			}
			return nil, err
		}

		if err := engine.OnBar(bar); err != nil {
			return nil, err
		}
	}
}
