package backtest

import (
	"fmt"

	"btc-strategy-lab/internal/domain"
	"btc-strategy-lab/internal/metrics"
	"btc-strategy-lab/internal/simulation"
	"btc-strategy-lab/internal/strategy"
)

// Options configure one engine run.
type Options struct {
	// Simulation holds the execution parameters. Validated by NewEngine.
	Simulation simulation.Config

	// MaxGapMs rejects bar streams with holes larger than this many
	// milliseconds between consecutive bars. 0 disables the check.
	MaxGapMs int64

	// MaxCurvePoints bounds the stored equity curve; older points are
	// downsampled once the cap is reached. 0 keeps the full curve.
	MaxCurvePoints int
}

// Engine replays one bar stream through one strategy and its own
// simulator. Engines never share state: each strategy in a run gets a
// fresh engine so a data failure or a blown account in one cannot leak
// into another.
type Engine struct {
	strategy strategy.Strategy
	sim      *simulation.Simulator
	recorder *simulation.CurveRecorder
	tracker  metrics.DrawdownTracker

	capital float64
	lastBar domain.Bar
	bars    int
	maxGap  int64
}

// NewEngine creates an engine for a single strategy run.
func NewEngine(strat strategy.Strategy, opts Options) (*Engine, error) {
	sim, err := simulation.NewSimulator(opts.Simulation)
	if err != nil {
		return nil, err
	}
	return &Engine{
		strategy: strat,
		sim:      sim,
		recorder: simulation.NewCurveRecorder(opts.MaxCurvePoints),
		capital:  opts.Simulation.InitialCapital,
		maxGap:   opts.MaxGapMs,
	}, nil
}

// OnBar advances the run by one bar: ordering and gap checks, then the
// strategy's signal, then execution and equity marking.
func (e *Engine) OnBar(bar domain.Bar) error {
	if e.bars > 0 {
		if bar.TimestampMs <= e.lastBar.TimestampMs {
			return fmt.Errorf("%w: bar %d at %d after %d",
				ErrBarOutOfOrder, e.bars, bar.TimestampMs, e.lastBar.TimestampMs)
		}
		if e.maxGap > 0 && bar.TimestampMs-e.lastBar.TimestampMs > e.maxGap {
			return fmt.Errorf("%w: %dms between %d and %d",
				ErrDataGap, bar.TimestampMs-e.lastBar.TimestampMs, e.lastBar.TimestampMs, bar.TimestampMs)
		}
	}

	signal := e.strategy.OnBar(bar)
	_, point := e.sim.Apply(signal, bar)
	e.recorder.Add(point)
	e.tracker.Observe(point.Equity)

	e.lastBar = bar
	e.bars++
	return nil
}

// Bars returns the number of bars processed so far.
func (e *Engine) Bars() int {
	return e.bars
}

// Finish closes any open position at the last seen bar and assembles
// the result. Safe to call after zero bars.
func (e *Engine) Finish() *domain.StrategyResult {
	if e.bars > 0 {
		if trade := e.sim.Liquidate(e.lastBar); trade != nil {
			e.tracker.Observe(e.sim.Cash())
		}
	}

	return &domain.StrategyResult{
		StrategyName:    e.strategy.Name(),
		Trades:          e.sim.Trades(),
		EquityCurve:     e.recorder.Points(),
		Metrics:         metrics.FromLedger(e.sim.Trades(), e.tracker.MaxDrawdownPct(), e.capital),
		DegradedSignals: e.sim.DegradedSignals(),
	}
}
