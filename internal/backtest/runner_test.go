package backtest

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"btc-strategy-lab/internal/domain"
	"btc-strategy-lab/internal/marketdata"
	"btc-strategy-lab/internal/simulation"
)

func makeBars(closes ...float64) []domain.Bar {
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			TimestampMs: int64(i+1) * 60_000,
			Open:        c, High: c, Low: c, Close: c,
			Volume: 100,
		}
	}
	return bars
}

func testOptions() Options {
	return Options{
		Simulation: simulation.Config{InitialCapital: 10_000, PositionFraction: 0.1},
	}
}

func TestRun_LongRoundTripMetrics(t *testing.T) {
	// 10% of 10000 at price 100 buys 10 units; exiting at 120 realizes
	// 200 with no fees, a 2% ROI and a 100% win rate.
	strat := &ScriptedStrategy{
		StrategyName: "long-once",
		Signals: []domain.Signal{
			domain.SignalLongEntry,
			domain.SignalHold,
			domain.SignalHold,
			domain.SignalHold,
			domain.SignalLongExit,
		},
	}
	src := marketdata.NewSliceSource(makeBars(100, 105, 95, 110, 120))

	result, err := Run(context.Background(), src, strat, testOptions())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	m := result.Metrics
	if m.TotalPnL != 200 {
		t.Errorf("expected total PnL 200, got %v", m.TotalPnL)
	}
	if m.ROI != 2 {
		t.Errorf("expected ROI 2%%, got %v", m.ROI)
	}
	if m.WinRate != 100 {
		t.Errorf("expected win rate 100%%, got %v", m.WinRate)
	}
	if m.TotalTrades != 1 {
		t.Errorf("expected 1 trade, got %d", m.TotalTrades)
	}
	if m.MaxDrawdown <= 0 {
		t.Errorf("dip to 95 while long must register a drawdown, got %v", m.MaxDrawdown)
	}
	if len(result.EquityCurve) != 5 {
		t.Errorf("expected 5 equity points, got %d", len(result.EquityCurve))
	}
	if result.Trades[0].ExitReason != domain.ExitReasonSignal {
		t.Errorf("expected SIGNAL exit, got %s", result.Trades[0].ExitReason)
	}
}

func TestRun_AllHoldYieldsZeroMetrics(t *testing.T) {
	closes := make([]float64, 1000)
	for i := range closes {
		closes[i] = 50_000 + float64(i%7)
	}
	src := marketdata.NewSliceSource(makeBars(closes...))

	result, err := Run(context.Background(), src, &ScriptedStrategy{StrategyName: "idle"}, testOptions())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Metrics != (domain.Metrics{}) {
		t.Errorf("expected all-zero metrics, got %+v", result.Metrics)
	}
	if len(result.Trades) != 0 {
		t.Errorf("expected no trades, got %d", len(result.Trades))
	}
}

func TestRun_OpenPositionLiquidatedAtEndOfData(t *testing.T) {
	strat := &ScriptedStrategy{Signals: []domain.Signal{domain.SignalLongEntry}}
	src := marketdata.NewSliceSource(makeBars(100, 110, 130))

	result, err := Run(context.Background(), src, strat, testOptions())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Trades) != 1 {
		t.Fatalf("expected 1 liquidation trade, got %d", len(result.Trades))
	}
	trade := result.Trades[0]
	if trade.ExitReason != domain.ExitReasonEndOfData {
		t.Errorf("expected END_OF_DATA exit, got %s", trade.ExitReason)
	}
	if trade.ExitPrice != 130 {
		t.Errorf("liquidation must fill at the final close, got %v", trade.ExitPrice)
	}
}

func TestRun_ShortBlowupDrawdownCapped(t *testing.T) {
	// A full-size short at 100 that rides the price to 300 loses twice
	// the account and drives equity negative; the drawdown still reads
	// as a total loss of the peak, not more.
	strat := &ScriptedStrategy{Signals: []domain.Signal{domain.SignalShortEntry}}
	src := marketdata.NewSliceSource(makeBars(100, 200, 300))
	opts := Options{
		Simulation: simulation.Config{InitialCapital: 10_000, PositionFraction: 1},
	}

	result, err := Run(context.Background(), src, strat, opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Metrics.TotalPnL >= 0 {
		t.Fatalf("expected a losing short, got PnL %v", result.Metrics.TotalPnL)
	}
	if got := result.Metrics.MaxDrawdown; got != 100 {
		t.Errorf("expected drawdown capped at 100, got %v", got)
	}
	final := result.EquityCurve[len(result.EquityCurve)-1].Equity
	if final >= 0 {
		t.Errorf("expected negative final equity, got %v", final)
	}
}

func TestEngine_RejectsOutOfOrderBars(t *testing.T) {
	engine, err := NewEngine(&ScriptedStrategy{}, testOptions())
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	if err := engine.OnBar(domain.Bar{TimestampMs: 2000, Close: 100}); err != nil {
		t.Fatalf("first bar: %v", err)
	}
	for _, ts := range []int64{2000, 1500} {
		if err := engine.OnBar(domain.Bar{TimestampMs: ts, Close: 100}); !errors.Is(err, ErrBarOutOfOrder) {
			t.Errorf("timestamp %d: expected ErrBarOutOfOrder, got %v", ts, err)
		}
	}
}

func TestEngine_RejectsDataGaps(t *testing.T) {
	opts := testOptions()
	opts.MaxGapMs = 120_000
	engine, err := NewEngine(&ScriptedStrategy{}, opts)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	if err := engine.OnBar(domain.Bar{TimestampMs: 60_000, Close: 100}); err != nil {
		t.Fatalf("first bar: %v", err)
	}
	if err := engine.OnBar(domain.Bar{TimestampMs: 180_000, Close: 100}); err != nil {
		t.Fatalf("bar at tolerance: %v", err)
	}
	if err := engine.OnBar(domain.Bar{TimestampMs: 400_000, Close: 100}); !errors.Is(err, ErrDataGap) {
		t.Errorf("expected ErrDataGap, got %v", err)
	}
}

func TestRun_Deterministic(t *testing.T) {
	closes := []float64{100, 102, 99, 104, 101, 108, 95, 112, 120, 118}
	script := []domain.Signal{
		domain.SignalLongEntry, domain.SignalHold, domain.SignalLongExit,
		domain.SignalShortEntry, domain.SignalHold, domain.SignalShortExit,
		domain.SignalLongEntry,
	}

	run := func() *domain.StrategyResult {
		src := marketdata.NewSliceSource(makeBars(closes...))
		result, err := Run(context.Background(), src, &ScriptedStrategy{Signals: script}, testOptions())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return result
	}

	if a, b := run(), run(); !reflect.DeepEqual(a, b) {
		t.Errorf("identical inputs produced different results:\n%+v\n%+v", a, b)
	}
}

// cancellingSource cancels its context after a fixed number of bars.
type cancellingSource struct {
	inner  marketdata.BarSource
	cancel context.CancelFunc
	after  int
	served int
}

func (c *cancellingSource) Next(ctx context.Context) (domain.Bar, error) {
	if c.served == c.after {
		c.cancel()
	}
	c.served++
	return c.inner.Next(ctx)
}

func TestRun_CancellationReturnsPartialResult(t *testing.T) {
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 100
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &cancellingSource{
		inner:  marketdata.NewSliceSource(makeBars(closes...)),
		cancel: cancel,
		after:  10,
	}

	result, err := Run(ctx, src, &ScriptedStrategy{Signals: []domain.Signal{domain.SignalLongEntry}}, testOptions())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result == nil {
		t.Fatal("cancelled run must still return the partial result")
	}
	if len(result.Trades) != 1 || result.Trades[0].ExitReason != domain.ExitReasonEndOfData {
		t.Error("cancelled run must liquidate the open position")
	}
	if len(result.EquityCurve) != 10 {
		t.Errorf("expected 10 equity points before cancellation, got %d", len(result.EquityCurve))
	}
}
