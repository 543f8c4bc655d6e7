// Package simulation implements the execution simulator: it consumes
// per-bar signals, maintains simulated cash and position state, and
// emits completed trades plus a mark-to-market equity point per bar.
package simulation

import (
	"errors"

	"btc-strategy-lab/internal/domain"
)

// Configuration errors. All fail fast before any simulation starts.
var (
	ErrInvalidCapital  = errors.New("initial capital must be positive")
	ErrInvalidFraction = errors.New("position fraction must be in (0, 1]")
	ErrInvalidFee      = errors.New("fee and slippage percentages must be non-negative")
)

// Config holds execution parameters shared by all strategies in a run.
type Config struct {
	InitialCapital   float64 // starting simulated cash, currency units
	PositionFraction float64 // fraction of available cash committed per entry
	FeePct           float64 // fee charged on entry and exit notional (0.0005 = 5 bps)
	SlippagePct      float64 // adverse price movement applied to fills
}

// DefaultConfig returns the execution parameters used when a config
// omits them.
func DefaultConfig() Config {
	return Config{
		InitialCapital:   10_000,
		PositionFraction: 0.1,
		FeePct:           0.0005,
		SlippagePct:      0,
	}
}

// Validate checks the config. Invalid values are configuration errors,
// never silently corrected.
func (c Config) Validate() error {
	if c.InitialCapital <= 0 {
		return ErrInvalidCapital
	}
	if c.PositionFraction <= 0 || c.PositionFraction > 1 {
		return ErrInvalidFraction
	}
	if c.FeePct < 0 || c.SlippagePct < 0 {
		return ErrInvalidFee
	}
	return nil
}

// Simulator owns the position and cash state for exactly one strategy
// run. It is single-threaded: later bars depend on earlier state.
type Simulator struct {
	cfg Config

	cash     float64
	position domain.Position
	entryFee float64 // fee paid when the open position was entered

	trades   []*domain.Trade
	degraded int // entry signals degraded to HOLD for zero affordable quantity
}

// NewSimulator creates a simulator seeded with the configured capital.
func NewSimulator(cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{
		cfg:      cfg,
		cash:     cfg.InitialCapital,
		position: domain.Position{Side: domain.SideFlat},
	}, nil
}

// Apply processes one signal against the bar it was emitted for.
// It returns the completed trade if the signal closed a position, and
// always returns the mark-to-market equity point for the bar.
// Signals that do not match the current position state are no-ops.
func (s *Simulator) Apply(signal domain.Signal, bar domain.Bar) (*domain.Trade, domain.EquityPoint) {
	var trade *domain.Trade

	switch signal {
	case domain.SignalLongEntry:
		if s.position.Side == domain.SideFlat {
			s.enter(domain.SideLong, bar)
		}
	case domain.SignalLongExit:
		if s.position.Side == domain.SideLong {
			trade = s.exit(bar, domain.ExitReasonSignal)
		}
	case domain.SignalShortEntry:
		if s.position.Side == domain.SideFlat {
			s.enter(domain.SideShort, bar)
		}
	case domain.SignalShortExit:
		if s.position.Side == domain.SideShort {
			trade = s.exit(bar, domain.ExitReasonSignal)
		}
	}

	return trade, s.markToMarket(bar)
}

// Liquidate closes any open position at the bar's price. Called once at
// the end of a bar sequence so the ledger accounts for open exposure.
func (s *Simulator) Liquidate(bar domain.Bar) *domain.Trade {
	if !s.position.Open() {
		return nil
	}
	return s.exit(bar, domain.ExitReasonEndOfData)
}

// Trades returns the ledger in chronological order.
func (s *Simulator) Trades() []*domain.Trade {
	return s.trades
}

// Cash returns the current simulated cash balance.
func (s *Simulator) Cash() float64 {
	return s.cash
}

// Position returns a copy of the current position.
func (s *Simulator) Position() domain.Position {
	return s.position
}

// DegradedSignals reports how many entry signals were degraded to HOLD
// because no quantity was affordable. A data/configuration condition,
// not an engine defect.
func (s *Simulator) DegradedSignals() int {
	return s.degraded
}

func (s *Simulator) enter(side domain.Side, bar domain.Bar) {
	price := s.fillPrice(side, bar.Close, true)
	budget := s.cash * s.cfg.PositionFraction

	// Zero affordable quantity degrades the entry to HOLD.
	unitCost := price * (1 + s.cfg.FeePct)
	qty := budget / unitCost
	if qty <= 0 || price <= 0 {
		s.degraded++
		return
	}

	notional := qty * price
	fee := notional * s.cfg.FeePct

	switch side {
	case domain.SideLong:
		s.cash -= notional + fee
	case domain.SideShort:
		// Margin model: the short's notional stays owed, only the fee
		// leaves cash at entry.
		s.cash -= fee
	}

	s.entryFee = fee
	s.position = domain.Position{
		Side:        side,
		Quantity:    qty,
		EntryPrice:  price,
		EntryTimeMs: bar.TimestampMs,
	}
}

func (s *Simulator) exit(bar domain.Bar, reason string) *domain.Trade {
	side := s.position.Side
	qty := s.position.Quantity
	price := s.fillPrice(side, bar.Close, false)

	notional := qty * price
	exitFee := notional * s.cfg.FeePct
	fees := s.entryFee + exitFee

	var gross float64
	switch side {
	case domain.SideLong:
		gross = (price - s.position.EntryPrice) * qty
		s.cash += notional - exitFee
	case domain.SideShort:
		gross = (s.position.EntryPrice - price) * qty
		s.cash += gross - exitFee
	}

	trade := &domain.Trade{
		EntryTimeMs: s.position.EntryTimeMs,
		ExitTimeMs:  bar.TimestampMs,
		Side:        side,
		Quantity:    qty,
		EntryPrice:  s.position.EntryPrice,
		ExitPrice:   price,
		Fees:        fees,
		RealizedPnL: gross - fees,
		ExitReason:  reason,
	}
	s.trades = append(s.trades, trade)

	s.position = domain.Position{Side: domain.SideFlat}
	s.entryFee = 0
	return trade
}

// fillPrice applies slippage against the direction of the fill.
func (s *Simulator) fillPrice(side domain.Side, close float64, entry bool) float64 {
	slip := s.cfg.SlippagePct
	buying := (side == domain.SideLong) == entry
	if buying {
		return close * (1 + slip)
	}
	return close * (1 - slip)
}

// markToMarket values the account at the bar's close: cash plus the
// unrealized PnL of any open position.
func (s *Simulator) markToMarket(bar domain.Bar) domain.EquityPoint {
	equity := s.cash
	switch s.position.Side {
	case domain.SideLong:
		equity += s.position.Quantity * bar.Close
	case domain.SideShort:
		equity += s.position.Quantity * (s.position.EntryPrice - bar.Close)
	}
	return domain.EquityPoint{TimestampMs: bar.TimestampMs, Equity: equity}
}
