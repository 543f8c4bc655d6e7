package domain

// Position represents an open simulated position. It is owned exclusively
// by one execution simulator instance and mutated only by that simulator.
type Position struct {
	Side        Side    // FLAT when no position is open
	Quantity    float64 // base units, > 0 while open
	EntryPrice  float64 // average fill price
	EntryTimeMs int64   // entry bar timestamp (ms)
}

// Open reports whether the position holds any quantity.
func (p Position) Open() bool {
	return p.Side != SideFlat && p.Quantity > 0
}

// Trade represents a completed round trip. Immutable once closed;
// appended to a strategy's ledger in chronological order.
type Trade struct {
	EntryTimeMs int64   // entry bar timestamp (ms)
	ExitTimeMs  int64   // exit bar timestamp (ms), always > EntryTimeMs
	Side        Side    // LONG or SHORT
	Quantity    float64 // base units, > 0
	EntryPrice  float64 // fill price at entry
	ExitPrice   float64 // fill price at exit
	Fees        float64 // total fees and slippage charged, currency units
	RealizedPnL float64 // net of fees; negative for losses
	ExitReason  string  // reason code
}

// Exit reason codes.
const (
	ExitReasonSignal    = "SIGNAL"      // strategy emitted an exit signal
	ExitReasonEndOfData = "END_OF_DATA" // open position liquidated at the final bar
)

// EquityPoint is one mark-to-market sample of account value
// (cash plus unrealized PnL of the open position). One per processed bar.
type EquityPoint struct {
	TimestampMs int64
	Equity      float64
}
