package domain

// Signal is a strategy's per-bar trading decision.
type Signal string

// Signal constants.
const (
	SignalHold       Signal = "HOLD"
	SignalLongEntry  Signal = "LONG_ENTRY"
	SignalLongExit   Signal = "LONG_EXIT"
	SignalShortEntry Signal = "SHORT_ENTRY"
	SignalShortExit  Signal = "SHORT_EXIT"
)

// Side represents the direction of a position or trade.
type Side string

// Side constants.
const (
	SideFlat  Side = "FLAT"
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)
