package strategy

import (
	"btc-strategy-lab/internal/domain"
)

// Strategy produces one trading signal per bar.
//
// OnBar is called once for every bar in strictly increasing timestamp
// order. A strategy may depend only on the bars it has already seen
// (no look-ahead) and must be deterministic: replaying an identical bar
// sequence through a freshly constructed instance yields identical
// signals. Instances are not safe for concurrent use; the orchestrator
// constructs an independent instance per run.
type Strategy interface {
	// OnBar consumes the next bar and returns exactly one signal for it.
	// During the warm-up window the signal is always HOLD.
	OnBar(bar domain.Bar) domain.Signal

	// Name returns the strategy identifier, unique within a run.
	Name() string

	// WarmUp returns the minimum number of bars the strategy must see
	// before it can emit a non-HOLD signal.
	WarmUp() int
}
