package strategy

import (
	"btc-strategy-lab/internal/domain"
)

// HoldStrategy never trades. It is used in tests to verify that a
// trade-free run still produces a well-formed result.
type HoldStrategy struct {
	name string
	bars int
}

// NewHoldStrategy creates a HoldStrategy.
func NewHoldStrategy(name string) *HoldStrategy {
	return &HoldStrategy{name: name}
}

// OnBar counts the bar and always returns HOLD.
func (s *HoldStrategy) OnBar(_ domain.Bar) domain.Signal {
	s.bars++
	return domain.SignalHold
}

// Name returns the strategy identifier.
func (s *HoldStrategy) Name() string {
	return s.name
}

// WarmUp returns 0.
func (s *HoldStrategy) WarmUp() int {
	return 0
}

// Bars returns the number of bars seen, for test verification.
func (s *HoldStrategy) Bars() int {
	return s.bars
}

var _ Strategy = (*HoldStrategy)(nil)
