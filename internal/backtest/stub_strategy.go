package backtest

import "btc-strategy-lab/internal/domain"

// ScriptedStrategy emits a fixed signal sequence, one per bar, then
// holds. Used by tests to drive the engine through exact scenarios.
type ScriptedStrategy struct {
	StrategyName string
	Signals      []domain.Signal
	pos          int
}

// OnBar returns the next scripted signal.
func (s *ScriptedStrategy) OnBar(_ domain.Bar) domain.Signal {
	if s.pos >= len(s.Signals) {
		return domain.SignalHold
	}
	sig := s.Signals[s.pos]
	s.pos++
	return sig
}

// Name returns the configured identifier.
func (s *ScriptedStrategy) Name() string {
	if s.StrategyName == "" {
		return "scripted"
	}
	return s.StrategyName
}

// WarmUp reports no warm-up requirement.
func (s *ScriptedStrategy) WarmUp() int { return 0 }
