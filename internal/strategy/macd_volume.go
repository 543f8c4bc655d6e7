package strategy

import (
	"btc-strategy-lab/internal/domain"
	"btc-strategy-lab/internal/indicator"
)

// MACDVolumeStrategy enters long when the MACD line crosses above its
// signal line on a bar whose volume exceeds a configurable multiple of
// the trailing average volume, and exits on the opposite crossover.
// Crossovers are detected by comparing the sign of (MACD - signal)
// between consecutive bars.
type MACDVolumeStrategy struct {
	name            string
	macd            *indicator.MACD
	volumeAvg       *indicator.RollingMean
	volumeThreshold float64
	warmUp          int

	prevHist float64
	hasPrev  bool
}

// NewMACDVolumeStrategy creates a MACDVolumeStrategy. Parameters are
// validated by the factory before construction.
func NewMACDVolumeStrategy(name string, fastPeriod, slowPeriod, signalPeriod, volumePeriod int, volumeThreshold float64) *MACDVolumeStrategy {
	warmUp := slowPeriod + signalPeriod
	if volumePeriod+1 > warmUp {
		warmUp = volumePeriod + 1
	}

	return &MACDVolumeStrategy{
		name:            name,
		macd:            indicator.NewMACD(fastPeriod, slowPeriod, signalPeriod),
		volumeAvg:       indicator.NewRollingMean(volumePeriod),
		volumeThreshold: volumeThreshold,
		warmUp:          warmUp,
	}
}

// Name returns the strategy identifier.
func (s *MACDVolumeStrategy) Name() string {
	return s.name
}

// WarmUp returns the minimum bars before a non-HOLD signal can be emitted.
func (s *MACDVolumeStrategy) WarmUp() int {
	return s.warmUp
}

// OnBar updates the indicators with the bar and emits a signal.
func (s *MACDVolumeStrategy) OnBar(bar domain.Bar) domain.Signal {
	// Trailing average excludes the current bar's volume.
	trailingVolume := s.volumeAvg.Mean()
	volumeReady := s.volumeAvg.Ready()
	s.volumeAvg.Update(bar.Volume)

	s.macd.Update(bar.Close)
	if !s.macd.Ready() || !volumeReady {
		return domain.SignalHold
	}

	hist := s.macd.Histogram()
	prevHist := s.prevHist
	hadPrev := s.hasPrev
	s.prevHist = hist
	s.hasPrev = true

	if !hadPrev {
		return domain.SignalHold
	}

	switch {
	case prevHist <= 0 && hist > 0:
		if bar.Volume >= trailingVolume*s.volumeThreshold {
			return domain.SignalLongEntry
		}
	case prevHist >= 0 && hist < 0:
		return domain.SignalLongExit
	}

	return domain.SignalHold
}

var _ Strategy = (*MACDVolumeStrategy)(nil)
