package strategy

import (
	"btc-strategy-lab/internal/domain"
	"btc-strategy-lab/internal/indicator"
)

// VolumeSurgeStrategy enters long when the current bar's volume reaches
// a threshold multiple of the trailing average volume while price is
// rising over a short lookback space. It exits after a configurable
// holding period or when price breaches a trailing stop measured from
// the peak close since entry.
type VolumeSurgeStrategy struct {
	name            string
	volumeAvg       *indicator.RollingMean
	volumeThreshold float64
	priceLookback   int
	minPriceMove    float64
	holdBars        int
	trailPct        float64
	warmUp          int

	closes []float64 // last priceLookback+1 closes

	inPosition bool
	barsHeld   int
	peakClose  float64
}

// NewVolumeSurgeStrategy creates a VolumeSurgeStrategy. Parameters are
// validated by the factory before construction.
func NewVolumeSurgeStrategy(name string, volumePeriod int, volumeThreshold float64, priceLookback int, minPriceMove float64, holdBars int, trailPct float64) *VolumeSurgeStrategy {
	warmUp := volumePeriod + 1
	if priceLookback+1 > warmUp {
		warmUp = priceLookback + 1
	}

	return &VolumeSurgeStrategy{
		name:            name,
		volumeAvg:       indicator.NewRollingMean(volumePeriod),
		volumeThreshold: volumeThreshold,
		priceLookback:   priceLookback,
		minPriceMove:    minPriceMove,
		holdBars:        holdBars,
		trailPct:        trailPct,
		warmUp:          warmUp,
	}
}

// Name returns the strategy identifier.
func (s *VolumeSurgeStrategy) Name() string {
	return s.name
}

// WarmUp returns the minimum bars before a non-HOLD signal can be emitted.
func (s *VolumeSurgeStrategy) WarmUp() int {
	return s.warmUp
}

// OnBar updates rolling state with the bar and emits a signal.
func (s *VolumeSurgeStrategy) OnBar(bar domain.Bar) domain.Signal {
	// Trailing average excludes the current bar's volume.
	trailingVolume := s.volumeAvg.Mean()
	volumeReady := s.volumeAvg.Ready()
	s.volumeAvg.Update(bar.Volume)

	s.closes = append(s.closes, bar.Close)
	if len(s.closes) > s.priceLookback+1 {
		s.closes = s.closes[1:]
	}

	if s.inPosition {
		s.barsHeld++
		if bar.Close > s.peakClose {
			s.peakClose = bar.Close
		}
		if bar.Close <= s.peakClose*(1-s.trailPct) {
			s.exit()
			return domain.SignalLongExit
		}
		if s.barsHeld >= s.holdBars {
			s.exit()
			return domain.SignalLongExit
		}
		return domain.SignalHold
	}

	if !volumeReady || len(s.closes) < s.priceLookback+1 {
		return domain.SignalHold
	}

	surge := bar.Volume >= trailingVolume*s.volumeThreshold
	past := s.closes[0]
	rising := past > 0 && (bar.Close-past)/past >= s.minPriceMove

	if surge && rising {
		s.inPosition = true
		s.barsHeld = 0
		s.peakClose = bar.Close
		return domain.SignalLongEntry
	}

	return domain.SignalHold
}

func (s *VolumeSurgeStrategy) exit() {
	s.inPosition = false
	s.barsHeld = 0
	s.peakClose = 0
}

var _ Strategy = (*VolumeSurgeStrategy)(nil)
