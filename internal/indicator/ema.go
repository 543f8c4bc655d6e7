// Package indicator provides incremental technical indicators.
// All indicators are updated one value at a time so strategies can run
// over unbounded bar streams without retaining full history.
package indicator

// EMA is an incremental exponential moving average with standard
// smoothing 2/(p+1), seeded with the SMA of the first p samples.
type EMA struct {
	period int
	k      float64

	seedSum   float64
	seedCount int
	value     float64
	ready     bool
}

// NewEMA creates an EMA with the given period. Period must be > 0;
// the factory validates configs before construction.
func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		k:      2.0 / float64(period+1),
	}
}

// Update feeds the next sample and returns the current EMA value.
// The return value is meaningful only once Ready reports true.
func (e *EMA) Update(v float64) float64 {
	if !e.ready {
		e.seedSum += v
		e.seedCount++
		if e.seedCount < e.period {
			return 0
		}
		e.value = e.seedSum / float64(e.period)
		e.ready = true
		return e.value
	}

	e.value = (v-e.value)*e.k + e.value
	return e.value
}

// Value returns the current EMA value.
func (e *EMA) Value() float64 {
	return e.value
}

// Ready reports whether the warm-up window has been filled.
func (e *EMA) Ready() bool {
	return e.ready
}
