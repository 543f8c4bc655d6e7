package simulation

import (
	"btc-strategy-lab/internal/domain"
)

// CurveRecorder retains an equity curve for display under a bounded
// memory footprint. When the stored curve reaches its cap the recorder
// drops every second retained point and doubles its sampling stride, so
// an unbounded run keeps at most maxPoints points at progressively
// coarser resolution. Exact drawdown is tracked separately from the
// stored curve (a running peak suffices), so downsampling never affects
// computed metrics.
type CurveRecorder struct {
	maxPoints int
	stride    int
	seen      int
	points    []domain.EquityPoint
}

// NewCurveRecorder creates a recorder capped at maxPoints. A cap of 0
// or less keeps the full curve.
func NewCurveRecorder(maxPoints int) *CurveRecorder {
	return &CurveRecorder{
		maxPoints: maxPoints,
		stride:    1,
	}
}

// Add observes the next equity point.
func (r *CurveRecorder) Add(p domain.EquityPoint) {
	keep := r.seen%r.stride == 0
	r.seen++
	if !keep {
		return
	}

	r.points = append(r.points, p)
	if r.maxPoints > 1 && len(r.points) >= r.maxPoints {
		r.compact()
	}
}

// Points returns the retained curve in chronological order.
func (r *CurveRecorder) Points() []domain.EquityPoint {
	return r.points
}

func (r *CurveRecorder) compact() {
	kept := r.points[:0]
	for i := 0; i < len(r.points); i += 2 {
		kept = append(kept, r.points[i])
	}
	r.points = kept
	r.stride *= 2
}
