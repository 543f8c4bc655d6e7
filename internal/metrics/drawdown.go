package metrics

// DrawdownTracker computes the exact maximum drawdown of an equity
// stream in O(1) memory: only the running peak and the worst
// peak-relative drop so far are kept. Feed it every equity point during
// a run; downsampling the stored curve for display does not touch it.
type DrawdownTracker struct {
	peak    float64
	maxDrop float64 // worst (peak-equity)/peak seen, in [0, 1]
	seen    bool
}

// Observe records the next equity value in chronological order.
func (d *DrawdownTracker) Observe(equity float64) {
	if !d.seen || equity > d.peak {
		d.peak = equity
		d.seen = true
		return
	}
	if d.peak <= 0 {
		return
	}
	drop := (d.peak - equity) / d.peak
	if drop > 1 {
		// Equity below zero: a total loss of the peak is the floor.
		drop = 1
	}
	if drop > d.maxDrop {
		d.maxDrop = drop
	}
}

// MaxDrawdownPct returns the worst peak-to-trough decline as a
// percentage of the peak. Zero when the curve never declined.
func (d *DrawdownTracker) MaxDrawdownPct() float64 {
	return d.maxDrop * 100
}
