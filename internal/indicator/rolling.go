package indicator

// RollingMean is a fixed-window trailing average backed by a ring buffer.
type RollingMean struct {
	window []float64
	size   int
	next   int
	count  int
	sum    float64
}

// NewRollingMean creates a rolling mean over the given window size.
func NewRollingMean(size int) *RollingMean {
	return &RollingMean{
		window: make([]float64, size),
		size:   size,
	}
}

// Update pushes the next sample into the window.
func (r *RollingMean) Update(v float64) {
	if r.count == r.size {
		r.sum -= r.window[r.next]
	} else {
		r.count++
	}
	r.window[r.next] = v
	r.sum += v
	r.next = (r.next + 1) % r.size
}

// Mean returns the average of the samples currently in the window,
// or 0 when the window is empty.
func (r *RollingMean) Mean() float64 {
	if r.count == 0 {
		return 0
	}
	return r.sum / float64(r.count)
}

// Ready reports whether the window is full.
func (r *RollingMean) Ready() bool {
	return r.count == r.size
}
