package marketdata

import "btc-strategy-lab/internal/domain"

// BarBuilder buckets a trade tick stream into fixed-interval OHLCV
// bars. Bucket boundaries are aligned to the epoch: a tick at time t
// belongs to the bar starting at t - t%interval.
type BarBuilder struct {
	intervalMs int64

	open    bool
	current domain.Bar
}

// NewBarBuilder creates a builder producing bars of the given width.
func NewBarBuilder(intervalMs int64) *BarBuilder {
	return &BarBuilder{intervalMs: intervalMs}
}

// Update folds one trade into the stream. When the trade opens a new
// bucket the previous bar is returned as completed; ticks arriving out
// of bucket order are folded into the current bar rather than reopening
// an emitted one.
func (b *BarBuilder) Update(tsMs int64, price, qty float64) *domain.Bar {
	bucket := tsMs - tsMs%b.intervalMs

	if !b.open {
		b.start(bucket, price, qty)
		return nil
	}

	if bucket <= b.current.TimestampMs {
		b.fold(price, qty)
		return nil
	}

	done := b.current
	b.start(bucket, price, qty)
	return &done
}

// Flush returns the in-progress bar, if any, and resets the builder.
// Used when a feed closes mid-bucket.
func (b *BarBuilder) Flush() *domain.Bar {
	if !b.open {
		return nil
	}
	done := b.current
	b.open = false
	return &done
}

func (b *BarBuilder) start(bucket int64, price, qty float64) {
	b.open = true
	b.current = domain.Bar{
		TimestampMs: bucket,
		Open:        price,
		High:        price,
		Low:         price,
		Close:       price,
		Volume:      qty,
	}
}

func (b *BarBuilder) fold(price, qty float64) {
	if price > b.current.High {
		b.current.High = price
	}
	if price < b.current.Low {
		b.current.Low = price
	}
	b.current.Close = price
	b.current.Volume += qty
}
