package marketdata

import (
	"context"
	"io"

	"btc-strategy-lab/internal/domain"
)

// BarSource yields OHLCV bars in chronological order. Implementations
// return io.EOF after the final bar. Sources backed by live feeds block
// in Next until a bar closes or the context is cancelled.
type BarSource interface {
	Next(ctx context.Context) (domain.Bar, error)
}

// SliceSource replays an in-memory bar slice. The zero value is an
// exhausted source.
type SliceSource struct {
	bars []domain.Bar
	pos  int
}

// NewSliceSource wraps bars in a BarSource. The slice is not copied;
// callers must not mutate it during replay.
func NewSliceSource(bars []domain.Bar) *SliceSource {
	return &SliceSource{bars: bars}
}

// Next returns the next bar or io.EOF.
func (s *SliceSource) Next(ctx context.Context) (domain.Bar, error) {
	if err := ctx.Err(); err != nil {
		return domain.Bar{}, err
	}
	if s.pos >= len(s.bars) {
		return domain.Bar{}, io.EOF
	}
	bar := s.bars[s.pos]
	s.pos++
	return bar, nil
}

// Reset rewinds the source to the first bar so the same data can feed
// several strategies in one run.
func (s *SliceSource) Reset() {
	s.pos = 0
}

var _ BarSource = (*SliceSource)(nil)
