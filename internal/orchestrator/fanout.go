package orchestrator

import (
	"context"
	"errors"
	"io"
	"sync"

	"btc-strategy-lab/internal/domain"
	"btc-strategy-lab/internal/marketdata"
)

// fanOut broadcasts one bar stream to several consumers. Every consumer
// sees every bar in order; a consumer that stops early must be
// abandoned so the pump does not block on its channel. The upstream
// terminal error (cancellation rather than end of data) is propagated
// to every consumer.
type fanOut struct {
	outs []*fanSource
}

func newFanOut(n int) *fanOut {
	f := &fanOut{outs: make([]*fanSource, n)}
	for i := range f.outs {
		f.outs[i] = &fanSource{
			ch:        make(chan domain.Bar, 64),
			abandoned: make(chan struct{}),
		}
	}
	return f
}

func (f *fanOut) source(i int) *fanSource {
	return f.outs[i]
}

// pump reads the upstream source until it ends or the context is
// cancelled, delivering each bar to every live consumer. On exit the
// terminal error is recorded and channels are closed so consumers
// observe it.
func (f *fanOut) pump(ctx context.Context, src marketdata.BarSource) {
	terminal := func(err error) {
		for _, out := range f.outs {
			out.terminal = err
			close(out.ch)
		}
	}

	for {
		bar, err := src.Next(ctx)
		if err != nil {
			terminal(err)
			return
		}

		for _, out := range f.outs {
			select {
			case out.ch <- bar:
			case <-out.abandoned:
			case <-ctx.Done():
				terminal(ctx.Err())
				return
			}
		}
	}
}

// fanSource is one consumer's view of the broadcast stream.
type fanSource struct {
	ch        chan domain.Bar
	abandoned chan struct{}
	once      sync.Once

	// terminal is written by the pump before ch is closed; the close
	// orders it before the consumer's read.
	terminal error
}

// Next implements marketdata.BarSource. After the stream ends it
// returns the upstream terminal error, io.EOF for a normal end of data.
func (f *fanSource) Next(ctx context.Context) (domain.Bar, error) {
	select {
	case <-ctx.Done():
		return domain.Bar{}, ctx.Err()
	case bar, ok := <-f.ch:
		if !ok {
			if f.terminal != nil && !errors.Is(f.terminal, io.EOF) {
				return domain.Bar{}, f.terminal
			}
			return domain.Bar{}, io.EOF
		}
		return bar, nil
	}
}

// Abandon releases the pump from delivering further bars to this
// consumer. Idempotent.
func (f *fanSource) Abandon() {
	f.once.Do(func() { close(f.abandoned) })
}

var _ marketdata.BarSource = (*fanSource)(nil)
