package marketdata

import (
	"context"
	"encoding/json"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"btc-strategy-lab/internal/domain"
	"btc-strategy-lab/internal/observability"
)

// LiveConfig configures the live trade feed.
type LiveConfig struct {
	// URL is the websocket endpoint of a trade stream.
	URL string
	// BarIntervalMs is the width of the bars built from the tick stream.
	BarIntervalMs int64
	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration
	// ReadTimeout is the maximum silence tolerated before reconnecting.
	ReadTimeout time.Duration
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the exponential reconnect backoff.
	MaxReconnectDelay time.Duration
}

// DefaultLiveConfig returns the live feed defaults: one-minute bars and
// conservative reconnect behavior.
func DefaultLiveConfig(url string) LiveConfig {
	return LiveConfig{
		URL:               url,
		BarIntervalMs:     60_000,
		HandshakeTimeout:  10 * time.Second,
		ReadTimeout:       60 * time.Second,
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
	}
}

// tradeMessage is the wire format of one trade tick: price and quantity
// as decimal strings plus the trade time in epoch milliseconds.
type tradeMessage struct {
	Price       string `json:"p"`
	Quantity    string `json:"q"`
	TradeTimeMs int64  `json:"T"`
}

// LiveSource turns a websocket trade stream into a BarSource. It
// reconnects with exponential backoff on feed errors; bars interrupted
// by a reconnect keep accumulating across the gap. Close ends the
// stream, after which Next drains the final partial bar and returns
// io.EOF.
type LiveSource struct {
	cfg LiveConfig

	bars   chan domain.Bar
	done   chan struct{}
	closed atomic.Bool
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// NewLiveSource connects to the feed and starts building bars.
func NewLiveSource(cfg LiveConfig) *LiveSource {
	s := &LiveSource{
		cfg:  cfg,
		bars: make(chan domain.Bar, 16),
		done: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Next blocks until the next bar closes. Implements BarSource.
func (s *LiveSource) Next(ctx context.Context) (domain.Bar, error) {
	select {
	case <-ctx.Done():
		return domain.Bar{}, ctx.Err()
	case bar, ok := <-s.bars:
		if !ok {
			return domain.Bar{}, io.EOF
		}
		return bar, nil
	}
}

// Close stops the feed and waits for the reader to exit.
func (s *LiveSource) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
	})
	s.wg.Wait()
}

func (s *LiveSource) run() {
	defer s.wg.Done()
	defer close(s.bars)

	builder := NewBarBuilder(s.cfg.BarIntervalMs)
	defer func() {
		if bar := builder.Flush(); bar != nil {
			select {
			case s.bars <- *bar:
			default:
			}
		}
	}()

	backoff := s.cfg.ReconnectDelay
	attempts := 0
	for {
		select {
		case <-s.done:
			return
		default:
		}

		if attempts++; attempts > 1 {
			observability.RecordFeedReconnect()
		}
		conn, err := s.dial()
		if err != nil {
			if !s.sleep(backoff) {
				return
			}
			if backoff *= 2; backoff > s.cfg.MaxReconnectDelay {
				backoff = s.cfg.MaxReconnectDelay
			}
			continue
		}
		backoff = s.cfg.ReconnectDelay

		if !s.readTrades(conn, builder) {
			conn.Close()
			return
		}
		conn.Close()
	}
}

func (s *LiveSource) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: s.cfg.HandshakeTimeout}
	conn, _, err := dialer.Dial(s.cfg.URL, nil)
	return conn, err
}

// readTrades consumes the connection until it fails or the source is
// closed. Returns false when the source should stop for good.
func (s *LiveSource) readTrades(conn *websocket.Conn, builder *BarBuilder) bool {
	for {
		select {
		case <-s.done:
			return false
		default:
		}

		if s.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			// Reconnect unless we were asked to stop.
			return !s.closed.Load()
		}

		var trade tradeMessage
		if err := json.Unmarshal(msg, &trade); err != nil {
			continue // skip frames that are not trades
		}
		price, err := strconv.ParseFloat(trade.Price, 64)
		if err != nil {
			continue
		}
		qty, err := strconv.ParseFloat(trade.Quantity, 64)
		if err != nil {
			continue
		}

		if bar := builder.Update(trade.TradeTimeMs, price, qty); bar != nil {
			select {
			case s.bars <- *bar:
			case <-s.done:
				return false
			}
		}
	}
}

func (s *LiveSource) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.done:
		return false
	case <-timer.C:
		return true
	}
}

var _ BarSource = (*LiveSource)(nil)
