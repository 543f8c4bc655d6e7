package clickhouse

import (
	"context"
	"fmt"

	"btc-strategy-lab/internal/domain"
	"btc-strategy-lab/internal/storage"
)

// BarStore implements storage.BarStore using ClickHouse. The bars table
// uses ReplacingMergeTree keyed by (symbol, timestamp_ms), so re-inserts
// of the same bar dedup at merge time; intra-batch duplicates are still
// rejected up front.
type BarStore struct {
	conn *Conn
}

// NewBarStore creates a new ClickHouse-backed bar store.
func NewBarStore(conn *Conn) *BarStore {
	return &BarStore{conn: conn}
}

var _ storage.BarStore = (*BarStore)(nil)

// InsertBars adds bars for a symbol in one batch.
func (s *BarStore) InsertBars(ctx context.Context, symbol string, bars []domain.Bar) error {
	if symbol == "" {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	seen := make(map[int64]struct{}, len(bars))
	for _, b := range bars {
		if _, dup := seen[b.TimestampMs]; dup {
			return storage.ErrDuplicateKey
		}
		seen[b.TimestampMs] = struct{}{}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO bars (symbol, timestamp_ms, open, high, low, close, volume)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err := batch.Append(symbol, b.TimestampMs, b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			return fmt.Errorf("append bar %d: %w", b.TimestampMs, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetRange retrieves bars within [fromMs, toMs] inclusive, ordered by
// timestamp ASC. FINAL collapses ReplacingMergeTree duplicates.
func (s *BarStore) GetRange(ctx context.Context, symbol string, fromMs, toMs int64) ([]domain.Bar, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT timestamp_ms, open, high, low, close, volume
		FROM bars FINAL
		WHERE symbol = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`, symbol, fromMs, toMs)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var b domain.Bar
		if err := rows.Scan(&b.TimestampMs, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}
