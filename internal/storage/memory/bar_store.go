package memory

import (
	"context"
	"sort"
	"sync"

	"btc-strategy-lab/internal/domain"
	"btc-strategy-lab/internal/storage"
)

// BarStore is an in-memory implementation of storage.BarStore. Bars are
// kept sorted by timestamp per symbol.
type BarStore struct {
	mu   sync.RWMutex
	data map[string][]domain.Bar
}

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{data: make(map[string][]domain.Bar)}
}

// InsertBars adds bars for a symbol. The whole batch fails on any
// duplicate timestamp, existing or intra-batch.
func (s *BarStore) InsertBars(_ context.Context, symbol string, bars []domain.Bar) error {
	if symbol == "" {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.data[symbol]
	seen := make(map[int64]struct{}, len(existing)+len(bars))
	for _, b := range existing {
		seen[b.TimestampMs] = struct{}{}
	}
	for _, b := range bars {
		if _, dup := seen[b.TimestampMs]; dup {
			return storage.ErrDuplicateKey
		}
		seen[b.TimestampMs] = struct{}{}
	}

	merged := append(append([]domain.Bar(nil), existing...), bars...)
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].TimestampMs < merged[j].TimestampMs
	})
	s.data[symbol] = merged
	return nil
}

// GetRange retrieves bars within [fromMs, toMs] inclusive, ordered by
// timestamp ASC.
func (s *BarStore) GetRange(_ context.Context, symbol string, fromMs, toMs int64) ([]domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bars := s.data[symbol]
	lo := sort.Search(len(bars), func(i int) bool { return bars[i].TimestampMs >= fromMs })
	hi := sort.Search(len(bars), func(i int) bool { return bars[i].TimestampMs > toMs })

	result := make([]domain.Bar, hi-lo)
	copy(result, bars[lo:hi])
	return result, nil
}

var _ storage.BarStore = (*BarStore)(nil)
