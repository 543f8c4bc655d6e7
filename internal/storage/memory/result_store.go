package memory

import (
	"context"
	"sort"
	"sync"

	"btc-strategy-lab/internal/domain"
	"btc-strategy-lab/internal/storage"
)

// DefaultMaxRuns bounds the in-memory run history.
const DefaultMaxRuns = 100

// ResultStore is an in-memory implementation of storage.ResultStore.
// History is bounded: when the cap is reached the oldest run is
// evicted. Stored runs are immutable; reads return shallow copies whose
// nested slices are shared, which is safe because completed runs are
// never mutated.
type ResultStore struct {
	mu      sync.RWMutex
	maxRuns int
	data    map[string]*domain.TestRun
	order   []string // run IDs in save order, oldest first
}

// NewResultStore creates a result store capped at maxRuns. A cap of 0
// or less uses DefaultMaxRuns.
func NewResultStore(maxRuns int) *ResultStore {
	if maxRuns <= 0 {
		maxRuns = DefaultMaxRuns
	}
	return &ResultStore{
		maxRuns: maxRuns,
		data:    make(map[string]*domain.TestRun),
	}
}

// SaveRun stores a completed run, evicting the oldest past the cap.
func (s *ResultStore) SaveRun(_ context.Context, run *domain.TestRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[run.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *run
	s.data[run.RunID] = &copy
	s.order = append(s.order, run.RunID)

	for len(s.order) > s.maxRuns {
		delete(s.data, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

// LatestRun returns the run with the greatest StartedAtMs.
func (s *ResultStore) LatestRun(_ context.Context) (*domain.TestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.TestRun
	for _, run := range s.data {
		if latest == nil || run.StartedAtMs > latest.StartedAtMs {
			latest = run
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}

	copy := *latest
	return &copy, nil
}

// GetRun retrieves a run by its ID.
func (s *ResultStore) GetRun(_ context.Context, runID string) (*domain.TestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *run
	return &copy, nil
}

// ListRuns returns up to limit runs, most recently started first.
func (s *ResultStore) ListRuns(_ context.Context, limit int) ([]*domain.TestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TestRun, 0, len(s.data))
	for _, run := range s.data {
		copy := *run
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAtMs > result[j].StartedAtMs
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ storage.ResultStore = (*ResultStore)(nil)
