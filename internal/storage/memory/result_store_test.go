package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"btc-strategy-lab/internal/domain"
	"btc-strategy-lab/internal/storage"
)

func makeRun(id string, startedAt int64) *domain.TestRun {
	return &domain.TestRun{
		RunID:         id,
		StartedAtMs:   startedAt,
		CompletedAtMs: startedAt + 5_000,
		Results: map[string]*domain.StrategyResult{
			"MACD_VOLUME": {
				StrategyName: "MACD_VOLUME",
				Metrics:      domain.Metrics{TotalPnL: 200, TotalTrades: 1, WinRate: 100, ROI: 2},
			},
		},
	}
}

func TestResultStore_SaveAndLatest(t *testing.T) {
	store := NewResultStore(0)
	ctx := context.Background()

	if _, err := store.LatestRun(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("empty store: expected ErrNotFound, got %v", err)
	}

	if err := store.SaveRun(ctx, makeRun("run1", 1000)); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if err := store.SaveRun(ctx, makeRun("run2", 2000)); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	latest, err := store.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun failed: %v", err)
	}
	if latest.RunID != "run2" {
		t.Errorf("expected run2 as latest, got %s", latest.RunID)
	}
	if latest.Results["MACD_VOLUME"].Metrics.TotalPnL != 200 {
		t.Errorf("metrics not preserved: %+v", latest.Results)
	}
}

func TestResultStore_DuplicateRunID(t *testing.T) {
	store := NewResultStore(0)
	ctx := context.Background()

	if err := store.SaveRun(ctx, makeRun("run1", 1000)); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if err := store.SaveRun(ctx, makeRun("run1", 2000)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestResultStore_GetRun(t *testing.T) {
	store := NewResultStore(0)
	ctx := context.Background()

	if _, err := store.GetRun(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := store.SaveRun(ctx, makeRun("run1", 1000)); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	got, err := store.GetRun(ctx, "run1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.RunID != "run1" || got.StartedAtMs != 1000 {
		t.Errorf("unexpected run: %+v", got)
	}
}

func TestResultStore_EvictsOldestPastCap(t *testing.T) {
	store := NewResultStore(3)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		run := makeRun(fmt.Sprintf("run%d", i), int64(i)*1000)
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun %d failed: %v", i, err)
		}
	}

	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 retained runs, got %d", len(runs))
	}
	if runs[0].RunID != "run5" || runs[2].RunID != "run3" {
		t.Errorf("expected run5..run3 newest-first, got %s..%s", runs[0].RunID, runs[2].RunID)
	}

	if _, err := store.GetRun(ctx, "run1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("evicted run must be gone, got %v", err)
	}
}

func TestResultStore_ListRunsLimit(t *testing.T) {
	store := NewResultStore(0)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		if err := store.SaveRun(ctx, makeRun(fmt.Sprintf("run%d", i), int64(i)*1000)); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "run4" {
		t.Errorf("unexpected list: %+v", runs)
	}
}

func TestResultStore_RejectsInvalidInput(t *testing.T) {
	store := NewResultStore(0)
	ctx := context.Background()

	if err := store.SaveRun(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("nil run: expected ErrInvalidInput, got %v", err)
	}
	if err := store.SaveRun(ctx, &domain.TestRun{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty run ID: expected ErrInvalidInput, got %v", err)
	}
}
