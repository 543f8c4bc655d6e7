package memory

import (
	"context"
	"errors"
	"testing"

	"btc-strategy-lab/internal/domain"
	"btc-strategy-lab/internal/storage"
)

func TestBarStore_InsertAndGetRange(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()

	bars := []domain.Bar{
		{TimestampMs: 3000, Close: 103},
		{TimestampMs: 1000, Close: 101},
		{TimestampMs: 2000, Close: 102},
	}
	if err := store.InsertBars(ctx, "BTCUSDT", bars); err != nil {
		t.Fatalf("InsertBars failed: %v", err)
	}

	got, err := store.GetRange(ctx, "BTCUSDT", 1000, 2000)
	if err != nil {
		t.Fatalf("GetRange failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(got))
	}
	if got[0].TimestampMs != 1000 || got[1].TimestampMs != 2000 {
		t.Errorf("bars must come back sorted: %+v", got)
	}
}

func TestBarStore_DuplicateTimestampFailsBatch(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()

	if err := store.InsertBars(ctx, "BTCUSDT", []domain.Bar{{TimestampMs: 1000}}); err != nil {
		t.Fatalf("InsertBars failed: %v", err)
	}

	err := store.InsertBars(ctx, "BTCUSDT", []domain.Bar{
		{TimestampMs: 2000},
		{TimestampMs: 1000}, // already stored
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	// The failed batch must not have been partially applied.
	got, err := store.GetRange(ctx, "BTCUSDT", 0, 10_000)
	if err != nil {
		t.Fatalf("GetRange failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 bar after failed batch, got %d", len(got))
	}
}

func TestBarStore_SymbolsAreIsolated(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()

	if err := store.InsertBars(ctx, "BTCUSDT", []domain.Bar{{TimestampMs: 1000}}); err != nil {
		t.Fatalf("InsertBars failed: %v", err)
	}
	if err := store.InsertBars(ctx, "ETHUSDT", []domain.Bar{{TimestampMs: 1000}}); err != nil {
		t.Fatalf("same timestamp under another symbol must not collide: %v", err)
	}

	got, err := store.GetRange(ctx, "ETHUSDT", 0, 10_000)
	if err != nil {
		t.Fatalf("GetRange failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 bar for ETHUSDT, got %d", len(got))
	}
}

func TestBarStore_EmptyInputs(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()

	if err := store.InsertBars(ctx, "", []domain.Bar{{TimestampMs: 1000}}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty symbol: expected ErrInvalidInput, got %v", err)
	}
	if err := store.InsertBars(ctx, "BTCUSDT", nil); err != nil {
		t.Errorf("empty batch must be a no-op, got %v", err)
	}
	got, err := store.GetRange(ctx, "UNKNOWN", 0, 10_000)
	if err != nil || len(got) != 0 {
		t.Errorf("unknown symbol must yield empty range, got %v, %v", got, err)
	}
}
