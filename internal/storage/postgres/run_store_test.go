package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btc-strategy-lab/internal/domain"
	"btc-strategy-lab/internal/storage"
)

func makeRun(startedAt int64) *domain.TestRun {
	return &domain.TestRun{
		RunID:         uuid.NewString(),
		StartedAtMs:   startedAt,
		CompletedAtMs: startedAt + 9_000,
		Results: map[string]*domain.StrategyResult{
			"MACD_VOLUME": {
				StrategyName: "MACD_VOLUME",
				Trades: []*domain.Trade{
					{
						EntryTimeMs: startedAt + 1_000,
						ExitTimeMs:  startedAt + 4_000,
						Side:        domain.SideLong,
						Quantity:    10,
						EntryPrice:  100,
						ExitPrice:   120,
						RealizedPnL: 200,
						ExitReason:  domain.ExitReasonSignal,
					},
				},
				EquityCurve: []domain.EquityPoint{
					{TimestampMs: startedAt + 1_000, Equity: 10_000},
					{TimestampMs: startedAt + 4_000, Equity: 10_200},
				},
				Metrics: domain.Metrics{
					TotalPnL: 200, ROI: 2, WinRate: 100, TotalTrades: 1,
					WinningTrades: 1,
				},
			},
			"VOLUME_SURGE": {
				StrategyName: "VOLUME_SURGE",
				Failed:       true,
				Error:        "bar timestamps must strictly increase",
			},
		},
	}
}

func TestRunStore_SaveAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()

	run := makeRun(1_700_000_000_000)
	require.NoError(t, store.SaveRun(ctx, run))

	got, err := store.GetRun(ctx, run.RunID)
	require.NoError(t, err)

	assert.Equal(t, run.RunID, got.RunID)
	assert.Equal(t, run.StartedAtMs, got.StartedAtMs)
	assert.Equal(t, run.CompletedAtMs, got.CompletedAtMs)
	assert.False(t, got.Partial)
	require.Len(t, got.Results, 2)

	macd := got.Results["MACD_VOLUME"]
	require.NotNil(t, macd)
	assert.Equal(t, 200.0, macd.Metrics.TotalPnL)
	assert.Equal(t, 100.0, macd.Metrics.WinRate)
	require.Len(t, macd.Trades, 1)
	assert.Equal(t, domain.ExitReasonSignal, macd.Trades[0].ExitReason)
	require.Len(t, macd.EquityCurve, 2)
	assert.Equal(t, 10_200.0, macd.EquityCurve[1].Equity)

	surge := got.Results["VOLUME_SURGE"]
	require.NotNil(t, surge)
	assert.True(t, surge.Failed)
	assert.NotEmpty(t, surge.Error)
	assert.Empty(t, surge.Trades)
}

func TestRunStore_LatestRun(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()

	_, err := store.LatestRun(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	older := makeRun(1_700_000_000_000)
	newer := makeRun(1_700_000_100_000)
	require.NoError(t, store.SaveRun(ctx, older))
	require.NoError(t, store.SaveRun(ctx, newer))

	latest, err := store.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer.RunID, latest.RunID)
	require.Len(t, latest.Results, 2)
}

func TestRunStore_DuplicateRunID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()

	run := makeRun(1_700_000_000_000)
	require.NoError(t, store.SaveRun(ctx, run))

	err := store.SaveRun(ctx, run)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestRunStore_ListRuns(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		run := makeRun(1_700_000_000_000 + int64(i)*60_000)
		require.NoError(t, store.SaveRun(ctx, run))
		ids = append(ids, run.RunID)
	}

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].RunID)
	assert.Equal(t, ids[1], runs[1].RunID)
}

func TestRunStore_GetRunNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	_, err := store.GetRun(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
