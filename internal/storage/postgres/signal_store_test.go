package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/storage"
)

func createTestSignal(signalID string, ts int64, symbol string, label domain.Label) *domain.Signal {
	return &domain.Signal{
		SignalID:    signalID,
		TimestampMs: ts,
		Symbol:      symbol,
		Label:       label,
		Score:       72.5,
		Confidence:  ptr(0.64),
		Timeframe:   "1h",
		Regime:      ptr("trending"),
		HTFBias:     ptr("bullish"),
		MTFAligned:  ptr(true),
		Summary:     ptr("structure: bullish bias"),
	}
}

func createTestExecution(signalID string) *domain.Execution {
	return &domain.Execution{
		SignalID:   signalID,
		Side:       domain.SideLong,
		Entry:      100.0,
		StopLoss:   ptr(97.0),
		TP1:        ptr(104.0),
		TP2:        ptr(106.0),
		Qty:        ptr(1.5),
		Fees:       ptr(0.12),
		Slippage:   ptr(0.05),
		Spread:     ptr(0.02),
		RiskAmount: ptr(100.0),
	}
}

func createTestOutcome(signalID string, exitTs int64, pnl float64) *domain.Outcome {
	return &domain.Outcome{
		SignalID:     signalID,
		ExitTsMs:     exitTs,
		ExitPrice:    104.0,
		PnL:          pnl,
		PnLPct:       ptr(4.0),
		RR:           2.0,
		Reason:       domain.ExitReasonTakeProfit,
		DurationMins: ptr(int64(180)),
	}
}

func TestSignalStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSignalStore(pool)

	sig := createTestSignal("sig-001", 1000, "BTCUSDT", domain.LabelBuy)

	inserted, err := store.Insert(ctx, sig)
	require.NoError(t, err)
	assert.True(t, inserted)

	retrieved, err := store.GetByID(ctx, "sig-001")
	require.NoError(t, err)

	assert.Equal(t, sig.SignalID, retrieved.SignalID)
	assert.Equal(t, sig.TimestampMs, retrieved.TimestampMs)
	assert.Equal(t, sig.Symbol, retrieved.Symbol)
	assert.Equal(t, sig.Label, retrieved.Label)
	assert.InDelta(t, sig.Score, retrieved.Score, 0.0001)
	require.NotNil(t, retrieved.Confidence)
	assert.InDelta(t, *sig.Confidence, *retrieved.Confidence, 0.0001)
	assert.Equal(t, sig.Timeframe, retrieved.Timeframe)
	require.NotNil(t, retrieved.Regime)
	assert.Equal(t, *sig.Regime, *retrieved.Regime)
	require.NotNil(t, retrieved.MTFAligned)
	assert.True(t, *retrieved.MTFAligned)
}

func TestSignalStore_InsertDuplicateIsNoOp(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSignalStore(pool)

	sig := createTestSignal("sig-dup-001", 1000, "BTCUSDT", domain.LabelBuy)

	inserted, err := store.Insert(ctx, sig)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same natural key, different payload: skipped without error.
	again := createTestSignal("sig-dup-001", 1000, "BTCUSDT", domain.LabelSell)
	inserted, err = store.Insert(ctx, again)
	require.NoError(t, err)
	assert.False(t, inserted)

	// Stored row keeps the first write.
	retrieved, err := store.GetByID(ctx, "sig-dup-001")
	require.NoError(t, err)
	assert.Equal(t, domain.LabelBuy, retrieved.Label)
}

func TestSignalStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSignalStore(pool)

	_, err := store.GetByID(ctx, "nonexistent-signal")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSignalStore_GetBySymbolRangeAndOrder(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSignalStore(pool)

	for _, sig := range []*domain.Signal{
		createTestSignal("sig-range-003", 3000, "BTCUSDT", domain.LabelHold),
		createTestSignal("sig-range-001", 1000, "BTCUSDT", domain.LabelBuy),
		createTestSignal("sig-range-002", 2000, "BTCUSDT", domain.LabelSell),
		createTestSignal("sig-range-eth", 2000, "ETHUSDT", domain.LabelBuy),
	} {
		_, err := store.Insert(ctx, sig)
		require.NoError(t, err)
	}

	result, err := store.GetBySymbol(ctx, "BTCUSDT", "1h", 1000, 2000)
	require.NoError(t, err)

	require.Len(t, result, 2)
	assert.Equal(t, int64(1000), result[0].TimestampMs)
	assert.Equal(t, int64(2000), result[1].TimestampMs)
}

func TestSignalStore_GetRowsJoinsStages(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	signals := NewSignalStore(pool)
	execs := NewExecutionStore(pool)
	outcomes := NewOutcomeStore(pool)

	// Three lifecycle stages: published only, triggered, closed.
	for _, sig := range []*domain.Signal{
		createTestSignal("sig-row-001", 1000, "BTCUSDT", domain.LabelBuy),
		createTestSignal("sig-row-002", 2000, "BTCUSDT", domain.LabelBuy),
		createTestSignal("sig-row-003", 3000, "BTCUSDT", domain.LabelBuy),
	} {
		_, err := signals.Insert(ctx, sig)
		require.NoError(t, err)
	}
	require.NoError(t, execs.Insert(ctx, createTestExecution("sig-row-002")))
	require.NoError(t, execs.Insert(ctx, createTestExecution("sig-row-003")))
	require.NoError(t, outcomes.Insert(ctx, createTestOutcome("sig-row-003", 4000, 6.0)))

	rows, err := signals.GetRows(ctx, "BTCUSDT", 0, 10_000)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Nil(t, rows[0].Execution)
	assert.Nil(t, rows[0].Outcome)

	require.NotNil(t, rows[1].Execution)
	assert.Nil(t, rows[1].Outcome)
	assert.True(t, rows[1].Open())
	assert.Equal(t, domain.SideLong, rows[1].Execution.Side)

	require.NotNil(t, rows[2].Execution)
	require.NotNil(t, rows[2].Outcome)
	assert.False(t, rows[2].Open())
	assert.InDelta(t, 6.0, rows[2].Outcome.PnL, 0.0001)
}

func TestSignalStore_GetRowsEmptySymbolMatchesAll(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSignalStore(pool)

	_, err := store.Insert(ctx, createTestSignal("sig-all-001", 1000, "BTCUSDT", domain.LabelBuy))
	require.NoError(t, err)
	_, err = store.Insert(ctx, createTestSignal("sig-all-002", 2000, "ETHUSDT", domain.LabelSell))
	require.NoError(t, err)

	rows, err := store.GetRows(ctx, "", 0, 10_000)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestSignalStore_GetOpenPositions(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	signals := NewSignalStore(pool)
	execs := NewExecutionStore(pool)
	outcomes := NewOutcomeStore(pool)

	open := createTestSignal("sig-open-001", 1000, "BTCUSDT", domain.LabelBuy)
	closed := createTestSignal("sig-open-002", 2000, "BTCUSDT", domain.LabelSell)
	hold := createTestSignal("sig-open-003", 3000, "BTCUSDT", domain.LabelHold)

	for _, sig := range []*domain.Signal{open, closed, hold} {
		_, err := signals.Insert(ctx, sig)
		require.NoError(t, err)
	}
	require.NoError(t, execs.Insert(ctx, createTestExecution("sig-open-001")))
	require.NoError(t, execs.Insert(ctx, createTestExecution("sig-open-002")))
	require.NoError(t, outcomes.Insert(ctx, createTestOutcome("sig-open-002", 5000, -2.0)))

	rows, err := signals.GetOpenPositions(ctx)
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, "sig-open-001", rows[0].Signal.SignalID)
	assert.True(t, rows[0].Open())
}

func TestSignalStore_PurgeOlderThanCascades(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	signals := NewSignalStore(pool)
	execs := NewExecutionStore(pool)
	outcomes := NewOutcomeStore(pool)

	cutoff := time.UnixMilli(2000)

	oldSig := createTestSignal("sig-purge-old", 1000, "BTCUSDT", domain.LabelBuy)
	newSig := createTestSignal("sig-purge-new", 3000, "BTCUSDT", domain.LabelBuy)

	for _, sig := range []*domain.Signal{oldSig, newSig} {
		_, err := signals.Insert(ctx, sig)
		require.NoError(t, err)
	}
	require.NoError(t, execs.Insert(ctx, createTestExecution("sig-purge-old")))
	require.NoError(t, outcomes.Insert(ctx, createTestOutcome("sig-purge-old", 1500, 1.0)))

	removed, err := signals.PurgeOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = signals.GetByID(ctx, "sig-purge-old")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = execs.GetBySignalID(ctx, "sig-purge-old")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = outcomes.GetBySignalID(ctx, "sig-purge-old")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = signals.GetByID(ctx, "sig-purge-new")
	require.NoError(t, err)
}
