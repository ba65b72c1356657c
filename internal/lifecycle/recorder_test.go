package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/events"
)

func resolvedTrade() *domain.TradeRecord {
	return &domain.TradeRecord{
		Symbol:     "BTCUSDT",
		Timeframe:  "1h",
		Side:       domain.SideLong,
		EntryTsMs:  3_600_000,
		EntryPrice: 100,
		StopLoss:   98,
		TakeProfit: 104,
		ExitTsMs:   7_200_000,
		ExitPrice:  104,
		ExitReason: domain.ExitReasonTakeProfit,
		GrossPnL:   8,
		Cost:       0.5,
		NetPnL:     7.5,
		RMultiple:  2,
		Score:      81,
		Confidence: 0.7,
		Summary:    "momentum: rsi bullish zone",
	}
}

func TestRecordTrade_PersistsFullTriple(t *testing.T) {
	svc, emitter := newTestService()
	ctx := context.Background()

	trade := resolvedTrade()
	require.NoError(t, svc.RecordTrade(ctx, trade.Symbol, trade.Timeframe, trade, &domain.Decision{
		Label:  domain.LabelBuy,
		Score:  81,
		Regime: "trending",
	}))

	rows, err := svc.Rows(ctx, "BTCUSDT", 0, 10_000_000)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, domain.LabelBuy, row.Signal.Label)
	assert.InDelta(t, 81.0, row.Signal.Score, 1e-9)
	require.NotNil(t, row.Signal.Regime)
	assert.Equal(t, "trending", *row.Signal.Regime)

	require.NotNil(t, row.Execution)
	assert.Equal(t, domain.SideLong, row.Execution.Side)
	assert.InDelta(t, 100.0, row.Execution.Entry, 1e-9)
	require.NotNil(t, row.Execution.StopLoss)
	assert.InDelta(t, 98.0, *row.Execution.StopLoss, 1e-9)

	require.NotNil(t, row.Outcome)
	assert.InDelta(t, 7.5, row.Outcome.PnL, 1e-9)
	assert.Equal(t, domain.ExitReasonTakeProfit, row.Outcome.Reason)
	require.NotNil(t, row.Outcome.DurationMins)
	assert.Equal(t, int64(60), *row.Outcome.DurationMins)

	// One event per lifecycle stage.
	evs := drainEvents(emitter)
	require.Len(t, evs, 3)
	assert.Equal(t, events.TypePublished, evs[0].Type)
	assert.Equal(t, events.TypeTriggered, evs[1].Type)
	assert.Equal(t, events.TypeClosed, evs[2].Type)

	p := evs[0].Payload.(events.Published)
	assert.InDelta(t, 2.0, p.RR, 1e-9, "rr derived from entry/stop/target")
}

func TestRecordTrade_ReplayIsIdempotent(t *testing.T) {
	svc, emitter := newTestService()
	ctx := context.Background()

	trade := resolvedTrade()
	require.NoError(t, svc.RecordTrade(ctx, trade.Symbol, trade.Timeframe, trade, nil))
	drainEvents(emitter)

	// Same trade again, as a re-run backtest would produce.
	require.NoError(t, svc.RecordTrade(ctx, trade.Symbol, trade.Timeframe, trade, nil))

	rows, err := svc.Rows(ctx, "BTCUSDT", 0, 10_000_000)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "replay collapses onto the same natural key")
	assert.Empty(t, drainEvents(emitter), "no events re-emitted on replay")
}

func TestRecordTrade_ShortSideMapsToSell(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	trade := resolvedTrade()
	trade.Side = domain.SideShort
	trade.StopLoss = 102
	trade.TakeProfit = 96
	trade.ExitPrice = 96

	require.NoError(t, svc.RecordTrade(ctx, trade.Symbol, trade.Timeframe, trade, nil))

	rows, err := svc.Rows(ctx, "BTCUSDT", 0, 10_000_000)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.LabelSell, rows[0].Signal.Label)

	require.NotNil(t, rows[0].Outcome.PnLPct)
	assert.InDelta(t, 4.0, *rows[0].Outcome.PnLPct, 1e-9, "short profit reported positive")
}
