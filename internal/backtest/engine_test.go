package backtest

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/metrics"
)

func flatCandle(i int, price float64) domain.Candle {
	return domain.Candle{
		TimestampMs: int64(i) * 60000,
		Open:        price, High: price, Low: price, Close: price,
		Volume: 100,
	}
}

func flatSeries(n int, price float64) []domain.Candle {
	out := make([]domain.Candle, n)
	for i := range out {
		out[i] = flatCandle(i, price)
	}
	return out
}

func baseRequest(candles []domain.Candle) *Request {
	return &Request{
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		Candles:   candles,
		Cost:      CostConfig{FeeRate: 0, SlipBps: 0, SpreadBps: 0},
		Risk:      RiskConfig{Equity: 10000, RiskPct: 1},
	}
}

func newTestEngine(s Strategy) *Engine {
	return NewEngine(s, zerolog.Nop())
}

func TestRun_FlatSeriesAllHold(t *testing.T) {
	// Scenario: 200 flat candles, strategy only ever holds.
	engine := newTestEngine(NewHoldStrategy())
	res, err := engine.Run(context.Background(), baseRequest(flatSeries(200, 100)))
	require.NoError(t, err)

	assert.Equal(t, 100, res.Summary.TotalSignals, "one evaluation per post-warmup candle")
	assert.Equal(t, 0, res.Summary.TradedSignals)
	assert.Equal(t, 100, res.Summary.SkippedSignals)
	assert.Empty(t, res.Trades)
	require.Len(t, res.Curve, 1, "no trades leaves a single equity point")
	assert.Equal(t, 10000.0, res.Curve[0].Equity)
	assert.Equal(t, 0, res.Stats.TotalTrades)
}

// risingAfterEntry builds 100 flat warmup candles plus an entry candle
// at basePrice and a forward path defined by the given bars.
func seriesWithPath(bars []domain.Candle) []domain.Candle {
	candles := flatSeries(101, 100)
	for i, b := range bars {
		b.TimestampMs = int64(101+i) * 60000
		candles = append(candles, b)
	}
	// Pad to satisfy the minimum length with candles far from levels.
	for len(candles) < 200 {
		c := flatCandle(len(candles), 100)
		candles = append(candles, c)
	}
	return candles
}

func bar(o, h, l, c float64) domain.Candle {
	return domain.Candle{Open: o, High: h, Low: l, Close: c, Volume: 100}
}

func TestRun_BuyHitsTakeProfit(t *testing.T) {
	// Entry 100, stop distance 2 (ATR fallback 2% x mult 1), target 104.
	candles := seriesWithPath([]domain.Candle{
		bar(100, 103, 99.5, 102),
		bar(102, 105, 101, 104.5),
		bar(104.5, 108, 104, 107),
		bar(107, 110, 106, 110),
		bar(110, 110.5, 109, 110),
	})

	strategy := NewStubStrategy(domain.Decision{Label: domain.LabelBuy, Score: 80, Confidence: 0.8, Summary: "test buy"})
	req := baseRequest(candles)
	req.Risk.ATRMult = 1
	req.Risk.TP1RR = 2

	res, err := newTestEngine(strategy).Run(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	trade := res.Trades[0]
	assert.Equal(t, domain.SideLong, trade.Side)
	assert.Equal(t, 100.0, trade.EntryPrice)
	assert.Equal(t, 98.0, trade.StopLoss)
	assert.Equal(t, 104.0, trade.TakeProfit)
	assert.Equal(t, domain.ExitReasonTakeProfit, trade.ExitReason)
	assert.Positive(t, trade.NetPnL)
	assert.Positive(t, trade.RMultiple)
}

func TestRun_BuyHitsStopLoss(t *testing.T) {
	// Symmetric case: price drops through 98 before any rally.
	candles := seriesWithPath([]domain.Candle{
		bar(100, 101, 97, 97.5),
		bar(97.5, 104, 97, 103),
		bar(103, 106, 102, 105),
	})

	strategy := NewStubStrategy(domain.Decision{Label: domain.LabelBuy, Score: 80, Confidence: 0.8, Summary: "test buy"})
	req := baseRequest(candles)
	req.Risk.ATRMult = 1
	req.Risk.TP1RR = 2
	req.Cost.FeeRate = 0.001

	res, err := newTestEngine(strategy).Run(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	trade := res.Trades[0]
	assert.Equal(t, domain.ExitReasonStopLoss, trade.ExitReason)
	assert.Negative(t, trade.NetPnL)

	// Loss bounded by the risked amount plus costs.
	riskAmount := 10000 * 0.01
	assert.LessOrEqual(t, -trade.NetPnL, riskAmount+trade.Cost+1e-9)
	assert.Negative(t, trade.RMultiple)
}

func TestRun_SellMirrored(t *testing.T) {
	candles := seriesWithPath([]domain.Candle{
		bar(100, 100.5, 97, 97.5),
		bar(97.5, 98, 95, 95.5),
	})

	strategy := NewStubStrategy(domain.Decision{Label: domain.LabelSell, Score: 20, Confidence: 0.8, Summary: "test sell"})
	req := baseRequest(candles)
	req.Risk.ATRMult = 1
	req.Risk.TP1RR = 2

	res, err := newTestEngine(strategy).Run(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	trade := res.Trades[0]
	assert.Equal(t, domain.SideShort, trade.Side)
	assert.Equal(t, 102.0, trade.StopLoss)
	assert.Equal(t, 96.0, trade.TakeProfit)
	assert.Equal(t, domain.ExitReasonTakeProfit, trade.ExitReason)
	assert.Positive(t, trade.NetPnL)
}

func TestRun_SlippageMovesFillAgainstTrade(t *testing.T) {
	candles := seriesWithPath([]domain.Candle{
		bar(100, 110, 99.9, 109),
		bar(109, 112, 108, 111),
	})

	strategy := NewStubStrategy(domain.Decision{Label: domain.LabelBuy, Score: 80, Summary: "buy"})
	req := baseRequest(candles)
	req.Cost.SlipBps = 50 // 0.5%

	res, err := newTestEngine(strategy).Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.InDelta(t, 100.5, res.Trades[0].EntryPrice, 1e-9)
}

func TestRun_EndOfDataClose(t *testing.T) {
	// BUY near the end of the series with levels nothing can touch:
	// the series ends before the horizon does.
	candles := flatSeries(200, 100)
	strategy := NewStubStrategy(domain.Decision{Label: domain.LabelBuy, Score: 80, Summary: "buy"})
	req := baseRequest(candles)
	req.Risk.ATRMult = 3 // stop 94, target 136: unreachable on a flat series
	req.Risk.TP1RR = 7

	res, err := newTestEngine(strategy).Run(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	assert.Equal(t, domain.ExitReasonEndOfData, res.Trades[0].ExitReason)
	assert.Equal(t, candles[len(candles)-1].TimestampMs, res.Trades[0].ExitTsMs)
}

func TestRun_TimeoutAtHorizon(t *testing.T) {
	// 300 flat candles: the 100-candle horizon is exhausted while data
	// remains, so the close is a timeout, not end_of_data.
	candles := flatSeries(300, 100)
	strategy := NewStubStrategy(domain.Decision{Label: domain.LabelBuy, Score: 80, Summary: "buy"})
	req := baseRequest(candles)
	req.Risk.ATRMult = 3
	req.Risk.TP1RR = 7

	res, err := newTestEngine(strategy).Run(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	assert.Equal(t, domain.ExitReasonTimeout, res.Trades[0].ExitReason)
}

func TestRun_StopWinsIntrabarTie(t *testing.T) {
	// One candle touches both stop (98) and target (104); the intrabar
	// order is unknowable so the stop is taken.
	candles := seriesWithPath([]domain.Candle{
		bar(100, 105, 97, 101),
	})
	strategy := NewStubStrategy(domain.Decision{Label: domain.LabelBuy, Score: 80, Summary: "buy"})
	req := baseRequest(candles)
	req.Risk.ATRMult = 1
	req.Risk.TP1RR = 2

	res, err := newTestEngine(strategy).Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, domain.ExitReasonStopLoss, res.Trades[0].ExitReason)
}

func TestRun_MaxTradesStopsRun(t *testing.T) {
	script := make([]domain.Decision, 50)
	for i := range script {
		script[i] = domain.Decision{Label: domain.LabelBuy, Score: 80, Summary: "buy"}
	}
	candles := flatSeries(400, 100)
	req := baseRequest(candles)
	req.Risk.ATRMult = 3
	req.Risk.TP1RR = 7
	req.MaxTrades = 1

	res, err := newTestEngine(NewStubStrategy(script...)).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, res.Trades, 1)
}

func TestRun_StatsRoundTrip(t *testing.T) {
	// The stats embedded in the result must match an independent
	// metrics computation over the realized trades.
	candles := seriesWithPath([]domain.Candle{
		bar(100, 103, 99.5, 102),
		bar(102, 105, 101, 104.5),
		bar(104.5, 101, 100, 100.5),
	})
	strategy := NewStubStrategy(
		domain.Decision{Label: domain.LabelBuy, Score: 80, Summary: "buy"},
	)
	req := baseRequest(candles)
	req.Risk.ATRMult = 1
	req.Risk.TP1RR = 2

	res, err := newTestEngine(strategy).Run(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Trades)

	points := make([]domain.TradePoint, len(res.Trades))
	for i, tr := range res.Trades {
		points[i] = domain.TradePoint{TsMs: tr.ExitTsMs, PnL: tr.NetPnL}
	}
	recomputed := metrics.Compute(points, req.Risk.Equity)
	assert.Equal(t, recomputed, res.Stats)
}

func TestValidate_RejectsBadInput(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Request)
	}{
		{"empty symbol", func(r *Request) { r.Symbol = "" }},
		{"empty timeframe", func(r *Request) { r.Timeframe = "" }},
		{"fee too high", func(r *Request) { r.Cost.FeeRate = 0.02 }},
		{"negative slippage", func(r *Request) { r.Cost.SlipBps = -1 }},
		{"zero equity", func(r *Request) { r.Risk.Equity = 0 }},
		{"risk too high", func(r *Request) { r.Risk.RiskPct = 11 }},
		{"too few candles", func(r *Request) { r.Candles = r.Candles[:150] }},
		{"high below low", func(r *Request) {
			r.Candles[50].High = 90
			r.Candles[50].Low = 110
		}},
		{"non-monotonic time", func(r *Request) {
			r.Candles[60].TimestampMs = r.Candles[59].TimestampMs
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := baseRequest(flatSeries(200, 100))
			c.mutate(req)

			_, err := newTestEngine(NewHoldStrategy()).Run(context.Background(), req)
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.NotEmpty(t, verr.Violations)
		})
	}
}

func TestValidate_CollectsAllViolations(t *testing.T) {
	req := &Request{}
	err := req.Validate()
	require.Error(t, err)

	verr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(verr.Violations), 5)
}
