// Package backtest replays a historical candle series through a
// pluggable decision strategy, simulates fills with slippage, fee and
// spread cost, and resolves each trade by scanning forward for stop or
// target hits.
package backtest

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/indicator"
	"trading-signal-lab/internal/levels"
	"trading-signal-lab/internal/metrics"
	"trading-signal-lab/internal/observability"
)

// Engine defaults.
const (
	DefaultWarmup = 100 // candles consumed before the first evaluation
	exitHorizon   = 100 // forward-scan bound for the exit race
)

// CostConfig models per-trade execution costs.
type CostConfig struct {
	FeeRate   float64 // taker fee fraction per side, [0, 0.01]
	SlipBps   float64 // slippage in basis points, [0, 100]
	SpreadBps float64 // half-spread in basis points, [0, 100]
}

// RiskConfig models position sizing and level placement.
type RiskConfig struct {
	Equity  float64 // starting equity, > 0
	RiskPct float64 // percent of equity risked per trade, (0, 10]
	ATRMult float64 // stop distance in ATRs; 0 uses the default 1.5
	TP1RR   float64 // first target as a multiple of risk; 0 uses levels defaults
	TP2RR   float64 // second target as a multiple of risk (recorded only)
}

// Request is one backtest run's input.
type Request struct {
	Symbol    string
	Timeframe string
	Candles   []domain.Candle
	Cost      CostConfig
	Risk      RiskConfig

	Warmup    int // 0 uses DefaultWarmup
	MaxTrades int // 0 means unlimited
}

// Summary describes the span and decision counts of a run.
type Summary struct {
	StartDate      time.Time
	EndDate        time.Time
	Duration       time.Duration
	TotalSignals   int
	TradedSignals  int
	SkippedSignals int
}

// Result is the full output of a backtest run.
type Result struct {
	Stats   *metrics.PerformanceMetrics
	Curve   []domain.EquityPoint
	Trades  []domain.TradeRecord
	Summary Summary
}

// TradeRecorder receives each resolved trade for persistence. The
// engine treats recorder failures as non-fatal: the in-memory result
// is returned to the caller regardless.
type TradeRecorder interface {
	RecordTrade(ctx context.Context, symbol, timeframe string, trade *domain.TradeRecord, decision *domain.Decision) error
}

// Engine is a single-threaded simulator over one candle sequence.
// Each run owns its own trade list and equity accumulator; independent
// runs may execute concurrently as isolated tasks.
type Engine struct {
	strategy Strategy
	recorder TradeRecorder // optional
	log      zerolog.Logger
}

// NewEngine creates an engine around the given strategy.
func NewEngine(strategy Strategy, log zerolog.Logger) *Engine {
	return &Engine{strategy: strategy, log: log}
}

// WithRecorder attaches a trade recorder for write-through persistence
// of resolved trades.
func (e *Engine) WithRecorder(r TradeRecorder) *Engine {
	e.recorder = r
	return e
}

// Run validates the request and replays the candle series in strict
// chronological order. Validation failures abort before any step.
func (e *Engine) Run(ctx context.Context, req *Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	warmup := req.Warmup
	if warmup <= 0 {
		warmup = DefaultWarmup
	}
	if warmup >= len(req.Candles) {
		return nil, &ValidationError{Violations: []string{
			fmt.Sprintf("warmup %d leaves no candles to evaluate", warmup),
		}}
	}

	atrMult := req.Risk.ATRMult
	if atrMult <= 0 {
		atrMult = 1.5
	}

	candles := req.Candles
	atrSeries := indicator.ATR(candles, indicator.DefaultATRPeriod)

	result := &Result{}
	var trades []domain.TradeRecord
	var points []domain.TradePoint
	summary := Summary{
		StartDate: time.UnixMilli(candles[warmup].TimestampMs).UTC(),
		EndDate:   time.UnixMilli(candles[len(candles)-1].TimestampMs).UTC(),
	}
	summary.Duration = summary.EndDate.Sub(summary.StartDate)

	for i := warmup; i < len(candles); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		window := candles[i-warmup+1 : i+1]
		decision, err := e.strategy.Evaluate(ctx, window)
		if err != nil {
			return nil, fmt.Errorf("evaluate step %d: %w", i, err)
		}
		summary.TotalSignals++
		observability.DefaultMetrics.SignalsEvaluated.Inc()

		if decision.Label == domain.LabelHold {
			summary.SkippedSignals++
			continue
		}

		// Fill at the next candle's open; without one the decision
		// cannot execute and the run ends.
		if i+1 >= len(candles) {
			summary.SkippedSignals++
			break
		}

		trade := e.openAndResolve(candles, i, decision, atrSeries[i], atrMult, req)
		trades = append(trades, *trade)
		points = append(points, domain.TradePoint{TsMs: trade.ExitTsMs, PnL: trade.NetPnL})
		summary.TradedSignals++
		observability.RecordTradeSimulated()

		if e.recorder != nil {
			if err := e.recorder.RecordTrade(ctx, req.Symbol, req.Timeframe, trade, decision); err != nil {
				e.log.Warn().Err(err).
					Str("symbol", req.Symbol).
					Int64("entry_ts", trade.EntryTsMs).
					Msg("trade persistence failed, keeping in-memory result")
			}
		}

		if req.MaxTrades > 0 && len(trades) >= req.MaxTrades {
			break
		}

		// Resume evaluation after the trade resolved; exit index is
		// found by timestamp since resolution may have consumed the
		// full horizon.
		i = indexAt(candles, trade.ExitTsMs, i)
	}

	result.Trades = trades
	result.Curve = metrics.EquityCurve(points, req.Risk.Equity)
	result.Stats = metrics.Compute(points, req.Risk.Equity)
	result.Summary = summary

	e.log.Info().
		Str("symbol", req.Symbol).
		Str("timeframe", req.Timeframe).
		Int("signals", summary.TotalSignals).
		Int("trades", summary.TradedSignals).
		Float64("pnl", result.Stats.TotalPnL).
		Msg("backtest complete")

	return result, nil
}

// openAndResolve fills at the next candle's open with slippage applied,
// derives stop/target levels, then races stop against target over the
// bounded forward horizon.
func (e *Engine) openAndResolve(candles []domain.Candle, decisionIdx int, decision *domain.Decision, atr, atrMult float64, req *Request) *domain.TradeRecord {
	entryIdx := decisionIdx + 1
	entryCandle := candles[entryIdx]

	long := decision.Label == domain.LabelBuy
	side := domain.SideLong
	dir := 1.0
	if !long {
		side = domain.SideShort
		dir = -1.0
	}

	// Slippage moves the fill against the trade.
	slip := req.Cost.SlipBps / 10000
	fill := entryCandle.Open * (1 + dir*slip)

	bracket := levels.Generate(fill, decision.Label, atr)
	stop := bracket.StopLoss
	target := bracket.TakeProfit[0]
	if req.Risk.ATRMult > 0 {
		stop = fill - dir*atrMult*effectiveATR(fill, atr)
	}
	stopDist := math.Abs(fill - stop)
	if req.Risk.TP1RR > 0 {
		target = fill + dir*stopDist*req.Risk.TP1RR
	}

	// Size the position off the configured risk budget.
	qty := 0.0
	if stopDist > 0 {
		qty = req.Risk.Equity * (req.Risk.RiskPct / 100) / stopDist
	}

	exitIdx, exitPrice, reason := resolveExit(candles, entryIdx, long, stop, target)
	exitCandle := candles[exitIdx]

	gross := dir * (exitPrice - fill) * qty
	notional := fill * qty
	cost := notional*req.Cost.FeeRate*2 + notional*slip + notional*(req.Cost.SpreadBps/10000)
	net := gross - cost

	rr := 0.0
	if stopDist > 0 {
		rr = math.Abs(exitPrice-fill) / stopDist
		if net < 0 {
			rr = -rr
		}
	}

	return &domain.TradeRecord{
		Symbol:      req.Symbol,
		Timeframe:   req.Timeframe,
		Side:        side,
		EntryTsMs:   entryCandle.TimestampMs,
		EntryPrice:  fill,
		StopLoss:    stop,
		TakeProfit:  target,
		ExitTsMs:    exitCandle.TimestampMs,
		ExitPrice:   exitPrice,
		ExitReason:  reason,
		GrossPnL:    gross,
		Cost:        cost,
		NetPnL:      net,
		RMultiple:   rr,
		HoldCandles: exitIdx - entryIdx,
		Score:       decision.Score,
		Confidence:  decision.Confidence,
		Summary:     decision.Summary,
	}
}

// resolveExit scans forward from the entry candle for the first candle
// whose range crosses the stop or the target. Resolution is by candle
// index; when both levels are touched inside one candle the intrabar
// order is unknowable, so the stop wins (conservative). If neither
// level is hit the trade closes at the last scanned candle's close,
// with reason end_of_data when the series ended or timeout when the
// horizon ran out.
func resolveExit(candles []domain.Candle, entryIdx int, long bool, stop, target float64) (exitIdx int, exitPrice float64, reason string) {
	last := entryIdx + exitHorizon
	truncated := false
	if last >= len(candles) {
		last = len(candles) - 1
		truncated = true
	}

	for j := entryIdx; j <= last; j++ {
		c := candles[j]
		if long {
			if c.Low <= stop {
				return j, stop, domain.ExitReasonStopLoss
			}
			if c.High >= target {
				return j, target, domain.ExitReasonTakeProfit
			}
		} else {
			if c.High >= stop {
				return j, stop, domain.ExitReasonStopLoss
			}
			if c.Low <= target {
				return j, target, domain.ExitReasonTakeProfit
			}
		}
	}

	reason = domain.ExitReasonTimeout
	if truncated {
		reason = domain.ExitReasonEndOfData
	}
	return last, candles[last].Close, reason
}

// effectiveATR substitutes the 2%-of-price fallback for a collapsed ATR.
func effectiveATR(price, atr float64) float64 {
	if atr <= 0 {
		return price * 0.02
	}
	return atr
}

// indexAt finds the index of the candle with the given timestamp,
// scanning forward from hint.
func indexAt(candles []domain.Candle, tsMs int64, hint int) int {
	for j := hint; j < len(candles); j++ {
		if candles[j].TimestampMs >= tsMs {
			return j
		}
	}
	return len(candles) - 1
}
