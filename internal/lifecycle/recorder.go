package lifecycle

import (
	"context"
	"fmt"
	"math"

	"trading-signal-lab/internal/backtest"
	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/idhash"
)

// Compile-time interface check.
var _ backtest.TradeRecorder = (*Service)(nil)

// RecordTrade persists one resolved simulated trade as a full
// signal/execution/outcome triple. Re-running the same backtest hits
// the same natural keys, so duplicates collapse instead of erroring.
func (s *Service) RecordTrade(ctx context.Context, symbol, timeframe string, trade *domain.TradeRecord, decision *domain.Decision) error {
	if trade == nil {
		return fmt.Errorf("record trade: nil trade")
	}

	sig := signalFromTrade(symbol, timeframe, trade, decision)
	lvls := levelsFromTrade(trade)

	if _, err := s.PublishSignal(ctx, sig, lvls); err != nil {
		return fmt.Errorf("publish signal: %w", err)
	}

	exec := executionFromTrade(sig.SignalID, trade)
	if err := s.RecordExecution(ctx, exec, trade.EntryTsMs); err != nil && !errIsDuplicate(err) {
		return fmt.Errorf("record execution: %w", err)
	}

	out := outcomeFromTrade(sig.SignalID, trade)
	if err := s.RecordOutcome(ctx, out); err != nil && !errIsDuplicate(err) {
		return fmt.Errorf("record outcome: %w", err)
	}

	return nil
}

func signalFromTrade(symbol, timeframe string, trade *domain.TradeRecord, decision *domain.Decision) *domain.Signal {
	label := domain.LabelBuy
	if trade.Side == domain.SideShort {
		label = domain.LabelSell
	}

	sig := &domain.Signal{
		SignalID:    idhash.ComputeSignalID(trade.EntryTsMs, symbol, timeframe),
		TimestampMs: trade.EntryTsMs,
		Symbol:      symbol,
		Label:       label,
		Score:       trade.Score,
		Timeframe:   timeframe,
	}
	if trade.Confidence > 0 {
		conf := trade.Confidence
		sig.Confidence = &conf
	}
	if trade.Summary != "" {
		summary := trade.Summary
		sig.Summary = &summary
	}
	if decision != nil && decision.Regime != "" {
		regime := decision.Regime
		sig.Regime = &regime
	}
	return sig
}

func levelsFromTrade(trade *domain.TradeRecord) *domain.TradingLevels {
	rr := 0.0
	if dist := math.Abs(trade.EntryPrice - trade.StopLoss); dist > 0 {
		rr = math.Abs(trade.TakeProfit-trade.EntryPrice) / dist
	}
	return &domain.TradingLevels{
		Entry:      trade.EntryPrice,
		StopLoss:   trade.StopLoss,
		TakeProfit: []float64{trade.TakeProfit},
		RiskReward: rr,
	}
}

func executionFromTrade(signalID string, trade *domain.TradeRecord) *domain.Execution {
	stop := trade.StopLoss
	tp1 := trade.TakeProfit
	cost := trade.Cost
	return &domain.Execution{
		SignalID: signalID,
		Side:     trade.Side,
		Entry:    trade.EntryPrice,
		StopLoss: &stop,
		TP1:      &tp1,
		Fees:     &cost,
	}
}

func outcomeFromTrade(signalID string, trade *domain.TradeRecord) *domain.Outcome {
	out := &domain.Outcome{
		SignalID:  signalID,
		ExitTsMs:  trade.ExitTsMs,
		ExitPrice: trade.ExitPrice,
		PnL:       trade.NetPnL,
		RR:        trade.RMultiple,
		Reason:    trade.ExitReason,
	}
	if trade.EntryPrice != 0 {
		pct := (trade.ExitPrice - trade.EntryPrice) / trade.EntryPrice * 100
		if trade.Side == domain.SideShort {
			pct = -pct
		}
		out.PnLPct = &pct
	}
	if trade.ExitTsMs > trade.EntryTsMs {
		mins := (trade.ExitTsMs - trade.EntryTsMs) / 60_000
		out.DurationMins = &mins
	}
	return out
}
