// Package levels derives entry, stop-loss and take-profit prices from
// a decision label, the current price and volatility.
package levels

import (
	"math"

	"trading-signal-lab/internal/domain"
)

// ATR multiples for stop and target placement.
const (
	stopMult = 1.5
	tp1Mult  = 2.0
	tp2Mult  = 3.0
	tp3Mult  = 4.5
)

// atrFallbackPct replaces a missing or non-positive ATR with a
// fraction of price so levels are always generatable.
const atrFallbackPct = 0.02

// Generate builds trading levels for the given label around price.
// HOLD still yields a conservative symmetric bracket so downstream
// consumers always receive usable levels.
func Generate(price float64, label domain.Label, atr float64) domain.TradingLevels {
	if atr <= 0 {
		atr = price * atrFallbackPct
	}

	var stop float64
	var targets []float64
	switch label {
	case domain.LabelBuy:
		stop = price - stopMult*atr
		targets = []float64{price + tp1Mult*atr, price + tp2Mult*atr, price + tp3Mult*atr}
	case domain.LabelSell:
		stop = price + stopMult*atr
		targets = []float64{price - tp1Mult*atr, price - tp2Mult*atr, price - tp3Mult*atr}
	default:
		stop = price - stopMult*atr
		targets = []float64{price + tp1Mult*atr, price + tp2Mult*atr, price + tp3Mult*atr}
	}

	return domain.TradingLevels{
		Entry:      price,
		StopLoss:   stop,
		TakeProfit: targets,
		RiskReward: riskReward(price, stop, targets[0]),
	}
}

// riskReward computes |firstTarget-entry| / |entry-stop|, guarding the
// zero-distance case that arises when ATR collapses to zero.
func riskReward(entry, stop, firstTarget float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(firstTarget-entry) / risk
}
