// Package metrics turns realized trade P&L into an equity curve,
// drawdown series and risk-adjusted performance statistics.
package metrics

import (
	"encoding/json"
	"math"
	"sort"

	"trading-signal-lab/internal/domain"
)

// annualizationPeriods is the conventional trading-periods-per-year
// factor applied to Sharpe, Sortino and Calmar.
const annualizationPeriods = 252

// PerformanceMetrics is the full statistics block computed from a
// realized trade sequence. Ratios are rounded to 2 decimal places.
type PerformanceMetrics struct {
	TotalTrades int
	Wins        int
	Losses      int
	WinRate     float64 // percent

	TotalPnL       float64
	TotalReturnPct float64
	AvgWin         float64
	AvgLoss        float64 // negative or zero
	Expectancy     float64
	ProfitFactor   float64 // +Inf when no losses and wins > 0

	MaxDrawdown    float64 // absolute
	MaxDrawdownPct float64 // percent of peak equity

	SharpeRatio    float64
	SortinoRatio   float64 // +Inf when no losers and mean > risk-free
	CalmarRatio    float64 // +Inf when no drawdown and positive return
	RecoveryFactor float64
}

// Compute calculates all metrics from trades in chronological order on
// top of startingEquity. An empty sequence yields an explicit
// zero-valued result, never an error.
func Compute(trades []domain.TradePoint, startingEquity float64) *PerformanceMetrics {
	m := &PerformanceMetrics{}
	n := len(trades)
	if n == 0 || startingEquity <= 0 {
		return m
	}

	sorted := make([]domain.TradePoint, n)
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TsMs < sorted[j].TsMs })

	var grossWins, grossLosses, total float64
	for _, t := range sorted {
		total += t.PnL
		if t.PnL > 0 {
			m.Wins++
			grossWins += t.PnL
		} else {
			m.Losses++
			grossLosses += t.PnL
		}
	}

	m.TotalTrades = n
	m.TotalPnL = round2(total)
	m.TotalReturnPct = round2(total / startingEquity * 100)
	m.WinRate = round2(float64(m.Wins) / float64(n) * 100)

	if m.Wins > 0 {
		m.AvgWin = round2(grossWins / float64(m.Wins))
	}
	if m.Losses > 0 {
		m.AvgLoss = round2(grossLosses / float64(m.Losses))
	}

	pWin := float64(m.Wins) / float64(n)
	pLoss := float64(m.Losses) / float64(n)
	m.Expectancy = round2(pWin*m.AvgWin + pLoss*m.AvgLoss)
	m.ProfitFactor = round2(profitFactor(grossWins, grossLosses))

	curve := EquityCurve(sorted, startingEquity)
	maxDD, maxDDPct := maxDrawdown(curve)
	m.MaxDrawdown = round2(maxDD)
	m.MaxDrawdownPct = round2(maxDDPct)

	pnls := make([]float64, n)
	for i, t := range sorted {
		pnls[i] = t.PnL
	}
	m.SharpeRatio = round2(sharpe(pnls))
	m.SortinoRatio = round2(sortino(pnls, 0))

	annualized := total / float64(n) / startingEquity * 100 * annualizationPeriods
	m.CalmarRatio = round2(calmar(annualized, maxDDPct))
	m.RecoveryFactor = round2(recoveryFactor(total, maxDD))

	return m
}

// EquityCurve builds the running equity, peak and drawdown sequence,
// seeded with a point at starting equity. Trades must be in
// chronological order.
func EquityCurve(trades []domain.TradePoint, startingEquity float64) []domain.EquityPoint {
	curve := make([]domain.EquityPoint, 0, len(trades)+1)

	equity := startingEquity
	peak := startingEquity
	ts := int64(0)
	if len(trades) > 0 {
		ts = trades[0].TsMs
	}
	curve = append(curve, domain.EquityPoint{TsMs: ts, Equity: equity, Peak: peak})

	for _, t := range trades {
		equity += t.PnL
		if equity > peak {
			peak = equity
		}
		curve = append(curve, domain.EquityPoint{
			TsMs:     t.TsMs,
			Equity:   equity,
			Peak:     peak,
			Drawdown: peak - equity,
		})
	}
	return curve
}

// MarshalJSON renders non-finite ratios as the string "inf" because
// JSON has no representation for infinities.
func (m PerformanceMetrics) MarshalJSON() ([]byte, error) {
	type alias PerformanceMetrics
	out := struct {
		alias
		ProfitFactor any
		SortinoRatio any
		CalmarRatio  any
	}{alias: alias(m)}
	out.ProfitFactor = finiteOr(m.ProfitFactor)
	out.SortinoRatio = finiteOr(m.SortinoRatio)
	out.CalmarRatio = finiteOr(m.CalmarRatio)
	return json.Marshal(out)
}

func finiteOr(v float64) any {
	if math.IsInf(v, 0) {
		return "inf"
	}
	return v
}

// profitFactor returns grossWins / |grossLosses|, +Inf when there are
// no losses but wins exist, 0 otherwise.
func profitFactor(grossWins, grossLosses float64) float64 {
	if grossLosses == 0 {
		if grossWins > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return grossWins / math.Abs(grossLosses)
}

// sharpe computes the annualized mean/stddev ratio of trade P&L.
// Returns 0 for fewer than 2 points or zero variance.
func sharpe(pnls []float64) float64 {
	if len(pnls) < 2 {
		return 0
	}
	mean := meanOf(pnls)
	sd := stddevOf(pnls, mean)
	if sd == 0 {
		return 0
	}
	return mean / sd * math.Sqrt(annualizationPeriods)
}

// sortino is like sharpe but penalizes only downside deviation.
// Returns +Inf when there are no losing trades and the mean return
// exceeds the risk-free rate.
func sortino(pnls []float64, riskFree float64) float64 {
	if len(pnls) < 2 {
		return 0
	}
	mean := meanOf(pnls)

	var downSq float64
	downN := 0
	for _, p := range pnls {
		if p < riskFree {
			d := p - riskFree
			downSq += d * d
			downN++
		}
	}
	if downN == 0 {
		if mean > riskFree {
			return math.Inf(1)
		}
		return 0
	}
	downDev := math.Sqrt(downSq / float64(len(pnls)))
	if downDev == 0 {
		return 0
	}
	return (mean - riskFree) / downDev * math.Sqrt(annualizationPeriods)
}

// calmar returns annualizedReturnPct / maxDrawdownPct, +Inf when there
// is no drawdown but a positive return, 0 otherwise.
func calmar(annualizedReturnPct, maxDDPct float64) float64 {
	if maxDDPct == 0 {
		if annualizedReturnPct > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return annualizedReturnPct / maxDDPct
}

// recoveryFactor returns |total return| / absolute max drawdown,
// 0 when there was no drawdown.
func recoveryFactor(totalPnL, maxDD float64) float64 {
	if maxDD == 0 {
		return 0
	}
	return math.Abs(totalPnL) / maxDD
}

// maxDrawdown walks the equity curve and returns the worst absolute
// and percentage decline from a running peak.
func maxDrawdown(curve []domain.EquityPoint) (abs, pct float64) {
	for _, p := range curve {
		if p.Drawdown > abs {
			abs = p.Drawdown
		}
		if p.Peak > 0 {
			ddPct := p.Drawdown / p.Peak * 100
			if ddPct > pct {
				pct = ddPct
			}
		}
	}
	return abs, pct
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddevOf computes population standard deviation around mean.
func stddevOf(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

func round2(x float64) float64 {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return x
	}
	return math.Round(x*100) / 100
}
