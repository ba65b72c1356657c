package confluence

import (
	"fmt"
	"math"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/indicator"
)

// Per-layer contribution bounds. No single layer can push the total
// past its range, so no layer can dominate the decision.
const (
	maxStructureScore    = 30.0
	maxPriceActionScore  = 15.0
	maxEMAScore          = 8.0
	maxMomentumScore     = 6.0
	maxFundingScore      = 5.0
	maxOpenInterestScore = 5.0
	maxCVDScore          = 10.0
	maxFibonacciScore    = 4.0
)

// minConfidence is the floor every layer emits instead of an undefined
// confidence when no textbook signal was observed.
const minConfidence = 0.1

func clampScore(score, bound float64) float64 {
	return math.Max(-bound, math.Min(bound, score))
}

func floorConfidence(c float64) float64 {
	if c < minConfidence {
		return minConfidence
	}
	if c > 1 {
		return 1
	}
	return c
}

// scoreStructure scores the market-structure (SMC) bias layer:
// bias direction x confidence x strength/10, bounded to +/-30.
func scoreStructure(d *StructureData) domain.LayerScore {
	var sign float64
	switch d.Bias {
	case BiasBullish:
		sign = 1
	case BiasBearish:
		sign = -1
	default:
		return domain.LayerScore{
			Score:      0,
			Reasons:    []string{"structure bias neutral"},
			Confidence: minConfidence,
		}
	}

	score := clampScore(sign*maxStructureScore*d.Confidence*(d.Strength/10), maxStructureScore)
	return domain.LayerScore{
		Score: score,
		Reasons: []string{
			fmt.Sprintf("structure bias %s (strength %.1f/10, confidence %.2f)", d.Bias, d.Strength, d.Confidence),
		},
		Confidence: floorConfidence(d.Confidence),
	}
}

// scorePriceAction scores higher-highs/higher-lows structure over the
// trailing window, weighted by trend strength, bounded to +/-15.
func scorePriceAction(candles []domain.Candle) domain.LayerScore {
	const window = 10
	if len(candles) < window*2 {
		return domain.LayerScore{Reasons: []string{"price action: insufficient history"}, Confidence: minConfidence}
	}

	recent := candles[len(candles)-window:]
	prior := candles[len(candles)-window*2 : len(candles)-window]

	recentHigh, recentLow := extremes(recent)
	priorHigh, priorLow := extremes(prior)

	var reasons []string
	score := 0.0
	higherHigh := recentHigh > priorHigh
	higherLow := recentLow > priorLow
	lowerHigh := recentHigh < priorHigh
	lowerLow := recentLow < priorLow

	// Trend strength: relative move of the window midpoint.
	priorMid := (priorHigh + priorLow) / 2
	recentMid := (recentHigh + recentLow) / 2
	strength := 0.0
	if priorMid > 0 {
		strength = math.Min(math.Abs(recentMid-priorMid)/priorMid/0.03, 1.0)
	}

	switch {
	case higherHigh && higherLow:
		score = maxPriceActionScore * strength
		reasons = append(reasons, "price action: higher highs and higher lows")
	case lowerHigh && lowerLow:
		score = -maxPriceActionScore * strength
		reasons = append(reasons, "price action: lower highs and lower lows")
	case higherHigh && lowerLow:
		reasons = append(reasons, "price action: expanding range")
	default:
		reasons = append(reasons, "price action: no clear structure")
	}

	return domain.LayerScore{
		Score:      clampScore(score, maxPriceActionScore),
		Reasons:    reasons,
		Confidence: floorConfidence(strength),
	}
}

func extremes(candles []domain.Candle) (high, low float64) {
	high, low = candles[0].High, candles[0].Low
	for _, c := range candles[1:] {
		high = math.Max(high, c.High)
		low = math.Min(low, c.Low)
	}
	return high, low
}

// scoreEMA scores 20/50/200 EMA stacking plus price position,
// bounded to +/-8.
func scoreEMA(closes []float64) domain.LayerScore {
	if len(closes) < 50 {
		return domain.LayerScore{Reasons: []string{"ema: insufficient history"}, Confidence: minConfidence}
	}

	last := len(closes) - 1
	price := closes[last]
	ema20 := indicator.EMA(closes, 20)[last]
	ema50 := indicator.EMA(closes, 50)[last]
	ema200 := indicator.EMA(closes, 200)[last]

	score := 0.0
	var reasons []string
	aligned := 0

	if ema20 > ema50 {
		score += 2
		aligned++
		reasons = append(reasons, "ema: 20 above 50")
	} else if ema20 < ema50 {
		score -= 2
		aligned++
		reasons = append(reasons, "ema: 20 below 50")
	}
	if ema50 > ema200 {
		score += 3
		aligned++
		reasons = append(reasons, "ema: 50 above 200")
	} else if ema50 < ema200 {
		score -= 3
		aligned++
		reasons = append(reasons, "ema: 50 below 200")
	}
	if price > ema20 {
		score += 3
		reasons = append(reasons, "ema: price above ema20")
	} else if price < ema20 {
		score -= 3
		reasons = append(reasons, "ema: price below ema20")
	}

	conf := 0.3 + 0.35*float64(aligned)
	return domain.LayerScore{
		Score:      clampScore(score, maxEMAScore),
		Reasons:    reasons,
		Confidence: floorConfidence(conf),
	}
}

// scoreMomentum scores RSI zone, MACD cross and RSI divergence,
// bounded to +/-6.
func scoreMomentum(closes []float64) domain.LayerScore {
	if len(closes) <= indicator.DefaultRSIPeriod {
		return domain.LayerScore{Reasons: []string{"momentum: insufficient history"}, Confidence: minConfidence}
	}

	last := len(closes) - 1
	rsi := indicator.RSI(closes, indicator.DefaultRSIPeriod)
	_, _, hist := indicator.MACD(closes, indicator.DefaultMACDFast, indicator.DefaultMACDSlow, indicator.DefaultMACDSignal)

	score := 0.0
	var reasons []string
	signals := 0

	switch {
	case rsi[last] >= 60:
		score += 2
		signals++
		reasons = append(reasons, fmt.Sprintf("momentum: rsi bullish zone (%.1f)", rsi[last]))
	case rsi[last] <= 40:
		score -= 2
		signals++
		reasons = append(reasons, fmt.Sprintf("momentum: rsi bearish zone (%.1f)", rsi[last]))
	default:
		reasons = append(reasons, fmt.Sprintf("momentum: rsi neutral (%.1f)", rsi[last]))
	}

	if hist[last] > 0 && hist[last-1] <= 0 {
		score += 2
		signals++
		reasons = append(reasons, "momentum: macd bullish cross")
	} else if hist[last] < 0 && hist[last-1] >= 0 {
		score -= 2
		signals++
		reasons = append(reasons, "momentum: macd bearish cross")
	} else if hist[last] > 0 {
		score++
		reasons = append(reasons, "momentum: macd histogram positive")
	} else if hist[last] < 0 {
		score--
		reasons = append(reasons, "momentum: macd histogram negative")
	}

	div := indicator.DetectDivergence(closes, rsi, 10)
	switch div.Type {
	case indicator.DivergenceBullish:
		score += 2 * div.Strength
		signals++
		reasons = append(reasons, fmt.Sprintf("momentum: bullish rsi divergence (%.2f)", div.Strength))
	case indicator.DivergenceBearish:
		score -= 2 * div.Strength
		signals++
		reasons = append(reasons, fmt.Sprintf("momentum: bearish rsi divergence (%.2f)", div.Strength))
	}

	conf := 0.2 + 0.25*float64(signals)
	return domain.LayerScore{
		Score:      clampScore(score, maxMomentumScore),
		Reasons:    reasons,
		Confidence: floorConfidence(conf),
	}
}

// scoreFunding scores funding-rate extremity contrarian-style: deeply
// negative funding is bullish (shorts crowded), deeply positive is
// bearish. Bounded to +/-5.
func scoreFunding(d *FundingData) domain.LayerScore {
	// 10bp per interval is treated as maximal extremity.
	const extremeRate = 0.001

	rateScore := -clampScore(d.Rate/extremeRate*maxFundingScore, maxFundingScore)
	premiumNudge := -clampScore(d.Premium/0.005*1.5, 1.5)
	score := clampScore(rateScore+premiumNudge, maxFundingScore)

	extremity := math.Min(math.Abs(d.Rate)/extremeRate, 1.0)
	var reasons []string
	switch {
	case d.Rate <= -extremeRate/2:
		reasons = append(reasons, fmt.Sprintf("funding: negative extreme (%.4f%%), shorts crowded", d.Rate*100))
	case d.Rate >= extremeRate/2:
		reasons = append(reasons, fmt.Sprintf("funding: positive extreme (%.4f%%), longs crowded", d.Rate*100))
	default:
		reasons = append(reasons, "funding: near neutral")
	}

	return domain.LayerScore{
		Score:      score,
		Reasons:    reasons,
		Confidence: floorConfidence(extremity),
	}
}

// scoreOpenInterest correlates OI change with price change: OI rising
// with price confirms the move, OI rising against price fades it.
// Bounded to +/-5.
func scoreOpenInterest(d *OpenInterestData) domain.LayerScore {
	score := 0.0
	var reasons []string

	oiUp := d.OIChangePct > 0.5
	oiDown := d.OIChangePct < -0.5
	priceUp := d.PriceChangePct > 0
	magnitude := math.Min(math.Abs(d.OIChangePct)/5.0, 1.0)

	switch {
	case oiUp && priceUp:
		score = 3 * magnitude
		reasons = append(reasons, "oi: rising with price, longs building")
	case oiUp && !priceUp:
		score = -3 * magnitude
		reasons = append(reasons, "oi: rising against price, shorts building")
	case oiDown && priceUp:
		score = -1.5 * magnitude
		reasons = append(reasons, "oi: falling on rally, short covering")
	case oiDown && !priceUp:
		score = 1.5 * magnitude
		reasons = append(reasons, "oi: falling with price, longs capitulating")
	default:
		reasons = append(reasons, "oi: no significant change")
	}

	if d.PressureRatio > 1.2 {
		score += 2
		reasons = append(reasons, fmt.Sprintf("oi: long pressure ratio %.2f", d.PressureRatio))
	} else if d.PressureRatio > 0 && d.PressureRatio < 0.8 {
		score -= 2
		reasons = append(reasons, fmt.Sprintf("oi: short pressure ratio %.2f", d.PressureRatio))
	}

	return domain.LayerScore{
		Score:      clampScore(score, maxOpenInterestScore),
		Reasons:    reasons,
		Confidence: floorConfidence(magnitude),
	}
}

// scoreCVD scores cumulative volume delta trend and divergence,
// bounded to +/-10.
func scoreCVD(d *CVDData) domain.LayerScore {
	score := 0.0
	var reasons []string

	switch d.Trend {
	case CVDRising:
		score = 6 * math.Max(d.DivergenceStrength, 0.3)
		reasons = append(reasons, "cvd: rising, buyers in control")
	case CVDFalling:
		score = -6 * math.Max(d.DivergenceStrength, 0.3)
		reasons = append(reasons, "cvd: falling, sellers in control")
	default:
		reasons = append(reasons, "cvd: flat")
	}

	score += clampScore(d.VolumePressure*4, 4)
	if math.Abs(d.VolumePressure) > 0.3 {
		reasons = append(reasons, fmt.Sprintf("cvd: volume pressure %.2f", d.VolumePressure))
	}

	conf := math.Max(d.DivergenceStrength, math.Abs(d.VolumePressure))
	return domain.LayerScore{
		Score:      clampScore(score, maxCVDScore),
		Reasons:    reasons,
		Confidence: floorConfidence(conf),
	}
}

// scoreFibonacci scores proximity to the nearest retracement level of
// the trailing swing, bounded to +/-4. Price sitting on a retracement
// below acts as support, above as resistance.
func scoreFibonacci(candles []domain.Candle) domain.LayerScore {
	const window = 50
	if len(candles) < window {
		return domain.LayerScore{Reasons: []string{"fibonacci: insufficient history"}, Confidence: minConfidence}
	}

	swing := candles[len(candles)-window:]
	high, low := extremes(swing)
	price := candles[len(candles)-1].Close
	if high == low {
		return domain.LayerScore{Reasons: []string{"fibonacci: flat range"}, Confidence: minConfidence}
	}

	ratios := []float64{0.236, 0.382, 0.5, 0.618, 0.786}
	span := high - low

	bestDist := math.Inf(1)
	bestLevel := 0.0
	bestRatio := 0.0
	for _, r := range ratios {
		level := high - span*r
		dist := math.Abs(price-level) / price
		if dist < bestDist {
			bestDist = dist
			bestLevel = level
			bestRatio = r
		}
	}

	// Only levels within 1% of price are actionable.
	const proximityCap = 0.01
	if bestDist > proximityCap {
		return domain.LayerScore{
			Reasons:    []string{"fibonacci: no nearby retracement"},
			Confidence: minConfidence,
		}
	}

	closeness := 1 - bestDist/proximityCap
	score := maxFibonacciScore * closeness
	reason := fmt.Sprintf("fibonacci: price at %.1f%% retracement support", bestRatio*100)
	if price < bestLevel {
		score = -score
		reason = fmt.Sprintf("fibonacci: price under %.1f%% retracement resistance", bestRatio*100)
	}

	return domain.LayerScore{
		Score:      clampScore(score, maxFibonacciScore),
		Reasons:    []string{reason},
		Confidence: floorConfidence(closeness),
	}
}
