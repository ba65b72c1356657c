package indicator

import "math"

// DivergenceType classifies a price-vs-indicator divergence.
type DivergenceType string

// Divergence type constants.
const (
	DivergenceBullish DivergenceType = "bullish"
	DivergenceBearish DivergenceType = "bearish"
	DivergenceNone    DivergenceType = "none"
)

// DivergenceResult reports a detected divergence between price
// direction and indicator direction over a lookback window.
// Confirmation requires strength above 0.5.
type DivergenceResult struct {
	Type         DivergenceType
	Strength     float64 // 0..1
	Confirmation bool
}

// DetectDivergence compares price direction against indicator
// direction over the trailing lookback window. Price falling while the
// indicator rises is bullish; price rising while the indicator falls is
// bearish. Strength scales with the magnitude of the disagreement.
func DetectDivergence(prices, indicator []float64, lookback int) DivergenceResult {
	none := DivergenceResult{Type: DivergenceNone}
	n := len(prices)
	if n != len(indicator) || lookback <= 0 || n <= lookback {
		return none
	}

	priceDelta := prices[n-1] - prices[n-1-lookback]
	indDelta := indicator[n-1] - indicator[n-1-lookback]

	if prices[n-1-lookback] == 0 {
		return none
	}
	priceMove := priceDelta / prices[n-1-lookback]

	var typ DivergenceType
	switch {
	case priceDelta < 0 && indDelta > 0:
		typ = DivergenceBullish
	case priceDelta > 0 && indDelta < 0:
		typ = DivergenceBearish
	default:
		return none
	}

	// Strength: relative price move scaled into [0,1]; a 5% divergent
	// move is treated as maximal.
	strength := math.Min(math.Abs(priceMove)/0.05, 1.0)

	return DivergenceResult{
		Type:         typ,
		Strength:     strength,
		Confirmation: strength > 0.5,
	}
}
