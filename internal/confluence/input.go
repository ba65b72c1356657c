// Package confluence converts per-layer technical and derivatives
// analyses into a single bounded score, a directional label, a
// confidence value and a risk grade.
package confluence

import "trading-signal-lab/internal/domain"

// StructureData is the externally supplied market-structure (SMC) bias.
type StructureData struct {
	Bias       string  // "bullish" | "bearish" | "neutral"
	Confidence float64 // 0..1
	Strength   float64 // 0..10
}

// Structure bias constants.
const (
	BiasBullish = "bullish"
	BiasBearish = "bearish"
	BiasNeutral = "neutral"
)

// FundingData carries perpetual funding-rate observations.
type FundingData struct {
	Rate    float64 // current funding rate, e.g. 0.0001 = 1bp
	Premium float64 // mark/index premium fraction
}

// OpenInterestData carries open-interest observations.
type OpenInterestData struct {
	OIChangePct    float64 // OI change over the observation window
	PriceChangePct float64 // price change over the same window
	PressureRatio  float64 // long/short pressure, 1 = balanced
}

// CVDTrend direction of the cumulative volume delta.
type CVDTrend string

// CVD trend constants.
const (
	CVDRising  CVDTrend = "rising"
	CVDFalling CVDTrend = "falling"
	CVDFlat    CVDTrend = "flat"
)

// CVDData carries cumulative volume delta observations.
type CVDData struct {
	Trend              CVDTrend
	DivergenceStrength float64 // 0..1, strength of CVD-vs-price divergence
	VolumePressure     float64 // buy-minus-sell pressure in [-1, 1]
}

// Input is one evaluation step's worth of data. Candles are the
// trailing window, oldest first. Derivatives fields are optional;
// a nil field omits that layer from the aggregation.
type Input struct {
	Candles      []domain.Candle
	Structure    *StructureData
	Funding      *FundingData
	OpenInterest *OpenInterestData
	CVD          *CVDData
}
