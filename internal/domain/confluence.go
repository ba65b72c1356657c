package domain

// Label is the directional decision produced by the confluence scorer.
type Label string

// Label constants.
const (
	LabelBuy  Label = "BUY"
	LabelSell Label = "SELL"
	LabelHold Label = "HOLD"
)

// RiskLevel is the qualitative risk grade attached to a confluence result.
type RiskLevel string

// Risk level constants.
const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Layer name constants. Each names one independent analysis layer
// feeding the confluence scorer.
const (
	LayerStructure    = "structure"
	LayerPriceAction  = "price_action"
	LayerEMA          = "ema"
	LayerMomentum     = "momentum"
	LayerFunding      = "funding"
	LayerOpenInterest = "open_interest"
	LayerCVD          = "cvd"
	LayerFibonacci    = "fibonacci"
)

// LayerScore is the bounded contribution of one analysis layer.
// Confidence is always in [0.1, 1]; layers emit the 0.1 floor rather
// than an absent value when no textbook signal was observed.
type LayerScore struct {
	Score      float64
	Reasons    []string
	Confidence float64
}

// ConfluenceResult is the aggregated multi-layer decision.
// Recomputed on every evaluation step, never persisted directly.
type ConfluenceResult struct {
	TotalScore      float64
	NormalizedScore int // 0..100
	Label           Label
	Confidence      float64 // 0..1
	Layers          map[string]LayerScore
	Summary         string
	RiskLevel       RiskLevel
}

// Decision is the contract between a strategy and the backtest engine.
// Any conforming producer may be substituted for the confluence scorer.
type Decision struct {
	Label      Label
	Score      float64 // normalized 0..100
	Confidence float64 // 0..1, optional semantics: 0 means unknown
	Summary    string
	Regime     string // optional market-regime tag
}
