package confluence

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/indicator"
)

// maxTotalScore is the theoretical one-sided bound of the summed layer
// scores (30+15+8+6+5+5+10+4). The normalization denominator stays
// fixed even when layers are disabled, which biases partial runs toward
// HOLD. That conservatism is intentional.
const maxTotalScore = 87.0

// Label thresholds on the normalized 0-100 score.
const (
	buyThreshold  = 70
	sellThreshold = 30
)

// Scorer aggregates bounded layer scores into a ConfluenceResult.
type Scorer struct {
	disabled map[string]bool
}

// NewScorer creates a scorer with all layers enabled.
func NewScorer() *Scorer {
	return &Scorer{disabled: make(map[string]bool)}
}

// NewScorerWithDisabled creates a scorer with the named layers
// excluded from the aggregation.
func NewScorerWithDisabled(layers ...string) *Scorer {
	disabled := make(map[string]bool, len(layers))
	for _, l := range layers {
		disabled[l] = true
	}
	return &Scorer{disabled: disabled}
}

// Score evaluates all enabled layers against the input and aggregates
// them. Layers with no data (nil derivatives, short candle windows)
// are omitted from both the sum and the confidence average.
func (s *Scorer) Score(input Input) *domain.ConfluenceResult {
	layers := make(map[string]domain.LayerScore)

	if !s.disabled[domain.LayerStructure] && input.Structure != nil {
		layers[domain.LayerStructure] = scoreStructure(input.Structure)
	}
	if !s.disabled[domain.LayerPriceAction] && len(input.Candles) > 0 {
		layers[domain.LayerPriceAction] = scorePriceAction(input.Candles)
	}
	if !s.disabled[domain.LayerEMA] && len(input.Candles) > 0 {
		layers[domain.LayerEMA] = scoreEMA(indicator.Closes(input.Candles))
	}
	if !s.disabled[domain.LayerMomentum] && len(input.Candles) > 0 {
		layers[domain.LayerMomentum] = scoreMomentum(indicator.Closes(input.Candles))
	}
	if !s.disabled[domain.LayerFunding] && input.Funding != nil {
		layers[domain.LayerFunding] = scoreFunding(input.Funding)
	}
	if !s.disabled[domain.LayerOpenInterest] && input.OpenInterest != nil {
		layers[domain.LayerOpenInterest] = scoreOpenInterest(input.OpenInterest)
	}
	if !s.disabled[domain.LayerCVD] && input.CVD != nil {
		layers[domain.LayerCVD] = scoreCVD(input.CVD)
	}
	if !s.disabled[domain.LayerFibonacci] && len(input.Candles) > 0 {
		layers[domain.LayerFibonacci] = scoreFibonacci(input.Candles)
	}

	total := 0.0
	confSum := 0.0
	for _, ls := range layers {
		total += ls.Score
		confSum += ls.Confidence
	}

	normalized := normalize(total)
	label := labelFor(normalized)

	confidence := minConfidence
	if len(layers) > 0 {
		meanLayerConf := confSum / float64(len(layers))
		confidence = (meanLayerConf + math.Min(math.Abs(total)/maxTotalScore, 1.0)) / 2
		if confidence < minConfidence {
			confidence = minConfidence
		}
	}

	return &domain.ConfluenceResult{
		TotalScore:      total,
		NormalizedScore: normalized,
		Label:           label,
		Confidence:      confidence,
		Layers:          layers,
		Summary:         buildSummary(label, normalized, confidence, layers),
		RiskLevel:       riskLevel(confidence, normalized),
	}
}

// normalize maps the summed score from [-87, 87] onto [0, 100].
func normalize(total float64) int {
	n := int(math.Round((total + maxTotalScore) / (2 * maxTotalScore) * 100))
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// labelFor applies the fixed decision thresholds.
func labelFor(normalized int) domain.Label {
	switch {
	case normalized >= buyThreshold:
		return domain.LabelBuy
	case normalized <= sellThreshold:
		return domain.LabelSell
	default:
		return domain.LabelHold
	}
}

// riskLevel grades the result: low needs high confidence and a
// decisive score, medium needs moderate confidence, everything else
// is high.
func riskLevel(confidence float64, normalized int) domain.RiskLevel {
	switch {
	case confidence > 0.7 && (normalized >= 75 || normalized <= 25):
		return domain.RiskLow
	case confidence > 0.5:
		return domain.RiskMedium
	default:
		return domain.RiskHigh
	}
}

// buildSummary renders a one-line human-readable explanation with
// per-layer contributions in deterministic order.
func buildSummary(label domain.Label, normalized int, confidence float64, layers map[string]domain.LayerScore) string {
	names := make([]string, 0, len(layers))
	for name := range layers {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s %+.1f", name, layers[name].Score))
	}

	return fmt.Sprintf("%s (%d/100, confidence %.2f): %s",
		label, normalized, confidence, strings.Join(parts, ", "))
}
