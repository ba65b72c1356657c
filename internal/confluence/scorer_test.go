package confluence

import (
	"math"
	"testing"

	"trading-signal-lab/internal/domain"
)

func makeCandles(n int, price func(i int) float64) []domain.Candle {
	candles := make([]domain.Candle, n)
	for i := range candles {
		p := price(i)
		candles[i] = domain.Candle{
			TimestampMs: int64(i) * 60000,
			Open:        p,
			High:        p * 1.002,
			Low:         p * 0.998,
			Close:       p,
			Volume:      100,
		}
	}
	return candles
}

func TestScore_NormalizedBounds(t *testing.T) {
	scorer := NewScorer()

	inputs := []Input{
		{Candles: makeCandles(250, func(i int) float64 { return 100 })},
		{Candles: makeCandles(250, func(i int) float64 { return 100 + float64(i) })},
		{Candles: makeCandles(250, func(i int) float64 { return 400 - float64(i) })},
		{
			Candles:      makeCandles(250, func(i int) float64 { return 100 + float64(i) }),
			Structure:    &StructureData{Bias: BiasBullish, Confidence: 1, Strength: 10},
			Funding:      &FundingData{Rate: -0.002, Premium: -0.01},
			OpenInterest: &OpenInterestData{OIChangePct: 8, PriceChangePct: 3, PressureRatio: 1.5},
			CVD:          &CVDData{Trend: CVDRising, DivergenceStrength: 1, VolumePressure: 1},
		},
	}

	for i, input := range inputs {
		res := scorer.Score(input)
		if res.NormalizedScore < 0 || res.NormalizedScore > 100 {
			t.Errorf("input %d: normalized score out of [0,100]: %d", i, res.NormalizedScore)
		}
		if res.Confidence < 0.1 || res.Confidence > 1 {
			t.Errorf("input %d: confidence out of [0.1,1]: %f", i, res.Confidence)
		}
		if labelFor(res.NormalizedScore) != res.Label {
			t.Errorf("input %d: label %s inconsistent with score %d", i, res.Label, res.NormalizedScore)
		}
	}
}

func TestLabelFor_Thresholds(t *testing.T) {
	cases := []struct {
		score int
		want  domain.Label
	}{
		{0, domain.LabelSell},
		{30, domain.LabelSell},
		{31, domain.LabelHold},
		{50, domain.LabelHold},
		{69, domain.LabelHold},
		{70, domain.LabelBuy},
		{100, domain.LabelBuy},
	}
	for _, c := range cases {
		if got := labelFor(c.score); got != c.want {
			t.Errorf("labelFor(%d) = %s, want %s", c.score, got, c.want)
		}
	}
}

func TestNormalize_ZeroIsMidpoint(t *testing.T) {
	if normalize(0) != 50 {
		t.Errorf("normalize(0) = %d, want 50", normalize(0))
	}
	if normalize(maxTotalScore) != 100 {
		t.Errorf("normalize(87) = %d, want 100", normalize(maxTotalScore))
	}
	if normalize(-maxTotalScore) != 0 {
		t.Errorf("normalize(-87) = %d, want 0", normalize(-maxTotalScore))
	}
	// Values past the theoretical bound clamp instead of overflowing.
	if normalize(200) != 100 || normalize(-200) != 0 {
		t.Error("expected clamping outside [-87,87]")
	}
}

func TestScore_FlatSeriesHolds(t *testing.T) {
	scorer := NewScorer()
	res := scorer.Score(Input{Candles: makeCandles(250, func(i int) float64 { return 100 })})

	if res.Label != domain.LabelHold {
		t.Errorf("expected HOLD on flat series, got %s (score %d)", res.Label, res.NormalizedScore)
	}
}

func TestScore_StrongBullishConfluence(t *testing.T) {
	scorer := NewScorer()
	res := scorer.Score(Input{
		Candles:      makeCandles(250, func(i int) float64 { return 100 * math.Pow(1.004, float64(i)) }),
		Structure:    &StructureData{Bias: BiasBullish, Confidence: 0.9, Strength: 9},
		Funding:      &FundingData{Rate: -0.001, Premium: -0.004},
		OpenInterest: &OpenInterestData{OIChangePct: 6, PriceChangePct: 2, PressureRatio: 1.4},
		CVD:          &CVDData{Trend: CVDRising, DivergenceStrength: 0.8, VolumePressure: 0.7},
	})

	if res.Label != domain.LabelBuy {
		t.Errorf("expected BUY, got %s (score %d, total %.1f)", res.Label, res.NormalizedScore, res.TotalScore)
	}
	if res.Confidence <= 0.5 {
		t.Errorf("expected confident result, got %f", res.Confidence)
	}
}

func TestScore_StrongBearishConfluence(t *testing.T) {
	scorer := NewScorer()
	res := scorer.Score(Input{
		Candles:      makeCandles(250, func(i int) float64 { return 400 * math.Pow(0.996, float64(i)) }),
		Structure:    &StructureData{Bias: BiasBearish, Confidence: 0.9, Strength: 9},
		Funding:      &FundingData{Rate: 0.001, Premium: 0.004},
		OpenInterest: &OpenInterestData{OIChangePct: 6, PriceChangePct: -2, PressureRatio: 0.6},
		CVD:          &CVDData{Trend: CVDFalling, DivergenceStrength: 0.8, VolumePressure: -0.7},
	})

	if res.Label != domain.LabelSell {
		t.Errorf("expected SELL, got %s (score %d, total %.1f)", res.Label, res.NormalizedScore, res.TotalScore)
	}
}

func TestScore_DisabledLayersBiasTowardHold(t *testing.T) {
	// The denominator stays fixed, so a bullish structure-only run
	// cannot reach the BUY threshold: best case 30/87 → 67.
	scorer := NewScorerWithDisabled(
		domain.LayerPriceAction, domain.LayerEMA, domain.LayerMomentum,
		domain.LayerFunding, domain.LayerOpenInterest, domain.LayerCVD, domain.LayerFibonacci,
	)
	res := scorer.Score(Input{
		Candles:   makeCandles(250, func(i int) float64 { return 100 + float64(i) }),
		Structure: &StructureData{Bias: BiasBullish, Confidence: 1, Strength: 10},
	})

	if len(res.Layers) != 1 {
		t.Fatalf("expected single layer, got %d", len(res.Layers))
	}
	if res.Label != domain.LabelHold {
		t.Errorf("expected HOLD with single max layer, got %s (%d)", res.Label, res.NormalizedScore)
	}
}

func TestScore_NoLayersYieldsNeutral(t *testing.T) {
	scorer := NewScorerWithDisabled(
		domain.LayerStructure, domain.LayerPriceAction, domain.LayerEMA, domain.LayerMomentum,
		domain.LayerFunding, domain.LayerOpenInterest, domain.LayerCVD, domain.LayerFibonacci,
	)
	res := scorer.Score(Input{Candles: makeCandles(250, func(i int) float64 { return 100 })})

	if res.NormalizedScore != 50 || res.Label != domain.LabelHold {
		t.Errorf("expected neutral 50/HOLD, got %d/%s", res.NormalizedScore, res.Label)
	}
	if res.Confidence != 0.1 {
		t.Errorf("expected confidence floor 0.1, got %f", res.Confidence)
	}
}

func TestRiskLevel(t *testing.T) {
	cases := []struct {
		confidence float64
		normalized int
		want       domain.RiskLevel
	}{
		{0.8, 80, domain.RiskLow},
		{0.8, 20, domain.RiskLow},
		{0.8, 60, domain.RiskMedium}, // confident but not decisive
		{0.6, 80, domain.RiskMedium},
		{0.4, 80, domain.RiskHigh},
		{0.1, 50, domain.RiskHigh},
	}
	for _, c := range cases {
		if got := riskLevel(c.confidence, c.normalized); got != c.want {
			t.Errorf("riskLevel(%.1f, %d) = %s, want %s", c.confidence, c.normalized, got, c.want)
		}
	}
}

func TestScore_SummaryMentionsLayers(t *testing.T) {
	scorer := NewScorer()
	res := scorer.Score(Input{
		Candles:   makeCandles(250, func(i int) float64 { return 100 + float64(i) }),
		Structure: &StructureData{Bias: BiasBullish, Confidence: 0.8, Strength: 8},
	})
	if res.Summary == "" {
		t.Fatal("expected non-empty summary")
	}
}
