package confluence

import (
	"context"

	"trading-signal-lab/internal/backtest"
	"trading-signal-lab/internal/domain"
)

// Strategy adapts the scorer to the backtest decision seam. Backtests
// run on candles alone, so derivatives layers are naturally omitted
// and the score carries the resulting HOLD bias.
type Strategy struct {
	scorer *Scorer
}

// NewStrategy creates a confluence-backed backtest strategy.
func NewStrategy(scorer *Scorer) *Strategy {
	return &Strategy{scorer: scorer}
}

// Evaluate scores the trailing candle window.
func (s *Strategy) Evaluate(_ context.Context, window []domain.Candle) (*domain.Decision, error) {
	res := s.scorer.Score(Input{Candles: window})
	return &domain.Decision{
		Label:      res.Label,
		Score:      float64(res.NormalizedScore),
		Confidence: res.Confidence,
		Summary:    res.Summary,
	}, nil
}

// Name returns the strategy identifier.
func (s *Strategy) Name() string {
	return "confluence"
}

// Ensure Strategy implements backtest.Strategy
var _ backtest.Strategy = (*Strategy)(nil)
