package backtest

import (
	"context"

	"trading-signal-lab/internal/domain"
)

// StubStrategy replays a scripted sequence of decisions for testing.
// Once the script is exhausted it keeps returning HOLD.
type StubStrategy struct {
	script []domain.Decision
	calls  int
}

// NewStubStrategy creates a stub that emits the given decisions in order.
func NewStubStrategy(script ...domain.Decision) *StubStrategy {
	return &StubStrategy{script: script}
}

// NewHoldStrategy creates a stub that always returns HOLD.
func NewHoldStrategy() *StubStrategy {
	return &StubStrategy{}
}

// Evaluate returns the next scripted decision, or HOLD when the script
// is exhausted.
func (s *StubStrategy) Evaluate(_ context.Context, _ []domain.Candle) (*domain.Decision, error) {
	if s.calls < len(s.script) {
		d := s.script[s.calls]
		s.calls++
		return &d, nil
	}
	s.calls++
	return &domain.Decision{Label: domain.LabelHold, Score: 50, Summary: "stub hold"}, nil
}

// Name returns the strategy identifier.
func (s *StubStrategy) Name() string {
	return "stub"
}

// Calls returns how many times Evaluate was invoked.
func (s *StubStrategy) Calls() int {
	return s.calls
}

// Ensure StubStrategy implements Strategy
var _ Strategy = (*StubStrategy)(nil)
