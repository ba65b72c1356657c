package backtest

import (
	"context"

	"trading-signal-lab/internal/domain"
)

// Strategy is the pluggable decision seam between signal evaluation
// and the simulation engine. Given a trailing window of candles it
// returns a directional decision; any conforming implementation can be
// injected without the engine knowing the concrete type.
type Strategy interface {
	// Evaluate inspects the trailing candle window (oldest first,
	// ending at the current step) and returns a decision.
	Evaluate(ctx context.Context, window []domain.Candle) (*domain.Decision, error)

	// Name returns the strategy identifier.
	Name() string
}
