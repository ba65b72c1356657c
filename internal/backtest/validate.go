package backtest

import (
	"fmt"
	"strings"
)

// Validation bounds for backtest requests.
const (
	MinCandles = 200
	maxFeeRate = 0.01 // 1%
	maxSlipBps = 100
	maxRiskPct = 10
)

// ValidationError aggregates every violation found in a request so the
// caller sees the full list, not just the first problem.
type ValidationError struct {
	Violations []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid backtest request: %s", strings.Join(e.Violations, "; "))
}

// Validate checks the request up front. Returns a *ValidationError
// listing every violation, or nil when the request is runnable.
func (r *Request) Validate() error {
	var violations []string

	if r.Symbol == "" {
		violations = append(violations, "symbol must not be empty")
	}
	if r.Timeframe == "" {
		violations = append(violations, "timeframe must not be empty")
	}
	if r.Cost.FeeRate < 0 || r.Cost.FeeRate > maxFeeRate {
		violations = append(violations, fmt.Sprintf("fee rate %.4f outside [0, %.2f]", r.Cost.FeeRate, maxFeeRate))
	}
	if r.Cost.SlipBps < 0 || r.Cost.SlipBps > maxSlipBps {
		violations = append(violations, fmt.Sprintf("slippage %.1f bps outside [0, %d]", r.Cost.SlipBps, maxSlipBps))
	}
	if r.Cost.SpreadBps < 0 || r.Cost.SpreadBps > maxSlipBps {
		violations = append(violations, fmt.Sprintf("spread %.1f bps outside [0, %d]", r.Cost.SpreadBps, maxSlipBps))
	}
	if r.Risk.Equity <= 0 {
		violations = append(violations, "starting equity must be positive")
	}
	if r.Risk.RiskPct <= 0 || r.Risk.RiskPct > maxRiskPct {
		violations = append(violations, fmt.Sprintf("risk percent %.2f outside (0, %d]", r.Risk.RiskPct, maxRiskPct))
	}
	if len(r.Candles) < MinCandles {
		violations = append(violations, fmt.Sprintf("need at least %d candles, got %d", MinCandles, len(r.Candles)))
	}

	for i, c := range r.Candles {
		if !c.Valid() {
			violations = append(violations, fmt.Sprintf("candle %d: inconsistent OHLC (o=%.4f h=%.4f l=%.4f c=%.4f)", i, c.Open, c.High, c.Low, c.Close))
			break // one malformed candle invalidates the run
		}
		if i > 0 && c.TimestampMs <= r.Candles[i-1].TimestampMs {
			violations = append(violations, fmt.Sprintf("candle %d: timestamp not increasing", i))
			break
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}
