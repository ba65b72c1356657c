package domain

// Candle represents a single OHLCV bar.
// A candle sequence must be monotonically increasing in TimestampMs.
type Candle struct {
	TimestampMs int64   // Unix timestamp in milliseconds (bar open time)
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
}

// Valid reports whether the candle satisfies basic OHLC consistency:
// all prices positive and low <= min(open,close) <= max(open,close) <= high.
func (c Candle) Valid() bool {
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return false
	}
	if c.High < c.Low {
		return false
	}
	lo, hi := c.Open, c.Close
	if lo > hi {
		lo, hi = hi, lo
	}
	return c.Low <= lo && hi <= c.High
}

// TypicalPrice returns (high + low + close) / 3, used by VWAP.
func (c Candle) TypicalPrice() float64 {
	return (c.High + c.Low + c.Close) / 3
}
