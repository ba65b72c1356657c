// Package indicator provides pure, stateless technical-indicator
// transforms over price series and candle sequences. Every function
// takes a full series and returns a same-length series so callers can
// inspect history (for divergence detection and layer analysis).
package indicator

import (
	"math"

	"trading-signal-lab/internal/domain"
)

// Default periods.
const (
	DefaultRSIPeriod  = 14
	DefaultATRPeriod  = 14
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
)

// EMA computes an exponential moving average seeded with the first
// sample, smoothing constant k = 2/(period+1).
func EMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 || period <= 0 {
		return out
	}

	k := 2.0 / (float64(period) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

// SMA computes a simple moving average. Indexes before the window is
// filled hold the mean of the samples seen so far.
func SMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 || period <= 0 {
		return out
	}

	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
			out[i] = sum / float64(period)
		} else {
			out[i] = sum / float64(i+1)
		}
	}
	return out
}

// RSI computes Wilder's relative strength index. Indexes before the
// window is filled hold the neutral value 50, as does the whole output
// for degenerate input (len <= period).
func RSI(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = 50
	}
	if period <= 0 || len(values) <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		// Wilder smoothing
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD computes the fast/slow EMA difference, an EMA-smoothed signal
// line and the histogram (macd - signal).
func MACD(values []float64, fast, slow, signalPeriod int) (macd, signal, hist []float64) {
	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)

	macd = make([]float64, len(values))
	for i := range values {
		macd[i] = fastEMA[i] - slowEMA[i]
	}

	signal = EMA(macd, signalPeriod)

	hist = make([]float64, len(values))
	for i := range values {
		hist[i] = macd[i] - signal[i]
	}
	return macd, signal, hist
}

// TrueRange computes the per-candle true range series:
// max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRange(candles []domain.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		tr := c.High - c.Low
		if i > 0 {
			prevClose := candles[i-1].Close
			tr = math.Max(tr, math.Abs(c.High-prevClose))
			tr = math.Max(tr, math.Abs(c.Low-prevClose))
		}
		out[i] = tr
	}
	return out
}

// ATR computes the average true range, EMA-smoothed.
func ATR(candles []domain.Candle, period int) []float64 {
	return EMA(TrueRange(candles), period)
}

// Stochastic computes %K and %D over the candle sequence. %K uses the
// rolling high/low window, %D is an SMA of %K. Flat windows yield 50.
func Stochastic(candles []domain.Candle, kPeriod, dPeriod int) (k, d []float64) {
	k = make([]float64, len(candles))
	for i := range candles {
		lo, hi := candles[i].Low, candles[i].High
		for j := i - kPeriod + 1; j < i; j++ {
			if j < 0 {
				continue
			}
			lo = math.Min(lo, candles[j].Low)
			hi = math.Max(hi, candles[j].High)
		}
		if hi == lo {
			k[i] = 50
			continue
		}
		k[i] = (candles[i].Close - lo) / (hi - lo) * 100
	}
	d = SMA(k, dPeriod)
	return k, d
}

// Bollinger computes rolling mean +/- stdevMult standard deviations.
func Bollinger(values []float64, period int, stdevMult float64) (upper, middle, lower []float64) {
	middle = SMA(values, period)
	upper = make([]float64, len(values))
	lower = make([]float64, len(values))

	for i := range values {
		start := i - period + 1
		if start < 0 {
			start = 0
		}
		n := float64(i - start + 1)
		var sumSq float64
		for j := start; j <= i; j++ {
			diff := values[j] - middle[i]
			sumSq += diff * diff
		}
		sd := math.Sqrt(sumSq / n)
		upper[i] = middle[i] + stdevMult*sd
		lower[i] = middle[i] - stdevMult*sd
	}
	return upper, middle, lower
}

// VWAP computes the cumulative volume-weighted typical price. Where
// cumulative volume is zero the typical price itself is reported.
func VWAP(candles []domain.Candle) []float64 {
	out := make([]float64, len(candles))
	var cumPV, cumVol float64
	for i, c := range candles {
		cumPV += c.TypicalPrice() * c.Volume
		cumVol += c.Volume
		if cumVol == 0 {
			out[i] = c.TypicalPrice()
			continue
		}
		out[i] = cumPV / cumVol
	}
	return out
}

// Closes extracts the close series from a candle sequence.
func Closes(candles []domain.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
