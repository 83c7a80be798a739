// Package indicators provides pure, stateless technical indicator math.
//
// Every function degrades to a conventional neutral default when given
// fewer samples than its period instead of returning an error or NaN.
// The feature extractor relies on that to populate warm-up rows uniformly,
// so callers never have to special-case short input here.
package indicators

import "math"

// RSI computes the block-average Relative Strength Index over the trailing
// period changes. This is the form used by the live scoring path; the
// backtest path uses WilderRSISeries instead.
//
// Returns 50 (neutral) when fewer than period+1 prices are available.
// When the average loss is zero the result is 100 by convention — including
// the degenerate all-flat case where the average gain is also zero.
func RSI(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		return 50
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		change := prices[len(prices)-i] - prices[len(prices)-i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// WilderRSISeries computes the Wilder-smoothed RSI for every index of the
// series. The smoothing is recursive across the full history, so each value
// depends on all prior bars. Indices with fewer than period+1 prior prices
// carry the neutral 50.
//
// Used by the backtest replay; live scoring uses the block-average RSI.
func WilderRSISeries(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	for i := range out {
		out[i] = 50
	}
	if len(prices) < period+1 {
		return out
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	out[period] = rsiFromAverages(avgGain, avgLoss)

	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiFromAverages(avgGain, avgLoss)
	}

	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// SMA computes the simple moving average of the trailing period prices.
// Returns the last price when fewer than period samples are available,
// and 0 for an empty series.
func SMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < period {
		return prices[len(prices)-1]
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period)
}

// EMASeries computes the exponential moving average at every index with
// multiplier 2/(period+1), seeded with the first price. An empty input
// returns an empty series.
func EMASeries(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	if len(prices) == 0 {
		return out
	}
	multiplier := 2.0 / float64(period+1)
	out[0] = prices[0]
	for i := 1; i < len(prices); i++ {
		out[i] = (prices[i]-out[i-1])*multiplier + out[i-1]
	}
	return out
}

// EMA returns the latest exponential moving average value.
func EMA(prices []float64, period int) float64 {
	series := EMASeries(prices, period)
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// MACD computes the MACD line (fast EMA minus slow EMA), the signal line,
// and the histogram. The signal line is a real EMA over the reconstructed
// MACD series, not an approximation.
func MACD(prices []float64, fast, slow, signalPeriod int) (line, signal, histogram float64) {
	if len(prices) == 0 {
		return 0, 0, 0
	}

	fastSeries := EMASeries(prices, fast)
	slowSeries := EMASeries(prices, slow)

	macdSeries := make([]float64, len(prices))
	for i := range prices {
		macdSeries[i] = fastSeries[i] - slowSeries[i]
	}

	signalSeries := EMASeries(macdSeries, signalPeriod)

	line = macdSeries[len(macdSeries)-1]
	signal = signalSeries[len(signalSeries)-1]
	return line, signal, line - signal
}

// Bollinger computes the Bollinger Bands: middle is the period SMA, upper
// and lower sit multiplier population standard deviations away. When fewer
// than period samples are available the bands default to the last close
// plus/minus 2%, preserving the lower <= middle <= upper ordering.
func Bollinger(prices []float64, period int, multiplier float64) (upper, middle, lower float64) {
	if len(prices) == 0 {
		return 0, 0, 0
	}
	if len(prices) < period {
		last := prices[len(prices)-1]
		return last * 1.02, last, last * 0.98
	}

	window := prices[len(prices)-period:]
	sum := 0.0
	for _, p := range window {
		sum += p
	}
	mean := sum / float64(period)

	variance := 0.0
	for _, p := range window {
		variance += (p - mean) * (p - mean)
	}
	variance /= float64(period)
	stddev := math.Sqrt(variance)

	return mean + multiplier*stddev, mean, mean - multiplier*stddev
}

// Stochastic computes the %K oscillator over the trailing period window.
// %D is returned as the raw %K rather than a smoothed series — a documented
// deviation from the textbook definition kept for output parity.
// Returns the neutral 50/50 on insufficient input or a flat window.
func Stochastic(highs, lows, closes []float64, period int) (k, d float64) {
	n := len(closes)
	if n < period || len(highs) < period || len(lows) < period {
		return 50, 50
	}

	highestHigh := highs[len(highs)-period]
	lowestLow := lows[len(lows)-period]
	for i := len(highs) - period; i < len(highs); i++ {
		if highs[i] > highestHigh {
			highestHigh = highs[i]
		}
	}
	for i := len(lows) - period; i < len(lows); i++ {
		if lows[i] < lowestLow {
			lowestLow = lows[i]
		}
	}

	if highestHigh == lowestLow {
		return 50, 50
	}

	k = (closes[n-1] - lowestLow) / (highestHigh - lowestLow) * 100
	return k, k
}

// ATR computes the average true range as a simple mean of the trailing
// period true ranges. Returns 0 when fewer than period+1 bars are available.
func ATR(highs, lows, closes []float64, period int) float64 {
	n := len(closes)
	if n < period+1 || len(highs) < period+1 || len(lows) < period+1 {
		return 0
	}

	sum := 0.0
	for i := n - period; i < n; i++ {
		tr := highs[i] - lows[i]
		if hc := math.Abs(highs[i] - closes[i-1]); hc > tr {
			tr = hc
		}
		if lc := math.Abs(lows[i] - closes[i-1]); lc > tr {
			tr = lc
		}
		sum += tr
	}
	return sum / float64(period)
}

// ADX computes a simplified directional-movement ratio,
// |DM+ - DM-| / (DM+ + DM-) * 100, over the trailing period — not the full
// Wilder ADX. Kept in the simplified form for output parity.
// Returns 0 (no trend) on insufficient input or zero directional movement.
func ADX(highs, lows, closes []float64, period int) float64 {
	n := len(closes)
	if n < period+1 || len(highs) < period+1 || len(lows) < period+1 {
		return 0
	}

	var plusDM, minusDM float64
	for i := n - period; i < n; i++ {
		upMove := highs[i] - highs[i-1]
		downMove := lows[i-1] - lows[i]
		if upMove > downMove && upMove > 0 {
			plusDM += upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM += downMove
		}
	}

	if plusDM+minusDM == 0 {
		return 0
	}
	return math.Abs(plusDM-minusDM) / (plusDM + minusDM) * 100
}

// WilliamsR computes the Williams %R oscillator over the trailing period
// window. Returns the neutral -50 on insufficient input or a flat window.
func WilliamsR(highs, lows, closes []float64, period int) float64 {
	n := len(closes)
	if n < period || len(highs) < period || len(lows) < period {
		return -50
	}

	highestHigh := highs[len(highs)-period]
	lowestLow := lows[len(lows)-period]
	for i := len(highs) - period; i < len(highs); i++ {
		if highs[i] > highestHigh {
			highestHigh = highs[i]
		}
	}
	for i := len(lows) - period; i < len(lows); i++ {
		if lows[i] < lowestLow {
			lowestLow = lows[i]
		}
	}

	if highestHigh == lowestLow {
		return -50
	}
	return (highestHigh - closes[n-1]) / (highestHigh - lowestLow) * -100
}

// RollingVolatility computes the root-mean-square of the trailing window
// returns. Returns 0 when fewer than window returns are available.
func RollingVolatility(returns []float64, window int) float64 {
	if len(returns) < window || window == 0 {
		return 0
	}
	sum := 0.0
	for i := len(returns) - window; i < len(returns); i++ {
		sum += returns[i] * returns[i]
	}
	return math.Sqrt(sum / float64(window))
}

// StdDev computes the population standard deviation of the trailing window
// values. Returns 0 when fewer than window values are available.
func StdDev(values []float64, window int) float64 {
	if len(values) < window || window == 0 {
		return 0
	}
	slice := values[len(values)-window:]
	mean := 0.0
	for _, v := range slice {
		mean += v
	}
	mean /= float64(window)

	variance := 0.0
	for _, v := range slice {
		variance += (v - mean) * (v - mean)
	}
	return math.Sqrt(variance / float64(window))
}
