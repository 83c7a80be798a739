// Package features builds the per-bar indicator table consumed by both the
// live prediction path and the backtest replay.
package features

import (
	"signal-engine/indicators"
	"signal-engine/models"
)

const (
	// WarmupThreshold is the index below which every snapshot carries
	// neutral defaults regardless of bar content. It is independent of
	// the individual indicator periods; callers starting a replay must
	// skip these rows.
	WarmupThreshold = 50

	// MinTrainingBars is the minimum series length for a training-quality
	// table (strategy generation, backtests).
	MinTrainingBars = 100

	// MinPredictionBars is the minimum series length the live-prediction
	// path tolerates, at degraded confidence.
	MinPredictionBars = 20

	// VolatilityWindow is the rolling window for the volatility channel.
	VolatilityWindow = 20
)

// Extract builds a FeatureTable aligned 1:1 with the input bars. It fails
// with InsufficientDataError when fewer than MinPredictionBars are supplied;
// use ExtractTraining for callers that need a training-quality table.
//
// Each post-warm-up snapshot is computed over the full prefix bars[0..i],
// not a fixed sliding window, so every value reflects the complete history
// available at that index. The per-index recomputation is quadratic in the
// series length but exactly reproducible.
func Extract(bars []models.Bar, params models.StrategyParameters) (*models.FeatureTable, error) {
	if len(bars) < MinPredictionBars {
		return nil, &models.InsufficientDataError{Got: len(bars), Need: MinPredictionBars}
	}
	return build(bars, params), nil
}

// ExtractTraining is Extract with the stricter minimum used by strategy
// generation and backtesting.
func ExtractTraining(bars []models.Bar, params models.StrategyParameters) (*models.FeatureTable, error) {
	if len(bars) < MinTrainingBars {
		return nil, &models.InsufficientDataError{Got: len(bars), Need: MinTrainingBars}
	}
	return build(bars, params), nil
}

func build(bars []models.Bar, params models.StrategyParameters) *models.FeatureTable {
	n := len(bars)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]int64, n)
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
		volumes[i] = b.Volume
	}

	table := &models.FeatureTable{
		Bars:       bars,
		Snapshots:  make([]models.IndicatorSnapshot, n),
		Returns:    make([]float64, n),
		Volatility: make([]float64, n),
		WilderRSI:  indicators.WilderRSISeries(closes, params.RSIPeriod),
	}

	for i := 1; i < n; i++ {
		table.Returns[i] = (closes[i] - closes[i-1]) / closes[i-1]
	}
	for i := VolatilityWindow; i < n; i++ {
		table.Volatility[i] = indicators.RollingVolatility(table.Returns[:i+1], VolatilityWindow)
	}

	for i := 0; i < n; i++ {
		if i < WarmupThreshold {
			table.Snapshots[i] = neutralSnapshot(closes[i])
			continue
		}

		prefix := closes[:i+1]
		highPrefix := highs[:i+1]
		lowPrefix := lows[:i+1]

		line, signal, histogram := indicators.MACD(prefix, params.MACDFastPeriod, params.MACDSlowPeriod, params.MACDSignalPeriod)
		upper, middle, lower := indicators.Bollinger(prefix, params.BollingerPeriod, params.BollingerStdDev)
		k, d := indicators.Stochastic(highPrefix, lowPrefix, prefix, 14)

		table.Snapshots[i] = models.IndicatorSnapshot{
			RSI:         indicators.RSI(prefix, params.RSIPeriod),
			MACD:        models.MACDValue{Line: line, Signal: signal, Histogram: histogram},
			SMA20:       indicators.SMA(prefix, params.FastMAPeriod),
			SMA50:       indicators.SMA(prefix, params.SlowMAPeriod),
			SMA200:      sma200(prefix),
			EMA12:       indicators.EMA(prefix, params.MACDFastPeriod),
			EMA26:       indicators.EMA(prefix, params.MACDSlowPeriod),
			Bollinger:   models.BollingerBands{Upper: upper, Middle: middle, Lower: lower},
			Stochastic:  models.StochasticValue{K: k, D: d},
			ATR:         indicators.ATR(highPrefix, lowPrefix, prefix, 14),
			ADX:         indicators.ADX(highPrefix, lowPrefix, prefix, 14),
			WilliamsR:   indicators.WilliamsR(highPrefix, lowPrefix, prefix, 14),
			VolumeRatio: volumeRatio(volumes, i),
		}
	}

	return table
}

// neutralSnapshot is the documented warm-up row: neutral oscillators, MAs
// pinned to the current close, bands at close ±2%.
func neutralSnapshot(close float64) models.IndicatorSnapshot {
	return models.IndicatorSnapshot{
		RSI:         50,
		MACD:        models.MACDValue{},
		SMA20:       close,
		SMA50:       close,
		SMA200:      close,
		EMA12:       close,
		EMA26:       close,
		Bollinger:   models.BollingerBands{Upper: close * 1.02, Middle: close, Lower: close * 0.98},
		Stochastic:  models.StochasticValue{K: 50, D: 50},
		ATR:         0,
		ADX:         0,
		WilliamsR:   -50,
		VolumeRatio: 1,
	}
}

// sma200 reports 0 when the prefix is too short, signaling "not present"
// to the scorer's long-trend factor rather than faking a value.
func sma200(prices []float64) float64 {
	if len(prices) < 200 {
		return 0
	}
	return indicators.SMA(prices, 200)
}

// volumeRatio compares the current bar's volume to the trailing 20-bar
// average (excluding the current bar). Defaults to 1 when history or the
// average is missing.
func volumeRatio(volumes []int64, i int) float64 {
	if i < 20 {
		return 1
	}
	var sum int64
	for j := i - 20; j < i; j++ {
		sum += volumes[j]
	}
	avg := float64(sum) / 20
	if avg == 0 {
		return 1
	}
	return float64(volumes[i]) / avg
}
