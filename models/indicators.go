package models

// MACDValue holds the MACD line, its signal line, and the histogram.
type MACDValue struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// BollingerBands holds the three band values. Invariant: Lower <= Middle <= Upper.
type BollingerBands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// StochasticValue holds %K and %D. %D is a pass-through of the raw %K
// rather than a smoothed series; that matches the behavior this engine
// is calibrated against and deviates from the textbook definition.
type StochasticValue struct {
	K float64 `json:"k"`
	D float64 `json:"d"`
}

// IndicatorSnapshot is the full set of technical indicator values aligned
// to a single bar. Before the warm-up window every field carries a neutral
// default, so consumers can always assume fully-populated values.
//
// SMA20 and SMA50 are computed over the strategy's fast and slow MA
// periods; the names reflect the defaults (20/50) and are kept for output
// compatibility.
type IndicatorSnapshot struct {
	RSI         float64         `json:"rsi"`
	MACD        MACDValue       `json:"macd"`
	SMA20       float64         `json:"sma20"`
	SMA50       float64         `json:"sma50"`
	SMA200      float64         `json:"sma200"`
	EMA12       float64         `json:"ema12"`
	EMA26       float64         `json:"ema26"`
	Bollinger   BollingerBands  `json:"bollinger"`
	Stochastic  StochasticValue `json:"stochastic"`
	ATR         float64         `json:"atr"`
	ADX         float64         `json:"adx"`
	WilliamsR   float64         `json:"williams_r"`
	VolumeRatio float64         `json:"volume_ratio"`
}

// FeatureTable is the per-bar indicator table for one (symbol, range,
// timeframe) request. It is built once and never mutated afterward; both
// the live-prediction path and the backtest replay read from it.
//
// WilderRSI carries the Wilder-smoothed RSI series used by the backtest
// path. Snapshots hold the block-average RSI used by live scoring.
type FeatureTable struct {
	Bars       []Bar               `json:"bars"`
	Snapshots  []IndicatorSnapshot `json:"snapshots"`
	Returns    []float64           `json:"returns"`
	Volatility []float64           `json:"volatility"`
	WilderRSI  []float64           `json:"wilder_rsi"`
}

// Len returns the number of bars in the table.
func (t *FeatureTable) Len() int {
	return len(t.Bars)
}

// BacktestSnapshot returns the snapshot at index i with the RSI channel
// swapped to the Wilder-smoothed series. Strategy generators consume this
// form during historical replay.
func (t *FeatureTable) BacktestSnapshot(i int) IndicatorSnapshot {
	snap := t.Snapshots[i]
	snap.RSI = t.WilderRSI[i]
	return snap
}
