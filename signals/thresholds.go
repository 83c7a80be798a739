package signals

// MarketRegime classifies recent realized volatility.
type MarketRegime string

const (
	RegimeNormal MarketRegime = "normal"
	RegimeHigh   MarketRegime = "high_volatility"
	RegimeLow    MarketRegime = "low_volatility"
)

const (
	highVolatilityCutoff = 0.03
	lowVolatilityCutoff  = 0.015
)

// decisionThresholds is the preset gate a score must clear to become a
// directional signal. High-volatility presets are more permissive, low
// volatility more conservative.
type decisionThresholds struct {
	Score          float64
	SignalStrength float64
	SignalRatio    float64
	Alignment      float64
}

var regimeThresholds = map[MarketRegime]decisionThresholds{
	RegimeNormal: {Score: 0.52, SignalStrength: 1.2, SignalRatio: 1.05, Alignment: 0.10},
	RegimeHigh:   {Score: 0.50, SignalStrength: 1.0, SignalRatio: 1.02, Alignment: 0.08},
	RegimeLow:    {Score: 0.54, SignalStrength: 1.4, SignalRatio: 1.08, Alignment: 0.12},
}

// classifyRegime buckets trailing 20-bar return volatility.
func classifyRegime(volatility float64) MarketRegime {
	switch {
	case volatility > highVolatilityCutoff:
		return RegimeHigh
	case volatility < lowVolatilityCutoff:
		return RegimeLow
	default:
		return RegimeNormal
	}
}
