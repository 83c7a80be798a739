package signals

// stockAdjustment is the accumulated nudge a symbol's trading
// characteristics apply to the raw score, the signal strength, and the
// final confidence. Individual nudges stay within ±0.03.
type stockAdjustment struct {
	score      float64 // signed move applied to the score
	strength   float64
	confidence float64
}

const (
	highVolumeShares  = 10_000_000
	largeCapDollarVol = 1_000_000_000
	highPriceCutoff   = 200.0
	lowPriceCutoff    = 10.0
)

// characteristicAdjustment derives the per-symbol nudges from price level,
// average volume, and realized volatility. Reinforcing nudges push the
// score away from the 0.5 midline in whichever direction it already
// leans; dampening nudges pull it back toward 0.5.
func characteristicAdjustment(price, avgVolume, volatility, score float64) stockAdjustment {
	var adj stockAdjustment

	lean := 1.0
	if score < 0.5 {
		lean = -1.0
	}

	if avgVolume > highVolumeShares {
		// Liquid names trade cleaner: trust the signal slightly more.
		adj.score += 0.01 * lean
		adj.strength += 0.03
		adj.confidence += 0.02
	}
	if price*avgVolume > largeCapDollarVol {
		// Large caps move slowly: temper the score, trust the read.
		adj.score -= 0.01 * lean
		adj.confidence += 0.02
	}
	if price > highPriceCutoff {
		adj.score -= 0.01 * lean
		adj.strength -= 0.02
		adj.confidence += 0.01
	}
	if price < lowPriceCutoff {
		// Low-priced names swing harder in both directions.
		adj.score += 0.02 * lean
		adj.strength += 0.02
		adj.confidence -= 0.02
	}
	if volatility > highVolatilityCutoff {
		adj.strength += 0.03
		adj.confidence -= 0.03
	}
	if volatility < lowVolatilityCutoff {
		adj.strength -= 0.02
		adj.confidence += 0.02
	}

	return adj
}
