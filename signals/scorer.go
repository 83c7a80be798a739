// Package signals implements the live signal scorer: a weighted fusion of
// six technical factor groups into a {buy, sell, hold} decision with a
// confidence value and a predicted price move.
package signals

import (
	"math"
	"time"

	"signal-engine/models"
)

// consistencyTolerance is the maximum allowed gap, in percentage points,
// between the reported predicted change and the value recomputed from the
// predicted price.
const consistencyTolerance = 0.1

// Scorer turns the latest row of a feature table into a SignalDecision.
// It is stateless; concurrent calls need no coordination.
type Scorer struct{}

func NewScorer() *Scorer {
	return &Scorer{}
}

// tally accumulates the weighted factor votes.
type tally struct {
	bullish  float64
	bearish  float64
	total    float64
	strength float64
}

func (t *tally) bull(w float64) {
	t.bullish += w
	t.strength += w
}

func (t *tally) bear(w float64) {
	t.bearish += w
	t.strength += w
}

// Score evaluates the most recent bar of the table. currentPrice is the
// live price when available; pass 0 to fall back to the last close.
//
// Required indicators (RSI, MACD, SMA20, SMA50) must be present in the
// snapshot; the scorer fails with MissingIndicatorError rather than
// silently substituting a neutral value, because a wrong trading signal
// is worse than a loud failure.
func (s *Scorer) Score(symbol string, table *models.FeatureTable, currentPrice float64) (*models.SignalDecision, error) {
	n := table.Len()
	last := n - 1
	snap := table.Snapshots[last]

	if currentPrice <= 0 {
		currentPrice = table.Bars[last].Close
	}

	if err := validateRequired(snap); err != nil {
		return nil, err
	}

	var prev *models.IndicatorSnapshot
	if last > 0 {
		prev = &table.Snapshots[last-1]
	}

	t := scoreFactors(snap, prev, table, last, currentPrice)

	score := (t.bullish-t.bearish)/t.total + 0.5
	alignment := math.Abs(t.bullish-t.bearish) / t.total

	volatility := table.Volatility[last]
	regime := classifyRegime(volatility)
	thresholds := regimeThresholds[regime]

	avgVolume := trailingAvgVolume(table.Bars, last)
	adj := characteristicAdjustment(currentPrice, avgVolume, volatility, score)

	score = clamp(score+adj.score, 0, 1)
	strength := clamp(t.strength+adj.strength, 0, 5)

	direction := decide(score, strength, alignment, t, thresholds)

	confidence := s.confidence(direction, alignment, strength, regime, adj)

	predictedPrice, changePercent := s.predict(direction, currentPrice, volatility, strength, score)

	// Post-condition: the reported change must be recomputable from the
	// predicted price. A mismatch is a scorer bug, never user error.
	recomputed := (predictedPrice - currentPrice) / currentPrice * 100
	if math.Abs(recomputed-changePercent) > consistencyTolerance {
		return nil, &models.InconsistentPredictionError{Reported: changePercent, Recomputed: recomputed}
	}

	return &models.SignalDecision{
		Symbol:                 symbol,
		Direction:              direction,
		Confidence:             confidence,
		Score:                  score,
		SignalStrength:         strength,
		CurrentPrice:           currentPrice,
		PredictedPrice:         predictedPrice,
		PredictedChangePercent: changePercent,
		MarketRegime:           string(regime),
		GeneratedAt:            time.Now().UTC(),
	}, nil
}

func validateRequired(snap models.IndicatorSnapshot) error {
	switch {
	case math.IsNaN(snap.RSI):
		return &models.MissingIndicatorError{Indicator: "rsi"}
	case math.IsNaN(snap.MACD.Line) || math.IsNaN(snap.MACD.Signal):
		return &models.MissingIndicatorError{Indicator: "macd"}
	case snap.SMA20 <= 0 || math.IsNaN(snap.SMA20):
		return &models.MissingIndicatorError{Indicator: "sma20"}
	case snap.SMA50 <= 0 || math.IsNaN(snap.SMA50):
		return &models.MissingIndicatorError{Indicator: "sma50"}
	}
	return nil
}

// scoreFactors runs the six weighted factor groups.
func scoreFactors(snap models.IndicatorSnapshot, prev *models.IndicatorSnapshot, table *models.FeatureTable, last int, price float64) tally {
	var t tally

	// RSI: graded buckets from deeply oversold to deeply overbought.
	switch {
	case snap.RSI < 30:
		t.bull(2.5)
	case snap.RSI < 40:
		t.bull(1.5)
	case snap.RSI < 50:
		t.bull(0.5)
	case snap.RSI > 70:
		t.bear(2.5)
	case snap.RSI > 60:
		t.bear(1.5)
	case snap.RSI > 50:
		t.bear(0.5)
	}
	t.total += 2

	// MACD: line vs zero and signal, histogram sign, histogram trend.
	switch {
	case snap.MACD.Line > 0 && snap.MACD.Line > snap.MACD.Signal:
		t.bull(2.0)
	case snap.MACD.Line > 0:
		t.bull(1.0)
	case snap.MACD.Line < 0 && snap.MACD.Line < snap.MACD.Signal:
		t.bear(2.0)
	case snap.MACD.Line < 0:
		t.bear(1.0)
	}
	if snap.MACD.Histogram > 0 {
		t.bull(0.8)
	} else if snap.MACD.Histogram < 0 {
		t.bear(0.8)
	}
	if prev != nil {
		if snap.MACD.Histogram > prev.MACD.Histogram {
			t.bull(0.5)
		} else if snap.MACD.Histogram < prev.MACD.Histogram {
			t.bear(0.5)
		}
	}
	t.total += 3

	// Moving averages: cross, price position, long trend, extension.
	switch {
	case snap.SMA20 > snap.SMA50 && price > snap.SMA20:
		t.bull(2.5)
	case snap.SMA20 > snap.SMA50:
		t.bull(1.5)
	case snap.SMA20 < snap.SMA50 && price < snap.SMA20:
		t.bear(2.5)
	case snap.SMA20 < snap.SMA50:
		t.bear(1.5)
	}
	if snap.SMA200 > 0 {
		if price > snap.SMA200 {
			t.bull(1.5)
		} else if price < snap.SMA200 {
			t.bear(1.5)
		}
	}
	if price > snap.SMA20*1.02 && price > snap.SMA50*1.02 {
		t.bull(0.5)
	} else if price < snap.SMA20*0.98 && price < snap.SMA50*0.98 {
		t.bear(0.5)
	}
	t.total += 4

	// Bollinger position within the bands.
	if snap.Bollinger.Upper > snap.Bollinger.Lower {
		bbPos := (price - snap.Bollinger.Lower) / (snap.Bollinger.Upper - snap.Bollinger.Lower)
		switch {
		case bbPos < 0.3:
			t.bull(1.5)
		case bbPos > 0.7:
			t.bear(1.5)
		case bbPos < 0.45:
			t.bull(0.5)
		case bbPos > 0.55:
			t.bear(0.5)
		}
	}
	t.total += 2.5

	// Volume: an unusually heavy bar reinforces whichever side leads.
	if snap.VolumeRatio > 1.5 {
		if t.bullish > t.bearish {
			t.bull(0.5)
		} else if t.bearish > t.bullish {
			t.bear(0.5)
		}
	}
	t.total += 0.5

	// Recent price action: 5-bar delta graded against 1% of price.
	if last >= 5 {
		delta := price - table.Bars[last-5].Close
		threshold := 0.01 * price
		switch {
		case delta > threshold:
			t.bull(0.5)
		case delta > 0:
			t.bull(0.2)
		case delta < -threshold:
			t.bear(0.5)
		case delta < 0:
			t.bear(0.2)
		}
	}
	t.total += 1.0

	return t
}

// decide applies the regime-selected gates, falling back to a weak-signal
// rule before defaulting to hold.
func decide(score, strength, alignment float64, t tally, th decisionThresholds) models.Direction {
	if score > th.Score &&
		strength >= th.SignalStrength &&
		t.bullish > t.bearish*th.SignalRatio &&
		alignment > th.Alignment {
		return models.DirectionBuy
	}
	if score < 1-th.Score &&
		strength >= th.SignalStrength &&
		t.bearish > t.bullish*th.SignalRatio &&
		alignment > th.Alignment {
		return models.DirectionSell
	}

	// Weak-signal fallback: enough accumulated strength with the score
	// clearly off-center still earns a directional call.
	if strength >= 0.8 {
		if score > 0.52 {
			return models.DirectionBuy
		}
		if score < 0.48 {
			return models.DirectionSell
		}
	}

	return models.DirectionHold
}

func (s *Scorer) confidence(direction models.Direction, alignment, strength float64, regime MarketRegime, adj stockAdjustment) float64 {
	conf := alignment*strength/3 + alignment*0.2

	if direction != models.DirectionHold {
		conf += 0.1
	}
	switch regime {
	case RegimeHigh:
		conf -= 0.05
	case RegimeLow:
		conf += 0.03
	case RegimeNormal:
		conf += 0.02
	}
	if strength >= 2 {
		conf += 0.05
	}
	conf += adj.confidence

	return clamp(conf, 0.1, 0.9)
}

// predict derives the price target: recent volatility scaled by signal
// strength, capped at ±3% for directional calls, a small score-proportional
// bias for holds.
func (s *Scorer) predict(direction models.Direction, price, volatility, strength, score float64) (predictedPrice, changePercent float64) {
	var change float64
	switch direction {
	case models.DirectionBuy:
		change = math.Min(0.03, math.Max(0.005, volatility*strength))
	case models.DirectionSell:
		change = -math.Min(0.03, math.Max(0.005, volatility*strength))
	default:
		change = (score - 0.5) * 0.01
	}

	return price * (1 + change), change * 100
}

func trailingAvgVolume(bars []models.Bar, last int) float64 {
	start := last - 19
	if start < 0 {
		start = 0
	}
	var sum int64
	count := 0
	for i := start; i <= last; i++ {
		sum += bars[i].Volume
		count++
	}
	if count == 0 {
		return 0
	}
	return float64(sum) / float64(count)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
