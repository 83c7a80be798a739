// Package strategies implements the built-in signal generator archetypes.
// Each generator is a pure function of one indicator snapshot and the
// strategy parameters; the backtest engine replays them bar by bar.
package strategies

import (
	"fmt"
	"math"

	"signal-engine/models"
)

// SignalGenerator turns one indicator snapshot into a trading decision.
type SignalGenerator interface {
	Generate(snap models.IndicatorSnapshot, price float64, params models.StrategyParameters) models.Direction
	Type() models.StrategyType
}

// FromType returns the generator for a strategy type.
func FromType(t models.StrategyType) (SignalGenerator, error) {
	switch t {
	case models.StrategyTypeMomentum:
		return Momentum{}, nil
	case models.StrategyTypeMeanReversion:
		return MeanReversion{}, nil
	case models.StrategyTypeBreakout:
		return Breakout{}, nil
	case models.StrategyTypeMultiFactor:
		return MultiFactor{}, nil
	}
	return nil, fmt.Errorf("unknown strategy type: %q", t)
}

// factor scores one sub-signal on a bull/bear/neutral scale: the full
// weight when the bullish condition holds, zero when the bearish condition
// holds, half the weight otherwise. Summing factors yields a score in
// [0, 1] where 0.5 is neutral, so a flat series holds rather than sells.
func factor(weight float64, bullish, bearish bool) float64 {
	switch {
	case bullish:
		return weight
	case bearish:
		return 0
	default:
		return weight / 2
	}
}

// Momentum buys strength and sells weakness: RSI in the momentum band,
// MACD confirmation, aligned moving averages, trend strength, stochastic
// in the advancing range, and volume participation.
type Momentum struct{}

func (Momentum) Type() models.StrategyType { return models.StrategyTypeMomentum }

func (Momentum) Generate(snap models.IndicatorSnapshot, price float64, params models.StrategyParameters) models.Direction {
	trend := 0.0
	if snap.SMA50 > 0 {
		trend = (snap.SMA20 - snap.SMA50) / snap.SMA50
	}

	score := factor(0.25, snap.RSI > 50 && snap.RSI < params.RSIOverbought, snap.RSI < 50 && snap.RSI > params.RSIOversold) +
		factor(0.20, snap.MACD.Line > snap.MACD.Signal && snap.MACD.Histogram > 0, snap.MACD.Line < snap.MACD.Signal && snap.MACD.Histogram < 0) +
		factor(0.20, snap.SMA20 > snap.SMA50 && snap.EMA12 > snap.EMA26, snap.SMA20 < snap.SMA50 && snap.EMA12 < snap.EMA26) +
		factor(0.15, trend > 0.02, trend < -0.02) +
		factor(0.10, snap.Stochastic.K > 50 && snap.Stochastic.K < 80, snap.Stochastic.K < 50 && snap.Stochastic.K > 20) +
		factor(0.10, snap.VolumeRatio > 1.2, snap.VolumeRatio < 0.8)

	switch {
	case score >= 0.7:
		return models.DirectionBuy
	case score <= 0.3:
		return models.DirectionSell
	default:
		return models.DirectionHold
	}
}

// MeanReversion fades extremes: deeply oversold oscillators plus converged
// moving averages argue for a bounce, and the mirror image for a pullback.
// Buy-side and sell-side conditions are scored separately.
type MeanReversion struct{}

func (MeanReversion) Type() models.StrategyType { return models.StrategyTypeMeanReversion }

func (MeanReversion) Generate(snap models.IndicatorSnapshot, price float64, params models.StrategyParameters) models.Direction {
	converged := false
	if snap.SMA50 > 0 {
		converged = math.Abs(snap.SMA20-snap.SMA50)/snap.SMA50 < 0.01
	}

	buyScore := 0.0
	if snap.RSI < 20 {
		buyScore += 0.30
	}
	if snap.Stochastic.K < 10 {
		buyScore += 0.25
	}
	if snap.WilliamsR < -90 {
		buyScore += 0.25
	}
	if converged {
		buyScore += 0.20
	}

	sellScore := 0.0
	if snap.RSI > 80 {
		sellScore += 0.30
	}
	if snap.Stochastic.K > 90 {
		sellScore += 0.25
	}
	if snap.WilliamsR > -10 {
		sellScore += 0.25
	}
	if converged {
		sellScore += 0.20
	}

	// Buy side wins a (practically impossible) tie: the oscillator
	// conditions are mutually exclusive, only convergence is shared.
	switch {
	case buyScore >= 0.6:
		return models.DirectionBuy
	case sellScore >= 0.6:
		return models.DirectionSell
	default:
		return models.DirectionHold
	}
}

// Breakout chases confirmed upside moves only; it has no short leg by
// design, so anything below the entry threshold holds.
type Breakout struct{}

func (Breakout) Type() models.StrategyType { return models.StrategyTypeBreakout }

func (Breakout) Generate(snap models.IndicatorSnapshot, price float64, params models.StrategyParameters) models.Direction {
	score := 0.0
	if snap.SMA20 > 0 && price > snap.SMA20*1.02 {
		score += 0.25
	}
	if snap.EMA12 > 0 && price > snap.EMA12*1.015 {
		score += 0.20
	}
	if snap.RSI >= 60 && snap.RSI <= 80 {
		score += 0.20
	}
	if snap.MACD.Line > snap.MACD.Signal {
		score += 0.20
	}
	if snap.Stochastic.K >= 50 && snap.Stochastic.K <= 80 {
		score += 0.10
	}
	if snap.VolumeRatio > 1.5 {
		score += 0.05
	}

	if score >= 0.7 {
		return models.DirectionBuy
	}
	return models.DirectionHold
}

// MultiFactor is the conservative composite: it only acts when momentum
// and mean reversion agree, which in practice means it mostly holds.
type MultiFactor struct{}

func (MultiFactor) Type() models.StrategyType { return models.StrategyTypeMultiFactor }

func (MultiFactor) Generate(snap models.IndicatorSnapshot, price float64, params models.StrategyParameters) models.Direction {
	m := Momentum{}.Generate(snap, price, params)
	r := MeanReversion{}.Generate(snap, price, params)

	if m == models.DirectionBuy && r == models.DirectionBuy {
		return models.DirectionBuy
	}
	if m == models.DirectionSell && r == models.DirectionSell {
		return models.DirectionSell
	}
	return models.DirectionHold
}
