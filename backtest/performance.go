package backtest

import (
	"math"

	"signal-engine/models"
)

// tradingDaysPerYear is the annualization factor for the Sharpe ratio.
const tradingDaysPerYear = 252

// computePerformance derives the aggregate metrics from the trade log and
// equity curve. Every ratio guards its denominator: a run with no trades
// or no losses reports 0, never NaN or Inf.
func computePerformance(trades []models.BacktestTrade, equity []models.EquityPoint, initialCapital, finalCapital float64) models.PerformanceMetrics {
	var perf models.PerformanceMetrics

	if initialCapital > 0 {
		perf.TotalReturnPercent = (finalCapital - initialCapital) / initialCapital * 100
	}

	for _, p := range equity {
		if p.DrawdownPercent > perf.MaxDrawdown {
			perf.MaxDrawdown = p.DrawdownPercent
		}
	}

	// Only exits realize an outcome; entries carry zero PnL by definition.
	var (
		grossProfit, grossLoss float64
		returns                []float64
		winStreak, lossStreak  int
	)
	for _, t := range trades {
		if t.Side != models.DirectionSell {
			continue
		}
		perf.TotalTrades++

		entryValue := t.Price*float64(t.Quantity) - t.PnL
		if entryValue > 0 {
			returns = append(returns, t.PnL/entryValue)
		}

		if t.PnL > 0 {
			perf.WinningTrades++
			grossProfit += t.PnL
			winStreak++
			lossStreak = 0
			if winStreak > perf.MaxConsecutiveWins {
				perf.MaxConsecutiveWins = winStreak
			}
		} else if t.PnL < 0 {
			perf.LosingTrades++
			grossLoss += -t.PnL
			lossStreak++
			winStreak = 0
			if lossStreak > perf.MaxConsecutiveLoss {
				perf.MaxConsecutiveLoss = lossStreak
			}
		} else {
			// Flat exits break both streaks without counting either way.
			winStreak = 0
			lossStreak = 0
		}
	}

	if perf.TotalTrades > 0 {
		perf.WinRate = float64(perf.WinningTrades) / float64(perf.TotalTrades) * 100
	}
	if grossLoss > 0 {
		perf.ProfitFactor = grossProfit / grossLoss
	}
	if perf.WinningTrades > 0 {
		perf.AverageWin = grossProfit / float64(perf.WinningTrades)
	}
	if perf.LosingTrades > 0 {
		perf.AverageLoss = grossLoss / float64(perf.LosingTrades)
	}

	perf.SharpeRatio = sharpe(returns)

	if perf.MaxDrawdown > 0 {
		perf.CalmarRatio = perf.TotalReturnPercent / perf.MaxDrawdown
		perf.RecoveryFactor = perf.TotalReturnPercent / perf.MaxDrawdown
	}

	return perf
}

// sharpe computes the annualized Sharpe ratio from the per-trade return
// series: mean over standard deviation, scaled by sqrt(252).
func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	if variance == 0 {
		return 0
	}
	return mean / math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear)
}
