// Package backtest replays a strategy's signal generator against a
// historical bar series and derives aggregate performance statistics.
//
// A run is a pure function of (bars, strategy parameters): no randomness,
// no shared state, so repeated runs produce identical results and multiple
// backtests may execute concurrently with zero coordination.
package backtest

import (
	"math"
	"time"

	"signal-engine/features"
	"signal-engine/models"
	"signal-engine/strategies"

	"github.com/google/uuid"
)

// Engine replays strategies over feature tables.
type Engine struct {
	warmup int
}

// NewEngine creates an engine that starts replay after the standard
// feature warm-up window, where snapshots stop being neutral defaults.
func NewEngine() *Engine {
	return &Engine{warmup: features.WarmupThreshold}
}

// state is the single-position inventory model tracked through a replay.
type state struct {
	cash        float64
	positionQty int64
	entryPrice  float64
	stopLevel   float64
	takeLevel   float64
	realizedPnL float64
	peak        float64
}

// Run replays the strategy bar by bar from the warm-up threshold onward.
// It either completes the full replay or fails; it never produces partial
// results. Bars must be in ascending chronological order.
func (e *Engine) Run(strategy *models.Strategy, bars []models.Bar, initialCapital float64) (*models.BacktestResult, error) {
	if len(bars) < e.warmup {
		return nil, &models.InsufficientHistoryError{Got: len(bars), Need: e.warmup}
	}

	generator, err := strategies.FromType(strategy.Type)
	if err != nil {
		return nil, err
	}

	table, err := features.ExtractTraining(bars, strategy.Parameters)
	if err != nil {
		return nil, err
	}

	params := strategy.Parameters
	st := state{cash: initialCapital, peak: initialCapital}

	var trades []models.BacktestTrade
	var equity []models.EquityPoint

	for i := e.warmup; i < table.Len(); i++ {
		bar := table.Bars[i]
		price := bar.Close
		snap := table.BacktestSnapshot(i)

		if st.positionQty > 0 {
			if exit, reason := e.checkExit(&st, snap, price, generator, params); exit {
				trades = append(trades, e.closePosition(&st, bar.Timestamp, price, reason))
			}
		} else if generator.Generate(snap, price, params) == models.DirectionBuy {
			if trade, ok := e.openPosition(&st, bar.Timestamp, price, params); ok {
				trades = append(trades, trade)
			}
		}

		equity = append(equity, e.markToMarket(&st, bar.Timestamp, price))
	}

	// Force-close any open position at the final close so every entry has
	// a realized outcome.
	if st.positionQty > 0 {
		lastBar := table.Bars[table.Len()-1]
		trades = append(trades, e.closePosition(&st, lastBar.Timestamp, lastBar.Close, models.ExitReasonSignal))
		equity[len(equity)-1] = e.markToMarket(&st, lastBar.Timestamp, lastBar.Close)
	}

	finalCapital := st.cash
	perf := computePerformance(trades, equity, initialCapital, finalCapital)

	return &models.BacktestResult{
		ID:             uuid.New(),
		StrategyID:     strategy.ID,
		Symbol:         strategy.Symbol,
		From:           bars[0].Timestamp,
		To:             bars[len(bars)-1].Timestamp,
		InitialCapital: initialCapital,
		FinalCapital:   finalCapital,
		Trades:         trades,
		Equity:         equity,
		Performance:    perf,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// checkExit tests stop-loss, take-profit, then the strategy's own sell
// signal, in that priority order.
func (e *Engine) checkExit(st *state, snap models.IndicatorSnapshot, price float64, generator strategies.SignalGenerator, params models.StrategyParameters) (bool, models.ExitReason) {
	if price <= st.stopLevel {
		return true, models.ExitReasonStopLoss
	}
	if price >= st.takeLevel {
		return true, models.ExitReasonTakeProfit
	}
	if generator.Generate(snap, price, params) == models.DirectionSell {
		return true, models.ExitReasonSignal
	}
	return false, ""
}

// openPosition sizes the entry as a fraction of current cash and records
// the stop and take levels off the entry price. Entries below one full
// share are skipped.
func (e *Engine) openPosition(st *state, date time.Time, price float64, params models.StrategyParameters) (models.BacktestTrade, bool) {
	qty := int64(math.Floor(st.cash * params.PositionSizePercent / price))
	if qty < 1 {
		return models.BacktestTrade{}, false
	}

	st.positionQty = qty
	st.entryPrice = price
	st.stopLevel = price * (1 - params.StopLossPercent)
	st.takeLevel = price * (1 + params.TakeProfitPercent)
	st.cash -= float64(qty) * price

	return models.BacktestTrade{
		Date:     date,
		Side:     models.DirectionBuy,
		Price:    price,
		Quantity: qty,
		PnL:      0,
	}, true
}

func (e *Engine) closePosition(st *state, date time.Time, price float64, reason models.ExitReason) models.BacktestTrade {
	qty := st.positionQty
	pnl := (price - st.entryPrice) * float64(qty)

	st.cash += float64(qty) * price
	st.realizedPnL += pnl
	st.positionQty = 0
	st.entryPrice = 0
	st.stopLevel = 0
	st.takeLevel = 0

	return models.BacktestTrade{
		Date:       date,
		Side:       models.DirectionSell,
		Price:      price,
		Quantity:   qty,
		PnL:        pnl,
		ExitReason: reason,
	}
}

// markToMarket values the portfolio at the current price and tracks the
// running peak and drawdown.
func (e *Engine) markToMarket(st *state, date time.Time, price float64) models.EquityPoint {
	value := st.cash + float64(st.positionQty)*price
	if value > st.peak {
		st.peak = value
	}

	drawdown := 0.0
	if st.peak > 0 {
		drawdown = (st.peak - value) / st.peak * 100
	}

	return models.EquityPoint{
		Date:            date,
		PortfolioValue:  value,
		DrawdownPercent: drawdown,
		HasOpenPosition: st.positionQty > 0,
	}
}
