package models

import (
	"time"

	"github.com/google/uuid"
)

// ExitReason records why a position was closed during replay.
type ExitReason string

const (
	ExitReasonStopLoss   ExitReason = "stop_loss"
	ExitReasonTakeProfit ExitReason = "take_profit"
	ExitReasonSignal     ExitReason = "signal"
)

// BacktestTrade is one simulated fill. Trades are created only by the
// backtest engine and are immutable once appended to the trade log.
// PnL is zero on entry fills; ExitReason is set on exit fills only.
type BacktestTrade struct {
	Date       time.Time  `json:"date"`
	Side       Direction  `json:"side"`
	Price      float64    `json:"price"`
	Quantity   int64      `json:"quantity"`
	PnL        float64    `json:"pnl"`
	ExitReason ExitReason `json:"exit_reason,omitempty"`
}

// EquityPoint is one mark-to-market observation of the simulated portfolio.
type EquityPoint struct {
	Date            time.Time `json:"date"`
	PortfolioValue  float64   `json:"portfolio_value"`
	DrawdownPercent float64   `json:"drawdown_percent"`
	HasOpenPosition bool      `json:"has_open_position"`
}

// PerformanceMetrics are the aggregate statistics derived from one replay.
type PerformanceMetrics struct {
	TotalTrades        int     `json:"total_trades"`
	WinningTrades      int     `json:"winning_trades"`
	LosingTrades       int     `json:"losing_trades"`
	WinRate            float64 `json:"win_rate"`
	ProfitFactor       float64 `json:"profit_factor"`
	SharpeRatio        float64 `json:"sharpe_ratio"`
	MaxDrawdown        float64 `json:"max_drawdown"`
	TotalReturnPercent float64 `json:"total_return_percent"`
	CalmarRatio        float64 `json:"calmar_ratio"`
	RecoveryFactor     float64 `json:"recovery_factor"`
	AverageWin         float64 `json:"average_win"`
	AverageLoss        float64 `json:"average_loss"`
	MaxConsecutiveWins int     `json:"max_consecutive_wins"`
	MaxConsecutiveLoss int     `json:"max_consecutive_losses"`
}

// BacktestResult is the complete outcome of one backtest run. Re-running
// a backtest produces a new result; prior results are never mutated.
type BacktestResult struct {
	ID             uuid.UUID          `json:"id"`
	StrategyID     uuid.UUID          `json:"strategy_id"`
	Symbol         string             `json:"symbol"`
	From           time.Time          `json:"from"`
	To             time.Time          `json:"to"`
	InitialCapital float64            `json:"initial_capital"`
	FinalCapital   float64            `json:"final_capital"`
	Trades         []BacktestTrade    `json:"trades"`
	Equity         []EquityPoint      `json:"equity"`
	Performance    PerformanceMetrics `json:"performance"`
	CreatedAt      time.Time          `json:"created_at"`
}
