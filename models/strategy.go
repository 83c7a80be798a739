package models

import (
	"time"

	"github.com/google/uuid"
)

// StrategyType names one of the built-in signal generator archetypes.
type StrategyType string

const (
	StrategyTypeMomentum      StrategyType = "momentum"
	StrategyTypeMeanReversion StrategyType = "mean_reversion"
	StrategyTypeBreakout      StrategyType = "breakout"
	StrategyTypeMultiFactor   StrategyType = "multi_factor"
)

type StrategyStatus string

const (
	StrategyStatusActive   StrategyStatus = "active"
	StrategyStatusPaused   StrategyStatus = "paused"
	StrategyStatusArchived StrategyStatus = "archived"
)

// StrategyParameters bundles every threshold used by indicator calculation
// and signal generation. Percent fields are fractions (0.05 = 5%).
type StrategyParameters struct {
	RSIPeriod     int     `json:"rsi_period" validate:"gte=2,lte=100"`
	RSIOverbought float64 `json:"rsi_overbought" validate:"gt=50,lte=100"`
	RSIOversold   float64 `json:"rsi_oversold" validate:"gte=0,lt=50"`

	MACDFastPeriod   int `json:"macd_fast_period" validate:"gte=2,lte=100"`
	MACDSlowPeriod   int `json:"macd_slow_period" validate:"gte=2,lte=200,gtfield=MACDFastPeriod"`
	MACDSignalPeriod int `json:"macd_signal_period" validate:"gte=2,lte=100"`

	BollingerPeriod int     `json:"bollinger_period" validate:"gte=2,lte=200"`
	BollingerStdDev float64 `json:"bollinger_std_dev" validate:"gt=0,lte=5"`

	FastMAPeriod int `json:"fast_ma_period" validate:"gte=2,lte=200"`
	SlowMAPeriod int `json:"slow_ma_period" validate:"gte=2,lte=400,gtfield=FastMAPeriod"`

	StopLossPercent     float64 `json:"stop_loss_percent" validate:"gt=0,lte=0.5"`
	TakeProfitPercent   float64 `json:"take_profit_percent" validate:"gt=0,lte=2"`
	PositionSizePercent float64 `json:"position_size_percent" validate:"gt=0,lte=1"`
	MaxPositions        int     `json:"max_positions" validate:"gte=1,lte=20"`
}

// DefaultStrategyParameters returns the standard parameter set used when a
// strategy is created without explicit overrides.
func DefaultStrategyParameters() StrategyParameters {
	return StrategyParameters{
		RSIPeriod:           14,
		RSIOverbought:       70,
		RSIOversold:         30,
		MACDFastPeriod:      12,
		MACDSlowPeriod:      26,
		MACDSignalPeriod:    9,
		BollingerPeriod:     20,
		BollingerStdDev:     2,
		FastMAPeriod:        20,
		SlowMAPeriod:        50,
		StopLossPercent:     0.05,
		TakeProfitPercent:   0.10,
		PositionSizePercent: 0.10,
		MaxPositions:        1,
	}
}

// Strategy is a named, persisted signal generator configuration.
// Performance is updated each time a backtest is re-run against it;
// deletion only ever happens through an explicit user action.
type Strategy struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Symbol      string              `json:"symbol"`
	Type        StrategyType        `json:"type"`
	Parameters  StrategyParameters  `json:"parameters"`
	Performance *PerformanceMetrics `json:"performance,omitempty"`
	Status      StrategyStatus      `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	LastUpdated time.Time           `json:"last_updated"`
}

// NewStrategy creates an active strategy with default parameters.
func NewStrategy(name, symbol string, strategyType StrategyType) *Strategy {
	now := time.Now()
	return &Strategy{
		ID:          uuid.New(),
		Name:        name,
		Symbol:      symbol,
		Type:        strategyType,
		Parameters:  DefaultStrategyParameters(),
		Status:      StrategyStatusActive,
		CreatedAt:   now,
		LastUpdated: now,
	}
}

// RecordBacktest attaches fresh performance metrics after a backtest run.
func (s *Strategy) RecordBacktest(perf PerformanceMetrics) {
	s.Performance = &perf
	s.LastUpdated = time.Now()
}
