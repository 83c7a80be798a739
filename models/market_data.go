package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Timeframe is the bar aggregation interval requested from the data vendor.
type Timeframe string

const (
	TimeframeDay    Timeframe = "day"
	TimeframeHour   Timeframe = "hour"
	TimeframeMinute Timeframe = "minute"
)

// Bar represents one OHLCV observation. Bars are immutable once fetched
// from the vendor; everything downstream consumes them read-only.
//
// OHLC values are float64 because the indicator and backtest math is
// floating-point throughout. Money that touches a user account (quotes,
// position sizing) uses decimal instead.
type Bar struct {
	Symbol           string    `json:"symbol"`
	Timestamp        time.Time `json:"timestamp"`
	Open             float64   `json:"open"`
	High             float64   `json:"high"`
	Low              float64   `json:"low"`
	Close            float64   `json:"close"`
	Volume           int64     `json:"volume"`
	VWAP             float64   `json:"vwap,omitempty"`
	TransactionCount int64     `json:"transaction_count,omitempty"`
}

// Quote represents the latest trade/quote data for a symbol.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	Last      decimal.Decimal `json:"last"`
	Volume    int64           `json:"volume"`
	Timestamp time.Time       `json:"timestamp"`
}

// Account holds the account values position sizing needs.
type Account struct {
	Equity         decimal.Decimal `json:"equity"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	BuyingPower    decimal.Decimal `json:"buying_power"`
}
