package services

import (
	"context"
	"time"

	"signal-engine/models"
)

// MarketDataService defines the interface for market data operations
type MarketDataService interface {
	GetBars(ctx context.Context, symbol string, timeframe models.Timeframe, start, end time.Time) ([]models.Bar, error)
	GetDailyBars(ctx context.Context, symbol string, days int) ([]models.Bar, error)
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
	GetLatestTrade(ctx context.Context, symbol string) (*models.Quote, error)
}

// AccountService defines the interface for brokerage account reads
type AccountService interface {
	GetAccount(ctx context.Context) (*models.Account, error)
}

// Compile-time interface verification
var _ MarketDataService = (*AlpacaService)(nil)
var _ MarketDataService = (*CachingMarketData)(nil)
var _ AccountService = (*AlpacaService)(nil)
