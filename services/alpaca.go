package services

import (
	"context"
	"fmt"
	"time"

	"signal-engine/models"
	"signal-engine/observability"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

// AlpacaService fetches market data and account state from Alpaca
type AlpacaService struct {
	tradeClient *alpaca.Client
	dataClient  *marketdata.Client
}

// NewAlpacaService creates a new AlpacaService instance
func NewAlpacaService(apiKey, apiSecret, baseURL string) *AlpacaService {
	tradeClient := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})

	dataClient := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	})

	return &AlpacaService{
		tradeClient: tradeClient,
		dataClient:  dataClient,
	}
}

// timeframeFor maps the engine's timeframe to Alpaca's bar aggregation.
func timeframeFor(tf models.Timeframe) marketdata.TimeFrame {
	switch tf {
	case models.TimeframeMinute:
		return marketdata.OneMin
	case models.TimeframeHour:
		return marketdata.OneHour
	default:
		return marketdata.OneDay
	}
}

// GetBars returns historical bars for a symbol in ascending order
func (s *AlpacaService) GetBars(ctx context.Context, symbol string, timeframe models.Timeframe, start, end time.Time) ([]models.Bar, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerAlpaca, "get_bars")
	timer := metrics.NewTimer()

	bars, err := WithCircuitBreaker(ctx, BreakerAlpaca, func() ([]marketdata.Bar, error) {
		var raw []marketdata.Bar

		err := WithRetry(ctx, DefaultRetryConfig, func() error {
			var fetchErr error
			raw, fetchErr = s.dataClient.GetBars(symbol, marketdata.GetBarsRequest{
				TimeFrame: timeframeFor(timeframe),
				Start:     start,
				End:       end,
			})
			return fetchErr
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get bars for %s: %w", symbol, err)
		}
		return raw, nil
	})

	timer.ObserveExternalAPI(BreakerAlpaca, "get_bars")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerAlpaca, "get_bars", categorizeAPIError(err))
		return nil, err
	}

	result := make([]models.Bar, 0, len(bars))
	for _, bar := range bars {
		result = append(result, models.Bar{
			Symbol:           symbol,
			Timestamp:        bar.Timestamp,
			Open:             bar.Open,
			High:             bar.High,
			Low:              bar.Low,
			Close:            bar.Close,
			Volume:           int64(bar.Volume),
			VWAP:             bar.VWAP,
			TransactionCount: int64(bar.TradeCount),
		})
	}

	return result, nil
}

// GetDailyBars returns daily bars for the last N calendar days
func (s *AlpacaService) GetDailyBars(ctx context.Context, symbol string, days int) ([]models.Bar, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	return s.GetBars(ctx, symbol, models.TimeframeDay, start, end)
}

// GetQuote returns the latest quote for a symbol
func (s *AlpacaService) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerAlpaca, "get_quote")
	timer := metrics.NewTimer()

	quote, err := WithCircuitBreaker(ctx, BreakerAlpaca, func() (*marketdata.Quote, error) {
		q, err := s.dataClient.GetLatestQuote(symbol, marketdata.GetLatestQuoteRequest{})
		if err != nil {
			return nil, fmt.Errorf("failed to get quote for %s: %w", symbol, err)
		}
		return q, nil
	})

	timer.ObserveExternalAPI(BreakerAlpaca, "get_quote")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerAlpaca, "get_quote", categorizeAPIError(err))
		return nil, err
	}

	return &models.Quote{
		Symbol:    symbol,
		Bid:       decimal.NewFromFloat(quote.BidPrice),
		Ask:       decimal.NewFromFloat(quote.AskPrice),
		Timestamp: quote.Timestamp,
	}, nil
}

// GetLatestTrade returns the latest trade for a symbol
func (s *AlpacaService) GetLatestTrade(ctx context.Context, symbol string) (*models.Quote, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerAlpaca, "get_latest_trade")
	timer := metrics.NewTimer()

	trade, err := WithCircuitBreaker(ctx, BreakerAlpaca, func() (*marketdata.Trade, error) {
		tr, err := s.dataClient.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
		if err != nil {
			return nil, fmt.Errorf("failed to get trade for %s: %w", symbol, err)
		}
		return tr, nil
	})

	timer.ObserveExternalAPI(BreakerAlpaca, "get_latest_trade")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerAlpaca, "get_latest_trade", categorizeAPIError(err))
		return nil, err
	}

	return &models.Quote{
		Symbol:    symbol,
		Last:      decimal.NewFromFloat(trade.Price),
		Volume:    int64(trade.Size),
		Timestamp: trade.Timestamp,
	}, nil
}

// GetAccount returns the current account values used for position sizing
func (s *AlpacaService) GetAccount(ctx context.Context) (*models.Account, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerAlpaca, "get_account")
	timer := metrics.NewTimer()

	acct, err := WithCircuitBreaker(ctx, BreakerAlpaca, func() (*alpaca.Account, error) {
		a, err := s.tradeClient.GetAccount()
		if err != nil {
			return nil, fmt.Errorf("failed to get account: %w", err)
		}
		return a, nil
	})

	timer.ObserveExternalAPI(BreakerAlpaca, "get_account")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerAlpaca, "get_account", categorizeAPIError(err))
		return nil, err
	}

	return &models.Account{
		Equity:         acct.Equity,
		PortfolioValue: acct.PortfolioValue,
		BuyingPower:    acct.BuyingPower,
	}, nil
}

// categorizeAPIError categorizes an error for metrics purposes
func categorizeAPIError(err error) string {
	if err == nil {
		return "none"
	}
	errStr := err.Error()
	switch {
	case contains(errStr, "timeout", "deadline"):
		return "timeout"
	case contains(errStr, "rate limit", "429"):
		return "rate_limit"
	case contains(errStr, "unauthorized", "401"):
		return "auth_error"
	case contains(errStr, "connection", "network"):
		return "connection_error"
	case contains(errStr, "circuit breaker"):
		return "circuit_open"
	default:
		return "unknown"
	}
}

// contains checks if the string contains any of the substrings
func contains(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if len(s) >= len(sub) {
			for i := 0; i <= len(s)-len(sub); i++ {
				if s[i:i+len(sub)] == sub {
					return true
				}
			}
		}
	}
	return false
}
