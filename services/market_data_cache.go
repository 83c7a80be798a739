package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"signal-engine/models"
	"signal-engine/observability"
)

// CachingMarketData decorates a MarketDataService with read-through
// caching. Historical bars are immutable once the trading day closes, so
// they cache well; quotes and trades always go to the vendor.
type CachingMarketData struct {
	inner MarketDataService
	cache Cache
	ttl   time.Duration
}

// NewCachingMarketData wraps the given service with a bar cache
func NewCachingMarketData(inner MarketDataService, cache Cache, ttl time.Duration) *CachingMarketData {
	return &CachingMarketData{
		inner: inner,
		cache: cache,
		ttl:   ttl,
	}
}

func barsKey(symbol string, timeframe models.Timeframe, start, end time.Time) string {
	return fmt.Sprintf("bars:%s:%s:%d:%d", symbol, timeframe, start.Unix(), end.Unix())
}

// GetBars serves bars from the cache when possible, falling back to the
// underlying vendor. Cache failures degrade to a vendor fetch, never to
// an error.
func (s *CachingMarketData) GetBars(ctx context.Context, symbol string, timeframe models.Timeframe, start, end time.Time) ([]models.Bar, error) {
	metrics := observability.GetMetrics()
	key := barsKey(symbol, timeframe, start, end)

	if cached, err := s.cache.Get(ctx, key); err != nil {
		observability.Warn("bar cache read failed", "key", key, "error", err)
	} else if cached != nil {
		var bars []models.Bar
		if err := json.Unmarshal(cached, &bars); err == nil {
			metrics.RecordCacheHit("bars")
			return bars, nil
		}
		observability.Warn("discarding corrupt bar cache entry", "key", key)
	}
	metrics.RecordCacheMiss("bars")

	bars, err := s.inner.GetBars(ctx, symbol, timeframe, start, end)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(bars); err == nil {
		if err := s.cache.Set(ctx, key, encoded, s.ttl); err != nil {
			observability.Warn("bar cache write failed", "key", key, "error", err)
		}
	}

	return bars, nil
}

// GetDailyBars resolves the date window and delegates to GetBars so daily
// requests share the same cache entries.
func (s *CachingMarketData) GetDailyBars(ctx context.Context, symbol string, days int) ([]models.Bar, error) {
	// Truncate to the day so repeated calls within a day hit the cache.
	end := time.Now().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -days)

	return s.GetBars(ctx, symbol, models.TimeframeDay, start, end)
}

// GetQuote always goes to the vendor; quotes are too volatile to cache
func (s *CachingMarketData) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	return s.inner.GetQuote(ctx, symbol)
}

// GetLatestTrade always goes to the vendor
func (s *CachingMarketData) GetLatestTrade(ctx context.Context, symbol string) (*models.Quote, error) {
	return s.inner.GetLatestTrade(ctx, symbol)
}
