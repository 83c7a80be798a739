// Package main runs the signal engine HTTP server: the prediction and
// backtest API, the Prometheus endpoint, and the price alert sweep.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signal-engine/alerts"
	"signal-engine/config"
	"signal-engine/internal/api"
	"signal-engine/internal/app"
	"signal-engine/observability"
	"signal-engine/repository"
	"signal-engine/services"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// Not an error: containerized deployments pass real env vars.
		fmt.Fprintln(os.Stderr, "no .env file found, using environment variables")
	}

	observability.InitLogger(os.Getenv("ENV") == "production")
	observability.InitMetrics()

	cfg, err := config.Load()
	if err != nil {
		observability.Fatal("invalid configuration", "error", err)
	}

	ctx := context.Background()

	// Database. The server runs degraded without one: predictions still
	// work, strategies and alerts do not.
	var repo *repository.Repository
	if cfg.HasDatabase() {
		repo, err = repository.NewRepository(ctx, cfg.Database.URL)
		if err != nil {
			observability.Fatal("failed to connect to database", "error", err)
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			observability.Fatal("failed to ensure schema", "error", err)
		}
		observability.Info("database connected")
	} else {
		observability.Warn("DATABASE_URL not set, persistence disabled")
	}

	// Market data vendor.
	var marketData services.MarketDataService
	var accounts services.AccountService
	if cfg.HasAlpaca() {
		alpaca := services.NewAlpacaService(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
		marketData = alpaca
		accounts = alpaca
	} else {
		observability.Warn("Alpaca credentials not set, market data disabled")
	}

	// Bar cache: Redis when configured, in-process otherwise.
	if marketData != nil {
		var cache services.Cache
		if cfg.HasRedis() {
			redisCache, err := services.NewRedisCache(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
			if err != nil {
				observability.Warn("redis unavailable, falling back to in-process cache", "error", err)
				cache = services.NewMemoryCache()
			} else {
				defer redisCache.Close()
				cache = redisCache
				observability.Info("redis cache connected", "addr", cfg.Cache.RedisAddr)
			}
		} else {
			cache = services.NewMemoryCache()
		}
		marketData = services.NewCachingMarketData(marketData, cache, cfg.BarCacheTTL())
	}

	var store app.Store
	if repo != nil {
		store = repo
	}
	application := app.New(cfg, store, marketData, accounts)
	defer application.Shutdown()

	// Alert sweep needs both a store and a price source.
	var scheduler *alerts.Scheduler
	if cfg.Alerts.Enabled && repo != nil && marketData != nil {
		scheduler = alerts.NewScheduler(repo, marketData, cfg.AlertInterval())
		scheduler.Start(ctx)
		defer scheduler.Stop()
	} else if cfg.Alerts.Enabled {
		observability.Warn("alert scheduler disabled, requires database and market data")
	}

	handler := api.NewHandler(application, cfg)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Duration(cfg.Backtest.TimeoutSeconds+10) * time.Second,
	}

	go func() {
		observability.Info("server listening", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			observability.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Error("forced shutdown", "error", err)
	}
	observability.Info("server stopped")
}
