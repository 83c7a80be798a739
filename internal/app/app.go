// Package app wires the scoring, backtesting, persistence, and alert
// operations behind a single application service consumed by the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"signal-engine/backtest"
	"signal-engine/config"
	"signal-engine/features"
	"signal-engine/models"
	"signal-engine/observability"
	"signal-engine/services"
	"signal-engine/signals"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrBacktestQueueFull is returned when the concurrency limit is hit.
	ErrBacktestQueueFull = errors.New("backtest queue full, too many concurrent runs - try again later")

	// ErrStrategyNotFound is returned for lookups of unknown strategy IDs.
	ErrStrategyNotFound = errors.New("strategy not found")

	// ErrAlertNotFound is returned for lookups of unknown alert IDs.
	ErrAlertNotFound = errors.New("alert not found")

	// ErrMarketDataUnavailable is returned when no market data vendor is
	// configured.
	ErrMarketDataUnavailable = errors.New("market data service not configured")

	// ErrDatabaseUnavailable is returned by persistence-backed operations
	// when the server runs without a database.
	ErrDatabaseUnavailable = errors.New("database not configured")
)

// Store defines the repository operations needed by App
type Store interface {
	Close()
	Health(ctx context.Context) error

	GetStrategies(ctx context.Context, status models.StrategyStatus, limit int) ([]models.Strategy, error)
	GetStrategy(ctx context.Context, id uuid.UUID) (*models.Strategy, error)
	GetStrategiesBySymbol(ctx context.Context, symbol string) ([]models.Strategy, error)
	CreateStrategy(ctx context.Context, strategy *models.Strategy) error
	UpdateStrategy(ctx context.Context, strategy *models.Strategy) error
	UpdateStrategyStatus(ctx context.Context, id uuid.UUID, status models.StrategyStatus) error
	DeleteStrategy(ctx context.Context, id uuid.UUID) error

	CreateBacktestResult(ctx context.Context, result *models.BacktestResult) error
	GetBacktestResult(ctx context.Context, id uuid.UUID) (*models.BacktestResult, error)
	GetBacktestResults(ctx context.Context, strategyID uuid.UUID, limit int) ([]models.BacktestResult, error)
	GetLatestBacktestResult(ctx context.Context, strategyID uuid.UUID) (*models.BacktestResult, error)

	CreateAlert(ctx context.Context, alert *models.PriceAlert) error
	GetAlert(ctx context.Context, id uuid.UUID) (*models.PriceAlert, error)
	GetActiveAlerts(ctx context.Context) ([]models.PriceAlert, error)
	GetAlertsBySymbol(ctx context.Context, symbol string) ([]models.PriceAlert, error)
	MarkAlertTriggered(ctx context.Context, id uuid.UUID) error
	CancelAlert(ctx context.Context, id uuid.UUID) error
}

// App holds application dependencies behind interfaces for testability.
type App struct {
	cfg        *config.Config
	repo       Store
	marketData services.MarketDataService
	accounts   services.AccountService

	scorer      *signals.Scorer
	sizer       *signals.PositionSizer
	engine      *backtest.Engine
	validate    *validator.Validate
	healthCache *HealthCache

	backtestSem chan struct{}
}

// New creates the application service. repo, marketData, and accounts may
// be nil when the corresponding backend is not configured; operations that
// need them fail with a descriptive error instead.
func New(cfg *config.Config, repo Store, marketData services.MarketDataService, accounts services.AccountService) *App {
	sizing := signals.SizingConfig{
		MaxPositionPercent:   cfg.PositionSizing.MaxPositionPercent,
		MinShares:            cfg.PositionSizing.MinShares,
		MaxShares:            cfg.PositionSizing.MaxShares,
		UseConfidenceScaling: cfg.PositionSizing.UseConfidenceScaling,
	}

	return &App{
		cfg:         cfg,
		repo:        repo,
		marketData:  marketData,
		accounts:    accounts,
		scorer:      signals.NewScorer(),
		sizer:       signals.NewPositionSizer(sizing),
		engine:      backtest.NewEngine(),
		validate:    validator.New(),
		healthCache: NewHealthCache(time.Duration(cfg.Engine.HealthCacheTTLSeconds) * time.Second),
		backtestSem: make(chan struct{}, cfg.Backtest.ConcurrencyLimit),
	}
}

// checkStore guards every persistence-backed operation in degraded
// (no-database) mode, mirroring the repository's own nil-pool check.
func (a *App) checkStore() error {
	if a.repo == nil {
		return ErrDatabaseUnavailable
	}
	return nil
}

// Shutdown releases held resources.
func (a *App) Shutdown() {
	if a.repo != nil {
		a.repo.Close()
	}
}

// HealthStatus reports the availability of each backend.
type HealthStatus struct {
	Status     string `json:"status"`
	Database   bool   `json:"database"`
	MarketData bool   `json:"market_data"`
}

// Health reports backend availability. The database probe is cached for a
// short TTL so frequent polling does not hammer the pool.
func (a *App) Health(ctx context.Context) HealthStatus {
	dbUp := false
	if a.repo != nil {
		if cached, valid := a.healthCache.Get(); valid {
			dbUp = cached
		} else {
			dbUp = a.repo.Health(ctx) == nil
			a.healthCache.Set(dbUp)
		}
	}

	status := "ok"
	if a.repo != nil && !dbUp {
		status = "degraded"
	}

	return HealthStatus{
		Status:     status,
		Database:   dbUp,
		MarketData: a.marketData != nil,
	}
}

// =============================================================================
// Prediction
// =============================================================================

// Prediction bundles a signal decision with an advisory share quantity.
type Prediction struct {
	models.SignalDecision
	SuggestedQuantity int64 `json:"suggested_quantity"`
}

// Predict fetches the symbol's daily history, scores the latest bar, and
// attaches a suggested quantity when account data is available.
func (a *App) Predict(ctx context.Context, symbol string) (*Prediction, error) {
	if a.marketData == nil {
		return nil, ErrMarketDataUnavailable
	}

	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	metrics := observability.GetMetrics()
	metrics.RecordPredictionRequest(symbol)
	timer := metrics.NewTimer()

	bars, err := a.marketData.GetDailyBars(ctx, symbol, a.cfg.Engine.LookbackDays)
	if err != nil {
		metrics.RecordPredictionError(symbol, "market_data")
		return nil, fmt.Errorf("fetching bars for %s: %w", symbol, err)
	}

	table, err := features.Extract(bars, models.DefaultStrategyParameters())
	if err != nil {
		metrics.RecordPredictionError(symbol, "insufficient_data")
		return nil, err
	}

	// Live price is best-effort; the last close is the fallback.
	var currentPrice float64
	if quote, err := a.marketData.GetLatestTrade(ctx, symbol); err == nil && quote != nil {
		currentPrice = quote.Last.InexactFloat64()
	} else if err != nil {
		observability.WithSymbol(symbol).Warn("latest trade unavailable, using last close", "error", err)
	}

	decision, err := a.scorer.Score(symbol, table, currentPrice)
	if err != nil {
		metrics.RecordPredictionError(symbol, "scoring")
		return nil, err
	}

	prediction := &Prediction{SignalDecision: *decision}
	if a.accounts != nil && decision.Direction != models.DirectionHold {
		if account, err := a.accounts.GetAccount(ctx); err == nil {
			qty := a.sizer.SuggestQuantity(decision, account, decimal.Zero)
			prediction.SuggestedQuantity = qty.IntPart()
		} else {
			observability.WithSymbol(symbol).Warn("account unavailable, skipping sizing", "error", err)
		}
	}

	metrics.RecordSignal(string(decision.Direction), decision.Score, decision.Confidence)
	timer.ObservePrediction(symbol, "success")

	observability.WithSymbol(symbol).Info("prediction generated",
		"direction", decision.Direction,
		"score", decision.Score,
		"confidence", decision.Confidence,
		"regime", decision.MarketRegime)

	return prediction, nil
}

// =============================================================================
// Strategies
// =============================================================================

// CreateStrategyRequest is the payload for creating a strategy. Parameters
// are optional; defaults apply when omitted.
type CreateStrategyRequest struct {
	Name       string                     `json:"name" validate:"required,min=1,max=120"`
	Symbol     string                     `json:"symbol" validate:"required,min=1,max=10"`
	Type       models.StrategyType        `json:"type" validate:"required,oneof=momentum mean_reversion breakout multi_factor"`
	Parameters *models.StrategyParameters `json:"parameters,omitempty"`
}

// CreateStrategy validates the request and persists a new strategy.
func (a *App) CreateStrategy(ctx context.Context, req CreateStrategyRequest) (*models.Strategy, error) {
	if err := a.checkStore(); err != nil {
		return nil, err
	}

	req.Symbol = normalizeSymbol(req.Symbol)
	if err := a.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid strategy request: %w", err)
	}

	strategy := models.NewStrategy(req.Name, req.Symbol, req.Type)
	if req.Parameters != nil {
		if err := a.validate.Struct(req.Parameters); err != nil {
			return nil, fmt.Errorf("invalid strategy parameters: %w", err)
		}
		strategy.Parameters = *req.Parameters
	}

	if err := a.repo.CreateStrategy(ctx, strategy); err != nil {
		return nil, fmt.Errorf("persisting strategy: %w", err)
	}

	observability.WithStrategy(strategy.ID.String(), string(strategy.Type)).Info("strategy created",
		"symbol", strategy.Symbol, "name", strategy.Name)

	return strategy, nil
}

// GetStrategies lists strategies, optionally filtered by status.
func (a *App) GetStrategies(ctx context.Context, status models.StrategyStatus, limit int) ([]models.Strategy, error) {
	if err := a.checkStore(); err != nil {
		return nil, err
	}
	return a.repo.GetStrategies(ctx, status, limit)
}

// GetStrategy returns one strategy or ErrStrategyNotFound.
func (a *App) GetStrategy(ctx context.Context, id uuid.UUID) (*models.Strategy, error) {
	if err := a.checkStore(); err != nil {
		return nil, err
	}
	strategy, err := a.repo.GetStrategy(ctx, id)
	if err != nil {
		return nil, err
	}
	if strategy == nil {
		return nil, ErrStrategyNotFound
	}
	return strategy, nil
}

// UpdateStrategyParameters replaces a strategy's parameter set.
func (a *App) UpdateStrategyParameters(ctx context.Context, id uuid.UUID, params models.StrategyParameters) (*models.Strategy, error) {
	if err := a.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("invalid strategy parameters: %w", err)
	}

	strategy, err := a.GetStrategy(ctx, id)
	if err != nil {
		return nil, err
	}

	strategy.Parameters = params
	strategy.LastUpdated = time.Now()
	if err := a.repo.UpdateStrategy(ctx, strategy); err != nil {
		return nil, fmt.Errorf("updating strategy: %w", err)
	}
	return strategy, nil
}

// UpdateStrategyStatus transitions a strategy between active, paused, and
// archived.
func (a *App) UpdateStrategyStatus(ctx context.Context, id uuid.UUID, status models.StrategyStatus) error {
	switch status {
	case models.StrategyStatusActive, models.StrategyStatusPaused, models.StrategyStatusArchived:
	default:
		return fmt.Errorf("invalid strategy status %q", status)
	}

	if _, err := a.GetStrategy(ctx, id); err != nil {
		return err
	}
	return a.repo.UpdateStrategyStatus(ctx, id, status)
}

// DeleteStrategy removes a strategy and, via cascade, its backtest results.
func (a *App) DeleteStrategy(ctx context.Context, id uuid.UUID) error {
	if _, err := a.GetStrategy(ctx, id); err != nil {
		return err
	}
	return a.repo.DeleteStrategy(ctx, id)
}

// =============================================================================
// Backtests
// =============================================================================

// RunBacktest replays a strategy over its configured lookback window,
// persists the result, and refreshes the strategy's performance snapshot.
// Concurrent runs are bounded by the configured limit.
func (a *App) RunBacktest(ctx context.Context, strategyID uuid.UUID) (*models.BacktestResult, error) {
	if a.marketData == nil {
		return nil, ErrMarketDataUnavailable
	}
	if err := a.checkStore(); err != nil {
		return nil, err
	}

	select {
	case a.backtestSem <- struct{}{}:
		defer func() { <-a.backtestSem }()
	default:
		return nil, ErrBacktestQueueFull
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(a.cfg.Backtest.TimeoutSeconds)*time.Second)
	defer cancel()

	strategy, err := a.GetStrategy(ctx, strategyID)
	if err != nil {
		return nil, err
	}

	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	strategyType := string(strategy.Type)
	log := observability.WithStrategy(strategy.ID.String(), strategyType)

	bars, err := a.marketData.GetDailyBars(ctx, strategy.Symbol, a.cfg.Backtest.LookbackDays)
	if err != nil {
		metrics.RecordBacktestError(strategyType, "market_data")
		return nil, fmt.Errorf("fetching bars for %s: %w", strategy.Symbol, err)
	}

	result, err := a.engine.Run(strategy, bars, a.cfg.Backtest.InitialCapital)
	if err != nil {
		metrics.RecordBacktestError(strategyType, "engine")
		return nil, err
	}

	if err := a.repo.CreateBacktestResult(ctx, result); err != nil {
		metrics.RecordBacktestError(strategyType, "persistence")
		return nil, fmt.Errorf("persisting backtest result: %w", err)
	}

	strategy.RecordBacktest(result.Performance)
	if err := a.repo.UpdateStrategy(ctx, strategy); err != nil {
		log.Warn("failed to refresh strategy performance", "error", err)
	}

	metrics.RecordBacktestRun(strategyType, result.Performance.TotalTrades, result.Performance.TotalReturnPercent)
	timer.ObserveBacktest(strategyType, "success")

	log.Info("backtest complete",
		"symbol", strategy.Symbol,
		"trades", result.Performance.TotalTrades,
		"return_percent", result.Performance.TotalReturnPercent,
		"max_drawdown", result.Performance.MaxDrawdown)

	return result, nil
}

// GetBacktestResult returns one result by ID, or nil when absent.
func (a *App) GetBacktestResult(ctx context.Context, id uuid.UUID) (*models.BacktestResult, error) {
	if err := a.checkStore(); err != nil {
		return nil, err
	}
	return a.repo.GetBacktestResult(ctx, id)
}

// GetBacktestHistory lists a strategy's past results, newest first.
func (a *App) GetBacktestHistory(ctx context.Context, strategyID uuid.UUID, limit int) ([]models.BacktestResult, error) {
	if _, err := a.GetStrategy(ctx, strategyID); err != nil {
		return nil, err
	}
	return a.repo.GetBacktestResults(ctx, strategyID, limit)
}

// =============================================================================
// Price alerts
// =============================================================================

// CreateAlertRequest is the payload for registering a price alert.
type CreateAlertRequest struct {
	Symbol    string          `json:"symbol" validate:"required,min=1,max=10"`
	Condition string          `json:"condition" validate:"required,oneof=above below"`
	Threshold decimal.Decimal `json:"threshold"`
}

// CreateAlert validates and persists a new price alert.
func (a *App) CreateAlert(ctx context.Context, req CreateAlertRequest) (*models.PriceAlert, error) {
	if err := a.checkStore(); err != nil {
		return nil, err
	}

	req.Symbol = normalizeSymbol(req.Symbol)
	if err := a.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid alert request: %w", err)
	}
	if !req.Threshold.IsPositive() {
		return nil, fmt.Errorf("threshold must be positive, got %s", req.Threshold)
	}

	alert := models.NewPriceAlert(req.Symbol, models.AlertCondition(req.Condition), req.Threshold)
	if err := a.repo.CreateAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("persisting alert: %w", err)
	}

	observability.WithSymbol(alert.Symbol).Info("price alert created",
		"alert_id", alert.ID, "condition", alert.Condition, "threshold", alert.Threshold)

	return alert, nil
}

// GetAlert returns one alert or ErrAlertNotFound.
func (a *App) GetAlert(ctx context.Context, id uuid.UUID) (*models.PriceAlert, error) {
	if err := a.checkStore(); err != nil {
		return nil, err
	}
	alert, err := a.repo.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, ErrAlertNotFound
	}
	return alert, nil
}

// GetAlerts lists alerts, filtered by symbol when one is given.
func (a *App) GetAlerts(ctx context.Context, symbol string) ([]models.PriceAlert, error) {
	if err := a.checkStore(); err != nil {
		return nil, err
	}
	if symbol != "" {
		return a.repo.GetAlertsBySymbol(ctx, normalizeSymbol(symbol))
	}
	return a.repo.GetActiveAlerts(ctx)
}

// CancelAlert cancels an active alert.
func (a *App) CancelAlert(ctx context.Context, id uuid.UUID) error {
	if _, err := a.GetAlert(ctx, id); err != nil {
		return err
	}
	return a.repo.CancelAlert(ctx, id)
}

// BacktestSemCapacity returns the capacity of the backtest semaphore (for testing)
func (a *App) BacktestSemCapacity() int {
	return cap(a.backtestSem)
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
