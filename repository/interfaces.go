package repository

import (
	"context"

	"signal-engine/models"

	"github.com/google/uuid"
)

// RepositoryInterface defines all repository operations
type RepositoryInterface interface {
	// Health and lifecycle
	Close()
	Health(ctx context.Context) error

	// Strategies
	GetStrategies(ctx context.Context, status models.StrategyStatus, limit int) ([]models.Strategy, error)
	GetStrategy(ctx context.Context, id uuid.UUID) (*models.Strategy, error)
	GetStrategiesBySymbol(ctx context.Context, symbol string) ([]models.Strategy, error)
	CreateStrategy(ctx context.Context, strategy *models.Strategy) error
	UpdateStrategy(ctx context.Context, strategy *models.Strategy) error
	UpdateStrategyStatus(ctx context.Context, id uuid.UUID, status models.StrategyStatus) error
	DeleteStrategy(ctx context.Context, id uuid.UUID) error

	// Backtest results
	CreateBacktestResult(ctx context.Context, result *models.BacktestResult) error
	GetBacktestResult(ctx context.Context, id uuid.UUID) (*models.BacktestResult, error)
	GetBacktestResults(ctx context.Context, strategyID uuid.UUID, limit int) ([]models.BacktestResult, error)
	GetLatestBacktestResult(ctx context.Context, strategyID uuid.UUID) (*models.BacktestResult, error)

	// Price alerts
	CreateAlert(ctx context.Context, alert *models.PriceAlert) error
	GetAlert(ctx context.Context, id uuid.UUID) (*models.PriceAlert, error)
	GetActiveAlerts(ctx context.Context) ([]models.PriceAlert, error)
	GetAlertsBySymbol(ctx context.Context, symbol string) ([]models.PriceAlert, error)
	MarkAlertTriggered(ctx context.Context, id uuid.UUID) error
	CancelAlert(ctx context.Context, id uuid.UUID) error
}

// Compile-time interface verification
var _ RepositoryInterface = (*Repository)(nil)
