package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"signal-engine/models"
	"signal-engine/observability"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetStrategies returns strategies filtered by status, newest first
func (r *Repository) GetStrategies(ctx context.Context, status models.StrategyStatus, limit int) ([]models.Strategy, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "strategies")

	if limit <= 0 {
		limit = 50
	}

	var rows pgx.Rows
	var err error

	if status == "" {
		rows, err = r.db.Query(ctx, `
			SELECT id, name, symbol, type, parameters, performance, status, created_at, last_updated
			FROM strategies
			ORDER BY created_at DESC
			LIMIT $1
		`, limit)
	} else {
		rows, err = r.db.Query(ctx, `
			SELECT id, name, symbol, type, parameters, performance, status, created_at, last_updated
			FROM strategies
			WHERE status = $1
			ORDER BY created_at DESC
			LIMIT $2
		`, status, limit)
	}

	if err != nil {
		metrics.RecordDBError("select", "strategies")
		return nil, fmt.Errorf("failed to query strategies: %w", err)
	}
	defer rows.Close()

	var strategies []models.Strategy
	for rows.Next() {
		strategy, err := scanStrategy(rows)
		if err != nil {
			metrics.RecordDBError("select", "strategies")
			return nil, fmt.Errorf("failed to scan strategy: %w", err)
		}
		strategies = append(strategies, *strategy)
	}

	return strategies, nil
}

// scanStrategy scans a strategy row into a Strategy struct
func scanStrategy(row pgx.Row) (*models.Strategy, error) {
	var strategy models.Strategy
	var parametersJSON []byte
	var performanceJSON []byte

	err := row.Scan(&strategy.ID, &strategy.Name, &strategy.Symbol, &strategy.Type,
		&parametersJSON, &performanceJSON, &strategy.Status,
		&strategy.CreatedAt, &strategy.LastUpdated)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(parametersJSON, &strategy.Parameters); err != nil {
		return nil, fmt.Errorf("failed to unmarshal parameters: %w", err)
	}

	if len(performanceJSON) > 0 {
		var perf models.PerformanceMetrics
		if err := json.Unmarshal(performanceJSON, &perf); err == nil {
			strategy.Performance = &perf
		}
	}

	return &strategy, nil
}

// GetStrategy returns a single strategy by ID, or nil when absent
func (r *Repository) GetStrategy(ctx context.Context, id uuid.UUID) (*models.Strategy, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	row := r.db.QueryRow(ctx, `
		SELECT id, name, symbol, type, parameters, performance, status, created_at, last_updated
		FROM strategies WHERE id = $1
	`, id)

	strategy, err := scanStrategy(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query strategy: %w", err)
	}

	return strategy, nil
}

// GetStrategiesBySymbol returns all strategies configured for a symbol
func (r *Repository) GetStrategiesBySymbol(ctx context.Context, symbol string) ([]models.Strategy, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, name, symbol, type, parameters, performance, status, created_at, last_updated
		FROM strategies
		WHERE symbol = $1
		ORDER BY created_at DESC
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategies for %s: %w", symbol, err)
	}
	defer rows.Close()

	var strategies []models.Strategy
	for rows.Next() {
		strategy, err := scanStrategy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan strategy: %w", err)
		}
		strategies = append(strategies, *strategy)
	}

	return strategies, nil
}

// CreateStrategy persists a new strategy
func (r *Repository) CreateStrategy(ctx context.Context, strategy *models.Strategy) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("insert", "strategies")

	parametersJSON, err := json.Marshal(strategy.Parameters)
	if err != nil {
		metrics.RecordDBError("insert", "strategies")
		return fmt.Errorf("failed to marshal parameters: %w", err)
	}

	var performanceJSON []byte
	if strategy.Performance != nil {
		performanceJSON, err = json.Marshal(strategy.Performance)
		if err != nil {
			metrics.RecordDBError("insert", "strategies")
			return fmt.Errorf("failed to marshal performance: %w", err)
		}
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO strategies (id, name, symbol, type, parameters, performance, status, created_at, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, strategy.ID, strategy.Name, strategy.Symbol, strategy.Type,
		parametersJSON, performanceJSON, strategy.Status,
		strategy.CreatedAt, strategy.LastUpdated)

	if err != nil {
		metrics.RecordDBError("insert", "strategies")
		return fmt.Errorf("failed to create strategy: %w", err)
	}

	return nil
}

// UpdateStrategy replaces the mutable fields of an existing strategy
func (r *Repository) UpdateStrategy(ctx context.Context, strategy *models.Strategy) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("update", "strategies")

	parametersJSON, err := json.Marshal(strategy.Parameters)
	if err != nil {
		metrics.RecordDBError("update", "strategies")
		return fmt.Errorf("failed to marshal parameters: %w", err)
	}

	var performanceJSON []byte
	if strategy.Performance != nil {
		performanceJSON, err = json.Marshal(strategy.Performance)
		if err != nil {
			metrics.RecordDBError("update", "strategies")
			return fmt.Errorf("failed to marshal performance: %w", err)
		}
	}

	_, err = r.db.Exec(ctx, `
		UPDATE strategies
		SET name = $2, symbol = $3, type = $4, parameters = $5, performance = $6,
			status = $7, last_updated = $8
		WHERE id = $1
	`, strategy.ID, strategy.Name, strategy.Symbol, strategy.Type,
		parametersJSON, performanceJSON, strategy.Status, time.Now())

	if err != nil {
		metrics.RecordDBError("update", "strategies")
		return fmt.Errorf("failed to update strategy: %w", err)
	}

	return nil
}

// UpdateStrategyStatus transitions a strategy between active/paused/archived
func (r *Repository) UpdateStrategyStatus(ctx context.Context, id uuid.UUID, status models.StrategyStatus) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `
		UPDATE strategies
		SET status = $2, last_updated = $3
		WHERE id = $1
	`, id, status, time.Now())

	if err != nil {
		return fmt.Errorf("failed to update strategy status: %w", err)
	}

	return nil
}

// DeleteStrategy removes a strategy and, via cascade, its backtest results
func (r *Repository) DeleteStrategy(ctx context.Context, id uuid.UUID) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("delete", "strategies")

	_, err := r.db.Exec(ctx, `DELETE FROM strategies WHERE id = $1`, id)
	if err != nil {
		metrics.RecordDBError("delete", "strategies")
		return fmt.Errorf("failed to delete strategy: %w", err)
	}

	return nil
}
