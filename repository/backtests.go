package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"signal-engine/models"
	"signal-engine/observability"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateBacktestResult persists a completed backtest. Results are
// append-only; there is no update path.
func (r *Repository) CreateBacktestResult(ctx context.Context, result *models.BacktestResult) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("insert", "backtest_results")

	tradesJSON, err := json.Marshal(result.Trades)
	if err != nil {
		metrics.RecordDBError("insert", "backtest_results")
		return fmt.Errorf("failed to marshal trades: %w", err)
	}
	equityJSON, err := json.Marshal(result.Equity)
	if err != nil {
		metrics.RecordDBError("insert", "backtest_results")
		return fmt.Errorf("failed to marshal equity curve: %w", err)
	}
	performanceJSON, err := json.Marshal(result.Performance)
	if err != nil {
		metrics.RecordDBError("insert", "backtest_results")
		return fmt.Errorf("failed to marshal performance: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO backtest_results (id, strategy_id, symbol, from_date, to_date,
			initial_capital, final_capital, trades, equity, performance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, result.ID, result.StrategyID, result.Symbol, result.From, result.To,
		result.InitialCapital, result.FinalCapital, tradesJSON, equityJSON,
		performanceJSON, result.CreatedAt)

	if err != nil {
		metrics.RecordDBError("insert", "backtest_results")
		return fmt.Errorf("failed to create backtest result: %w", err)
	}

	return nil
}

// scanBacktestResult scans a backtest result row
func scanBacktestResult(row pgx.Row) (*models.BacktestResult, error) {
	var result models.BacktestResult
	var tradesJSON, equityJSON, performanceJSON []byte

	err := row.Scan(&result.ID, &result.StrategyID, &result.Symbol,
		&result.From, &result.To, &result.InitialCapital, &result.FinalCapital,
		&tradesJSON, &equityJSON, &performanceJSON, &result.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(tradesJSON, &result.Trades); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trades: %w", err)
	}
	if err := json.Unmarshal(equityJSON, &result.Equity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal equity curve: %w", err)
	}
	if err := json.Unmarshal(performanceJSON, &result.Performance); err != nil {
		return nil, fmt.Errorf("failed to unmarshal performance: %w", err)
	}

	return &result, nil
}

// GetBacktestResult returns a single backtest result by ID, or nil when absent
func (r *Repository) GetBacktestResult(ctx context.Context, id uuid.UUID) (*models.BacktestResult, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	row := r.db.QueryRow(ctx, `
		SELECT id, strategy_id, symbol, from_date, to_date, initial_capital,
			final_capital, trades, equity, performance, created_at
		FROM backtest_results WHERE id = $1
	`, id)

	result, err := scanBacktestResult(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest result: %w", err)
	}

	return result, nil
}

// GetBacktestResults returns a strategy's backtest history, newest first
func (r *Repository) GetBacktestResults(ctx context.Context, strategyID uuid.UUID, limit int) ([]models.BacktestResult, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "backtest_results")

	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, strategy_id, symbol, from_date, to_date, initial_capital,
			final_capital, trades, equity, performance, created_at
		FROM backtest_results
		WHERE strategy_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, strategyID, limit)
	if err != nil {
		metrics.RecordDBError("select", "backtest_results")
		return nil, fmt.Errorf("failed to query backtest results: %w", err)
	}
	defer rows.Close()

	var results []models.BacktestResult
	for rows.Next() {
		result, err := scanBacktestResult(rows)
		if err != nil {
			metrics.RecordDBError("select", "backtest_results")
			return nil, fmt.Errorf("failed to scan backtest result: %w", err)
		}
		results = append(results, *result)
	}

	return results, nil
}

// GetLatestBacktestResult returns the most recent backtest for a strategy,
// or nil when none has been run yet
func (r *Repository) GetLatestBacktestResult(ctx context.Context, strategyID uuid.UUID) (*models.BacktestResult, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	row := r.db.QueryRow(ctx, `
		SELECT id, strategy_id, symbol, from_date, to_date, initial_capital,
			final_capital, trades, equity, performance, created_at
		FROM backtest_results
		WHERE strategy_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, strategyID)

	result, err := scanBacktestResult(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest backtest result: %w", err)
	}

	return result, nil
}
