package repository

import (
	"context"
	"fmt"
	"time"

	"signal-engine/models"
	"signal-engine/observability"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateAlert persists a new price alert
func (r *Repository) CreateAlert(ctx context.Context, alert *models.PriceAlert) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("insert", "price_alerts")

	_, err := r.db.Exec(ctx, `
		INSERT INTO price_alerts (id, symbol, condition, threshold, status, triggered_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, alert.ID, alert.Symbol, alert.Condition, alert.Threshold,
		alert.Status, alert.TriggeredAt, alert.CreatedAt)

	if err != nil {
		metrics.RecordDBError("insert", "price_alerts")
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}

// scanAlert scans a price alert row
func scanAlert(row pgx.Row) (*models.PriceAlert, error) {
	var alert models.PriceAlert
	err := row.Scan(&alert.ID, &alert.Symbol, &alert.Condition, &alert.Threshold,
		&alert.Status, &alert.TriggeredAt, &alert.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// GetAlert returns a single alert by ID, or nil when absent
func (r *Repository) GetAlert(ctx context.Context, id uuid.UUID) (*models.PriceAlert, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	row := r.db.QueryRow(ctx, `
		SELECT id, symbol, condition, threshold, status, triggered_at, created_at
		FROM price_alerts WHERE id = $1
	`, id)

	alert, err := scanAlert(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query alert: %w", err)
	}

	return alert, nil
}

// GetActiveAlerts returns every alert still waiting to trigger
func (r *Repository) GetActiveAlerts(ctx context.Context) ([]models.PriceAlert, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "price_alerts")

	rows, err := r.db.Query(ctx, `
		SELECT id, symbol, condition, threshold, status, triggered_at, created_at
		FROM price_alerts
		WHERE status = $1
		ORDER BY created_at
	`, models.AlertStatusActive)
	if err != nil {
		metrics.RecordDBError("select", "price_alerts")
		return nil, fmt.Errorf("failed to query active alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.PriceAlert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			metrics.RecordDBError("select", "price_alerts")
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, *alert)
	}

	return alerts, nil
}

// GetAlertsBySymbol returns all alerts for a symbol regardless of status
func (r *Repository) GetAlertsBySymbol(ctx context.Context, symbol string) ([]models.PriceAlert, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, symbol, condition, threshold, status, triggered_at, created_at
		FROM price_alerts
		WHERE symbol = $1
		ORDER BY created_at DESC
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts for %s: %w", symbol, err)
	}
	defer rows.Close()

	var alerts []models.PriceAlert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, *alert)
	}

	return alerts, nil
}

// MarkAlertTriggered transitions an alert to triggered exactly once
func (r *Repository) MarkAlertTriggered(ctx context.Context, id uuid.UUID) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `
		UPDATE price_alerts
		SET status = $2, triggered_at = $3
		WHERE id = $1 AND status = $4
	`, id, models.AlertStatusTriggered, time.Now(), models.AlertStatusActive)

	if err != nil {
		return fmt.Errorf("failed to mark alert triggered: %w", err)
	}

	return nil
}

// CancelAlert transitions an alert to cancelled
func (r *Repository) CancelAlert(ctx context.Context, id uuid.UUID) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `
		UPDATE price_alerts
		SET status = $2
		WHERE id = $1
	`, id, models.AlertStatusCancelled)

	if err != nil {
		return fmt.Errorf("failed to cancel alert: %w", err)
	}

	return nil
}
