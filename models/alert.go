package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AlertCondition selects which side of the threshold triggers an alert.
type AlertCondition string

const (
	AlertConditionAbove AlertCondition = "above"
	AlertConditionBelow AlertCondition = "below"
)

type AlertStatus string

const (
	AlertStatusActive    AlertStatus = "active"
	AlertStatusTriggered AlertStatus = "triggered"
	AlertStatusCancelled AlertStatus = "cancelled"
)

// PriceAlert fires once when the latest trade price crosses the threshold.
type PriceAlert struct {
	ID          uuid.UUID       `json:"id"`
	Symbol      string          `json:"symbol"`
	Condition   AlertCondition  `json:"condition"`
	Threshold   decimal.Decimal `json:"threshold"`
	Status      AlertStatus     `json:"status"`
	TriggeredAt *time.Time      `json:"triggered_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewPriceAlert creates an active alert.
func NewPriceAlert(symbol string, condition AlertCondition, threshold decimal.Decimal) *PriceAlert {
	return &PriceAlert{
		ID:        uuid.New(),
		Symbol:    symbol,
		Condition: condition,
		Threshold: threshold,
		Status:    AlertStatusActive,
		CreatedAt: time.Now(),
	}
}

// ShouldTrigger reports whether the given price satisfies the alert condition.
func (a *PriceAlert) ShouldTrigger(price decimal.Decimal) bool {
	if a.Status != AlertStatusActive {
		return false
	}
	switch a.Condition {
	case AlertConditionAbove:
		return price.GreaterThanOrEqual(a.Threshold)
	case AlertConditionBelow:
		return price.LessThanOrEqual(a.Threshold)
	}
	return false
}

// MarkTriggered transitions the alert to triggered.
func (a *PriceAlert) MarkTriggered() {
	now := time.Now()
	a.Status = AlertStatusTriggered
	a.TriggeredAt = &now
}
