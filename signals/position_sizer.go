package signals

import (
	"signal-engine/models"

	"github.com/shopspring/decimal"
)

// SizingConfig holds configuration for converting a signal into a
// suggested share quantity.
type SizingConfig struct {
	// MaxPositionPercent is the maximum fraction of portfolio value for
	// a single position (0-1).
	MaxPositionPercent float64

	// MinShares is the minimum quantity to suggest for a directional call.
	MinShares int64

	// MaxShares caps a single position (0 = unlimited).
	MaxShares int64

	// UseConfidenceScaling scales the position by the signal confidence.
	UseConfidenceScaling bool
}

// DefaultSizingConfig returns sensible defaults.
func DefaultSizingConfig() SizingConfig {
	return SizingConfig{
		MaxPositionPercent:   0.10,
		MinShares:            1,
		MaxShares:            0,
		UseConfidenceScaling: true,
	}
}

// PositionSizer suggests a share quantity for a live signal. It is advisory
// only: order placement stays with the caller.
type PositionSizer struct {
	config SizingConfig
}

func NewPositionSizer(config SizingConfig) *PositionSizer {
	return &PositionSizer{config: config}
}

// SuggestQuantity converts a decision plus account state into shares.
// Hold decisions size to zero. Sell decisions size to the held quantity
// when one is supplied, else the minimum.
func (ps *PositionSizer) SuggestQuantity(decision *models.SignalDecision, account *models.Account, heldQuantity decimal.Decimal) decimal.Decimal {
	if decision.Direction == models.DirectionHold {
		return decimal.Zero
	}

	price := decimal.NewFromFloat(decision.CurrentPrice)
	if price.IsZero() || price.IsNegative() {
		return decimal.NewFromInt(ps.config.MinShares)
	}

	if decision.Direction == models.DirectionSell {
		if heldQuantity.GreaterThan(decimal.Zero) {
			return heldQuantity
		}
		return decimal.NewFromInt(ps.config.MinShares)
	}

	portfolioValue := account.PortfolioValue
	if portfolioValue.IsZero() || portfolioValue.IsNegative() {
		portfolioValue = account.Equity
	}
	if portfolioValue.IsZero() || portfolioValue.IsNegative() {
		return decimal.NewFromInt(ps.config.MinShares)
	}

	maxValue := portfolioValue.Mul(decimal.NewFromFloat(ps.config.MaxPositionPercent))

	if ps.config.UseConfidenceScaling {
		// Confidence 0.1-0.9 maps to 55%-95% of the maximum position.
		factor := 0.5 + decision.Confidence/2
		maxValue = maxValue.Mul(decimal.NewFromFloat(factor))
	}

	if account.BuyingPower.LessThan(maxValue) {
		maxValue = account.BuyingPower
	}

	shares := maxValue.Div(price).Floor()

	minShares := decimal.NewFromInt(ps.config.MinShares)
	if shares.LessThan(minShares) {
		shares = minShares
	}
	if ps.config.MaxShares > 0 {
		maxShares := decimal.NewFromInt(ps.config.MaxShares)
		if shares.GreaterThan(maxShares) {
			shares = maxShares
		}
	}

	return shares
}
