package models

import "time"

// Direction is a discrete trading decision.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
	DirectionHold Direction = "hold"
)

// SignalDecision is the output of the live signal scorer.
//
// Invariant: PredictedChangePercent == (PredictedPrice-CurrentPrice)/CurrentPrice*100
// within 0.1 — the scorer enforces this before returning.
type SignalDecision struct {
	Symbol                 string    `json:"symbol"`
	Direction              Direction `json:"direction"`
	Confidence             float64   `json:"confidence"`
	Score                  float64   `json:"score"`
	SignalStrength         float64   `json:"signal_strength"`
	CurrentPrice           float64   `json:"current_price"`
	PredictedPrice         float64   `json:"predicted_price"`
	PredictedChangePercent float64   `json:"predicted_change_percent"`
	MarketRegime           string    `json:"market_regime"`
	GeneratedAt            time.Time `json:"generated_at"`
}
