// Package api exposes the engine's operations over a JSON HTTP API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"signal-engine/config"
	"signal-engine/internal/app"
	"signal-engine/models"
	"signal-engine/services"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Handler handles HTTP API requests
type Handler struct {
	app *app.App
	cfg *config.Config
}

// NewHandler creates a new Handler
func NewHandler(application *app.App, cfg *config.Config) *Handler {
	return &Handler{app: application, cfg: cfg}
}

// HandleHealth returns the health status of the application
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := h.app.Health(r.Context())

	status := map[string]interface{}{
		"status": health.Status,
		"services": map[string]string{
			"database":    boolStatus(health.Database, "connected", "disconnected"),
			"market_data": boolStatus(health.MarketData, "configured", "not_configured"),
		},
	}

	// Circuit breaker state folds into overall health.
	cbStatus := services.GetGlobalRegistry().Status()
	status["circuit_breakers"] = cbStatus
	for _, cb := range cbStatus {
		if cb.State == "open" {
			status["status"] = "degraded"
			break
		}
	}

	h.jsonResponse(w, status)
}

func boolStatus(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

// =============================================================================
// Prediction
// =============================================================================

// PredictRequest is the body of POST /api/predict.
type PredictRequest struct {
	Symbol string `json:"symbol"`
}

// HandlePredict scores a symbol and returns the signal decision
func (h *Handler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid JSON request", http.StatusBadRequest)
		return
	}

	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if err := h.ValidateSymbol(req.Symbol); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	prediction, err := h.app.Predict(r.Context(), req.Symbol)
	if err != nil {
		h.handleAppError(w, err)
		return
	}

	h.jsonResponse(w, prediction)
}

// =============================================================================
// Strategies
// =============================================================================

// HandleCreateStrategy creates a new strategy
func (h *Handler) HandleCreateStrategy(w http.ResponseWriter, r *http.Request) {
	var req app.CreateStrategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid JSON request", http.StatusBadRequest)
		return
	}

	strategy, err := h.app.CreateStrategy(r.Context(), req)
	if err != nil {
		if errors.Is(err, app.ErrDatabaseUnavailable) {
			h.handleAppError(w, err)
			return
		}
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(strategy)
}

// HandleGetStrategies lists strategies, optionally filtered by ?status=
func (h *Handler) HandleGetStrategies(w http.ResponseWriter, r *http.Request) {
	status := models.StrategyStatus(r.URL.Query().Get("status"))
	limit := h.ParseLimitParam(r, 50)

	strategies, err := h.app.GetStrategies(r.Context(), status, limit)
	if err != nil {
		h.handleAppError(w, err)
		return
	}
	if strategies == nil {
		strategies = []models.Strategy{}
	}

	h.jsonResponse(w, strategies)
}

// HandleGetStrategy returns one strategy by ID
func (h *Handler) HandleGetStrategy(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseIDParam(w, r)
	if !ok {
		return
	}

	strategy, err := h.app.GetStrategy(r.Context(), id)
	if err != nil {
		h.handleAppError(w, err)
		return
	}

	h.jsonResponse(w, strategy)
}

// HandleUpdateStrategyParameters replaces a strategy's parameters
func (h *Handler) HandleUpdateStrategyParameters(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseIDParam(w, r)
	if !ok {
		return
	}

	var params models.StrategyParameters
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		h.jsonError(w, "invalid JSON request", http.StatusBadRequest)
		return
	}

	strategy, err := h.app.UpdateStrategyParameters(r.Context(), id, params)
	if err != nil {
		h.handleAppError(w, err)
		return
	}

	h.jsonResponse(w, strategy)
}

// HandleUpdateStrategyStatus transitions a strategy's status
func (h *Handler) HandleUpdateStrategyStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseIDParam(w, r)
	if !ok {
		return
	}

	var req struct {
		Status models.StrategyStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid JSON request", http.StatusBadRequest)
		return
	}

	if err := h.app.UpdateStrategyStatus(r.Context(), id, req.Status); err != nil {
		h.handleAppError(w, err)
		return
	}

	h.jsonResponse(w, map[string]string{"status": string(req.Status), "id": id.String()})
}

// HandleDeleteStrategy removes a strategy and its backtest history
func (h *Handler) HandleDeleteStrategy(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.app.DeleteStrategy(r.Context(), id); err != nil {
		h.handleAppError(w, err)
		return
	}

	h.jsonResponse(w, map[string]string{"status": "deleted", "id": id.String()})
}

// =============================================================================
// Backtests
// =============================================================================

// BacktestRequest is the body of POST /api/backtest.
type BacktestRequest struct {
	StrategyID string `json:"strategy_id"`
}

// HandleRunBacktest replays a strategy and returns the full result
func (h *Handler) HandleRunBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid JSON request", http.StatusBadRequest)
		return
	}

	id, err := uuid.Parse(req.StrategyID)
	if err != nil {
		h.jsonError(w, "invalid strategy_id", http.StatusBadRequest)
		return
	}

	result, err := h.app.RunBacktest(r.Context(), id)
	if err != nil {
		h.handleAppError(w, err)
		return
	}

	h.jsonResponse(w, result)
}

// HandleGetBacktestHistory lists a strategy's past backtest results
func (h *Handler) HandleGetBacktestHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseIDParam(w, r)
	if !ok {
		return
	}
	limit := h.ParseLimitParam(r, 20)

	results, err := h.app.GetBacktestHistory(r.Context(), id, limit)
	if err != nil {
		h.handleAppError(w, err)
		return
	}
	if results == nil {
		results = []models.BacktestResult{}
	}

	h.jsonResponse(w, results)
}

// HandleGetBacktestResult returns one backtest result by ID
func (h *Handler) HandleGetBacktestResult(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseIDParam(w, r)
	if !ok {
		return
	}

	result, err := h.app.GetBacktestResult(r.Context(), id)
	if err != nil {
		h.handleAppError(w, err)
		return
	}
	if result == nil {
		h.jsonError(w, "backtest result not found", http.StatusNotFound)
		return
	}

	h.jsonResponse(w, result)
}

// =============================================================================
// Price alerts
// =============================================================================

// CreateAlertRequest is the body of POST /api/alerts.
type CreateAlertRequest struct {
	Symbol    string          `json:"symbol"`
	Condition string          `json:"condition"`
	Threshold decimal.Decimal `json:"threshold"`
}

// HandleCreateAlert registers a price alert
func (h *Handler) HandleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var req CreateAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid JSON request", http.StatusBadRequest)
		return
	}

	alert, err := h.app.CreateAlert(r.Context(), app.CreateAlertRequest{
		Symbol:    req.Symbol,
		Condition: req.Condition,
		Threshold: req.Threshold,
	})
	if err != nil {
		if errors.Is(err, app.ErrDatabaseUnavailable) {
			h.handleAppError(w, err)
			return
		}
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(alert)
}

// HandleGetAlerts lists alerts, filtered by ?symbol= when given
func (h *Handler) HandleGetAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.app.GetAlerts(r.Context(), r.URL.Query().Get("symbol"))
	if err != nil {
		h.handleAppError(w, err)
		return
	}
	if alerts == nil {
		alerts = []models.PriceAlert{}
	}

	h.jsonResponse(w, alerts)
}

// HandleGetAlert returns one alert by ID
func (h *Handler) HandleGetAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseIDParam(w, r)
	if !ok {
		return
	}

	alert, err := h.app.GetAlert(r.Context(), id)
	if err != nil {
		h.handleAppError(w, err)
		return
	}

	h.jsonResponse(w, alert)
}

// HandleCancelAlert cancels an alert
func (h *Handler) HandleCancelAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.app.CancelAlert(r.Context(), id); err != nil {
		h.handleAppError(w, err)
		return
	}

	h.jsonResponse(w, map[string]string{"status": "cancelled", "id": id.String()})
}

// =============================================================================
// Helpers
// =============================================================================

// handleAppError maps application errors onto HTTP status codes.
func (h *Handler) handleAppError(w http.ResponseWriter, err error) {
	var insufficientData *models.InsufficientDataError
	var insufficientHistory *models.InsufficientHistoryError

	switch {
	case errors.Is(err, app.ErrStrategyNotFound), errors.Is(err, app.ErrAlertNotFound):
		h.jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, app.ErrBacktestQueueFull):
		h.jsonError(w, err.Error(), http.StatusTooManyRequests)
	case errors.Is(err, app.ErrMarketDataUnavailable), errors.Is(err, app.ErrDatabaseUnavailable):
		h.jsonError(w, err.Error(), http.StatusServiceUnavailable)
	case errors.As(err, &insufficientData), errors.As(err, &insufficientHistory):
		h.jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

// parseIDParam extracts and parses the {id} URL parameter. On failure it
// writes the error response and returns ok=false.
func (h *Handler) parseIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		h.jsonError(w, "missing ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		h.jsonError(w, "invalid UUID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// ValidateSymbol validates a stock symbol
func (h *Handler) ValidateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}

	if len(symbol) > 10 {
		return fmt.Errorf("symbol too long (max 10 characters)")
	}

	matched, _ := regexp.MatchString("^[A-Z0-9.-]+$", symbol)
	if !matched {
		return fmt.Errorf("invalid symbol format (alphanumeric, dots, and dashes only)")
	}

	return nil
}

// ParseLimitParam parses the limit query parameter
func (h *Handler) ParseLimitParam(r *http.Request, defaultLimit int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			return l
		}
	}
	return defaultLimit
}

func (h *Handler) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
