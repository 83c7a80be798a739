package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"signal-engine/config"
	"signal-engine/internal/app"
	"signal-engine/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Fakes
// =============================================================================

// memStore is an in-memory app.Store for handler tests.
type memStore struct {
	strategies map[uuid.UUID]*models.Strategy
	results    map[uuid.UUID]*models.BacktestResult
	alerts     map[uuid.UUID]*models.PriceAlert
}

func newMemStore() *memStore {
	return &memStore{
		strategies: make(map[uuid.UUID]*models.Strategy),
		results:    make(map[uuid.UUID]*models.BacktestResult),
		alerts:     make(map[uuid.UUID]*models.PriceAlert),
	}
}

func (s *memStore) Close()                           {}
func (s *memStore) Health(ctx context.Context) error { return nil }

func (s *memStore) GetStrategies(ctx context.Context, status models.StrategyStatus, limit int) ([]models.Strategy, error) {
	var out []models.Strategy
	for _, st := range s.strategies {
		if status == "" || st.Status == status {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (s *memStore) GetStrategy(ctx context.Context, id uuid.UUID) (*models.Strategy, error) {
	st, ok := s.strategies[id]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (s *memStore) GetStrategiesBySymbol(ctx context.Context, symbol string) ([]models.Strategy, error) {
	var out []models.Strategy
	for _, st := range s.strategies {
		if st.Symbol == symbol {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (s *memStore) CreateStrategy(ctx context.Context, strategy *models.Strategy) error {
	cp := *strategy
	s.strategies[strategy.ID] = &cp
	return nil
}

func (s *memStore) UpdateStrategy(ctx context.Context, strategy *models.Strategy) error {
	cp := *strategy
	s.strategies[strategy.ID] = &cp
	return nil
}

func (s *memStore) UpdateStrategyStatus(ctx context.Context, id uuid.UUID, status models.StrategyStatus) error {
	if st, ok := s.strategies[id]; ok {
		st.Status = status
	}
	return nil
}

func (s *memStore) DeleteStrategy(ctx context.Context, id uuid.UUID) error {
	delete(s.strategies, id)
	return nil
}

func (s *memStore) CreateBacktestResult(ctx context.Context, result *models.BacktestResult) error {
	cp := *result
	s.results[result.ID] = &cp
	return nil
}

func (s *memStore) GetBacktestResult(ctx context.Context, id uuid.UUID) (*models.BacktestResult, error) {
	r, ok := s.results[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) GetBacktestResults(ctx context.Context, strategyID uuid.UUID, limit int) ([]models.BacktestResult, error) {
	var out []models.BacktestResult
	for _, r := range s.results {
		if r.StrategyID == strategyID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *memStore) GetLatestBacktestResult(ctx context.Context, strategyID uuid.UUID) (*models.BacktestResult, error) {
	results, _ := s.GetBacktestResults(ctx, strategyID, 1)
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

func (s *memStore) CreateAlert(ctx context.Context, alert *models.PriceAlert) error {
	cp := *alert
	s.alerts[alert.ID] = &cp
	return nil
}

func (s *memStore) GetAlert(ctx context.Context, id uuid.UUID) (*models.PriceAlert, error) {
	a, ok := s.alerts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (s *memStore) GetActiveAlerts(ctx context.Context) ([]models.PriceAlert, error) {
	var out []models.PriceAlert
	for _, a := range s.alerts {
		if a.Status == models.AlertStatusActive {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *memStore) GetAlertsBySymbol(ctx context.Context, symbol string) ([]models.PriceAlert, error) {
	var out []models.PriceAlert
	for _, a := range s.alerts {
		if a.Symbol == symbol {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *memStore) MarkAlertTriggered(ctx context.Context, id uuid.UUID) error {
	if a, ok := s.alerts[id]; ok {
		a.MarkTriggered()
	}
	return nil
}

func (s *memStore) CancelAlert(ctx context.Context, id uuid.UUID) error {
	if a, ok := s.alerts[id]; ok {
		a.Status = models.AlertStatusCancelled
	}
	return nil
}

// fakeMarket serves a deterministic rising daily series.
type fakeMarket struct {
	bars []models.Bar
}

func newFakeMarket(n int) *fakeMarket {
	bars := make([]models.Bar, n)
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := range bars {
		price *= 1.004
		bars[i] = models.Bar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      price * 0.998,
			High:      price * 1.005,
			Low:       price * 0.994,
			Close:     price,
			Volume:    1_000_000,
		}
	}
	return &fakeMarket{bars: bars}
}

func (m *fakeMarket) GetBars(ctx context.Context, symbol string, timeframe models.Timeframe, start, end time.Time) ([]models.Bar, error) {
	return m.bars, nil
}

func (m *fakeMarket) GetDailyBars(ctx context.Context, symbol string, days int) ([]models.Bar, error) {
	return m.bars, nil
}

func (m *fakeMarket) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	return m.GetLatestTrade(ctx, symbol)
}

func (m *fakeMarket) GetLatestTrade(ctx context.Context, symbol string) (*models.Quote, error) {
	last := m.bars[len(m.bars)-1].Close
	return &models.Quote{Symbol: symbol, Last: decimal.NewFromFloat(last), Timestamp: time.Now()}, nil
}

// =============================================================================
// Helpers
// =============================================================================

func testConfig() *config.Config {
	return config.NewTestConfig()
}

func testRouter(store *memStore, market *fakeMarket) http.Handler {
	cfg := testConfig()
	var a *app.App
	if market != nil {
		a = app.New(cfg, store, market, nil)
	} else {
		a = app.New(cfg, store, nil, nil)
	}
	return NewRouter(NewHandler(a, cfg), cfg)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decoding response %q: %v", w.Body.String(), err)
	}
}

func createStrategy(t *testing.T, router http.Handler) *models.Strategy {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/strategies", map[string]string{
		"name":   "handler test strategy",
		"symbol": "AAPL",
		"type":   "momentum",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("creating strategy: status %d, body %s", w.Code, w.Body.String())
	}
	var strategy models.Strategy
	decode(t, w, &strategy)
	return &strategy
}

// =============================================================================
// Health
// =============================================================================

func TestHandler_Health(t *testing.T) {
	router := testRouter(newMemStore(), newFakeMarket(120))

	w := doJSON(t, router, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var response map[string]interface{}
	decode(t, w, &response)
	if response["status"] != "ok" {
		t.Errorf("status = %v, want ok", response["status"])
	}
	services, ok := response["services"].(map[string]interface{})
	if !ok {
		t.Fatal("services section missing")
	}
	if services["database"] != "connected" {
		t.Errorf("database = %v, want connected", services["database"])
	}
	if services["market_data"] != "configured" {
		t.Errorf("market_data = %v, want configured", services["market_data"])
	}
}

func TestHandler_Metrics(t *testing.T) {
	router := testRouter(newMemStore(), nil)

	w := doJSON(t, router, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

// =============================================================================
// Prediction
// =============================================================================

func TestHandler_Predict(t *testing.T) {
	router := testRouter(newMemStore(), newFakeMarket(120))

	w := doJSON(t, router, http.MethodPost, "/api/predict", map[string]string{"symbol": "aapl"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var prediction map[string]interface{}
	decode(t, w, &prediction)
	if prediction["symbol"] != "AAPL" {
		t.Errorf("symbol = %v, want AAPL", prediction["symbol"])
	}
	direction, _ := prediction["direction"].(string)
	switch direction {
	case "buy", "sell", "hold":
	default:
		t.Errorf("direction = %q, want buy/sell/hold", direction)
	}
}

func TestHandler_Predict_BadRequests(t *testing.T) {
	router := testRouter(newMemStore(), newFakeMarket(120))

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"empty symbol", map[string]string{"symbol": ""}, http.StatusBadRequest},
		{"symbol too long", map[string]string{"symbol": "ABCDEFGHIJK"}, http.StatusBadRequest},
		{"invalid characters", map[string]string{"symbol": "AA$PL"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/api/predict", tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestHandler_Predict_MalformedJSON(t *testing.T) {
	router := testRouter(newMemStore(), newFakeMarket(120))

	req := httptest.NewRequest(http.MethodPost, "/api/predict", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandler_Predict_NoMarketData(t *testing.T) {
	router := testRouter(newMemStore(), nil)

	w := doJSON(t, router, http.MethodPost, "/api/predict", map[string]string{"symbol": "AAPL"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestHandler_Predict_InsufficientHistory(t *testing.T) {
	router := testRouter(newMemStore(), newFakeMarket(10))

	w := doJSON(t, router, http.MethodPost, "/api/predict", map[string]string{"symbol": "AAPL"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
}

// =============================================================================
// Strategies
// =============================================================================

func TestHandler_StrategyCRUD(t *testing.T) {
	router := testRouter(newMemStore(), nil)

	strategy := createStrategy(t, router)
	if strategy.Symbol != "AAPL" {
		t.Errorf("Symbol = %q, want AAPL", strategy.Symbol)
	}

	// Get.
	w := doJSON(t, router, http.MethodGet, "/api/strategies/"+strategy.ID.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	// List.
	w = doJSON(t, router, http.MethodGet, "/api/strategies/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list []models.Strategy
	decode(t, w, &list)
	if len(list) != 1 {
		t.Errorf("list length = %d, want 1", len(list))
	}

	// Update parameters.
	params := models.DefaultStrategyParameters()
	params.RSIPeriod = 21
	w = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/strategies/%s/parameters", strategy.ID), params)
	if w.Code != http.StatusOK {
		t.Fatalf("update params status = %d, body %s", w.Code, w.Body.String())
	}
	var updated models.Strategy
	decode(t, w, &updated)
	if updated.Parameters.RSIPeriod != 21 {
		t.Errorf("RSIPeriod = %d, want 21", updated.Parameters.RSIPeriod)
	}

	// Status transition.
	w = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/strategies/%s/status", strategy.ID), map[string]string{"status": "paused"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", w.Code, w.Body.String())
	}

	// Delete.
	w = doJSON(t, router, http.MethodDelete, "/api/strategies/"+strategy.ID.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/api/strategies/"+strategy.ID.String(), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", w.Code)
	}
}

func TestHandler_CreateStrategy_Invalid(t *testing.T) {
	router := testRouter(newMemStore(), nil)

	w := doJSON(t, router, http.MethodPost, "/api/strategies", map[string]string{
		"name":   "bad type",
		"symbol": "AAPL",
		"type":   "arbitrage",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandler_GetStrategy_BadID(t *testing.T) {
	router := testRouter(newMemStore(), nil)

	w := doJSON(t, router, http.MethodGet, "/api/strategies/not-a-uuid", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/strategies/"+uuid.NewString(), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

// =============================================================================
// Backtests
// =============================================================================

func TestHandler_RunBacktest(t *testing.T) {
	store := newMemStore()
	router := testRouter(store, newFakeMarket(200))

	strategy := createStrategy(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/backtest", map[string]string{"strategy_id": strategy.ID.String()})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var result models.BacktestResult
	decode(t, w, &result)
	if result.StrategyID != strategy.ID {
		t.Errorf("StrategyID = %v, want %v", result.StrategyID, strategy.ID)
	}
	if result.InitialCapital != 10_000 {
		t.Errorf("InitialCapital = %v, want 10000", result.InitialCapital)
	}

	// The result is retrievable and listed in history.
	w = doJSON(t, router, http.MethodGet, "/api/backtests/"+result.ID.String(), nil)
	if w.Code != http.StatusOK {
		t.Errorf("get result status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/strategies/%s/backtests", strategy.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history status = %d", w.Code)
	}
	var history []models.BacktestResult
	decode(t, w, &history)
	if len(history) != 1 {
		t.Errorf("history length = %d, want 1", len(history))
	}
}

func TestHandler_RunBacktest_Errors(t *testing.T) {
	router := testRouter(newMemStore(), newFakeMarket(200))

	w := doJSON(t, router, http.MethodPost, "/api/backtest", map[string]string{"strategy_id": "nope"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/api/backtest", map[string]string{"strategy_id": uuid.NewString()})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown strategy status = %d, want 404", w.Code)
	}
}

func TestHandler_GetBacktestResult_NotFound(t *testing.T) {
	router := testRouter(newMemStore(), nil)

	w := doJSON(t, router, http.MethodGet, "/api/backtests/"+uuid.NewString(), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

// =============================================================================
// Alerts
// =============================================================================

func TestHandler_AlertLifecycle(t *testing.T) {
	router := testRouter(newMemStore(), nil)

	w := doJSON(t, router, http.MethodPost, "/api/alerts", map[string]interface{}{
		"symbol":    "aapl",
		"condition": "above",
		"threshold": "150",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	var alert models.PriceAlert
	decode(t, w, &alert)
	if alert.Symbol != "AAPL" {
		t.Errorf("Symbol = %q, want AAPL", alert.Symbol)
	}

	// List active.
	w = doJSON(t, router, http.MethodGet, "/api/alerts/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var alerts []models.PriceAlert
	decode(t, w, &alerts)
	if len(alerts) != 1 {
		t.Errorf("alerts length = %d, want 1", len(alerts))
	}

	// Cancel.
	w = doJSON(t, router, http.MethodDelete, "/api/alerts/"+alert.ID.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel status = %d", w.Code)
	}

	// Active list is now empty.
	w = doJSON(t, router, http.MethodGet, "/api/alerts/", nil)
	decode(t, w, &alerts)
	if len(alerts) != 0 {
		t.Errorf("alerts length after cancel = %d, want 0", len(alerts))
	}
}

func TestHandler_CreateAlert_Invalid(t *testing.T) {
	router := testRouter(newMemStore(), nil)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"bad condition", map[string]interface{}{"symbol": "AAPL", "condition": "crosses", "threshold": "150"}},
		{"zero threshold", map[string]interface{}{"symbol": "AAPL", "condition": "above", "threshold": "0"}},
		{"missing symbol", map[string]interface{}{"condition": "above", "threshold": "150"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/api/alerts", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

// =============================================================================
// Degraded mode (no database)
// =============================================================================

// With DATABASE_URL unset the server still boots; persistence-backed routes
// must answer 503 on valid requests rather than panicking into a 500.
func TestHandler_NoDatabase_Returns503(t *testing.T) {
	cfg := testConfig()
	a := app.New(cfg, nil, newFakeMarket(120), nil)
	router := NewRouter(NewHandler(a, cfg), cfg)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"create strategy", http.MethodPost, "/api/strategies",
			map[string]string{"name": "momo", "symbol": "AAPL", "type": "momentum"}},
		{"list strategies", http.MethodGet, "/api/strategies", nil},
		{"get strategy", http.MethodGet, "/api/strategies/" + uuid.NewString(), nil},
		{"run backtest", http.MethodPost, "/api/backtest",
			map[string]string{"strategy_id": uuid.NewString()}},
		{"get backtest result", http.MethodGet, "/api/backtests/" + uuid.NewString(), nil},
		{"create alert", http.MethodPost, "/api/alerts",
			map[string]string{"symbol": "AAPL", "condition": "above", "threshold": "150"}},
		{"list alerts", http.MethodGet, "/api/alerts", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, tt.method, tt.path, tt.body)
			if w.Code != http.StatusServiceUnavailable {
				t.Errorf("status = %d, want 503", w.Code)
			}
		})
	}

	// Prediction does not touch the database and stays up.
	w := doJSON(t, router, http.MethodPost, "/api/predict", map[string]string{"symbol": "AAPL"})
	if w.Code != http.StatusOK {
		t.Errorf("predict status = %d, want 200", w.Code)
	}
}

// =============================================================================
// Middleware behavior
// =============================================================================

func TestRouter_CORSPreflight(t *testing.T) {
	router := testRouter(newMemStore(), nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing CORS allow-origin header")
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	router := testRouter(newMemStore(), nil)

	w := doJSON(t, router, http.MethodDelete, "/api/health", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}
