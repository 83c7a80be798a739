package api

import (
	"net/http"
	"time"

	"signal-engine/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates and configures a Chi router with all routes
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Duration(cfg.Backtest.TimeoutSeconds) * time.Second))
	r.Use(CORSMiddleware(cfg.HTTP.CORSAllowedOrigins))
	r.Use(MetricsMiddleware)

	// Metrics endpoint for Prometheus
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", h.HandleHealth)

		// Live prediction
		r.Post("/predict", h.HandlePredict)

		// Strategies
		r.Route("/strategies", func(r chi.Router) {
			r.Get("/", h.HandleGetStrategies)
			r.Post("/", h.HandleCreateStrategy)
			r.Get("/{id}", h.HandleGetStrategy)
			r.Put("/{id}/parameters", h.HandleUpdateStrategyParameters)
			r.Put("/{id}/status", h.HandleUpdateStrategyStatus)
			r.Delete("/{id}", h.HandleDeleteStrategy)
			r.Get("/{id}/backtests", h.HandleGetBacktestHistory)
		})

		// Backtests
		r.Post("/backtest", h.HandleRunBacktest)
		r.Get("/backtests/{id}", h.HandleGetBacktestResult)

		// Price alerts
		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", h.HandleGetAlerts)
			r.Post("/", h.HandleCreateAlert)
			r.Get("/{id}", h.HandleGetAlert)
			r.Delete("/{id}", h.HandleCancelAlert)
		})
	})

	return r
}
