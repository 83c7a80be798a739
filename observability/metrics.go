package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Prediction metrics
	PredictionRequestsTotal *prometheus.CounterVec
	PredictionDuration      *prometheus.HistogramVec
	PredictionErrorsTotal   *prometheus.CounterVec
	SignalDirections        *prometheus.CounterVec
	SignalScores            *prometheus.HistogramVec
	SignalConfidence        *prometheus.HistogramVec

	// Backtest metrics
	BacktestRunsTotal    *prometheus.CounterVec
	BacktestDuration     *prometheus.HistogramVec
	BacktestErrorsTotal  *prometheus.CounterVec
	BacktestTradeCount   *prometheus.HistogramVec
	BacktestReturnsTotal *prometheus.HistogramVec

	// External API metrics
	ExternalAPIRequestsTotal *prometheus.CounterVec
	ExternalAPIErrorsTotal   *prometheus.CounterVec
	ExternalAPIDuration      *prometheus.HistogramVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryTotal    *prometheus.CounterVec
	DBErrorsTotal   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec

	// Alert metrics
	AlertChecksTotal  *prometheus.CounterVec
	AlertsFiredTotal  *prometheus.CounterVec
	ActiveAlertsGauge prometheus.Gauge
}

// defaultBuckets are the default histogram buckets for duration metrics (in seconds)
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// scoreBuckets are histogram buckets for composite signal scores (0 to 1)
var scoreBuckets = []float64{0, 0.1, 0.2, 0.3, 0.4, 0.48, 0.5, 0.52, 0.6, 0.7, 0.8, 0.9, 1}

// confidenceBuckets are histogram buckets for confidence metrics (0 to 1)
var confidenceBuckets = []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}

// returnBuckets are histogram buckets for backtest total return percentages
var returnBuckets = []float64{-50, -25, -10, -5, 0, 5, 10, 25, 50, 100}

// globalMetrics is the global metrics instance
var globalMetrics *Metrics

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	m := &Metrics{
		// Prediction metrics
		PredictionRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_engine",
				Subsystem: "prediction",
				Name:      "requests_total",
				Help:      "Total number of prediction requests",
			},
			[]string{"symbol"},
		),
		PredictionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "signal_engine",
				Subsystem: "prediction",
				Name:      "duration_seconds",
				Help:      "Duration of signal scoring in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"symbol", "status"},
		),
		PredictionErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_engine",
				Subsystem: "prediction",
				Name:      "errors_total",
				Help:      "Total number of prediction errors",
			},
			[]string{"symbol", "error_type"},
		),
		SignalDirections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_engine",
				Subsystem: "prediction",
				Name:      "directions_total",
				Help:      "Total number of signals by direction",
			},
			[]string{"direction"},
		),
		SignalScores: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "signal_engine",
				Subsystem: "prediction",
				Name:      "score",
				Help:      "Distribution of composite signal scores",
				Buckets:   scoreBuckets,
			},
			[]string{"direction"},
		),
		SignalConfidence: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "signal_engine",
				Subsystem: "prediction",
				Name:      "confidence",
				Help:      "Distribution of signal confidence levels",
				Buckets:   confidenceBuckets,
			},
			[]string{"direction"},
		),

		// Backtest metrics
		BacktestRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_engine",
				Subsystem: "backtest",
				Name:      "runs_total",
				Help:      "Total number of backtest runs",
			},
			[]string{"strategy_type"},
		),
		BacktestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "signal_engine",
				Subsystem: "backtest",
				Name:      "duration_seconds",
				Help:      "Duration of backtest replays in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"strategy_type", "status"},
		),
		BacktestErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_engine",
				Subsystem: "backtest",
				Name:      "errors_total",
				Help:      "Total number of backtest errors",
			},
			[]string{"strategy_type", "error_type"},
		),
		BacktestTradeCount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "signal_engine",
				Subsystem: "backtest",
				Name:      "trade_count",
				Help:      "Number of round-trip trades per backtest",
				Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
			},
			[]string{"strategy_type"},
		),
		BacktestReturnsTotal: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "signal_engine",
				Subsystem: "backtest",
				Name:      "total_return_percent",
				Help:      "Distribution of backtest total returns",
				Buckets:   returnBuckets,
			},
			[]string{"strategy_type"},
		),

		// External API metrics
		ExternalAPIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_engine",
				Subsystem: "external_api",
				Name:      "requests_total",
				Help:      "Total number of external API requests",
			},
			[]string{"service", "operation"},
		),
		ExternalAPIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_engine",
				Subsystem: "external_api",
				Name:      "errors_total",
				Help:      "Total number of external API errors",
			},
			[]string{"service", "operation", "error_type"},
		),
		ExternalAPIDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "signal_engine",
				Subsystem: "external_api",
				Name:      "duration_seconds",
				Help:      "Duration of external API calls in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"service", "operation"},
		),

		// Cache metrics
		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_engine",
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_engine",
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"cache"},
		),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "signal_engine",
				Subsystem: "database",
				Name:      "query_duration_seconds",
				Help:      "Duration of database queries in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"operation", "table"},
		),
		DBQueryTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_engine",
				Subsystem: "database",
				Name:      "queries_total",
				Help:      "Total number of database queries",
			},
			[]string{"operation", "table"},
		),
		DBErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_engine",
				Subsystem: "database",
				Name:      "errors_total",
				Help:      "Total number of database errors",
			},
			[]string{"operation", "table"},
		),

		// HTTP metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_engine",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "signal_engine",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "signal_engine",
				Subsystem: "http",
				Name:      "response_size_bytes",
				Help:      "Size of HTTP responses in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),

		// Circuit breaker metrics
		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "signal_engine",
				Subsystem: "circuit_breaker",
				Name:      "state",
				Help:      "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
			},
			[]string{"service"},
		),
		CircuitBreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_engine",
				Subsystem: "circuit_breaker",
				Name:      "trips_total",
				Help:      "Total number of circuit breaker trips",
			},
			[]string{"service"},
		),

		// Alert metrics
		AlertChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_engine",
				Subsystem: "alert",
				Name:      "checks_total",
				Help:      "Total number of price alert evaluation sweeps",
			},
			[]string{"status"},
		),
		AlertsFiredTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_engine",
				Subsystem: "alert",
				Name:      "fired_total",
				Help:      "Total number of price alerts triggered",
			},
			[]string{"condition"},
		),
		ActiveAlertsGauge: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "signal_engine",
				Subsystem: "alert",
				Name:      "active",
				Help:      "Number of currently active price alerts",
			},
		),
	}

	return m
}

// InitMetrics initializes the global metrics instance
func InitMetrics() *Metrics {
	globalMetrics = NewMetrics(nil)
	return globalMetrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	if globalMetrics == nil {
		return InitMetrics()
	}
	return globalMetrics
}

// RecordPredictionRequest records a prediction request
func (m *Metrics) RecordPredictionRequest(symbol string) {
	m.PredictionRequestsTotal.WithLabelValues(symbol).Inc()
}

// RecordPredictionDuration records the duration of a prediction
func (m *Metrics) RecordPredictionDuration(symbol, status string, duration time.Duration) {
	m.PredictionDuration.WithLabelValues(symbol, status).Observe(duration.Seconds())
}

// RecordPredictionError records a prediction error
func (m *Metrics) RecordPredictionError(symbol, errorType string) {
	m.PredictionErrorsTotal.WithLabelValues(symbol, errorType).Inc()
}

// RecordSignal records a produced signal decision
func (m *Metrics) RecordSignal(direction string, score, confidence float64) {
	m.SignalDirections.WithLabelValues(direction).Inc()
	m.SignalScores.WithLabelValues(direction).Observe(score)
	m.SignalConfidence.WithLabelValues(direction).Observe(confidence)
}

// RecordBacktestRun records a completed backtest with its headline stats
func (m *Metrics) RecordBacktestRun(strategyType string, trades int, totalReturnPercent float64) {
	m.BacktestRunsTotal.WithLabelValues(strategyType).Inc()
	m.BacktestTradeCount.WithLabelValues(strategyType).Observe(float64(trades))
	m.BacktestReturnsTotal.WithLabelValues(strategyType).Observe(totalReturnPercent)
}

// RecordBacktestDuration records the duration of a backtest replay
func (m *Metrics) RecordBacktestDuration(strategyType, status string, duration time.Duration) {
	m.BacktestDuration.WithLabelValues(strategyType, status).Observe(duration.Seconds())
}

// RecordBacktestError records a backtest error
func (m *Metrics) RecordBacktestError(strategyType, errorType string) {
	m.BacktestErrorsTotal.WithLabelValues(strategyType, errorType).Inc()
}

// RecordExternalAPIRequest records an external API request
func (m *Metrics) RecordExternalAPIRequest(service, operation string) {
	m.ExternalAPIRequestsTotal.WithLabelValues(service, operation).Inc()
}

// RecordExternalAPIError records an external API error
func (m *Metrics) RecordExternalAPIError(service, operation, errorType string) {
	m.ExternalAPIErrorsTotal.WithLabelValues(service, operation, errorType).Inc()
}

// RecordExternalAPIDuration records the duration of an external API call
func (m *Metrics) RecordExternalAPIDuration(service, operation string, duration time.Duration) {
	m.ExternalAPIDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit(cache string) {
	m.CacheHitsTotal.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss(cache string) {
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

// RecordDBQuery records a database query
func (m *Metrics) RecordDBQuery(operation, table string, duration time.Duration) {
	m.DBQueryTotal.WithLabelValues(operation, table).Inc()
	m.DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordDBError records a database error
func (m *Metrics) RecordDBError(operation, table string) {
	m.DBErrorsTotal.WithLabelValues(operation, table).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, duration time.Duration, responseSize int) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// SetCircuitBreakerState sets the current state of a circuit breaker
func (m *Metrics) SetCircuitBreakerState(service string, state int) {
	m.CircuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(service string) {
	m.CircuitBreakerTrips.WithLabelValues(service).Inc()
}

// RecordAlertCheck records a price alert evaluation sweep
func (m *Metrics) RecordAlertCheck(status string) {
	m.AlertChecksTotal.WithLabelValues(status).Inc()
}

// RecordAlertFired records a triggered price alert
func (m *Metrics) RecordAlertFired(condition string) {
	m.AlertsFiredTotal.WithLabelValues(condition).Inc()
}

// SetActiveAlerts sets the active alert gauge
func (m *Metrics) SetActiveAlerts(n int) {
	m.ActiveAlertsGauge.Set(float64(n))
}

// Timer is a helper for timing operations
type Timer struct {
	start   time.Time
	metrics *Metrics
}

// NewTimer creates a new timer
func (m *Metrics) NewTimer() *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: m,
	}
}

// ObservePrediction records the prediction duration and status
func (t *Timer) ObservePrediction(symbol, status string) {
	t.metrics.RecordPredictionDuration(symbol, status, time.Since(t.start))
}

// ObserveBacktest records the backtest duration and status
func (t *Timer) ObserveBacktest(strategyType, status string) {
	t.metrics.RecordBacktestDuration(strategyType, status, time.Since(t.start))
}

// ObserveExternalAPI records the external API duration
func (t *Timer) ObserveExternalAPI(service, operation string) {
	t.metrics.RecordExternalAPIDuration(service, operation, time.Since(t.start))
}

// ObserveDB records the database query duration
func (t *Timer) ObserveDB(operation, table string) {
	t.metrics.RecordDBQuery(operation, table, time.Since(t.start))
}

// Duration returns the elapsed time
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
