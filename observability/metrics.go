package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Ranking metrics
	RankingRequestsTotal *prometheus.CounterVec
	RankingDuration      *prometheus.HistogramVec
	RankingErrorsTotal   *prometheus.CounterVec
	CompositeScores      *prometheus.HistogramVec

	// Backtest metrics
	BacktestRunsTotal   *prometheus.CounterVec
	BacktestDuration    *prometheus.HistogramVec
	RebalanceDatesTotal *prometheus.CounterVec
	BacktestTradesTotal *prometheus.CounterVec
	BacktestFinalReturn prometheus.Histogram

	// External API metrics
	ExternalAPIRequestsTotal *prometheus.CounterVec
	ExternalAPIErrorsTotal   *prometheus.CounterVec
	ExternalAPIDuration      *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryTotal    *prometheus.CounterVec
	DBErrorsTotal   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// defaultBuckets are the default histogram buckets for duration metrics (in seconds)
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// scoreBuckets are histogram buckets for composite score metrics (0 to 100)
var scoreBuckets = []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

// returnBuckets are histogram buckets for backtest total returns (fractions)
var returnBuckets = []float64{-0.5, -0.25, -0.1, -0.05, 0, 0.05, 0.1, 0.25, 0.5, 1, 2}

// globalMetrics is the global metrics instance
var globalMetrics *Metrics

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	m := &Metrics{
		RankingRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rank_machine",
				Subsystem: "ranking",
				Name:      "requests_total",
				Help:      "Total number of ranking requests",
			},
			[]string{"status"},
		),
		RankingDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rank_machine",
				Subsystem: "ranking",
				Name:      "duration_seconds",
				Help:      "Duration of ranking batches in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"status"},
		),
		RankingErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rank_machine",
				Subsystem: "ranking",
				Name:      "errors_total",
				Help:      "Total number of per-ticker ranking data errors",
			},
			[]string{"ticker", "error_type"},
		),
		CompositeScores: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rank_machine",
				Subsystem: "ranking",
				Name:      "composite_score",
				Help:      "Distribution of composite scores",
				Buckets:   scoreBuckets,
			},
			[]string{"recommendation"},
		),

		BacktestRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rank_machine",
				Subsystem: "backtest",
				Name:      "runs_total",
				Help:      "Total number of backtest runs",
			},
			[]string{"status"},
		),
		BacktestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rank_machine",
				Subsystem: "backtest",
				Name:      "duration_seconds",
				Help:      "Duration of backtest runs in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"frequency"},
		),
		RebalanceDatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rank_machine",
				Subsystem: "backtest",
				Name:      "rebalance_dates_total",
				Help:      "Total number of rebalance dates processed, by outcome",
			},
			[]string{"outcome"},
		),
		BacktestTradesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rank_machine",
				Subsystem: "backtest",
				Name:      "trades_total",
				Help:      "Total number of simulated trades executed",
			},
			[]string{"side"},
		),
		BacktestFinalReturn: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "rank_machine",
				Subsystem: "backtest",
				Name:      "total_return",
				Help:      "Distribution of backtest total returns",
				Buckets:   returnBuckets,
			},
		),

		ExternalAPIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rank_machine",
				Subsystem: "external_api",
				Name:      "requests_total",
				Help:      "Total number of external API requests",
			},
			[]string{"service", "operation"},
		),
		ExternalAPIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rank_machine",
				Subsystem: "external_api",
				Name:      "errors_total",
				Help:      "Total number of external API errors",
			},
			[]string{"service", "operation", "error_type"},
		),
		ExternalAPIDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rank_machine",
				Subsystem: "external_api",
				Name:      "duration_seconds",
				Help:      "Duration of external API calls in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"service", "operation"},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rank_machine",
				Subsystem: "database",
				Name:      "query_duration_seconds",
				Help:      "Duration of database queries in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"operation", "table"},
		),
		DBQueryTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rank_machine",
				Subsystem: "database",
				Name:      "queries_total",
				Help:      "Total number of database queries",
			},
			[]string{"operation", "table"},
		),
		DBErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rank_machine",
				Subsystem: "database",
				Name:      "errors_total",
				Help:      "Total number of database errors",
			},
			[]string{"operation", "table"},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rank_machine",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rank_machine",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"method", "path"},
		),

		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "rank_machine",
				Subsystem: "circuit_breaker",
				Name:      "state",
				Help:      "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
			},
			[]string{"service"},
		),
		CircuitBreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rank_machine",
				Subsystem: "circuit_breaker",
				Name:      "trips_total",
				Help:      "Total number of circuit breaker trips",
			},
			[]string{"service"},
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

// RecordRankingRequest records a ranking request with its outcome
func (m *Metrics) RecordRankingRequest(status string) {
	m.RankingRequestsTotal.WithLabelValues(status).Inc()
}

// RecordRankingError records a per-ticker ranking data error
func (m *Metrics) RecordRankingError(ticker, errorType string) {
	m.RankingErrorsTotal.WithLabelValues(ticker, errorType).Inc()
}

// RecordCompositeScore records a composite score observation
func (m *Metrics) RecordCompositeScore(recommendation string, score float64) {
	m.CompositeScores.WithLabelValues(recommendation).Observe(score)
}

// RecordBacktestRun records a backtest run with its outcome
func (m *Metrics) RecordBacktestRun(status string) {
	m.BacktestRunsTotal.WithLabelValues(status).Inc()
}

// RecordRebalanceDate records a processed rebalance date by outcome
// (rebalanced, skipped_no_prices, skipped_no_rankings)
func (m *Metrics) RecordRebalanceDate(outcome string) {
	m.RebalanceDatesTotal.WithLabelValues(outcome).Inc()
}

// RecordBacktestTrade records an executed simulated trade
func (m *Metrics) RecordBacktestTrade(side string) {
	m.BacktestTradesTotal.WithLabelValues(side).Inc()
}

// RecordBacktestReturn records the total return of a completed backtest
func (m *Metrics) RecordBacktestReturn(totalReturn float64) {
	m.BacktestFinalReturn.Observe(totalReturn)
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
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// SetCircuitBreakerState sets the current state of a circuit breaker
func (m *Metrics) SetCircuitBreakerState(service string, state int) {
	m.CircuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(service string) {
	m.CircuitBreakerTrips.WithLabelValues(service).Inc()
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

// ObserveRanking records the ranking batch duration and status
func (t *Timer) ObserveRanking(status string) {
	t.metrics.RankingDuration.WithLabelValues(status).Observe(time.Since(t.start).Seconds())
}

// ObserveBacktest records the backtest duration by rebalance frequency
func (t *Timer) ObserveBacktest(frequency string) {
	t.metrics.BacktestDuration.WithLabelValues(frequency).Observe(time.Since(t.start).Seconds())
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
