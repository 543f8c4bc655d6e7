// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Run metrics
	RunsStarted  prometheus.Counter
	RunsRejected prometheus.Counter
	RunsTotal    *prometheus.CounterVec
	RunDuration  prometheus.Histogram

	// Strategy metrics
	StrategyRunsTotal *prometheus.CounterVec
	TradesSimulated   *prometheus.CounterVec
	DegradedSignals   *prometheus.CounterVec

	// Data feed metrics
	BarsIngested   prometheus.Counter
	FeedReconnects prometheus.Counter

	// API metrics
	HTTPRequests       *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "btc_strategy_lab"
	}

	return &Metrics{
		RunsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_started_total",
			Help:      "Total number of test runs started",
		}),
		RunsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_rejected_total",
			Help:      "Total number of run requests rejected because one was in progress",
		}),
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of completed test runs by status",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of test runs",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}),

		StrategyRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "strategy_runs_total",
			Help:      "Total number of per-strategy runs by strategy and status",
		}, []string{"strategy", "status"}),
		TradesSimulated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "trades_simulated_total",
			Help:      "Total number of simulated round trips per strategy",
		}, []string{"strategy"}),
		DegradedSignals: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "degraded_signals_total",
			Help:      "Entry signals degraded to HOLD for lack of capital, per strategy",
		}, []string{"strategy"}),

		BarsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "bars_ingested_total",
			Help:      "Total number of bars built from the live feed",
		}),
		FeedReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "feed_reconnects_total",
			Help:      "Total number of live feed reconnect attempts",
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by path and status code",
		}, []string{"path", "code"}),
		HTTPRequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by path",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRunStarted increments the runs started counter.
func RecordRunStarted() {
	DefaultMetrics.RunsStarted.Inc()
}

// RecordRunRejected increments the busy-rejection counter.
func RecordRunRejected() {
	DefaultMetrics.RunsRejected.Inc()
}

// RecordRunCompleted records a finished run with its status and duration.
func RecordRunCompleted(status string, durationSeconds float64) {
	DefaultMetrics.RunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.RunDuration.Observe(durationSeconds)
}

// RecordStrategyRun records one per-strategy run outcome.
func RecordStrategyRun(strategy, status string, trades, degraded int) {
	DefaultMetrics.StrategyRunsTotal.WithLabelValues(strategy, status).Inc()
	DefaultMetrics.TradesSimulated.WithLabelValues(strategy).Add(float64(trades))
	DefaultMetrics.DegradedSignals.WithLabelValues(strategy).Add(float64(degraded))
}

// RecordBarIngested increments the live bar counter.
func RecordBarIngested() {
	DefaultMetrics.BarsIngested.Inc()
}

// RecordFeedReconnect increments the reconnect counter.
func RecordFeedReconnect() {
	DefaultMetrics.FeedReconnects.Inc()
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(path, code string, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(path, code).Inc()
	DefaultMetrics.HTTPRequestLatency.WithLabelValues(path).Observe(seconds)
}
