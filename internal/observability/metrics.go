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
	// Lifecycle metrics
	SignalsStored    *prometheus.CounterVec
	SignalsDuplicate prometheus.Counter
	ExecutionsStored prometheus.Counter
	OutcomesStored   *prometheus.CounterVec
	EventsEmitted    *prometheus.CounterVec
	EventsDropped    *prometheus.CounterVec

	// Backtest metrics
	BacktestRunsTotal *prometheus.CounterVec
	BacktestDuration  prometheus.Histogram
	TradesSimulated   prometheus.Counter
	SignalsEvaluated  prometheus.Counter

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "trading_signal_lab"
	}

	return &Metrics{
		// Lifecycle metrics
		SignalsStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "signals_stored_total",
			Help:      "Total number of signals stored by label",
		}, []string{"label"}),
		SignalsDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "signals_duplicate_total",
			Help:      "Total number of duplicate signal inserts skipped",
		}),
		ExecutionsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "executions_stored_total",
			Help:      "Total number of executions stored",
		}),
		OutcomesStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "outcomes_stored_total",
			Help:      "Total number of outcomes stored by exit reason",
		}, []string{"reason"}),
		EventsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "events_emitted_total",
			Help:      "Total number of lifecycle events emitted by type",
		}, []string{"type"}),
		EventsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "events_dropped_total",
			Help:      "Total number of lifecycle events that failed to emit",
		}, []string{"type"}),

		// Backtest metrics
		BacktestRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of backtest runs by status",
		}, []string{"status"}),
		BacktestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "duration_seconds",
			Help:      "Backtest run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),
		TradesSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "trades_simulated_total",
			Help:      "Total number of trades simulated",
		}),
		SignalsEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "signals_evaluated_total",
			Help:      "Total number of strategy evaluations performed",
		}),

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful backtest run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSignalStored increments the signals stored counter.
func RecordSignalStored(label string) {
	DefaultMetrics.SignalsStored.WithLabelValues(label).Inc()
}

// RecordDuplicateSignal increments the duplicate skip counter.
func RecordDuplicateSignal() {
	DefaultMetrics.SignalsDuplicate.Inc()
}

// RecordOutcomeStored increments the outcomes stored counter.
func RecordOutcomeStored(reason string) {
	DefaultMetrics.OutcomesStored.WithLabelValues(reason).Inc()
}

// RecordEventEmitted increments the events emitted counter.
func RecordEventEmitted(eventType string) {
	DefaultMetrics.EventsEmitted.WithLabelValues(eventType).Inc()
}

// RecordEventDropped increments the events dropped counter.
func RecordEventDropped(eventType string) {
	DefaultMetrics.EventsDropped.WithLabelValues(eventType).Inc()
}

// RecordTradeSimulated increments the trades simulated counter.
func RecordTradeSimulated() {
	DefaultMetrics.TradesSimulated.Inc()
}
