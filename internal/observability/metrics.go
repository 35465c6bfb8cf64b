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
	// Simulation metrics
	SimulationRunsTotal *prometheus.CounterVec
	TrialsSimulated     prometheus.Counter
	SimulationDuration  prometheus.Histogram

	// Evaluation metrics
	SnapshotsComputed prometheus.Counter
	DecisionsTotal    *prometheus.CounterVec
	ReportsGenerated  prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Server metrics
	WSClientsConnected prometheus.Gauge

	// Health metrics
	LastSuccessfulEvaluation prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "trade_eval_lab"
	}

	return &Metrics{
		SimulationRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "runs_total",
			Help:      "Total number of simulation runs by status",
		}, []string{"status"}),
		TrialsSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "trials_total",
			Help:      "Total number of Monte Carlo trials simulated",
		}),
		SimulationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "duration_seconds",
			Help:      "Simulation run duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),

		SnapshotsComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "snapshots_computed_total",
			Help:      "Total number of risk snapshots computed",
		}),
		DecisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "decisions_total",
			Help:      "Total number of decisions by verdict",
		}, []string{"verdict"}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		WSClientsConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "ws_clients_connected",
			Help:      "Number of connected WebSocket progress subscribers",
		}),

		LastSuccessfulEvaluation: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_evaluation_timestamp",
			Help:      "Unix timestamp of last successful evaluation",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSimulationRun records a simulation run outcome with its duration.
func RecordSimulationRun(status string, trials int, durationSeconds float64) {
	DefaultMetrics.SimulationRunsTotal.WithLabelValues(status).Inc()
	if status == "ok" {
		DefaultMetrics.TrialsSimulated.Add(float64(trials))
	}
	DefaultMetrics.SimulationDuration.Observe(durationSeconds)
}

// RecordSnapshotComputed increments the snapshots computed counter.
func RecordSnapshotComputed() {
	DefaultMetrics.SnapshotsComputed.Inc()
}

// RecordDecision increments the decision counter for a verdict.
func RecordDecision(verdict string) {
	DefaultMetrics.DecisionsTotal.WithLabelValues(verdict).Inc()
}

// RecordReportGenerated increments the reports generated counter.
func RecordReportGenerated() {
	DefaultMetrics.ReportsGenerated.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordEvaluationSuccess marks the time of the last successful evaluation.
func RecordEvaluationSuccess(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulEvaluation.Set(float64(unixSeconds))
}
