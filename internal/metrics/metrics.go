// Package metrics exposes Prometheus instruments for the intake service.
//
// All recording functions are safe to call before Init; they are no-ops
// until the collectors are registered.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "lca_intake_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	sessionsCreated prometheus.Counter
	sessionsEvicted prometheus.Counter
	sessionsLive    prometheus.Gauge

	qcEvaluations *prometheus.CounterVec

	submissionsTotal *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	importRowsTotal *prometheus.CounterVec

	capabilityLoads *prometheus.CounterVec
)

// Init registers all collectors with the default registry.
func Init() {
	registerOnce.Do(func() {
		sessionsCreated = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "sessions_created_total",
				Help: "Total intake sessions created",
			},
		)
		sessionsEvicted = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "sessions_evicted_total",
				Help: "Total intake sessions evicted after idling",
			},
		)
		sessionsLive = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "sessions_live",
				Help: "Intake sessions currently held in memory",
			},
		)

		qcEvaluations = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "qc_evaluations_total",
				Help: "Total product-mass QC evaluations by status",
			},
			[]string{"status"},
		)

		submissionsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "submissions_total",
				Help: "Total submission attempts by result code",
			},
			[]string{"code"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Export generation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		importRowsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "import_rows_total",
				Help: "Total rows imported from CSV by section",
			},
			[]string{"section"},
		)

		capabilityLoads = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "spreadsheet_capability_loads_total",
				Help: "Spreadsheet capability load attempts by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			sessionsCreated,
			sessionsEvicted,
			sessionsLive,
			qcEvaluations,
			submissionsTotal,
			exportTotal,
			exportLatency,
			importRowsTotal,
			capabilityLoads,
		)
	})
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncSessionCreated counts a new session and updates the live gauge.
func IncSessionCreated(live int) {
	if sessionsCreated != nil {
		sessionsCreated.Inc()
	}
	SetSessionsLive(live)
}

// AddSessionsEvicted counts evicted sessions and updates the live gauge.
func AddSessionsEvicted(count, live int) {
	if count > 0 && sessionsEvicted != nil {
		sessionsEvicted.Add(float64(count))
	}
	SetSessionsLive(live)
}

// SetSessionsLive sets the live-session gauge.
func SetSessionsLive(live int) {
	if sessionsLive != nil {
		sessionsLive.Set(float64(live))
	}
}

// IncQCEvaluation counts one QC evaluation.
func IncQCEvaluation(status string) {
	if status == "" {
		status = "unknown"
	}
	if qcEvaluations != nil {
		qcEvaluations.WithLabelValues(status).Inc()
	}
}

// IncSubmission counts one submission attempt. code is "ok" or the
// first-violation code.
func IncSubmission(code string) {
	if code == "" {
		code = "ok"
	}
	if submissionsTotal != nil {
		submissionsTotal.WithLabelValues(code).Inc()
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// AddImportedRows counts rows imported into a section.
func AddImportedRows(section string, count int) {
	if count <= 0 {
		return
	}
	if importRowsTotal != nil {
		importRowsTotal.WithLabelValues(section).Add(float64(count))
	}
}

// IncCapabilityLoad counts one spreadsheet capability load attempt.
func IncCapabilityLoad(result string) {
	if result == "" {
		result = resultSuccess
	}
	if capabilityLoads != nil {
		capabilityLoads.WithLabelValues(result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
