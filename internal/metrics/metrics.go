// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alfredjeanlab/patrol/internal/store"
)

var (
	auditsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "patrol_audits_total", Help: "Completed audits"},
		[]string{"task", "outcome"},
	)
	auditDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "patrol_audit_duration_seconds", Help: "Audit latency from dispatch to persistence", Buckets: prometheus.DefBuckets},
		[]string{"task"},
	)
	overallScore = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "patrol_overall_score", Help: "Overall score per audit", Buckets: prometheus.LinearBuckets(0, 0.1, 11)},
		[]string{"task"},
	)
	eventsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "patrol_events_ingested_total", Help: "Chain events offered to the event store"},
		[]string{"result"},
	)
	ingestHead = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "patrol_ingest_block", Help: "Highest block ingested"},
	)
	telemetryFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "patrol_telemetry_failures_total", Help: "Failed score reports"},
		[]string{"sink"},
	)
	rpcsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "patrol_grpc_requests_total", Help: "Handled gRPC calls"},
		[]string{"method", "code"},
	)
	exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "patrol_exports_total", Help: "Score export attempts"},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(auditsTotal, auditDuration, overallScore, eventsIngested, ingestHead, telemetryFailures, rpcsTotal, exportsTotal)
}

// Audit outcomes.
const (
	OutcomePassed     = "passed"
	OutcomeInvalid    = "invalid"
	OutcomeTaskFailed = "task_failed"
	OutcomeError      = "error"
)

// ObserveAudit records one finished audit.
func ObserveAudit(task, outcome string, elapsed time.Duration, overall float64) {
	auditsTotal.WithLabelValues(task, outcome).Inc()
	auditDuration.WithLabelValues(task).Observe(elapsed.Seconds())
	if outcome != OutcomeError {
		overallScore.WithLabelValues(task).Observe(overall)
	}
}

// ObserveIngest records the outcome of one AddEvents call.
func ObserveIngest(res store.BulkResult, head int64) {
	eventsIngested.WithLabelValues("inserted").Add(float64(res.Inserted))
	eventsIngested.WithLabelValues("duplicate").Add(float64(res.Duplicates))
	eventsIngested.WithLabelValues("failed").Add(float64(len(res.Failures)))
	if head > 0 {
		ingestHead.Set(float64(head))
	}
}

// TelemetryFailed counts a score report that could not be delivered.
func TelemetryFailed(sink string) {
	telemetryFailures.WithLabelValues(sink).Inc()
}

// ObserveExport counts one export run.
func ObserveExport(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	exportsTotal.WithLabelValues(status).Inc()
}

// ObserveRPC counts one handled gRPC call.
func ObserveRPC(method, code string) {
	rpcsTotal.WithLabelValues(method, code).Inc()
}
