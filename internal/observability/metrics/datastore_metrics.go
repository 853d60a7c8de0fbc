// Package metrics provides Prometheus instrumentation for meteorscan,
// registered under a single registry exposed by the C14 observability
// server (internal/observability/server.go).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DatastoreMetrics instruments gorm query operations, durations, result
// sizes, and errors, recorded by datastore.GormLogger on every query.
type DatastoreMetrics struct {
	operations prometheus.CounterVec
	durations  prometheus.HistogramVec
	resultSize prometheus.HistogramVec
	errorsVec  prometheus.CounterVec
}

// NewDatastoreMetrics registers the datastore metric families on reg and
// returns the instrumented recorder.
func NewDatastoreMetrics(reg prometheus.Registerer) *DatastoreMetrics {
	m := &DatastoreMetrics{
		operations: *prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meteorscan",
			Subsystem: "datastore",
			Name:      "operations_total",
			Help:      "Count of database operations by operation, table, and status.",
		}, []string{"operation", "table", "status"}),
		durations: *prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "meteorscan",
			Subsystem: "datastore",
			Name:      "operation_duration_seconds",
			Help:      "Database operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "table"}),
		resultSize: *prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "meteorscan",
			Subsystem: "datastore",
			Name:      "query_result_rows",
			Help:      "Rows returned or affected per query.",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		}, []string{"operation", "table"}),
		errorsVec: *prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meteorscan",
			Subsystem: "datastore",
			Name:      "operation_errors_total",
			Help:      "Count of database operation errors by operation, table, and error category.",
		}, []string{"operation", "table", "error_type"}),
	}
	reg.MustRegister(&m.operations, &m.durations, &m.resultSize, &m.errorsVec)
	return m
}

// RecordDbOperation records one completed operation's status (success/error).
func (m *DatastoreMetrics) RecordDbOperation(operation, table, status string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, table, status).Inc()
}

// RecordDbOperationError records one failed operation, categorized by error type.
func (m *DatastoreMetrics) RecordDbOperationError(operation, table, errorType string) {
	if m == nil {
		return
	}
	m.errorsVec.WithLabelValues(operation, table, errorType).Inc()
}

// RecordDbOperationDuration records one operation's wall-clock duration.
func (m *DatastoreMetrics) RecordDbOperationDuration(operation, table string, seconds float64) {
	if m == nil {
		return
	}
	m.durations.WithLabelValues(operation, table).Observe(seconds)
}

// RecordQueryResultSize records the row count a query returned or affected.
func (m *DatastoreMetrics) RecordQueryResultSize(operation, table string, rows int) {
	if m == nil {
		return
	}
	m.resultSize.WithLabelValues(operation, table).Observe(float64(rows))
}
