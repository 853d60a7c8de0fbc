package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics instruments C8: per-station candidate counts, PSD
// variation flags, per-file decode failures, and run duration.
type PipelineMetrics struct {
	candidatesFound prometheus.CounterVec
	variationFlags  prometheus.CounterVec
	decodeFailures  prometheus.CounterVec
	runSeconds      prometheus.HistogramVec
}

// NewPipelineMetrics registers the pipeline metric families on reg.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		candidatesFound: *prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meteorscan", Subsystem: "pipeline", Name: "candidates_found_total",
			Help: "Meteor candidates extracted, by station and antenna.",
		}, []string{"station", "antenna"}),
		variationFlags: *prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meteorscan", Subsystem: "pipeline", Name: "variation_flags_total",
			Help: "PSD variation anomalies raised, by station, metric, and direction.",
		}, []string{"station", "metric", "direction"}),
		decodeFailures: *prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meteorscan", Subsystem: "pipeline", Name: "decode_failures_total",
			Help: "Recordings that failed to decode or detect, by run mode.",
		}, []string{"mode"}),
		runSeconds: *prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "meteorscan", Subsystem: "pipeline", Name: "run_duration_seconds",
			Help: "Wall-clock duration of one detection or monitoring run.", Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),
	}
	reg.MustRegister(&m.candidatesFound, &m.variationFlags, &m.decodeFailures, &m.runSeconds)
	return m
}

// RecordCandidates adds n candidates found for station/antenna.
func (m *PipelineMetrics) RecordCandidates(station string, antenna int, n int) {
	if m == nil {
		return
	}
	m.candidatesFound.WithLabelValues(station, strconv.Itoa(antenna)).Add(float64(n))
}

// RecordVariationFlag records one PSD anomaly.
func (m *PipelineMetrics) RecordVariationFlag(station, metric, direction string) {
	if m == nil {
		return
	}
	m.variationFlags.WithLabelValues(station, metric, direction).Inc()
}

// RecordDecodeFailure records one skipped entry in the named run mode
// ("detect" or "monitor").
func (m *PipelineMetrics) RecordDecodeFailure(mode string) {
	if m == nil {
		return
	}
	m.decodeFailures.WithLabelValues(mode).Inc()
}

// RecordRunDuration records one run's wall-clock duration.
func (m *PipelineMetrics) RecordRunDuration(mode string, seconds float64) {
	if m == nil {
		return
	}
	m.runSeconds.WithLabelValues(mode).Observe(seconds)
}
