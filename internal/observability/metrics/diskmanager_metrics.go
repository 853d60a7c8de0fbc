package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DiskManagerMetrics instruments the repository cache-retention policies:
// disk usage sampling, per-policy cleanup duration/outcome, and files
// processed/deleted/errored counts.
type DiskManagerMetrics struct {
	diskUsedBytes    prometheus.Gauge
	diskTotalBytes   prometheus.Gauge
	diskCheckSeconds prometheus.Histogram
	cleanupSeconds   prometheus.HistogramVec
	filesProcessed   prometheus.CounterVec
	filesDeleted     prometheus.CounterVec
	bytesFreed       prometheus.CounterVec
	cleanupErrors    prometheus.CounterVec
}

// NewDiskManagerMetrics registers the diskmanager metric families on reg.
func NewDiskManagerMetrics(reg prometheus.Registerer) *DiskManagerMetrics {
	m := &DiskManagerMetrics{
		diskUsedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "meteorscan", Subsystem: "diskmanager", Name: "disk_used_bytes",
			Help: "Bytes used on the volume backing the repository cache.",
		}),
		diskTotalBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "meteorscan", Subsystem: "diskmanager", Name: "disk_total_bytes",
			Help: "Total bytes on the volume backing the repository cache.",
		}),
		diskCheckSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "meteorscan", Subsystem: "diskmanager", Name: "disk_check_duration_seconds",
			Help: "Time spent querying filesystem disk usage.", Buckets: prometheus.DefBuckets,
		}),
		cleanupSeconds: *prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "meteorscan", Subsystem: "diskmanager", Name: "cleanup_duration_seconds",
			Help: "Duration of one cleanup policy run.", Buckets: prometheus.DefBuckets,
		}, []string{"policy"}),
		filesProcessed: *prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meteorscan", Subsystem: "diskmanager", Name: "files_processed_total",
			Help: "Cache files considered by a cleanup policy, by outcome.",
		}, []string{"policy", "outcome"}),
		filesDeleted: *prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meteorscan", Subsystem: "diskmanager", Name: "files_deleted_total",
			Help: "Cache files removed by a cleanup policy.",
		}, []string{"policy"}),
		bytesFreed: *prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meteorscan", Subsystem: "diskmanager", Name: "bytes_freed_total",
			Help: "Bytes freed by a cleanup policy.",
		}, []string{"policy"}),
		cleanupErrors: *prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meteorscan", Subsystem: "diskmanager", Name: "cleanup_errors_total",
			Help: "Errors encountered during a cleanup policy run, by stage.",
		}, []string{"policy", "stage"}),
	}
	reg.MustRegister(m.diskUsedBytes, m.diskTotalBytes, m.diskCheckSeconds,
		&m.cleanupSeconds, &m.filesProcessed, &m.filesDeleted, &m.bytesFreed, &m.cleanupErrors)
	return m
}

// UpdateDiskUsage records the current used/total bytes on the cache volume.
func (m *DiskManagerMetrics) UpdateDiskUsage(usedBytes, totalBytes uint64) {
	if m == nil {
		return
	}
	m.diskUsedBytes.Set(float64(usedBytes))
	m.diskTotalBytes.Set(float64(totalBytes))
}

// RecordDiskCheckDuration records how long one disk-usage syscall took.
func (m *DiskManagerMetrics) RecordDiskCheckDuration(seconds float64) {
	if m == nil {
		return
	}
	m.diskCheckSeconds.Observe(seconds)
}

// RecordCleanupDuration records one policy run's wall-clock duration.
func (m *DiskManagerMetrics) RecordCleanupDuration(policy string, seconds float64) {
	if m == nil {
		return
	}
	m.cleanupSeconds.WithLabelValues(policy).Observe(seconds)
}

// RecordFileProcessed records one file a policy considered, tagged by outcome.
func (m *DiskManagerMetrics) RecordFileProcessed(policy, outcome string) {
	if m == nil {
		return
	}
	m.filesProcessed.WithLabelValues(policy, outcome).Inc()
}

// RecordFilesDeleted records n files removed by policy.
func (m *DiskManagerMetrics) RecordFilesDeleted(policy string, n float64) {
	if m == nil {
		return
	}
	m.filesDeleted.WithLabelValues(policy).Add(n)
}

// RecordBytesFreed records bytes reclaimed by policy.
func (m *DiskManagerMetrics) RecordBytesFreed(policy string, bytes float64) {
	if m == nil {
		return
	}
	m.bytesFreed.WithLabelValues(policy).Add(bytes)
}

// RecordCleanupError records one error during policy's stage.
func (m *DiskManagerMetrics) RecordCleanupError(policy, stage string) {
	if m == nil {
		return
	}
	m.cleanupErrors.WithLabelValues(policy, stage).Inc()
}
