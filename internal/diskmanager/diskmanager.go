// Package diskmanager prunes the repository's local FTP-staging cache
// (internal/repository's CacheDir, spec.md §4.10) so a long-running
// monitoring process never fills the volume it stages fetched recordings
// into. Grounded on the teacher's diskmanager service: a package-level
// file logger plus optional Prometheus metrics, age- and usage-based
// cleanup policies, oldest-first priority ordering.
package diskmanager

import (
	"io"
	"log"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/bramsnet/meteorscan/internal/logging"
	"github.com/bramsnet/meteorscan/internal/observability/metrics"
)

var (
	serviceLogger   *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error

	diskMetrics     *metrics.DiskManagerMetrics
	diskMetricsMu   sync.RWMutex
	metricsInitOnce sync.Once
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "diskmanager.log")
	serviceLevelVar.Set(slog.LevelInfo)

	serviceLogger, closeLogger, err = logging.NewFileLogger(logFilePath, "diskmanager", serviceLevelVar)
	if err != nil {
		log.Printf("diskmanager: failed to initialize file logger at %s: %v, falling back to discard", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		serviceLogger = slog.New(fbHandler).With("service", "diskmanager")
		closeLogger = func() error { return nil }
	}
}

// GetLogger returns the package-level logger for the diskmanager service.
func GetLogger() *slog.Logger {
	return serviceLogger
}

// CloseLogger releases the underlying log file; called once at shutdown.
func CloseLogger() error {
	return closeLogger()
}

// SetMetrics installs the Prometheus recorder used by disk usage checks
// and cleanup runs. Safe to call once; later calls are ignored.
func SetMetrics(m *metrics.DiskManagerMetrics) {
	metricsInitOnce.Do(func() {
		diskMetricsMu.Lock()
		defer diskMetricsMu.Unlock()
		diskMetrics = m
	})
}

func getMetrics() *metrics.DiskManagerMetrics {
	diskMetricsMu.RLock()
	defer diskMetricsMu.RUnlock()
	return diskMetrics
}
