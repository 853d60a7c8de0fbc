package pipeline

import (
	"github.com/klauspost/cpuid/v2"

	"github.com/bramsnet/meteorscan/internal/logging"
)

// WorkerCount resolves Settings.Processing.Threads' "0 = use all CPUs"
// convention against the actual logical core count, grounded on the
// teacher's cpuspec fallback (when no performance-core model match
// applies, it falls back to cpuid.CPU.LogicalCores).
func WorkerCount(configuredThreads int) int {
	if configuredThreads > 0 {
		return configuredThreads
	}
	n := cpuid.CPU.LogicalCores
	if n <= 0 {
		n = 1
	}
	return n
}

// LogCPUTopology logs the detected CPU brand and logical core count once
// at startup, the way the teacher's cpuspec does before sizing its worker
// pool.
func LogCPUTopology() {
	logging.Info("cpu topology detected",
		"brand", cpuid.CPU.BrandName,
		"logical_cores", cpuid.CPU.LogicalCores,
		"physical_cores", cpuid.CPU.PhysicalCores)
}
