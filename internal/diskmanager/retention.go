package diskmanager

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/bramsnet/meteorscan/internal/errors"
	"github.com/bramsnet/meteorscan/internal/repository"
)

// FileInfo describes one staged recording in the repository's FTP cache
// directory, parsed from its BRAMS archive filename.
type FileInfo struct {
	Path      string
	Station   string
	Antenna   int
	Timestamp time.Time
	Size      int64
}

// CleanupResult reports the outcome of one cleanup policy run.
type CleanupResult struct {
	Err             error
	FilesRemoved    int
	DiskUtilization int // percent, 0-100
}

// scanCacheDir walks cacheDir and returns every staged recording that
// parses as a BRAMS archive name, oldest first.
func scanCacheDir(cacheDir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.New(err).Component("diskmanager").
			Category(errors.CategoryFileIO).Context("cache_dir", cacheDir).Build()
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		start, station, antenna, _, ok := repository.ParseCacheEntryName(e.Name())
		if !ok {
			continue
		}
		files = append(files, FileInfo{
			Path:      filepath.Join(cacheDir, e.Name()),
			Station:   station,
			Antenna:   antenna,
			Timestamp: start,
			Size:      info.Size(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool { return files[i].Timestamp.Before(files[j].Timestamp) })
	return files, nil
}

// AgeBasedCleanup deletes cached recordings older than maxAge, oldest
// first, stopping once every file younger than maxAge is reached. Mirrors
// the teacher's age-retention policy shape (scan, sort oldest-first,
// delete while eligible, report disk utilization), generalized from
// per-species clip retention to per-station cache pruning.
func AgeBasedCleanup(ctx context.Context, cacheDir string, maxAge time.Duration) CleanupResult {
	const policy = "age"
	start := time.Now()
	defer func() {
		if m := getMetrics(); m != nil {
			m.RecordCleanupDuration(policy, time.Since(start).Seconds())
		}
	}()

	files, err := scanCacheDir(cacheDir)
	if err != nil {
		return CleanupResult{Err: err}
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, f := range files {
		select {
		case <-ctx.Done():
			return CleanupResult{Err: ctx.Err(), FilesRemoved: removed, DiskUtilization: currentUtilization(cacheDir)}
		default:
		}
		if !f.Timestamp.Before(cutoff) {
			break // sorted oldest-first: nothing after this is eligible either
		}
		if delErr := os.Remove(f.Path); delErr != nil {
			if m := getMetrics(); m != nil {
				m.RecordCleanupError(policy, "file_deletion")
				m.RecordFileProcessed(policy, "error")
			}
			GetLogger().Warn("failed to remove aged cache file", "path", f.Path, "error", delErr)
			continue
		}
		if m := getMetrics(); m != nil {
			m.RecordFilesDeleted(policy, 1)
			m.RecordBytesFreed(policy, float64(f.Size))
			m.RecordFileProcessed(policy, "deleted")
		}
		removed++
		runtime.Gosched()
	}

	return CleanupResult{FilesRemoved: removed, DiskUtilization: currentUtilization(cacheDir)}
}

// UsageBasedCleanup deletes the oldest cached recordings, one at a time,
// until disk utilization on cacheDir's volume drops at or below
// targetPercent (or the cache is empty). Mirrors the teacher's
// usage-retention policy: it only acts once GetDiskUsage crosses the
// configured threshold.
func UsageBasedCleanup(ctx context.Context, cacheDir string, triggerPercent, targetPercent float64) CleanupResult {
	const policy = "usage"
	start := time.Now()
	defer func() {
		if m := getMetrics(); m != nil {
			m.RecordCleanupDuration(policy, time.Since(start).Seconds())
		}
	}()

	usage, err := GetDiskUsage(cacheDir)
	if err != nil {
		return CleanupResult{Err: err}
	}
	if usage < triggerPercent {
		return CleanupResult{DiskUtilization: int(usage)}
	}

	files, err := scanCacheDir(cacheDir)
	if err != nil {
		return CleanupResult{Err: err}
	}

	removed := 0
	for _, f := range files {
		select {
		case <-ctx.Done():
			return CleanupResult{Err: ctx.Err(), FilesRemoved: removed, DiskUtilization: currentUtilization(cacheDir)}
		default:
		}

		usage, err = GetDiskUsage(cacheDir)
		if err != nil {
			if m := getMetrics(); m != nil {
				m.RecordCleanupError(policy, "usage_check")
			}
			return CleanupResult{Err: err, FilesRemoved: removed}
		}
		if usage <= targetPercent {
			break
		}

		if delErr := os.Remove(f.Path); delErr != nil {
			if m := getMetrics(); m != nil {
				m.RecordCleanupError(policy, "file_deletion")
				m.RecordFileProcessed(policy, "error")
			}
			GetLogger().Warn("failed to remove cache file under usage pressure", "path", f.Path, "error", delErr)
			continue
		}
		if m := getMetrics(); m != nil {
			m.RecordFilesDeleted(policy, 1)
			m.RecordBytesFreed(policy, float64(f.Size))
			m.RecordFileProcessed(policy, "deleted")
		}
		removed++
		runtime.Gosched()
	}

	return CleanupResult{FilesRemoved: removed, DiskUtilization: currentUtilization(cacheDir)}
}

func currentUtilization(cacheDir string) int {
	usage, err := GetDiskUsage(cacheDir)
	if err != nil {
		return 0
	}
	return int(usage)
}
