package diskmanager

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCacheFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	return path
}

func TestScanCacheDirSortsOldestFirstAndSkipsUnparseableNames(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeCacheFile(t, dir, "RAD_BEDOUR_20260601_1200_BEHUMA_SYS001.wav")
	writeCacheFile(t, dir, "RAD_BEDOUR_20260101_0000_BEHUMA_SYS001.wav")
	writeCacheFile(t, dir, "not_a_brams_file.txt")

	files, err := scanCacheDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.True(t, files[0].Timestamp.Before(files[1].Timestamp))
}

func TestScanCacheDirMissingDirReturnsNoFilesNoError(t *testing.T) {
	t.Parallel()
	files, err := scanCacheDir(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestAgeBasedCleanupRemovesOnlyFilesOlderThanMaxAge(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	now := time.Now().UTC()

	oldName := "RAD_BEDOUR_" + now.Add(-48*time.Hour).Format("20060102") +
		"_" + now.Add(-48*time.Hour).Format("1504") + "_BEHUMA_SYS001.wav"
	freshName := "RAD_BEDOUR_" + now.Format("20060102") + "_" + now.Format("1504") + "_BEHUMA_SYS001.wav"

	oldPath := writeCacheFile(t, dir, oldName)
	freshPath := writeCacheFile(t, dir, freshName)

	result := AgeBasedCleanup(context.Background(), dir, 24*time.Hour)
	require.NoError(t, result.Err)
	assert.Equal(t, 1, result.FilesRemoved)

	_, err := os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err), "old file should have been removed")
	_, err = os.Stat(freshPath)
	assert.NoError(t, err, "fresh file should remain")
}

func TestAgeBasedCleanupOnEmptyCacheDirIsNoop(t *testing.T) {
	t.Parallel()
	result := AgeBasedCleanup(context.Background(), t.TempDir(), time.Hour)
	require.NoError(t, result.Err)
	assert.Equal(t, 0, result.FilesRemoved)
}

func TestUsageBasedCleanupSkipsWhenBelowTrigger(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeCacheFile(t, dir, "RAD_BEDOUR_20260101_0000_BEHUMA_SYS001.wav")

	// A trigger above any real disk utilization means the policy never acts.
	result := UsageBasedCleanup(context.Background(), dir, 101, 0)
	require.NoError(t, result.Err)
	assert.Equal(t, 0, result.FilesRemoved)

	_, err := os.Stat(path)
	assert.NoError(t, err, "file should survive when usage never crosses the trigger")
}

func TestUsageBasedCleanupDeletesOldestFirstUntilTargetUnreachable(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeCacheFile(t, dir, "RAD_BEDOUR_20260101_0000_BEHUMA_SYS001.wav")
	writeCacheFile(t, dir, "RAD_BEDOUR_20260102_0000_BEHUMA_SYS001.wav")

	// An always-above trigger and an unreachable target drain the whole cache.
	result := UsageBasedCleanup(context.Background(), dir, -1, -1)
	require.NoError(t, result.Err)
	assert.Equal(t, 2, result.FilesRemoved)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAgeBasedCleanupHonorsContextCancellation(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	now := time.Now().UTC().Add(-48 * time.Hour)
	writeCacheFile(t, dir, "RAD_BEDOUR_"+now.Format("20060102")+"_"+now.Format("1504")+"_BEHUMA_SYS001.wav")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := AgeBasedCleanup(ctx, dir, 24*time.Hour)
	assert.Error(t, result.Err)
}
