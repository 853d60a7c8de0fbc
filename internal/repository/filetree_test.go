package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEntry(t *testing.T, root, station, name string) {
	t.Helper()
	start, _, _, _, ok := parseEntryName(name)
	require.True(t, ok, "fixture name must parse")
	dir := filepath.Join(root, station,
		start.Format("2006"), start.Format("01"), start.Format("02"))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("data"), 0o644))
}

func TestFileTreeSourceListCoveringFindsEntry(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeEntry(t, root, "BEHUMA", "RAD_BEDOUR_20260615_1230_BEHUMA_SYS001.wav")

	src := &FileTreeSource{Root: root, IsWavTree: true}
	instant := time.Date(2026, 6, 15, 12, 32, 0, 0, time.UTC)

	entries, err := src.ListCovering(context.Background(), instant, []string{"BEHUMA"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "BEHUMA", entries[0].Station)
	assert.Equal(t, 1, entries[0].Antenna)
}

func TestFileTreeSourceListCoveringExcludesUnlistedStation(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeEntry(t, root, "BEHUMA", "RAD_BEDOUR_20260615_1230_BEHUMA_SYS001.wav")

	src := &FileTreeSource{Root: root, IsWavTree: true}
	instant := time.Date(2026, 6, 15, 12, 32, 0, 0, time.UTC)

	entries, err := src.ListCovering(context.Background(), instant, []string{"BEOTHE"})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileTreeSourceListCoveringSkipsOutOfWindow(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeEntry(t, root, "BEHUMA", "RAD_BEDOUR_20260615_1230_BEHUMA_SYS001.wav")

	src := &FileTreeSource{Root: root, IsWavTree: true}
	instant := time.Date(2026, 6, 15, 13, 0, 0, 0, time.UTC) // 30 min later, past the 5-min window

	entries, err := src.ListCovering(context.Background(), instant, []string{"BEHUMA"})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileTreeSourceListCoveringIgnoresWrongArchiveKind(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeEntry(t, root, "BEHUMA", "RAD_BEDOUR_20260615_1230_BEHUMA_SYS001.tar")

	src := &FileTreeSource{Root: root, IsWavTree: true} // tree declared wav-only
	instant := time.Date(2026, 6, 15, 12, 32, 0, 0, time.UTC)

	entries, err := src.ListCovering(context.Background(), instant, []string{"BEHUMA"})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileTreeSourceListCoveringMissingRootReturnsError(t *testing.T) {
	t.Parallel()
	src := &FileTreeSource{Root: filepath.Join(t.TempDir(), "does-not-exist"), IsWavTree: true}

	_, err := src.ListCovering(context.Background(), time.Now(), []string{"BEHUMA"})
	require.Error(t, err)
}

func TestFileTreeSourceOpenReadsFile(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeEntry(t, root, "BEHUMA", "RAD_BEDOUR_20260615_1230_BEHUMA_SYS001.wav")
	path := filepath.Join(root, "BEHUMA", "2026", "06", "15", "RAD_BEDOUR_20260615_1230_BEHUMA_SYS001.wav")

	src := &FileTreeSource{Root: root, IsWavTree: true}
	rc, err := src.Open(context.Background(), path, "")
	require.NoError(t, err)
	defer rc.Close()

	data := make([]byte, 4)
	n, err := rc.Read(data)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data[:n]))
}

func TestParseEntryNameRejectsMalformedNames(t *testing.T) {
	t.Parallel()
	_, _, _, _, ok := parseEntryName("not_a_brams_file.wav")
	assert.False(t, ok)
}
