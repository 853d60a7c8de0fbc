package datastore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *DataStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, performAutoMigration(db, false, "SQLite", "memory"))
	return &DataStore{DB: db}
}

func TestGetOrCreateSystemIsIdempotent(t *testing.T) {
	t.Parallel()
	ds := newTestStore(t)

	first, err := ds.GetOrCreateSystem("BEHAA", 1)
	require.NoError(t, err)
	second, err := ds.GetOrCreateSystem("BEHAA", 1)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestGetOrCreateSystemDistinguishesAntennas(t *testing.T) {
	t.Parallel()
	ds := newTestStore(t)

	a1, err := ds.GetOrCreateSystem("BEHAA", 1)
	require.NoError(t, err)
	a2, err := ds.GetOrCreateSystem("BEHAA", 2)
	require.NoError(t, err)

	assert.NotEqual(t, a1.ID, a2.ID)
}

func TestAppendPsdBatchUpsertsByStartTimestamp(t *testing.T) {
	t.Parallel()
	ds := newTestStore(t)
	sys, err := ds.GetOrCreateSystem("BEHAA", 1)
	require.NoError(t, err)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	require.NoError(t, ds.AppendPsdBatch(ctx, []PsdSample{
		{SystemID: sys.ID, StartTimestamp: start, NoisePsd: 1.0},
	}))
	require.NoError(t, ds.AppendPsdBatch(ctx, []PsdSample{
		{SystemID: sys.ID, StartTimestamp: start, NoisePsd: 2.0},
	}))

	history, err := ds.PsdHistory(ctx, []uint{sys.ID}, start.Add(-time.Hour), start.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 2.0, history[0].NoisePsd)
}

func TestAppendPsdBatchIsAllOrNothing(t *testing.T) {
	t.Parallel()
	ds := newTestStore(t)
	sys, err := ds.GetOrCreateSystem("BEHAA", 1)
	require.NoError(t, err)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	require.NoError(t, ds.AppendPsdBatch(ctx, []PsdSample{
		{SystemID: sys.ID, StartTimestamp: start, NoisePsd: 1.0},
		{SystemID: sys.ID, StartTimestamp: start.Add(time.Minute), NoisePsd: 2.0},
	}))

	history, err := ds.PsdHistory(ctx, []uint{sys.ID}, start.Add(-time.Hour), start.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestCoverageForFiltersByOverlap(t *testing.T) {
	t.Parallel()
	ds := newTestStore(t)
	sys, err := ds.GetOrCreateSystem("BEHAA", 1)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, ds.RecordCoverage(ctx, FileCoverageRecord{SystemID: sys.ID, StartUs: 1000, EndUs: 2000, Path: "a.wav"}))
	require.NoError(t, ds.RecordCoverage(ctx, FileCoverageRecord{SystemID: sys.ID, StartUs: 5000, EndUs: 6000, Path: "b.wav"}))

	records, err := ds.CoverageFor(ctx, []uint{sys.ID}, 1500, 2500)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a.wav", records[0].Path)
}
