package pipeline

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/bramsnet/meteorscan/internal/conf"
	"github.com/bramsnet/meteorscan/internal/datastore"
	"github.com/bramsnet/meteorscan/internal/meteor"
	"github.com/bramsnet/meteorscan/internal/repository"
	"github.com/bramsnet/meteorscan/internal/variation"
)

// buildTestWav encodes a minimal mono 16-bit PCM WAV (fmt + data chunks
// only, no BRA1) carrying n samples of a pure tone, enough for spectrogram.
// Compute's default 16384-sample window to produce at least one column.
func buildTestWav(n int, freqHz, sampleRate float64) []byte {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(8000 * math.Sin(2*math.Pi*freqHz*float64(i)/sampleRate))
	}

	var data bytes.Buffer
	binary.Write(&data, binary.LittleEndian, samples)

	var fmtChunk bytes.Buffer
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(1))           // PCM
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(1))           // mono
	binary.Write(&fmtChunk, binary.LittleEndian, uint32(sampleRate))  // sample rate
	binary.Write(&fmtChunk, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(2))           // block align
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(16))          // bits per sample

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(4+8+fmtChunk.Len()+8+data.Len()))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(fmtChunk.Len()))
	buf.Write(fmtChunk.Bytes())

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(data.Len()))
	buf.Write(data.Bytes())

	return buf.Bytes()
}

type fakeSource struct {
	entries []repository.Entry
	payload []byte
}

func (f *fakeSource) ListCovering(ctx context.Context, instant time.Time, stations []string) ([]repository.Entry, error) {
	return f.entries, nil
}

func (f *fakeSource) Open(ctx context.Context, path, member string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.payload)), nil
}

type fakeStore struct {
	mu       sync.Mutex
	systems  map[string]*datastore.System
	nextID   uint
	samples  []datastore.PsdSample
	coverage []datastore.FileCoverageRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{systems: make(map[string]*datastore.System)}
}

func (f *fakeStore) Open() error  { return nil }
func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) GetOrCreateSystem(locationCode string, antenna int) (*datastore.System, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := locationCode
	if sys, ok := f.systems[key]; ok {
		return sys, nil
	}
	f.nextID++
	sys := &datastore.System{ID: f.nextID, LocationCode: locationCode, Antenna: antenna}
	f.systems[key] = sys
	return sys, nil
}

func (f *fakeStore) AppendPsdBatch(ctx context.Context, samples []datastore.PsdSample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples = append(f.samples, samples...)
	return nil
}

func (f *fakeStore) PsdHistory(ctx context.Context, systemIDs []uint, from, to time.Time) ([]datastore.PsdSample, error) {
	return nil, nil
}

func (f *fakeStore) CoverageFor(ctx context.Context, systemIDs []uint, startUs, endUs int64) ([]datastore.FileCoverageRecord, error) {
	return nil, nil
}

func (f *fakeStore) RecordCoverage(ctx context.Context, rec datastore.FileCoverageRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.coverage = append(f.coverage, rec)
	return nil
}

type fakeCandidateSink struct {
	mu        sync.Mutex
	published []meteor.Candidate
}

func (f *fakeCandidateSink) PublishCandidate(ctx context.Context, station string, antenna int, fileStart time.Time, c meteor.Candidate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, c)
	return nil
}

type fakeAlertSink struct {
	mu    sync.Mutex
	flags []variation.Flag
}

func (f *fakeAlertSink) SendVariationAlert(ctx context.Context, flag variation.Flag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags = append(f.flags, flag)
	return nil
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunDetectionDecodesEveryEntryAndPublishesCandidates(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		entries: []repository.Entry{
			{Station: "BEHUMA", Antenna: 1, Path: "RAD_BEDOUR_20260101_0000_BEHUMA_SYS001.wav"},
			{Station: "BEHUMA", Antenna: 1, Path: "RAD_BEDOUR_20260101_0000_BEHUMA_SYS002.wav"},
		},
		payload: buildTestWav(18000, 850, 5512),
	}
	sink := &fakeCandidateSink{}

	orch := &Orchestrator{Source: src, WorkerCount: 2, Candidates: sink}

	summary, err := orch.RunDetection(context.Background(), time.Now(), []string{"BEHUMA"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.FilesSkipped)
	// a pure single-tone fixture need not cross the meteor threshold; what
	// matters here is that both entries decoded and detected cleanly.
	assert.NotNil(t, summary.PerStationCounts)
}

func TestFilterByAntennaKeepsOnlyRequestedAntennas(t *testing.T) {
	t.Parallel()

	entries := []repository.Entry{
		{Station: "BEHUMA", Antenna: 1, Path: "a.wav"},
		{Station: "BEHUMA", Antenna: 2, Path: "b.wav"},
	}

	filtered := filterByAntenna(entries, []int{2})
	require.Len(t, filtered, 1)
	assert.Equal(t, 2, filtered[0].Antenna)

	assert.Equal(t, entries, filterByAntenna(entries, nil))
}

func TestWorkerCountUsesConfiguredThreadsWhenPositive(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 4, WorkerCount(4))
}

func TestWorkerCountFallsBackToLogicalCores(t *testing.T) {
	t.Parallel()
	assert.GreaterOrEqual(t, WorkerCount(0), 1)
}

func TestRunMonitoringReuseCacheSkipsSecondPass(t *testing.T) {
	t.Parallel()

	entry := repository.Entry{Station: "BEHUMA", Antenna: 1, Path: "RAD_BEDOUR_20260101_0000_BEHUMA_SYS001.wav"}
	src := &fakeSource{entries: []repository.Entry{entry}, payload: buildTestWav(18000, 850, 5512)}
	store := newFakeStore()
	alerts := &fakeAlertSink{}

	orch := New(testSettings(), store, src, alerts, nil, nil)

	start := time.Now().Add(-10 * time.Minute)
	end := start.Add(5 * time.Minute)

	summary1, err := orch.RunMonitoring(context.Background(), start, end, 5, false, []string{"BEHUMA"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary1.IntervalsRun)

	summary2, err := orch.RunMonitoring(context.Background(), start, end, 5, false, []string{"BEHUMA"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary2.IntervalsReused)
	assert.Equal(t, 0, summary2.IntervalsRun)
}

func TestRunMonitoringOverwriteForcesReprocessing(t *testing.T) {
	t.Parallel()

	entry := repository.Entry{Station: "BEHUMA", Antenna: 1, Path: "RAD_BEDOUR_20260101_0000_BEHUMA_SYS001.wav"}
	src := &fakeSource{entries: []repository.Entry{entry}, payload: buildTestWav(18000, 850, 5512)}
	store := newFakeStore()

	orch := New(testSettings(), store, src, nil, nil, nil)

	start := time.Now().Add(-10 * time.Minute)
	end := start.Add(5 * time.Minute)

	_, err := orch.RunMonitoring(context.Background(), start, end, 5, false, []string{"BEHUMA"}, nil)
	require.NoError(t, err)

	summary, err := orch.RunMonitoring(context.Background(), start, end, 5, true, []string{"BEHUMA"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.IntervalsRun)
	assert.Equal(t, 0, summary.IntervalsReused)
}

func testSettings() *conf.Settings {
	s := &conf.Settings{}
	s.Main.Name = "test"
	s.Monitoring.IntervalMinutes = 5
	s.Processing.Threads = 2
	return s
}
