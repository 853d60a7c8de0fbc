// Package pipeline implements C8, the PipelineOrchestrator: it drives
// C1→C2→C3→C4→C5 (detection mode, spec.md §4.8 first half) and
// C1→C6→C7 (monitoring mode, second half), fanning work out over a
// bounded worker pool and handling per-file failure containment per
// spec.md §7's propagation policy.
package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/bramsnet/meteorscan/internal/conf"
	"github.com/bramsnet/meteorscan/internal/datastore"
	"github.com/bramsnet/meteorscan/internal/logging"
	"github.com/bramsnet/meteorscan/internal/meteor"
	"github.com/bramsnet/meteorscan/internal/observability/metrics"
	"github.com/bramsnet/meteorscan/internal/psd"
	"github.com/bramsnet/meteorscan/internal/recording"
	"github.com/bramsnet/meteorscan/internal/report"
	"github.com/bramsnet/meteorscan/internal/repository"
	"github.com/bramsnet/meteorscan/internal/variation"
)

// Orchestrator wires the repository, catalog, variation detector, and
// report sinks C8 drives its two run modes through.
type Orchestrator struct {
	Source      repository.Source
	Store       datastore.Store
	Detector    *variation.Detector
	CSV         *report.CSVWriter
	Alerts      report.AlertSink
	Candidates  report.CandidateSink
	WorkerCount int
	PsdBands    psd.Bands
	Metrics     *metrics.PipelineMetrics

	reuseCache *cache.Cache
}

// New builds an Orchestrator from settings and its already-opened
// collaborators. pipelineMetrics may be nil, in which case recording calls
// are no-ops.
func New(settings *conf.Settings, store datastore.Store, source repository.Source,
	alerts report.AlertSink, candidates report.CandidateSink, pipelineMetrics *metrics.PipelineMetrics) *Orchestrator {
	intervalMin := settings.Monitoring.IntervalMinutes
	if intervalMin <= 0 {
		intervalMin = 5
	}
	return &Orchestrator{
		Source:      source,
		Store:       store,
		Detector:    variation.NewDetector(variation.WindowSize(intervalMin)),
		CSV:         &report.CSVWriter{Destination: settings.Output.CSV.Destination},
		Alerts:      alerts,
		Candidates:  candidates,
		WorkerCount: WorkerCount(settings.Processing.Threads),
		PsdBands:    psd.DefaultBands(),
		Metrics:     pipelineMetrics,
		reuseCache:  cache.New(24*time.Hour, time.Hour),
	}
}

// fileResult is one recording's outcome, successful or not, kept so a
// single bad file never aborts the run (spec.md §7: "C1 errors abort the
// current file only").
type fileResult struct {
	entry      repository.Entry
	rec        *recording.Recording
	candidates []meteor.Candidate
	err        error
}

// DetectionSummary reports per-station counts and decode failures from
// one RunDetection call.
type DetectionSummary struct {
	RunID            string
	PerStationCounts map[string]int
	FilesSkipped     int
}

// RunDetection executes detection mode for one instant across stations,
// spec.md §4.8's first half: discover covering entries, decode and run
// C2–C5 on each concurrently, sort chronologically, emit CSV rows and
// publish accepted candidates.
func (o *Orchestrator) RunDetection(ctx context.Context, instant time.Time, stations []string, antennas []int) (DetectionSummary, error) {
	runID := uuid.NewString()
	runStart := time.Now()
	defer func() {
		o.Metrics.RecordRunDuration("detect", time.Since(runStart).Seconds())
	}()

	entries, err := o.Source.ListCovering(ctx, instant, stations)
	if err != nil {
		return DetectionSummary{RunID: runID}, err
	}
	entries = filterByAntenna(entries, antennas)

	results := o.decodeAndDetectAll(ctx, entries, instant)

	sort.Slice(results, func(i, j int) bool {
		if results[i].rec == nil || results[j].rec == nil {
			return results[i].rec != nil
		}
		return results[i].rec.StartUs < results[j].rec.StartUs
	})

	summary := DetectionSummary{RunID: runID, PerStationCounts: map[string]int{}}
	var rows []report.Row

	for _, res := range results {
		if res.err != nil {
			summary.FilesSkipped++
			o.Metrics.RecordDecodeFailure("detect")
			logging.Warn("skipping recording after decode/detect failure",
				"run_id", runID, "path", res.entry.Path, "error", res.err)
			continue
		}
		summary.PerStationCounts[res.rec.LocationCode] += len(res.candidates)
		o.Metrics.RecordCandidates(res.rec.LocationCode, res.rec.Antenna, len(res.candidates))

		for _, c := range res.candidates {
			meteorTime := res.rec.StartTime().Add(time.Duration(c.TimeReprSec * float64(time.Second)))
			rows = append(rows, report.Row{
				LocationCode: res.rec.LocationCode,
				AntennaID:    res.rec.Antenna,
				FileStart:    res.rec.StartTime(),
				MeteorCount:  len(res.candidates),
				MeteorTime:   meteorTime,
				FMinHz:       c.FMinHz,
				FMaxHz:       c.FMaxHz,
			})

			if o.Candidates != nil {
				if pubErr := o.Candidates.PublishCandidate(ctx, res.rec.LocationCode, res.rec.Antenna, res.rec.StartTime(), c); pubErr != nil {
					logging.Warn("candidate publish failed", "run_id", runID, "error", pubErr)
				}
			}
		}
	}

	if o.CSV != nil && len(rows) > 0 {
		if err := o.CSV.WriteRows(rows); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

// decodeAndDetectAll fans entries out over o.WorkerCount goroutines,
// preserving entry order in the returned slice (each goroutine writes its
// own index) so sorting afterward is deterministic.
func (o *Orchestrator) decodeAndDetectAll(ctx context.Context, entries []repository.Entry, instant time.Time) []fileResult {
	results := make([]fileResult, len(entries))
	workers := o.WorkerCount
	if workers <= 0 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	g, gctx := errgroup.WithContext(context.Background())

	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i] = fileResult{entry: entry, err: ctx.Err()}
				return nil
			}
			defer func() { <-sem }()

			rec, err := decodeEntry(gctx, o.Source, entry, instant)
			if err != nil {
				results[i] = fileResult{entry: entry, err: err}
				return nil
			}
			candidates, err := detectCandidates(rec)
			if err != nil {
				results[i] = fileResult{entry: entry, rec: rec, err: err}
				return nil
			}
			results[i] = fileResult{entry: entry, rec: rec, candidates: candidates}
			return nil
		})
	}
	_ = g.Wait() // per-file errors are carried in fileResult, never aborting the batch

	return results
}

func filterByAntenna(entries []repository.Entry, antennas []int) []repository.Entry {
	if len(antennas) == 0 {
		return entries
	}
	wanted := make(map[int]bool, len(antennas))
	for _, a := range antennas {
		wanted[a] = true
	}
	out := entries[:0:0]
	for _, e := range entries {
		if wanted[e.Antenna] {
			out = append(out, e)
		}
	}
	return out
}

