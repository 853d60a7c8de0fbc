package repository

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/bramsnet/meteorscan/internal/errors"
)

// FileTreeSource walks a locally mounted BRAMS archive rooted at
// <root>/<STATION>/<YYYY>/<MM>/<DD>/RAD_BEDOUR_*.{wav,tar}, as described by
// spec.md §6. IsWavTree selects which suffix a station's files carry; a
// repository instance serves one tree, not a mix of both.
type FileTreeSource struct {
	Root      string
	IsWavTree bool
}

var _ Source = (*FileTreeSource)(nil)

// ListCovering returns every entry for the given stations whose nominal
// [start, start+duration) window overlaps instant, scanning the day
// directory instant falls in plus the adjacent day when instant sits
// within one hour of a day boundary (an hourly tar from the previous day
// can still cover a few minutes past midnight).
func (s *FileTreeSource) ListCovering(ctx context.Context, instant time.Time, stations []string) ([]Entry, error) {
	if _, err := os.Stat(s.Root); err != nil {
		return nil, directoryNotFound(s.Root)
	}

	now := instant.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := []time.Time{now}
	if now.Sub(midnight) < time.Hour {
		days = append(days, now.Add(-24*time.Hour))
	}
	if midnight.Add(24*time.Hour).Sub(now) < time.Hour {
		days = append(days, now.Add(24*time.Hour))
	}

	wanted := make(map[string]bool, len(stations))
	for _, st := range stations {
		wanted[st] = true
	}

	var matches []Entry
	seen := make(map[string]bool)
	for _, day := range days {
		entries, err := s.scanDay(ctx, day)
		if err != nil {
			if errors.IsCategory(err, errors.CategoryDirectoryNotFound) {
				continue // that day has no data yet; not an error for list_covering
			}
			return nil, err
		}
		for _, e := range entries {
			if len(wanted) > 0 && !wanted[e.Station] {
				continue
			}
			if instant.Before(time.UnixMicro(e.StartUs)) || !instant.Before(time.UnixMicro(e.EndUs)) {
				continue
			}
			key := e.Path + "|" + e.Member
			if seen[key] {
				continue
			}
			seen[key] = true
			matches = append(matches, e)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Station != matches[j].Station {
			return matches[i].Station < matches[j].Station
		}
		return matches[i].StartUs < matches[j].StartUs
	})
	return matches, nil
}

// scanDay lists every archive entry under <root>/<STATION>/<YYYY>/<MM>/<DD>
// for the stations directory present on disk for the given UTC day.
func (s *FileTreeSource) scanDay(ctx context.Context, day time.Time) ([]Entry, error) {
	stationDirs, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, directoryNotFound(s.Root)
	}

	var out []Entry
	for _, sd := range stationDirs {
		if !sd.IsDir() {
			continue
		}
		dayDir := filepath.Join(s.Root, sd.Name(),
			strconv.Itoa(day.Year()), fmtTwoDigit(int(day.Month())), fmtTwoDigit(day.Day()))

		if _, err := os.Stat(dayDir); err != nil {
			continue
		}

		walkErr := filepath.WalkDir(dayDir, func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil || d.IsDir() {
				return nil
			}
			start, station, antenna, isTar, ok := parseEntryName(d.Name())
			if !ok {
				return nil
			}
			if isTar == s.IsWavTree {
				return nil // tree is declared wav-only or tar-only; skip the other kind
			}
			startUs := start.UnixMicro()
			out = append(out, Entry{
				Station: station,
				Antenna: antenna,
				StartUs: startUs,
				EndUs:   start.Add(entryDuration(isTar)).UnixMicro(),
				Path:    path,
			})
			return nil
		})
		if walkErr != nil {
			return nil, walkErr
		}
	}
	return out, nil
}

func fmtTwoDigit(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// Open returns a read-only handle to a repository entry. member is ignored
// for FileTreeSource: path already names the concrete file, and tar member
// extraction happens in C1's DecodeArchive once the bytes are in hand.
func (s *FileTreeSource) Open(ctx context.Context, path, member string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).Component("repository").
			Category(errors.CategoryDirectoryNotFound).Context("path", path).Build()
	}
	return f, nil
}
