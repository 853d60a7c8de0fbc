// Package repository implements C10, the recording-repository contract
// from spec.md §6: list_covering(instant, stations) and open(path, member).
// Grounded on internal/diskmanager's tree-walking idiom and the teacher's
// local/remote source duality, with two concrete Source implementations
// behind one interface: FileTreeSource for a mounted archive tree and
// FTPSource for a centrally mirrored BRAMS FTP host.
package repository

import (
	"context"
	"io"
	"regexp"
	"strconv"
	"time"

	"github.com/bramsnet/meteorscan/internal/errors"
)

// Entry is one archive file or archive-tar covering some station's
// recording window, as returned by ListCovering.
type Entry struct {
	Station string
	Antenna int
	StartUs int64
	EndUs   int64
	Path    string
	Member  string // tar member name; empty for a bare .wav entry
}

// Source is the transport-agnostic repository contract C8's detection and
// monitoring modes consume: discover what covers an instant, then fetch it.
type Source interface {
	ListCovering(ctx context.Context, instant time.Time, stations []string) ([]Entry, error)
	Open(ctx context.Context, path, member string) (io.ReadCloser, error)
}

// entryNamePattern matches the BRAMS archive layout from spec.md §6:
// RAD_BEDOUR_<YYYYMMDD>_<HHMM>_<STATION>_SYS<NNN>.wav or .tar
var entryNamePattern = regexp.MustCompile(`RAD_BEDOUR_(\d{8})_(\d{4})_([A-Za-z0-9]+)_SYS(\d+)\.(wav|tar)$`)

// parseEntryName extracts the minute-stamp, station, antenna, and archive
// kind from a top-level archive file's base name.
func parseEntryName(name string) (start time.Time, station string, antenna int, isTar bool, ok bool) {
	m := entryNamePattern.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, "", 0, false, false
	}
	ts, err := time.ParseInLocation("200601021504", m[1]+m[2], time.UTC)
	if err != nil {
		return time.Time{}, "", 0, false, false
	}
	antNum, _ := strconv.Atoi(m[4])
	return ts, m[3], antNum, m[5] == "tar", true
}

// entryDuration is the nominal coverage window of one top-level archive
// entry: a bare .wav file is one 5-minute BRAMS recording; a .tar bundles
// one hour's worth of 5-minute recordings (spec.md §6's archive layout).
func entryDuration(isTar bool) time.Duration {
	if isTar {
		return time.Hour
	}
	return 5 * time.Minute
}

// ParseCacheEntryName exposes parseEntryName for other packages (notably
// internal/diskmanager's cache-retention policies) that need to recover a
// staged file's station/antenna/timestamp from its BRAMS archive name
// without re-deriving the naming convention.
func ParseCacheEntryName(name string) (start time.Time, station string, antenna int, isTar bool, ok bool) {
	return parseEntryName(name)
}

func directoryNotFound(path string) error {
	return errors.Newf("repository root not found: %s", path).
		Component("repository").Category(errors.CategoryDirectoryNotFound).
		Context("path", path).Build()
}
