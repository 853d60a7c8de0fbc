package recording

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"time"
)

// archiveNamePattern matches the BRAMS archive layout from spec.md §6:
// RAD_BEDOUR_<YYYYMMDD>_<HHMM>_<STATION>_SYS<NNN>.wav
var archiveNamePattern = regexp.MustCompile(`RAD_BEDOUR_(\d{8})_(\d{4})_([A-Za-z0-9]+)_SYS(\d+)\.wav$`)

// ArchiveMember describes a parsed member name inside an hourly tar archive.
type ArchiveMember struct {
	Timestamp    time.Time
	Station      string
	SystemNumber int
}

// ParseArchiveMemberName extracts the minute-stamp and station identity from
// a tar member's base name. Returns false when the name doesn't match the
// BRAMS layout (such members are skipped, not treated as errors).
func ParseArchiveMemberName(name string) (ArchiveMember, bool) {
	m := archiveNamePattern.FindStringSubmatch(name)
	if m == nil {
		return ArchiveMember{}, false
	}
	ts, err := time.ParseInLocation("200601021504", m[1]+m[2], time.UTC)
	if err != nil {
		return ArchiveMember{}, false
	}
	sysNum, _ := strconv.Atoi(m[4])
	return ArchiveMember{Timestamp: ts, Station: m[3], SystemNumber: sysNum}, true
}

// DecodeArchive enumerates a one-hour tar archive's members and decodes the
// single wav entry whose embedded minute-stamp falls within the requested
// window around `at` (strict ±3 min, relaxed ±20 min per spec.md §4.1).
func DecodeArchive(tarData []byte, at time.Time, relaxed bool) (*Recording, error) {
	window := 3 * time.Minute
	if relaxed {
		window = 20 * time.Minute
	}

	tr := tar.NewReader(bytes.NewReader(tarData))
	var best *Recording
	var bestDelta time.Duration = -1

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, unexpectedEOF("tar archive")
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		meta, ok := ParseArchiveMemberName(hdr.Name)
		if !ok {
			continue
		}
		delta := meta.Timestamp.Sub(at)
		if delta < 0 {
			delta = -delta
		}
		if delta > window {
			continue
		}
		if bestDelta != -1 && delta >= bestDelta {
			continue
		}

		payload := make([]byte, hdr.Size)
		if _, err := io.ReadFull(tr, payload); err != nil {
			return nil, unexpectedEOF(fmt.Sprintf("member %s", hdr.Name))
		}
		rec, err := Decode(payload)
		if err != nil {
			continue // malformed member: keep looking, mirrors per-file containment at C1
		}
		rec.SourceMember = hdr.Name
		best = rec
		bestDelta = delta
	}

	if best == nil {
		return nil, noMatchInArchive("tar archive", window)
	}
	return best, nil
}
