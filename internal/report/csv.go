// Package report implements C11: CSV emission of detection results plus
// the notification sinks (MQTT candidate publish, shoutrrr alerting) that
// carry C7's variation verdicts and C5's meteor candidates off-process.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/bramsnet/meteorscan/internal/errors"
)

// csvHeader matches spec.md §6's CSV column contract exactly.
var csvHeader = []string{
	"location_code", "antenna_id", "file_start", "meteor_count",
	"meteor_time", "fmin", "fmax", "distance_km",
}

// Row is one detected meteor, one CSV row. Row carries no distance field:
// the distance_km column is always written blank since inter-station
// triangulation is out of scope
// (spec.md §1 Non-goals).
type Row struct {
	LocationCode string
	AntennaID    int
	FileStart    time.Time
	MeteorCount  int
	MeteorTime   time.Time
	FMinHz       float64
	FMaxHz       float64
}

// CSVWriter appends detection rows to a fixed destination file, writing
// the header once when the file does not already exist. encoding/csv is
// the right tool here: the column contract is fixed and no example repo
// in the corpus carries a CSV-writing dependency beyond the stdlib.
type CSVWriter struct {
	Destination string
}

// WriteRows appends rows to w.Destination, creating the file (and its
// header) if it doesn't exist yet.
func (w *CSVWriter) WriteRows(rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	needsHeader := true
	if info, err := os.Stat(w.Destination); err == nil && info.Size() > 0 {
		needsHeader = false
	}

	f, err := os.OpenFile(w.Destination, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.New(err).Component("report").Category(errors.CategoryFileIO).
			Context("destination", w.Destination).Build()
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(csvHeader); err != nil {
			return errors.New(err).Component("report").Category(errors.CategoryFileIO).Build()
		}
	}

	for _, r := range rows {
		record := []string{
			r.LocationCode,
			fmt.Sprintf("%d", r.AntennaID),
			r.FileStart.UTC().Format(time.RFC3339),
			fmt.Sprintf("%d", r.MeteorCount),
			r.MeteorTime.UTC().Format("2006-01-02T15:04:05.000000Z07:00"),
			fmt.Sprintf("%g", r.FMinHz),
			fmt.Sprintf("%g", r.FMaxHz),
			"",
		}
		if err := cw.Write(record); err != nil {
			return errors.New(err).Component("report").Category(errors.CategoryFileIO).Build()
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.New(err).Component("report").Category(errors.CategoryFileIO).Build()
	}
	return nil
}
