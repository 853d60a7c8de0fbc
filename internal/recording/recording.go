// Package recording implements C1, the BRAMS WAV/tar container decoder.
// Grounded on the teacher's audio-container decoding idiom (immutable value
// type produced by a pure parse function, enhanced errors on malformed
// input) while replacing BirdNET-Go's audiocore/go-audio wav reader with the
// BRA1-aware format spec.md §6 mandates.
package recording

import (
	"time"

	"github.com/bramsnet/meteorscan/internal/errors"
)

// BeaconMeta carries the optional beacon metadata decoded from a BRA1 chunk.
type BeaconMeta struct {
	FrequencyHz float64
	Code        string
}

// Recording is the immutable product of decoding one BRAMS WAV container.
type Recording struct {
	FS            float64 // sample rate in Hz; BRA1 overrides fmt when present
	Samples       []int16 // mono PCM samples
	StartUs       int64   // acquisition start, microseconds since epoch
	LocationCode  string
	Antenna       int
	Beacon        *BeaconMeta
	SourcePath    string // provenance: originating file or archive path
	SourceMember  string // provenance: tar member name, empty for bare wav
}

// EndUs returns the recording's end time, rounded to the nearest microsecond.
func (r *Recording) EndUs() int64 {
	if r.FS <= 0 {
		return r.StartUs
	}
	durationUs := float64(len(r.Samples)) * 1e6 / r.FS
	return r.StartUs + int64(durationUs+0.5)
}

// StartTime returns the acquisition start as a UTC time.Time.
func (r *Recording) StartTime() time.Time {
	return time.UnixMicro(r.StartUs).UTC()
}

func notRiff(msg string) error {
	return errors.Newf("%s", msg).Component("recording").Category(errors.CategoryNotRiff).Build()
}

func unexpectedEOF(context string) error {
	return errors.Newf("unexpected end of data while reading %s", context).
		Component("recording").Category(errors.CategoryUnexpectedEOF).Build()
}

func missingData() error {
	return errors.Newf("no data chunk found").Component("recording").Category(errors.CategoryMissingData).Build()
}

func unsupportedChannels(n uint16) error {
	return errors.Newf("unsupported channel count %d, mono required", n).
		Component("recording").Category(errors.CategoryUnsupportedChannel).
		Context("num_channels", n).Build()
}

func noMatchInArchive(name string, window time.Duration) error {
	return errors.Newf("no archive member matched the requested instant within %s", window).
		Component("recording").Category(errors.CategoryNoMatchInArchive).
		Context("archive", name).Build()
}
