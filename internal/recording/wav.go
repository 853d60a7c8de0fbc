package recording

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// bra1Layout mirrors the fixed little-endian BRA1 payload from spec.md §6
// field for field; encoding/binary.Read walks it sequentially with no
// inserted padding, so Go struct alignment never matters here.
type bra1Layout struct {
	Version            uint16
	SampleRate         float64
	LOFreqHz           float64
	StartUs            uint64
	PPSCount           uint64
	BeaconLat          float64
	BeaconLon          float64
	BeaconAlt          float64
	BeaconFreqHz       float64
	BeaconPowerDbm     float64
	BeaconPolarisation uint16
	AntennaID          uint16
	AntennaLat         float64
	AntennaLon         float64
	AntennaAlt         float64
	AntennaAzimuth     float64
	AntennaElevation   float64
	BeaconCode         [6]byte
	ObserverCode       [6]byte
	StationCode        [6]byte
	Description        [234]byte
	Reserved           [256]byte
}

type fmtChunk struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// Decode parses a bare BRAMS WAV container (RIFF/WAVE + fmt/BRA1/data
// chunks, any order) and returns the resulting Recording.
func Decode(data []byte) (*Recording, error) {
	if len(data) < 12 {
		return nil, unexpectedEOF("RIFF header")
	}
	if string(data[0:4]) != "RIFF" {
		return nil, notRiff("missing RIFF magic")
	}
	if string(data[8:12]) != "WAVE" {
		return nil, notRiff("missing WAVE format tag")
	}

	r := &Recording{}
	var fc *fmtChunk
	var bra *bra1Layout
	var samples []int16
	haveData := false

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		pos += 8

		if id != "data" && pos+size > len(data) {
			return nil, unexpectedEOF(fmt.Sprintf("%q chunk payload", id))
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, unexpectedEOF("fmt chunk payload")
			}
			var parsed fmtChunk
			if err := binary.Read(bytes.NewReader(data[pos:pos+16]), binary.LittleEndian, &parsed); err != nil {
				return nil, unexpectedEOF("fmt chunk payload")
			}
			fc = &parsed
		case "BRA1":
			var parsed bra1Layout
			if err := binary.Read(bytes.NewReader(data[pos:pos+size]), binary.LittleEndian, &parsed); err != nil {
				return nil, unexpectedEOF("BRA1 chunk payload")
			}
			bra = &parsed
		case "data":
			haveData = true
			avail := size
			if pos+avail > len(data) {
				avail = len(data) - pos // truncated data chunk: decode what's present, don't fail
			}
			n := avail / 2
			samples = make([]int16, n)
			if err := binary.Read(bytes.NewReader(data[pos:pos+n*2]), binary.LittleEndian, &samples); err != nil {
				return nil, unexpectedEOF("data chunk payload")
			}
			pos += avail
			if size%2 == 1 {
				pos++
			}
			continue
		}

		pos += size
		if size%2 == 1 {
			pos++
		}
	}

	if !haveData {
		return nil, missingData()
	}
	if fc != nil && fc.NumChannels != 1 {
		return nil, unsupportedChannels(fc.NumChannels)
	}

	r.Samples = samples
	switch {
	case bra != nil:
		r.FS = bra.SampleRate
		r.StartUs = int64(bra.StartUs)
		r.LocationCode = trimNulPadded(bra.StationCode[:])
		r.Antenna = int(bra.AntennaID)
		if bra.BeaconFreqHz > 0 {
			r.Beacon = &BeaconMeta{FrequencyHz: bra.BeaconFreqHz, Code: trimNulPadded(bra.BeaconCode[:])}
		}
	case fc != nil:
		r.FS = float64(fc.SampleRate)
	default:
		return nil, missingData()
	}

	return r, nil
}

func trimNulPadded(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
