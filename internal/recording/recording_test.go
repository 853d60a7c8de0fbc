package recording

import (
	"archive/tar"
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildWav(t *testing.T, fmtSampleRate uint32, bra *bra1Layout, pcm []int16, truncateDataBy int) []byte {
	t.Helper()

	var fmtBody bytes.Buffer
	require.NoError(t, binary.Write(&fmtBody, binary.LittleEndian, fmtChunk{
		AudioFormat: 1, NumChannels: 1, SampleRate: fmtSampleRate,
		ByteRate: fmtSampleRate * 2, BlockAlign: 2, BitsPerSample: 16,
	}))

	var dataBody bytes.Buffer
	require.NoError(t, binary.Write(&dataBody, binary.LittleEndian, pcm))
	dataBytes := dataBody.Bytes()
	declaredSize := uint32(len(dataBytes))
	if truncateDataBy > 0 {
		dataBytes = dataBytes[:len(dataBytes)-truncateDataBy]
	}

	var body bytes.Buffer
	writeChunk(t, &body, "fmt ", fmtBody.Bytes())
	if bra != nil {
		var braBody bytes.Buffer
		require.NoError(t, binary.Write(&braBody, binary.LittleEndian, bra))
		writeChunk(t, &body, "BRA1", braBody.Bytes())
	}
	writeChunkDeclaredSize(t, &body, "data", dataBytes, declaredSize)

	var out bytes.Buffer
	out.WriteString("RIFF")
	require.NoError(t, binary.Write(&out, binary.LittleEndian, uint32(4+body.Len())))
	out.WriteString("WAVE")
	out.Write(body.Bytes())
	return out.Bytes()
}

func writeChunk(t *testing.T, buf *bytes.Buffer, id string, payload []byte) {
	t.Helper()
	writeChunkDeclaredSize(t, buf, id, payload, uint32(len(payload)))
}

func writeChunkDeclaredSize(t *testing.T, buf *bytes.Buffer, id string, payload []byte, declaredSize uint32) {
	t.Helper()
	buf.WriteString(id)
	require.NoError(t, binary.Write(buf, binary.LittleEndian, declaredSize))
	buf.Write(payload)
	if len(payload)%2 == 1 {
		buf.WriteByte(0)
	}
}

func TestDecodeRejectsNonRiff(t *testing.T) {
	t.Parallel()
	_, err := Decode([]byte("not a riff file at all"))
	require.Error(t, err)
}

func TestDecodeFailsOnMissingDataChunk(t *testing.T) {
	t.Parallel()
	var fmtBody bytes.Buffer
	require.NoError(t, binary.Write(&fmtBody, binary.LittleEndian, fmtChunk{
		AudioFormat: 1, NumChannels: 1, SampleRate: 5512, ByteRate: 11024, BlockAlign: 2, BitsPerSample: 16,
	}))
	var body bytes.Buffer
	writeChunk(t, &body, "fmt ", fmtBody.Bytes())

	var out bytes.Buffer
	out.WriteString("RIFF")
	require.NoError(t, binary.Write(&out, binary.LittleEndian, uint32(4+body.Len())))
	out.WriteString("WAVE")
	out.Write(body.Bytes())

	_, err := Decode(out.Bytes())
	require.Error(t, err)
}

func TestDecodeRejectsStereo(t *testing.T) {
	t.Parallel()
	var fmtBody bytes.Buffer
	require.NoError(t, binary.Write(&fmtBody, binary.LittleEndian, fmtChunk{
		AudioFormat: 1, NumChannels: 2, SampleRate: 5512, ByteRate: 22048, BlockAlign: 4, BitsPerSample: 16,
	}))
	var dataBody bytes.Buffer
	require.NoError(t, binary.Write(&dataBody, binary.LittleEndian, []int16{1, 2, 3, 4}))

	var body bytes.Buffer
	writeChunk(t, &body, "fmt ", fmtBody.Bytes())
	writeChunk(t, &body, "data", dataBody.Bytes())

	var out bytes.Buffer
	out.WriteString("RIFF")
	require.NoError(t, binary.Write(&out, binary.LittleEndian, uint32(4+body.Len())))
	out.WriteString("WAVE")
	out.Write(body.Bytes())

	_, err := Decode(out.Bytes())
	require.Error(t, err)
}

func TestBra1SampleRateOverridesFmt(t *testing.T) {
	t.Parallel()
	bra := &bra1Layout{SampleRate: 5512.5, StartUs: 1700000000000000}
	copy(bra.StationCode[:], "BE0001")
	pcm := make([]int16, 100)
	data := buildWav(t, 5512, bra, pcm, 0)

	rec, err := Decode(data)
	require.NoError(t, err)
	assert.InDelta(t, 5512.5, rec.FS, 1e-9)
	assert.Equal(t, "BE0001", rec.LocationCode)
}

func TestDecodeTruncatedDataChunkDoesNotFail(t *testing.T) {
	t.Parallel()
	pcm := make([]int16, 1000)
	for i := range pcm {
		pcm[i] = int16(i)
	}
	data := buildWav(t, 5512, nil, pcm, 1000)

	rec, err := Decode(data)
	require.NoError(t, err)
	assert.Less(t, len(rec.Samples), 1000)
	assert.Greater(t, len(rec.Samples), 0)
}

func TestParseArchiveMemberName(t *testing.T) {
	t.Parallel()
	meta, ok := ParseArchiveMemberName("RAD_BEDOUR_20240615_1230_BEHUMA_SYS001.wav")
	require.True(t, ok)
	assert.Equal(t, "BEHUMA", meta.Station)
	assert.Equal(t, 1, meta.SystemNumber)
	assert.Equal(t, 2024, meta.Timestamp.Year())

	_, ok = ParseArchiveMemberName("readme.txt")
	assert.False(t, ok)
}

func TestDecodeArchivePicksClosestMemberWithinWindow(t *testing.T) {
	t.Parallel()
	pcm := make([]int16, 50)
	wavBytes := buildWav(t, 5512, nil, pcm, 0)

	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	names := []string{
		"RAD_BEDOUR_20240615_1200_BEHUMA_SYS001.wav",
		"RAD_BEDOUR_20240615_1230_BEHUMA_SYS001.wav",
	}
	for _, n := range names {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: n, Size: int64(len(wavBytes)), Mode: 0o644, Typeflag: tar.TypeReg}))
		_, err := tw.Write(wavBytes)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())

	at := time.Date(2024, 6, 15, 12, 31, 0, 0, time.UTC)
	rec, err := DecodeArchive(tarBuf.Bytes(), at, false)
	require.NoError(t, err)
	assert.Equal(t, "RAD_BEDOUR_20240615_1230_BEHUMA_SYS001.wav", rec.SourceMember)
}

func TestDecodeArchiveNoMatchOutsideWindow(t *testing.T) {
	t.Parallel()
	pcm := make([]int16, 50)
	wavBytes := buildWav(t, 5512, nil, pcm, 0)

	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "RAD_BEDOUR_20240615_1200_BEHUMA_SYS001.wav", Size: int64(len(wavBytes)), Mode: 0o644, Typeflag: tar.TypeReg,
	}))
	_, err := tw.Write(wavBytes)
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	at := time.Date(2024, 6, 15, 13, 0, 0, 0, time.UTC)
	_, err = DecodeArchive(tarBuf.Bytes(), at, false)
	require.Error(t, err)
}
