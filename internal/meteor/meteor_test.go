package meteor

import (
	"math"
	"testing"

	"github.com/bramsnet/meteorscan/internal/recording"
	"github.com/bramsnet/meteorscan/internal/spectrogram"
	"github.com/bramsnet/meteorscan/internal/workbench"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toneWithImpulse(fs float64, seconds float64, impulseAtSec, impulseDurSec, loHz, hiHz float64) *recording.Recording {
	n := int(fs * seconds)
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		t := float64(i) / fs
		v := 16000 * math.Sin(2*math.Pi*1000*t)
		if t >= impulseAtSec && t < impulseAtSec+impulseDurSec {
			mid := (loHz + hiHz) / 2
			v += 20000 * math.Sin(2*math.Pi*mid*t)
		}
		samples[i] = int16(v)
	}
	return &recording.Recording{FS: fs, Samples: samples}
}

func TestExtractOnZeroSpectrogramReturnsEmpty(t *testing.T) {
	t.Parallel()
	rec := &recording.Recording{FS: 5512, Samples: make([]int16, 5512*5)}
	sg, err := spectrogram.Compute(rec, 4096, 2048)
	require.NoError(t, err)
	wb := workbench.New(sg)
	Prepare(wb, sg.FreqResolution, 0, sg.Cols())
	cands := Extract(wb, sg, 0, sg.Cols(), 0, sg.Cols())
	assert.Empty(t, cands)
}

func TestExtractFindsImpulseCandidate(t *testing.T) {
	t.Parallel()
	rec := toneWithImpulse(5512, 6, 2.5, 0.2, 1050, 1150)
	sg, err := spectrogram.Compute(rec, 2048, 1536)
	require.NoError(t, err)
	original := sg.Clone()
	wb := workbench.New(sg)
	Prepare(wb, sg.FreqResolution, 0, sg.Cols())

	cands := Extract(wb, original, 0, sg.Cols(), 0, sg.Cols())
	if assert.NotEmpty(t, cands) {
		found := false
		for _, c := range cands {
			if math.Abs(c.TimeReprSec-2.5) < 0.3 {
				found = true
			}
		}
		assert.True(t, found, "expected a candidate near t=2.5s, got %+v", cands)
	}
}
