package spectrogram

import (
	"math"
	"testing"

	"github.com/bramsnet/meteorscan/internal/recording"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toneRecording(fs float64, freqHz float64, seconds float64) *recording.Recording {
	n := int(fs * seconds)
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(16000 * math.Sin(2*math.Pi*freqHz*float64(i)/fs))
	}
	return &recording.Recording{FS: fs, Samples: samples}
}

func TestComputeInvariants(t *testing.T) {
	t.Parallel()
	rec := toneRecording(5512, 1000, 5)
	sg, err := Compute(rec, 16384, 14488)
	require.NoError(t, err)

	assert.Equal(t, 0.0, sg.Freqs[0])
	assert.InDelta(t, rec.FS/2, sg.Freqs[len(sg.Freqs)-1], 1e-9)
	for i := 1; i < len(sg.Freqs); i++ {
		assert.Greater(t, sg.Freqs[i], sg.Freqs[i-1])
	}

	maxVal := 0.0
	rows, cols := sg.P.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := sg.P.At(r, c)
			assert.GreaterOrEqual(t, v, 0.0)
			if v > maxVal {
				maxVal = v
			}
		}
	}
	assert.InDelta(t, 1.0, maxVal, 1e-9)
}

func TestComputeRejectsShortRecording(t *testing.T) {
	t.Parallel()
	rec := &recording.Recording{FS: 5512, Samples: make([]int16, 100)}
	_, err := Compute(rec, 16384, 14488)
	require.Error(t, err)
}

func TestComputeDefaultsAppliedWhenZero(t *testing.T) {
	t.Parallel()
	rec := toneRecording(5512, 1000, 5)
	sg, err := Compute(rec, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 8193, sg.Rows())
}
