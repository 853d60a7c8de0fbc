package beacon

import (
	"math"
	"testing"

	"github.com/bramsnet/meteorscan/internal/recording"
	"github.com/bramsnet/meteorscan/internal/spectrogram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toneSpectrogram(t *testing.T, freqHz, fs, seconds float64) *spectrogram.Spectrogram {
	t.Helper()
	n := int(fs * seconds)
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(16000 * math.Sin(2*math.Pi*freqHz*float64(i)/fs))
	}
	sg, err := spectrogram.Compute(&recording.Recording{FS: fs, Samples: samples}, 16384, 14488)
	require.NoError(t, err)
	return sg
}

func TestLocateFindsPureTone(t *testing.T) {
	t.Parallel()
	sg := toneSpectrogram(t, 1000, 5512, 5)
	band := Locate(sg, 800, 1200)

	require.True(t, band.Found)
	expected := int(math.Round(1000 / sg.FreqResolution))
	assert.InDelta(t, expected, band.RowCenter, 1)
}

func TestLocateFallsBackOnNoise(t *testing.T) {
	t.Parallel()
	n := int(5512 * 5)
	samples := make([]int16, n)
	seed := uint64(12345)
	for i := range samples {
		seed = seed*6364136223846793005 + 1
		samples[i] = int16(seed >> 48)
	}
	sg, err := spectrogram.Compute(&recording.Recording{FS: 5512, Samples: samples}, 16384, 14488)
	require.NoError(t, err)

	band := Locate(sg, 800, 1200)
	assert.False(t, band.Found)
	assert.Equal(t, int(math.Round(1000/sg.FreqResolution)), band.RowCenter)
}

func TestSuppressLowersBeaconBand(t *testing.T) {
	t.Parallel()
	sg := toneSpectrogram(t, 1000, 5512, 5)
	band := Locate(sg, 800, 1200)
	require.True(t, band.Found)

	beforeMax := 0.0
	for col := 0; col < sg.Cols(); col++ {
		if v := sg.P.At(band.RowCenter, col); v > beforeMax {
			beforeMax = v
		}
	}

	Suppress(sg, band)

	afterMax := 0.0
	for col := 0; col < sg.Cols(); col++ {
		if v := sg.P.At(band.RowCenter, col); v > afterMax {
			afterMax = v
		}
	}
	assert.Less(t, afterMax, beforeMax/1000)

	for col := 0; col < sg.Cols(); col++ {
		for row := band.RowLo; row <= band.RowHi; row++ {
			assert.GreaterOrEqual(t, sg.P.At(row, col), suppressFloor)
		}
	}
}
