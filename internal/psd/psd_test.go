package psd

import (
	"math"
	"testing"

	"github.com/bramsnet/meteorscan/internal/recording"
	"github.com/stretchr/testify/assert"
)

func tone(fs, freqHz, seconds float64) *recording.Recording {
	n := int(fs * seconds)
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(16000 * math.Sin(2*math.Pi*freqHz*float64(i)/fs))
	}
	return &recording.Recording{FS: fs, Samples: samples}
}

func TestPsdIsNonNegative(t *testing.T) {
	t.Parallel()
	rec := tone(5512, 1500, 2)
	sp := Compute(rec)
	assert.GreaterOrEqual(t, sp.Psd(800, 900), 0.0)
	assert.GreaterOrEqual(t, sp.Psd(100, 2500), 0.0)
}

func TestEstimateFindsCalibratorPeak(t *testing.T) {
	t.Parallel()
	rec := tone(5512, 1500, 3)
	result := Estimate(rec, DefaultBands())
	if assert.NotNil(t, result.CalibratorFreqHz) {
		assert.InDelta(t, 1500, *result.CalibratorFreqHz, 5)
	}
	if assert.NotNil(t, result.CalibratorPsd) {
		assert.Greater(t, *result.CalibratorPsd, 0.0)
	}
}

func TestPsdOnSilenceApproachesZero(t *testing.T) {
	t.Parallel()
	short := &recording.Recording{FS: 5512, Samples: make([]int16, 2048)}
	long := &recording.Recording{FS: 5512, Samples: make([]int16, 65536)}

	shortPsd := Compute(short).Psd(800, 900)
	longPsd := Compute(long).Psd(800, 900)

	assert.GreaterOrEqual(t, shortPsd, 0.0)
	assert.GreaterOrEqual(t, longPsd, 0.0)
	assert.LessOrEqual(t, longPsd, shortPsd+1e-9)
}
