package variation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowSizeMatchesTwentyDayRetention(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 20*1440, WindowSize(1))
	assert.Equal(t, 2880, WindowSize(10))
	assert.Equal(t, 576, WindowSize(50))
}

func TestNoFlagUntilWindowIsFull(t *testing.T) {
	t.Parallel()
	d := NewDetector(5)
	for i := 0; i < 5; i++ {
		flags := d.Observe("BEHAA", 1, time.Time{}, 1.0, nil)
		assert.Empty(t, flags)
	}
}

func TestNoiseIncreaseFlag(t *testing.T) {
	t.Parallel()
	d := NewDetector(10)
	for i := 0; i < 10; i++ {
		d.Observe("BEHAA", 1, time.Time{}, 1.0, nil)
	}
	flags := d.Observe("BEHAA", 1, time.Time{}, 1000.0, nil)
	require.Len(t, flags, 1)
	assert.Equal(t, NoiseMetric, flags[0].Metric)
	assert.Equal(t, Increase, flags[0].Direction)
}

func TestNoiseDecreaseFlagOnZero(t *testing.T) {
	t.Parallel()
	d := NewDetector(10)
	for i := 0; i < 10; i++ {
		d.Observe("BEHAA", 1, time.Time{}, 1.0, nil)
	}
	flags := d.Observe("BEHAA", 1, time.Time{}, 0.0, nil)
	require.Len(t, flags, 1)
	assert.Equal(t, Decrease, flags[0].Direction)
}

func TestCalibratorDropFlaggedIndependentlyOfNoise(t *testing.T) {
	t.Parallel()
	d := NewDetector(10)
	for i := 0; i < 10; i++ {
		cal := 5.0
		d.Observe("BEHAA", 1, time.Time{}, 1.0, &cal)
	}
	cal := 0.0
	flags := d.Observe("BEHAA", 1, time.Time{}, 1.0, &cal)
	require.Len(t, flags, 1)
	assert.Equal(t, CalibratorMetric, flags[0].Metric)
	assert.Equal(t, Decrease, flags[0].Direction)
}

func TestStationsHaveIndependentWindows(t *testing.T) {
	t.Parallel()
	d := NewDetector(5)
	for i := 0; i < 5; i++ {
		d.Observe("BEHAA", 1, time.Time{}, 1.0, nil)
	}
	flags := d.Observe("BEDOUR", 2, time.Time{}, 1.0, nil)
	assert.Empty(t, flags, "a fresh station's window should not be pre-filled by another station")
}

func TestStableValuesNeverFlag(t *testing.T) {
	t.Parallel()
	d := NewDetector(20)
	for i := 0; i < 40; i++ {
		flags := d.Observe("BEHAA", 1, time.Time{}, 1.0, nil)
		assert.Empty(t, flags)
	}
}
