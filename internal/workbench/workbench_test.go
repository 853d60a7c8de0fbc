package workbench

import (
	"testing"

	"github.com/bramsnet/meteorscan/internal/spectrogram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func smallSpectrogram(rows, cols int, fill func(r, c int) float64) *spectrogram.Spectrogram {
	p := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			p.Set(r, c, fill(r, c))
		}
	}
	freqs := make([]float64, rows)
	for i := range freqs {
		freqs[i] = float64(i)
	}
	return &spectrogram.Spectrogram{P: p, Freqs: freqs, FS: 100, FreqResolution: 1}
}

func TestConvolveIdentityIsNoOp(t *testing.T) {
	t.Parallel()
	sg := smallSpectrogram(5, 5, func(r, c int) float64 { return float64(r*5 + c) })
	wb := New(sg)
	before := mat.NewDense(5, 5, nil)
	before.Copy(wb.P)

	identity := Kernel{{1}}
	for _, reps := range []int{0, 1, 3} {
		wb2 := New(sg)
		wb2.Convolve(identity, reps, 0, 5)
		assert.True(t, mat.Equal(before, wb2.P), "repeat=%d should be a no-op", reps)
	}
}

func TestFilterByPercentileZeroIsNoOp(t *testing.T) {
	t.Parallel()
	sg := smallSpectrogram(4, 4, func(r, c int) float64 { return float64(r + c + 1) })
	wb := New(sg)
	before := mat.NewDense(4, 4, nil)
	before.Copy(wb.P)

	wb.FilterByPercentile(0, 0, 4)
	assert.True(t, mat.Equal(before, wb.P))
}

func TestDeleteShortComponentsClearsEverythingWhenMinHeightExceedsRows(t *testing.T) {
	t.Parallel()
	rows, cols := 6, 6
	sg := smallSpectrogram(rows, cols, func(r, c int) float64 { return 1.0 })
	wb := New(sg)

	wb.DeleteShortComponents(rows+1, 0, cols, 0.01)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			assert.Equal(t, deletedCellValue, wb.P.At(r, c))
		}
	}
}

func TestLabelComponentsFindsTwoSeparateBlocks(t *testing.T) {
	t.Parallel()
	rows, cols := 6, 6
	sg := smallSpectrogram(rows, cols, func(r, c int) float64 { return 0 })
	wb := New(sg)
	wb.P.Set(0, 0, 1)
	wb.P.Set(0, 1, 1)
	wb.P.Set(1, 0, 1)
	wb.P.Set(4, 4, 1)
	wb.P.Set(4, 5, 1)

	comps := wb.LabelComponents(0, cols, 0.5)
	require.Len(t, comps, 2)
}

func TestBinarizeThreshold(t *testing.T) {
	t.Parallel()
	sg := smallSpectrogram(3, 3, func(r, c int) float64 { return float64(r) })
	wb := New(sg)
	bin := wb.Binarize(1, 0, 3)
	assert.Equal(t, 0.0, bin.At(0, 0))
	assert.Equal(t, 0.0, bin.At(1, 0))
	assert.Equal(t, 1.0, bin.At(2, 0))
}
