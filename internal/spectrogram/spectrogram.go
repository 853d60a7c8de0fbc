// Package spectrogram implements C2, the short-time Fourier spectrogram
// engine. Grounded on the gonum FFT usage pattern in the pack's SDR waterfall
// code (NewFFT(n).Coefficients), generalized from a streaming per-buffer FFT
// into the one-shot, fully materialized matrix the workbench needs for
// random column access.
package spectrogram

import (
	"math"

	"github.com/bramsnet/meteorscan/internal/errors"
	"github.com/bramsnet/meteorscan/internal/recording"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/mat"
)

// Spectrogram is the mutable magnitude matrix C2 produces. P is addressed
// P.At(row, col) with row indexing freqs and col indexing times.
type Spectrogram struct {
	Freqs          []float64 // Hz, monotonically increasing
	Times          []float64 // seconds from recording start
	P              *mat.Dense
	FS             float64
	FreqResolution float64
}

// Rows returns the frequency-bin count F.
func (s *Spectrogram) Rows() int { r, _ := s.P.Dims(); return r }

// Cols returns the time-column count T.
func (s *Spectrogram) Cols() int { _, c := s.P.Dims(); return c }

// Clone returns a deep copy, used to split the original/workbench views.
func (s *Spectrogram) Clone() *Spectrogram {
	cp := mat.NewDense(s.Rows(), s.Cols(), nil)
	cp.Copy(s.P)
	return &Spectrogram{
		Freqs: append([]float64(nil), s.Freqs...), Times: append([]float64(nil), s.Times...),
		P: cp, FS: s.FS, FreqResolution: s.FreqResolution,
	}
}

// Compute builds the normalized magnitude spectrogram for rec's samples
// using a Hamming window, defaulting to nperseg=16384, noverlap=14488 per
// spec.md §4.2 when zero values are passed.
func Compute(rec *recording.Recording, nperseg, noverlap int) (*Spectrogram, error) {
	if nperseg <= 0 {
		nperseg = 16384
	}
	if noverlap <= 0 {
		noverlap = 14488
	}
	hop := nperseg - noverlap
	if hop <= 0 {
		return nil, errors.Newf("noverlap (%d) must be less than nperseg (%d)", noverlap, nperseg).
			Component("spectrogram").Category(errors.CategoryNumericDomain).Build()
	}
	n := len(rec.Samples)
	if n < nperseg {
		return nil, errors.Newf("recording has %d samples, fewer than nperseg %d", n, nperseg).
			Component("spectrogram").Category(errors.CategoryNumericDomain).Build()
	}

	win := window.Hamming(make([]float64, nperseg))
	winSumSq := 0.0
	for _, w := range win {
		winSumSq += w * w
	}

	fft := fourier.NewFFT(nperseg)
	f := nperseg/2 + 1
	t := (n-nperseg)/hop + 1

	p := mat.NewDense(f, t, nil)
	segment := make([]float64, nperseg)
	for col := 0; col < t; col++ {
		start := col * hop
		for i := 0; i < nperseg; i++ {
			segment[i] = float64(rec.Samples[start+i]) * win[i]
		}
		coeffs := fft.Coefficients(nil, segment)
		for row := 0; row < f; row++ {
			mag2 := real(coeffs[row])*real(coeffs[row]) + imag(coeffs[row])*imag(coeffs[row])
			power := mag2 / winSumSq
			if row != 0 && row != f-1 {
				power *= 2 // one-sided scaling: double all bins but DC/Nyquist
			}
			p.Set(row, col, power)
		}
	}

	maxVal := mat.Max(p)
	if maxVal > 0 {
		p.Scale(1/maxVal, p)
	}

	freqs := make([]float64, f)
	freqStep := rec.FS / float64(nperseg)
	for i := range freqs {
		freqs[i] = float64(i) * freqStep
	}
	times := make([]float64, t)
	for j := range times {
		times[j] = float64(j*hop) / rec.FS
	}

	return &Spectrogram{
		Freqs: freqs, Times: times, P: p, FS: rec.FS,
		FreqResolution: rec.FS / 2 / float64(f),
	}, nil
}

// ColumnArgmax returns the row index of the maximum value in P[rowLo:rowHi, col].
func (s *Spectrogram) ColumnArgmax(rowLo, rowHi, col int) int {
	best := rowLo
	bestVal := math.Inf(-1)
	for row := rowLo; row < rowHi; row++ {
		v := s.P.At(row, col)
		if v > bestVal {
			bestVal = v
			best = row
		}
	}
	return best
}
