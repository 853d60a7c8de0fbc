// Package variation implements C7, the PsdVariationDetector: rolling
// per-station noise/calibrator PSD windows and the asymmetric IQR flags
// spec.md §4.7 derives from them.
package variation

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/smallnest/ringbuffer"
	"gonum.org/v1/gonum/stat"
)

// window is a fixed-capacity rolling buffer of float64 samples backed by a
// byte-oriented ring buffer: each value is appended as 8 little-endian
// bytes, and the oldest 8 bytes are evicted before a write would overflow
// capacity. This avoids the O(W) slice-shift a naive append+trim needs on
// every sample, per spec.md §5's StationPsdHistory note.
type window struct {
	rb   *ringbuffer.RingBuffer
	w    int
	full bool
}

func newWindow(w int) *window {
	return &window{rb: ringbuffer.New(w * 8), w: w}
}

func (win *window) push(v float64) {
	if win.w == 0 {
		return
	}
	if win.rb.Length() >= win.w*8 {
		discard := make([]byte, 8)
		_, _ = win.rb.Read(discard)
		win.full = true
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
	_, _ = win.rb.Write(buf)
	if win.rb.Length() >= win.w*8 {
		win.full = true
	}
}

// values returns the current window contents in insertion order, oldest
// first, without consuming the underlying ring buffer.
func (win *window) values() []float64 {
	raw := win.rb.Bytes()
	out := make([]float64, 0, len(raw)/8)
	for i := 0; i+8 <= len(raw); i += 8 {
		out = append(out, math.Float64frombits(binary.LittleEndian.Uint64(raw[i:i+8])))
	}
	return out
}

func (win *window) isFull() bool { return win.full }

func percentiles(sorted []float64, lo, hi float64) (float64, float64) {
	q1 := stat.Quantile(lo, stat.LinInterp, sorted, nil)
	q3 := stat.Quantile(hi, stat.LinInterp, sorted, nil)
	return q1, q3
}

func sortedCopy(values []float64) []float64 {
	out := append([]float64(nil), values...)
	sort.Float64s(out)
	return out
}
