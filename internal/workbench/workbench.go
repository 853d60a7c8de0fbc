// Package workbench implements C4, the mutable spectrogram buffer that
// backs meteor candidate preparation: kernel convolution, per-column
// percentile filtering, binarization, 4-connected component labelling, and
// small-area deletion (spec.md §4.4).
package workbench

import (
	"sort"

	"github.com/bramsnet/meteorscan/internal/spectrogram"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	defaultLabelThreshold = 0.01
	deletedCellValue      = 1e-7
)

// Workbench owns P_mod, the mutable working copy of a spectrogram's
// magnitude matrix.
type Workbench struct {
	P     *mat.Dense
	Freqs []float64
}

// New copies sg's magnitude matrix into a fresh, independently mutable
// workbench.
func New(sg *spectrogram.Spectrogram) *Workbench {
	rows, cols := sg.P.Dims()
	p := mat.NewDense(rows, cols, nil)
	p.Copy(sg.P)
	return &Workbench{P: p, Freqs: append([]float64(nil), sg.Freqs...)}
}

func (w *Workbench) dims() (int, int) { return w.P.Dims() }

func clampRange(start, end, limit int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end > limit {
		end = limit
	}
	if end < start {
		end = start
	}
	return start, end
}

// Kernel is a small 2D array addressed [row][col].
type Kernel [][]float64

func (k Kernel) dims() (int, int) {
	if len(k) == 0 {
		return 0, 0
	}
	return len(k), len(k[0])
}

// Convolve applies kernel to the column range [start,end) repeat times,
// zero-extending outside the matrix rows and outside [start,end). The kernel origin is
// (rows/2, cols/2) (floored), and each pass reads from a buffered copy so
// in-place overwrite never contaminates later reads within the same pass.
func (w *Workbench) Convolve(kernel Kernel, repeat int, start, end int) {
	rows, cols := w.dims()
	start, end = clampRange(start, end, cols)
	kr, kc := kernel.dims()
	if kr == 0 || kc == 0 || start >= end {
		return
	}
	originRow := kr / 2
	originCol := kc / 2

	for pass := 0; pass < repeat; pass++ {
		src := mat.NewDense(rows, end-start, nil)
		src.Copy(w.P.Slice(0, rows, start, end))

		for r := 0; r < rows; r++ {
			for c := start; c < end; c++ {
				sum := 0.0
				for i := 0; i < kr; i++ {
					sr := r + i - originRow
					if sr < 0 || sr >= rows {
						continue
					}
					for j := 0; j < kc; j++ {
						sc := c + j - originCol - start
						if sc < 0 || sc >= end-start {
							continue
						}
						sum += kernel[i][j] * src.At(sr, sc)
					}
				}
				w.P.Set(r, c, sum)
			}
		}
	}
}

// FilterByPercentile computes the p-th percentile (linear interpolation)
// per column in [start,end) and clamps every cell below it to 0.001.
func (w *Workbench) FilterByPercentile(p float64, start, end int) {
	rows, cols := w.dims()
	start, end = clampRange(start, end, cols)
	colData := make([]float64, rows)
	for c := start; c < end; c++ {
		for r := 0; r < rows; r++ {
			colData[r] = w.P.At(r, c)
		}
		sorted := append([]float64(nil), colData...)
		sort.Float64s(sorted)
		threshold := stat.Quantile(p/100, stat.LinInterp, sorted, nil)
		for r := 0; r < rows; r++ {
			if w.P.At(r, c) < threshold {
				w.P.Set(r, c, 0.001)
			}
		}
	}
}

// Binarize returns a new 0/1 matrix over [start,end): 1 where P > threshold.
func (w *Workbench) Binarize(threshold float64, start, end int) *mat.Dense {
	rows, cols := w.dims()
	start, end = clampRange(start, end, cols)
	out := mat.NewDense(rows, end-start, nil)
	for r := 0; r < rows; r++ {
		for c := start; c < end; c++ {
			if w.P.At(r, c) > threshold {
				out.Set(r, c-start, 1)
			}
		}
	}
	return out
}

// Component is a labelled connected region's bounding box, in the
// workbench's global row/column coordinates.
type Component struct {
	RowStart, RowEnd int // exclusive
	ColStart, ColEnd int // exclusive, global
}

func (c Component) Height() int { return c.RowEnd - c.RowStart }
func (c Component) Width() int  { return c.ColEnd - c.ColStart }

// LabelComponents binarizes [start,end) at threshold and labels 4-connected
// components, returning each one's bounding box.
func (w *Workbench) LabelComponents(start, end int, threshold float64) []Component {
	rows, cols := w.dims()
	start, end = clampRange(start, end, cols)
	width := end - start
	if width <= 0 {
		return nil
	}
	bin := w.Binarize(threshold, start, end)

	visited := make([]bool, rows*width)
	idx := func(r, c int) int { return r*width + c }

	var components []Component
	queue := make([][2]int, 0, rows*width)

	for r := 0; r < rows; r++ {
		for c := 0; c < width; c++ {
			if visited[idx(r, c)] || bin.At(r, c) == 0 {
				continue
			}
			queue = queue[:0]
			queue = append(queue, [2]int{r, c})
			visited[idx(r, c)] = true
			rMin, rMax, cMin, cMax := r, r, c, c

			for len(queue) > 0 {
				cur := queue[len(queue)-1]
				queue = queue[:len(queue)-1]
				cr, cc := cur[0], cur[1]
				if cr < rMin {
					rMin = cr
				}
				if cr > rMax {
					rMax = cr
				}
				if cc < cMin {
					cMin = cc
				}
				if cc > cMax {
					cMax = cc
				}
				for _, d := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
					nr, nc := cr+d[0], cc+d[1]
					if nr < 0 || nr >= rows || nc < 0 || nc >= width {
						continue
					}
					if visited[idx(nr, nc)] || bin.At(nr, nc) == 0 {
						continue
					}
					visited[idx(nr, nc)] = true
					queue = append(queue, [2]int{nr, nc})
				}
			}

			components = append(components, Component{
				RowStart: rMin, RowEnd: rMax + 1,
				ColStart: cMin + start, ColEnd: cMax + 1 + start,
			})
		}
	}
	return components
}

// DeleteShortComponents labels [start,end) at threshold (0.01 if <= 0) and
// zeroes (to 1e-7) the bounding box of every component shorter than
// minHeight.
func (w *Workbench) DeleteShortComponents(minHeight int, start, end int, threshold float64) {
	if threshold <= 0 {
		threshold = defaultLabelThreshold
	}
	for _, comp := range w.LabelComponents(start, end, threshold) {
		if comp.Height() >= minHeight {
			continue
		}
		for r := comp.RowStart; r < comp.RowEnd; r++ {
			for c := comp.ColStart; c < comp.ColEnd; c++ {
				w.P.Set(r, c, deletedCellValue)
			}
		}
	}
}

// Slice returns P[:, start:end). When copy is true the result is
// independent of the workbench; otherwise it is a live view sharing the
// backing array.
func (w *Workbench) Slice(start, end int, makeCopy bool) *mat.Dense {
	rows, cols := w.dims()
	start, end = clampRange(start, end, cols)
	view := w.P.Slice(0, rows, start, end).(*mat.Dense)
	if !makeCopy {
		return view
	}
	out := mat.NewDense(rows, end-start, nil)
	out.Copy(view)
	return out
}
