// Package meteor implements C5, the MeteorExtractor: candidate
// classification (meteor vs. plane echo vs. noise) over a prepared
// workbench, and frequency-band refinement against the original,
// unmodified spectrogram (spec.md §4.5).
package meteor

import (
	"math"
	"sort"

	"github.com/bramsnet/meteorscan/internal/spectrogram"
	"github.com/bramsnet/meteorscan/internal/workbench"
	"gonum.org/v1/gonum/stat"
)

const (
	labelThreshold  = 0.01
	percentileP     = 95
	freqLoHz        = 800
	freqHiHz        = 1400
	narrowWidthMax  = 6
	narrowHeightMin = 50
	planeWidthMax   = 16
	planeMaxScan    = 22
	planeNoHitLimit = 2
	profilePercent  = 0.85
)

// Candidate is one accepted meteor echo, with its frequency band refined
// by get_meteor_specs against the original spectrogram.
type Candidate struct {
	RowStart, RowEnd int
	ColStart, ColEnd int
	FMinHz, FMaxHz   float64
	TimeReprSec      float64
}

// Prepare runs the detection-preparation sequence spec.md §4.5 prescribes
// before classification: amplify, percentile-filter, delete short
// components, smooth. minHeight is ceil(6/deltaF).
func Prepare(wb *workbench.Workbench, deltaF float64, start, end int) {
	wb.Convolve(AmplifyKernel(), 1, start, end)
	wb.FilterByPercentile(percentileP, start, end)
	minHeight := int(math.Ceil(6 / deltaF))
	wb.DeleteShortComponents(minHeight, start, end, labelThreshold)
	wb.Convolve(SmoothKernel(), 1, start, end)
}

// Extract classifies every labelled component in [narrowStart,narrowEnd)
// of wb's prepared P_mod, using [broadStart,broadEnd) as the lookahead
// range for the plane-echo test, and refines each accepted candidate's
// frequency band against original.
func Extract(wb *workbench.Workbench, original *spectrogram.Spectrogram, narrowStart, narrowEnd, broadStart, broadEnd int) []Candidate {
	var candidates []Candidate
	for _, comp := range wb.LabelComponents(narrowStart, narrowEnd, labelThreshold) {
		if wb.Freqs[comp.RowStart] < freqLoHz || wb.Freqs[comp.RowEnd-1] > freqHiHz {
			continue
		}
		w, h := comp.Width(), comp.Height()

		var accepted bool
		switch {
		case w < narrowWidthMax && h > narrowHeightMin:
			accepted = true
		case w > 1:
			accepted = planeEchoTest(wb, comp, broadStart, broadEnd) < planeWidthMax
		default:
			accepted = false
		}
		if !accepted {
			continue
		}

		cand := refine(comp, original)
		candidates = append(candidates, cand)
	}
	return candidates
}

// planeEchoTest scans outward from comp in both time directions, widening
// a row band on each qualifying hit, and returns the accumulated
// total_width. Two consecutive non-hits in a direction stop that
// direction's scan; the test stops early once total_width reaches
// planeWidthMax.
func planeEchoTest(wb *workbench.Workbench, comp workbench.Component, broadStart, broadEnd int) int {
	bandLo := comp.RowStart - 3
	bandHi := comp.RowEnd + 3
	totalWidth := 0

	for _, dir := range []int{-1, 1} {
		lo, hi := bandLo, bandHi
		noHit := 0
		col := comp.ColStart - 1
		if dir == 1 {
			col = comp.ColEnd
		}
		for step := 0; step < planeMaxScan && totalWidth < planeWidthMax; step++ {
			if col < broadStart || col >= broadEnd {
				break
			}
			rowLo, rowHi, ok := columnHit(wb, col, lo, hi)
			if ok {
				totalWidth++
				noHit = 0
				if rowLo-3 < lo {
					lo = rowLo - 3
				}
				if rowHi+3 > hi {
					hi = rowHi + 3
				}
			} else {
				noHit++
				if noHit >= planeNoHitLimit {
					break
				}
			}
			col += dir
		}
	}
	return totalWidth
}

// columnHit binarizes column col within [lo,hi) at the label threshold,
// merges adjacent runs separated by a gap no larger than 0.25*bandHeight,
// and reports the tallest merged run if it exceeds 0.7*bandHeight.
func columnHit(wb *workbench.Workbench, col, lo, hi int) (int, int, bool) {
	rows, _ := wb.P.Dims()
	if lo < 0 {
		lo = 0
	}
	if hi > rows {
		hi = rows
	}
	if hi <= lo {
		return 0, 0, false
	}
	bandHeight := float64(hi - lo)
	gapTol := int(0.25 * bandHeight)

	occupied := make([]bool, hi-lo)
	for r := lo; r < hi; r++ {
		occupied[r-lo] = wb.P.At(r, col) > labelThreshold
	}

	var runs [][2]int
	i := 0
	for i < len(occupied) {
		if !occupied[i] {
			i++
			continue
		}
		j := i
		for j < len(occupied) && occupied[j] {
			j++
		}
		runs = append(runs, [2]int{i, j})
		i = j
	}
	if len(runs) == 0 {
		return 0, 0, false
	}

	merged := [][2]int{runs[0]}
	for _, r := range runs[1:] {
		last := &merged[len(merged)-1]
		if r[0]-last[1] <= gapTol {
			last[1] = r[1]
		} else {
			merged = append(merged, r)
		}
	}

	bestH, bestIdx := 0, -1
	for idx, r := range merged {
		if h := r[1] - r[0]; h > bestH {
			bestH, bestIdx = h, idx
		}
	}
	if bestIdx < 0 || float64(bestH) <= 0.7*bandHeight {
		return 0, 0, false
	}
	return lo + merged[bestIdx][0], lo + merged[bestIdx][1], true
}

// refine implements get_meteor_specs: the column-sum dB profile over the
// candidate's time slice, clamped below its 85th percentile to its own
// minimum, walked outward from the row midpoint to find the refined
// frequency extents.
func refine(comp workbench.Component, original *spectrogram.Spectrogram) Candidate {
	rows := original.Rows()
	profile := make([]float64, rows)
	for r := 0; r < rows; r++ {
		sum := 0.0
		for c := comp.ColStart; c < comp.ColEnd; c++ {
			sum += 10 * math.Log10(original.P.At(r, c))
		}
		profile[r] = sum
	}

	minVal := profile[0]
	for _, v := range profile {
		if v < minVal {
			minVal = v
		}
	}
	sorted := append([]float64(nil), profile...)
	sort.Float64s(sorted)
	p85 := stat.Quantile(profilePercent, stat.LinInterp, sorted, nil)
	for r, v := range profile {
		if v < p85 {
			profile[r] = minVal
		}
	}

	rowMid := (comp.RowStart + comp.RowEnd) / 2
	lowIdx := walkMinHit(profile, rowMid, -1, minVal)
	highIdx := walkMinHit(profile, rowMid, 1, minVal)

	colMid := (comp.ColStart + comp.ColEnd) / 2
	if colMid >= len(original.Times) {
		colMid = len(original.Times) - 1
	}

	return Candidate{
		RowStart: comp.RowStart, RowEnd: comp.RowEnd,
		ColStart: comp.ColStart, ColEnd: comp.ColEnd,
		FMinHz: original.Freqs[lowIdx], FMaxHz: original.Freqs[highIdx],
		TimeReprSec: original.Times[colMid],
	}
}

// walkMinHit walks profile from start in the given step direction,
// incrementing a counter when a cell equals minVal and decrementing it
// when the cell is strictly positive, stopping at the first index where
// the counter reaches 2 or at the array boundary.
func walkMinHit(profile []float64, start, step int, minVal float64) int {
	counter := 0
	r := start
	last := start
	for r >= 0 && r < len(profile) {
		switch {
		case profile[r] == minVal:
			counter++
		case profile[r] > 0:
			counter--
		}
		last = r
		if counter >= 2 {
			return r
		}
		r += step
	}
	return last
}
