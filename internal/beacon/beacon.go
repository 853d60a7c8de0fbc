// Package beacon implements C3, direct-beacon tone localization and
// suppression on a normalized spectrogram.
package beacon

import (
	"math"

	"github.com/bramsnet/meteorscan/internal/spectrogram"
)

// Band describes the located (or defaulted) beacon row range.
type Band struct {
	RowCenter int
	RowLo     int
	RowHi     int
	Found     bool
}

const (
	streakTarget   = 50
	suppressHalf   = 2
	suppressFloor  = 0.001
	tileWidth      = 3
)

// Locate scans the normalized magnitude matrix for a 50-column streak of a
// stable row argmax between searchLoHz and searchHiHz (spec.md §4.3).
func Locate(sg *spectrogram.Spectrogram, searchLoHz, searchHiHz float64) Band {
	rowLo := int(math.Round(searchLoHz / sg.FreqResolution))
	rowHi := int(math.Round(searchHiHz / sg.FreqResolution))
	if rowLo < 0 {
		rowLo = 0
	}
	if rowHi > sg.Rows() {
		rowHi = sg.Rows()
	}

	streak := 0
	prevArgmax := -1
	for col := 0; col < sg.Cols(); col++ {
		argmax := sg.ColumnArgmax(rowLo, rowHi, col)
		if prevArgmax != -1 && abs(argmax-prevArgmax) <= 1 {
			streak++
		} else {
			streak = 1
		}
		if streak >= streakTarget {
			center := prevArgmax + rowLo
			return Band{RowCenter: center, RowLo: center - suppressHalf, RowHi: center + suppressHalf, Found: true}
		}
		prevArgmax = argmax
	}

	fallback := int(math.Round(1000 / sg.FreqResolution))
	return Band{RowCenter: fallback, Found: false}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Suppress replaces the suppression band's values with the mean of the two
// rows adjacent to the band, tile-wise across columns, clamped to the
// numerical floor later log operations require. No-op when band is not
// found.
func Suppress(sg *spectrogram.Spectrogram, band Band) {
	if !band.Found {
		return
	}
	rows, cols := sg.P.Dims()
	loNeighbor := band.RowLo - 1
	hiNeighbor := band.RowHi + 1
	if loNeighbor < 0 || hiNeighbor >= rows {
		return
	}

	for tileStart := 0; tileStart < cols; tileStart += tileWidth {
		tileEnd := tileStart + tileWidth
		if tileEnd > cols {
			tileEnd = cols
		}
		sum := 0.0
		for col := tileStart; col < tileEnd; col++ {
			sum += sg.P.At(loNeighbor, col) + sg.P.At(hiNeighbor, col)
		}
		mean := sum / float64(2*(tileEnd-tileStart))
		if mean < suppressFloor {
			mean = suppressFloor
		}
		for col := tileStart; col < tileEnd; col++ {
			for row := band.RowLo; row <= band.RowHi; row++ {
				sg.P.Set(row, col, mean)
			}
		}
	}
}
