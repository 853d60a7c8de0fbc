package meteor

import "github.com/bramsnet/meteorscan/internal/workbench"

// AmplifyKernel is the 27x7 kernel spec.md §4.5 prescribes: zero
// everywhere except column 3 rows {0,1,25,26} = 50.0 (emphasising long
// vertical, wideband/impulsive features) and columns {0,6} rows
// {12,13,14} = -1.5 (penalising persistent horizontal neighbours).
func AmplifyKernel() workbench.Kernel {
	const rows, cols = 27, 7
	k := make(workbench.Kernel, rows)
	for r := range k {
		k[r] = make([]float64, cols)
	}
	for _, r := range []int{0, 1, rows - 1, rows - 2} {
		k[r][3] = 50.0
	}
	for _, r := range []int{12, 13, 14} {
		k[r][0] = -1.5
		k[r][cols-1] = -1.5
	}
	return k
}

// SmoothKernel is the 3x3 box-average kernel used to soften candidate
// edges after percentile filtering and short-component deletion.
func SmoothKernel() workbench.Kernel {
	return workbench.Kernel{
		{1.0 / 9, 1.0 / 9, 1.0 / 9},
		{1.0 / 9, 1.0 / 9, 1.0 / 9},
		{1.0 / 9, 1.0 / 9, 1.0 / 9},
	}
}
