package pipeline

import (
	"github.com/bramsnet/meteorscan/internal/beacon"
	"github.com/bramsnet/meteorscan/internal/conf"
	"github.com/bramsnet/meteorscan/internal/meteor"
	"github.com/bramsnet/meteorscan/internal/recording"
	"github.com/bramsnet/meteorscan/internal/spectrogram"
	"github.com/bramsnet/meteorscan/internal/workbench"
)

// detectCandidates runs the full detection path spec.md §2 describes:
// C1 (already decoded) → C2 spectrogram → C3 beacon locate/suppress →
// C4 workbench prepare → C5 candidate extraction.
func detectCandidates(rec *recording.Recording) ([]meteor.Candidate, error) {
	sg, err := spectrogram.Compute(rec, conf.DefaultNperseg, conf.DefaultNoverlap)
	if err != nil {
		return nil, err
	}

	band := beacon.Locate(sg, conf.DefaultBeaconLoHz, conf.DefaultBeaconHiHz)
	wb := workbench.New(sg)
	beacon.Suppress(&spectrogram.Spectrogram{
		Freqs: wb.Freqs, P: wb.P, FS: sg.FS, FreqResolution: sg.FreqResolution,
	}, band)

	_, cols := wb.P.Dims()
	meteor.Prepare(wb, sg.FreqResolution, 0, cols)

	return meteor.Extract(wb, sg, 0, cols, 0, cols), nil
}
