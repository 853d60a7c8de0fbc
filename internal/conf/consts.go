// conf/consts.go hard coded constants
package conf

const (
	// DefaultSampleRateHz is the nominal BRAMS station sample rate; the BRA1
	// chunk's float64 rate always takes precedence when present.
	DefaultSampleRateHz = 5512

	// DefaultNperseg and DefaultNoverlap are the STFT window/hop defaults
	// from the spectrogram contract.
	DefaultNperseg  = 16384
	DefaultNoverlap = 14488

	// DefaultBeaconLoHz / DefaultBeaconHiHz bound the beacon search band.
	DefaultBeaconLoHz = 800
	DefaultBeaconHiHz = 1200

	// DefaultCalibratorLoHz / DefaultCalibratorHiHz bound the calibrator
	// tone search band (spec.md §9 resolves the 1650 vs 1750 ambiguity in
	// favor of 1750, made configurable here).
	DefaultCalibratorLoHz = 1350
	DefaultCalibratorHiHz = 1750

	ArchiveFilePrefix = "RAD_BEDOUR"
)
