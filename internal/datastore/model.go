// model.go defines the catalog schema: systems, psd_history, file_coverage,
// per spec.md §6's schema-level contract.
package datastore

import "time"

// System is one (location_code, antenna) observing station, identified by
// SystemID for the rolling PSD history and file coverage tables.
type System struct {
	ID           uint   `gorm:"primaryKey"`
	LocationCode string `gorm:"uniqueIndex:idx_systems_location_antenna;size:16;not null"`
	Antenna      int    `gorm:"uniqueIndex:idx_systems_location_antenna;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (System) TableName() string { return "systems" }

// PsdSample is one upserted (system, start_timestamp) noise/calibrator
// PSD observation, as produced by C6 and fed through C7.
type PsdSample struct {
	ID               uint      `gorm:"primaryKey"`
	SystemID         uint      `gorm:"uniqueIndex:idx_psd_system_start;not null"`
	StartTimestamp   time.Time `gorm:"uniqueIndex:idx_psd_system_start;not null;index:idx_psd_start"`
	NoisePsd         float64
	CalibratorPsd    *float64
	CalibratorFreqHz *float64
}

func (PsdSample) TableName() string { return "psd_history" }

// FileCoverageRecord tracks one on-disk (or archived) recording's
// (station, antenna) time coverage and storage path, used to answer
// list_covering queries without re-scanning the repository.
type FileCoverageRecord struct {
	ID       uint   `gorm:"primaryKey"`
	SystemID uint   `gorm:"index:idx_coverage_system_range;not null"`
	StartUs  int64  `gorm:"index:idx_coverage_system_range;not null"`
	EndUs    int64  `gorm:"not null"`
	Path     string `gorm:"size:512;not null"`
	Member   string `gorm:"size:256"`
}

func (FileCoverageRecord) TableName() string { return "file_coverage" }
