// Package datastore is C9's catalog/history store: systems, psd_history,
// file_coverage over a dual sqlite/mysql gorm backend (spec.md §6).
package datastore

import (
	"context"
	"sort"
	"time"

	"github.com/bramsnet/meteorscan/internal/conf"
	"github.com/bramsnet/meteorscan/internal/errors"
	"gorm.io/gorm"
)

// DataStore is the shared gorm handle both the SQLite and MySQL backends
// embed; Open() on each concrete store populates DB.
type DataStore struct {
	DB      *gorm.DB
	metrics *DatastoreMetrics
	stop    chan struct{}
}

// Store is the catalog interface C8/C9 consume: station lookup, PSD
// history upsert/range-query, and file coverage lookup/registration.
type Store interface {
	Open() error
	Close() error
	GetOrCreateSystem(locationCode string, antenna int) (*System, error)
	AppendPsdBatch(ctx context.Context, samples []PsdSample) error
	PsdHistory(ctx context.Context, systemIDs []uint, from, to time.Time) ([]PsdSample, error)
	CoverageFor(ctx context.Context, systemIDs []uint, startUs, endUs int64) ([]FileCoverageRecord, error)
	RecordCoverage(ctx context.Context, rec FileCoverageRecord) error
}

// New builds the configured Store (sqlite by default; MySQL when enabled
// and sqlite is not), opens it, and runs auto-migration.
func New(settings *conf.Settings) (Store, error) {
	if settings.Output.MySQL.Enabled && !settings.Output.SQLite.Enabled {
		store := &MySQLStore{Settings: settings}
		if err := store.Open(); err != nil {
			return nil, err
		}
		return store, nil
	}
	store := &SQLiteStore{Settings: settings}
	if err := store.Open(); err != nil {
		return nil, err
	}
	return store, nil
}

func performAutoMigration(db *gorm.DB, debug bool, dialectLabel, target string) error {
	if debug {
		getLogger().Debug("Running catalog auto-migration", "dialect", dialectLabel, "target", target)
	}
	if err := db.AutoMigrate(&System{}, &PsdSample{}, &FileCoverageRecord{}); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migrate").
			Context("dialect", dialectLabel).
			Build()
	}
	return nil
}

// StartMonitoring launches a background goroutine that periodically
// captures connection-pool stats (poolInterval) and full resource
// snapshots (statsInterval), logging warnings on critical resource state.
// It runs until StopMonitoring is called, which the SQLite and MySQL
// stores' Close methods do.
func (ds *DataStore) StartMonitoring(poolInterval, statsInterval time.Duration) {
	ds.stop = make(chan struct{})
	go func() {
		poolTicker := time.NewTicker(poolInterval)
		statsTicker := time.NewTicker(statsInterval)
		defer poolTicker.Stop()
		defer statsTicker.Stop()
		for {
			select {
			case <-poolTicker.C:
				ds.logConnectionPoolStats()
			case <-statsTicker.C:
				ds.logResourceSnapshot()
			case <-ds.stop:
				return
			}
		}
	}()
}

// StopMonitoring halts the background monitoring goroutine started by
// StartMonitoring, if one is running.
func (ds *DataStore) StopMonitoring() {
	if ds.stop != nil {
		close(ds.stop)
		ds.stop = nil
	}
}

func (ds *DataStore) logConnectionPoolStats() {
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return
	}
	stats := sqlDB.Stats()
	getLogger().Debug("connection pool stats",
		"open_connections", stats.OpenConnections,
		"in_use", stats.InUse,
		"idle", stats.Idle)
}

func (ds *DataStore) logResourceSnapshot() {
	snapshot, err := CaptureResourceSnapshot("")
	if err != nil {
		return
	}
	if snapshot.IsCriticalResourceState() {
		getLogger().Warn("catalog resource state is critical", "summary", snapshot.FormatResourceSummary())
	}
}

// Close releases the underlying connection pool.
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return errors.New(err).Component("datastore").Category(errors.CategoryDatabase).Build()
	}
	return sqlDB.Close()
}

// GetOrCreateSystem upserts the (location_code, antenna) row and returns
// its System (and assigned SystemID).
func (ds *DataStore) GetOrCreateSystem(locationCode string, antenna int) (*System, error) {
	if locationCode == "" {
		return nil, errors.Newf("location code cannot be empty").
			Component("datastore").Category(errors.CategoryValidation).Build()
	}
	var sys System
	err := ds.DB.Where(System{LocationCode: locationCode, Antenna: antenna}).
		Attrs(System{CreatedAt: time.Now(), UpdatedAt: time.Now()}).
		FirstOrCreate(&sys).Error
	if err != nil {
		return nil, dbError(err, "get_or_create_system", errors.PriorityMedium,
			"location_code", locationCode, "antenna", antenna)
	}
	return &sys, nil
}

// AppendPsdBatch persists samples as a single, non-partial transaction:
// either every sample commits or none do (spec.md §7's catalog-batch
// invariant). Each sample is upserted by (system_id, start_timestamp).
func (ds *DataStore) AppendPsdBatch(ctx context.Context, samples []PsdSample) error {
	if len(samples) == 0 {
		return nil
	}
	return ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range samples {
			if err := upsertPsdSample(tx, &samples[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertPsdSample(tx *gorm.DB, sample *PsdSample) error {
	var existing PsdSample
	err := tx.Where("system_id = ? AND start_timestamp = ?", sample.SystemID, sample.StartTimestamp).
		First(&existing).Error
	switch {
	case err == nil:
		sample.ID = existing.ID
		return tx.Model(&PsdSample{}).Where("id = ?", existing.ID).Updates(map[string]any{
			"noise_psd":          sample.NoisePsd,
			"calibrator_psd":     sample.CalibratorPsd,
			"calibrator_freq_hz": sample.CalibratorFreqHz,
		}).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		return tx.Create(sample).Error
	default:
		return dbError(err, "upsert_psd_sample", errors.PriorityMedium, "system_id", sample.SystemID)
	}
}

// PsdHistory returns every psd_history row for systemIDs within
// [from, to), ordered by start_timestamp, for the grouped-by-interval
// projection spec.md §6 describes.
func (ds *DataStore) PsdHistory(ctx context.Context, systemIDs []uint, from, to time.Time) ([]PsdSample, error) {
	var samples []PsdSample
	err := ds.DB.WithContext(ctx).
		Where("system_id IN ? AND start_timestamp >= ? AND start_timestamp < ?", systemIDs, from, to).
		Order("start_timestamp ASC").
		Find(&samples).Error
	if err != nil {
		return nil, dbError(err, "psd_history_range_query", errors.PriorityMedium)
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].StartTimestamp.Before(samples[j].StartTimestamp) })
	return samples, nil
}

// CoverageFor returns file_coverage rows for systemIDs overlapping
// [startUs, endUs).
func (ds *DataStore) CoverageFor(ctx context.Context, systemIDs []uint, startUs, endUs int64) ([]FileCoverageRecord, error) {
	var records []FileCoverageRecord
	err := ds.DB.WithContext(ctx).
		Where("system_id IN ? AND start_us < ? AND end_us > ?", systemIDs, endUs, startUs).
		Order("start_us ASC").
		Find(&records).Error
	if err != nil {
		return nil, dbError(err, "coverage_query", errors.PriorityMedium)
	}
	return records, nil
}

// RecordCoverage inserts one file_coverage row, used by the repository
// layer after discovering a new recording on disk.
func (ds *DataStore) RecordCoverage(ctx context.Context, rec FileCoverageRecord) error {
	if err := ds.DB.WithContext(ctx).Create(&rec).Error; err != nil {
		return dbError(err, "record_coverage", errors.PriorityLow, "path", rec.Path)
	}
	return nil
}
