// Package data provides thread-safe storage for the medication dataset.
// The DataContainer swaps the whole dataset atomically so a reload never
// exposes a half-built list to handlers that are creating decks.
package data

import (
	"sync/atomic"
	"time"

	"github.com/giygas/vetflash-api/deck"
	"github.com/giygas/vetflash-api/interfaces"
	"github.com/giygas/vetflash-api/logging"
)

// Compile-time check to ensure DataContainer implements DataStore
var _ interfaces.DataStore = (*DataContainer)(nil)

// snapshot is the unit of atomic replacement
type snapshot struct {
	records []deck.MedicationRecord
	report  *interfaces.DataQualityReport
	loaded  bool
}

// failure wraps the last load error; atomic.Value needs one concrete type
type failure struct {
	err error
	at  time.Time
}

// DataContainer holds the dataset with atomic pointers for zero-downtime updates
type DataContainer struct {
	current         atomic.Pointer[snapshot]
	lastUpdated     atomic.Value // time.Time
	lastFailure     atomic.Pointer[failure]
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates a new DataContainer with empty data
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.current.Store(&snapshot{
		records: make([]deck.MedicationRecord, 0),
		report:  &interfaces.DataQualityReport{},
	})
	dc.lastUpdated.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{}) // Initialize with zero value
	return dc
}

// GetRecords returns the current dataset. Callers must not modify it;
// decks copy the slice on load.
func (dc *DataContainer) GetRecords() []deck.MedicationRecord {
	if s := dc.current.Load(); s != nil && s.records != nil {
		return s.records
	}

	logging.Warn("Medication records are empty or invalid")
	return []deck.MedicationRecord{}
}

// GetReport returns the quality report of the current dataset
func (dc *DataContainer) GetReport() *interfaces.DataQualityReport {
	if s := dc.current.Load(); s != nil && s.report != nil {
		return s.report
	}
	return &interfaces.DataQualityReport{}
}

// HasData reports whether a load has ever succeeded. An empty list still counts.
func (dc *DataContainer) HasData() bool {
	s := dc.current.Load()
	return s != nil && s.loaded
}

// GetLastUpdated returns the timestamp of the last successful update
func (dc *DataContainer) GetLastUpdated() time.Time {
	if v := dc.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// GetLastError returns the error of the most recent load if it failed,
// nil once a later load succeeded
func (dc *DataContainer) GetLastError() error {
	if f := dc.lastFailure.Load(); f != nil {
		return f.err
	}
	return nil
}

// GetLastFailureTime returns when the last failed load happened
func (dc *DataContainer) GetLastFailureTime() time.Time {
	if f := dc.lastFailure.Load(); f != nil {
		return f.at
	}
	return time.Time{}
}

// IsUpdating returns true if a data update is currently in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// UpdateData atomically replaces the dataset and clears the last failure
func (dc *DataContainer) UpdateData(records []deck.MedicationRecord, report *interfaces.DataQualityReport) {
	if records == nil {
		records = make([]deck.MedicationRecord, 0)
	}
	if report == nil {
		report = &interfaces.DataQualityReport{Total: len(records)}
	}

	// Atomic swap (zero downtime replacement)
	dc.current.Store(&snapshot{records: records, report: report, loaded: true})
	dc.lastUpdated.Store(time.Now())
	dc.lastFailure.Store(nil)
}

// RecordFailure keeps the previous dataset and remembers why the load failed
func (dc *DataContainer) RecordFailure(err error) {
	if err == nil {
		return
	}
	dc.lastFailure.Store(&failure{err: err, at: time.Now()})
}

// BeginUpdate marks the start of a data update operation
// Returns true if update can proceed, false if another update is in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a data update operation
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}
