// Package interfaces defines the contracts between the flash card service packages
// to keep them testable in isolation.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/giygas/vetflash-api/deck"
	"github.com/google/uuid"
)

// DataQualityReport summarises a loaded dataset
type DataQualityReport struct {
	Total              int        `json:"total"`
	Found              int        `json:"found"`
	Missing            int        `json:"missing"`
	InexactMatches     int        `json:"inexact_matches"`
	WithoutSubstances  int        `json:"without_active_substances"`
	WithoutIndications int        `json:"without_indications"`
	InvalidSourceURLs  []string   `json:"invalid_source_urls"`
	DuplicateKeys      []deck.Key `json:"duplicate_keys"` // records sharing (input_name, varenr)
}

// DataStore holds the current dataset with atomic replacement on reload
type DataStore interface {
	GetRecords() []deck.MedicationRecord
	GetReport() *DataQualityReport
	GetLastUpdated() time.Time
	GetLastError() error
	GetLastFailureTime() time.Time
	HasData() bool
	IsUpdating() bool
	GetServerStartTime() time.Time

	UpdateData(records []deck.MedicationRecord, report *DataQualityReport)
	RecordFailure(err error)
	BeginUpdate() bool
	EndUpdate()
}

// Loader fetches the dataset from its source
type Loader interface {
	Load(ctx context.Context) ([]deck.MedicationRecord, error)
}

// DataValidator inspects a loaded dataset
type DataValidator interface {
	ReportDataQuality(records []deck.MedicationRecord) *DataQualityReport
	ValidateSessionID(input string) (uuid.UUID, error)
}

// Session is one user's deck. Engine calls go through Do, which serialises them.
type Session interface {
	ID() uuid.UUID
	Do(fn func(d *deck.Deck))
	LastSeen() time.Time
}

// SessionStore keeps the live sessions
type SessionStore interface {
	Create(records []deck.MedicationRecord) Session
	Get(id uuid.UUID) (Session, bool)
	Delete(id uuid.UUID) bool
	Sweep(ttl time.Duration) int
	Count() int
}

// Scheduler runs dataset reloads and housekeeping
type Scheduler interface {
	Start() error
	Stop()
}

// Reloader replaces the dataset on demand
type Reloader interface {
	Reload(ctx context.Context) error
}

// HealthChecker reports service health
type HealthChecker interface {
	// HealthCheck returns the status, the details and the HTTP status to answer with
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// CalculateNextUpdate returns the next scheduled dataset reload
	CalculateNextUpdate() time.Time
}

// HTTPHandler serves the deck API
type HTTPHandler interface {
	CreateSession(w http.ResponseWriter, r *http.Request)
	GetSession(w http.ResponseWriter, r *http.Request)
	DeleteSession(w http.ResponseWriter, r *http.Request)
	Advance(w http.ResponseWriter, r *http.Request)
	Next(w http.ResponseWriter, r *http.Request)
	Previous(w http.ResponseWriter, r *http.Request)
	Flip(w http.ResponseWriter, r *http.Request)
	Shuffle(w http.ResponseWriter, r *http.Request)
	RemoveUnfound(w http.ResponseWriter, r *http.Request)
	MarkKnown(w http.ResponseWriter, r *http.Request)
	Reload(w http.ResponseWriter, r *http.Request)
	ServeDataset(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}
