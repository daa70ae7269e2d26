// Package scheduler keeps the medication dataset fresh and the session store tidy.
// It loads the dataset at startup and at fixed times of day, sweeps idle study
// sessions and warns when the data goes stale.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/giygas/vetflash-api/interfaces"
	"github.com/giygas/vetflash-api/logging"
	"github.com/giygas/vetflash-api/metrics"
	"github.com/go-co-op/gocron"
)

// Compile-time checks
var (
	_ interfaces.Scheduler = (*Scheduler)(nil)
	_ interfaces.Reloader  = (*Scheduler)(nil)
)

// ErrUpdateInProgress is returned by Reload when another load is running
var ErrUpdateInProgress = errors.New("dataset update already in progress")

const (
	defaultReloadTimes = "06:00;18:00"
	defaultSessionTTL  = 2 * time.Hour
	staleAfter         = 25 * time.Hour
	loadTimeout        = 5 * time.Minute
)

// Scheduler handles dataset reloads and housekeeping using dependency injection
type Scheduler struct {
	dataStore   interfaces.DataStore
	loader      interfaces.Loader
	validator   interfaces.DataValidator
	sessions    interfaces.SessionStore
	reloadTimes string
	sessionTTL  time.Duration
	scheduler   *gocron.Scheduler
}

// NewScheduler creates a new scheduler instance with injected dependencies.
// sessions may be nil when no sweeping is wanted.
func NewScheduler(dataStore interfaces.DataStore, loader interfaces.Loader,
	validator interfaces.DataValidator, sessions interfaces.SessionStore) *Scheduler {
	return &Scheduler{
		dataStore:   dataStore,
		loader:      loader,
		validator:   validator,
		sessions:    sessions,
		reloadTimes: defaultReloadTimes,
		sessionTTL:  defaultSessionTTL,
		scheduler:   gocron.NewScheduler(time.Local),
	}
}

// WithReloadTimes sets the daily reload times, ";"-separated HH:MM
func (s *Scheduler) WithReloadTimes(times string) *Scheduler {
	if times != "" {
		s.reloadTimes = times
	}
	return s
}

// WithSessionTTL sets how long an idle session lives
func (s *Scheduler) WithSessionTTL(ttl time.Duration) *Scheduler {
	if ttl > 0 {
		s.sessionTTL = ttl
	}
	return s
}

// Start performs the initial load and schedules reloads and housekeeping.
// A failed initial load leaves the service running without data.
func (s *Scheduler) Start() error {
	// Initial load
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	err := s.Reload(ctx)
	cancel()
	if err != nil && !errors.Is(err, ErrUpdateInProgress) {
		logging.Error("Initial dataset load failed, serving without data until the next reload", "error", err)
	}

	s.scheduler.SingletonModeAll()

	_, err = s.scheduler.Every(1).Day().At(s.reloadTimes).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		if err := s.Reload(ctx); err != nil {
			logging.Error("Failed to reload dataset", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule dataset reloads", "error", err)
		return fmt.Errorf("failed to schedule reloads: %w", err)
	}

	if s.sessions != nil {
		_, err = s.scheduler.Every(1).Minute().Do(func() {
			s.sessions.Sweep(s.sessionTTL)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule session sweep: %w", err)
		}
	}

	_, err = s.scheduler.Every(1).Hour().WaitForSchedule().Do(func() {
		s.checkStaleness()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule health monitoring: %w", err)
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Reload loads the dataset and swaps it in. On failure the previous dataset
// stays in place and the error is remembered for the health check.
func (s *Scheduler) Reload(ctx context.Context) error {
	// Prevent concurrent updates
	if !s.dataStore.BeginUpdate() {
		logging.Info("Update already in progress, skipping...")
		return ErrUpdateInProgress
	}
	defer s.dataStore.EndUpdate()

	logging.Info("Starting dataset update", "at", time.Now().Format(time.RFC3339))
	start := time.Now()

	records, err := s.loader.Load(ctx)
	if err != nil {
		s.dataStore.RecordFailure(err)
		metrics.RecordLoadFailure()
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	report := s.validator.ReportDataQuality(records)

	// Atomic update using injected data store (including report)
	s.dataStore.UpdateData(records, report)
	metrics.RecordDataset(report.Found, report.Missing)

	logging.Info("Dataset update completed",
		"duration", time.Since(start).String(),
		"records", report.Total,
		"found", report.Found,
		"missing", report.Missing,
	)

	return nil
}

// checkStaleness warns when the dataset is missing or old and reports whether it did
func (s *Scheduler) checkStaleness() bool {
	if !s.dataStore.HasData() {
		logging.Warn("No dataset loaded", "last_error", s.dataStore.GetLastError())
		return true
	}

	lastUpdate := s.dataStore.GetLastUpdated()
	if time.Since(lastUpdate) > staleAfter {
		logging.Warn("Dataset hasn't been updated in over 25 hours", "last_update", lastUpdate.Format(time.RFC3339))
		return true
	}
	return false
}
