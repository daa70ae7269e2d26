// Package health provides health checking functionality for the flash card API.
package health

import (
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/giygas/vetflash-api/interfaces"
)

const defaultReloadTimes = "06:00;18:00"

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore   interfaces.DataStore
	reloadTimes []clock
}

type clock struct {
	hour, minute int
}

// NewHealthChecker creates a new health checker with injected dependencies.
// reloadTimes uses the DATA_RELOAD_TIMES format; invalid entries are ignored.
func NewHealthChecker(dataStore interfaces.DataStore, reloadTimes string) interfaces.HealthChecker {
	times := parseReloadTimes(reloadTimes)
	if len(times) == 0 {
		times = parseReloadTimes(defaultReloadTimes)
	}
	return &HealthCheckerImpl{
		dataStore:   dataStore,
		reloadTimes: times,
	}
}

func parseReloadTimes(value string) []clock {
	var times []clock
	for _, entry := range strings.Split(value, ";") {
		t, err := time.Parse("15:04", strings.TrimSpace(entry))
		if err != nil {
			continue
		}
		times = append(times, clock{hour: t.Hour(), minute: t.Minute()})
	}
	sort.Slice(times, func(i, j int) bool {
		if times[i].hour != times[j].hour {
			return times[i].hour < times[j].hour
		}
		return times[i].minute < times[j].minute
	})
	return times
}

// HealthCheck returns HTTP-specific health data.
// Missing or very old data is unhealthy; a failed reload with fresh data is
// only reported, the previous dataset keeps serving.
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	// Get data statistics
	hasData := h.dataStore.HasData()
	report := h.dataStore.GetReport()
	lastUpdate := h.dataStore.GetLastUpdated()
	isUpdating := h.dataStore.IsUpdating()
	lastErr := h.dataStore.GetLastError()

	dataAge := time.Since(lastUpdate)

	// Determine health status and HTTP code
	switch {
	case !hasData:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > 48*time.Hour:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case report.Total == 0:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > 24*time.Hour:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case isUpdating && dataAge > 6*time.Hour:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case lastErr != nil:
		status = "degraded"
		httpStatus = http.StatusOK

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	// Build response data (no system metrics, only data-related fields)
	data = map[string]any{
		"has_data":    hasData,
		"records":     report.Total,
		"found":       report.Found,
		"missing":     report.Missing,
		"is_updating": isUpdating,
		"next_update": h.CalculateNextUpdate().Format(time.RFC3339),
	}

	if hasData {
		data["last_update"] = lastUpdate.Format(time.RFC3339)
		data["data_age_hours"] = math.Round(dataAge.Hours()*10) / 10
	}

	if lastErr != nil {
		data["last_error"] = lastErr.Error()
	}

	return status, data, httpStatus
}

// CalculateNextUpdate returns the next scheduled reload time
func (h *HealthCheckerImpl) CalculateNextUpdate() time.Time {
	return nextUpdateAfter(time.Now(), h.reloadTimes)
}

func nextUpdateAfter(now time.Time, times []clock) time.Time {
	for _, c := range times {
		at := time.Date(now.Year(), now.Month(), now.Day(), c.hour, c.minute, 0, 0, now.Location())
		if now.Before(at) {
			return at
		}
	}

	// Past the last reload today, first one tomorrow
	first := times[0]
	return time.Date(now.Year(), now.Month(), now.Day()+1, first.hour, first.minute, 0, 0, now.Location())
}
