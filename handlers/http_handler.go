package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/giygas/vetflash-api/deck"
	"github.com/giygas/vetflash-api/interfaces"
	"github.com/giygas/vetflash-api/loader"
	"github.com/giygas/vetflash-api/logging"
	"github.com/giygas/vetflash-api/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// reloadRetryInterval bounds how often a request may retry a failed dataset load
const reloadRetryInterval = time.Minute

// Compile-time check to ensure HTTPHandlerImpl implements HTTPHandler
var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	dataStore     interfaces.DataStore
	validator     interfaces.DataValidator
	sessions      interfaces.SessionStore
	healthChecker interfaces.HealthChecker
	reloader      interfaces.Reloader
	validate      *validator.Validate
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies.
// reloader may be nil; requests then never retry a failed dataset load.
func NewHTTPHandler(dataStore interfaces.DataStore, dataValidator interfaces.DataValidator,
	sessions interfaces.SessionStore, healthChecker interfaces.HealthChecker,
	reloader interfaces.Reloader) interfaces.HTTPHandler {
	return &HTTPHandlerImpl{
		dataStore:     dataStore,
		validator:     dataValidator,
		sessions:      sessions,
		healthChecker: healthChecker,
		reloader:      reloader,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RespondWithJSON writes a JSON response
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		logging.Warn("Failed to write response", "error", err)
	}
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	errorResponse := map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	h.RespondWithJSON(w, code, errorResponse)
}

// ensureDataset reports whether a dataset is loaded, retrying a failed load
// at most once per reloadRetryInterval
func (h *HTTPHandlerImpl) ensureDataset(ctx context.Context) bool {
	if h.dataStore.HasData() {
		return true
	}
	if h.reloader == nil || time.Since(h.dataStore.GetLastFailureTime()) < reloadRetryInterval {
		return false
	}

	if err := h.reloader.Reload(ctx); err != nil {
		logging.Warn("On-demand dataset load failed", "error", err)
	}
	return h.dataStore.HasData()
}

// lookupSession resolves {sessionID}, writing the error response when it fails
func (h *HTTPHandlerImpl) lookupSession(w http.ResponseWriter, r *http.Request) (interfaces.Session, bool) {
	raw := chi.URLParam(r, "sessionID")
	id, err := h.validator.ValidateSessionID(raw)
	if err != nil {
		logging.Warn("Unusual user input", "sessionID", raw)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	s, ok := h.sessions.Get(id)
	if !ok {
		h.RespondWithError(w, http.StatusNotFound, SessionNotFoundMessage)
		return nil, false
	}
	return s, true
}

// runCommand applies fn to the session deck under its lock and writes the result
func (h *HTTPHandlerImpl) runCommand(w http.ResponseWriter, r *http.Request, operation string,
	fn func(d *deck.Deck) CommandResponse) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	var response CommandResponse
	s.Do(func(d *deck.Deck) {
		response = fn(d)
		response.StateResponse = stateOf(s, d)
	})

	metrics.DeckOperations.WithLabelValues(operation, response.Outcome.String()).Inc()
	h.RespondWithJSON(w, http.StatusOK, response)
}

// CreateSession starts a study session on the current dataset
func (h *HTTPHandlerImpl) CreateSession(w http.ResponseWriter, r *http.Request) {
	if !h.ensureDataset(r.Context()) {
		h.RespondWithError(w, http.StatusServiceUnavailable, loader.FallbackMessage)
		return
	}

	s := h.sessions.Create(h.dataStore.GetRecords())

	var response StateResponse
	s.Do(func(d *deck.Deck) {
		response = stateOf(s, d)
	})

	metrics.DeckOperations.WithLabelValues("load", deck.OutcomeOK.String()).Inc()
	w.Header().Set("Location", "/v1/sessions/"+s.ID().String())
	h.RespondWithJSON(w, http.StatusCreated, response)
}

// GetSession returns the current card and progress
func (h *HTTPHandlerImpl) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	var response StateResponse
	s.Do(func(d *deck.Deck) {
		response = stateOf(s, d)
	})

	h.RespondWithJSON(w, http.StatusOK, response)
}

// DeleteSession ends a session
func (h *HTTPHandlerImpl) DeleteSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	h.sessions.Delete(s.ID())
	w.WriteHeader(http.StatusNoContent)
}

// Advance moves by the delta in the body, +1 or -1
func (h *HTTPHandlerImpl) Advance(w http.ResponseWriter, r *http.Request) {
	var req AdvanceRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		logging.Warn("Unusual user input", "error", err)
		h.RespondWithError(w, http.StatusBadRequest, InvalidRequestMessage)
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, InvalidDeltaMessage)
		return
	}

	h.runCommand(w, r, "advance", func(d *deck.Deck) CommandResponse {
		return CommandResponse{Outcome: d.Advance(*req.Delta)}
	})
}

// Next moves to the following card
func (h *HTTPHandlerImpl) Next(w http.ResponseWriter, r *http.Request) {
	h.runCommand(w, r, "next", func(d *deck.Deck) CommandResponse {
		return CommandResponse{Outcome: d.Next()}
	})
}

// Previous moves to the preceding card
func (h *HTTPHandlerImpl) Previous(w http.ResponseWriter, r *http.Request) {
	h.runCommand(w, r, "previous", func(d *deck.Deck) CommandResponse {
		return CommandResponse{Outcome: d.Previous()}
	})
}

// Flip turns the current card over
func (h *HTTPHandlerImpl) Flip(w http.ResponseWriter, r *http.Request) {
	h.runCommand(w, r, "flip", func(d *deck.Deck) CommandResponse {
		return CommandResponse{Outcome: d.Flip()}
	})
}

// Shuffle reorders the active cards
func (h *HTTPHandlerImpl) Shuffle(w http.ResponseWriter, r *http.Request) {
	h.runCommand(w, r, "shuffle", func(d *deck.Deck) CommandResponse {
		outcome := d.Shuffle()
		if outcome != deck.OutcomeOK {
			return CommandResponse{Outcome: outcome}
		}
		return CommandResponse{Outcome: outcome, Message: ShuffledMessage, Level: LevelSuccess}
	})
}

// RemoveUnfound drops the cards without data
func (h *HTTPHandlerImpl) RemoveUnfound(w http.ResponseWriter, r *http.Request) {
	h.runCommand(w, r, "remove_unfound", func(d *deck.Deck) CommandResponse {
		removed, outcome := d.RemoveUnfound()
		message, level := removedMessage(removed, outcome)
		return CommandResponse{Outcome: outcome, Removed: removed, Message: message, Level: level}
	})
}

// MarkKnown removes the current card as known
func (h *HTTPHandlerImpl) MarkKnown(w http.ResponseWriter, r *http.Request) {
	h.runCommand(w, r, "mark_known", func(d *deck.Deck) CommandResponse {
		_, outcome := d.MarkKnown()
		message, level := markKnownMessage(outcome)
		return CommandResponse{Outcome: outcome, Message: message, Level: level}
	})
}

// Reload restarts the session deck from the current dataset
func (h *HTTPHandlerImpl) Reload(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	if !h.ensureDataset(r.Context()) {
		h.RespondWithError(w, http.StatusServiceUnavailable, loader.FallbackMessage)
		return
	}

	records := h.dataStore.GetRecords()

	var response CommandResponse
	s.Do(func(d *deck.Deck) {
		d.Load(records)
		response = CommandResponse{StateResponse: stateOf(s, d), Outcome: deck.OutcomeOK}
	})

	metrics.DeckOperations.WithLabelValues("load", deck.OutcomeOK.String()).Inc()
	h.RespondWithJSON(w, http.StatusOK, response)
}

// ServeDataset returns the dataset summary and quality report
func (h *HTTPHandlerImpl) ServeDataset(w http.ResponseWriter, r *http.Request) {
	report := h.dataStore.GetReport()
	response := DatasetResponse{
		Available: h.dataStore.HasData(),
		Total:     report.Total,
		Found:     report.Found,
		Missing:   report.Missing,
		Report:    report,
	}
	if response.Available {
		response.LastUpdate = h.dataStore.GetLastUpdated().Format(time.RFC3339)
	}
	if err := h.dataStore.GetLastError(); err != nil {
		response.LastError = err.Error()
	}

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error("Failed to marshal dataset summary", "error", err)
		h.RespondWithError(w, http.StatusInternalServerError, "Failed to build dataset summary")
		return
	}

	etag := GenerateETag(data)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if CheckETag(r, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logging.Warn("Failed to write response", "error", err)
	}
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	// Get memory statistics
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status, data, httpStatus := h.healthChecker.HealthCheck()
	data["sessions"] = h.sessions.Count()

	uptime := time.Since(h.dataStore.GetServerStartTime())

	response := HealthResponse{
		Status:        status,
		Uptime:        formatUptimeHuman(uptime),
		UptimeSeconds: uptime.Seconds(),
		Data:          data,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       int(m.Alloc / 1024 / 1024),
				"total_alloc_mb": int(m.TotalAlloc / 1024 / 1024),
				"sys_mb":         int(m.Sys / 1024 / 1024),
				"num_gc":         m.NumGC,
			},
		},
	}

	h.RespondWithJSON(w, httpStatus, response)
}
