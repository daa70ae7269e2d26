// Package handlers provides the HTTP handlers of the flash card API: study sessions
// driving a deck, the dataset summary and the health check.
package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/giygas/vetflash-api/deck"
	"github.com/giygas/vetflash-api/interfaces"
)

// Message levels shown by the frontend
const (
	LevelSuccess = "success"
	LevelInfo    = "info"
)

// User-facing command messages
const (
	ShuffledMessage        = "Kortene er blandet!"
	RemovedMessageFormat   = "%d ukendte mediciner fjernet!"
	NothingToRemoveMessage = "Ingen ukendte mediciner at fjerne"
	MarkedKnownMessage     = "Markeret som kendt!"
	DeckCompleteMessage    = "Tillykke! Alle kort er markeret som kendt!"
	SessionNotFoundMessage = "Session not found"
	InvalidDeltaMessage    = "delta must be 1 or -1"
	InvalidRequestMessage  = "Invalid request body"
)

// StateResponse is the view of a session after any request
type StateResponse struct {
	SessionID string          `json:"session_id"`
	Card      deck.Projection `json:"card"`
	Progress  deck.Progress   `json:"progress"`
}

// CommandResponse adds the command result to the session state
type CommandResponse struct {
	StateResponse
	Outcome deck.Outcome `json:"outcome"`
	Removed int          `json:"removed,omitempty"`
	Message string       `json:"message,omitempty"`
	Level   string       `json:"level,omitempty"`
}

// AdvanceRequest is the body of POST /v1/sessions/{sessionID}/advance
type AdvanceRequest struct {
	Delta *int `json:"delta" validate:"required,oneof=1 -1"`
}

// DatasetResponse summarises the loaded dataset
type DatasetResponse struct {
	Available  bool                          `json:"available"`
	Total      int                           `json:"total"`
	Found      int                           `json:"found"`
	Missing    int                           `json:"missing"`
	LastUpdate string                        `json:"last_update,omitempty"`
	LastError  string                        `json:"last_error,omitempty"`
	Report     *interfaces.DataQualityReport `json:"report"`
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status        string         `json:"status"`
	Uptime        string         `json:"uptime"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Data          map[string]any `json:"data"`
	System        map[string]any `json:"system"`
}

func stateOf(s interfaces.Session, d *deck.Deck) StateResponse {
	return StateResponse{
		SessionID: s.ID().String(),
		Card:      d.CurrentProjection(),
		Progress:  d.Progress(),
	}
}

// removedMessage builds the remove-unfound message and level
func removedMessage(removed int, outcome deck.Outcome) (string, string) {
	if outcome == deck.OutcomeNothingToRemove {
		return NothingToRemoveMessage, LevelInfo
	}
	return fmt.Sprintf(RemovedMessageFormat, removed), LevelSuccess
}

// markKnownMessage builds the mark-known message and level
func markKnownMessage(outcome deck.Outcome) (string, string) {
	switch outcome {
	case deck.OutcomeDeckComplete:
		return DeckCompleteMessage, LevelSuccess
	case deck.OutcomeOK:
		return MarkedKnownMessage, LevelSuccess
	default:
		return "", ""
	}
}

// GenerateETag returns a quoted 64-bit hash of the payload
func GenerateETag(data []byte) string {
	return fmt.Sprintf(`"%016x"`, xxhash.Sum64(data))
}

// CheckETag reports whether the client already has the current representation
func CheckETag(r *http.Request, etag string) bool {
	match := r.Header.Get("If-None-Match")
	return match != "" && match == etag
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}
