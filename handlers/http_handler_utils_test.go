package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/giygas/vetflash-api/data"
	"github.com/giygas/vetflash-api/deck"
	"github.com/giygas/vetflash-api/health"
	"github.com/giygas/vetflash-api/interfaces"
	"github.com/giygas/vetflash-api/session"
	"github.com/giygas/vetflash-api/validation"
	"github.com/go-chi/chi/v5"
)

// ============================================================================
// TEST DATA FACTORY
// ============================================================================

func testRecords() []deck.MedicationRecord {
	return []deck.MedicationRecord{
		{
			InputName:        "Metacam",
			Found:            true,
			Varenr:           "012345",
			ExactMatch:       true,
			ActiveSubstances: []string{"Meloxicam"},
			Indications:      []string{"Smerter hos hunde"},
			SourceURL:        "https://vetisearch.dk/produkt/012345",
		},
		{InputName: "Ukendt præparat", Found: false},
		{
			InputName:   "Rimadyl",
			Found:       true,
			Varenr:      "54321",
			ExactMatch:  false,
			VariantName: "Rimadyl Vet 50 mg",
		},
	}
}

// mockReloader counts calls and optionally fills the store
type mockReloader struct {
	mu      sync.Mutex
	calls   int
	store   *data.DataContainer
	records []deck.MedicationRecord
	err     error
}

func (m *mockReloader) Reload(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		m.store.RecordFailure(m.err)
		return m.err
	}
	m.store.UpdateData(m.records, nil)
	return nil
}

func (m *mockReloader) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type testEnv struct {
	store    *data.DataContainer
	sessions *session.Store
	handler  *HTTPHandlerImpl
	router   http.Handler
}

// newTestEnv builds a handler over a real container; records == nil leaves it unloaded
func newTestEnv(t *testing.T, records []deck.MedicationRecord, reloader interfaces.Reloader) *testEnv {
	t.Helper()

	store := data.NewDataContainer()
	store.SetServerStartTime(time.Now())
	if records != nil {
		store.UpdateData(records, validation.NewDataValidator().ReportDataQuality(records))
	}

	sessions := session.NewStore()
	handler := NewHTTPHandler(store, validation.NewDataValidator(), sessions,
		health.NewHealthChecker(store, "06:00;18:00"), reloader).(*HTTPHandlerImpl)

	return &testEnv{
		store:    store,
		sessions: sessions,
		handler:  handler,
		router:   newTestRouter(handler),
	}
}

func newTestRouter(h interfaces.HTTPHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", h.HealthCheck)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/dataset", h.ServeDataset)
		r.Post("/sessions", h.CreateSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.DeleteSession)
			r.Post("/advance", h.Advance)
			r.Post("/next", h.Next)
			r.Post("/prev", h.Previous)
			r.Post("/flip", h.Flip)
			r.Post("/shuffle", h.Shuffle)
			r.Post("/remove-unfound", h.RemoveUnfound)
			r.Post("/mark-known", h.MarkKnown)
			r.Post("/reload", h.Reload)
		})
	})
	return r
}

// commandBody mirrors CommandResponse with the outcome as text
type commandBody struct {
	SessionID string          `json:"session_id"`
	Card      deck.Projection `json:"card"`
	Progress  deck.Progress   `json:"progress"`
	Outcome   string          `json:"outcome"`
	Removed   int             `json:"removed"`
	Message   string          `json:"message"`
	Level     string          `json:"level"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) createSession(t *testing.T) commandBody {
	t.Helper()

	rr := e.do(t, http.MethodPost, "/v1/sessions", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201 creating session, got %d: %s", rr.Code, rr.Body.String())
	}
	return decode[commandBody](t, rr)
}

func (e *testEnv) command(t *testing.T, sessionID, name string) commandBody {
	t.Helper()

	rr := e.do(t, http.MethodPost, "/v1/sessions/"+sessionID+"/"+name, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 for %s, got %d: %s", name, rr.Code, rr.Body.String())
	}
	return decode[commandBody](t, rr)
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rr.Body.String(), err)
	}
	return v
}

var errSourceDown = errors.New("HTTP error! status: 503")
