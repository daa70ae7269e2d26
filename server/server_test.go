package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/giygas/vetflash-api/config"
	"github.com/giygas/vetflash-api/data"
	"github.com/giygas/vetflash-api/deck"
	"github.com/giygas/vetflash-api/handlers"
	"github.com/giygas/vetflash-api/health"
	"github.com/giygas/vetflash-api/logging"
	"github.com/giygas/vetflash-api/session"
	"github.com/giygas/vetflash-api/validation"
	"github.com/go-chi/chi/v5/middleware"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:            "8080",
		Address:         "localhost",
		Env:             config.EnvTest,
		LogLevel:        "info",
		MaxRequestBody:  1048576,
		MaxHeaderSize:   1048576,
		DataReloadTimes: "06:00;18:00",
	}
}

// newTestServer wires a server over a loaded dataset
func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	logging.InitLogger("")

	records := []deck.MedicationRecord{
		{InputName: "Metacam", Found: true, Varenr: "012345", ExactMatch: true},
		{InputName: "Ukendt", Found: false},
	}

	store := data.NewDataContainer()
	store.SetServerStartTime(time.Now())
	validator := validation.NewDataValidator()
	store.UpdateData(records, validator.ReportDataQuality(records))

	handler := handlers.NewHTTPHandler(store, validator, session.NewStore(),
		health.NewHealthChecker(store, cfg.DataReloadTimes), nil)

	return NewServer(cfg, handler)
}

func serve(s *Server, method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	req.RemoteAddr = "127.0.0.1:1234"
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

// TestNewServer tests server creation with various configurations
func TestNewServer(t *testing.T) {
	tests := []struct {
		name         string
		port         string
		address      string
		expectedAddr string
	}{
		{"default address", "8000", "127.0.0.1", "127.0.0.1:8000"},
		{"localhost", "8080", "localhost", "localhost:8080"},
		{"ipv6 loopback", "9000", "::1", "::1:9000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Port = tt.port
			cfg.Address = tt.address

			server := newTestServer(t, cfg)

			if server.server.Addr != tt.expectedAddr {
				t.Errorf("Expected address %s, got %s", tt.expectedAddr, server.server.Addr)
			}
			if server.server.ReadTimeout != 15*time.Second {
				t.Errorf("Expected ReadTimeout 15s, got %v", server.server.ReadTimeout)
			}
			if server.server.WriteTimeout != 15*time.Second {
				t.Errorf("Expected WriteTimeout 15s, got %v", server.server.WriteTimeout)
			}
			if server.server.IdleTimeout != 60*time.Second {
				t.Errorf("Expected IdleTimeout 60s, got %v", server.server.IdleTimeout)
			}
			if server.router == nil || server.limiter == nil {
				t.Error("Router and rate limiter should be initialized")
			}
		})
	}
}

func TestSetupMiddleware(t *testing.T) {
	server := newTestServer(t, testConfig())

	server.router.Get("/test", func(w http.ResponseWriter, r *http.Request) {
		// Check if request ID is available in the context
		if middleware.GetReqID(r.Context()) == "" {
			t.Error("RequestID should be available in request context")
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("test"))
	})

	rr := serve(server, http.MethodGet, "/test", nil)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if rr.Header().Get("X-RateLimit-Limit") != "1000" {
		t.Errorf("Expected rate limit headers, got %q", rr.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRecovererMiddleware(t *testing.T) {
	server := newTestServer(t, testConfig())
	server.router.Get("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rr := serve(server, http.MethodGet, "/panic", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 after panic, got %d", rr.Code)
	}
}

// TestSetupRoutes tests that all expected routes are configured
func TestSetupRoutes(t *testing.T) {
	server := newTestServer(t, testConfig())

	rr := serve(server, http.MethodPost, "/v1/sessions", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201 creating session, got %d: %s", rr.Code, rr.Body.String())
	}

	var created struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to decode session: %v", err)
	}
	base := "/v1/sessions/" + created.SessionID

	routes := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/v1/dataset", "", http.StatusOK},
		{http.MethodGet, base, "", http.StatusOK},
		{http.MethodPost, base + "/advance", `{"delta":1}`, http.StatusOK},
		{http.MethodPost, base + "/next", "", http.StatusOK},
		{http.MethodPost, base + "/prev", "", http.StatusOK},
		{http.MethodPost, base + "/flip", "", http.StatusOK},
		{http.MethodPost, base + "/shuffle", "", http.StatusOK},
		{http.MethodPost, base + "/remove-unfound", "", http.StatusOK},
		{http.MethodPost, base + "/mark-known", "", http.StatusOK},
		{http.MethodPost, base + "/reload", "", http.StatusOK},
		{http.MethodDelete, base, "", http.StatusNoContent},
		{http.MethodGet, base, "", http.StatusNotFound},
		{http.MethodGet, "/v1/sessions/nope", "", http.StatusBadRequest},
		{http.MethodPut, "/v1/dataset", "", http.StatusMethodNotAllowed},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			var body io.Reader
			if route.body != "" {
				body = strings.NewReader(route.body)
			}

			rr := serve(server, route.method, route.path, body)
			if rr.Code != route.status {
				t.Errorf("Expected %d, got %d: %s", route.status, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t, testConfig())

	serve(server, http.MethodGet, "/v1/dataset", nil)
	rr := serve(server, http.MethodGet, "/metrics", nil)

	body := rr.Body.String()
	for _, name := range []string{"http_request_total", "deck_sessions_active", "rate_limiter_buckets_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("Expected metric %s in exposition", name)
		}
	}
	if !strings.Contains(body, `path="/v1/dataset"`) {
		t.Error("Request metrics should be labelled with the route pattern")
	}
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>Flashcards</h1>"), 0o644); err != nil {
		t.Fatalf("Failed to write index: %v", err)
	}

	cfg := testConfig()
	cfg.StaticDir = dir
	server := newTestServer(t, cfg)

	rr := serve(server, http.MethodGet, "/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Flashcards") {
		t.Errorf("Expected index.html, got %s", rr.Body.String())
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Static files should allow any origin")
	}
	if !strings.Contains(rr.Header().Get("Cache-Control"), "no-store") {
		t.Errorf("Static files should not be cached, got %q", rr.Header().Get("Cache-Control"))
	}

	rr = serve(server, http.MethodGet, "/missing.js", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a missing file, got %d", rr.Code)
	}

	// API routes keep priority over the catch-all
	rr = serve(server, http.MethodGet, "/health", nil)
	if !strings.Contains(rr.Header().Get("Content-Type"), "application/json") {
		t.Error("Health should not be served by the file server")
	}
}

func TestStaticFilesDisabled(t *testing.T) {
	server := newTestServer(t, testConfig())

	rr := serve(server, http.MethodGet, "/", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without a static dir, got %d", rr.Code)
	}
}

func TestRequestBodyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRequestBody = 16
	server := newTestServer(t, cfg)

	rr := serve(server, http.MethodPost, "/v1/sessions", nil)
	var created struct {
		SessionID string `json:"session_id"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &created)

	rr = serve(server, http.MethodPost, "/v1/sessions/"+created.SessionID+"/advance",
		strings.NewReader(`{"delta":1,"padding":"xxxxxxxxxxxxxxxx"}`))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d", rr.Code)
	}
}

// TestServerLifecycle tests server start and shutdown
func TestServerLifecycle(t *testing.T) {
	cfg := testConfig()
	cfg.Port = "0" // Use port 0 for automatic port assignment
	cfg.LogLevel = "error"

	server := newTestServer(t, cfg)

	// Test server start
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	// Test graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		t.Errorf("Server shutdown should not error: %v", err)
	}

	select {
	case err := <-errChan:
		if err == nil {
			t.Error("Server should return error after shutdown")
		} else if !strings.Contains(err.Error(), "Server closed") {
			t.Errorf("Error should indicate server was closed: %v", err)
		}
	case <-time.After(1 * time.Second):
		t.Error("Server should have shutdown within 1 second")
	}

	// Stopping twice is safe
	server.limiter.Stop()
}
