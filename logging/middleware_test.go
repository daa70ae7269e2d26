package logging

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func newCapturingLogger() (*slog.Logger, *strings.Builder) {
	var logOutput strings.Builder
	logger := slog.New(slog.NewTextHandler(&logOutput, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	return logger, &logOutput
}

// TestLoggingMiddleware checks which requests are logged and with which fields
func TestLoggingMiddleware(t *testing.T) {
	logger, logOutput := newCapturingLogger()

	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))

	tests := []struct {
		name      string
		target    string
		requestID any
		contains  []string
		absent    []string
	}{
		{
			name:      "health probe is not logged",
			target:    "/health",
			requestID: "test-123",
		},
		{
			name:      "metrics scrape is not logged",
			target:    "/metrics",
			requestID: "test-456",
		},
		{
			name:      "api request is logged",
			target:    "/v1/sessions",
			requestID: "test-789",
			contains:  []string{"HTTP request", "path=/v1/sessions", "request_id=test-789", "bytes_written=2"},
			absent:    []string{"query="},
		},
		{
			name:      "non-string request id falls back",
			target:    "/v1/dataset",
			requestID: 12345,
			contains:  []string{"request_id=unknown"},
		},
		{
			name:      "query string is logged when present",
			target:    "/v1/dataset?verbose=1",
			requestID: "test-1",
			contains:  []string{"query=", "verbose=1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logOutput.Reset()
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, tt.requestID))
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", rr.Code)
			}

			logs := logOutput.String()
			if len(tt.contains) == 0 && logs != "" {
				t.Errorf("expected no logs for %s, got: %s", tt.target, logs)
			}
			for _, want := range tt.contains {
				if !strings.Contains(logs, want) {
					t.Errorf("log should contain %q, got: %s", want, logs)
				}
			}
			for _, unwanted := range tt.absent {
				if strings.Contains(logs, unwanted) {
					t.Errorf("log should not contain %q, got: %s", unwanted, logs)
				}
			}
		})
	}
}

// TestLoggingMiddlewareRouteAttributes verifies route pattern and session id are logged
func TestLoggingMiddlewareRouteAttributes(t *testing.T) {
	logger, logOutput := newCapturingLogger()

	router := chi.NewRouter()
	router.Use(LoggingMiddleware(logger))
	router.Post("/v1/sessions/{sessionID}/flip", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/0b6f1f5e-1c2d-4f7a-9a57-3e1f2f1b9c11/flip", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	logs := logOutput.String()
	if !strings.Contains(logs, "route=/v1/sessions/{sessionID}/flip") {
		t.Errorf("log should contain the route pattern, got: %s", logs)
	}
	if !strings.Contains(logs, "session_id=0b6f1f5e-1c2d-4f7a-9a57-3e1f2f1b9c11") {
		t.Errorf("log should contain the session id, got: %s", logs)
	}
}

// TestLoggingMiddlewareServerErrorLevel verifies 5xx responses are logged as errors
func TestLoggingMiddlewareServerErrorLevel(t *testing.T) {
	logger, logOutput := newCapturingLogger()

	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(logOutput.String(), "level=ERROR") {
		t.Errorf("5xx should be logged at error level, got: %s", logOutput.String())
	}
}
