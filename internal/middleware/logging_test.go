package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// =============================================================================
// Request Logging Middleware Tests
// =============================================================================

func newBufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestRequestLoggingMiddleware_LogsBasicInfo(t *testing.T) {
	logger, buf := newBufferLogger()
	mw := NewRequestLoggingMiddleware(logger)

	wrapped := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/auth/login", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	req.Header.Set("User-Agent", "test-agent/1.0")
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	logOutput := buf.String()
	for _, want := range []string{"GET", "/auth/login", "status=200", "duration_ms", "192.168.1.1", "test-agent/1.0", "request_id"} {
		if !strings.Contains(logOutput, want) {
			t.Errorf("log should contain %q, got: %s", want, logOutput)
		}
	}
}

func TestRequestLoggingMiddleware_SetsRequestID(t *testing.T) {
	logger, _ := newBufferLogger()
	wrapped := NewRequestLoggingMiddleware(logger).Handler(http.NotFoundHandler())

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected X-Request-ID response header")
	}

	const incoming = "0b7c6f3e-9d3a-4e55-8a55-0d8a3c1f2b11"
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	rec = httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != incoming {
		t.Errorf("X-Request-ID = %q, want incoming id %q", got, incoming)
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	rec = httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got == "<script>" {
		t.Error("malformed incoming request id should be replaced")
	}
}

func TestRequestLoggingMiddleware_LogsClientIPFromProxy(t *testing.T) {
	logger, buf := newBufferLogger()
	wrapped := NewRequestLoggingMiddleware(logger).Handler(http.NotFoundHandler())

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:8080"
	req.Header.Set("X-Forwarded-For", "203.0.113.195, 70.41.3.18")
	wrapped.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), "203.0.113.195") {
		t.Errorf("log should contain client IP from X-Forwarded-For, got: %s", buf.String())
	}
}

func TestRequestLoggingMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "level=INFO"},
		{http.StatusSeeOther, "level=INFO"},
		{http.StatusUnprocessableEntity, "level=WARN"},
		{http.StatusInternalServerError, "level=ERROR"},
	}

	for _, tt := range tests {
		logger, buf := newBufferLogger()
		wrapped := NewRequestLoggingMiddleware(logger).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/auth/register", nil))

		if !strings.Contains(buf.String(), tt.level) {
			t.Errorf("status %d: log should contain %q, got: %s", tt.status, tt.level, buf.String())
		}
	}
}

func TestRequestLoggingMiddleware_DoesNotLogSensitiveQueryParams(t *testing.T) {
	logger, buf := newBufferLogger()
	wrapped := NewRequestLoggingMiddleware(logger).Handler(http.NotFoundHandler())

	req := httptest.NewRequest("GET", "/auth/forgot-password/verify-code?code=zqcode&credential=eyJhbGc&step=2", nil)
	wrapped.ServeHTTP(httptest.NewRecorder(), req)

	logOutput := buf.String()
	if strings.Contains(logOutput, "zqcode") || strings.Contains(logOutput, "eyJhbGc") {
		t.Errorf("log should not contain sensitive values, got: %s", logOutput)
	}
	if !strings.Contains(logOutput, "[REDACTED]") {
		t.Errorf("log should contain redaction marker, got: %s", logOutput)
	}
	if !strings.Contains(logOutput, "step=2") {
		t.Errorf("log should keep non-sensitive params, got: %s", logOutput)
	}
}

func TestRequestLoggingMiddleware_LogsRedirectLocation(t *testing.T) {
	logger, buf := newBufferLogger()
	wrapped := NewRequestLoggingMiddleware(logger).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/auth/login?reset=1", http.StatusSeeOther)
	}))

	wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/auth/forgot-password/reset-password", nil))

	if !strings.Contains(buf.String(), `location="/auth/login?reset=1"`) {
		t.Errorf("log should contain redirect location, got: %s", buf.String())
	}
}

func TestRequestLoggingMiddleware_PassesRequestThrough(t *testing.T) {
	logger, _ := newBufferLogger()

	var called bool
	wrapped := NewRequestLoggingMiddleware(logger).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Header().Set("X-Custom-Header", "test-value")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("response body"))
	}))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest("POST", "/auth/login", nil))

	if !called {
		t.Error("handler was not called")
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rec.Code)
	}
	if rec.Header().Get("X-Custom-Header") != "test-value" {
		t.Error("custom header was not preserved")
	}
	if rec.Body.String() != "response body" {
		t.Errorf("body was not preserved, got: %s", rec.Body.String())
	}
}

func TestRequestLoggingMiddleware_ExcludesNoisyPaths(t *testing.T) {
	for _, path := range []string{"/health", "/metrics", "/static/app.css"} {
		logger, buf := newBufferLogger()
		wrapped := NewRequestLoggingMiddleware(logger).Handler(http.NotFoundHandler())

		wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))

		if buf.Len() != 0 {
			t.Errorf("%s should not be logged, got: %s", path, buf.String())
		}
	}
}
