package http

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven/mocks"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{
			name:     "valid bearer token",
			header:   "Bearer abc123",
			expected: "abc123",
		},
		{
			name:     "bearer with extra spaces",
			header:   "Bearer   token-with-spaces   ",
			expected: "token-with-spaces",
		},
		{
			name:     "lowercase bearer",
			header:   "bearer token123",
			expected: "token123",
		},
		{
			name:     "empty header",
			header:   "",
			expected: "",
		},
		{
			name:     "no bearer prefix",
			header:   "token123",
			expected: "",
		},
		{
			name:     "basic auth",
			header:   "Basic dXNlcjpwYXNz",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			result := extractBearerToken(req)
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestGetAuthContext(t *testing.T) {
	if GetAuthContext(context.Background()) != nil {
		t.Error("expected nil for context without auth")
	}

	ctx := context.WithValue(context.Background(), authContextKey, &domain.AuthContext{Subject: "scheduler"})
	result := GetAuthContext(ctx)
	if result == nil {
		t.Fatal("expected auth context to be returned")
	}
	if result.Subject != "scheduler" {
		t.Errorf("expected subject scheduler, got %s", result.Subject)
	}
}

func TestAuthMiddleware(t *testing.T) {
	auth := mocks.NewMockAuthAdapter()
	now := time.Unix(1_700_000_000, 0)

	expired, _ := auth.GenerateToken(&domain.TokenClaims{Subject: "old", ExpiresAt: now.Add(-time.Minute).Unix()})
	valid, _ := auth.GenerateToken(&domain.TokenClaims{Subject: "ops", ExpiresAt: now.Add(time.Hour).Unix()})

	tests := []struct {
		name    string
		header  string
		status  int
		message string
	}{
		{name: "missing token", header: "", status: http.StatusUnauthorized, message: "missing authorization token"},
		{name: "garbage token", header: "Bearer not-base64!", status: http.StatusUnauthorized, message: "invalid token"},
		{name: "expired token", header: "Bearer " + expired, status: http.StatusUnauthorized, message: "token expired"},
		{name: "valid token", header: "Bearer " + valid, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewAuthMiddleware(auth)
			m.now = func() time.Time { return now }

			var subject string
			handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if ac := GetAuthContext(r.Context()); ac != nil {
					subject = ac.Subject
				}
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/api/v1/connectors", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rr.Code)
			}
			if tt.message != "" && !strings.Contains(rr.Body.String(), tt.message) {
				t.Errorf("expected body to contain %q, got %s", tt.message, rr.Body.String())
			}
			if tt.status == http.StatusOK && subject != "ops" {
				t.Errorf("expected subject ops in context, got %q", subject)
			}
		})
	}
}

func TestAuthMiddleware_AdapterError(t *testing.T) {
	auth := mocks.NewMockAuthAdapter()
	token := auth.Token("ops")
	auth.ParseErr = domain.ErrTokenExpired

	handler := NewAuthMiddleware(auth).Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "token expired") {
		t.Errorf("expected token expired message, got %s", rr.Body.String())
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	middleware := NewLoggingMiddleware(slog.New(slog.NewTextHandler(&buf, nil)))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()

	middleware.Handler(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Errorf("expected status 418, got %d", rr.Code)
	}
	out := buf.String()
	if !strings.Contains(out, "path=/test") || !strings.Contains(out, "status=418") {
		t.Errorf("expected request to be logged, got %s", out)
	}
}

func TestRecovery(t *testing.T) {
	server := &Server{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	handler := server.wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	}), nil)

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rr.Code)
	}
}

func TestCORS(t *testing.T) {
	server := &Server{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	handler := server.wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), []string{"https://example.com"})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Origin", "https://example.com")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Allow-Origin") != "https://example.com" {
		t.Errorf("expected CORS origin header to be set, got %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Origin", "https://evil.com")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("expected no CORS header for disallowed origin")
	}
}

func TestResponseWriter(t *testing.T) {
	rr := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rr, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusNotFound)
	if rw.statusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rw.statusCode)
	}
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected underlying status 404, got %d", rr.Code)
	}
}
