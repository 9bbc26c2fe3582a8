package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/latchkey-io/latchkey-core/internal/core/domain"
	"github.com/latchkey-io/latchkey-core/internal/core/ports/driven/mocks"
	"github.com/latchkey-io/latchkey-core/internal/core/schemes"
)

func newTestAuthMiddleware(t *testing.T) (*AuthMiddleware, *mocks.MockSerializer) {
	t.Helper()

	serializer := mocks.NewMockSerializer()
	factory := schemes.NewFactory(mocks.NewMockCipher())
	factory.RegisterSerializer("memory", serializer)

	authenticators := map[string]domain.AuthenticatorConfig{
		"api": {Scheme: domain.SchemeAPI, Serializer: "memory"},
	}
	return NewAuthMiddleware(factory, authenticators, "api"), serializer
}

func TestAuthStateFrom(t *testing.T) {
	// Test with empty context (context.TODO represents unknown context)
	if authStateFrom(context.TODO()) != nil {
		t.Error("expected nil for empty context")
	}

	// Test with context without auth
	if authStateFrom(context.Background()) != nil {
		t.Error("expected nil for context without auth")
	}

	// Test with seeded auth state
	state := &authState{name: "api", user: &domain.User{ID: "user-123"}}
	ctx := context.WithValue(context.Background(), authStateKey, state)
	result := authStateFrom(ctx)
	if result == nil {
		t.Fatal("expected auth state to be returned")
	}
	if result.name != "api" {
		t.Errorf("expected authenticator api, got %s", result.name)
	}
	if result.user.ID != "user-123" {
		t.Errorf("expected user ID user-123, got %s", result.user.ID)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	middleware, _ := newTestAuthMiddleware(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()

	middleware.Authenticate(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}

func TestAuthMiddleware_PassesUserToHandler(t *testing.T) {
	middleware, serializer := newTestAuthMiddleware(t)

	user := &domain.User{ID: "user-123", Email: "virk@adonisjs.com", PasswordHash: "secret"}
	ctx := context.Background()
	if err := serializer.SaveUser(ctx, user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	if err := serializer.SaveToken(ctx, user, "tok-1", domain.TokenTypeAPI); err != nil {
		t.Fatalf("failed to seed token: %v", err)
	}

	var seen *authState
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = authStateFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer etok-1")
	rr := httptest.NewRecorder()

	middleware.Authenticate(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if seen == nil {
		t.Fatal("expected auth state in the request context")
	}
	if seen.name != "api" {
		t.Errorf("expected authenticator api, got %s", seen.name)
	}
	if seen.user == nil || seen.user.ID != "user-123" {
		t.Errorf("expected resolved user user-123, got %+v", seen.user)
	}
	if seen.scheme == nil {
		t.Error("expected the request scheme to be retained")
	}
}

func TestAuthMiddleware_UnknownAuthenticator(t *testing.T) {
	middleware, _ := newTestAuthMiddleware(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/test?authenticator=ldap", nil)
	rr := httptest.NewRecorder()

	middleware.Authenticate(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestAuthMiddleware_StorageError(t *testing.T) {
	middleware, serializer := newTestAuthMiddleware(t)
	serializer.FailWith = errors.New("connection refused")

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer etok-1")
	rr := httptest.NewRecorder()

	middleware.Authenticate(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rr.Code)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	middleware := NewLoggingMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil)))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()

	middleware.Handler(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	middleware := NewRecoveryMiddleware()

	// Handler that panics
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()

	// Should not panic
	middleware.Handler(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rr.Code)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()

	MetricsMiddleware(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Errorf("expected status 418, got %d", rr.Code)
	}
}

func TestResponseWriter(t *testing.T) {
	rr := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rr, statusCode: http.StatusOK}

	// Default status
	if rw.statusCode != http.StatusOK {
		t.Errorf("expected default status 200, got %d", rw.statusCode)
	}

	// Write header
	rw.WriteHeader(http.StatusNotFound)
	if rw.statusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rw.statusCode)
	}
}
