package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/latchkey-io/latchkey-core/internal/core/domain"
	"github.com/latchkey-io/latchkey-core/internal/core/ports/driving"
	"github.com/latchkey-io/latchkey-core/internal/core/schemes"
	"github.com/latchkey-io/latchkey-core/internal/observability"
)

// Context keys
type contextKey string

const authStateKey contextKey = "auth_state"

// authState is what the authentication middleware leaves on the request
// context: the selected authenticator name, its request-scoped scheme
// instance, and the resolved user.
type authState struct {
	name   string
	scheme driving.Scheme
	user   *domain.User
}

// authStateFrom retrieves the auth state from a request context.
func authStateFrom(ctx context.Context) *authState {
	if ctx == nil {
		return nil
	}
	state, ok := ctx.Value(authStateKey).(*authState)
	if !ok {
		return nil
	}
	return state
}

// AuthMiddleware authenticates requests through the configured
// authenticators. Every request gets a fresh scheme instance; scheme state
// never leaks across requests.
type AuthMiddleware struct {
	factory        *schemes.Factory
	authenticators map[string]domain.AuthenticatorConfig
	defaultName    string
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(factory *schemes.Factory, authenticators map[string]domain.AuthenticatorConfig, defaultName string) *AuthMiddleware {
	return &AuthMiddleware{
		factory:        factory,
		authenticators: authenticators,
		defaultName:    defaultName,
	}
}

// scheme resolves the authenticator selected by the request (falling back
// to the default) and builds a scheme bound to this request.
func (m *AuthMiddleware) scheme(r *http.Request) (string, domain.AuthenticatorConfig, driving.Scheme, error) {
	name := r.URL.Query().Get("authenticator")
	if name == "" {
		name = m.defaultName
	}

	cfg, ok := m.authenticators[name]
	if !ok {
		return name, domain.AuthenticatorConfig{}, nil, fmt.Errorf("%w: no authenticator named %q", domain.ErrUnknownScheme, name)
	}

	scheme, err := m.factory.Make(cfg, NewRequest(r))
	return name, cfg, scheme, err
}

// Authenticate validates the request credential and adds auth state to the
// request context. Recoverable failures are a 401; a broken storage backend
// is a 500.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, cfg, scheme, err := m.scheme(r)
		if err != nil {
			writeErrorCode(w, http.StatusBadRequest, "unknown authenticator", domain.ErrorCode(err))
			return
		}

		ok, err := scheme.Check(r.Context())
		if err != nil {
			observability.AuthDecisions.WithLabelValues(cfg.Scheme, "error").Inc()
			writeError(w, http.StatusInternalServerError, "authentication backend unavailable")
			return
		}
		if !ok {
			observability.AuthDecisions.WithLabelValues(cfg.Scheme, "denied").Inc()
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		user, err := scheme.User(r.Context())
		if err != nil || user == nil {
			observability.AuthDecisions.WithLabelValues(cfg.Scheme, "error").Inc()
			writeError(w, http.StatusInternalServerError, "authentication backend unavailable")
			return
		}

		observability.AuthDecisions.WithLabelValues(cfg.Scheme, "allowed").Inc()
		ctx := context.WithValue(r.Context(), authStateKey, &authState{name: name, scheme: scheme, user: user})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logging middleware

// LoggingMiddleware logs HTTP requests
type LoggingMiddleware struct {
	logger *slog.Logger
}

// NewLoggingMiddleware creates a new LoggingMiddleware
func NewLoggingMiddleware(logger *slog.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

// Handler wraps an http.Handler with request logging
func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		m.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration", time.Since(start),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Recovery middleware

// RecoveryMiddleware recovers from panics. Panics are reported to Sentry
// when a DSN was configured at startup.
type RecoveryMiddleware struct{}

// NewRecoveryMiddleware creates a new RecoveryMiddleware
func NewRecoveryMiddleware() *RecoveryMiddleware {
	return &RecoveryMiddleware{}
}

// Handler wraps an http.Handler with panic recovery
func (m *RecoveryMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				sentry.WithScope(func(scope *sentry.Scope) {
					scope.SetExtra("panic", rec)
					scope.SetExtra("stack", string(debug.Stack()))
					sentry.CaptureMessage("panic in request")
				})

				slog.Error("panic recovered",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rec,
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// MetricsMiddleware records request duration by method and status class.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		status := strconv.Itoa(rw.statusCode/100) + "xx"
		observability.RequestDuration.WithLabelValues(r.Method, status).Observe(time.Since(start).Seconds())
	})
}
