package driving

import (
	"context"

	"github.com/latchkey-io/latchkey-core/internal/core/domain"
)

// Scheme is the lifecycle every authentication protocol implements. A scheme
// instance is scoped to one request: it reads one request context, caches at
// most one resolved user, and must not be shared across requests.
//
// Credential validation (Validate, Attempt) fails loudly with typed errors.
// Passive authentication (Check, User, LoginIfCan) degrades to false/nil for
// recoverable causes - a missing or invalid token is not an error condition.
// Storage failures are the exception: Check and User surface them.
type Scheme interface {
	// Validate checks a uid/password pair against the serializer and returns
	// the matching user. Fails with UserNotFoundError or PasswordMismatchError.
	Validate(ctx context.Context, uid, password string) (*domain.User, error)

	// Attempt composes Validate with the scheme-specific token generation
	// step. Validation failures propagate unchanged.
	Attempt(ctx context.Context, uid, password string) (*domain.AuthToken, error)

	// Check authenticates the current request without raising on recoverable
	// failure. On success the resolved user is cached on the instance.
	Check(ctx context.Context) (bool, error)

	// User returns the cached user, running Check first if needed. Nil when
	// the request is unauthenticated.
	User(ctx context.Context) (*domain.User, error)

	// LoginIfCan is Check for optional authentication: it never returns an
	// error, even for storage failures or malformed input.
	LoginIfCan(ctx context.Context) bool
}
