package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrMissingSecret indicates a signed-token authenticator was configured
	// without a signing secret. Fatal at construction time.
	ErrMissingSecret = errors.New("missing signing secret")

	// ErrInvalidToken indicates a signed token is absent, malformed, or failed
	// verification
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidAPIToken indicates an opaque API token is absent or does not
	// resolve to a live token record
	ErrInvalidAPIToken = errors.New("invalid api token")

	// ErrUnknownScheme indicates the scheme name is not registered
	ErrUnknownScheme = errors.New("unknown authentication scheme")

	// ErrUnknownSerializer indicates the serializer name is not registered
	ErrUnknownSerializer = errors.New("unknown serializer")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrSetupComplete indicates the one-time setup endpoint was already used
	ErrSetupComplete = errors.New("setup already complete")
)

// UserNotFoundError is returned by credential validation when no user matches
// the presented uid. Field carries the configured uid field name so callers
// can report which credential failed.
type UserNotFoundError struct {
	Field string
	Value string
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("cannot find user with %s %q", e.Field, e.Value)
}

// PasswordMismatchError is returned by credential validation when the user
// exists but the password does not verify against the stored hash.
type PasswordMismatchError struct {
	Field string
}

func (e *PasswordMismatchError) Error() string {
	return fmt.Sprintf("password mismatch for %s", e.Field)
}

// MissingIdentityError is returned by token generation when the user is nil
// or has no primary-key value to embed.
type MissingIdentityError struct {
	Scheme string
}

func (e *MissingIdentityError) Error() string {
	return fmt.Sprintf("%s scheme cannot generate a token without a user identity", e.Scheme)
}

// ErrorCode returns the stable machine-readable code for an authentication
// error. Errors outside the taxonomy map to "internal".
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingSecret):
		return "missing_secret"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrInvalidAPIToken):
		return "invalid_api_token"
	case errors.Is(err, ErrUnknownScheme):
		return "unknown_scheme"
	case errors.Is(err, ErrUnknownSerializer):
		return "unknown_serializer"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrSetupComplete):
		return "setup_complete"
	}

	var userNotFound *UserNotFoundError
	if errors.As(err, &userNotFound) {
		return "user_not_found"
	}
	var passwordMismatch *PasswordMismatchError
	if errors.As(err, &passwordMismatch) {
		return "password_mismatch"
	}
	var missingIdentity *MissingIdentityError
	if errors.As(err, &missingIdentity) {
		return "missing_identity"
	}

	return "internal"
}
