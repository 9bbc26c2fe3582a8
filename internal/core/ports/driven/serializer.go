package driven

import (
	"context"

	"github.com/latchkey-io/latchkey-core/internal/core/domain"
)

// Serializer abstracts user and token storage behind one contract so the
// authentication schemes stay backend-agnostic. Absence of a record is
// (nil, nil), not an error: the schemes decide whether a miss is a hard
// validation failure or a soft "not authenticated". Errors signal
// infrastructure failures and propagate unchanged.
type Serializer interface {
	// FindByID resolves a user by primary-key value.
	FindByID(ctx context.Context, id string) (*domain.User, error)

	// FindByUID resolves a user by uid value (e.g. email).
	FindByUID(ctx context.Context, uid string) (*domain.User, error)

	// FindByToken resolves the user holding a live (non-revoked) token of the
	// given type.
	FindByToken(ctx context.Context, token, tokenType string) (*domain.User, error)

	// ValidateCredentials verifies a plaintext password against the user's
	// stored hash. Returns false, never an error, when the user is nil or
	// the password does not match.
	ValidateCredentials(ctx context.Context, user *domain.User, password string) bool

	// PrimaryKey returns the primary-key field name of the backing model.
	PrimaryKey() string

	TokenStore
}

// TokenStore is the opaque-token persistence subset of the Serializer.
type TokenStore interface {
	// SaveToken inserts a new, non-revoked token record linked to the user.
	SaveToken(ctx context.Context, user *domain.User, token, tokenType string) error

	// RevokeTokens marks tokens of the given type revoked, or deletes them
	// when delete is set. An empty tokens list affects every token of that
	// type for the user. Revoking an absent or already-revoked token is a
	// no-op, not an error.
	RevokeTokens(ctx context.Context, user *domain.User, tokenType string, tokens []string, delete bool) error

	// ListTokens returns the user's live tokens of the given type, newest
	// first. Empty, never an error, when the user is nil or has none.
	ListTokens(ctx context.Context, user *domain.User, tokenType string) ([]*domain.OpaqueToken, error)
}
