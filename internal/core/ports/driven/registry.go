package driven

import (
	"context"

	"github.com/latchkey-io/latchkey-core/internal/core/domain"
)

// UserRegistry covers the host-side user bookkeeping the core itself needs:
// bootstrapping the first account and reporting whether any account exists.
// Everything else about user records belongs to the host application.
type UserRegistry interface {
	// CreateInitialUser persists the very first account. Fails with
	// ErrSetupComplete when any user already exists.
	CreateInitialUser(ctx context.Context, user *domain.User) error

	// CountUsers returns the number of registered users.
	CountUsers(ctx context.Context) (int, error)
}
