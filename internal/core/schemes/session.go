package schemes

import (
	"context"

	"github.com/latchkey-io/latchkey-core/internal/core/domain"
	"github.com/latchkey-io/latchkey-core/internal/core/ports/driven"
	"github.com/latchkey-io/latchkey-core/internal/core/ports/driving"
)

// Ensure SessionScheme implements Scheme
var _ driving.Scheme = (*SessionScheme)(nil)

// SessionScheme authenticates credentials and keeps the login on the
// instance itself. It never consults the request for a wire token: Check
// reports only whether a login happened on this instance, which makes the
// scheme a building block for hosts that carry state in their own session
// layer.
type SessionScheme struct {
	baseScheme
}

// NewSessionScheme creates a session scheme bound to one request.
func NewSessionScheme(cfg domain.AuthenticatorConfig, serializer driven.Serializer, request driven.Request) *SessionScheme {
	return &SessionScheme{
		baseScheme: baseScheme{
			cfg:        cfg.WithDefaults(),
			serializer: serializer,
			request:    request,
		},
	}
}

// Attempt validates the credential pair and logs the user in on this
// instance. The returned token is a login nonce the host can key its own
// session state on; the scheme itself never reads it back.
func (s *SessionScheme) Attempt(ctx context.Context, uid, password string) (*domain.AuthToken, error) {
	user, err := s.Validate(ctx, uid, password)
	if err != nil {
		return nil, err
	}
	s.user = user
	return &domain.AuthToken{Type: "session", Value: randomToken(16)}, nil
}

// Check reports whether a login was performed on this instance.
func (s *SessionScheme) Check(ctx context.Context) (bool, error) {
	return s.user != nil, nil
}

// User returns the logged-in user, or nil when Check would fail.
func (s *SessionScheme) User(ctx context.Context) (*domain.User, error) {
	return s.user, nil
}

// LoginIfCan reports whether the instance holds a login. Never errors.
func (s *SessionScheme) LoginIfCan(ctx context.Context) bool {
	ok, _ := s.Check(ctx)
	return ok
}
