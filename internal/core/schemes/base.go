package schemes

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"regexp"

	"github.com/latchkey-io/latchkey-core/internal/core/domain"
	"github.com/latchkey-io/latchkey-core/internal/core/ports/driven"
)

// tokenHeaderPattern accepts "Bearer <token>" and "Token <token>" header
// values. The scheme prefix is case-sensitive; only the captured group is
// treated as the token.
var tokenHeaderPattern = regexp.MustCompile(`^(Bearer|Token)\s+(.+)$`)

// baseScheme carries what every scheme variant shares: the immutable
// authenticator configuration, the serializer resolving identities, the
// request being authenticated, and the request-scoped user cache.
type baseScheme struct {
	cfg        domain.AuthenticatorConfig
	serializer driven.Serializer
	request    driven.Request
	user       *domain.User
}

// Validate looks up the user by uid and verifies the password against the
// stored hash. Fails with UserNotFoundError when no user matches and
// PasswordMismatchError when the password does not verify; both carry the
// configured uid field name. Storage failures propagate unchanged.
func (b *baseScheme) Validate(ctx context.Context, uid, password string) (*domain.User, error) {
	user, err := b.serializer.FindByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &domain.UserNotFoundError{Field: b.cfg.UID, Value: uid}
	}
	if !b.serializer.ValidateCredentials(ctx, user, password) {
		return nil, &domain.PasswordMismatchError{Field: b.cfg.UID}
	}
	return user, nil
}

// requestToken extracts the raw token from the request: the configured
// header first, the configured query/body parameter when the header is
// absent. A header that is present but malformed yields nothing - there is
// no fallback past a bad header.
func (b *baseScheme) requestToken() string {
	if header := b.request.Header(b.cfg.HeaderKey); header != "" {
		if m := tokenHeaderPattern.FindStringSubmatch(header); m != nil {
			return m[2]
		}
		return ""
	}
	return b.request.Input(b.cfg.InputKey)
}

func randomToken(size int) string {
	buf := make([]byte, size)
	_, _ = rand.Read(buf)
	return base64.RawURLEncoding.EncodeToString(buf)
}
