package schemes

import (
	"context"
	"errors"

	"github.com/latchkey-io/latchkey-core/internal/core/domain"
	"github.com/latchkey-io/latchkey-core/internal/core/ports/driven"
	"github.com/latchkey-io/latchkey-core/internal/core/ports/driving"
)

// Ensure APIScheme implements Scheme
var _ driving.Scheme = (*APIScheme)(nil)

// APIScheme authenticates opaque storage-backed tokens. The wire form is
// always the encrypted token: Generate encrypts before handing the value
// out, authentication decrypts before the storage lookup, and revocation
// accepts the wire form clients actually hold.
type APIScheme struct {
	baseScheme
	cipher driven.TokenCipher
}

// NewAPIScheme creates an API token scheme bound to one request.
func NewAPIScheme(cfg domain.AuthenticatorConfig, serializer driven.Serializer, cipher driven.TokenCipher, request driven.Request) *APIScheme {
	return &APIScheme{
		baseScheme: baseScheme{
			cfg:        cfg.WithDefaults(),
			serializer: serializer,
			request:    request,
		},
		cipher: cipher,
	}
}

// Generate mints a random token for the user, persists it under the
// configured type and returns the encrypted wire form. Fails with
// MissingIdentityError when the user carries no primary key value.
func (s *APIScheme) Generate(ctx context.Context, user *domain.User) (*domain.AuthToken, error) {
	if user == nil || user.ID == "" {
		return nil, &domain.MissingIdentityError{Scheme: domain.SchemeAPI}
	}

	value := randomToken(32)
	if err := s.serializer.SaveToken(ctx, user, value, s.cfg.TokenType); err != nil {
		return nil, err
	}
	encrypted, err := s.cipher.Encrypt(value)
	if err != nil {
		return nil, err
	}

	return &domain.AuthToken{Type: "bearer", Value: encrypted}, nil
}

// Attempt validates the credential pair and issues a fresh token for the
// matched user.
func (s *APIScheme) Attempt(ctx context.Context, uid, password string) (*domain.AuthToken, error) {
	user, err := s.Validate(ctx, uid, password)
	if err != nil {
		return nil, err
	}
	return s.Generate(ctx, user)
}

// authenticate resolves the request token to its owner. A missing,
// undecryptable or unresolvable token fails with ErrInvalidAPIToken;
// storage failures propagate unchanged.
func (s *APIScheme) authenticate(ctx context.Context) (*domain.User, error) {
	raw := s.requestToken()
	if raw == "" {
		return nil, domain.ErrInvalidAPIToken
	}
	value, err := s.cipher.Decrypt(raw)
	if err != nil {
		return nil, domain.ErrInvalidAPIToken
	}

	user, err := s.serializer.FindByToken(ctx, value, s.cfg.TokenType)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrInvalidAPIToken
	}
	return user, nil
}

// Check authenticates the request token. Invalid tokens report (false, nil);
// only storage failures surface as errors. The resolved user is cached for
// User.
func (s *APIScheme) Check(ctx context.Context) (bool, error) {
	if s.user != nil {
		return true, nil
	}

	user, err := s.authenticate(ctx)
	if errors.Is(err, domain.ErrInvalidAPIToken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.user = user
	return true, nil
}

// User returns the authenticated user, running Check when no login is
// cached yet. Nil without error when the request does not authenticate.
func (s *APIScheme) User(ctx context.Context) (*domain.User, error) {
	if s.user != nil {
		return s.user, nil
	}
	if _, err := s.Check(ctx); err != nil {
		return nil, err
	}
	return s.user, nil
}

// LoginIfCan authenticates when possible and reports the outcome. Never
// errors, even on storage failure.
func (s *APIScheme) LoginIfCan(ctx context.Context) bool {
	ok, _ := s.Check(ctx)
	return ok
}

// ListTokensForUser returns the user's live tokens of the configured type.
// Values come back in wire form, so a listed token can be fed straight to
// revocation. A nil user yields an empty list, never an error.
func (s *APIScheme) ListTokensForUser(ctx context.Context, user *domain.User) ([]*domain.OpaqueToken, error) {
	if user == nil {
		return []*domain.OpaqueToken{}, nil
	}

	records, err := s.serializer.ListTokens(ctx, user, s.cfg.TokenType)
	if err != nil {
		return nil, err
	}

	tokens := make([]*domain.OpaqueToken, 0, len(records))
	for _, record := range records {
		encrypted, err := s.cipher.Encrypt(record.Token)
		if err != nil {
			return nil, err
		}
		wire := *record
		wire.Token = encrypted
		tokens = append(tokens, &wire)
	}
	return tokens, nil
}

// ListTokens lists the live tokens of the currently authenticated user.
func (s *APIScheme) ListTokens(ctx context.Context) ([]*domain.OpaqueToken, error) {
	user, err := s.User(ctx)
	if err != nil {
		return nil, err
	}
	return s.ListTokensForUser(ctx, user)
}

// RevokeTokensForUser revokes the selected tokens, or every token of the
// configured type when the selection is empty. Values arrive in wire form
// and are decrypted before matching; values that fail to decrypt simply
// match nothing. A non-empty selection where nothing decrypts must not
// widen into revoke-all.
func (s *APIScheme) RevokeTokensForUser(ctx context.Context, user *domain.User, tokens []string, deleteInstead bool) error {
	decrypted := make([]string, 0, len(tokens))
	for _, token := range tokens {
		value, err := s.cipher.Decrypt(token)
		if err != nil {
			continue
		}
		decrypted = append(decrypted, value)
	}
	if len(tokens) > 0 && len(decrypted) == 0 {
		return nil
	}
	return s.serializer.RevokeTokens(ctx, user, s.cfg.TokenType, decrypted, deleteInstead)
}

// RevokeTokens revokes tokens of the currently authenticated user. A no-op
// when the request does not authenticate.
func (s *APIScheme) RevokeTokens(ctx context.Context, tokens []string, deleteInstead bool) error {
	user, err := s.User(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	return s.RevokeTokensForUser(ctx, user, tokens, deleteInstead)
}

// ClientLogin hands the configured header with an encrypted bearer value to
// the supplied setter. Lets a test client authenticate a known token value
// without a login round trip.
func (s *APIScheme) ClientLogin(set func(name, value string), token string) error {
	encrypted, err := s.cipher.Encrypt(token)
	if err != nil {
		return err
	}
	set(s.cfg.HeaderKey, "Bearer "+encrypted)
	return nil
}
