package schemes

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/latchkey-io/latchkey-core/internal/core/domain"
	"github.com/latchkey-io/latchkey-core/internal/core/ports/driven"
	"github.com/latchkey-io/latchkey-core/internal/core/ports/driving"
)

// Ensure JWTScheme implements Scheme
var _ driving.Scheme = (*JWTScheme)(nil)

// JWTScheme issues and verifies signed self-contained tokens. Token validity
// is a pure signature and claim check against the configured secret; storage
// is consulted only to resolve the identified user. The optional refresh
// companion is an opaque token persisted through the serializer and rotated
// on every exchange.
type JWTScheme struct {
	baseScheme
	cipher driven.TokenCipher
	method jwt.SigningMethod
}

// NewJWTScheme creates a JWT scheme bound to one request. Fails with
// ErrMissingSecret when no signing secret is configured: no later call can
// recover from that, so it must surface before any request is served.
func NewJWTScheme(cfg domain.AuthenticatorConfig, serializer driven.Serializer, cipher driven.TokenCipher, request driven.Request) (*JWTScheme, error) {
	cfg = cfg.WithDefaults()
	if cfg.Secret == "" {
		return nil, domain.ErrMissingSecret
	}

	alg := cfg.Options.Algorithm
	if alg == "" {
		alg = "HS256"
	}
	method := jwt.GetSigningMethod(alg)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("%w: unsupported signing algorithm %q", domain.ErrInvalidInput, alg)
	}

	return &JWTScheme{
		baseScheme: baseScheme{
			cfg:        cfg,
			serializer: serializer,
			request:    request,
		},
		cipher: cipher,
		method: method,
	}, nil
}

// Generate signs a token identifying the user. The identity claim key is
// configurable and extra payload data travels under "data". Fails with
// MissingIdentityError when the user carries no primary key value.
func (s *JWTScheme) Generate(user *domain.User, extra map[string]any) (*domain.AuthToken, error) {
	if user == nil || user.ID == "" {
		return nil, &domain.MissingIdentityError{Scheme: domain.SchemeJWT}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		s.cfg.Options.IdentityKey: user.ID,
		"iat":                     jwt.NewNumericDate(now),
	}
	if extra != nil {
		claims["data"] = extra
	}

	var expiresAt *time.Time
	if s.cfg.Options.ExpiresIn != 0 {
		exp := now.Add(s.cfg.Options.ExpiresIn)
		claims["exp"] = jwt.NewNumericDate(exp)
		expiresAt = &exp
	}
	if s.cfg.Options.NotBefore != 0 {
		claims["nbf"] = jwt.NewNumericDate(now.Add(s.cfg.Options.NotBefore))
	}
	if s.cfg.Options.Issuer != "" {
		claims["iss"] = s.cfg.Options.Issuer
	}
	if len(s.cfg.Options.Audience) > 0 {
		claims["aud"] = s.cfg.Options.Audience
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &domain.AuthToken{Type: "bearer", Value: signed, ExpiresAt: expiresAt}, nil
}

// Decode extracts the request token and verifies signature and registered
// claims. Every verification failure surfaces as ErrInvalidToken.
func (s *JWTScheme) Decode() (jwt.MapClaims, error) {
	raw := s.requestToken()
	if raw == "" {
		return nil, domain.ErrInvalidToken
	}
	return s.verify(raw)
}

func (s *JWTScheme) verify(raw string) (jwt.MapClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{s.method.Alg()})}
	if s.cfg.Options.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(s.cfg.Options.Leeway))
	}
	if s.cfg.Options.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Options.Issuer))
	}
	if len(s.cfg.Options.Audience) > 0 {
		opts = append(opts, jwt.WithAudience(s.cfg.Options.Audience[0]))
	}

	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

// requestUser resolves the user the decoded claims identify. A missing or
// non-string identity value is an authentication miss, not an error.
func (s *JWTScheme) requestUser(ctx context.Context, claims jwt.MapClaims) (*domain.User, error) {
	id, _ := claims[s.cfg.Options.IdentityKey].(string)
	if id == "" {
		return nil, nil
	}
	return s.serializer.FindByID(ctx, id)
}

// Attempt validates the credential pair and issues a signed token for the
// matched user.
func (s *JWTScheme) Attempt(ctx context.Context, uid, password string) (*domain.AuthToken, error) {
	user, err := s.Validate(ctx, uid, password)
	if err != nil {
		return nil, err
	}
	return s.Generate(user, nil)
}

// Check authenticates the request. A missing, malformed, expired or
// otherwise unverifiable token and an unresolvable identity all report
// (false, nil); only storage failures surface as errors. The resolved user
// is cached for User.
func (s *JWTScheme) Check(ctx context.Context) (bool, error) {
	if s.user != nil {
		return true, nil
	}

	claims, err := s.Decode()
	if err != nil {
		return false, nil
	}
	user, err := s.requestUser(ctx, claims)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}

	s.user = user
	return true, nil
}

// User returns the authenticated user, running Check when no login is
// cached yet. Nil without error when the request does not authenticate.
func (s *JWTScheme) User(ctx context.Context) (*domain.User, error) {
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
func (s *JWTScheme) LoginIfCan(ctx context.Context) bool {
	ok, _ := s.Check(ctx)
	return ok
}

// AttemptWithRefresh validates the credential pair and issues a token pair:
// the signed token plus a persisted refresh companion.
func (s *JWTScheme) AttemptWithRefresh(ctx context.Context, uid, password string) (*domain.AuthToken, error) {
	user, err := s.Validate(ctx, uid, password)
	if err != nil {
		return nil, err
	}
	return s.GenerateWithRefresh(ctx, user, nil)
}

// GenerateWithRefresh issues a signed token together with an opaque refresh
// token saved through the serializer. The refresh value travels encrypted on
// the wire like any opaque token.
func (s *JWTScheme) GenerateWithRefresh(ctx context.Context, user *domain.User, extra map[string]any) (*domain.AuthToken, error) {
	token, err := s.Generate(user, extra)
	if err != nil {
		return nil, err
	}

	refresh := randomToken(32)
	if err := s.serializer.SaveToken(ctx, user, refresh, domain.TokenTypeJWTRefresh); err != nil {
		return nil, err
	}
	encrypted, err := s.cipher.Encrypt(refresh)
	if err != nil {
		return nil, err
	}

	token.RefreshToken = encrypted
	return token, nil
}

// Refresh exchanges a live refresh token for a fresh pair and revokes the
// presented one. An unknown, revoked or undecryptable value fails with
// ErrInvalidToken.
func (s *JWTScheme) Refresh(ctx context.Context, refreshToken string) (*domain.AuthToken, error) {
	if refreshToken == "" {
		return nil, domain.ErrInvalidToken
	}
	value, err := s.cipher.Decrypt(refreshToken)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.serializer.FindByToken(ctx, value, domain.TokenTypeJWTRefresh)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrInvalidToken
	}

	token, err := s.GenerateWithRefresh(ctx, user, nil)
	if err != nil {
		return nil, err
	}
	if err := s.serializer.RevokeTokens(ctx, user, domain.TokenTypeJWTRefresh, []string{value}, true); err != nil {
		return nil, err
	}
	return token, nil
}
