package domain

import "time"

// Scheme names selectable in an authenticator configuration
const (
	SchemeSession = "session"
	SchemeJWT     = "jwt"
	SchemeAPI     = "api"
)

// Configuration defaults applied by WithDefaults
const (
	DefaultHeaderKey   = "Authorization"
	DefaultInputKey    = "token"
	DefaultIdentityKey = "identityId"
)

// AuthenticatorConfig describes one authenticator: which scheme protocol it
// follows, which serializer resolves its users and tokens, and the knobs the
// scheme reads. Immutable for the lifetime of a scheme instance.
type AuthenticatorConfig struct {
	// Scheme selects the protocol: session, jwt, or api.
	Scheme string

	// Serializer names the registered storage backend.
	Serializer string

	// UID and Password name the credential fields. UID is reported back in
	// validation failures so callers can tell which field was wrong.
	UID      string
	Password string

	// Secret signs and verifies tokens. Required for the jwt scheme.
	Secret string

	// TokenType tags opaque token records in storage.
	TokenType string

	// HeaderKey and InputKey locate the token on the request: the header is
	// consulted first, then the query/body parameter.
	HeaderKey string
	InputKey  string

	Options SignOptions
}

// SignOptions carries the signing knobs for the jwt scheme. The zero value
// produces unexpiring HS256 tokens with no registered claims beyond iat.
type SignOptions struct {
	ExpiresIn   time.Duration
	NotBefore   time.Duration
	Leeway      time.Duration
	Issuer      string
	Audience    []string
	Algorithm   string
	IdentityKey string
}

// WithDefaults returns a copy with the optional keys filled in.
func (c AuthenticatorConfig) WithDefaults() AuthenticatorConfig {
	if c.UID == "" {
		c.UID = "email"
	}
	if c.Password == "" {
		c.Password = "password"
	}
	if c.TokenType == "" {
		c.TokenType = TokenTypeAPI
	}
	if c.HeaderKey == "" {
		c.HeaderKey = DefaultHeaderKey
	}
	if c.InputKey == "" {
		c.InputKey = DefaultInputKey
	}
	if c.Options.IdentityKey == "" {
		c.Options.IdentityKey = DefaultIdentityKey
	}
	return c
}
