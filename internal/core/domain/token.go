package domain

import "time"

// Storage token types. Opaque tokens are tagged with a type so one user can
// hold independent token families in the same store.
const (
	TokenTypeAPI        = "api_token"
	TokenTypeJWTRefresh = "jwt_refresh_token"
)

// OpaqueToken is a persisted token record. The (Token, Type) pair identifies
// a live credential only while Revoked is false. Records never expire on
// their own; revocation is the only invalidation path.
type OpaqueToken struct {
	Token     string    `json:"token"`
	Type      string    `json:"type"`
	UserID    string    `json:"user_id"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthToken is the transient result of a successful attempt or generate.
// Value carries the wire form of the credential: a signed JWT, an encrypted
// opaque token, or a login nonce for the session scheme.
type AuthToken struct {
	Type         string     `json:"type"`
	Value        string     `json:"value"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// LoginRequest represents a credential login attempt
type LoginRequest struct {
	UID      string `json:"uid"`
	Password string `json:"password"`
}

// RefreshRequest represents a token refresh attempt
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RevokeTokensRequest selects tokens to revoke. An empty Tokens list affects
// all tokens of the configured type for the user. Delete switches from
// flagging records revoked to removing them.
type RevokeTokensRequest struct {
	Tokens []string `json:"tokens,omitempty"`
	Delete bool     `json:"delete,omitempty"`
}
