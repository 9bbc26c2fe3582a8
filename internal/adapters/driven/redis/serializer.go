package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/latchkey-io/latchkey-core/internal/core/domain"
	"github.com/latchkey-io/latchkey-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Serializer = (*Serializer)(nil)
var _ driven.UserRegistry = (*Serializer)(nil)

const (
	// Key prefixes for Redis
	userPrefix      = "user:"
	userUIDPrefix   = "user:uid:"
	tokenPrefix     = "token:"
	userTokenPrefix = "tokens:user:"
	usersKey        = "users"

	// setupLockTTL bounds how long a crashed bootstrap can block a retry
	setupLockTTL = 5 * time.Second
)

// Serializer implements driven.Serializer using Redis. User records are
// stored as JSON under their id with a uid index; opaque tokens keep their
// record under token:<type>:<value> plus a per-user set for listing. Tokens
// carry no TTL: they die by revocation, not by time.
type Serializer struct {
	client   *redis.Client
	verifier driven.CredentialVerifier
	lock     *Lock
}

// storedUser is the storage form of a user record. domain.User hides the
// password hash from JSON, so storage needs its own marshalling.
type storedUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toStored(user *domain.User) storedUser {
	return storedUser{
		ID:           user.ID,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Name:         user.Name,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func (u storedUser) toDomain() *domain.User {
	return &domain.User{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// NewSerializer creates a Redis-backed serializer
func NewSerializer(client *redis.Client, verifier driven.CredentialVerifier) *Serializer {
	return &Serializer{
		client:   client,
		verifier: verifier,
		lock:     NewLock(client),
	}
}

func tokenKey(tokenType, token string) string {
	return tokenPrefix + tokenType + ":" + token
}

func userTokensKey(userID, tokenType string) string {
	return userTokenPrefix + userID + ":" + tokenType
}

// FindByID retrieves a user by primary key. Absence is (nil, nil).
func (s *Serializer) FindByID(ctx context.Context, id string) (*domain.User, error) {
	data, err := s.client.Get(ctx, userPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var user storedUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return user.toDomain(), nil
}

// FindByUID retrieves a user through the uid index. Absence is (nil, nil).
func (s *Serializer) FindByUID(ctx context.Context, uid string) (*domain.User, error) {
	id, err := s.client.Get(ctx, userUIDPrefix+uid).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve uid: %w", err)
	}
	return s.FindByID(ctx, id)
}

// FindByToken resolves a live opaque token to its owner. Revoked tokens
// never resolve. Absence is (nil, nil).
func (s *Serializer) FindByToken(ctx context.Context, token, tokenType string) (*domain.User, error) {
	data, err := s.client.Get(ctx, tokenKey(tokenType, token)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	var record domain.OpaqueToken
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	if record.Revoked {
		return nil, nil
	}
	return s.FindByID(ctx, record.UserID)
}

// ValidateCredentials checks a password against the stored bcrypt hash.
func (s *Serializer) ValidateCredentials(ctx context.Context, user *domain.User, password string) bool {
	if user == nil {
		return false
	}
	return s.verifier.Verify(password, user.PasswordHash)
}

// PrimaryKey names the identifying field of stored user records.
func (s *Serializer) PrimaryKey() string {
	return "id"
}

// SaveToken stores a token record in plain form and indexes it on the
// owner's token set.
func (s *Serializer) SaveToken(ctx context.Context, user *domain.User, token, tokenType string) error {
	record := domain.OpaqueToken{
		Token:     token,
		Type:      tokenType,
		UserID:    user.ID,
		CreatedAt: time.Now(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, tokenKey(tokenType, token), data, 0)
	pipe.SAdd(ctx, userTokensKey(user.ID, tokenType), token)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// RevokeTokens revokes the selected tokens of the given type, or all of
// them when the selection is empty. With deleteInstead the records are
// removed entirely. Unknown tokens are ignored.
func (s *Serializer) RevokeTokens(ctx context.Context, user *domain.User, tokenType string, tokens []string, deleteInstead bool) error {
	selected := tokens
	if len(selected) == 0 {
		all, err := s.client.SMembers(ctx, userTokensKey(user.ID, tokenType)).Result()
		if err != nil {
			return fmt.Errorf("failed to list user tokens: %w", err)
		}
		selected = all
	}

	for _, token := range selected {
		key := tokenKey(tokenType, token)

		if deleteInstead {
			pipe := s.client.Pipeline()
			pipe.Del(ctx, key)
			pipe.SRem(ctx, userTokensKey(user.ID, tokenType), token)
			if _, err := pipe.Exec(ctx); err != nil {
				return fmt.Errorf("failed to delete token: %w", err)
			}
			continue
		}

		data, err := s.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to get token: %w", err)
		}

		var record domain.OpaqueToken
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("failed to unmarshal token: %w", err)
		}
		if record.UserID != user.ID {
			continue
		}
		record.Revoked = true

		updated, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal token: %w", err)
		}
		if err := s.client.Set(ctx, key, updated, 0).Err(); err != nil {
			return fmt.Errorf("failed to revoke token: %w", err)
		}
	}

	return nil
}

// ListTokens returns the user's live tokens of the given type, newest
// first. A nil user yields an empty list.
func (s *Serializer) ListTokens(ctx context.Context, user *domain.User, tokenType string) ([]*domain.OpaqueToken, error) {
	if user == nil {
		return []*domain.OpaqueToken{}, nil
	}

	values, err := s.client.SMembers(ctx, userTokensKey(user.ID, tokenType)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list user tokens: %w", err)
	}

	tokens := []*domain.OpaqueToken{}
	var stale []interface{}

	for _, value := range values {
		data, err := s.client.Get(ctx, tokenKey(tokenType, value)).Bytes()
		if err == redis.Nil {
			// Record gone, track for index cleanup
			stale = append(stale, value)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get token: %w", err)
		}

		var record domain.OpaqueToken
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal token: %w", err)
		}
		if record.Revoked {
			continue
		}
		tokens = append(tokens, &record)
	}

	if len(stale) > 0 {
		s.client.SRem(ctx, userTokensKey(user.ID, tokenType), stale...)
	}

	sort.SliceStable(tokens, func(i, j int) bool {
		return tokens[i].CreatedAt.After(tokens[j].CreatedAt)
	})
	return tokens, nil
}

// SaveUser stores a user record and its uid index. User records are host
// bookkeeping; the serializer contract only ever reads them.
func (s *Serializer) SaveUser(ctx context.Context, user *domain.User) error {
	data, err := json.Marshal(toStored(user))
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, userPrefix+user.ID, data, 0)
	pipe.Set(ctx, userUIDPrefix+user.Email, user.ID, 0)
	pipe.SAdd(ctx, usersKey, user.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// CreateInitialUser persists the very first account. A short-lived lock
// serialises concurrent bootstrap attempts across instances.
func (s *Serializer) CreateInitialUser(ctx context.Context, user *domain.User) error {
	acquired, err := s.lock.Acquire(ctx, "setup", setupLockTTL)
	if err != nil {
		return err
	}
	if !acquired {
		return domain.ErrSetupComplete
	}
	defer s.lock.Release(ctx, "setup")

	count, err := s.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return domain.ErrSetupComplete
	}

	return s.SaveUser(ctx, user)
}

// Ping checks if the Redis backend is reachable.
func (s *Serializer) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// CountUsers returns the number of registered users.
func (s *Serializer) CountUsers(ctx context.Context) (int, error) {
	count, err := s.client.SCard(ctx, usersKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return int(count), nil
}
