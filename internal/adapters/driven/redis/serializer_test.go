package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/latchkey-io/latchkey-core/internal/core/domain"
)

// plainVerifier treats the stored hash as the password itself. Keeps the
// tests independent of bcrypt cost.
type plainVerifier struct{}

func (plainVerifier) Hash(password string) (string, error) { return password, nil }
func (plainVerifier) Verify(password, hash string) bool    { return password == hash }

func setupTestSerializer(t *testing.T) (*Serializer, *miniredis.Miniredis, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})
	serializer := NewSerializer(client, plainVerifier{})

	return serializer, mr, func() {
		client.Close()
		mr.Close()
	}
}

func seedUser(t *testing.T, s *Serializer) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:           "user-123",
		Email:        "virk@adonisjs.com",
		PasswordHash: "secret",
		Name:         "Virk",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := s.SaveUser(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func TestSerializer_FindByID(t *testing.T) {
	s, _, cleanup := setupTestSerializer(t)
	defer cleanup()

	seeded := seedUser(t, s)

	user, err := s.FindByID(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil {
		t.Fatal("expected user, got nil")
	}
	if user.Email != seeded.Email {
		t.Errorf("expected email %q, got %q", seeded.Email, user.Email)
	}
	// The hash must survive storage even though it is hidden from API JSON
	if user.PasswordHash != "secret" {
		t.Errorf("expected password hash to round-trip, got %q", user.PasswordHash)
	}
}

func TestSerializer_FindByID_Absent(t *testing.T) {
	s, _, cleanup := setupTestSerializer(t)
	defer cleanup()

	user, err := s.FindByID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Errorf("expected nil user, got %+v", user)
	}
}

func TestSerializer_FindByUID(t *testing.T) {
	s, _, cleanup := setupTestSerializer(t)
	defer cleanup()

	seeded := seedUser(t, s)

	user, err := s.FindByUID(context.Background(), seeded.Email)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil || user.ID != seeded.ID {
		t.Errorf("expected user %q, got %+v", seeded.ID, user)
	}

	user, err = s.FindByUID(context.Background(), "ghost@adonisjs.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Errorf("expected nil user for unknown uid, got %+v", user)
	}
}

func TestSerializer_FindByToken(t *testing.T) {
	s, _, cleanup := setupTestSerializer(t)
	defer cleanup()

	seeded := seedUser(t, s)
	if err := s.SaveToken(context.Background(), seeded, "22", domain.TokenTypeAPI); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user, err := s.FindByToken(context.Background(), "22", domain.TokenTypeAPI)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil || user.ID != seeded.ID {
		t.Errorf("expected owner %q, got %+v", seeded.ID, user)
	}

	// Unknown value and wrong type both miss without erroring
	user, err = s.FindByToken(context.Background(), "99", domain.TokenTypeAPI)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Errorf("expected nil user for unknown token, got %+v", user)
	}

	user, err = s.FindByToken(context.Background(), "22", domain.TokenTypeJWTRefresh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Errorf("expected nil user for wrong token type, got %+v", user)
	}
}

func TestSerializer_FindByToken_Revoked(t *testing.T) {
	s, _, cleanup := setupTestSerializer(t)
	defer cleanup()

	seeded := seedUser(t, s)
	if err := s.SaveToken(context.Background(), seeded, "22", domain.TokenTypeAPI); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.RevokeTokens(context.Background(), seeded, domain.TokenTypeAPI, []string{"22"}, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user, err := s.FindByToken(context.Background(), "22", domain.TokenTypeAPI)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Errorf("expected revoked token to stop resolving, got %+v", user)
	}
}

func TestSerializer_ValidateCredentials(t *testing.T) {
	s, _, cleanup := setupTestSerializer(t)
	defer cleanup()

	user := seedUser(t, s)

	if !s.ValidateCredentials(context.Background(), user, "secret") {
		t.Error("expected matching password to validate")
	}
	if s.ValidateCredentials(context.Background(), user, "wrong") {
		t.Error("expected mismatching password to fail")
	}
	if s.ValidateCredentials(context.Background(), nil, "secret") {
		t.Error("expected nil user to fail")
	}
}

func TestSerializer_PrimaryKey(t *testing.T) {
	s, _, cleanup := setupTestSerializer(t)
	defer cleanup()

	if got := s.PrimaryKey(); got != "id" {
		t.Errorf("expected primary key id, got %q", got)
	}
}

func TestSerializer_RevokeTokens_Delete(t *testing.T) {
	s, _, cleanup := setupTestSerializer(t)
	defer cleanup()

	seeded := seedUser(t, s)
	if err := s.SaveToken(context.Background(), seeded, "22", domain.TokenTypeAPI); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.RevokeTokens(context.Background(), seeded, domain.TokenTypeAPI, []string{"22"}, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Record and index entry are both gone
	if exists := s.client.Exists(context.Background(), tokenKey(domain.TokenTypeAPI, "22")).Val(); exists != 0 {
		t.Error("expected token record to be deleted")
	}
	members, err := s.client.SMembers(context.Background(), userTokensKey(seeded.ID, domain.TokenTypeAPI)).Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(members) != 0 {
		t.Errorf("expected empty token index, got %v", members)
	}
}

func TestSerializer_RevokeTokens_All(t *testing.T) {
	s, _, cleanup := setupTestSerializer(t)
	defer cleanup()

	seeded := seedUser(t, s)
	for _, token := range []string{"11", "22", "33"} {
		if err := s.SaveToken(context.Background(), seeded, token, domain.TokenTypeAPI); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Empty selection revokes everything of the type
	if err := s.RevokeTokens(context.Background(), seeded, domain.TokenTypeAPI, nil, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tokens, err := s.ListTokens(context.Background(), seeded, domain.TokenTypeAPI)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tokens) != 0 {
		t.Errorf("expected no live tokens, got %d", len(tokens))
	}
}

func TestSerializer_RevokeTokens_SkipsOtherUsers(t *testing.T) {
	s, _, cleanup := setupTestSerializer(t)
	defer cleanup()

	owner := seedUser(t, s)
	other := &domain.User{ID: "user-456", Email: "nikk@adonisjs.com", PasswordHash: "secret"}
	if err := s.SaveUser(context.Background(), other); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SaveToken(context.Background(), owner, "22", domain.TokenTypeAPI); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Naming someone else's token must not revoke it
	if err := s.RevokeTokens(context.Background(), other, domain.TokenTypeAPI, []string{"22"}, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user, err := s.FindByToken(context.Background(), "22", domain.TokenTypeAPI)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil || user.ID != owner.ID {
		t.Errorf("expected token to stay live for %q, got %+v", owner.ID, user)
	}
}

func TestSerializer_ListTokens(t *testing.T) {
	s, _, cleanup := setupTestSerializer(t)
	defer cleanup()

	seeded := seedUser(t, s)
	for _, token := range []string{"11", "22"} {
		if err := s.SaveToken(context.Background(), seeded, token, domain.TokenTypeAPI); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	tokens, err := s.ListTokens(context.Background(), seeded, domain.TokenTypeAPI)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(tokens))
	}
	// Newest first
	if tokens[0].Token != "22" || tokens[1].Token != "11" {
		t.Errorf("expected tokens ordered newest first, got %q then %q", tokens[0].Token, tokens[1].Token)
	}
}

func TestSerializer_ListTokens_SkipsRevoked(t *testing.T) {
	s, _, cleanup := setupTestSerializer(t)
	defer cleanup()

	seeded := seedUser(t, s)
	for _, token := range []string{"11", "22"} {
		if err := s.SaveToken(context.Background(), seeded, token, domain.TokenTypeAPI); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := s.RevokeTokens(context.Background(), seeded, domain.TokenTypeAPI, []string{"11"}, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tokens, err := s.ListTokens(context.Background(), seeded, domain.TokenTypeAPI)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Token != "22" {
		t.Errorf("expected only token 22 to stay listed, got %+v", tokens)
	}
}

func TestSerializer_ListTokens_CleansStaleIndex(t *testing.T) {
	s, _, cleanup := setupTestSerializer(t)
	defer cleanup()

	seeded := seedUser(t, s)
	if err := s.SaveToken(context.Background(), seeded, "22", domain.TokenTypeAPI); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Drop the record out from under the index
	if err := s.client.Del(context.Background(), tokenKey(domain.TokenTypeAPI, "22")).Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tokens, err := s.ListTokens(context.Background(), seeded, domain.TokenTypeAPI)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tokens) != 0 {
		t.Errorf("expected no tokens, got %d", len(tokens))
	}

	members, err := s.client.SMembers(context.Background(), userTokensKey(seeded.ID, domain.TokenTypeAPI)).Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(members) != 0 {
		t.Errorf("expected stale index entry removed, got %v", members)
	}
}

func TestSerializer_ListTokens_NilUser(t *testing.T) {
	s, _, cleanup := setupTestSerializer(t)
	defer cleanup()

	tokens, err := s.ListTokens(context.Background(), nil, domain.TokenTypeAPI)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tokens) != 0 {
		t.Errorf("expected empty list for nil user, got %d", len(tokens))
	}
}

func TestSerializer_SaveUser_Overwrite(t *testing.T) {
	s, _, cleanup := setupTestSerializer(t)
	defer cleanup()

	seeded := seedUser(t, s)
	seeded.Name = "Harminder"
	if err := s.SaveUser(context.Background(), seeded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user, err := s.FindByID(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Name != "Harminder" {
		t.Errorf("expected updated name, got %q", user.Name)
	}

	count, err := s.CountUsers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected overwrite to keep one user, got %d", count)
	}
}

func TestSerializer_CreateInitialUser(t *testing.T) {
	s, _, cleanup := setupTestSerializer(t)
	defer cleanup()

	first := &domain.User{ID: "user-1", Email: "virk@adonisjs.com", PasswordHash: "secret"}
	if err := s.CreateInitialUser(context.Background(), first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user, err := s.FindByUID(context.Background(), first.Email)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil || user.ID != first.ID {
		t.Errorf("expected bootstrap user persisted, got %+v", user)
	}

	// Any later attempt fails, even after the lock expired
	second := &domain.User{ID: "user-2", Email: "nikk@adonisjs.com", PasswordHash: "secret"}
	if err := s.CreateInitialUser(context.Background(), second); !errors.Is(err, domain.ErrSetupComplete) {
		t.Errorf("expected ErrSetupComplete, got %v", err)
	}

	count, err := s.CountUsers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected a single user, got %d", count)
	}
}

func TestSerializer_CreateInitialUser_LockHeld(t *testing.T) {
	s, _, cleanup := setupTestSerializer(t)
	defer cleanup()

	// Another instance is mid-bootstrap
	other := NewLock(s.client)
	acquired, err := other.Acquire(context.Background(), "setup", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Fatal("expected to acquire setup lock")
	}

	user := &domain.User{ID: "user-1", Email: "virk@adonisjs.com", PasswordHash: "secret"}
	if err := s.CreateInitialUser(context.Background(), user); !errors.Is(err, domain.ErrSetupComplete) {
		t.Errorf("expected ErrSetupComplete while lock held, got %v", err)
	}
}

func TestSerializer_CountUsers_Empty(t *testing.T) {
	s, _, cleanup := setupTestSerializer(t)
	defer cleanup()

	count, err := s.CountUsers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 users, got %d", count)
	}
}

func TestSerializer_RedisDown(t *testing.T) {
	s, mr, cleanup := setupTestSerializer(t)
	defer cleanup()

	seeded := seedUser(t, s)
	mr.Close()

	if _, err := s.FindByID(context.Background(), seeded.ID); err == nil {
		t.Error("expected error when redis is down")
	}
	if _, err := s.FindByToken(context.Background(), "22", domain.TokenTypeAPI); err == nil {
		t.Error("expected error when redis is down")
	}
	if err := s.SaveToken(context.Background(), seeded, "22", domain.TokenTypeAPI); err == nil {
		t.Error("expected error when redis is down")
	}
}
