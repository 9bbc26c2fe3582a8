package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/latchkey-io/latchkey-core/internal/core/domain"
	"github.com/latchkey-io/latchkey-core/internal/core/ports/driven"
)

// Ensure MockSerializer implements Serializer and UserRegistry
var _ driven.Serializer = (*MockSerializer)(nil)
var _ driven.UserRegistry = (*MockSerializer)(nil)

// MockSerializer is an in-memory Serializer for testing. Passwords are
// compared in plain text against the stored hash field. NOT secure - only
// for testing.
type MockSerializer struct {
	mu     sync.RWMutex
	users  map[string]*domain.User
	byUID  map[string]*domain.User
	tokens []*domain.OpaqueToken

	// FailWith, when set, makes every storage operation return this error
	FailWith error
}

// NewMockSerializer creates a new MockSerializer
func NewMockSerializer() *MockSerializer {
	return &MockSerializer{
		users: make(map[string]*domain.User),
		byUID: make(map[string]*domain.User),
	}
}

func (m *MockSerializer) FindByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	return m.users[id], nil
}

func (m *MockSerializer) FindByUID(ctx context.Context, uid string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	return m.byUID[uid], nil
}

func (m *MockSerializer) FindByToken(ctx context.Context, token, tokenType string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	for _, t := range m.tokens {
		if t.Token == token && t.Type == tokenType && !t.Revoked {
			return m.users[t.UserID], nil
		}
	}
	return nil, nil
}

func (m *MockSerializer) ValidateCredentials(ctx context.Context, user *domain.User, password string) bool {
	return user != nil && user.PasswordHash == password
}

func (m *MockSerializer) PrimaryKey() string {
	return "id"
}

func (m *MockSerializer) SaveToken(ctx context.Context, user *domain.User, token, tokenType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.tokens = append(m.tokens, &domain.OpaqueToken{
		Token:     token,
		Type:      tokenType,
		UserID:    user.ID,
		CreatedAt: time.Now(),
	})
	return nil
}

func (m *MockSerializer) RevokeTokens(ctx context.Context, user *domain.User, tokenType string, tokens []string, delete bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}

	selected := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		selected[t] = true
	}

	kept := m.tokens[:0]
	for _, t := range m.tokens {
		match := t.UserID == user.ID && t.Type == tokenType &&
			(len(tokens) == 0 || selected[t.Token])
		if match && delete {
			continue
		}
		if match {
			t.Revoked = true
		}
		kept = append(kept, t)
	}
	m.tokens = kept
	return nil
}

func (m *MockSerializer) ListTokens(ctx context.Context, user *domain.User, tokenType string) ([]*domain.OpaqueToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	if user == nil {
		return []*domain.OpaqueToken{}, nil
	}

	result := []*domain.OpaqueToken{}
	for _, t := range m.tokens {
		if t.UserID == user.ID && t.Type == tokenType && !t.Revoked {
			result = append(result, t)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Helper methods for testing

// SaveUser seeds an identity. User records are owned by the host
// application, so this is not part of the Serializer contract.
func (m *MockSerializer) SaveUser(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.users[user.ID] = user
	m.byUID[user.Email] = user
	return nil
}

// CreateInitialUser persists the first account, failing once any user exists
func (m *MockSerializer) CreateInitialUser(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	if len(m.users) > 0 {
		return domain.ErrSetupComplete
	}
	m.users[user.ID] = user
	m.byUID[user.Email] = user
	return nil
}

// CountUsers returns the number of seeded identities
func (m *MockSerializer) CountUsers(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailWith != nil {
		return 0, m.FailWith
	}
	return len(m.users), nil
}

func (m *MockSerializer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = make(map[string]*domain.User)
	m.byUID = make(map[string]*domain.User)
	m.tokens = nil
}

func (m *MockSerializer) TokenCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}
