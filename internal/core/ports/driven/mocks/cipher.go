package mocks

import (
	"strings"

	"github.com/latchkey-io/latchkey-core/internal/core/domain"
	"github.com/latchkey-io/latchkey-core/internal/core/ports/driven"
)

// Ensure MockCipher implements TokenCipher
var _ driven.TokenCipher = (*MockCipher)(nil)

// MockCipher is a TokenCipher for testing that marks ciphertext with a
// leading "e" instead of encrypting. "22" encrypts to "e22". NOT secure -
// only for testing.
type MockCipher struct{}

// NewMockCipher creates a new MockCipher
func NewMockCipher() *MockCipher {
	return &MockCipher{}
}

func (m *MockCipher) Encrypt(value string) (string, error) {
	return "e" + value, nil
}

func (m *MockCipher) Decrypt(value string) (string, error) {
	if !strings.HasPrefix(value, "e") {
		return "", domain.ErrInvalidAPIToken
	}
	return strings.TrimPrefix(value, "e"), nil
}
