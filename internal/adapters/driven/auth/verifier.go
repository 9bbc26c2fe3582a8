package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/latchkey-io/latchkey-core/internal/core/ports/driven"
)

// Ensure Verifier implements CredentialVerifier
var _ driven.CredentialVerifier = (*Verifier)(nil)

// Verifier hashes and verifies passwords using bcrypt
type Verifier struct {
	cost int
}

// NewVerifier creates a verifier with the default bcrypt cost
func NewVerifier() *Verifier {
	return &Verifier{cost: bcrypt.DefaultCost}
}

// NewVerifierWithCost creates a verifier with a custom bcrypt cost
func NewVerifierWithCost(cost int) *Verifier {
	return &Verifier{cost: cost}
}

// Hash generates a bcrypt hash from a plaintext password
func (v *Verifier) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), v.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify checks if a password matches a bcrypt hash
func (v *Verifier) Verify(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
