package auth

import (
	"testing"
)

func TestNewVerifier(t *testing.T) {
	verifier := NewVerifier()
	if verifier == nil {
		t.Fatal("expected non-nil verifier")
	}
}

func TestNewVerifierWithCost(t *testing.T) {
	verifier := NewVerifierWithCost(4)
	if verifier == nil {
		t.Fatal("expected non-nil verifier")
	}
	if verifier.cost != 4 {
		t.Errorf("expected bcrypt cost 4, got %d", verifier.cost)
	}
}

func TestHash(t *testing.T) {
	verifier := NewVerifierWithCost(4) // Low cost for faster tests

	hash, err := verifier.Hash("mypassword")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	if hash == "" {
		t.Error("expected non-empty hash")
	}

	if hash == "mypassword" {
		t.Error("hash should not equal plaintext password")
	}

	// Hash should start with bcrypt prefix
	if len(hash) < 60 {
		t.Error("expected bcrypt hash to be at least 60 characters")
	}
}

func TestHash_DifferentHashesForSamePassword(t *testing.T) {
	verifier := NewVerifierWithCost(4)

	hash1, _ := verifier.Hash("password123")
	hash2, _ := verifier.Hash("password123")

	if hash1 == hash2 {
		t.Error("expected different hashes for same password (due to salt)")
	}
}

func TestVerify_CorrectPassword(t *testing.T) {
	verifier := NewVerifierWithCost(4)

	password := "correctpassword"
	hash, _ := verifier.Hash(password)

	if !verifier.Verify(password, hash) {
		t.Error("expected password verification to succeed")
	}
}

func TestVerify_IncorrectPassword(t *testing.T) {
	verifier := NewVerifierWithCost(4)

	hash, _ := verifier.Hash("correctpassword")

	if verifier.Verify("wrongpassword", hash) {
		t.Error("expected password verification to fail for wrong password")
	}
}

func TestVerify_InvalidHash(t *testing.T) {
	verifier := NewVerifier()

	if verifier.Verify("password", "not-a-valid-hash") {
		t.Error("expected verification to fail for invalid hash")
	}
}

// Benchmark tests
func BenchmarkHash(b *testing.B) {
	verifier := NewVerifierWithCost(4) // Low cost for benchmarks

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = verifier.Hash("testpassword")
	}
}

func BenchmarkVerify(b *testing.B) {
	verifier := NewVerifierWithCost(4)
	hash, _ := verifier.Hash("testpassword")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = verifier.Verify("testpassword", hash)
	}
}
