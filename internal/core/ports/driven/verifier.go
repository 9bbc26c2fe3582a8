package driven

// CredentialVerifier handles password hashing and verification.
// Consumed as a capability - the schemes never see hashing primitives.
type CredentialVerifier interface {
	// Hash generates a storable hash from a plaintext password
	Hash(password string) (string, error)

	// Verify reports whether a plaintext password matches a stored hash
	Verify(password, hash string) bool
}
