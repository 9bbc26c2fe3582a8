package driven

// TokenCipher is the reversible transform applied to opaque tokens on the
// wire. Tokens are stored in plaintext; the encrypted form is what clients
// hold. Encrypt and Decrypt must be inverse operations.
type TokenCipher interface {
	Encrypt(value string) (string, error)
	Decrypt(value string) (string, error)
}
