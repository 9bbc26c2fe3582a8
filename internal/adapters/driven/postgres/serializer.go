package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/latchkey-io/latchkey-core/internal/core/domain"
	"github.com/latchkey-io/latchkey-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Serializer = (*Serializer)(nil)
var _ driven.UserRegistry = (*Serializer)(nil)

// Serializer implements driven.Serializer on PostgreSQL. Users are looked up
// by their email as the uid; opaque tokens live in auth_tokens with revoked
// rows excluded from every lookup.
type Serializer struct {
	db       *DB
	verifier driven.CredentialVerifier
}

// NewSerializer creates a PostgreSQL serializer
func NewSerializer(db *DB, verifier driven.CredentialVerifier) *Serializer {
	return &Serializer{db: db, verifier: verifier}
}

const userColumns = `id, email, password_hash, name, created_at, updated_at`

func scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID retrieves a user by primary key. Absence is (nil, nil).
func (s *Serializer) FindByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, id))
}

// FindByUID retrieves a user by email. Absence is (nil, nil).
func (s *Serializer) FindByUID(ctx context.Context, uid string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, uid))
}

// FindByToken resolves a live opaque token to its owner. Revoked tokens
// never resolve. Absence is (nil, nil).
func (s *Serializer) FindByToken(ctx context.Context, token, tokenType string) (*domain.User, error) {
	query := `
		SELECT u.id, u.email, u.password_hash, u.name, u.created_at, u.updated_at
		FROM users u
		JOIN auth_tokens t ON t.user_id = u.id
		WHERE t.token = $1 AND t.type = $2 AND t.revoked = FALSE
	`
	return scanUser(s.db.QueryRowContext(ctx, query, token, tokenType))
}

// ValidateCredentials checks a password against the stored bcrypt hash.
func (s *Serializer) ValidateCredentials(ctx context.Context, user *domain.User, password string) bool {
	if user == nil {
		return false
	}
	return s.verifier.Verify(password, user.PasswordHash)
}

// PrimaryKey names the identifying column of the users table.
func (s *Serializer) PrimaryKey() string {
	return "id"
}

// SaveToken stores a token in plain form.
func (s *Serializer) SaveToken(ctx context.Context, user *domain.User, token, tokenType string) error {
	query := `INSERT INTO auth_tokens (token, type, user_id) VALUES ($1, $2, $3)`
	_, err := s.db.ExecContext(ctx, query, token, tokenType, user.ID)
	return err
}

// RevokeTokens revokes the selected tokens of the given type, or all of
// them when the selection is empty. With deleteInstead the rows are removed
// entirely. Unknown tokens are ignored.
func (s *Serializer) RevokeTokens(ctx context.Context, user *domain.User, tokenType string, tokens []string, deleteInstead bool) error {
	var query string
	args := []any{user.ID, tokenType}

	switch {
	case deleteInstead && len(tokens) == 0:
		query = `DELETE FROM auth_tokens WHERE user_id = $1 AND type = $2`
	case deleteInstead:
		query = `DELETE FROM auth_tokens WHERE user_id = $1 AND type = $2 AND token = ANY($3)`
		args = append(args, pq.Array(tokens))
	case len(tokens) == 0:
		query = `UPDATE auth_tokens SET revoked = TRUE WHERE user_id = $1 AND type = $2`
	default:
		query = `UPDATE auth_tokens SET revoked = TRUE WHERE user_id = $1 AND type = $2 AND token = ANY($3)`
		args = append(args, pq.Array(tokens))
	}

	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

// ListTokens returns the user's live tokens of the given type, newest
// first. A nil user yields an empty list.
func (s *Serializer) ListTokens(ctx context.Context, user *domain.User, tokenType string) ([]*domain.OpaqueToken, error) {
	if user == nil {
		return []*domain.OpaqueToken{}, nil
	}

	query := `
		SELECT token, type, user_id, revoked, created_at
		FROM auth_tokens
		WHERE user_id = $1 AND type = $2 AND revoked = FALSE
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, user.ID, tokenType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tokens := []*domain.OpaqueToken{}
	for rows.Next() {
		var token domain.OpaqueToken
		if err := rows.Scan(&token.Token, &token.Type, &token.UserID, &token.Revoked, &token.CreatedAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, &token)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tokens, nil
}

// SaveUser inserts or updates a user record. User records are host
// bookkeeping; the serializer contract only ever reads them.
func (s *Serializer) SaveUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			name = EXCLUDED.name,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return err
}

// CreateInitialUser persists the very first account. An advisory lock
// serializes concurrent setups; without it two transactions could both see
// an empty table and both insert.
func (s *Serializer) CreateInitialUser(ctx context.Context, user *domain.User) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := acquireTxLock(ctx, tx, "setup"); err != nil {
			return err
		}

		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrSetupComplete
		}

		query := `
			INSERT INTO users (id, email, password_hash, name, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		_, err := tx.ExecContext(ctx, query,
			user.ID,
			user.Email,
			user.PasswordHash,
			user.Name,
			user.CreatedAt,
			user.UpdatedAt,
		)
		return err
	})
}

// CountUsers returns the number of registered users.
func (s *Serializer) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
