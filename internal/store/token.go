package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/quoteboard/internal/model"
)

type TokenStore struct {
	db *sql.DB
}

func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

func scanToken(scanner interface{ Scan(...any) error }) (*model.AuthToken, error) {
	var t model.AuthToken
	var used int
	var usedAt sql.NullTime

	err := scanner.Scan(
		&t.Token, &t.SubjectID, &t.Username, &t.DisplayName,
		&t.CreatedAt, &t.ExpiresAt, &used, &usedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Used = used != 0
	if usedAt.Valid {
		t.UsedAt = &usedAt.Time
	}
	return &t, nil
}

const tokenCols = `token, subject_id, username, display_name, created_at, expires_at, used, used_at`

// Create stores a token on behalf of the issuer. Tokens are never deleted.
func (s *TokenStore) Create(ctx context.Context, t model.AuthToken) (*model.AuthToken, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO auth_tokens (token, subject_id, username, display_name, created_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)`,
		t.Token, t.SubjectID, t.Username, t.DisplayName, t.CreatedAt.UTC(), t.ExpiresAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert auth token: %w", err)
	}
	return s.Get(ctx, t.Token)
}

// Get returns the token regardless of its used or expired state, or nil if
// it does not exist.
func (s *TokenStore) Get(ctx context.Context, token string) (*model.AuthToken, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tokenCols+` FROM auth_tokens WHERE token = ?`, token)
	t, err := scanToken(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get auth token: %w", err)
	}
	return t, nil
}

// MarkUsed flips used to true only if it is currently false. A token that is
// missing or already used yields ErrConflict.
func (s *TokenStore) MarkUsed(ctx context.Context, token string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE auth_tokens SET used = 1, used_at = ? WHERE token = ? AND used = 0`,
		time.Now().UTC(), token,
	)
	if err != nil {
		return fmt.Errorf("mark auth token used: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}
