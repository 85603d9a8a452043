package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/quoteboard/internal/model"
)

// LimboStore holds candidate quotes awaiting moderation.
type LimboStore struct {
	db *sql.DB
}

func NewLimboStore(db *sql.DB) *LimboStore {
	return &LimboStore{db: db}
}

func scanCandidate(scanner interface{ Scan(...any) error }) (*model.Candidate, error) {
	var c model.Candidate
	err := scanner.Scan(&c.MessageID, &c.Content, &c.Author, &c.Timestamp)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const candidateCols = `message_id, content, author, timestamp`

// Create queues a candidate. An id that is already queued yields ErrConflict
// and leaves the existing candidate untouched.
func (s *LimboStore) Create(ctx context.Context, c model.Candidate) error {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO limbo_quotes (message_id, content, author, timestamp) VALUES (?, ?, ?, ?)
		 ON CONFLICT(message_id) DO NOTHING`,
		c.MessageID, c.Content, c.Author, c.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert limbo quote: %w", err)
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

func (s *LimboStore) Get(ctx context.Context, messageID string) (*model.Candidate, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+candidateCols+` FROM limbo_quotes WHERE message_id = ?`, messageID)
	c, err := scanCandidate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get limbo quote: %w", err)
	}
	return c, nil
}

// List returns up to limit candidates, oldest first. A limit of 0 or less
// returns all of them.
func (s *LimboStore) List(ctx context.Context, limit int) ([]model.Candidate, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+candidateCols+` FROM limbo_quotes ORDER BY received_at, message_id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list limbo quotes: %w", err)
	}
	defer rows.Close()

	var candidates []model.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan limbo quote: %w", err)
		}
		candidates = append(candidates, *c)
	}
	return candidates, rows.Err()
}

// Delete removes the candidate. Deleting an id that is not queued is not an
// error.
func (s *LimboStore) Delete(ctx context.Context, messageID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM limbo_quotes WHERE message_id = ?`, messageID)
	if err != nil {
		return fmt.Errorf("delete limbo quote: %w", err)
	}
	return nil
}
