package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/quoteboard/internal/model"
)

type QuoteStore struct {
	db *sql.DB
}

func NewQuoteStore(db *sql.DB) *QuoteStore {
	return &QuoteStore{db: db}
}

func scanQuote(scanner interface{ Scan(...any) error }) (*model.Quote, error) {
	var q model.Quote
	err := scanner.Scan(&q.MessageID, &q.Content, &q.Author, &q.Timestamp)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

const quoteCols = `message_id, content, author, timestamp`

// Put inserts the quote or replaces an existing one with the same message id.
func (s *QuoteStore) Put(ctx context.Context, q model.Quote) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quotes (message_id, content, author, timestamp) VALUES (?, ?, ?, ?)
		 ON CONFLICT(message_id) DO UPDATE SET content = excluded.content, author = excluded.author, timestamp = excluded.timestamp`,
		q.MessageID, q.Content, q.Author, q.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("put quote: %w", err)
	}
	return nil
}

func (s *QuoteStore) Get(ctx context.Context, messageID int64) (*model.Quote, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+quoteCols+` FROM quotes WHERE message_id = ?`, messageID)
	q, err := scanQuote(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	return q, nil
}

// List returns every quote in storage order.
func (s *QuoteStore) List(ctx context.Context) ([]model.Quote, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+quoteCols+` FROM quotes`)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()

	var quotes []model.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		quotes = append(quotes, *q)
	}
	return quotes, rows.Err()
}

func (s *QuoteStore) Delete(ctx context.Context, messageID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM quotes WHERE message_id = ?`, messageID)
	if err != nil {
		return fmt.Errorf("delete quote: %w", err)
	}
	return nil
}
