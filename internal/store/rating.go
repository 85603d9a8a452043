package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/quoteboard/internal/model"
)

// RatingStore keeps one document per quote holding every rating for it. The
// ratings sequence is stored as a JSON array and always written whole.
type RatingStore struct {
	db *sql.DB
}

func NewRatingStore(db *sql.DB) *RatingStore {
	return &RatingStore{db: db}
}

func (s *RatingStore) Get(ctx context.Context, messageID int64) (*model.RatingRecord, error) {
	var raw string
	rec := model.RatingRecord{MessageID: messageID}
	err := s.db.QueryRowContext(ctx,
		`SELECT ratings, version FROM quote_ratings WHERE message_id = ?`, messageID,
	).Scan(&raw, &rec.Version)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quote ratings: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &rec.Ratings); err != nil {
		return nil, fmt.Errorf("decode quote ratings %d: %w", messageID, err)
	}
	return &rec, nil
}

// Put writes rec if the stored version still equals rec.Version (0 meaning
// the record must not exist yet) and returns the new version. A lost race
// yields ErrConflict and leaves the stored record untouched.
func (s *RatingStore) Put(ctx context.Context, rec model.RatingRecord) (int64, error) {
	ratings := rec.Ratings
	if ratings == nil {
		ratings = []model.RatingEntry{}
	}
	raw, err := json.Marshal(ratings)
	if err != nil {
		return 0, fmt.Errorf("encode quote ratings: %w", err)
	}

	next := rec.Version + 1
	var result sql.Result
	if rec.Version == 0 {
		result, err = s.db.ExecContext(ctx,
			`INSERT INTO quote_ratings (message_id, ratings, version) VALUES (?, ?, ?)
			 ON CONFLICT(message_id) DO NOTHING`,
			rec.MessageID, string(raw), next,
		)
	} else {
		result, err = s.db.ExecContext(ctx,
			`UPDATE quote_ratings SET ratings = ?, version = ? WHERE message_id = ? AND version = ?`,
			string(raw), next, rec.MessageID, rec.Version,
		)
	}
	if err != nil {
		return 0, fmt.Errorf("put quote ratings: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return 0, ErrConflict
	}
	return next, nil
}
