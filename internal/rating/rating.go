// Package rating records one score per rater per quote and aggregates them.
package rating

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dukerupert/quoteboard/internal/model"
	"github.com/dukerupert/quoteboard/internal/store"
)

const (
	DefaultMaxScore = 5
	MaxAttempts     = 5
)

var (
	ErrInvalidScore = errors.New("invalid score")
	ErrConflict     = errors.New("too many concurrent rating updates")
)

// Store persists rating records. Put must fail with store.ErrConflict when
// the stored version no longer equals rec.Version.
type Store interface {
	Get(ctx context.Context, messageID int64) (*model.RatingRecord, error)
	Put(ctx context.Context, rec model.RatingRecord) (int64, error)
}

type Service struct {
	store    Store
	maxScore int
}

func NewService(s Store, maxScore int) *Service {
	if maxScore < 1 {
		maxScore = DefaultMaxScore
	}
	return &Service{store: s, maxScore: maxScore}
}

func (s *Service) MaxScore() int {
	return s.maxScore
}

// Submit records raterID's score for a quote, replacing any earlier score by
// the same rater. The replacement goes to the end of the list.
func (s *Service) Submit(ctx context.Context, messageID, raterID int64, score int) error {
	if score < 1 || score > s.maxScore {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidScore, score, s.maxScore)
	}

	for range MaxAttempts {
		rec, err := s.store.Get(ctx, messageID)
		if err != nil {
			return fmt.Errorf("get ratings: %w", err)
		}
		if rec == nil {
			rec = &model.RatingRecord{MessageID: messageID}
		}

		rec.Ratings = slices.DeleteFunc(rec.Ratings, func(e model.RatingEntry) bool {
			return e.RaterID == raterID
		})
		rec.Ratings = append(rec.Ratings, model.RatingEntry{RaterID: raterID, Score: score})

		_, err = s.store.Put(ctx, *rec)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("put ratings: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return ErrConflict
}

// Tally counts ratings per score. A quote nobody rated has an empty tally.
func (s *Service) Tally(ctx context.Context, messageID int64) (map[int]int, error) {
	rec, err := s.store.Get(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("get ratings: %w", err)
	}
	return rec.Tally(), nil
}

type Summary struct {
	Tally map[int]int `json:"tally"`
	Count int         `json:"count"`
	Mean  float64     `json:"mean"`
}

func (s *Service) Summary(ctx context.Context, messageID int64) (Summary, error) {
	tally, err := s.Tally(ctx, messageID)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Tally: tally}
	total := 0
	for score, n := range tally {
		sum.Count += n
		total += score * n
	}
	if sum.Count > 0 {
		sum.Mean = float64(total) / float64(sum.Count)
	}
	return sum, nil
}
