// Package moderation moves candidate quotes out of limbo, either into the
// published quote store or into nothing.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dukerupert/quoteboard/internal/model"
)

// MaxExactFloatID is the largest id a float64 reader of the same tables can
// hold without rounding. Larger snowflakes are stored exactly but will be
// misread by such readers.
const MaxExactFloatID = 1 << 53

var (
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrInvalidMessageID  = errors.New("invalid message id")
	ErrInvalidAction     = errors.New("invalid action")
)

type Action int

const (
	Approve Action = iota + 1
	Reject
)

func (a Action) String() string {
	switch a {
	case Approve:
		return "approve"
	case Reject:
		return "reject"
	}
	return "unknown"
}

// ParseAction accepts approve/yes and reject/no, case-insensitively.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve", "yes":
		return Approve, nil
	case "reject", "no":
		return Reject, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidAction, s)
}

// ParseMessageID converts a queued message id into the numeric quote key.
func ParseMessageID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMessageID, s)
	}
	return id, nil
}

type LimboStore interface {
	Get(ctx context.Context, messageID string) (*model.Candidate, error)
	List(ctx context.Context, limit int) ([]model.Candidate, error)
	Delete(ctx context.Context, messageID string) error
}

type QuoteStore interface {
	Put(ctx context.Context, q model.Quote) error
}

type Service struct {
	limbo  LimboStore
	quotes QuoteStore
	logger *slog.Logger
}

func NewService(limbo LimboStore, quotes QuoteStore, logger *slog.Logger) *Service {
	return &Service{limbo: limbo, quotes: quotes, logger: logger}
}

// Decide applies a moderation decision to one candidate. An approved
// candidate is removed from limbo only after the quote has been written, so
// a failure in between leaves it queued for another attempt.
func (s *Service) Decide(ctx context.Context, candidateID string, action Action) error {
	switch action {
	case Reject:
		if err := s.limbo.Delete(ctx, candidateID); err != nil {
			return fmt.Errorf("reject candidate: %w", err)
		}
		s.logger.Info("candidate rejected", "message_id", candidateID)
		return nil
	case Approve:
		return s.approve(ctx, candidateID)
	}
	return fmt.Errorf("%w: %d", ErrInvalidAction, action)
}

func (s *Service) approve(ctx context.Context, candidateID string) error {
	c, err := s.limbo.Get(ctx, candidateID)
	if err != nil {
		return fmt.Errorf("get candidate: %w", err)
	}
	if c == nil {
		return ErrCandidateNotFound
	}

	id, err := ParseMessageID(c.MessageID)
	if err != nil {
		return err
	}
	if id > MaxExactFloatID || id < -MaxExactFloatID {
		s.logger.Warn("message id exceeds float64 precision", "message_id", id)
	}

	q := model.Quote{
		MessageID: id,
		Content:   c.Content,
		Author:    c.Author,
		Timestamp: c.Timestamp,
	}
	if err := s.quotes.Put(ctx, q); err != nil {
		return fmt.Errorf("put quote: %w", err)
	}
	if err := s.limbo.Delete(ctx, candidateID); err != nil {
		return fmt.Errorf("delete candidate: %w", err)
	}

	s.logger.Info("candidate approved", "message_id", id)
	return nil
}

// Next returns up to limit queued candidates; limit <= 0 means all.
func (s *Service) Next(ctx context.Context, limit int) ([]model.Candidate, error) {
	candidates, err := s.limbo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return candidates, nil
}
