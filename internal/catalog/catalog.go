// Package catalog serves published quotes.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/dukerupert/quoteboard/internal/model"
)

var ErrQuoteNotFound = errors.New("quote not found")

type QuoteStore interface {
	Get(ctx context.Context, messageID int64) (*model.Quote, error)
	List(ctx context.Context) ([]model.Quote, error)
}

type Service struct {
	quotes QuoteStore
	logger *slog.Logger
	intN   func(n int) int
}

func NewService(quotes QuoteStore, logger *slog.Logger) *Service {
	return &Service{quotes: quotes, logger: logger, intN: rand.IntN}
}

// Random picks a quote uniformly. It returns nil when there is nothing to
// pick or the store cannot be read; the error is logged, not returned.
func (s *Service) Random(ctx context.Context) *model.Quote {
	quotes, err := s.quotes.List(ctx)
	if err != nil {
		s.logger.Error("list quotes for random pick", "error", err)
		return nil
	}
	if len(quotes) == 0 {
		return nil
	}
	q := quotes[s.intN(len(quotes))]
	return &q
}

func (s *Service) List(ctx context.Context) ([]model.Quote, error) {
	quotes, err := s.quotes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	return quotes, nil
}

func (s *Service) Get(ctx context.Context, messageID int64) (*model.Quote, error) {
	q, err := s.quotes.Get(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	if q == nil {
		return nil, ErrQuoteNotFound
	}
	return q, nil
}
