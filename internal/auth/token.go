package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/quoteboard/internal/model"
	"github.com/dukerupert/quoteboard/internal/store"
)

// DefaultTokenTTL is how long an issued token stays redeemable.
const DefaultTokenTTL = 8 * time.Hour

// ErrAuthFailed is wrapped by every token rejection so callers can answer
// with one generic message.
var ErrAuthFailed = errors.New("authentication failed")

var (
	ErrTokenNotFound    = fmt.Errorf("%w: token not found", ErrAuthFailed)
	ErrTokenExpired     = fmt.Errorf("%w: token expired", ErrAuthFailed)
	ErrTokenAlreadyUsed = fmt.Errorf("%w: token already used", ErrAuthFailed)
)

// TokenStore is the persistence the auth workflow needs. MarkUsed must
// return store.ErrConflict when the token is no longer unused.
type TokenStore interface {
	Get(ctx context.Context, token string) (*model.AuthToken, error)
	MarkUsed(ctx context.Context, token string) error
}

type Service struct {
	tokens TokenStore
	now    func() time.Time
}

func NewService(tokens TokenStore) *Service {
	return &Service{tokens: tokens, now: time.Now}
}

// ValidateToken consumes a one-time token and returns the identity it was
// issued for. A token is redeemable at most once, even under concurrent
// presentation.
func (s *Service) ValidateToken(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrTokenNotFound
	}

	t, err := s.tokens.Get(ctx, token)
	if err != nil {
		return Identity{}, fmt.Errorf("get token: %w", err)
	}
	if t == nil {
		return Identity{}, ErrTokenNotFound
	}
	if s.now().After(t.ExpiresAt) {
		return Identity{}, ErrTokenExpired
	}
	if t.Used {
		return Identity{}, ErrTokenAlreadyUsed
	}

	if err := s.tokens.MarkUsed(ctx, token); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return Identity{}, ErrTokenAlreadyUsed
		}
		return Identity{}, fmt.Errorf("mark token used: %w", err)
	}

	name := t.DisplayName
	if name == "" {
		name = t.Username
	}
	return Identity{SubjectID: t.SubjectID, DisplayName: name}, nil
}

// GenerateToken returns 32 random bytes, hex encoded.
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
