package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/quoteboard/internal/database"
	"github.com/dukerupert/quoteboard/internal/model"
	"github.com/dukerupert/quoteboard/internal/store"
)

type memTokens struct {
	mu      sync.Mutex
	tokens  map[string]model.AuthToken
	markErr error
}

func newMemTokens(tokens ...model.AuthToken) *memTokens {
	m := &memTokens{tokens: make(map[string]model.AuthToken)}
	for _, t := range tokens {
		m.tokens[t.Token] = t
	}
	return m
}

func (m *memTokens) Get(_ context.Context, token string) (*model.AuthToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *memTokens) MarkUsed(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	t, ok := m.tokens[token]
	if !ok || t.Used {
		return store.ErrConflict
	}
	t.Used = true
	m.tokens[token] = t
	return nil
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(tokens TokenStore) *Service {
	s := NewService(tokens)
	s.now = func() time.Time { return fixedNow }
	return s
}

func validToken(token string) model.AuthToken {
	return model.AuthToken{
		Token:       token,
		SubjectID:   77,
		Username:    "alice",
		DisplayName: "Alice",
		CreatedAt:   fixedNow.Add(-time.Hour),
		ExpiresAt:   fixedNow.Add(time.Hour),
	}
}

func TestValidateToken(t *testing.T) {
	tokens := newMemTokens(validToken("good"))
	s := newTestService(tokens)

	id, err := s.ValidateToken(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, Identity{SubjectID: 77, DisplayName: "Alice"}, id)

	stored, _ := tokens.Get(context.Background(), "good")
	assert.True(t, stored.Used)
}

func TestValidateTokenDisplayNameFallback(t *testing.T) {
	tok := validToken("good")
	tok.DisplayName = ""
	s := newTestService(newMemTokens(tok))

	id, err := s.ValidateToken(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "alice", id.DisplayName)
}

func TestValidateTokenRejections(t *testing.T) {
	expired := validToken("expired")
	expired.ExpiresAt = fixedNow.Add(-time.Second)

	expiredUsed := validToken("expired-used")
	expiredUsed.ExpiresAt = fixedNow.Add(-time.Second)
	expiredUsed.Used = true

	used := validToken("used")
	used.Used = true

	s := newTestService(newMemTokens(expired, expiredUsed, used))

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrTokenNotFound},
		{"unknown", "missing", ErrTokenNotFound},
		{"expired", "expired", ErrTokenExpired},
		{"expired and used", "expired-used", ErrTokenExpired},
		{"used", "used", ErrTokenAlreadyUsed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := s.ValidateToken(context.Background(), tt.token)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrAuthFailed)
			assert.Equal(t, Identity{}, id)
		})
	}
}

func TestValidateTokenSecondUse(t *testing.T) {
	s := newTestService(newMemTokens(validToken("once")))

	_, err := s.ValidateToken(context.Background(), "once")
	require.NoError(t, err)

	_, err = s.ValidateToken(context.Background(), "once")
	assert.ErrorIs(t, err, ErrTokenAlreadyUsed)
}

func TestValidateTokenMarkUsedFailsClosed(t *testing.T) {
	boom := errors.New("disk on fire")
	tokens := newMemTokens(validToken("good"))
	tokens.markErr = boom
	s := newTestService(tokens)

	id, err := s.ValidateToken(context.Background(), "good")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrAuthFailed)
	assert.Equal(t, Identity{}, id)
}

func TestValidateTokenConcurrentSingleUse(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens := store.NewTokenStore(db)
	tok := validToken("race")
	tok.ExpiresAt = time.Now().Add(time.Hour)
	_, err = tokens.Create(context.Background(), tok)
	require.NoError(t, err)

	s := NewService(tokens)

	const n = 20
	var successes, alreadyUsed atomic.Int32
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ValidateToken(context.Background(), "race")
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, ErrTokenAlreadyUsed):
				alreadyUsed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(n-1), alreadyUsed.Load())
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken()
	require.NoError(t, err)
	b, err := GenerateToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
