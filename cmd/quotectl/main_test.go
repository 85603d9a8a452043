package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/quoteboard/internal/config"
	"github.com/dukerupert/quoteboard/internal/database"
	"github.com/dukerupert/quoteboard/internal/model"
	"github.com/dukerupert/quoteboard/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "quoteboard.db")
	cfg, err := config.FromEnv(func(k string) string {
		if k == "QUOTEBOARD_DB_PATH" {
			return dbPath
		}
		return ""
	})
	require.NoError(t, err)
	return cfg
}

func TestRunNoArgs(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), testConfig(t), nil, &out)
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, out.String(), "issue-token")
}

func TestRunUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), testConfig(t), []string{"frobnicate"}, &out)
	assert.ErrorIs(t, err, errUsage)
}

func TestIssueToken(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	err := run(context.Background(), cfg, []string{"issue-token", "-subject", "42", "-username", "alice", "-base-url", "https://quotes.example/"}, &out)
	require.NoError(t, err)

	line := strings.SplitN(out.String(), "\n", 2)[0]
	require.True(t, strings.HasPrefix(line, "https://quotes.example/auth/"), line)
	token := strings.TrimPrefix(line, "https://quotes.example/auth/")

	db, err := database.Open(cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()
	tok, err := store.NewTokenStore(db).Get(context.Background(), token)
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, int64(42), tok.SubjectID)
	assert.False(t, tok.Used)
	assert.InDelta(t, cfg.TokenTTL.Seconds(), tok.ExpiresAt.Sub(tok.CreatedAt).Seconds(), 1)
}

func TestIssueTokenRequiresSubject(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), testConfig(t), []string{"issue-token", "-username", "alice"}, &out)
	assert.ErrorIs(t, err, errUsage)
}

func TestImportLimboSkipsExisting(t *testing.T) {
	cfg := testConfig(t)
	file := filepath.Join(t.TempDir(), "limbo.json")
	data := `[
		{"message_id": "100", "content": "first", "user": "bob", "timestamp": "2024-01-01T00:00:00.000Z"},
		{"message_id": 200, "content": "second", "author": "carol"},
		{"message_id": "100", "content": "dupe"}
	]`
	require.NoError(t, os.WriteFile(file, []byte(data), 0600))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, []string{"import-limbo", "-file", file}, &out))
	assert.Contains(t, out.String(), "queued 2, skipped 1")

	out.Reset()
	require.NoError(t, run(context.Background(), cfg, []string{"import-limbo", "-file", file}, &out))
	assert.Contains(t, out.String(), "queued 0, skipped 3")

	db, err := database.Open(cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()
	c, err := store.NewLimboStore(db).Get(context.Background(), "100")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "bob", c.Author)
	assert.Equal(t, "first", c.Content)
}

func TestParseLimboRequiresID(t *testing.T) {
	_, err := parseLimbo([]byte(`[{"content": "no id"}]`))
	assert.Error(t, err)
}

func TestDeleteQuote(t *testing.T) {
	cfg := testConfig(t)
	db, err := database.Open(cfg.DBPath)
	require.NoError(t, err)
	quotes := store.NewQuoteStore(db)
	require.NoError(t, quotes.Put(context.Background(), model.Quote{MessageID: 7, Content: "bye"}))
	db.Close()

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, []string{"delete-quote", "-id", "7"}, &out))

	db, err = database.Open(cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()
	q, err := store.NewQuoteStore(db).Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestBackupNotConfigured(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), testConfig(t), []string{"backup"}, &out)
	require.Error(t, err)
	assert.False(t, errors.Is(err, errUsage))
	assert.Contains(t, err.Error(), "not configured")
}
