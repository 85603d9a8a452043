// Package backend opens the stores for the configured storage backend.
package backend

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/quoteboard/internal/auth"
	"github.com/dukerupert/quoteboard/internal/config"
	"github.com/dukerupert/quoteboard/internal/database"
	"github.com/dukerupert/quoteboard/internal/model"
	"github.com/dukerupert/quoteboard/internal/moderation"
	"github.com/dukerupert/quoteboard/internal/rating"
	"github.com/dukerupert/quoteboard/internal/server"
	"github.com/dukerupert/quoteboard/internal/store"
	"github.com/dukerupert/quoteboard/internal/store/dynamo"
)

type TokenStore interface {
	auth.TokenStore
	Create(ctx context.Context, t model.AuthToken) (*model.AuthToken, error)
}

type QuoteStore interface {
	server.QuoteStore
	Delete(ctx context.Context, messageID int64) error
}

type LimboStore interface {
	moderation.LimboStore
	Create(ctx context.Context, c model.Candidate) error
}

// Backend holds the stores of one backend. DB is set only for SQLite.
type Backend struct {
	Name    string
	Tokens  TokenStore
	Quotes  QuoteStore
	Limbo   LimboStore
	Ratings rating.Store
	DB      *sql.DB
}

func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := database.Open(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Name:    cfg.Backend,
			Tokens:  store.NewTokenStore(db),
			Quotes:  store.NewQuoteStore(db),
			Limbo:   store.NewLimboStore(db),
			Ratings: store.NewRatingStore(db),
			DB:      db,
		}, nil

	case config.BackendDynamoDB:
		client, err := dynamo.NewClient(ctx, dynamo.Config{
			Region:    cfg.DynamoDB.Region,
			Endpoint:  cfg.DynamoDB.Endpoint,
			AccessKey: cfg.DynamoDB.AccessKey,
			SecretKey: cfg.DynamoDB.SecretKey,
		})
		if err != nil {
			return nil, err
		}
		stores := dynamo.NewStores(client, dynamo.Tables{
			Tokens:  cfg.DynamoDB.TokensTable,
			Quotes:  cfg.DynamoDB.QuotesTable,
			Limbo:   cfg.DynamoDB.LimboTable,
			Ratings: cfg.DynamoDB.RatingsTable,
		})
		return &Backend{
			Name:    cfg.Backend,
			Tokens:  stores.Tokens,
			Quotes:  stores.Quotes,
			Limbo:   stores.Limbo,
			Ratings: stores.Ratings,
		}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func (b *Backend) ServerStores() server.Stores {
	return server.Stores{
		Tokens:  b.Tokens,
		Quotes:  b.Quotes,
		Limbo:   b.Limbo,
		Ratings: b.Ratings,
	}
}

func (b *Backend) Close() error {
	if b.DB != nil {
		return b.DB.Close()
	}
	return nil
}
