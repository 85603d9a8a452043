package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/quoteboard/internal/auth"
	"github.com/dukerupert/quoteboard/internal/catalog"
	"github.com/dukerupert/quoteboard/internal/handler"
	"github.com/dukerupert/quoteboard/internal/middleware"
	"github.com/dukerupert/quoteboard/internal/model"
	"github.com/dukerupert/quoteboard/internal/moderation"
	"github.com/dukerupert/quoteboard/internal/rating"
)

var (
	authRule  = middleware.Rule{Name: "auth", Limit: 10, Window: time.Minute}
	writeRule = middleware.Rule{Name: "write", Limit: 30, Window: time.Minute}
)

// QuoteStore is what both moderation (writes) and the catalog (reads) need.
type QuoteStore interface {
	Put(ctx context.Context, q model.Quote) error
	Get(ctx context.Context, messageID int64) (*model.Quote, error)
	List(ctx context.Context) ([]model.Quote, error)
}

// Stores is one backend's worth of stores. Both the SQLite and the DynamoDB
// implementations satisfy it.
type Stores struct {
	Tokens  auth.TokenStore
	Quotes  QuoteStore
	Limbo   moderation.LimboStore
	Ratings rating.Store
}

type Config struct {
	MaxScore      int
	SessionSecret []byte
	SessionTTL    time.Duration
}

type Server struct {
	authH       *handler.AuthHandler
	quoteH      *handler.QuoteHandler
	limboH      *handler.LimboHandler
	sessions    *auth.Sessions
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(stores Stores, cfg Config, logger *slog.Logger) *Server {
	sessions := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL)

	authSvc := auth.NewService(stores.Tokens)
	catalogSvc := catalog.NewService(stores.Quotes, logger.With("component", "catalog"))
	ratingSvc := rating.NewService(stores.Ratings, cfg.MaxScore)
	moderationSvc := moderation.NewService(stores.Limbo, stores.Quotes, logger.With("component", "moderation"))

	return &Server{
		authH:       handler.NewAuthHandler(authSvc, sessions, logger.With("component", "auth")),
		quoteH:      handler.NewQuoteHandler(catalogSvc, ratingSvc, logger.With("component", "quotes")),
		limboH:      handler.NewLimboHandler(moderationSvc, logger.With("component", "limbo")),
		sessions:    sessions,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	session := middleware.RequireSession(s.sessions, s.logger.With("component", "session"))
	protected := func(h http.HandlerFunc) http.Handler {
		return session(h)
	}

	mux.HandleFunc("GET /health", s.healthHandler)

	mux.Handle("GET /auth/{token}", s.rateLimited(authRule, middleware.ByIP, s.authH.Redeem))
	mux.HandleFunc("POST /logout", s.authH.Logout)
	mux.Handle("GET /api/me", protected(s.authH.Me))

	mux.HandleFunc("GET /api/quotes", s.quoteH.List)
	mux.Handle("GET /api/quotes/random", protected(s.quoteH.Random))
	mux.HandleFunc("GET /api/quotes/{id}", s.quoteH.Get)
	mux.Handle("POST /api/quotes/{id}/rating", session(s.rateLimited(writeRule, middleware.BySubject, s.quoteH.Rate)))

	mux.HandleFunc("GET /api/limbo", s.limboH.Next)
	mux.Handle("POST /api/limbo/{id}/decision", session(s.rateLimited(writeRule, middleware.BySubject, s.limboH.Decide)))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(rule middleware.Rule, key func(*http.Request) string, h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.rateLimiter, rule, key)(h)
}
