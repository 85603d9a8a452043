package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/quoteboard/internal/backend"
	"github.com/dukerupert/quoteboard/internal/config"
	"github.com/dukerupert/quoteboard/internal/database"
	"github.com/dukerupert/quoteboard/internal/logging"
	"github.com/dukerupert/quoteboard/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if cfg.SessionSecretGenerated {
		logger.Warn("QUOTEBOARD_SESSION_SECRET not set, using a random secret; sessions end on restart")
	}

	ctx := context.Background()
	b, err := backend.Open(ctx, cfg)
	if err != nil {
		logger.Error("open backend", "backend", cfg.Backend, "error", err)
		os.Exit(1)
	}
	defer b.Close()

	if b.DB != nil {
		if v, err := database.SchemaVersion(ctx, b.DB); err == nil {
			logger.Info("database ready", "path", cfg.DBPath, "schema_version", v)
		}
	}

	srv := server.New(b.ServerStores(), server.Config{
		MaxScore:      cfg.MaxScore,
		SessionSecret: cfg.SessionSecret,
		SessionTTL:    cfg.SessionTTL,
	}, logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	cleanupCtx, cleanupCancel := context.WithCancel(ctx)
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("quoteboard starting", "addr", httpServer.Addr, "backend", b.Name, "max_score", cfg.MaxScore)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cleanupCancel()
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
