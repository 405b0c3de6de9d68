package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/paydesk/server/internal/auth"
	"github.com/paydesk/server/internal/backend"
	"github.com/paydesk/server/internal/config"
	"github.com/paydesk/server/internal/db"
	httphandler "github.com/paydesk/server/internal/http"
	"github.com/paydesk/server/internal/metrics"
	"github.com/paydesk/server/internal/middleware"
	"github.com/paydesk/server/internal/repo"
	"github.com/paydesk/server/internal/session"
)

func main() {
	// Load .env from CWD or server/ so it works from repo root or server/ (env vars override)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("server/.env")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited")
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.DevMode {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := httphandler.Deps{
		Logger:       logger,
		CookieSecure: cfg.CookieSecure,
	}

	// Session storage: Postgres, or in-memory when running locally without one
	var sessions repo.SessionRepo
	if cfg.DatabaseURL != "" {
		database, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := db.Migrate(database); err != nil {
			return err
		}
		sessions = repo.NewSessionRepo(database)
		deps.DB = database
	} else {
		logger.Warn("DATABASE_URL not set, sessions are kept in memory and lost on restart")
		sessions = repo.NewMemorySessionRepo()
	}

	registry, m := metrics.NewRegistry()
	store := session.NewStore(sessions, logger)
	api := backend.NewClient(backend.Config{
		BaseURL: cfg.BackendBaseURL,
		Timeout: cfg.BackendTimeout,
	}, store, m, logger)

	login := auth.NewLoginService(api, api, store, m, logger, auth.LoginConfig{
		ResendCooldown: cfg.OTPResendCooldown,
	})
	go login.RunSweeper(ctx, time.Minute)

	limiter := middleware.NewRateLimiter(10*time.Minute, 20)
	go limiter.Cleanup(ctx, time.Hour)
	codeLimiter := middleware.NewRateLimiter(10*time.Minute, 10)
	go codeLimiter.Cleanup(ctx, time.Hour)

	deps.JWT = auth.NewJWTService(cfg.BrowserSecret)
	deps.Login = login
	deps.Store = store
	deps.API = api
	deps.Metrics = m
	deps.MetricsPage = metrics.HandlerFor(registry)
	deps.LoginLimiter = limiter
	deps.CodeLimiter = codeLimiter

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httphandler.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.BackendTimeout + 15*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "backend", cfg.BackendBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
