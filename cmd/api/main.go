// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the refgen HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis (task queue).
//  5. Run database migrations (idempotent).
//  6. Build the language model client.
//  7. Wire HTTP handlers.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zt-a/refgen-ai-backend/internal/api"
	"github.com/zt-a/refgen-ai-backend/internal/essay"
	"github.com/zt-a/refgen-ai-backend/internal/essay/budget"
	"github.com/zt-a/refgen-ai-backend/internal/llm"
	"github.com/zt-a/refgen-ai-backend/internal/platform/config"
	"github.com/zt-a/refgen-ai-backend/internal/platform/constants"
	"github.com/zt-a/refgen-ai-backend/internal/platform/migration"
	pgstore "github.com/zt-a/refgen-ai-backend/internal/platform/postgres"
	redisstore "github.com/zt-a/refgen-ai-backend/internal/platform/redis"
	"github.com/zt-a/refgen-ai-backend/internal/platform/sec"
	"github.com/zt-a/refgen-ai-backend/internal/queue"
	"github.com/zt-a/refgen-ai-backend/internal/users/account"
	"github.com/zt-a/refgen-ai-backend/internal/users/auth"
	"github.com/zt-a/refgen-ai-backend/internal/users/profile"
)

// sessionPurgeInterval is how often expired refresh sessions are deleted.
const sessionPurgeInterval = time.Hour

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("llm_provider", cfg.LLM.Provider),
		slog.String("llm_model", cfg.LLM.Model),
	)

	// Startup deadline so misconfiguration fails fast.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing_postgres_pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing_redis_client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_failed", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Language model ─────────────────────────────────────────────────
	completer, err := llm.NewCompleter(startupCtx, cfg)
	must(log, err, "initialize llm client")

	agents, err := llm.NewAgents(completer, nil, log)
	must(log, err, "load prompts")
	defer agents.Close()

	// ── 7. Domain Wiring ──────────────────────────────────────────────────
	jwtSvc, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
	must(log, err, "initialize jwt service")

	authService := auth.NewService(auth.NewUserRepository(pool), auth.NewSessionRepository(pool), jwtSvc, log)
	accountService := account.NewService(account.NewAccountRepository(pool), account.NewSessionRepository(pool), log)

	profileRepository := profile.NewRepository(pool)
	profileService := profile.NewService(profileRepository, log)

	essayService := essay.NewService(
		essay.NewRepository(pool),
		profileRepository,
		agents,
		queue.NewQueue(rdb),
		budget.Config(cfg.Budget),
		log,
	)

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) },
		CheckQueue:    func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) },
	}, log)

	// ── 8. HTTP Server ────────────────────────────────────────────────────
	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	go authService.RunSessionJanitor(serverCtx, sessionPurgeInterval)

	server := api.NewServer(serverCtx, cfg, log, jwtSvc, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   promhttp.Handler(),
		Auth:      auth.NewHandler(authService, !cfg.IsDevelopment()),
		Account:   account.NewHandler(accountService),
		Profile:   profile.NewHandler(profileService),
		Essay:     essay.NewHandler(essayService),
	})

	// ── 9. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_failed", slog.Any("error", err))
	}

	log.Info("shutting_down_server", slog.Duration("timeout", constants.ShutdownTimeout))
	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		log.Error("shutdown_failed", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped")
}

func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", constants.AppName))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// Only for startup wiring. After startup, errors are returned and handled.
func must(log *slog.Logger, err error, step string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("step", step),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
