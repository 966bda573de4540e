// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command worker runs background essay generation.
//
// # Startup Sequence
//
//  1. Initialize structured logger and load configuration.
//  2. Connect to PostgreSQL and Redis.
//  3. Build the language model client.
//  4. Run the queue consumer and the metrics endpoint until SIGINT/SIGTERM.
//
// Jobs are never retried. A job interrupted by shutdown is recorded as failed.
// A job whose task is no longer the essay's current one is skipped.
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
	"golang.org/x/sync/errgroup"

	"github.com/zt-a/refgen-ai-backend/internal/essay"
	"github.com/zt-a/refgen-ai-backend/internal/essay/budget"
	"github.com/zt-a/refgen-ai-backend/internal/llm"
	"github.com/zt-a/refgen-ai-backend/internal/platform/config"
	"github.com/zt-a/refgen-ai-backend/internal/platform/constants"
	pgstore "github.com/zt-a/refgen-ai-backend/internal/platform/postgres"
	redisstore "github.com/zt-a/refgen-ai-backend/internal/platform/redis"
	"github.com/zt-a/refgen-ai-backend/internal/queue"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker_failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	// ── 1. Logger & configuration ─────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String("app", constants.WorkerName), slog.String("consumer", cfg.Worker.ConsumerName))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 2. Storage ────────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	rdb, err := redisstore.NewClient(ctx, cfg.RedisURL, log)
	if err != nil {
		return err
	}
	defer rdb.Close()

	// ── 3. Language model ─────────────────────────────────────────────────
	completer, err := llm.NewCompleter(ctx, cfg)
	if err != nil {
		return err
	}
	agents, err := llm.NewAgents(completer, nil, log)
	if err != nil {
		return err
	}
	defer agents.Close()

	generator := essay.NewGenerator(essay.NewRepository(pool), agents, agents, budget.Config(cfg.Budget), log)
	consumer := queue.NewConsumer(queue.NewQueue(rdb), cfg.Worker.ConsumerName, generator.Run, log)

	// ── 4. Run ────────────────────────────────────────────────────────────
	metricsServer := &http.Server{
		Addr:              ":" + cfg.Worker.MetricsPort,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("worker_started",
			slog.String("llm_provider", completer.Provider()),
			slog.String("llm_model", completer.Model()),
		)
		return consumer.Run(groupCtx)
	})

	group.Go(func() error {
		log.Info("metrics_server_starting", slog.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	err = group.Wait()
	log.Info("worker_stopped")
	return err
}
