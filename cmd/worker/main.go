package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-procure/meridian-procure/internal/app"
	"github.com/meridian-procure/meridian-procure/internal/contracts"
	"github.com/meridian-procure/meridian-procure/internal/docparse"
	"github.com/meridian-procure/meridian-procure/internal/masterdata/parts"
	"github.com/meridian-procure/meridian-procure/internal/masterdata/suppliers"
	"github.com/meridian-procure/meridian-procure/internal/match"
	"github.com/meridian-procure/meridian-procure/internal/observability"
	"github.com/meridian-procure/meridian-procure/internal/platform/db"
	"github.com/meridian-procure/meridian-procure/internal/shared"
	"github.com/meridian-procure/meridian-procure/internal/sourcing"
	"github.com/meridian-procure/meridian-procure/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	metrics := observability.NewMetrics()

	matchRepo := match.NewRepository(pool)
	matchService := match.NewService(matchRepo, auditLogger, metrics, logger)

	supplierRepo := suppliers.NewRepository(pool)
	partRepo := parts.NewRepository(pool)
	contractRepo := contracts.NewRepository(pool)
	contractResolver := contracts.NewCachedResolver(contracts.NewResolver(contractRepo), redisClient, cfg.ContractCacheTTL)

	sourcingRepo := sourcing.NewRepository(pool)
	sourcingService := sourcing.NewService(sourcingRepo, partRepo, supplierRepo, contractResolver, auditLogger, nil, nil, logger)

	parseClient := docparse.NewClient(cfg.DocparseURL, cfg.DocparseTimeout)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeParseQuote, Handler: jobs.NewParseQuoteHandler(parseClient, sourcingService, logger)},
			{Type: jobs.TaskTypeMatchSweep, Handler: jobs.NewMatchSweepHandler(matchService, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.MatchSweepCron, Task: jobs.NewMatchSweepTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
