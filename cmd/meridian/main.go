package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-procure/meridian-procure/internal/app"
	"github.com/meridian-procure/meridian-procure/internal/contracts"
	"github.com/meridian-procure/meridian-procure/internal/masterdata/parts"
	"github.com/meridian-procure/meridian-procure/internal/masterdata/suppliers"
	"github.com/meridian-procure/meridian-procure/internal/match"
	"github.com/meridian-procure/meridian-procure/internal/observability"
	"github.com/meridian-procure/meridian-procure/internal/platform/db"
	"github.com/meridian-procure/meridian-procure/internal/procurement"
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

	if err := db.RunMigrations(cfg.PGDSN, "migrations"); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}

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

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	notifier := jobs.NewAsynqNotifier(jobsClient)

	auditLogger := shared.NewAuditLogger(pool)
	approvalRecorder := shared.NewApprovalRecorder(pool, logger)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	metrics := observability.NewMetrics()

	supplierRepo := suppliers.NewRepository(pool)
	partRepo := parts.NewRepository(pool)

	contractRepo := contracts.NewRepository(pool)
	contractResolver := contracts.NewCachedResolver(contracts.NewResolver(contractRepo), redisClient, cfg.ContractCacheTTL)

	matchRepo := match.NewRepository(pool)
	matchService := match.NewService(matchRepo, auditLogger, metrics, logger)
	matchHandler := match.NewHandler(logger, matchService)

	procurementRepo := procurement.NewRepository(pool)
	procurementService := procurement.NewService(procurementRepo, contractResolver, supplierRepo, matchService, auditLogger, notifier, approvalRecorder, idempotencyStore, logger)
	procurementHandler := procurement.NewHandler(logger, procurementService)

	sourcingRepo := sourcing.NewRepository(pool)
	sourcingService := sourcing.NewService(sourcingRepo, partRepo, supplierRepo, contractResolver, auditLogger, notifier, jobsClient, logger)
	sourcingHandler := sourcing.NewHandler(logger, sourcingService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		ProcurementHandler: procurementHandler,
		SourcingHandler:    sourcingHandler,
		MatchHandler:       matchHandler,
		ContractHandler:    contracts.NewHandler(contractResolver),
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
