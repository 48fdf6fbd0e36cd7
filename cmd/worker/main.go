package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/locafrota/locafrota/internal/app"
	"github.com/locafrota/locafrota/internal/billing"
	"github.com/locafrota/locafrota/internal/contracts"
	"github.com/locafrota/locafrota/internal/platform/db"
	"github.com/locafrota/locafrota/internal/shared"
	"github.com/locafrota/locafrota/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	billingLock := shared.NewRunLock(redisClient, cfg.BillingLockTTL)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	auditLogger := shared.NewAuditLogger(pool)

	contractRepo := contracts.NewRepository(pool)
	billingRepo := billing.NewRepository(pool)
	billingService := billing.NewService(logger, billingRepo, contractRepo, billingLock, idempotencyStore, auditLogger)

	generateJob := jobs.NewBillingGenerateJob(billingService, logger, nil)
	sweepJob := jobs.NewOverdueSweepJob(billingService, logger, nil)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskBillingGenerate, Handler: generateJob.Handle},
			{Type: jobs.TaskOverdueSweep, Handler: sweepJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.SweepCronSpec, Task: jobs.NewOverdueSweepTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.BillingCronSpec, Task: jobs.NewBillingGenerateTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
