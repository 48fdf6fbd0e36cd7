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

	"github.com/locafrota/locafrota/internal/app"
	"github.com/locafrota/locafrota/internal/billing"
	"github.com/locafrota/locafrota/internal/branches"
	"github.com/locafrota/locafrota/internal/contracts"
	"github.com/locafrota/locafrota/internal/drivers"
	"github.com/locafrota/locafrota/internal/maintenance"
	"github.com/locafrota/locafrota/internal/observability"
	"github.com/locafrota/locafrota/internal/plans"
	"github.com/locafrota/locafrota/internal/platform/db"
	"github.com/locafrota/locafrota/internal/shared"
	"github.com/locafrota/locafrota/internal/vehicles"
	"github.com/locafrota/locafrota/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	billingLock := shared.NewRunLock(redisClient, cfg.BillingLockTTL)

	vehicleCache := vehicles.NewSummaryCache(redisClient, 5*time.Minute)
	vehicleRepo := vehicles.NewRepository(dbpool)
	vehicleService := vehicles.NewService(vehicleRepo, vehicleCache)
	vehicleHandler := vehicles.NewHandler(logger, vehicleService)

	driverRepo := drivers.NewRepository(dbpool)
	driverService := drivers.NewService(driverRepo)
	driverHandler := drivers.NewHandler(logger, driverService)

	planRepo := plans.NewRepository(dbpool)
	planService := plans.NewService(planRepo)
	planHandler := plans.NewHandler(logger, planService)

	branchRepo := branches.NewRepository(dbpool)
	branchService := branches.NewService(branchRepo)
	branchHandler := branches.NewHandler(logger, branchService)

	contractRepo := contracts.NewRepository(dbpool)
	contractService := contracts.NewService(contractRepo, driverService, planService, branchService, vehicleService, auditLogger)
	contractHandler := contracts.NewHandler(logger, contractService)

	maintenanceRepo := maintenance.NewRepository(dbpool)
	maintenanceService := maintenance.NewService(maintenanceRepo, vehicleService, auditLogger)
	maintenanceHandler := maintenance.NewHandler(logger, maintenanceService)

	billingRepo := billing.NewRepository(dbpool)
	billingService := billing.NewService(logger, billingRepo, contractRepo, billingLock, idempotencyStore, auditLogger)
	billingHandler := billing.NewHandler(logger, billingService)

	metrics := observability.NewMetrics()

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
		ContractHandler:    contractHandler,
		BillingHandler:     billingHandler,
		VehicleHandler:     vehicleHandler,
		DriverHandler:      driverHandler,
		PlanHandler:        planHandler,
		BranchHandler:      branchHandler,
		MaintenanceHandler: maintenanceHandler,
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
