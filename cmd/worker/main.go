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

	"github.com/maderia/maderia/internal/app"
	"github.com/maderia/maderia/internal/auth"
	"github.com/maderia/maderia/internal/catalog"
	"github.com/maderia/maderia/internal/dashboard"
	"github.com/maderia/maderia/internal/mail"
	"github.com/maderia/maderia/internal/orders"
	"github.com/maderia/maderia/internal/platform/cache"
	"github.com/maderia/maderia/internal/platform/db"
	"github.com/maderia/maderia/jobs"
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

	smtp := mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	mailJob := jobs.NewSendEmailJob(smtp, logger)

	ordersRepo := orders.NewPGRepository(pool)
	authRepo := auth.NewRepository(pool)
	catalogRepo := catalog.NewPGRepository(pool)
	dashboardCache := cache.New(redisClient, "dashboard", cfg.DashboardCacheTTL)
	dashboardService := dashboard.NewService(ordersRepo, authRepo, catalogRepo, dashboardCache, logger)
	warmJob := jobs.NewDashboardWarmJob(dashboardService, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: mailJob.Handle},
			{Type: jobs.TaskTypeDashboardWarm, Handler: warmJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 5 * * *", Task: jobs.NewDashboardWarmTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
