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

	"github.com/maderia/maderia/internal/app"
	"github.com/maderia/maderia/internal/auth"
	"github.com/maderia/maderia/internal/catalog"
	"github.com/maderia/maderia/internal/dashboard"
	"github.com/maderia/maderia/internal/mail"
	"github.com/maderia/maderia/internal/orders"
	"github.com/maderia/maderia/internal/platform/cache"
	"github.com/maderia/maderia/internal/platform/db"
	"github.com/maderia/maderia/internal/platform/ocr"
	"github.com/maderia/maderia/internal/quotations"
	"github.com/maderia/maderia/internal/rbac"
	"github.com/maderia/maderia/internal/roles"
	"github.com/maderia/maderia/internal/shared"
	"github.com/maderia/maderia/internal/users"
	"github.com/maderia/maderia/internal/view"
	"github.com/maderia/maderia/internal/visits"
	"github.com/maderia/maderia/jobs"
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

	sessions := shared.NewSessionManager(redisClient, "maderia_session", cfg.SessionTTL, cfg.IsProduction())
	templates := view.NewEngine()

	asynqClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()
	sender := mail.NewQueueSender(asynqClient)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, cfg.DefaultRoleID)
	authHandler := auth.NewHandler(logger, authService, sessions)

	rbacService := rbac.NewService(pool)
	guard := &rbac.Middleware{Service: rbacService, Logger: logger}

	catalogRepo := catalog.NewPGRepository(pool)
	catalogService := catalog.NewService(catalogRepo)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	ocrClient := ocr.NewClient(cfg.OCREndpoint, cfg.OCRTimeout)
	ordersRepo := orders.NewPGRepository(pool)
	ordersService := orders.NewService(ordersRepo, ocrClient, logger)
	ordersHandler := orders.NewHandler(logger, ordersService, rbacService)

	quotationsRepo := quotations.NewPGRepository(pool)
	quotationsService := quotations.NewService(quotationsRepo, ordersService, authService,
		templates, sender, logger, cfg.NotifyAddress(), cfg.DefaultServiceID)
	quotationsHandler := quotations.NewHandler(logger, quotationsService)

	visitsRepo := visits.NewPGRepository(pool)
	visitsService := visits.NewService(visitsRepo, authService, templates, sender, logger)
	visitsHandler := visits.NewHandler(logger, visitsService)

	usersHandler := users.NewHandler(logger, users.NewService(users.NewPGRepository(pool)))
	rolesHandler := roles.NewHandler(logger, roles.NewService(roles.NewPGRepository(pool)))

	dashboardCache := cache.New(redisClient, "dashboard", cfg.DashboardCacheTTL)
	dashboardService := dashboard.NewService(ordersRepo, authRepo, catalogRepo, dashboardCache, logger)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessions,
		RBACMiddleware:    guard,
		AuthHandler:       authHandler,
		CatalogHandler:    catalogHandler,
		OrdersHandler:     ordersHandler,
		QuotationsHandler: quotationsHandler,
		VisitsHandler:     visitsHandler,
		DashboardHandler:  dashboardHandler,
		UsersHandler:      usersHandler,
		RolesHandler:      rolesHandler,
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
