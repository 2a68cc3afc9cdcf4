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

	"github.com/quickinvoice/quickinvoice/internal/app"
	"github.com/quickinvoice/quickinvoice/internal/auth"
	"github.com/quickinvoice/quickinvoice/internal/deliveries"
	"github.com/quickinvoice/quickinvoice/internal/inventory"
	"github.com/quickinvoice/quickinvoice/internal/invoices"
	"github.com/quickinvoice/quickinvoice/internal/observability"
	"github.com/quickinvoice/quickinvoice/internal/platform/cache"
	"github.com/quickinvoice/quickinvoice/internal/platform/db"
	"github.com/quickinvoice/quickinvoice/internal/reports"
	"github.com/quickinvoice/quickinvoice/internal/shared"
	"github.com/quickinvoice/quickinvoice/internal/users"
	"github.com/quickinvoice/quickinvoice/jobs"
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

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, dbpool); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
	}

	checks := map[string]app.Pinger{"postgres": dbpool.Ping}

	// Reports fall back to uncached computation without Redis.
	var reportsCache *reports.Cache
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		reportsCache = reports.NewCache(redisClient, cfg.ReportsCacheTTL)
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	queue := jobs.NewClient(redisOpts)
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	loc := cfg.Location()

	authService := auth.NewService(auth.NewRepository(dbpool))

	usersService := users.NewService(users.NewRepository(dbpool), users.ServiceConfig{
		FreePlanLimit: cfg.FreePlanLimit,
		Location:      loc,
	})

	invoicesService := invoices.NewService(invoices.NewRepository(dbpool), invoices.ServiceConfig{
		Notifier:  jobs.NewInvoiceMailer(queue, usersService),
		Listeners: []invoices.Listener{metrics},
		Location:  loc,
	})

	reportsService := reports.NewService(invoicesService, reports.ServiceConfig{
		Cache:    reportsCache,
		Logger:   logger,
		Location: loc,
	})
	invoicesService.Subscribe(reportsService)

	inventoryService := inventory.NewService(inventory.NewRepository(dbpool), inventory.ServiceConfig{
		AllowNegativeStock: cfg.AllowNegativeStock,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Metrics:          metrics,
		Auth:             authService,
		InvoicesHandler:  invoices.NewHandler(logger, invoicesService).WithRequestGuard(shared.NewIdempotencyStore(dbpool)),
		UsersHandler:     users.NewHandler(logger, usersService),
		ReportsHandler:   reports.NewHandler(logger, reportsService, usersService),
		InventoryHandler: inventory.NewHandler(logger, inventoryService),
		DeliveryHandler:  deliveries.NewHandler(logger, deliveries.NewService(deliveries.NewRepository(dbpool), nil)),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Checks:           checks,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("timezone", loc.String()))
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
