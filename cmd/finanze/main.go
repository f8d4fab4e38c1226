package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finanze/internal/amqp"
	"finanze/internal/auth"
	"finanze/internal/cache"
	"finanze/internal/cli"
	apphttp "finanze/internal/http"
	"finanze/internal/log"
	"finanze/internal/services"
	"finanze/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig()
	cli.ApplyTimezone(cfg)
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	logger.Info("Starting finanze", log.FieldOperation, log.OpStartup, "port", cfg.Port, "timezone", time.Local.String())

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	defaults, err := storage.DefaultCategories()
	if err != nil {
		logger.Error("Failed to load default categories", log.FieldError, err)
		os.Exit(1)
	}

	// Dashboard aggregates are cached per user and month
	cacheManager := cache.NewManager(logger)
	var (
		dashboardCache cache.Cache[*services.Dashboard]
		cacheStats     func() cache.Stats
	)
	if cfg.DashboardCacheSize > 0 {
		lru := cache.NewLRUCache[*services.Dashboard](cfg.DashboardCacheSize, cfg.DashboardCacheTTL)
		cacheManager.Register(lru)
		dashboardCache, cacheStats = lru, lru.Stats
	}
	cacheManager.StartCleanup(time.Minute)

	// AMQP is optional; the worker polls the jobs table either way
	var (
		publisher  services.JobPublisher
		amqpClient *amqp.Client
	)
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, jobs will be picked up by polling", log.FieldError, err)
		} else {
			amqpClient, publisher = client, client
			logger.Info("AMQP publisher ready", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	dashboard := services.NewDashboardService(repo, dashboardCache)
	svc := apphttp.Services{
		Users:      services.NewUserService(repo, auth.NewHasher(auth.DefaultCost), defaults),
		Categories: services.NewCategoryService(repo, dashboard),
		Ledger:     services.NewLedgerService(repo, repo, dashboard),
		Budgets:    services.NewBudgetService(repo, dashboard),
		Dashboard:  dashboard,
		Reports: services.NewReportService(repo, repo, services.ReportSettings{
			AppName:  cfg.AppName,
			Currency: cfg.CurrencySymbol,
		}),
		Jobs: services.NewJobService(repo, publisher, cfg.ExportDir, cfg.SheetsEnabled()),
	}
	sessions := auth.NewSessions(repo, repo, auth.SessionConfig{
		TTL:         cfg.SessionTTL,
		RememberTTL: cfg.SessionRememberTTL,
		Secure:      cfg.CookieSecure,
	})

	srv, err := apphttp.NewServer(":"+cfg.Port, svc, sessions, apphttp.Options{
		AppName:            cfg.AppName,
		Currency:           cfg.CurrencySymbol,
		CookieSecure:       cfg.CookieSecure,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		SheetsEnabled:      cfg.SheetsEnabled(),
		TrustedProxies:     cfg.TrustedProxies,
		Logger:             logger,
		Storage:            repo,
		CacheStats:         cacheStats,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
	})

	logger.Info("Listening", "addr", srv.Addr, "sheets_export", cfg.SheetsEnabled(), "amqp", amqpClient != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
