package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finanze/internal/amqp"
	"finanze/internal/cli"
	"finanze/internal/export/sheets"
	"finanze/internal/log"
	"finanze/internal/services"
	"finanze/internal/worker"
)

const staleCheckSchedule = "@every 5m"

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig()
	cli.ApplyTimezone(cfg)
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	ctx := log.IntoContext(context.Background(), logger)

	logger.Info("Starting finanze-worker", log.FieldOperation, log.OpStartup)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Google Sheets target is optional; sheets jobs fail without it
	var sheetsWriter services.SheetsWriter
	sheetsCfg := sheets.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
	}
	if sheetsCfg.Enabled() {
		client, err := sheets.New(ctx, sheetsCfg)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		sheetsWriter = client
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	reports := services.NewReportService(repo, repo, services.ReportSettings{
		AppName:  cfg.AppName,
		Currency: cfg.CurrencySymbol,
	})
	processor := services.NewJobProcessor(repo, reports, sheetsWriter, services.JobProcessorConfig{
		PollInterval: cfg.JobPollInterval,
		MaxAttempts:  cfg.JobMaxAttempts,
		ExportDir:    cfg.ExportDir,
	})
	housekeeping := worker.NewHousekeeping(repo, cfg.JobRetention, logger)
	housekeeping.Add(staleCheckSchedule, processor.ResetStale)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The poller always runs: with AMQP it picks up jobs whose publish failed
	if err := processor.Start(runCtx); err != nil {
		logger.Error("Failed to start job processor", log.FieldError, err)
		os.Exit(1)
	}
	if err := housekeeping.Start(runCtx); err != nil {
		logger.Error("Failed to schedule housekeeping", log.FieldError, err)
		os.Exit(1)
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, relying on polling", log.FieldError, err)
		} else {
			amqpClient = client
			reportWorker := worker.NewReportWorker(processor)
			go func() {
				if err := amqpClient.ConsumeReportJobs(runCtx, reportWorker.HandleReportJob); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Message consumption failed", log.FieldError, err)
				}
			}()
		}
	} else {
		logger.Info("AMQP disabled - polling report jobs", "poll_interval", cfg.JobPollInterval)
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		cancel()
		if err := processor.Stop(ctx); err != nil {
			logger.Warn("Job processor did not stop cleanly", log.FieldError, err)
		}
		if err := housekeeping.Stop(ctx); err != nil {
			logger.Warn("Housekeeping did not stop cleanly", log.FieldError, err)
		}
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
	})
	cli.WaitForShutdown(shutdownCtx, done)
}
