package main

import (
	"context"
	"errors"
	"os"
	"time"

	"salesdash/internal/amqp"
	"salesdash/internal/cache"
	"salesdash/internal/cli"
	"salesdash/internal/config"
	"salesdash/internal/log"
	"salesdash/internal/sheets"
	gsheet "salesdash/internal/sheets/google"
	"salesdash/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)
	if err != nil {
		log.New(log.DefaultConfig()).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, log.ComponentWorker, nil)
	logger.Info("Starting salesdash-worker")

	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	// Without a spreadsheet the worker only logs the events it receives.
	var writer sheets.LoadLogWriter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets load log enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	w := worker.NewLoadWorker(writer, logger)
	if err := w.Startup(ctx); err != nil {
		// the header is retried on the next start
		logger.Error("Load log startup failed", log.FieldError, err)
	}

	caches := cache.NewManager(logger)
	caches.Register(w.Cleaner())
	caches.StartCleanup(time.Hour)
	defer caches.Stop()

	if err := client.Consume(ctx, w.HandleDatasetMerged); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped")
}
