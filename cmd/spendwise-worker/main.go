// spendwise-worker consumes expense events from AMQP and mirrors
// confirmed expenses into a Google spreadsheet.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"spendwise/internal/config"
	"spendwise/internal/events"
	"spendwise/internal/export/sheets"
	"spendwise/internal/log"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(log.Config{Component: log.ComponentWorker})
	log.SetDefault(logger)

	logger.Info("Starting spendwise-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL must be set for the worker")
		os.Exit(1)
	}
	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("GOOGLE_SPREADSHEET_ID must be set for the worker")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appender, err := sheets.NewAppender(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	eventsClient, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer eventsClient.Close()

	handler := func(msg *events.ExpenseEvent) error {
		// Deletes are not mirrored; the spreadsheet is an append-only
		// ledger of confirmed expenses.
		if msg.Kind != events.KindExpenseCreated || msg.Expense == nil {
			return nil
		}

		ref, err := appender.Append(ctx, *msg.Expense)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "Expense mirrored to spreadsheet",
			log.FieldExpenseID, msg.ExpenseID,
			log.FieldUserID, msg.UserID,
			"sheets_ref", ref)
		return nil
	}

	if err := eventsClient.Consume(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumption failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
