package main

import (
	"context"
	"errors"
	"os"
	"time"

	"txdash/internal/amqp"
	"txdash/internal/cli"
	"txdash/internal/log"
	"txdash/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT")).WithComponent(log.ComponentWorker)
	logger.Info("Starting txdash-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	importWorker := worker.NewImportWorker(sqliteRepo, worker.CSVOpener, cfg.ImportDir, cli.NewNormalizer(cfg))

	ctx := cli.GracefulShutdown(logger, 30*time.Second, nil)

	if rec, err := sqliteRepo.LatestImport(ctx); err == nil {
		logger.Info("Current stored dataset",
			"import_id", rec.ID,
			log.FieldSource, rec.Source,
			log.FieldRows, rec.RowCount,
			"imported_at", rec.ImportedAt.Format(time.RFC3339))
	} else {
		logger.Info("No dataset imported yet", log.FieldError, err)
	}

	logger.Info("Consuming import messages", "queue", cfg.AMQPQueue, "import_dir", cfg.ImportDir)
	if err := amqpClient.ConsumeImports(ctx, importWorker.HandleImportMessage); err != nil &&
		!errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Worker stopped")
}
