package main

import (
	"context"
	"errors"
	"os"
	"time"

	"budgetconv/internal/amqp"
	"budgetconv/internal/cli"
	applog "budgetconv/internal/log"
	"budgetconv/internal/services"
	"budgetconv/internal/workbook"
	"budgetconv/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting budgetconv-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	sheets := cli.InitBackend(context.Background(), logger, cfg)
	defer sheets.Close()

	conv := services.NewConversionService(sheets.Source(), sheets.Sink(), logger)
	format, _ := workbook.ParseFormat(cfg.OutputFormat)
	w := worker.NewConversionWorker(conv, cfg.InboxDir, cfg.OutboxDir, format, logger)

	// Without a broker the worker converts the inbox once and exits.
	if cfg.AMQPURL == "" {
		sum, err := w.ConvertDir(context.Background(), cfg.WorkerConcurrency, format, cfg.KeepSuffix)
		logger.Info("Inbox sweep finished",
			"inbox", cfg.InboxDir,
			"converted", sum.Converted,
			"failed", sum.Failed)
		if err != nil {
			logger.Error("Inbox sweep failed", applog.FieldError, err)
		}
		if err != nil || sum.Failed > 0 {
			sheets.Close()
			os.Exit(1)
		}
		return
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.WithComponent(applog.ComponentAMQP).Info("Consuming conversion jobs",
		"queue", cfg.AMQPQueue,
		"inbox", cfg.InboxDir,
		"outbox", cfg.OutboxDir,
		"concurrency", cfg.WorkerConcurrency)

	if err := client.ConsumeConversionJobs(ctx, cfg.WorkerConcurrency, w.HandleJob); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
