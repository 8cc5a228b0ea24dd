package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/markdave123-py/contexta-ingest/internal/app"
	"github.com/markdave123-py/contexta-ingest/internal/config"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.QueueBackend != "asynq" {
		return errors.New("the worker consumes the asynq queue; QUEUE_BACKEND=local runs ingestion inside the api")
	}

	log, err := logger.NewLogger(logger.Options{
		Level:      cfg.LogLevel,
		Encoding:   cfg.LogEncoding,
		File:       cfg.LogFile,
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 14,
	})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	application, err := app.NewApp(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", logger.Error(err))
		return err
	}
	defer application.Close()

	log.Info("contexta ingest worker running", logger.Int("concurrency", cfg.WorkerConcurrency))
	return application.NewWorker().Run(ctx)
}
