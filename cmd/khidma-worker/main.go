package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"khidma/internal/amqp"
	"khidma/internal/cli"
	"khidma/internal/services"
	"khidma/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("khidma-worker", os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	logger.Info("Starting khidma-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	repo := cli.OpenStore(ctx, logger, cfg)
	defer repo.Close()

	sheets := cli.OpenSheets(ctx, logger, cfg)
	if sheets == nil {
		logger.Error("The worker mirrors to Google Sheets; set GOOGLE_SPREADSHEET_ID")
		os.Exit(1)
	}

	mirror := services.NewSyncProcessor(repo, sheets, services.SyncProcessorConfig{
		PollInterval: cfg.SyncInterval,
		BatchSize:    cfg.SyncBatchSize,
	})
	syncWorker := worker.NewSyncWorker(mirror)

	// Catch up on collections recorded while the worker was down.
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, relying on periodic sync", "error", err)
		} else {
			defer client.Close()
			g.Go(func() error {
				err := client.Consume(gctx, syncWorker.HandleEvent)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		}
	} else {
		logger.Info("AMQP disabled - periodic sync only", "interval", cfg.SyncInterval)
	}

	if err := mirror.Start(gctx); err != nil {
		logger.Error("Failed to start sync processor", "error", err)
		os.Exit(1)
	}
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return mirror.Stop(stopCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped", "error", err)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
