package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"spendwise/internal/amqp"
	"spendwise/internal/assistant"
	"spendwise/internal/backend"
	"spendwise/internal/cli"
	applog "spendwise/internal/log"
	"spendwise/internal/worker"
)

const statsInterval = 5 * time.Minute

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup completes first.
func run() int {
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentWorker)
	logger.Info("Starting spendwise-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker",
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		return 1
	}

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	// The worker only reads the ledger, so the store is opened without a publisher.
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err.Error())
		return 1
	}
	backendCfg.AMQPURL = ""
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err.Error())
		return 1
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", applog.FieldError, err.Error())
		}
	}()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err.Error())
		return 1
	}
	defer client.Close()

	watcher := worker.NewBudgetWatcher(assistant.NewAggregator(res.Store, res.Store), logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := client.ConsumeLedgerEvents(gctx, watcher.HandleLedgerEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				processed, alerted := watcher.Stats()
				logger.Info("Budget watcher stats",
					"processed", processed,
					"alerted", alerted,
					"pruned", watcher.Prune())
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", applog.FieldError, err.Error())
		return 1
	}
	logger.Info("Worker stopped gracefully")
	return 0
}
