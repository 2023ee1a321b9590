package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	appamqp "shoptracker/internal/amqp"
	"shoptracker/internal/backend"
	"shoptracker/internal/cli"
	"shoptracker/internal/ledger"
	"shoptracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger().WithComponent("worker")
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting shoptracker-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the report worker")
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Backend configuration error", "error", err)
		os.Exit(1)
	}
	store, err := backend.Create(logger.Logger, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize storage backend", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// The worker only follows the ledger, it never publishes events.
	l, err := ledger.Open(context.Background(), store, nil)
	if err != nil {
		logger.Error("Failed to open ledger", "error", err)
		os.Exit(1)
	}

	amqpClient, err := appamqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	reportWorker := worker.NewReportWorker(l, cfg.ExportDir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// On startup, write the current month so a fresh deployment has an
	// export before the first event arrives.
	now := time.Now()
	if err := reportWorker.WriteMonthly(ctx, now.Month(), now.Year()); err != nil {
		logger.Error("Startup summary write failed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.Consume(gctx, func(event *appamqp.Event) error {
			return reportWorker.HandleEvent(gctx, event)
		})
	})

	// Periodic refresh covers events missed while the worker was down.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.RefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := reportWorker.RefreshAll(gctx); err != nil {
					logger.Error("Periodic summary refresh failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
