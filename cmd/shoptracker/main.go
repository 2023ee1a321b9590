package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	appamqp "shoptracker/internal/amqp"
	"shoptracker/internal/backend"
	"shoptracker/internal/cli"
	apphttp "shoptracker/internal/http"
	"shoptracker/internal/ledger"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger().WithComponent("server")
	cfg := cli.LoadAndValidateConfig(logger)

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

	// AMQP is optional. Without a URL the ledger simply skips event
	// publishing.
	var events ledger.EventPublisher
	var amqpClient *appamqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = appamqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		events = amqpClient
		logger.Info("Event publishing enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("Event publishing disabled, no AMQP_URL provided")
	}

	l, err := ledger.Open(context.Background(), store, events)
	if err != nil {
		logger.Error("Failed to open ledger", "error", err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, l, cfg.CacheSize, cfg.CacheTTL)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting shoptracker server",
		"port", cfg.Port,
		"backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
