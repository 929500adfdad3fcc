package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"finbudget/internal/amqp"
	"finbudget/internal/cli"
	"finbudget/internal/worker"
)

// fullRefreshInterval bounds how stale actuals can get if a budget_changes
// message is ever lost: the worker re-derives every month on this cadence
// regardless of broker traffic.
const fullRefreshInterval = 6 * time.Hour

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	actualsWorker := worker.NewActualsWorker(repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	// Reconcile everything once before consuming, so a worker that was down
	// while the API kept mutating starts from a consistent state.
	if err := actualsWorker.StartupRefresh(ctx); err != nil {
		logger.Error("Startup refresh failed", "error", err)
		os.Exit(1)
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting budget change consumer", "queue", cfg.AMQPQueue)
		return amqpClient.ConsumeBudgetChanges(gCtx, func(msg *amqp.BudgetChangedMessage) error {
			return actualsWorker.HandleBudgetChanged(gCtx, msg)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(fullRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			case <-ticker.C:
				if err := actualsWorker.StartupRefresh(gCtx); err != nil {
					logger.Error("Periodic refresh failed", "error", err)
				}
			}
		}
	})

	logger.Info("Worker started", "db_path", cfg.SQLiteDBPath)
	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
