package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"stocktake/internal/backend"
	"stocktake/internal/cli"
	"stocktake/internal/event"
	"stocktake/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting stocktake-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the mirror worker")
		os.Exit(1)
	}
	if cfg.MirrorBackend == "" {
		logger.Error("MIRROR_BACKEND is required for the mirror worker")
		os.Exit(1)
	}
	if cfg.MirrorBackend == cfg.DataBackend {
		logger.Error("Mirror backend must differ from the primary backend", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// The mirror target reuses the backend factory with the backend swapped.
	mirrorCfg := *cfg
	mirrorCfg.DataBackend = cfg.MirrorBackend
	if err := mirrorCfg.Validate(); err != nil {
		logger.Error("Mirror backend configuration invalid", "error", err)
		os.Exit(1)
	}
	mirrorRes := cli.OpenBackend(ctx, logger, &mirrorCfg)
	defer cli.CloseBackend(logger, mirrorRes)

	mirror := worker.NewMirrorWorker(mirrorRes.Store)

	// Startup reconcile replays the primary ledger onto the mirror. A memory
	// primary is process-local, so there is nothing shared to replay from.
	var primaryRes *backend.Result
	if cfg.DataBackend != "memory" {
		primaryRes = cli.OpenBackend(ctx, logger, cfg)
		defer cli.CloseBackend(logger, primaryRes)

		logger.Info("Reconciling mirror from primary ledger",
			"primary", cfg.DataBackend, "mirror", cfg.MirrorBackend)
		if err := mirror.Reconcile(ctx, primaryRes.Store); err != nil {
			logger.Error("Startup reconcile failed", "error", err)
			// Don't exit - continue with normal operation
		}
	} else {
		logger.Info("Skipping startup reconcile - memory primary is process-local")
	}

	client, err := event.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return client.Consume(gctx, func(ev *event.LedgerEvent) error {
			return mirror.HandleEvent(gctx, ev)
		})
	})

	if cfg.ReconcileInterval > 0 && primaryRes != nil {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.ReconcileInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-ticker.C:
					if err := mirror.Reconcile(gctx, primaryRes.Store); err != nil {
						logger.Error("Periodic reconcile failed", "error", err)
					}
				}
			}
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
