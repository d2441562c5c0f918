package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stocktake/internal/cache"
	"stocktake/internal/cli"
	"stocktake/internal/event"
	apphttp "stocktake/internal/http"
	"stocktake/internal/ledger"
	"stocktake/internal/session"
	"stocktake/internal/snapshot"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	cfg := cli.LoadAndValidateConfig(logger)

	res := cli.OpenBackend(context.Background(), logger, cfg)
	defer cli.CloseBackend(logger, res)

	// Event publishing is optional. Without a broker the server still works,
	// there is just nothing for a mirror worker to follow.
	var publisher ledger.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := event.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP broker", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("Event publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	svc := ledger.New(res.Store, publisher)

	sessions := session.NewManager(cfg.SessionTTL, cfg.MaxSessions)

	cacheManager := cache.NewManager()
	cacheManager.Register(sessions)
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	if cfg.SnapshotSchedule != "" {
		scheduler := snapshot.NewScheduler(svc, cfg.SnapshotDir, cfg.SnapshotSchedule)
		if err := scheduler.Start(); err != nil {
			logger.Error("Failed to start snapshot scheduler", "error", err)
			os.Exit(1)
		}
		defer scheduler.Stop()
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, sessions, cfg.AuthPassword, cfg.SessionTTL)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting stocktake server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
