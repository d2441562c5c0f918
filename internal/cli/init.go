// Package cli provides common startup utilities shared by the stocktake
// binaries: cmd/stocktake, cmd/stocktake-worker, and cmd/stocktake-export.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stocktake/internal/backend"
	"stocktake/internal/config"
	"stocktake/internal/log"
)

// SetupLogger initializes structured logging and installs it as the
// process default.
func SetupLogger() *slog.Logger {
	return log.Setup()
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenBackend opens the configured ledger store.
// Returns the backend or exits the process on failure.
func OpenBackend(ctx context.Context, logger *slog.Logger, cfg *config.Config) *backend.Result {
	res, err := backend.Open(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open ledger backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return res
}

// CloseBackend runs the backend cleanup with a bounded timeout. A nil
// cleanup is a no-op.
func CloseBackend(logger *slog.Logger, res *backend.Result) {
	if res == nil || res.Cleanup == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := res.Cleanup(ctx); err != nil {
		logger.Error("Backend cleanup failed", "error", err)
	}
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup()
		}

		cancel()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		default:
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and shutdown
// has finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
