// Package cli provides common CLI initialization utilities shared by
// cmd/gastos and cmd/gastos-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gastos/internal/backend"
	"gastos/internal/config"
	applog "gastos/internal/log"
	"gastos/internal/services"
)

// SetupLogger builds the process logger at the given LOG_LEVEL and installs it
// as the slog default.
func SetupLogger(level string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Level = applog.ParseLevel(level)
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// ValidateConfig exits the process when cfg is invalid.
func ValidateConfig(logger *applog.Logger, cfg *config.Config) {
	if err := cfg.Validate(); err != nil {
		logger.ErrorContext(context.Background(), "Configuration validation failed", "error", err)
		os.Exit(1)
	}
}

// InitBackend opens the configured backend or exits the process.
func InitBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) *backend.BackendResult {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return res
}

// Credentials returns the login gate configured for this install.
func Credentials(cfg *config.Config) services.Credentials {
	return services.Credentials{
		Username: cfg.LoginUsername,
		Password: cfg.LoginPassword,
		Hint:     cfg.LoginHint,
	}
}

// GracefulShutdown returns a context that is cancelled on SIGINT or SIGTERM.
// After cancelling it, cleanup runs with a deadline of timeout and the
// returned channel is closed.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer close(done)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.InfoContext(ctx, "Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.WarnContext(shutdownCtx, "Shutdown timeout reached")
			return
		}
		logger.InfoContext(shutdownCtx, "Shutdown complete")
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
