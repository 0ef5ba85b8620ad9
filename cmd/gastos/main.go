package main

import (
	"context"
	"os"
	"time"

	"gastos/internal/cli"
	"gastos/internal/config"
	apphttp "gastos/internal/http"
	"gastos/internal/metrics"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel)
	cli.ValidateConfig(logger, cfg)

	res := cli.InitBackend(context.Background(), logger, cfg)
	m := metrics.New()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Services:           res.Backend.Services(cli.Credentials(cfg), m),
		Ready:              res.Backend,
		Metrics:            m,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.ErrorContext(ctx, "Server shutdown error", "error", err)
		}
		if err := res.Cleanup(); err != nil {
			logger.ErrorContext(ctx, "Backend cleanup error", "error", err)
		}
	})

	logger.InfoContext(ctx, "Starting gastos server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", res.Backend.AMQP != nil)
	if err := srv.Start(); err != nil {
		logger.ErrorContext(ctx, "Server error", "error", err, "port", cfg.Port)
		_ = res.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.InfoContext(context.Background(), "Server stopped gracefully")
}
