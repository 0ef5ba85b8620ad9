package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"gastos/internal/cli"
	"gastos/internal/config"
	applog "gastos/internal/log"
	"gastos/internal/metrics"
	"gastos/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(applog.ComponentWorker)
	cli.ValidateConfig(logger, cfg)

	logger.InfoContext(context.Background(), "Starting gastos-worker",
		"backend", cfg.DataBackend,
		"reminder_interval", cfg.ReminderInterval.String())

	res := cli.InitBackend(context.Background(), logger, cfg)
	m := metrics.New()
	svc := res.Backend.Services(cli.Credentials(cfg), m)

	var consumer worker.Consumer
	if res.Backend.AMQP != nil {
		consumer = res.Backend.AMQP
	}

	var metricsSrv *http.Server
	if cfg.WorkerMetricsPort != "" {
		r := chi.NewRouter()
		r.Handle("/metrics", m.Handler())
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		metricsSrv = &http.Server{Addr: ":" + cfg.WorkerMetricsPort, Handler: r, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.ErrorContext(context.Background(), "Metrics server error", "error", err)
			}
		}()
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(ctx)
		}
	})

	err := worker.Run(ctx,
		consumer,
		worker.NewBudgetWatcher(svc.Budget, m),
		worker.NewReminderScheduler(svc.Budget, m, cfg.ReminderInterval))

	if cleanupErr := res.Cleanup(); cleanupErr != nil {
		logger.ErrorContext(context.Background(), "Backend cleanup error", "error", cleanupErr)
	}
	if err != nil {
		logger.ErrorContext(context.Background(), "Worker stopped with error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.InfoContext(context.Background(), "Worker stopped gracefully")
}
