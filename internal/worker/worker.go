package worker

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"gastos/internal/amqp"
	applog "gastos/internal/log"
)

// Consumer feeds movement events to a handler until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, handler amqp.Handler) error
}

// Run starts the reminder scheduler and, when consumer is non-nil, the budget
// watcher. It returns when ctx is cancelled or either job fails.
func Run(ctx context.Context, consumer Consumer, watcher *BudgetWatcher, scheduler *ReminderScheduler) error {
	g, gctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error {
			return consumer.Consume(gctx, watcher.HandleMovementEvent)
		})
	} else {
		slog.InfoContext(ctx, "No AMQP consumer configured, budget watcher disabled",
			applog.FieldComponent, applog.ComponentWorker)
	}

	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
