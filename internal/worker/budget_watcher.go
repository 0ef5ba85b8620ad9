// Package worker holds the background jobs of gastos-worker: the budget
// watcher fed by movement events and the daily reminder scheduler.
package worker

import (
	"context"
	"log/slog"
	"time"

	"gastos/internal/amqp"
	applog "gastos/internal/log"
	"gastos/internal/metrics"
	"gastos/internal/services"
)

// BudgetWatcher re-evaluates the monthly budget after every movement event
// and raises an alert while spend is at or past the threshold.
type BudgetWatcher struct {
	budget  *services.BudgetService
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewBudgetWatcher(budget *services.BudgetService, m *metrics.Metrics) *BudgetWatcher {
	return &BudgetWatcher{budget: budget, metrics: m, now: time.Now}
}

// HandleMovementEvent is an amqp.Handler. State is always reloaded from
// storage, so redelivered or out-of-order events are harmless.
func (w *BudgetWatcher) HandleMovementEvent(ctx context.Context, e *amqp.MovementEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	status := w.budget.Status(ctx, w.now())
	stats := status.Stats

	slog.InfoContext(ctx, "Budget re-evaluated",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldEventKind, e.Kind,
		applog.FieldMovementID, e.MovementID,
		applog.FieldMonthlySpent, status.MonthlyExpenses.String(),
		applog.FieldMonthlyLimit, stats.Limit.String(),
		applog.FieldUsedPercent, stats.UsedPercent)

	if !stats.IsNearLimit {
		return nil
	}

	if w.metrics != nil {
		w.metrics.IncNearLimitAlert()
	}
	slog.WarnContext(ctx, "Monthly budget near limit",
		applog.FieldComponent, applog.ComponentBudget,
		applog.FieldMonthlySpent, status.MonthlyExpenses.String(),
		applog.FieldMonthlyLimit, stats.Limit.String(),
		applog.FieldUsedPercent, stats.UsedPercent,
		"remaining", stats.Remaining.String(),
		"days_left", stats.DaysLeft,
		"recommended_per_day", stats.RecommendedPerDay.StringFixed(2))
	return nil
}
