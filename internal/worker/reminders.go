package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gastos/internal/budget"
	applog "gastos/internal/log"
	"gastos/internal/metrics"
	"gastos/internal/services"
)

// ReminderScheduler checks on every tick which reminders are due and emits
// each calendar day's reminders once.
type ReminderScheduler struct {
	budget   *services.BudgetService
	metrics  *metrics.Metrics
	interval time.Duration
	now      func() time.Time
	emit     func(ctx context.Context, r budget.Reminder)

	mu      sync.Mutex
	lastDay string
}

func NewReminderScheduler(budget *services.BudgetService, m *metrics.Metrics, interval time.Duration) *ReminderScheduler {
	s := &ReminderScheduler{
		budget:   budget,
		metrics:  m,
		interval: interval,
		now:      time.Now,
	}
	s.emit = s.logReminder
	return s
}

// Run ticks until ctx is done. The first check happens immediately.
func (s *ReminderScheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick emits today's reminders unless they were already emitted and returns
// how many went out.
func (s *ReminderScheduler) Tick(ctx context.Context) int {
	now := s.now()
	day := now.Format("2006-01-02")

	s.mu.Lock()
	defer s.mu.Unlock()
	if day == s.lastDay {
		return 0
	}

	due := s.budget.DueReminders(ctx, now)
	for _, r := range due {
		s.emit(ctx, r)
		if s.metrics != nil {
			s.metrics.IncReminderEmitted(string(r.Kind))
		}
	}
	s.lastDay = day
	return len(due)
}

func (s *ReminderScheduler) logReminder(ctx context.Context, r budget.Reminder) {
	slog.InfoContext(ctx, "Reminder due",
		applog.FieldComponent, applog.ComponentWorker,
		"kind", r.Kind,
		"message", r.Message)
}
