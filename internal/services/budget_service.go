package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"gastos/internal/budget"
	applog "gastos/internal/log"
	"gastos/internal/storage"
)

// BudgetStatus bundles the inputs and output of one budget evaluation.
type BudgetStatus struct {
	Settings        budget.Settings `json:"settings"`
	MonthlyExpenses decimal.Decimal `json:"monthlyExpenses"`
	Stats           budget.Stats    `json:"stats"`
}

type BudgetService struct {
	settings  *storage.SettingsRepository
	movements *storage.MovementRepository
}

func NewBudgetService(settings *storage.SettingsRepository, movements *storage.MovementRepository) *BudgetService {
	return &BudgetService{settings: settings, movements: movements}
}

func (s *BudgetService) Settings(ctx context.Context) budget.Settings {
	return s.settings.Load(ctx)
}

// UpdateSettings shallow-merges p into the stored settings and persists the
// result.
func (s *BudgetService) UpdateSettings(ctx context.Context, p budget.SettingsPatch) (budget.Settings, error) {
	next := s.settings.Load(ctx).Apply(p)
	if err := s.save(ctx, next); err != nil {
		return next, err
	}
	return next, nil
}

// UpdateReminders merges p into the stored reminders object.
func (s *BudgetService) UpdateReminders(ctx context.Context, p budget.RemindersPatch) (budget.Settings, error) {
	next := s.settings.Load(ctx).ApplyReminders(p)
	if err := s.save(ctx, next); err != nil {
		return next, err
	}
	return next, nil
}

// Status evaluates the budget for the month containing now.
func (s *BudgetService) Status(ctx context.Context, now time.Time) BudgetStatus {
	settings := s.settings.Load(ctx)
	spent := budget.MonthlyExpenses(s.movements.List(ctx), now)
	return BudgetStatus{
		Settings:        settings,
		MonthlyExpenses: spent,
		Stats:           budget.ComputeStats(spent, settings, now),
	}
}

// DueReminders lists the reminders for now's day under the stored settings.
func (s *BudgetService) DueReminders(ctx context.Context, now time.Time) []budget.Reminder {
	return budget.Due(s.settings.Load(ctx), now)
}

func (s *BudgetService) save(ctx context.Context, next budget.Settings) error {
	if err := s.settings.Save(ctx, next); err != nil {
		return fmt.Errorf("save budget settings: %w", err)
	}
	slog.InfoContext(ctx, "Budget settings updated",
		applog.FieldComponent, applog.ComponentBudget,
		applog.FieldOperation, applog.OpUpdate,
		applog.FieldMonthlyLimit, next.MonthlyLimit.String(),
		"alert_threshold", next.AlertThreshold)
	return nil
}
