package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"gastos/internal/analytics"
	"gastos/internal/budget"
	"gastos/internal/core"
	"gastos/internal/storage"
)

// RecentMovements is how many movements the dashboard shows.
const RecentMovements = 5

// AnalyticsReport is the analytics screen: the engine output plus the ranked
// category breakdowns.
type AnalyticsReport struct {
	analytics.Data
	TopExpenseCategories []analytics.CategoryShare `json:"topExpenseCategories"`
	IncomeCategories     []analytics.CategoryShare `json:"incomeCategories"`
	AverageExpense       decimal.Decimal           `json:"averageExpense"`
	MovementCount        int                       `json:"movementCount"`
}

// Dashboard is the home screen summary.
type Dashboard struct {
	TotalIncome     decimal.Decimal `json:"totalIncome"`
	TotalExpenses   decimal.Decimal `json:"totalExpenses"`
	Balance         decimal.Decimal `json:"balance"`
	MonthlyExpenses decimal.Decimal `json:"monthlyExpenses"`
	Budget          budget.Stats    `json:"budget"`
	Recent          []core.Movement `json:"recent"`
	ActiveGoals     int             `json:"activeGoals"`
	CompletedGoals  int             `json:"completedGoals"`
}

type AnalyticsService struct {
	movements *storage.MovementRepository
	settings  *storage.SettingsRepository
	goals     *storage.GoalRepository
}

func NewAnalyticsService(movements *storage.MovementRepository, settings *storage.SettingsRepository, goals *storage.GoalRepository) *AnalyticsService {
	return &AnalyticsService{movements: movements, settings: settings, goals: goals}
}

func (s *AnalyticsService) Report(ctx context.Context, now time.Time) AnalyticsReport {
	movements := s.movements.List(ctx)
	data := analytics.ComputeAt(movements, now)
	return AnalyticsReport{
		Data:                 data,
		TopExpenseCategories: analytics.RankCategories(data.ExpensesByCategory, data.TotalExpenses, analytics.ExpenseChartSize),
		IncomeCategories:     analytics.RankCategories(data.IncomeByCategory, data.TotalIncome, 0),
		AverageExpense:       analytics.AverageExpense(movements),
		MovementCount:        len(movements),
	}
}

// Dashboard loads the three collections concurrently and summarises them.
func (s *AnalyticsService) Dashboard(ctx context.Context, now time.Time) (Dashboard, error) {
	var (
		movements []core.Movement
		settings  budget.Settings
		goals     []core.SavingsGoal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		movements = s.movements.List(gctx)
		return gctx.Err()
	})
	g.Go(func() error {
		settings = s.settings.Load(gctx)
		return gctx.Err()
	})
	g.Go(func() error {
		goals = s.goals.List(gctx)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	data := analytics.ComputeAt(movements, now)
	spent := budget.MonthlyExpenses(movements, now)

	d := Dashboard{
		TotalIncome:     data.TotalIncome,
		TotalExpenses:   data.TotalExpenses,
		Balance:         data.Balance,
		MonthlyExpenses: spent,
		Budget:          budget.ComputeStats(spent, settings, now),
		Recent:          analytics.Recent(movements, RecentMovements),
	}
	for _, goal := range goals {
		if goal.Completed {
			d.CompletedGoals++
		} else {
			d.ActiveGoals++
		}
	}
	return d, nil
}
