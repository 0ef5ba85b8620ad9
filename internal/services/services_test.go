package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gastos/internal/amqp"
	"gastos/internal/budget"
	"gastos/internal/core"
	"gastos/internal/metrics"
	"gastos/internal/storage"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.MovementEvent
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, e *amqp.MovementEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}

func (f *fakePublisher) kinds() []amqp.EventKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]amqp.EventKind, len(f.events))
	for i, e := range f.events {
		out[i] = e.Kind
	}
	return out
}

var fixedNow = time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

type fixture struct {
	store     *storage.MemoryStore
	movements *storage.MovementRepository
	settings  *storage.SettingsRepository
	goals     *storage.GoalRepository
	sessions  *storage.SessionRepository
	publisher *fakePublisher
	metrics   *metrics.Metrics
}

func newFixture() *fixture {
	store := storage.NewMemoryStore()
	return &fixture{
		store:     store,
		movements: storage.NewMovementRepository(store),
		settings:  storage.NewSettingsRepository(store),
		goals:     storage.NewGoalRepository(store),
		sessions:  storage.NewSessionRepository(store),
		publisher: &fakePublisher{},
		metrics:   metrics.New(),
	}
}

func (f *fixture) movementService() *MovementService {
	s := NewMovementService(f.movements, f.publisher, f.metrics)
	s.now = func() time.Time { return fixedNow }
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("m-%d", n)
	}
	return s
}

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestMovementServiceRecord(t *testing.T) {
	f := newFixture()
	svc := f.movementService()
	ctx := context.Background()

	m, err := svc.Record(ctx, NewMovement{
		Amount:      amount("25.40"),
		Category:    " food ",
		Description: "  Groceries ",
		Type:        core.Expense,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if m.ID != "m-1" || m.Date != "2025-03-12T15:00:00.000Z" || m.Category != "food" || m.Description != "Groceries" {
		t.Fatalf("unexpected movement %+v", m)
	}

	if _, err := svc.Record(ctx, NewMovement{Amount: amount("900"), Category: "salary", Description: "Pay", Type: core.Income}); err != nil {
		t.Fatalf("record income: %v", err)
	}

	list := svc.List(ctx)
	if len(list) != 2 || list[0].ID != "m-2" {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if got := f.publisher.kinds(); len(got) != 2 || got[0] != amqp.EventCreated {
		t.Fatalf("expected two created events, got %v", got)
	}
	if f.metrics.MovementsRecorded("expense") != 1 || f.metrics.MovementsRecorded("income") != 1 {
		t.Fatal("movement counters not incremented")
	}
	if f.metrics.EventsPublished(metrics.OutcomeSuccess) != 2 {
		t.Fatal("publish counter not incremented")
	}
}

func TestMovementServiceRecordValidation(t *testing.T) {
	tests := []struct {
		name string
		in   NewMovement
		want error
	}{
		{"zero amount", NewMovement{Amount: decimal.Zero, Category: "food", Description: "x", Type: core.Expense}, core.ErrInvalidAmount},
		{"blank description", NewMovement{Amount: amount("1"), Category: "food", Description: "   ", Type: core.Expense}, core.ErrEmptyDescription},
		{"missing category", NewMovement{Amount: amount("1"), Description: "x", Type: core.Income}, core.ErrEmptyCategory},
		{"bad type", NewMovement{Amount: amount("1"), Category: "food", Description: "x", Type: "transfer"}, core.ErrInvalidType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			svc := f.movementService()
			if _, err := svc.Record(context.Background(), tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if len(svc.List(context.Background())) != 0 || len(f.publisher.kinds()) != 0 {
				t.Fatal("rejected movement must not be stored or published")
			}
		})
	}
}

func TestMovementServicePublishFailureDoesNotFail(t *testing.T) {
	f := newFixture()
	f.publisher.err = errors.New("broker down")
	svc := f.movementService()

	if _, err := svc.Record(context.Background(), NewMovement{Amount: amount("5"), Category: "food", Description: "Tea", Type: core.Expense}); err != nil {
		t.Fatalf("record should succeed without broker: %v", err)
	}
	if len(svc.List(context.Background())) != 1 {
		t.Fatal("movement should be stored")
	}
	if f.metrics.EventsPublished(metrics.OutcomeFailure) != 1 {
		t.Fatal("failed publish should be counted")
	}
}

func TestMovementServiceWithoutPublisher(t *testing.T) {
	f := newFixture()
	svc := NewMovementService(f.movements, nil, nil)
	if _, err := svc.Record(context.Background(), NewMovement{Amount: amount("5"), Category: "food", Description: "Tea", Type: core.Expense}); err != nil {
		t.Fatalf("record: %v", err)
	}
}

func TestMovementServiceDeleteAndClear(t *testing.T) {
	f := newFixture()
	svc := f.movementService()
	ctx := context.Background()

	svc.Record(ctx, NewMovement{Amount: amount("5"), Category: "food", Description: "Tea", Type: core.Expense})
	svc.Record(ctx, NewMovement{Amount: amount("7"), Category: "food", Description: "Cake", Type: core.Expense})

	if err := svc.Delete(ctx, "nope"); !errors.Is(err, ErrMovementNotFound) {
		t.Fatalf("expected ErrMovementNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, "m-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if list := svc.List(ctx); len(list) != 1 || list[0].ID != "m-2" {
		t.Fatalf("unexpected list %+v", list)
	}
	if err := svc.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(svc.List(ctx)) != 0 {
		t.Fatal("expected empty list after clear")
	}

	want := []amqp.EventKind{amqp.EventCreated, amqp.EventCreated, amqp.EventDeleted, amqp.EventCleared}
	got := f.publisher.kinds()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
}

func TestBudgetServiceStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := NewBudgetService(f.settings, f.movements)

	limit := amount("1000")
	if _, err := svc.UpdateSettings(ctx, budget.SettingsPatch{MonthlyLimit: &limit}); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	f.movements.Add(ctx, core.Movement{ID: "a", Amount: amount("500"), Type: core.Expense, Category: "food", Description: "x", Date: "2025-03-02T10:00:00.000Z"})
	f.movements.Add(ctx, core.Movement{ID: "b", Amount: amount("300"), Type: core.Expense, Category: "food", Description: "x", Date: "2025-03-10T10:00:00.000Z"})
	f.movements.Add(ctx, core.Movement{ID: "c", Amount: amount("999"), Type: core.Expense, Category: "food", Description: "x", Date: "2025-02-10T10:00:00.000Z"})
	f.movements.Add(ctx, core.Movement{ID: "d", Amount: amount("999"), Type: core.Income, Category: "salary", Description: "x", Date: "2025-03-01T10:00:00.000Z"})

	status := svc.Status(ctx, fixedNow)
	if !status.MonthlyExpenses.Equal(amount("800")) {
		t.Fatalf("expected 800 spent this month, got %s", status.MonthlyExpenses)
	}
	if !status.Stats.IsNearLimit || status.Stats.UsedPercent != 0.8 {
		t.Fatalf("expected near-limit at 80%%, got %+v", status.Stats)
	}
	if status.Stats.DaysLeft != 19 || !status.Stats.Remaining.Equal(amount("200")) {
		t.Fatalf("unexpected stats %+v", status.Stats)
	}
}

func TestBudgetServiceUpdates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := NewBudgetService(f.settings, f.movements)

	threshold := 0.5
	if _, err := svc.UpdateSettings(ctx, budget.SettingsPatch{AlertThreshold: &threshold}); err != nil {
		t.Fatalf("update: %v", err)
	}
	off := false
	got, err := svc.UpdateReminders(ctx, budget.RemindersPatch{RemindWeeklyReview: &off})
	if err != nil {
		t.Fatalf("update reminders: %v", err)
	}
	if got.AlertThreshold != 0.5 || got.Reminders.RemindWeeklyReview || !got.Reminders.RemindDaily {
		t.Fatalf("unexpected settings %+v", got)
	}

	stored := svc.Settings(ctx)
	if stored.AlertThreshold != 0.5 || stored.Reminders.RemindWeeklyReview {
		t.Fatalf("updates not persisted: %+v", stored)
	}

	sunday := time.Date(2025, 3, 16, 9, 0, 0, 0, time.UTC)
	for _, r := range svc.DueReminders(ctx, sunday) {
		if r.Kind == budget.ReminderWeekly {
			t.Fatal("weekly review was switched off")
		}
	}
}

func TestBudgetServiceSaveFailure(t *testing.T) {
	f := newFixture()
	svc := NewBudgetService(f.settings, f.movements)
	f.store.Close()

	limit := amount("10")
	if _, err := svc.UpdateSettings(context.Background(), budget.SettingsPatch{MonthlyLimit: &limit}); !errors.Is(err, storage.ErrClosed) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestGoalService(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := NewGoalService(f.goals)
	svc.now = func() time.Time { return fixedNow }
	svc.newID = func() string { return "g-1" }

	if _, err := svc.Add(ctx, NewGoal{Title: " ", TargetAmount: amount("100")}); !errors.Is(err, core.ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}

	g, err := svc.Add(ctx, NewGoal{Title: "Trip", TargetAmount: amount("100"), Icon: "✈️"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if g.ID != "g-1" || g.CreatedAt != "2025-03-12T15:00:00.000Z" || g.Completed {
		t.Fatalf("unexpected goal %+v", g)
	}

	title := "Big trip"
	target := amount("150")
	if g, err = svc.Update(ctx, "g-1", core.GoalPatch{Title: &title, TargetAmount: &target}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if g.Title != "Big trip" || !g.TargetAmount.Equal(target) || g.Icon != "✈️" {
		t.Fatalf("unexpected update %+v", g)
	}

	if g, err = svc.Contribute(ctx, "g-1", amount("100")); err != nil || g.Completed {
		t.Fatalf("expected partial progress, got %+v err=%v", g, err)
	}
	if g, err = svc.Contribute(ctx, "g-1", amount("50")); err != nil || !g.Completed {
		t.Fatalf("expected completed goal, got %+v err=%v", g, err)
	}

	if _, err := svc.Contribute(ctx, "g-1", amount("-1")); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := svc.Contribute(ctx, "missing", amount("1")); !errors.Is(err, core.ErrGoalNotFound) {
		t.Fatalf("expected ErrGoalNotFound, got %v", err)
	}
	if _, err := svc.Update(ctx, "missing", core.GoalPatch{}); !errors.Is(err, core.ErrGoalNotFound) {
		t.Fatalf("expected ErrGoalNotFound, got %v", err)
	}

	if stored := svc.List(ctx); len(stored) != 1 || !stored[0].CurrentAmount.Equal(amount("150")) {
		t.Fatalf("unexpected stored goals %+v", stored)
	}

	if err := svc.Delete(ctx, "g-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, "g-1"); !errors.Is(err, core.ErrGoalNotFound) {
		t.Fatalf("expected ErrGoalNotFound on second delete, got %v", err)
	}
}

func TestGoalServiceUpdateRejectsInvalidTarget(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := NewGoalService(f.goals)
	g, _ := svc.Add(ctx, NewGoal{Title: "Car", TargetAmount: amount("1000")})

	zero := decimal.Zero
	if _, err := svc.Update(ctx, g.ID, core.GoalPatch{TargetAmount: &zero}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if stored := svc.List(ctx); !stored[0].TargetAmount.Equal(amount("1000")) {
		t.Fatalf("invalid update must not be stored, got %+v", stored[0])
	}
}

func TestGoalServiceKeepsUnreadableGoals(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.store.Set(ctx, storage.KeyGoals, []byte(`[{"id":`))
	svc := NewGoalService(f.goals)

	if _, err := svc.Add(ctx, NewGoal{Title: "Car", TargetAmount: amount("1000")}); err == nil {
		t.Fatal("expected add to fail over an unreadable goal list")
	}
	if err := svc.Delete(ctx, "g-1"); err == nil || errors.Is(err, core.ErrGoalNotFound) {
		t.Fatalf("expected a load error from delete, got %v", err)
	}
	if raw, _, _ := f.store.Get(ctx, storage.KeyGoals); string(raw) != `[{"id":` {
		t.Fatalf("goal document was overwritten: %q", raw)
	}
}

func TestMovementServiceRecordKeepsUnreadableHistory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.store.Set(ctx, storage.KeyMovements, []byte(`[{"id":`))

	_, err := f.movementService().Record(ctx, NewMovement{Amount: amount("10"), Category: "food", Description: "lunch", Type: core.Expense})
	if err == nil {
		t.Fatal("expected record to fail over an unreadable movement list")
	}
	if len(f.publisher.events) != 0 {
		t.Fatalf("nothing should be published, got %d events", len(f.publisher.events))
	}
}

func TestAuthService(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := NewAuthService(f.sessions, Credentials{Username: "demo@gastosapp.dev", Password: "finanzas123", Hint: "demo"})

	tests := []struct {
		name     string
		user     string
		password string
		wantErr  bool
	}{
		{"wrong password", "demo@gastosapp.dev", "nope", true},
		{"wrong user", "other@gastosapp.dev", "finanzas123", true},
		{"password is not trimmed", "demo@gastosapp.dev", " finanzas123", true},
		{"username is trimmed", "  demo@gastosapp.dev ", "finanzas123", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Login(ctx, tt.user, tt.password)
			if tt.wantErr != (err != nil) {
				t.Fatalf("Login error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}

	if !svc.IsAuthenticated(ctx) {
		t.Fatal("expected authenticated session")
	}
	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if svc.IsAuthenticated(ctx) {
		t.Fatal("expected session cleared")
	}
	if svc.Hint() != "demo" {
		t.Fatalf("unexpected hint %q", svc.Hint())
	}
}

func TestAnalyticsServiceReport(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i, c := range []string{"food", "transport", "health", "bills", "shopping", "education", "entertainment"} {
		f.movements.Add(ctx, core.Movement{
			ID: c, Amount: decimal.NewFromInt(int64(10 * (i + 1))), Type: core.Expense,
			Category: c, Description: c, Date: "2025-03-11T10:00:00.000Z",
		})
	}
	f.movements.Add(ctx, core.Movement{ID: "pay", Amount: amount("1000"), Type: core.Income, Category: "salary", Description: "pay", Date: "2025-03-01T10:00:00.000Z"})

	report := NewAnalyticsService(f.movements, f.settings, f.goals).Report(ctx, fixedNow)
	if !report.TotalExpenses.Equal(amount("280")) || !report.Balance.Equal(amount("720")) {
		t.Fatalf("unexpected totals %+v", report.Data)
	}
	if len(report.TopExpenseCategories) != 6 || report.TopExpenseCategories[0].Category.ID != "entertainment" {
		t.Fatalf("expected top 6 with entertainment first, got %+v", report.TopExpenseCategories)
	}
	if len(report.IncomeCategories) != 1 || report.IncomeCategories[0].Percent != 1 {
		t.Fatalf("unexpected income ranking %+v", report.IncomeCategories)
	}
	if !report.AverageExpense.Equal(amount("40")) || report.MovementCount != 8 {
		t.Fatalf("unexpected average %s / count %d", report.AverageExpense, report.MovementCount)
	}
	if len(report.DailyExpenses) != 7 || !report.DailyExpenses[5].Amount.Equal(amount("280")) {
		t.Fatalf("unexpected daily series %+v", report.DailyExpenses)
	}
}

func TestAnalyticsServiceDashboard(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	movements := f.movementService()
	for i := 0; i < 7; i++ {
		movements.Record(ctx, NewMovement{Amount: amount("10"), Category: "food", Description: "Snack", Type: core.Expense})
	}
	f.goals.Save(ctx, []core.SavingsGoal{
		{ID: "a", Title: "A", TargetAmount: amount("10"), Completed: true},
		{ID: "b", Title: "B", TargetAmount: amount("10")},
		{ID: "c", Title: "C", TargetAmount: amount("10")},
	})

	d, err := NewAnalyticsService(f.movements, f.settings, f.goals).Dashboard(ctx, fixedNow)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if len(d.Recent) != RecentMovements || d.Recent[0].ID != "m-7" {
		t.Fatalf("expected 5 newest movements, got %+v", d.Recent)
	}
	if !d.TotalExpenses.Equal(amount("70")) || !d.MonthlyExpenses.Equal(amount("70")) || !d.Balance.Equal(amount("-70")) {
		t.Fatalf("unexpected totals %+v", d)
	}
	if !d.Budget.Limit.Equal(budget.DefaultMonthlyLimit) || d.Budget.IsNearLimit {
		t.Fatalf("unexpected budget %+v", d.Budget)
	}
	if d.ActiveGoals != 2 || d.CompletedGoals != 1 {
		t.Fatalf("unexpected goal counts %d/%d", d.ActiveGoals, d.CompletedGoals)
	}
}

func TestAnalyticsServiceDashboardCancelled(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewAnalyticsService(f.movements, f.settings, f.goals).Dashboard(ctx, fixedNow); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
