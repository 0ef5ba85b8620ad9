package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/storage"
)

// NewGoal is the user-supplied part of a savings goal.
type NewGoal struct {
	Title         string
	TargetAmount  decimal.Decimal
	CurrentAmount decimal.Decimal
	Deadline      string
	Icon          string
	Color         string
}

// GoalService serialises its read-modify-write cycles over the goal list.
type GoalService struct {
	repo *storage.GoalRepository
	mu   sync.Mutex

	now   func() time.Time
	newID func() string
}

func NewGoalService(repo *storage.GoalRepository) *GoalService {
	return &GoalService{repo: repo, now: time.Now, newID: uuid.NewString}
}

func (s *GoalService) List(ctx context.Context) []core.SavingsGoal {
	return s.repo.List(ctx)
}

// Add appends a new, not yet completed goal.
func (s *GoalService) Add(ctx context.Context, in NewGoal) (core.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := core.SavingsGoal{
		ID:            s.newID(),
		Title:         strings.TrimSpace(in.Title),
		TargetAmount:  in.TargetAmount,
		CurrentAmount: in.CurrentAmount,
		Deadline:      in.Deadline,
		Icon:          in.Icon,
		Color:         in.Color,
		CreatedAt:     core.FormatTimestamp(s.now()),
	}
	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}

	goals, err := s.repo.Load(ctx)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("load goals: %w", err)
	}
	goals = append(goals, g)
	if err := s.repo.Save(ctx, goals); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("save goals: %w", err)
	}

	slog.InfoContext(ctx, "Savings goal created",
		applog.FieldComponent, applog.ComponentGoal,
		applog.FieldOperation, applog.OpCreate,
		applog.FieldGoalID, g.ID)
	return g, nil
}

func (s *GoalService) Update(ctx context.Context, id string, p core.GoalPatch) (core.SavingsGoal, error) {
	return s.modify(ctx, id, applog.OpUpdate, func(g core.SavingsGoal) (core.SavingsGoal, error) {
		next := g.Apply(p)
		next.Title = strings.TrimSpace(next.Title)
		if err := next.Validate(); err != nil {
			return g, err
		}
		return next, nil
	})
}

// Contribute adds a positive amount to the goal's savings.
func (s *GoalService) Contribute(ctx context.Context, id string, amount decimal.Decimal) (core.SavingsGoal, error) {
	if !amount.IsPositive() {
		return core.SavingsGoal{}, core.ErrInvalidAmount
	}
	return s.modify(ctx, id, applog.OpContribute, func(g core.SavingsGoal) (core.SavingsGoal, error) {
		return g.Contribute(amount), nil
	})
}

func (s *GoalService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	goals, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load goals: %w", err)
	}
	kept := make([]core.SavingsGoal, 0, len(goals))
	for _, g := range goals {
		if g.ID != id {
			kept = append(kept, g)
		}
	}
	if len(kept) == len(goals) {
		return core.ErrGoalNotFound
	}
	if err := s.repo.Save(ctx, kept); err != nil {
		return fmt.Errorf("save goals: %w", err)
	}

	slog.InfoContext(ctx, "Savings goal deleted",
		applog.FieldComponent, applog.ComponentGoal,
		applog.FieldOperation, applog.OpDelete,
		applog.FieldGoalID, id)
	return nil
}

func (s *GoalService) modify(ctx context.Context, id, op string, f func(core.SavingsGoal) (core.SavingsGoal, error)) (core.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	goals, err := s.repo.Load(ctx)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("load goals: %w", err)
	}
	for i, g := range goals {
		if g.ID != id {
			continue
		}
		next, err := f(g)
		if err != nil {
			return core.SavingsGoal{}, err
		}
		goals[i] = next
		if err := s.repo.Save(ctx, goals); err != nil {
			return core.SavingsGoal{}, fmt.Errorf("save goals: %w", err)
		}
		slog.InfoContext(ctx, "Savings goal updated",
			applog.FieldComponent, applog.ComponentGoal,
			applog.FieldOperation, op,
			applog.FieldGoalID, id,
			"completed", next.Completed)
		return next, nil
	}
	return core.SavingsGoal{}, core.ErrGoalNotFound
}
