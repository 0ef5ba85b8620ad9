package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// SavingsGoal tracks progress toward a target amount.
type SavingsGoal struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	TargetAmount  decimal.Decimal `json:"targetAmount"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	Deadline      string          `json:"deadline"`
	Icon          string          `json:"icon"`
	Color         string          `json:"color"`
	CreatedAt     string          `json:"createdAt"`
	Completed     bool            `json:"completed"`
}

// GoalPatch carries the user-editable fields of a goal; nil means unchanged.
type GoalPatch struct {
	Title        *string          `json:"title,omitempty"`
	TargetAmount *decimal.Decimal `json:"targetAmount,omitempty"`
	Deadline     *string          `json:"deadline,omitempty"`
	Icon         *string          `json:"icon,omitempty"`
	Color        *string          `json:"color,omitempty"`
}

var (
	ErrEmptyTitle   = errors.New("empty goal title")
	ErrGoalNotFound = errors.New("goal not found")
)

func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.Title) == "" {
		return ErrEmptyTitle
	}
	if !g.TargetAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if g.CurrentAmount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// Apply returns g with the non-nil patch fields copied over.
func (g SavingsGoal) Apply(p GoalPatch) SavingsGoal {
	if p.Title != nil {
		g.Title = *p.Title
	}
	if p.TargetAmount != nil {
		g.TargetAmount = *p.TargetAmount
	}
	if p.Deadline != nil {
		g.Deadline = *p.Deadline
	}
	if p.Icon != nil {
		g.Icon = *p.Icon
	}
	if p.Color != nil {
		g.Color = *p.Color
	}
	return g
}

// Contribute adds amount to the goal and marks it completed once the target
// is reached. A completed goal stays completed.
func (g SavingsGoal) Contribute(amount decimal.Decimal) SavingsGoal {
	g.CurrentAmount = g.CurrentAmount.Add(amount)
	if g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount) {
		g.Completed = true
	}
	return g
}

// Progress is current/target capped at 1; a zero target reports 0.
func (g SavingsGoal) Progress() float64 {
	if !g.TargetAmount.IsPositive() {
		return 0
	}
	p, _ := g.CurrentAmount.Div(g.TargetAmount).Float64()
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}
