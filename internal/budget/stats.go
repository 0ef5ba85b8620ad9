package budget

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

// Stats is the derived spend status for one month.
type Stats struct {
	Limit             decimal.Decimal `json:"limit"`
	UsedPercent       float64         `json:"usedPercent"`
	Remaining         decimal.Decimal `json:"remaining"`
	IsNearLimit       bool            `json:"isNearLimit"`
	DaysLeft          int             `json:"daysLeft"`
	RecommendedPerDay decimal.Decimal `json:"recommendedPerDay"`
}

// MonthlyExpenses sums expenses dated in ref's calendar month and year. Dates
// are read in ref's location; ones that do not parse are skipped.
func MonthlyExpenses(movements []core.Movement, ref time.Time) decimal.Decimal {
	total := decimal.Zero
	year, month := ref.Year(), ref.Month()
	for _, m := range movements {
		if !m.IsExpense() {
			continue
		}
		t, ok := m.Time(ref.Location())
		if !ok {
			continue
		}
		t = t.In(ref.Location())
		if t.Year() == year && t.Month() == month {
			total = total.Add(m.Amount)
		}
	}
	return total
}

// ComputeStats derives the budget status. The progress value is capped at 1
// while the alert compares the uncapped ratio, so the alert keeps firing past
// 100%. A zero limit reports 0 used and never alerts for positive thresholds.
func ComputeStats(monthlyExpenses decimal.Decimal, settings Settings, ref time.Time) Stats {
	limit := decimal.Max(settings.MonthlyLimit, decimal.Zero)

	ratio := decimal.Zero
	if !limit.IsZero() {
		ratio = monthlyExpenses.Div(limit)
	}

	used, _ := decimal.Min(ratio, decimal.NewFromInt(1)).Float64()
	remaining := decimal.Max(limit.Sub(monthlyExpenses), decimal.Zero)
	nearLimit := reachesThreshold(ratio, settings.AlertThreshold)

	// Day 0 of next month is the last day of this one.
	lastDay := time.Date(ref.Year(), ref.Month()+1, 0, 0, 0, 0, 0, ref.Location()).Day()
	daysLeft := lastDay - ref.Day()
	if daysLeft < 0 {
		daysLeft = 0
	}

	perDay := remaining
	if daysLeft > 0 {
		perDay = remaining.Div(decimal.NewFromInt(int64(daysLeft)))
	}

	return Stats{
		Limit:             limit,
		UsedPercent:       used,
		Remaining:         remaining,
		IsNearLimit:       nearLimit,
		DaysLeft:          daysLeft,
		RecommendedPerDay: perDay,
	}
}

// reachesThreshold compares inclusively. NaN never alerts; infinities compare
// the way float ordering says.
func reachesThreshold(ratio decimal.Decimal, threshold float64) bool {
	switch {
	case math.IsNaN(threshold), math.IsInf(threshold, 1):
		return false
	case math.IsInf(threshold, -1):
		return true
	}
	return ratio.GreaterThanOrEqual(decimal.NewFromFloat(threshold))
}
