package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

// ExpenseChartSize is how many categories the expense breakdown shows.
const ExpenseChartSize = 6

// CategoryShare is one row of a category breakdown, resolved against the
// catalog for display.
type CategoryShare struct {
	Category core.Category   `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Percent  float64         `json:"percent"`
}

// RankCategories sorts a by-category map by amount, largest first, ties
// broken by id. Percent is the share of total in [0,100]; a non-positive total
// yields 0 for every row. limit <= 0 keeps every row.
func RankCategories(byCategory map[string]decimal.Decimal, total decimal.Decimal, limit int) []CategoryShare {
	out := make([]CategoryShare, 0, len(byCategory))
	for id, amount := range byCategory {
		share := CategoryShare{
			Category: core.DisplayCategory(id),
			Amount:   amount,
		}
		if total.IsPositive() {
			share.Percent, _ = amount.Div(total).Mul(decimal.NewFromInt(100)).Float64()
		}
		out = append(out, share)
	}

	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category.ID < out[j].Category.ID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// AverageExpense is total expenses divided by the number of expense
// movements, or zero when there are none.
func AverageExpense(movements []core.Movement) decimal.Decimal {
	total := decimal.Zero
	count := int64(0)
	for _, m := range movements {
		if m.IsExpense() {
			total = total.Add(m.Amount)
			count++
		}
	}
	if count == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(count))
}
