// Package analytics turns a snapshot of movements into aggregate totals,
// per-category sums and a short daily expense series.
//
// Every function here is pure: results are recomputed from the full input on
// each call and the input slice is never modified.
package analytics

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

// DefaultWindowDays is the length of the daily expense series.
const DefaultWindowDays = 7

type (
	// DailyAmount is one bucket of the daily expense series. Label is the short
	// weekday name; Date is the bucket's YYYY-MM-DD key.
	DailyAmount struct {
		Label  string          `json:"label"`
		Date   string          `json:"date"`
		Amount decimal.Decimal `json:"amount"`
	}

	Data struct {
		TotalIncome        decimal.Decimal            `json:"totalIncome"`
		TotalExpenses      decimal.Decimal            `json:"totalExpenses"`
		Balance            decimal.Decimal            `json:"balance"`
		ExpensesByCategory map[string]decimal.Decimal `json:"expensesByCategory"`
		IncomeByCategory   map[string]decimal.Decimal `json:"incomeByCategory"`
		DailyExpenses      []DailyAmount              `json:"dailyExpenses"`
	}
)

// Compute aggregates movements relative to the current local time.
func Compute(movements []core.Movement) Data {
	return ComputeAt(movements, time.Now())
}

// ComputeAt aggregates movements with the daily window ending on now's date.
func ComputeAt(movements []core.Movement, now time.Time) Data {
	d := Data{
		TotalIncome:        decimal.Zero,
		TotalExpenses:      decimal.Zero,
		ExpensesByCategory: make(map[string]decimal.Decimal),
		IncomeByCategory:   make(map[string]decimal.Decimal),
	}

	for _, m := range movements {
		switch m.Type {
		case core.Expense:
			d.TotalExpenses = d.TotalExpenses.Add(m.Amount)
			d.ExpensesByCategory[m.Category] = d.ExpensesByCategory[m.Category].Add(m.Amount)
		case core.Income:
			d.TotalIncome = d.TotalIncome.Add(m.Amount)
			d.IncomeByCategory[m.Category] = d.IncomeByCategory[m.Category].Add(m.Amount)
		}
	}

	d.Balance = d.TotalIncome.Sub(d.TotalExpenses)
	d.DailyExpenses = DailyExpenses(movements, DefaultWindowDays, now)
	return d
}

// DailyExpenses returns exactly windowDays buckets, oldest first, the last one
// covering now.
//
// Bucket i is now minus i days. Its key is that instant's UTC date, matching
// how timestamps are stored, and its label is the weekday in now's location.
// A movement lands in a bucket when its stored timestamp starts with the key,
// so entries at different times of the same day are merged. Timestamps that
// do not parse are left out of every bucket.
func DailyExpenses(movements []core.Movement, windowDays int, now time.Time) []DailyAmount {
	if windowDays <= 0 {
		return []DailyAmount{}
	}

	// Filter once; the day loop below stays O(n*windowDays) on expenses only.
	expenses := make([]core.Movement, 0, len(movements))
	for _, m := range movements {
		if !m.IsExpense() {
			continue
		}
		if _, ok := m.Time(now.Location()); !ok {
			continue
		}
		expenses = append(expenses, m)
	}

	out := make([]DailyAmount, 0, windowDays)
	for i := windowDays - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		key := day.UTC().Format("2006-01-02")

		amount := decimal.Zero
		for _, m := range expenses {
			if strings.HasPrefix(strings.TrimSpace(m.Date), key) {
				amount = amount.Add(m.Amount)
			}
		}

		out = append(out, DailyAmount{
			Label:  WeekdayLabel(day.Weekday()),
			Date:   key,
			Amount: amount,
		})
	}
	return out
}

// WeekdayLabel is the three-letter English abbreviation for d.
func WeekdayLabel(d time.Weekday) string {
	return d.String()[:3]
}
