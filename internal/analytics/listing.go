package analytics

import (
	"sort"
	"strings"
	"time"

	"gastos/internal/core"
)

// TypeFilter selects movements by type; FilterAll keeps both.
type TypeFilter string

const (
	FilterAll     TypeFilter = "all"
	FilterIncome  TypeFilter = "income"
	FilterExpense TypeFilter = "expense"
)

// ParseTypeFilter maps query values to a filter, defaulting to FilterAll.
func ParseTypeFilter(s string) TypeFilter {
	switch TypeFilter(strings.ToLower(strings.TrimSpace(s))) {
	case FilterIncome:
		return FilterIncome
	case FilterExpense:
		return FilterExpense
	default:
		return FilterAll
	}
}

func (f TypeFilter) matches(m core.Movement) bool {
	return f == FilterAll || f == "" || string(m.Type) == string(f)
}

// FilterMovements keeps movements of the given type whose description or
// category id contains query, case-insensitively. Order is preserved.
func FilterMovements(movements []core.Movement, f TypeFilter, query string) []core.Movement {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]core.Movement, 0, len(movements))
	for _, m := range movements {
		if !f.matches(m) {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(m.Description), q) &&
			!strings.Contains(strings.ToLower(m.Category), q) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// FilterCounts reports how many movements each filter would keep.
type FilterCounts struct {
	All     int `json:"all"`
	Income  int `json:"income"`
	Expense int `json:"expense"`
}

func CountByType(movements []core.Movement) FilterCounts {
	c := FilterCounts{All: len(movements)}
	for _, m := range movements {
		switch m.Type {
		case core.Income:
			c.Income++
		case core.Expense:
			c.Expense++
		}
	}
	return c
}

// Recent returns at most n movements from the head of the list, which the
// repository keeps newest first.
func Recent(movements []core.Movement, n int) []core.Movement {
	if n < 0 {
		n = 0
	}
	if len(movements) < n {
		n = len(movements)
	}
	return append([]core.Movement{}, movements[:n]...)
}

// MonthGroup holds the movements of one calendar month, keyed YYYY-MM.
type MonthGroup struct {
	Month     string          `json:"month"`
	Movements []core.Movement `json:"movements"`
}

// GroupByMonth buckets movements by the calendar month of their timestamp in
// loc, newest month first; order inside a month is preserved. Unparsable
// timestamps go to a trailing group with an empty key.
func GroupByMonth(movements []core.Movement, loc *time.Location) []MonthGroup {
	if loc == nil {
		loc = time.Local
	}
	index := map[string]int{}
	groups := []MonthGroup{}
	for _, m := range movements {
		key := ""
		if t, ok := m.Time(loc); ok {
			key = t.In(loc).Format("2006-01")
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, MonthGroup{Month: key})
		}
		groups[i].Movements = append(groups[i].Movements, m)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Month == "" || groups[j].Month == "" {
			return groups[j].Month == "" && groups[i].Month != ""
		}
		return groups[i].Month > groups[j].Month
	})
	return groups
}
