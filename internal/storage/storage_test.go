package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"gastos/internal/budget"
	"gastos/internal/core"
)

// stores runs f against every Store implementation.
func stores(t *testing.T, f func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		s := NewMemoryStore()
		defer s.Close()
		f(t, s)
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "gastos.db"))
		if err != nil {
			t.Fatalf("open sqlite store: %v", err)
		}
		defer s.Close()
		f(t, s)
	})
}

func TestStoreRoundTrip(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
			t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
		}
		if err := s.Set(ctx, "k", []byte("one")); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := s.Set(ctx, "k", []byte("two")); err != nil {
			t.Fatalf("overwrite: %v", err)
		}
		v, ok, err := s.Get(ctx, "k")
		if err != nil || !ok || string(v) != "two" {
			t.Fatalf("expected two, got %q ok=%v err=%v", v, ok, err)
		}
		if err := s.Delete(ctx, "k"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := s.Delete(ctx, "k"); err != nil {
			t.Fatalf("delete of missing key should succeed: %v", err)
		}
		if _, ok, _ := s.Get(ctx, "k"); ok {
			t.Fatal("key still present after delete")
		}
	})
}

func TestSQLiteStoreReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gastos.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Set(ctx, KeyAuth, []byte("true")); err != nil {
		t.Fatalf("set: %v", err)
	}
	s.Close()

	s, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if v, ok, err := s.Get(ctx, KeyAuth); err != nil || !ok || string(v) != "true" {
		t.Fatalf("expected persisted value, got %q ok=%v err=%v", v, ok, err)
	}
}

func TestMemoryStoreClosed(t *testing.T) {
	s := NewMemoryStore()
	s.Close()
	if err := s.Set(context.Background(), "k", nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func movement(id string) core.Movement {
	return core.Movement{
		ID:          id,
		Amount:      decimal.RequireFromString("12.50"),
		Category:    "food",
		Description: "Lunch " + id,
		Date:        "2025-03-12T12:00:00.000Z",
		Type:        core.Expense,
	}
}

func TestMovementRepository(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		repo := NewMovementRepository(s)

		if got := repo.List(ctx); got == nil || len(got) != 0 {
			t.Fatalf("expected empty non-nil list, got %#v", got)
		}

		if _, err := repo.Add(ctx, movement("a")); err != nil {
			t.Fatalf("add a: %v", err)
		}
		list, err := repo.Add(ctx, movement("b"))
		if err != nil {
			t.Fatalf("add b: %v", err)
		}
		if len(list) != 2 || list[0].ID != "b" || list[1].ID != "a" {
			t.Fatalf("expected newest first, got %+v", list)
		}

		got := repo.List(ctx)
		if len(got) != 2 || !got[1].Amount.Equal(decimal.RequireFromString("12.5")) {
			t.Fatalf("unexpected stored list %+v", got)
		}

		if found, err := repo.Delete(ctx, "zzz"); err != nil || found {
			t.Fatalf("expected unknown id not found, got found=%v err=%v", found, err)
		}
		if found, err := repo.Delete(ctx, "a"); err != nil || !found {
			t.Fatalf("expected a deleted, got found=%v err=%v", found, err)
		}
		if got := repo.List(ctx); len(got) != 1 || got[0].ID != "b" {
			t.Fatalf("unexpected list after delete %+v", got)
		}

		if err := repo.Clear(ctx); err != nil {
			t.Fatalf("clear: %v", err)
		}
		if got := repo.List(ctx); len(got) != 0 {
			t.Fatalf("expected empty list after clear, got %+v", got)
		}
	})
}

func TestMovementRepositoryMalformedDocument(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Set(ctx, KeyMovements, []byte(`{not json`))

	repo := NewMovementRepository(s)
	if got := repo.List(ctx); len(got) != 0 {
		t.Fatalf("expected empty list for malformed document, got %+v", got)
	}
	if _, err := repo.Add(ctx, movement("x")); err == nil {
		t.Fatal("expected add over malformed document to fail")
	}
	if raw, _, _ := s.Get(ctx, KeyMovements); string(raw) != `{not json` {
		t.Fatalf("malformed document was overwritten: %q", raw)
	}

	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := repo.Add(ctx, movement("x")); err != nil {
		t.Fatalf("add after clear: %v", err)
	}
	if got := repo.List(ctx); len(got) != 1 {
		t.Fatalf("expected the new movement only, got %+v", got)
	}
}

// flakyStore fails the next getFailures reads.
type flakyStore struct {
	*MemoryStore
	getFailures int
}

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.getFailures > 0 {
		s.getFailures--
		return nil, false, errors.New("database is locked")
	}
	return s.MemoryStore.Get(ctx, key)
}

func TestMovementRepositoryWritesKeepHistoryOnReadError(t *testing.T) {
	ctx := context.Background()
	s := &flakyStore{MemoryStore: NewMemoryStore()}
	repo := NewMovementRepository(s)
	for _, id := range []string{"a", "b", "c"} {
		if _, err := repo.Add(ctx, movement(id)); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}

	s.getFailures = 1
	if _, err := repo.Add(ctx, movement("d")); err == nil {
		t.Fatal("expected add to fail when the list cannot be read")
	}
	s.getFailures = 1
	if _, err := repo.Delete(ctx, "a"); err == nil {
		t.Fatal("expected delete to fail when the list cannot be read")
	}

	if got := repo.List(ctx); len(got) != 3 {
		t.Fatalf("expected 3 stored movements, got %+v", got)
	}
}

func TestSettingsRepositoryDefaults(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		doc   string
		check func(t *testing.T, s budget.Settings)
	}{
		{
			name: "missing document",
			check: func(t *testing.T, s budget.Settings) {
				if !s.MonthlyLimit.Equal(budget.DefaultMonthlyLimit) || s.AlertThreshold != budget.DefaultAlertThreshold {
					t.Fatalf("expected defaults, got %+v", s)
				}
			},
		},
		{
			name: "malformed document",
			doc:  `[1,2`,
			check: func(t *testing.T, s budget.Settings) {
				if !s.MonthlyLimit.Equal(budget.DefaultMonthlyLimit) {
					t.Fatalf("expected defaults, got %+v", s)
				}
			},
		},
		{
			name: "partial document",
			doc:  `{"monthlyLimit": 2000, "reminders": {"remindDaily": false}}`,
			check: func(t *testing.T, s budget.Settings) {
				if !s.MonthlyLimit.Equal(decimal.NewFromInt(2000)) {
					t.Fatalf("expected stored limit, got %s", s.MonthlyLimit)
				}
				if s.AlertThreshold != budget.DefaultAlertThreshold {
					t.Fatalf("expected default threshold, got %v", s.AlertThreshold)
				}
				if s.Reminders.RemindDaily || !s.Reminders.RemindWeeklyReview || len(s.Reminders.CustomMessages) != 2 {
					t.Fatalf("expected per-field reminder defaults, got %+v", s.Reminders)
				}
			},
		},
		{
			name: "explicit zero limit is kept",
			doc:  `{"monthlyLimit": "0", "alertThreshold": 0.5}`,
			check: func(t *testing.T, s budget.Settings) {
				if !s.MonthlyLimit.IsZero() || s.AlertThreshold != 0.5 {
					t.Fatalf("expected stored zero limit, got %+v", s)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMemoryStore()
			if tt.doc != "" {
				s.Set(ctx, KeyBudgetSettings, []byte(tt.doc))
			}
			tt.check(t, NewSettingsRepository(s).Load(ctx))
		})
	}
}

func TestSettingsRepositorySaveLoad(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		repo := NewSettingsRepository(s)

		want := budget.DefaultSettings()
		want.MonthlyLimit = decimal.RequireFromString("1234.56")
		want.AlertThreshold = 0.9
		want.Reminders.CustomMessages = []string{}

		if err := repo.Save(ctx, want); err != nil {
			t.Fatalf("save: %v", err)
		}
		got := repo.Load(ctx)
		if !got.MonthlyLimit.Equal(want.MonthlyLimit) || got.AlertThreshold != 0.9 {
			t.Fatalf("unexpected settings %+v", got)
		}
		if got.Reminders.CustomMessages == nil || len(got.Reminders.CustomMessages) != 0 {
			t.Fatalf("expected an explicitly empty message list, got %#v", got.Reminders.CustomMessages)
		}
	})
}

func TestGoalRepository(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		repo := NewGoalRepository(s)

		if got := repo.List(ctx); got == nil || len(got) != 0 {
			t.Fatalf("expected empty list, got %#v", got)
		}
		goals := []core.SavingsGoal{{
			ID:           "g1",
			Title:        "Bike",
			TargetAmount: decimal.NewFromInt(500),
		}}
		if err := repo.Save(ctx, goals); err != nil {
			t.Fatalf("save: %v", err)
		}
		got := repo.List(ctx)
		if len(got) != 1 || got[0].Title != "Bike" || !got[0].TargetAmount.Equal(decimal.NewFromInt(500)) {
			t.Fatalf("unexpected goals %+v", got)
		}
	})
}

func TestGoalRepositoryLoad(t *testing.T) {
	ctx := context.Background()
	s := &flakyStore{MemoryStore: NewMemoryStore()}
	repo := NewGoalRepository(s)

	goals, err := repo.Load(ctx)
	if err != nil || goals == nil || len(goals) != 0 {
		t.Fatalf("expected empty list for missing document, got %#v err=%v", goals, err)
	}

	s.getFailures = 1
	if _, err := repo.Load(ctx); err == nil {
		t.Fatal("expected read error")
	}

	s.Set(ctx, KeyGoals, []byte(`[{`))
	if _, err := repo.Load(ctx); err == nil {
		t.Fatal("expected decode error")
	}
	if got := repo.List(ctx); len(got) != 0 {
		t.Fatalf("expected List to degrade to empty, got %+v", got)
	}
}

func TestSessionRepository(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		repo := NewSessionRepository(s)

		if repo.IsAuthenticated(ctx) {
			t.Fatal("expected no session initially")
		}
		if err := repo.SetAuthenticated(ctx); err != nil {
			t.Fatalf("set: %v", err)
		}
		if !repo.IsAuthenticated(ctx) {
			t.Fatal("expected session after login")
		}
		if err := repo.Clear(ctx); err != nil {
			t.Fatalf("clear: %v", err)
		}
		if repo.IsAuthenticated(ctx) {
			t.Fatal("expected no session after logout")
		}
	})
}
