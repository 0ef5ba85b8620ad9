package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"gastos/internal/budget"
	"gastos/internal/core"
	applog "gastos/internal/log"
)

// MovementRepository stores the movement list as one JSON array, newest
// first. List degrades to an empty list on read failures; Add and Delete
// refuse to write when the current list cannot be read.
type MovementRepository struct {
	store Store
	mu    sync.Mutex
}

func NewMovementRepository(store Store) *MovementRepository {
	return &MovementRepository{store: store}
}

func (r *MovementRepository) List(ctx context.Context) []core.Movement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

// Add prepends m and returns the stored list.
func (r *MovementRepository) Add(ctx context.Context, m core.Movement) ([]core.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.current(ctx)
	if err != nil {
		return nil, fmt.Errorf("add movement: %w", err)
	}
	list := append([]core.Movement{m}, current...)
	if err := saveJSON(ctx, r.store, KeyMovements, list); err != nil {
		return nil, err
	}
	return list, nil
}

// Delete removes the movement with the given id and reports whether it was
// present. Nothing is written when it was not.
func (r *MovementRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.current(ctx)
	if err != nil {
		return false, fmt.Errorf("delete movement: %w", err)
	}
	kept := make([]core.Movement, 0, len(list))
	for _, m := range list {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(list) {
		return false, nil
	}
	if err := saveJSON(ctx, r.store, KeyMovements, kept); err != nil {
		return false, err
	}
	return true, nil
}

func (r *MovementRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.Delete(ctx, KeyMovements); err != nil {
		slog.ErrorContext(ctx, "Failed to clear movements",
			applog.FieldComponent, applog.ComponentStorage,
			applog.FieldError, err)
		return fmt.Errorf("clear movements: %w", err)
	}
	return nil
}

func (r *MovementRepository) load(ctx context.Context) []core.Movement {
	var list []core.Movement
	if !loadJSON(ctx, r.store, KeyMovements, &list) || list == nil {
		return []core.Movement{}
	}
	return list
}

func (r *MovementRepository) current(ctx context.Context) ([]core.Movement, error) {
	var list []core.Movement
	if _, err := readJSON(ctx, r.store, KeyMovements, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SettingsRepository stores the single budget settings record.
type SettingsRepository struct {
	store Store
	mu    sync.Mutex
}

func NewSettingsRepository(store Store) *SettingsRepository {
	return &SettingsRepository{store: store}
}

// storedSettings mirrors budget.Settings with every field optional so missing
// fields can fall back one by one.
type storedSettings struct {
	MonthlyLimit   *decimal.Decimal `json:"monthlyLimit"`
	AlertThreshold *float64         `json:"alertThreshold"`
	Reminders      *struct {
		RemindDaily        *bool    `json:"remindDaily"`
		RemindWeeklyReview *bool    `json:"remindWeeklyReview"`
		CustomMessages     []string `json:"customMessages"`
	} `json:"reminders"`
}

// Load returns the persisted settings, filling each absent field from the
// defaults. A missing or malformed document yields the defaults.
func (r *SettingsRepository) Load(ctx context.Context) budget.Settings {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := budget.DefaultSettings()
	var stored storedSettings
	if !loadJSON(ctx, r.store, KeyBudgetSettings, &stored) {
		return s
	}
	if stored.MonthlyLimit != nil {
		s.MonthlyLimit = *stored.MonthlyLimit
	}
	if stored.AlertThreshold != nil {
		s.AlertThreshold = *stored.AlertThreshold
	}
	if rem := stored.Reminders; rem != nil {
		if rem.RemindDaily != nil {
			s.Reminders.RemindDaily = *rem.RemindDaily
		}
		if rem.RemindWeeklyReview != nil {
			s.Reminders.RemindWeeklyReview = *rem.RemindWeeklyReview
		}
		if rem.CustomMessages != nil {
			s.Reminders.CustomMessages = rem.CustomMessages
		}
	}
	return s
}

func (r *SettingsRepository) Save(ctx context.Context, s budget.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return saveJSON(ctx, r.store, KeyBudgetSettings, s)
}

// GoalRepository stores savings goals as one JSON array.
type GoalRepository struct {
	store Store
	mu    sync.Mutex
}

func NewGoalRepository(store Store) *GoalRepository {
	return &GoalRepository{store: store}
}

func (r *GoalRepository) List(ctx context.Context) []core.SavingsGoal {
	r.mu.Lock()
	defer r.mu.Unlock()
	var goals []core.SavingsGoal
	if !loadJSON(ctx, r.store, KeyGoals, &goals) || goals == nil {
		return []core.SavingsGoal{}
	}
	return goals
}

// Load is List for read-modify-write callers: a missing document is an empty
// list, but read and decode failures are returned.
func (r *GoalRepository) Load(ctx context.Context) ([]core.SavingsGoal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var goals []core.SavingsGoal
	if _, err := readJSON(ctx, r.store, KeyGoals, &goals); err != nil {
		return nil, err
	}
	if goals == nil {
		goals = []core.SavingsGoal{}
	}
	return goals, nil
}

func (r *GoalRepository) Save(ctx context.Context, goals []core.SavingsGoal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if goals == nil {
		goals = []core.SavingsGoal{}
	}
	return saveJSON(ctx, r.store, KeyGoals, goals)
}

// SessionRepository keeps the single "logged in" flag.
type SessionRepository struct {
	store Store
}

func NewSessionRepository(store Store) *SessionRepository {
	return &SessionRepository{store: store}
}

func (r *SessionRepository) SetAuthenticated(ctx context.Context) error {
	if err := r.store.Set(ctx, KeyAuth, []byte("true")); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// IsAuthenticated is false on any read error.
func (r *SessionRepository) IsAuthenticated(ctx context.Context) bool {
	v, ok, err := r.store.Get(ctx, KeyAuth)
	if err != nil {
		slog.WarnContext(ctx, "Failed to read session flag",
			applog.FieldComponent, applog.ComponentStorage,
			applog.FieldError, err)
		return false
	}
	return ok && string(v) == "true"
}

func (r *SessionRepository) Clear(ctx context.Context) error {
	if err := r.store.Delete(ctx, KeyAuth); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// loadJSON decodes key into dst and reports whether a usable document was
// found. Errors are logged and treated as absence.
func loadJSON(ctx context.Context, store Store, key string, dst any) bool {
	found, err := readJSON(ctx, store, key, dst)
	switch {
	case errors.Is(err, errMalformed):
		slog.WarnContext(ctx, "Ignoring malformed document",
			applog.FieldComponent, applog.ComponentStorage,
			applog.FieldKey, key,
			applog.FieldError, err)
		return false
	case err != nil:
		slog.ErrorContext(ctx, "Failed to read document",
			applog.FieldComponent, applog.ComponentStorage,
			applog.FieldKey, key,
			applog.FieldError, err)
		return false
	}
	return found
}

var errMalformed = errors.New("malformed document")

// readJSON decodes key into dst. A missing key is not an error.
func readJSON(ctx context.Context, store Store, key string, dst any) (bool, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("%w %s: %v", errMalformed, key, err)
	}
	return true, nil
}

func saveJSON(ctx context.Context, store Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := store.Set(ctx, key, raw); err != nil {
		slog.ErrorContext(ctx, "Failed to write document",
			applog.FieldComponent, applog.ComponentStorage,
			applog.FieldKey, key,
			applog.FieldError, err)
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
