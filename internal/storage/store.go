// Package storage persists the app's state as JSON documents under fixed keys
// in a key/value store, and exposes typed repositories on top of it.
package storage

import (
	"context"
	"errors"
)

// Keys of the persisted documents.
const (
	KeyMovements      = "gastos:movements"
	KeyBudgetSettings = "gastos:budget_settings"
	KeyGoals          = "gastos:goals"
	KeyAuth           = "gastos:auth"
)

var ErrClosed = errors.New("store closed")

// Store is a durable string-keyed blob store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
