package backend

import (
	"context"

	"gastos/internal/amqp"
	"gastos/internal/storage"
)

// Backend bundles the store, the repositories over it and the optional
// broker client.
type Backend struct {
	Type  BackendType
	Store storage.Store

	Movements *storage.MovementRepository
	Settings  *storage.SettingsRepository
	Goals     *storage.GoalRepository
	Sessions  *storage.SessionRepository

	// AMQP is nil when no broker is configured or it could not be reached.
	AMQP *amqp.Client
}

// Ping reports whether the store is usable.
func (b *Backend) Ping(ctx context.Context) error {
	if p, ok := b.Store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and its cleanup function
type BackendResult struct {
	Backend *Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// AMQP is optional for every backend type
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
