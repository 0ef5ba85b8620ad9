package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gastos/internal/amqp"
	applog "gastos/internal/log"
	"gastos/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger.With(applog.FieldComponent, applog.ComponentBackend),
	}
}

// CreateBackend opens the configured store and, when a broker URL is set,
// the AMQP client. A broker that cannot be reached is logged and skipped.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store storage.Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = storage.NewSQLiteStore(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
	case MemoryBackend:
		store = storage.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	b := &Backend{
		Type:      config.Type,
		Store:     store,
		Movements: storage.NewMovementRepository(store),
		Settings:  storage.NewSettingsRepository(store),
		Goals:     storage.NewGoalRepository(store),
		Sessions:  storage.NewSessionRepository(store),
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			b.AMQP = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	f.logger.InfoContext(ctx, "Initialized backend",
		"type", config.Type,
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", b.AMQP != nil)

	return &BackendResult{
		Backend: b,
		Cleanup: b.close,
	}, nil
}

func (b *Backend) close() error {
	var errs []error
	if b.AMQP != nil {
		if err := b.AMQP.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if err := b.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("storage: %w", err))
	}
	return errors.Join(errs...)
}
