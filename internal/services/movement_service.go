package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gastos/internal/amqp"
	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/metrics"
	"gastos/internal/storage"
)

var ErrMovementNotFound = errors.New("movement not found")

// Publisher hands movement events to the broker.
type Publisher interface {
	Publish(ctx context.Context, e *amqp.MovementEvent) error
}

// NewMovement is the user-supplied part of a movement; id and date are
// assigned on record.
type NewMovement struct {
	Amount      decimal.Decimal
	Category    string
	Description string
	Type        core.MovementType
}

// MovementService records movements locally and announces each change on the
// broker when one is configured.
type MovementService struct {
	repo      *storage.MovementRepository
	publisher Publisher
	metrics   *metrics.Metrics

	now   func() time.Time
	newID func() string
}

// NewMovementService wires the service. publisher and m may be nil.
func NewMovementService(repo *storage.MovementRepository, publisher Publisher, m *metrics.Metrics) *MovementService {
	return &MovementService{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func (s *MovementService) List(ctx context.Context) []core.Movement {
	return s.repo.List(ctx)
}

// Record validates in, stamps it with a fresh id and the current instant and
// stores it ahead of the existing movements.
func (s *MovementService) Record(ctx context.Context, in NewMovement) (core.Movement, error) {
	m := core.Movement{
		ID:          s.newID(),
		Amount:      in.Amount,
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		Date:        core.FormatTimestamp(s.now()),
		Type:        in.Type,
	}
	if err := m.Validate(); err != nil {
		return core.Movement{}, err
	}

	if _, err := s.repo.Add(ctx, m); err != nil {
		return core.Movement{}, fmt.Errorf("save movement: %w", err)
	}

	if s.metrics != nil {
		s.metrics.IncMovementRecorded(string(m.Type))
	}
	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogMovementRecorded(ctx, m.ID, string(m.Type), m.Category, m.Amount.String())

	s.publish(ctx, amqp.NewCreatedEvent(m))
	return m, nil
}

func (s *MovementService) Delete(ctx context.Context, id string) error {
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete movement: %w", err)
	}
	if !found {
		return ErrMovementNotFound
	}

	slog.InfoContext(ctx, "Movement deleted",
		applog.FieldComponent, applog.ComponentMovement,
		applog.FieldOperation, applog.OpDelete,
		applog.FieldMovementID, id)

	s.publish(ctx, amqp.NewDeletedEvent(id))
	return nil
}

func (s *MovementService) Clear(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Movements cleared",
		applog.FieldComponent, applog.ComponentMovement,
		applog.FieldOperation, applog.OpClear)

	s.publish(ctx, amqp.NewClearedEvent())
	return nil
}

// publish never fails the caller; the movement is already stored.
func (s *MovementService) publish(ctx context.Context, e *amqp.MovementEvent) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping movement event",
			applog.FieldComponent, applog.ComponentMovement,
			applog.FieldEventKind, e.Kind)
		s.countPublish(metrics.OutcomeSkipped)
		return
	}

	if err := s.publisher.Publish(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish movement event",
			applog.FieldComponent, applog.ComponentMovement,
			applog.FieldOperation, applog.OpPublish,
			applog.FieldEventKind, e.Kind,
			applog.FieldMovementID, e.MovementID,
			applog.FieldError, err)
		s.countPublish(metrics.OutcomeFailure)
		return
	}
	s.countPublish(metrics.OutcomeSuccess)
}

func (s *MovementService) countPublish(outcome string) {
	if s.metrics != nil {
		s.metrics.IncEventPublished(outcome)
	}
}
