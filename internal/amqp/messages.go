package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

// EventKind tells the worker what happened to the movement list.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventDeleted EventKind = "deleted"
	EventCleared EventKind = "cleared"
)

var ErrUnknownEventKind = errors.New("unknown event kind")

// MovementEvent is published after every change to the movement list. The
// worker reloads state from storage, so the payload only identifies the
// change.
type MovementEvent struct {
	Kind       EventKind         `json:"kind"`
	MovementID string            `json:"movement_id,omitempty"`
	Type       core.MovementType `json:"type,omitempty"`
	Category   string            `json:"category,omitempty"`
	Amount     *decimal.Decimal  `json:"amount,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

func NewCreatedEvent(m core.Movement) *MovementEvent {
	amount := m.Amount
	return &MovementEvent{
		Kind:       EventCreated,
		MovementID: m.ID,
		Type:       m.Type,
		Category:   m.Category,
		Amount:     &amount,
		Timestamp:  time.Now().UTC(),
	}
}

func NewDeletedEvent(id string) *MovementEvent {
	return &MovementEvent{Kind: EventDeleted, MovementID: id, Timestamp: time.Now().UTC()}
}

func NewClearedEvent() *MovementEvent {
	return &MovementEvent{Kind: EventCleared, Timestamp: time.Now().UTC()}
}

// ToJSON converts the message to JSON bytes
func (e *MovementEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// MovementEventFromJSON decodes and checks an event body.
func MovementEventFromJSON(data []byte) (*MovementEvent, error) {
	var e MovementEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Kind {
	case EventCreated, EventDeleted:
		if e.MovementID == "" {
			return nil, fmt.Errorf("%s event without movement id", e.Kind)
		}
	case EventCleared:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventKind, e.Kind)
	}
	return &e, nil
}
