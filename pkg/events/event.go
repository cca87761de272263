package events

import (
	"context"
	"errors"
	"time"
)

// Event defines the contract for all bot events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "REQUEST_QUEUED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Publisher is anything that can carry events out of the process or to another component.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// BaseEvent is the only Event implementation the bot needs.
type BaseEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func New(eventType string, data map[string]interface{}) BaseEvent {
	if data == nil {
		data = make(map[string]interface{})
	}
	return BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Multi fans an event out to every publisher, returning the joined errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
