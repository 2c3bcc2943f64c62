package events

import (
	"context"
	"encoding/json"
	"fmt"
)

// Pub/Sub channel constants
const (
	EventsChannel = "channel:events"
)

// Event types
const (
	TypeSessionUpdated = "session_updated"
	TypeSessionEnded   = "session_ended"
)

// Event represents a global message published via Pub/Sub.
type Event struct {
	Type    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// SessionUpdatedPayload is the payload for the "session_updated" event.
type SessionUpdatedPayload struct {
	SessionID string `json:"session_id"`
	Moves     int    `json:"moves"`
}

// SessionEndedPayload is the payload for the "session_ended" event.
type SessionEndedPayload struct {
	SessionID string `json:"session_id"`
}

// New wraps payload into an Event of the given type.
func New(eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Payload: data}, nil
}

// Bus publishes events and delivers them to subscribers.
type Bus interface {
	Publish(ctx context.Context, event Event) error
	// Subscribe returns a channel of events that is closed once ctx is done.
	Subscribe(ctx context.Context) (<-chan Event, error)
}
