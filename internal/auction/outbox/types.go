package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is one committed auction event awaiting (or after) relay.
// RosterID scopes private events (budget updates) to a single roster's
// subscriber group; draft-wide events leave it nil.
type Event struct {
	ID        uuid.UUID
	DraftID   uuid.UUID
	RosterID  *uuid.UUID
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

// EventPublisher pushes a committed event onto the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
