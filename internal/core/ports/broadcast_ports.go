package ports

import (
	"github.com/google/uuid"
)

// Event is one live-update message for a poll's subscribers.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"payload"`
}

// Subscriber receives a poll's events in publish order on C. The channel is
// closed when the subscriber is dropped, either by Unsubscribe or because it
// stopped draining.
type Subscriber struct {
	C chan Event
}

// Broadcaster fans tally-change events out to a poll's subscribers.
// Publishing is fire-and-forget: a slow or disconnected subscriber is
// dropped, never blocks delivery to the others.
type Broadcaster interface {
	Subscribe(pollID uuid.UUID) *Subscriber
	Unsubscribe(pollID uuid.UUID, sub *Subscriber)
	Publish(pollID uuid.UUID, event string, payload any)
}
