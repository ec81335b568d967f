package broadcast

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rankedpoll/api/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// subscriberBuffer bounds how far a subscriber may fall behind before it is
// dropped. Events queue in the channel, so delivery stays FIFO per
// subscriber as long as it keeps draining.
const subscriberBuffer = 16

// Hub fans poll events out to subscribers, one subscriber set per poll id.
// It is an explicitly-owned instance: construct with NewHub, shut down with
// Close. Publish never blocks; a subscriber that stopped draining its
// channel is dropped and its channel closed.
type Hub struct {
	mu     sync.Mutex
	polls  map[uuid.UUID]map[*ports.Subscriber]struct{}
	closed bool
	log    *logrus.Entry
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		polls: make(map[uuid.UUID]map[*ports.Subscriber]struct{}),
		log:   logger.WithField("component", "broadcast"),
	}
}

func (h *Hub) Subscribe(pollID uuid.UUID) *ports.Subscriber {
	sub := &ports.Subscriber{C: make(chan ports.Event, subscriberBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(sub.C)
		return sub
	}

	subs, ok := h.polls[pollID]
	if !ok {
		subs = make(map[*ports.Subscriber]struct{})
		h.polls[pollID] = subs
	}
	subs[sub] = struct{}{}

	return sub
}

func (h *Hub) Unsubscribe(pollID uuid.UUID, sub *ports.Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(pollID, sub)
}

func (h *Hub) Publish(pollID uuid.UUID, event string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	subs := h.polls[pollID]
	if len(subs) == 0 {
		return
	}

	ev := ports.Event{Name: event, Payload: payload}
	for sub := range subs {
		select {
		case sub.C <- ev:
		default:
			// Full buffer means the subscriber stopped draining; drop it
			// rather than stall everyone else.
			h.log.WithFields(logrus.Fields{"poll_id": pollID, "event": event}).
				Warn("dropping slow subscriber")
			h.removeLocked(pollID, sub)
		}
	}
}

// Close drops every subscriber and rejects further subscriptions. Publish
// becomes a no-op.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for pollID, subs := range h.polls {
		for sub := range subs {
			close(sub.C)
		}
		delete(h.polls, pollID)
	}
}

func (h *Hub) removeLocked(pollID uuid.UUID, sub *ports.Subscriber) {
	subs, ok := h.polls[pollID]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.C)
	if len(subs) == 0 {
		delete(h.polls, pollID)
	}
}
