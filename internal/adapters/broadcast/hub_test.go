package broadcast

import (
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub() *Hub {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewHub(logger)
}

func TestHubDeliversInPublishOrder(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()

	pollID := uuid.New()
	sub := hub.Subscribe(pollID)

	for i := 0; i < 5; i++ {
		hub.Publish(pollID, "new-vote", i)
	}

	for i := 0; i < 5; i++ {
		ev := <-sub.C
		assert.Equal(t, "new-vote", ev.Name)
		assert.Equal(t, i, ev.Payload)
	}
}

func TestHubIsolatesPolls(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()

	pollA, pollB := uuid.New(), uuid.New()
	subA := hub.Subscribe(pollA)
	subB := hub.Subscribe(pollB)

	hub.Publish(pollA, "new-vote", "for-a")

	ev := <-subA.C
	assert.Equal(t, "for-a", ev.Payload)

	select {
	case ev := <-subB.C:
		t.Fatalf("subscriber of another poll received %v", ev)
	default:
	}
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()

	pollID := uuid.New()
	slow := hub.Subscribe(pollID)
	healthy := hub.Subscribe(pollID)

	// Fill both buffers, then make room on the healthy subscriber only.
	for i := 0; i < subscriberBuffer; i++ {
		hub.Publish(pollID, "new-vote", i)
	}
	ev := <-healthy.C
	assert.Equal(t, 0, ev.Payload)

	// The next publish overflows the slow subscriber and drops it; the
	// healthy one still gets the event.
	hub.Publish(pollID, "new-vote", subscriberBuffer)

	// The slow one keeps its buffered events, then its channel closes.
	received := 0
	for range slow.C {
		received++
	}
	assert.Equal(t, subscriberBuffer, received)

	for i := 1; i <= subscriberBuffer; i++ {
		ev := <-healthy.C
		assert.Equal(t, i, ev.Payload)
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()

	pollID := uuid.New()
	sub := hub.Subscribe(pollID)
	hub.Unsubscribe(pollID, sub)

	_, ok := <-sub.C
	assert.False(t, ok)

	// Publishing after the last unsubscribe must not panic or deliver.
	hub.Publish(pollID, "new-vote", 1)

	// Unsubscribing twice is a no-op.
	hub.Unsubscribe(pollID, sub)
}

func TestHubCloseDropsEverything(t *testing.T) {
	hub := newTestHub()

	pollID := uuid.New()
	sub := hub.Subscribe(pollID)

	hub.Close()

	_, ok := <-sub.C
	assert.False(t, ok)

	hub.Publish(pollID, "new-vote", 1)

	late := hub.Subscribe(pollID)
	_, ok = <-late.C
	require.False(t, ok)
}
