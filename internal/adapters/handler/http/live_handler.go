package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rankedpoll/api/internal/core/domain"
	"github.com/rankedpoll/api/internal/core/ports"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// LiveHandler serves the per-poll event stream over a websocket. Each
// connection subscribes to the poll on the hub; events arrive in publish
// order and the subscription is torn down when the client goes away.
type LiveHandler struct {
	pollService ports.PollService
	broadcaster ports.Broadcaster
	upgrader    websocket.Upgrader
	log         *logrus.Logger
}

func NewLiveHandler(pollService ports.PollService, broadcaster ports.Broadcaster, log *logrus.Logger) *LiveHandler {
	return &LiveHandler{
		pollService: pollService,
		broadcaster: broadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

func (h *LiveHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Reject unknown polls before upgrading.
	if _, err := h.pollService.GetPoll(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrInvalidPollID) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if errors.Is(err, domain.ErrPollNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.log.WithError(err).Error("failed to load poll for live subscription")
		http.Error(w, domain.ErrInternal.Error(), http.StatusInternalServerError)
		return
	}
	pollID := uuid.MustParse(id)

	// Subscribe before completing the handshake so no event published
	// right after the client connects can slip past it.
	sub := h.broadcaster.Subscribe(pollID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.broadcaster.Unsubscribe(pollID, sub)
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	go h.writePump(conn, sub)
	go h.readPump(conn, pollID, sub)
}

// writePump forwards hub events to the client. It exits when the
// subscriber channel closes (unsubscribed or dropped as slow) or a write
// fails.
func (h *LiveHandler) writePump(conn *websocket.Conn, sub *ports.Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case event, ok := <-sub.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages and unsubscribes when the connection
// drops.
func (h *LiveHandler) readPump(conn *websocket.Conn, pollID uuid.UUID, sub *ports.Subscriber) {
	defer func() {
		h.broadcaster.Unsubscribe(pollID, sub)
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
