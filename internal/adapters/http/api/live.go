package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/CurryTPH/all-sports-api/internal/adapters/mq/queue"
	"github.com/CurryTPH/all-sports-api/pkg/logger"
	"github.com/CurryTPH/all-sports-api/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// liveSubscriber adapts a websocket connection to broadcast.Subscriber.
// Send only enqueues; writePump does the network writes, so a slow peer
// fills its own outbox and is dropped without delaying anyone else.
type liveSubscriber struct {
	conn   *websocket.Conn
	outbox *queue.InMemoryQueue[[]byte]
	log    logger.Logger
}

func newLiveSubscriber(conn *websocket.Conn, size int, log logger.Logger) *liveSubscriber {
	return &liveSubscriber{
		conn:   conn,
		outbox: queue.New[[]byte](queue.WithCapacity(size), queue.WithName("live_outbox")),
		log:    log,
	}
}

func (c *liveSubscriber) Send(frame []byte) error {
	err := c.outbox.Enqueue(context.Background(), frame)
	if errors.Is(err, queue.ErrFull) {
		metrics.RecordOutboxDrop()
	}
	return err
}

// Close stops the outbox; writePump then sends a close frame.
func (c *liveSubscriber) Close() error {
	return c.outbox.Close()
}

// readPump discards inbound messages and returns when the peer goes away.
func (c *liveSubscriber) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug(context.Background(), "live connection closed", logger.Error(err))
			}
			return
		}
	}
}

// writePump writes queued frames and pings until the outbox closes or a
// write fails.
func (c *liveSubscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	frames := c.outbox.Items()
	for {
		select {
		case frame, ok := <-frames:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleLive upgrades to a websocket and registers the peer until it leaves.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Debug(r.Context(), "live upgrade rejected", logger.Error(fmt.Errorf("%w: %w", ErrUpgrade, err)))
		return
	}

	sub := newLiveSubscriber(conn, s.outboxSize, s.logger)
	h := s.deps.Live.Subscribe(sub)
	s.logger.Debug(r.Context(), "live subscriber connected", logger.String("handle", h.String()))

	go sub.writePump()
	sub.readPump()

	s.deps.Live.Unsubscribe(h)
	_ = conn.Close()
}
