package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/irontrials/internal/domain/model"
	"github.com/okian/irontrials/pkg/logger"
	"github.com/okian/irontrials/pkg/metrics"
)

// Stream connection constants.
const (
	streamSendBuffer   = 32
	streamWriteTimeout = 10 * time.Second
	streamPingInterval = 30 * time.Second
)

// Stream message types.
const (
	streamSnapshot = "snapshot"
	streamEvent    = "event"
)

type streamMessage struct {
	Type   string            `json:"type"`
	Events []model.GameEvent `json:"events,omitempty"`
	Event  *model.GameEvent  `json:"event,omitempty"`
}

// Stream fans feed updates out to websocket clients. A client that cannot
// keep up is disconnected rather than slowing the publisher.
type Stream struct {
	mu      sync.Mutex
	clients map[*streamClient]struct{}
	closed  bool
	logger  logger.Logger
}

type streamClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewStream creates an empty stream.
func NewStream(log logger.Logger) *Stream {
	if log == nil {
		log = logger.Get().Named("stream")
	}
	return &Stream{
		clients: make(map[*streamClient]struct{}),
		logger:  log,
	}
}

// Join registers conn and queues snapshot as its first message.
func (s *Stream) Join(conn *websocket.Conn, snapshot []model.GameEvent) {
	if snapshot == nil {
		snapshot = []model.GameEvent{}
	}
	data, err := json.Marshal(streamMessage{Type: streamSnapshot, Events: snapshot})
	if err != nil {
		s.logger.Error(context.Background(), "failed to encode stream snapshot", logger.Error(err))
		_ = conn.Close()
		return
	}

	c := &streamClient{conn: conn, send: make(chan []byte, streamSendBuffer)}
	c.send <- data

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.clients[c] = struct{}{}
	count := len(s.clients)
	s.mu.Unlock()

	metrics.UpdateWebsocketClients(count)
	go s.writePump(c)
	go s.readPump(c)
}

// Broadcast sends ev to every connected client.
func (s *Stream) Broadcast(ev model.GameEvent) {
	s.publish(streamMessage{Type: streamEvent, Event: &ev})
}

// BroadcastSnapshot replaces every client's view with events.
func (s *Stream) BroadcastSnapshot(events []model.GameEvent) {
	if events == nil {
		events = []model.GameEvent{}
	}
	s.publish(streamMessage{Type: streamSnapshot, Events: events})
}

func (s *Stream) publish(msg streamMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error(context.Background(), "failed to encode stream message", logger.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			s.logger.Warn(context.Background(), "dropping slow stream client")
			s.dropLocked(c)
		}
	}
}

// Clients returns the number of connected clients.
func (s *Stream) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close disconnects every client and rejects new ones.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for c := range s.clients {
		s.dropLocked(c)
	}
}

func (s *Stream) drop(c *streamClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked(c)
}

func (s *Stream) dropLocked(c *streamClient) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	close(c.send)
	metrics.UpdateWebsocketClients(len(s.clients))
}

func (s *Stream) writePump(c *streamClient) {
	ping := time.NewTicker(streamPingInterval)
	defer func() {
		ping.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.drop(c)
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.drop(c)
				return
			}
		}
	}
}

// readPump discards client frames; it exists to process control frames and
// notice disconnects.
func (s *Stream) readPump(c *streamClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			s.drop(c)
			return
		}
	}
}
