package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"weather-server/entities"
)

const (
	writeWait = 5 * time.Second
	// sendBuffer is how many events a subscriber may fall behind before
	// it is dropped.
	sendBuffer = 16
)

// subscriber owns one connection. Data frames are written only by its
// writer goroutine; control frames may be written concurrently.
type subscriber struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (s *subscriber) stop() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Manager keeps track of public-feed subscribers and fans change events
// out to them.
type Manager struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	logger      *slog.Logger
}

func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		subscribers: make(map[string]*subscriber),
		logger:      logger,
	}
}

// Register adds a connection, starts its writer and returns its
// subscriber id.
func (m *Manager) Register(conn *websocket.Conn) string {
	id, sub := m.add(conn)
	go m.writePump(id, sub)
	return id
}

func (m *Manager) add(conn *websocket.Conn) (string, *subscriber) {
	id := uuid.NewString()
	sub := &subscriber{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	m.mu.Lock()
	m.subscribers[id] = sub
	m.mu.Unlock()
	return id, sub
}

// Unregister closes and removes a subscriber. Unknown ids are ignored.
func (m *Manager) Unregister(id string) {
	m.mu.Lock()
	sub, ok := m.subscribers[id]
	delete(m.subscribers, id)
	m.mu.Unlock()
	if ok {
		sub.stop()
		_ = sub.conn.Close()
	}
}

// Publish queues the event for every subscriber without waiting on the
// network. Subscribers whose queue is full are dropped.
func (m *Manager) Publish(_ context.Context, event entities.ChangeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		m.logger.Error("encode change event", "error", err)
		return
	}

	m.mu.RLock()
	targets := make(map[string]*subscriber, len(m.subscribers))
	for id, sub := range m.subscribers {
		targets[id] = sub
	}
	m.mu.RUnlock()

	for id, sub := range targets {
		select {
		case sub.send <- payload:
		default:
			m.logger.Warn("dropping slow feed subscriber", "subscriber", id, "queued", len(sub.send))
			m.Unregister(id)
		}
	}
}

func (m *Manager) writePump(id string, sub *subscriber) {
	for {
		select {
		case payload := <-sub.send:
			err := sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err == nil {
				err = sub.conn.WriteMessage(websocket.TextMessage, payload)
			}
			if err != nil {
				m.logger.Warn("dropping feed subscriber", "subscriber", id, "error", err)
				m.Unregister(id)
				return
			}
		case <-sub.done:
			return
		}
	}
}

// Count returns the number of connected subscribers.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscribers)
}

// CloseAll disconnects every subscriber with a going-away close frame.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	subs := m.subscribers
	m.subscribers = make(map[string]*subscriber)
	m.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, sub := range subs {
		sub.stop()
		_ = sub.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = sub.conn.Close()
	}
}
