package dev

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/saferoute-dev/saferoute/internal/pipeline"
)

// EventType represents the type of a pass event.
type EventType string

const (
	EventGenerated EventType = "generated"
	EventError     EventType = "error"
)

// Event is sent to subscribers via WebSocket after every pass.
type Event struct {
	Type       EventType `json:"type"`
	Generation uint64    `json:"generation"`
	Routes     int       `json:"routes,omitempty"`
	Changed    bool      `json:"changed,omitempty"`
	Output     string    `json:"output,omitempty"`
	DurationMS int64     `json:"durationMs"`
	Error      string    `json:"error,omitempty"`
}

// EventFromOutcome converts a pass outcome into an Event.
func EventFromOutcome(o pipeline.Outcome) Event {
	ev := Event{
		Type:       EventGenerated,
		Generation: o.Generation,
		Routes:     o.Routes,
		Changed:    o.Changed,
		Output:     o.Output,
		DurationMS: o.Duration.Milliseconds(),
	}
	if o.Err != nil {
		ev.Type = EventError
		ev.Error = o.Err.Error()
	}
	return ev
}

// Broadcaster manages WebSocket subscribers to pass events.
type Broadcaster struct {
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	writeMu  sync.Mutex
	upgrader websocket.Upgrader
}

// NewBroadcaster creates a new broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket handles WebSocket upgrade and connection.
func (b *Broadcaster) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := b.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	b.mu.Lock()
	b.clients[conn] = true
	b.mu.Unlock()

	// Keep connection alive until client disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	b.mu.Lock()
	delete(b.clients, conn)
	b.mu.Unlock()
	conn.Close()
}

// Publish sends a pass event to all clients.
func (b *Broadcaster) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}

	b.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(b.clients))
	for client := range b.clients {
		clients = append(clients, client)
	}
	b.mu.RUnlock()

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	for _, client := range clients {
		client.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			b.mu.Lock()
			delete(b.clients, client)
			b.mu.Unlock()
			client.Close()
		}
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close closes all client connections.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for client := range b.clients {
		client.Close()
		delete(b.clients, client)
	}
}
