// Package devtools streams navigation events to debugging clients over
// WebSocket, so an inspector UI can follow an application's history
// stacks live.
package devtools

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/waypoint-dev/waypoint/v2/pkg/nav"
)

// EventType categorizes a streamed navigation event.
type EventType string

const (
	EventPush    EventType = "push"
	EventPop     EventType = "pop"
	EventReplace EventType = "replace"
	EventMove    EventType = "move"
	EventClear   EventType = "clear"
)

// Event is sent to inspector clients via WebSocket.
type Event struct {
	Type    EventType `json:"type"`
	Stack   string    `json:"stack"`
	Path    string    `json:"path,omitempty"`
	Pattern string    `json:"pattern,omitempty"`
	Index   int       `json:"index"`
	Length  int       `json:"length"`
	Time    time.Time `json:"time"`
}

// Server manages WebSocket connections for navigation inspection.
type Server struct {
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	upgrader websocket.Upgrader

	// writeMu serializes WriteMessage calls: history listeners invoke
	// broadcast from concurrently navigating goroutines, and a
	// websocket connection permits only one writer at a time.
	writeMu sync.Mutex
}

// NewServer creates a new inspection event server.
func NewServer() *Server {
	return &Server{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in dev
			},
		},
	}
}

// Attach subscribes the server to a navigator's root history and
// returns the unsubscribe function. Shell histories are attached
// separately with AttachHistory as they appear.
func (s *Server) Attach(nv *nav.Navigator) func() {
	return s.AttachHistory("root", nv.History())
}

// AttachHistory subscribes the server to one history stack under the
// given stack name.
func (s *Server) AttachHistory(name string, h *nav.History) func() {
	return h.Subscribe(func(e nav.HistoryEvent) {
		event := Event{
			Type:   eventType(e.Action),
			Stack:  name,
			Index:  e.Index,
			Length: e.Length,
			Time:   time.Now(),
		}
		if e.Current != nil {
			event.Path = e.Current.Data.Path
			event.Pattern = e.Current.Data.Pattern
		}
		s.broadcast(event)
	})
}

func eventType(action nav.HistoryAction) EventType {
	switch action {
	case nav.HistoryPush:
		return EventPush
	case nav.HistoryPop:
		return EventPop
	case nav.HistoryReplace:
		return EventReplace
	case nav.HistoryMove:
		return EventMove
	default:
		return EventClear
	}
}

// HandleWebSocket handles WebSocket upgrade and connection.
func (s *Server) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	// Keep connection alive until client disconnects
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

// broadcast sends an event to all connected clients.
func (s *Server) broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.mu.RUnlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	for _, client := range clients {
		err := client.WriteMessage(websocket.TextMessage, data)
		if err != nil {
			s.mu.Lock()
			delete(s.clients, client)
			s.mu.Unlock()
			client.Close()
		}
	}
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Close closes all client connections.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for client := range s.clients {
		client.Close()
		delete(s.clients, client)
	}
}
