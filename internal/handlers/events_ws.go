package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/scopeline/scopeline/internal/database"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	EventTypeRunCompleted EventType = "run_completed"
	EventTypeHeartbeat    EventType = "heartbeat"
)

// Event represents a WebSocket message pushed to subscribed clients
type Event struct {
	Type            EventType `json:"type"`
	RunUUID         string    `json:"run_uuid,omitempty"`
	Label           string    `json:"label,omitempty"`
	OutputRoomCount int       `json:"output_room_count,omitempty"`
	MergeCount      int       `json:"merge_count,omitempty"`
	WarningCount    int       `json:"warning_count,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// EventsHub broadcasts run events to connected WebSocket clients
type EventsHub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[*websocket.Conn]struct{}
}

// NewEventsHub creates a new events hub
func NewEventsHub() *EventsHub {
	return &EventsHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for internal communication
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// SetupRoutes configures WebSocket routes
func (h *EventsHub) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/events", h.HandleWebSocket)
}

// HandleWebSocket upgrades the connection and keeps it registered until
// the client disconnects
func (h *EventsHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return
	}

	log.Printf("Events client connected from %s", r.RemoteAddr)

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
		log.Printf("Events client disconnected")
	}()

	// Clients only listen; drain reads to detect disconnect
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}
	}
}

// ClientCount returns the number of connected clients
func (h *EventsHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastRunCompleted notifies all connected clients that a run finished
func (h *EventsHub) BroadcastRunCompleted(run *database.EstimateRun) {
	h.broadcast(Event{
		Type:            EventTypeRunCompleted,
		RunUUID:         run.UUID,
		Label:           run.Label,
		OutputRoomCount: run.OutputRoomCount,
		MergeCount:      run.MergeCount,
		WarningCount:    len(run.Warnings),
		Timestamp:       time.Now().UTC(),
	})
}

// broadcast sends an event to every connected client, dropping clients whose
// writes fail
func (h *EventsHub) broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal event: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("Failed to write event, dropping client: %v", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}
