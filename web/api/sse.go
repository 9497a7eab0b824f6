package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hochfrequenz/test-enhancer/internal/events"
)

// heartbeatInterval is how often connected clients receive a heartbeat
const heartbeatInterval = 30 * time.Second

// SSEHub fans push events out to every connected event-stream client
type SSEHub struct {
	clients    map[chan events.PushEvent]bool
	broadcast  chan events.PushEvent
	register   chan chan events.PushEvent
	unregister chan chan events.PushEvent
	done       chan struct{} // closed when Run exits
	mu         sync.RWMutex
}

// NewSSEHub creates a new SSE hub
func NewSSEHub() *SSEHub {
	return &SSEHub{
		clients:    make(map[chan events.PushEvent]bool),
		broadcast:  make(chan events.PushEvent, 16),
		register:   make(chan chan events.PushEvent),
		unregister: make(chan chan events.PushEvent),
		done:       make(chan struct{}),
	}
}

// Run pumps registrations and broadcasts until ctx is cancelled, emitting
// heartbeats on a fixed interval.
func (h *SSEHub) Run(ctx context.Context) {
	defer close(h.done)

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client)
			}
			h.mu.Unlock()

		case <-ticker.C:
			h.fanOut(events.PushEvent{
				Kind:      events.KindHeartbeat,
				Heartbeat: &events.HeartbeatPayload{Timestamp: time.Now()},
			})

		case event := <-h.broadcast:
			h.fanOut(event)
		}
	}
}

func (h *SSEHub) fanOut(event events.PushEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client <- event:
		default:
			// Slow consumer: drop it rather than block the hub
			close(client)
			delete(h.clients, client)
		}
	}
}

// Broadcast sends an event to all clients
func (h *SSEHub) Broadcast(event events.PushEvent) {
	select {
	case h.broadcast <- event:
	case <-h.done:
	}
}

// add registers a client channel. Returns false once the hub has shut
// down, in which case the caller must not stream from the channel.
func (h *SSEHub) add(client chan events.PushEvent) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// release hands a client channel back to the hub. After shutdown the hub
// no longer receives, so the send must not be unconditional.
func (h *SSEHub) release(client chan events.PushEvent) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// payloadJSON serializes the typed payload of an event for the wire
func payloadJSON(event events.PushEvent) ([]byte, error) {
	if event.Heartbeat != nil {
		return json.Marshal(event.Heartbeat)
	}
	return json.Marshal(event.Progress)
}

func (s *Server) sseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Set SSE headers
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming not supported", http.StatusInternalServerError)
			return
		}

		// Create client channel
		client := make(chan events.PushEvent, 16)
		if !s.sseHub.add(client) {
			http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
			return
		}

		// Cleanup on disconnect
		notify := r.Context().Done()
		go func() {
			<-notify
			s.sseHub.release(client)
		}()

		flusher.Flush()

		// Stream events
		for event := range client {
			data, err := payloadJSON(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\n", event.Kind)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
