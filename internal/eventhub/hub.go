// Package eventhub implements the client side of the push channel: a
// single live event-stream connection, typed demultiplexing to
// subscribers, and automatic reconnection with capped exponential backoff.
// Subscriber registrations survive reconnects.
package eventhub

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"
	"unsafe"

	"github.com/hochfrequenz/test-enhancer/internal/events"
)

// Status is the connection lifecycle state of a hub
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
)

// Backoff constants for reconnection
const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
	backoffFactor  = 2
)

// calculateBackoff returns the delay for a given attempt number using
// exponential backoff
func calculateBackoff(base, max time.Duration, attempt int) time.Duration {
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= backoffFactor
		if delay > max {
			return max
		}
	}
	return delay
}

// ConnectionState is a point-in-time snapshot of the hub's connection
type ConnectionState struct {
	Status            Status
	LastEvent         *events.PushEvent
	Err               error
	ReconnectAttempts int
}

// Listener is a callback invoked when an event of its subscribed kind
// arrives
type Listener func(ev events.PushEvent)

type registration struct {
	id uintptr
	fn Listener
}

// listenerID returns the identity of the func value itself, not its code
// pointer. Two closures built from the same literal carry distinct values
// and register independently; passing the same value (or the same named
// function) twice yields the same id.
func listenerID(fn Listener) uintptr {
	return uintptr(*(*unsafe.Pointer)(unsafe.Pointer(&fn)))
}

// Hub owns one live connection to the event endpoint and a registry of
// listeners keyed by event kind. Event handling is single-threaded: each
// incoming event's notifications run to completion before the next event
// is processed.
type Hub struct {
	url    string
	client *http.Client

	mu        sync.Mutex
	state     ConnectionState
	listeners map[events.Kind][]registration
	body      io.ReadCloser
	timer     *time.Timer
	stopped   bool

	backoffBase time.Duration
	backoffMax  time.Duration
}

// New creates a Hub for the given event-stream URL
func New(url string) *Hub {
	return &Hub{
		url:         url,
		client:      &http.Client{},
		state:       ConnectionState{Status: StatusDisconnected},
		listeners:   make(map[events.Kind][]registration),
		backoffBase: initialBackoff,
		backoffMax:  maxBackoff,
	}
}

// Start establishes the connection and ties the hub's lifetime to ctx
func (h *Hub) Start(ctx context.Context) {
	h.mu.Lock()
	h.stopped = false
	h.mu.Unlock()

	go h.Connect()
	go func() {
		<-ctx.Done()
		h.Stop()
	}()
}

// Stop cancels any pending reconnection timer and closes the live
// connection regardless of current state
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stopped = true
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.closeBodyLocked()
	h.state.Status = StatusDisconnected
}

// State returns a snapshot of the connection state
func (h *Hub) State() ConnectionState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Connect tears down any existing connection and opens a fresh one.
// Opening supersedes any reconnect timer scheduled by a prior attempt.
func (h *Hub) Connect() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.closeBodyLocked()
	h.state.Status = StatusConnecting
	h.mu.Unlock()

	req, err := http.NewRequest(http.MethodGet, h.url, nil)
	if err != nil {
		h.transportError(err)
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := h.client.Do(req)
	if err != nil {
		h.transportError(err)
		return
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		h.transportError(fmt.Errorf("event stream returned %d", resp.StatusCode))
		return
	}

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		resp.Body.Close()
		return
	}
	h.body = resp.Body
	h.state.Status = StatusConnected
	h.state.Err = nil
	h.state.ReconnectAttempts = 0
	h.mu.Unlock()

	go h.readLoop(resp.Body)
}

// readLoop consumes frames until the stream breaks. A read failure on the
// current connection triggers the reconnect schedule; a failure on a
// superseded connection is ignored.
func (h *Hub) readLoop(body io.ReadCloser) {
	reader := newSSEReader(body)
	for {
		f, err := reader.Next()
		if err != nil {
			h.mu.Lock()
			current := h.body == body
			stopped := h.stopped
			h.mu.Unlock()
			if current && !stopped {
				h.transportError(err)
			}
			return
		}
		h.dispatch(f)
	}
}

// transportError records the failure and schedules a reconnection after
// min(base * 2^attempts, max). Exactly one timer is pending at a time; the
// attempt counter lives on the hub, not in a closure.
func (h *Hub) transportError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return
	}

	h.closeBodyLocked()
	h.state.Status = StatusReconnecting
	h.state.Err = err

	delay := calculateBackoff(h.backoffBase, h.backoffMax, h.state.ReconnectAttempts)
	h.state.ReconnectAttempts++

	if h.timer != nil {
		h.timer.Stop()
	}
	h.timer = time.AfterFunc(delay, h.Connect)

	log.Printf("eventhub: connection lost: %v, reconnecting in %v", err, delay)
}

// dispatch parses one frame at the boundary and notifies subscribers.
// Malformed payloads are logged and dropped: no listener call, no
// LastEvent update, no connection-state change.
func (h *Hub) dispatch(f frame) {
	kind := events.Kind(f.event)
	if !events.Known(kind) {
		return
	}

	ev, err := events.Parse(kind, f.data)
	if err != nil {
		log.Printf("eventhub: dropping malformed %s event: %v", kind, err)
		return
	}

	h.mu.Lock()
	h.state.LastEvent = &ev
	regs := make([]registration, len(h.listeners[kind]))
	copy(regs, h.listeners[kind])
	h.mu.Unlock()

	for _, reg := range regs {
		h.notify(reg.fn, ev)
	}
}

// notify runs one listener inside an isolated failure boundary: a
// panicking listener must not stop delivery to its siblings or affect
// connection state.
func (h *Hub) notify(fn Listener, ev events.PushEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("eventhub: listener panicked on %s event: %v", ev.Kind, r)
		}
	}()
	fn(ev)
}

// Subscribe adds a listener for a kind and returns a closure that removes
// exactly this listener from exactly this kind. Registering the same
// function value for the same kind twice is a no-op.
func (h *Hub) Subscribe(kind events.Kind, fn Listener) (unsubscribe func()) {
	id := listenerID(fn)

	h.mu.Lock()
	exists := false
	for _, reg := range h.listeners[kind] {
		if reg.id == id {
			exists = true
			break
		}
	}
	if !exists {
		h.listeners[kind] = append(h.listeners[kind], registration{id: id, fn: fn})
	}
	h.mu.Unlock()

	return func() { h.removeByID(kind, id) }
}

// Unsubscribe removes a listener from a kind. The kind's entry is
// discarded entirely once its listener list empties.
func (h *Hub) Unsubscribe(kind events.Kind, fn Listener) {
	h.removeByID(kind, listenerID(fn))
}

func (h *Hub) removeByID(kind events.Kind, id uintptr) {
	h.mu.Lock()
	defer h.mu.Unlock()

	regs := h.listeners[kind]
	for i, reg := range regs {
		if reg.id == id {
			h.listeners[kind] = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(h.listeners[kind]) == 0 {
		delete(h.listeners, kind)
	}
}

func (h *Hub) closeBodyLocked() {
	if h.body != nil {
		h.body.Close() // closing an already-closed stream is a no-op
		h.body = nil
	}
}
