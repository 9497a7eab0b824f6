package eventhub

import (
	"sync"

	"github.com/hochfrequenz/test-enhancer/internal/events"
)

// Watcher filters the broadcast stream to one progress-shaped event kind
// and hands its callback only the typed payload. It holds at most one live
// listener: setting a new callback always unsubscribes the previous one
// first, so a consumer can swap callbacks without leaking registrations.
type Watcher struct {
	hub  *Hub
	kind events.Kind

	mu     sync.Mutex
	cancel func()
}

// NewWatcher creates a Watcher for one of the task-* event kinds
func NewWatcher(hub *Hub, kind events.Kind) *Watcher {
	return &Watcher{hub: hub, kind: kind}
}

// Set replaces the watcher's callback. A nil callback just unsubscribes.
func (w *Watcher) Set(fn func(p events.ProgressPayload)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	if fn == nil {
		return
	}

	w.cancel = w.hub.Subscribe(w.kind, func(ev events.PushEvent) {
		if ev.Progress != nil {
			fn(*ev.Progress)
		}
	})
}

// Stop removes the current listener, if any
func (w *Watcher) Stop() {
	w.Set(nil)
}
