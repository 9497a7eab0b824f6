package api

import (
	"context"
	"testing"
	"time"

	"github.com/hochfrequenz/test-enhancer/internal/events"
)

func TestSSEHub_BroadcastReachesClient(t *testing.T) {
	hub := NewSSEHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := make(chan events.PushEvent, 16)
	if !hub.add(client) {
		t.Fatal("add should succeed while the hub is running")
	}

	hub.Broadcast(events.PushEvent{
		Kind:     events.KindTaskProgress,
		Progress: &events.ProgressPayload{TaskID: "t1", RepoID: "r1"},
	})

	select {
	case ev := <-client:
		if ev.Kind != events.KindTaskProgress {
			t.Errorf("Kind = %q, want task-progress", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("client never received the broadcast")
	}
}

func TestSSEHub_ReleaseAfterShutdownDoesNotBlock(t *testing.T) {
	hub := NewSSEHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	client := make(chan events.PushEvent, 16)
	if !hub.add(client) {
		t.Fatal("add should succeed while the hub is running")
	}

	cancel()

	// Run closes every client channel on its way out
	select {
	case _, ok := <-client:
		if ok {
			t.Fatal("expected the client channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("client channel never closed after shutdown")
	}

	// A disconnect racing the shutdown must still return
	released := make(chan struct{})
	go func() {
		hub.release(client)
		close(released)
	}()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("release blocked after hub shutdown")
	}
}

func TestSSEHub_AddAfterShutdownFails(t *testing.T) {
	hub := NewSSEHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	cancel()

	// Wait for Run to exit
	select {
	case <-hub.done:
	case <-time.After(time.Second):
		t.Fatal("hub never shut down")
	}

	if hub.add(make(chan events.PushEvent, 16)) {
		t.Error("add should fail after shutdown")
	}

	// Broadcast after shutdown returns instead of blocking
	broadcast := make(chan struct{})
	go func() {
		for i := 0; i < 32; i++ {
			hub.Broadcast(events.PushEvent{Kind: events.KindHeartbeat})
		}
		close(broadcast)
	}()
	select {
	case <-broadcast:
	case <-time.After(time.Second):
		t.Error("Broadcast blocked after hub shutdown")
	}
}
