package api

import (
	"testing"
	"time"
)

func TestEventHubBroadcast(t *testing.T) {
	hub := NewEventHub()
	go hub.Run()

	client := make(chan Event, 1)
	hub.register <- client

	hub.Broadcast(Event{Type: "attempt", Data: "payload"})

	select {
	case ev := <-client:
		if ev.Type != "attempt" {
			t.Errorf("Type = %q", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	hub.unregister <- client
	if _, open := <-client; open {
		t.Error("channel should be closed after unregister")
	}
}

func TestEventHubDropsSlowClient(t *testing.T) {
	hub := NewEventHub()
	go hub.Run()

	slow := make(chan Event) // unbuffered, nobody reading
	hub.register <- slow

	hub.Broadcast(Event{Type: "attempt"})

	select {
	case _, open := <-slow:
		if open {
			t.Error("slow client should have been closed, not served")
		}
	case <-time.After(time.Second):
		t.Fatal("slow client was not dropped")
	}
}
