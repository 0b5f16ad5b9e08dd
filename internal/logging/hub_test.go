package logging

import (
	"testing"
	"time"
)

func TestLogHubBroadcast(t *testing.T) {
	hub := NewLogHub()
	ch, cancel := hub.Subscribe(1)
	defer cancel()

	hub.Broadcast(LogEntry{Message: "hello"})

	select {
	case got := <-ch:
		if got.Message != "hello" {
			t.Fatalf("expected message hello, got %q", got.Message)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timed out waiting for log entry")
	}
}

func TestLogHubDropsForFullSubscriber(t *testing.T) {
	hub := NewLogHub()
	_, cancel := hub.Subscribe(1)
	defer cancel()

	hub.Broadcast(LogEntry{Message: "one"})
	hub.Broadcast(LogEntry{Message: "two"})

	if got := hub.Dropped(); got != 1 {
		t.Fatalf("expected 1 dropped entry, got %d", got)
	}
}

func TestLogHubClose(t *testing.T) {
	hub := NewLogHub()
	ch, _ := hub.Subscribe(1)
	hub.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected channel closed")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timed out waiting for close")
	}
}
