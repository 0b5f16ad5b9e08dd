package main

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"incgraph/internal/logging"
)

func TestShutdownCoordinatorRunsAllPhases(t *testing.T) {
	coordinator := newShutdownCoordinator(logging.Discard())
	order := []string{}
	first := errors.New("first failed")
	coordinator.Add("one", func(context.Context) error {
		order = append(order, "one")
		return first
	})
	coordinator.Add("two", func(context.Context) error {
		order = append(order, "two")
		return nil
	})
	coordinator.Add("nil", nil)

	err := coordinator.Run(context.Background())
	if !errors.Is(err, first) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(order) != 2 || order[0] != "one" || order[1] != "two" {
		t.Fatalf("unexpected order %v", order)
	}
	if err := coordinator.Run(context.Background()); err != nil {
		t.Fatalf("second run should be a no-op, got %v", err)
	}
	if len(order) != 2 {
		t.Fatalf("phases ran twice: %v", order)
	}
}

func TestWatchShutdownSignalsCancelsOnce(t *testing.T) {
	signalCh := make(chan os.Signal, 2)
	calls := make(chan struct{}, 2)
	stop := watchShutdownSignals(logging.Discard(), func() { calls <- struct{}{} }, signalCh)
	defer stop()

	signalCh <- syscall.SIGTERM
	signalCh <- os.Interrupt

	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("expected cancel on first signal")
	}
	select {
	case <-calls:
		t.Fatal("cancel called twice")
	case <-time.After(50 * time.Millisecond):
	}
}
