package inproc

import (
	"errors"
	"strings"
	"testing"

	"fleet_console/internal/domain"
)

func TestPublishFansOut(t *testing.T) {
	bus := New(4)
	a := bus.Register("a")
	b := bus.Register("b")

	ev := domain.PlayerEvent{Kind: domain.PlayerEventStarted, RunID: "run-1"}
	if err := bus.Publish(ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
	for name, ch := range map[string]<-chan domain.PlayerEvent{"a": a, "b": b} {
		select {
		case got := <-ch:
			if got.RunID != "run-1" || got.Kind != domain.PlayerEventStarted {
				t.Fatalf("%s got %+v", name, got)
			}
		default:
			t.Fatalf("%s received nothing", name)
		}
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	bus := New(1)
	first := bus.Register("a")
	second := bus.Register("a")
	if first != second {
		t.Fatalf("expected same channel for repeated register")
	}
	if bus.Subscribers() != 1 {
		t.Fatalf("subscribers=%d want=1", bus.Subscribers())
	}
}

func TestPublishReportsFullQueues(t *testing.T) {
	bus := New(1)
	_ = bus.Register("slow")
	fast := bus.Register("fast")

	if err := bus.Publish(domain.PlayerEvent{Cursor: 1}); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	<-fast

	err := bus.Publish(domain.PlayerEvent{Cursor: 2})
	if !errors.Is(err, ErrSubscriberQueueFull) {
		t.Fatalf("expected queue full, got %v", err)
	}
	if !strings.Contains(err.Error(), "slow") || strings.Contains(err.Error(), "fast") {
		t.Fatalf("unexpected error text: %v", err)
	}
	if bus.Dropped("slow") != 1 || bus.Dropped("fast") != 0 {
		t.Fatalf("dropped slow=%d fast=%d", bus.Dropped("slow"), bus.Dropped("fast"))
	}
	if got := <-fast; got.Cursor != 2 {
		t.Fatalf("fast subscriber got cursor=%d", got.Cursor)
	}
}

func TestUnregisterClosesChannel(t *testing.T) {
	bus := New(1)
	ch := bus.Register("a")
	bus.Unregister("a")
	bus.Unregister("a")

	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	if err := bus.Publish(domain.PlayerEvent{}); err != nil {
		t.Fatalf("publish with no subscribers: %v", err)
	}
}

func TestCloseClosesAll(t *testing.T) {
	bus := New(1)
	a := bus.Register("a")
	b := bus.Register("b")
	bus.Close()
	if _, ok := <-a; ok {
		t.Fatalf("a still open")
	}
	if _, ok := <-b; ok {
		t.Fatalf("b still open")
	}
	if bus.Subscribers() != 0 {
		t.Fatalf("subscribers left after close")
	}
}
