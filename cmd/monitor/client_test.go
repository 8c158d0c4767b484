package main

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fleet_console/internal/api"
	"fleet_console/internal/config"
	"fleet_console/internal/console"
	"fleet_console/internal/domain"
	"fleet_console/internal/messaging/inproc"
	"fleet_console/internal/workflow"
)

func newTestClient(t *testing.T) *client {
	t.Helper()
	svc := console.New(workflow.DefaultScript(), nil, inproc.New(16), console.Config{
		Interval: time.Hour,
		Seed:     5,
	}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)
	srv := httptest.NewServer(api.New(svc, config.Default(), zerolog.Nop()).Handler())
	t.Cleanup(func() {
		srv.Close()
		svc.Close()
		cancel()
	})
	return newClient(srv.URL + "/")
}

func TestClientLoadsDashboardAndScript(t *testing.T) {
	c := newTestClient(t)
	if err := waitHealth(c, time.Second); err != nil {
		t.Fatalf("health: %v", err)
	}
	data, err := c.dataset()
	if err != nil {
		t.Fatalf("dataset: %v", err)
	}
	if len(data.Orders) != 50 {
		t.Fatalf("orders=%d want=50", len(data.Orders))
	}
	script, err := c.script()
	if err != nil {
		t.Fatalf("script: %v", err)
	}
	if len(script.Stages) != 10 {
		t.Fatalf("stages=%d want=10", len(script.Stages))
	}
}

func TestClientControls(t *testing.T) {
	c := newTestClient(t)

	snap, err := c.control("start")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !snap.Running {
		t.Fatalf("expected running after start")
	}
	snap, err = c.control("pause")
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if snap.Running {
		t.Fatalf("expected paused")
	}
	if _, err := c.control("rewind"); err == nil {
		t.Fatalf("expected error for unknown action")
	}
	if _, err := c.runs(5); err == nil {
		t.Fatalf("expected runs to fail without a journal")
	}
}

func TestClientStreamDeliversFrames(t *testing.T) {
	c := newTestClient(t)
	done := make(chan struct{})
	frames := make(chan api.Frame, 4)
	errs := make(chan error, 1)
	go func() {
		errs <- c.stream(done, func(f api.Frame) { frames <- f })
	}()

	select {
	case f := <-frames:
		if f.Type != api.FrameSnapshot {
			t.Fatalf("first frame type=%s", f.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no snapshot frame")
	}

	if _, err := c.control("start"); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case f := <-frames:
		if f.Event == nil || f.Event.Kind != domain.PlayerEventStarted {
			t.Fatalf("unexpected frame %+v", f)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no event frame")
	}

	close(done)
	if err := <-errs; err != nil {
		t.Fatalf("stream returned %v after done", err)
	}
}
