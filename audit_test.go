package centralhub

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDispatcherDeliversToSink(t *testing.T) {
	sink := NewChannelSink(16)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 16}, sink)

	d.Emit(context.Background(), AuditEvent{EventType: "login", UserID: "u1", Success: true})

	select {
	case event := <-sink.Events():
		if event.EventType != "login" || event.UserID != "u1" || !event.Success {
			t.Fatalf("unexpected event: %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the event")
	}

	d.Close()
}

func TestDispatcherDisabled(t *testing.T) {
	if d := newAuditDispatcher(AuditConfig{}, NewChannelSink(1)); d != nil {
		t.Fatal("disabled audit must yield a nil dispatcher")
	}

	// A nil dispatcher absorbs everything.
	var d *auditDispatcher
	d.Emit(context.Background(), AuditEvent{EventType: "login"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestDispatcherDropsUnderBackpressure(t *testing.T) {
	// A sink that never accepts keeps the buffer full.
	blocked := make(chan struct{})
	sink := blockingSink{release: blocked}

	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// First event occupies the worker, second fills the buffer, the rest drop.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "login"})
	}

	if d.Dropped() == 0 {
		t.Fatal("expected drops under backpressure")
	}

	close(blocked)
	d.Close()
}

type blockingSink struct {
	release chan struct{}
}

func (s blockingSink) Emit(_ context.Context, _ AuditEvent) {
	<-s.release
}

func TestDispatcherCloseDrains(t *testing.T) {
	sink := NewChannelSink(64)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 64}, sink)

	const events = 20
	for i := 0; i < events; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "logout"})
	}
	d.Close()

	received := 0
	for {
		select {
		case <-sink.Events():
			received++
			if received == events {
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("drained only %d of %d events", received, events)
		}
	}
}

func TestDispatcherCloseIdempotent(t *testing.T) {
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 4}, NoOpSink{})
	d.Close()
	d.Close()

	// Emitting after close is a silent no-op.
	d.Emit(context.Background(), AuditEvent{EventType: "login"})
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{EventType: "refresh", UserID: "u1", Success: true})
	sink.Emit(context.Background(), AuditEvent{EventType: "logout", Success: true})

	scanner := bufio.NewScanner(&buf)
	var lines []AuditEvent
	for scanner.Scan() {
		var event AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("line did not parse as JSON: %v", err)
		}
		lines = append(lines, event)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSON lines, got %d", len(lines))
	}
	if lines[0].EventType != "refresh" || lines[1].EventType != "logout" {
		t.Fatalf("unexpected events: %+v", lines)
	}
}

func TestLogoutAuditNamesOwner(t *testing.T) {
	cfg := engineTestConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 64

	_, rdb := newTestRedis(t)
	sink := NewChannelSink(64)
	clock := newTestClock()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithDirectory(newMemDirectory()).
		WithAuditSink(sink).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	ctx := context.Background()
	pair, user := registerTestUser(t, engine, "alice@example.com", "s3cret-pass")
	if err := engine.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-sink.Events():
			if event.EventType != "logout" {
				continue
			}
			if event.UserID != user.ID {
				t.Fatalf("logout event names %q, want %q", event.UserID, user.ID)
			}
			if !event.Success {
				t.Fatalf("logout audited as failure: %+v", event)
			}
			return
		case <-deadline:
			t.Fatal("timed out waiting for the logout event")
		}
	}
}

func TestEngineEmitsAuditEvents(t *testing.T) {
	cfg := engineTestConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 64

	_, rdb := newTestRedis(t)
	sink := NewChannelSink(64)
	clock := newTestClock()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithDirectory(newMemDirectory()).
		WithAuditSink(sink).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	ctx := WithClientIP(context.Background(), "10.0.0.1")
	registerTestUser(t, engine, "alice@example.com", "s3cret-pass")
	if _, _, err := engine.Login(ctx, "alice@example.com", "bad-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	want := map[string]bool{"register": false, "login": false}
	deadline := time.After(2 * time.Second)
	for {
		done := true
		for _, seen := range want {
			if !seen {
				done = false
			}
		}
		if done {
			break
		}

		select {
		case event := <-sink.Events():
			if _, tracked := want[event.EventType]; tracked {
				want[event.EventType] = true
			}
			if event.EventType == "login" && event.Success {
				t.Fatalf("failed login audited as success: %+v", event)
			}
			if event.EventType == "login" && event.IP != "10.0.0.1" {
				t.Fatalf("expected client IP on login event, got %q", event.IP)
			}
		case <-deadline:
			t.Fatalf("timed out waiting for audit events, saw %+v", want)
		}
	}
}
