package stream

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soocke/leafscan-go/domain/protocol"
	"github.com/soocke/leafscan-go/domain/scan"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type sink struct {
	mu       sync.Mutex
	events   []protocol.Event
	statuses []Status
}

func (s *sink) onEvent(_ context.Context, ev protocol.Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *sink) onStatus(_ context.Context, st Status, _ error) {
	s.mu.Lock()
	s.statuses = append(s.statuses, st)
	s.mu.Unlock()
}

func (s *sink) eventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *sink) hasStatus(st Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.statuses {
		if x == st {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func wsURL(srv *httptest.Server) string { return "ws" + strings.TrimPrefix(srv.URL, "http") }

// pushServer sends msgs on every connection, then holds it open until the
// client goes away. dropFirst closes the first connection after sending.
func pushServer(t *testing.T, msgs []string, dropFirst bool) (*httptest.Server, *int32) {
	t.Helper()
	var conns int32
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := atomic.AddInt32(&conns, 1)
		for _, m := range msgs {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		if dropFirst && n == 1 {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &conns
}

func TestClient_DeliversEventsInOrder(t *testing.T) {
	srv, _ := pushServer(t, []string{
		`{"event_type":"state_change","state":"scanning"}`,
		`not json`,
		`{"event_type":"telemetry"}`,
		`{"event_type":"detection","data":{"detections":[]}}`,
	}, false)
	var s sink
	c := New(Options{URL: wsURL(srv), MaxAttempts: 1, BaseDelay: time.Millisecond}, discardLogger(), s.onEvent, s.onStatus)
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer c.Close()
	waitFor(t, "three events", func() bool { return s.eventCount() == 3 })
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc, ok := s.events[0].(protocol.StateChange); !ok || sc.State != scan.StateScanning {
		t.Fatalf("unexpected first event %#v", s.events[0])
	}
	if _, ok := s.events[1].(protocol.Unknown); !ok {
		t.Fatalf("expected unknown kind forwarded, got %#v", s.events[1])
	}
	if _, ok := s.events[2].(protocol.DetectionUpdate); !ok {
		t.Fatalf("unexpected third event %#v", s.events[2])
	}
}

func TestClient_CloseIsDeterministic(t *testing.T) {
	srv, _ := pushServer(t, nil, false)
	var s sink
	c := New(Options{URL: wsURL(srv), MaxAttempts: 3, BaseDelay: time.Millisecond}, discardLogger(), s.onEvent, s.onStatus)
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	waitFor(t, "open", func() bool { return c.Status() == StatusOpen })
	c.Close()
	if c.Status() != StatusClosed {
		t.Fatalf("expected closed, got %s", c.Status())
	}
	if s.hasStatus(StatusReconnecting) {
		t.Fatalf("deliberate close must not reconnect")
	}
	c.Close() // idempotent
}

func TestClient_ReopenReplacesChannel(t *testing.T) {
	srv, conns := pushServer(t, nil, false)
	c := New(Options{URL: wsURL(srv), MaxAttempts: 1, BaseDelay: time.Millisecond}, discardLogger(), nil, nil)
	for i := 0; i < 2; i++ {
		if err := c.Open(context.Background()); err != nil {
			t.Fatalf("open: %v", err)
		}
		waitFor(t, "open", func() bool { return c.Status() == StatusOpen })
	}
	c.Close()
	waitFor(t, "two server connections", func() bool { return atomic.LoadInt32(conns) == 2 })
}

func TestClient_ReconnectsAfterDrop(t *testing.T) {
	srv, conns := pushServer(t, []string{`{"event_type":"state_change","state":"idle"}`}, true)
	var s sink
	c := New(Options{URL: wsURL(srv), MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}, discardLogger(), s.onEvent, s.onStatus)
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer c.Close()
	waitFor(t, "second connection", func() bool { return atomic.LoadInt32(conns) >= 2 })
	waitFor(t, "reopened", func() bool { return c.Status() == StatusOpen && s.eventCount() >= 2 })
	if !s.hasStatus(StatusReconnecting) {
		t.Fatalf("expected reconnecting status, got %v", s.statuses)
	}
}

func TestClient_LostAfterMaxAttempts(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(srv)
	srv.Close()
	var s sink
	c := New(Options{URL: url, MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}, discardLogger(), s.onEvent, s.onStatus)
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	waitFor(t, "lost", func() bool { return c.Status() == StatusLost })
	if !s.hasStatus(StatusLost) {
		t.Fatalf("lost status not reported")
	}
	c.Close()
	if c.Status() != StatusClosed {
		t.Fatalf("close after lost should report closed")
	}
}

func TestClient_OpenWithoutURL(t *testing.T) {
	c := New(Options{}, discardLogger(), nil, nil)
	if err := c.Open(context.Background()); err != ErrNoURL {
		t.Fatalf("expected ErrNoURL, got %v", err)
	}
}

func TestBackoff(t *testing.T) {
	base, max := 100*time.Millisecond, time.Second
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second, time.Second}
	for i, w := range want {
		if got := Backoff(i+1, base, max); got != w {
			t.Fatalf("attempt %d: got %v want %v", i+1, got, w)
		}
	}
}
