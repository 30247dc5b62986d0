package debug

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
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
	t.Fatalf("timed out waiting for %s", what)
}

func TestReadGoroutinesCountsCaller(t *testing.T) {
	if s := ReadGoroutines(); s.Goroutines == 0 || s.HeapAlloc == 0 {
		t.Fatalf("unexpected sample %+v", s)
	}
}

func TestResidentBytes(t *testing.T) {
	rss, err := residentBytes()
	if err != nil {
		t.Fatalf("residentBytes: %v", err)
	}
	if rss == 0 {
		t.Fatalf("rss should be non-zero")
	}
}

func TestLoggersEmitUntilCancelled(t *testing.T) {
	var out syncBuffer
	logger := slog.New(slog.NewJSONHandler(&out, nil))
	ctx, cancel := context.WithCancel(context.Background())
	StartGoroutineLogger(ctx, 5*time.Millisecond, logger)
	StartMemLogger(ctx, 5*time.Millisecond, logger)
	waitFor(t, "both log lines", func() bool {
		s := out.String()
		return strings.Contains(s, `"goroutine-stacks"`) && strings.Contains(s, `"memstats"`)
	})
	cancel()
}
