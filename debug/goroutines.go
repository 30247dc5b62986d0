// Package debug holds the runtime loggers started with --debug. They help
// tell a leaking stream reconnect or feed worker apart from plain heap growth.
package debug

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/metrics"
	"time"

	"github.com/dustin/go-humanize"
)

// GoroutineSample is one reading of scheduler and stack usage.
type GoroutineSample struct {
	Goroutines uint64
	StackInuse uint64
	StackSys   uint64
	HeapAlloc  uint64
}

// ReadGoroutines samples the runtime once.
func ReadGoroutines() GoroutineSample {
	samples := []metrics.Sample{{Name: "/sched/goroutines:goroutines"}}
	metrics.Read(samples)
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s := GoroutineSample{StackInuse: ms.StackInuse, StackSys: ms.StackSys, HeapAlloc: ms.HeapAlloc}
	if samples[0].Value.Kind() == metrics.KindUint64 {
		s.Goroutines = samples[0].Value.Uint64()
	}
	return s
}

// StartGoroutineLogger logs goroutine count and stack memory every interval
// until ctx is done.
func StartGoroutineLogger(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Second
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			s := ReadGoroutines()
			logger.Info("goroutine-stacks",
				slog.Uint64("goroutines", s.Goroutines),
				slog.String("stack_inuse", humanize.IBytes(s.StackInuse)),
				slog.String("stack_sys", humanize.IBytes(s.StackSys)),
				slog.String("heap_alloc", humanize.IBytes(s.HeapAlloc)),
			)
		}
	}()
}
