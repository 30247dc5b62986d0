package debug

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
)

// StartMemLogger logs resident set size next to Go heap stats every interval
// until ctx is done. A failing RSS query is logged once and then reported as 0.
func StartMemLogger(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		var rssErrLogged bool
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			rss, err := residentBytes()
			if err != nil && !rssErrLogged {
				logger.Warn("memlog: rss query failed", slog.String("err", err.Error()))
				rssErrLogged = true
			}
			logger.Info("memstats",
				slog.Int("goroutines", runtime.NumGoroutine()),
				slog.String("heap_alloc", humanize.IBytes(ms.HeapAlloc)),
				slog.String("heap_inuse", humanize.IBytes(ms.HeapInuse)),
				slog.String("heap_idle", humanize.IBytes(ms.HeapIdle)),
				slog.String("heap_sys", humanize.IBytes(ms.HeapSys)),
				slog.String("next_gc", humanize.IBytes(ms.NextGC)),
				slog.String("rss", humanize.IBytes(rss)),
				slog.Uint64("num_gc", uint64(ms.NumGC)),
			)
		}
	}()
}
