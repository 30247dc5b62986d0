// Package results keeps the newest-first list of classification results and
// attaches advice that arrives after them.
package results

import (
	"log/slog"
	"maps"
	"time"

	"github.com/soocke/leafscan-go/domain/protocol"
)

// Correlation selects how advice is matched to a result.
type Correlation string

const (
	// ByScanIndex matches advice.scan_index against results, falling back to
	// the newest result when the advice has no index or nothing matches.
	ByScanIndex Correlation = "scan_index"
	// Positional always attaches advice to the newest result. It is the
	// default.
	Positional Correlation = "positional"
)

// Result is one classified leaf. Only Advice and Thumbnail change after
// creation.
type Result struct {
	ScanIndex       int
	Disease         string
	Confidence      float64
	Model           protocol.Model
	InferenceTimeMs float64
	AllPredictions  map[string]float64
	Position        *protocol.Position
	Advice          protocol.AdviceBody
	HasAdvice       bool
	Thumbnail       []byte
	ReceivedAt      time.Time
}

// Healthy reports whether the classification found no disease.
func (r Result) Healthy() bool { return r.Disease == "Healthy" }

// Aggregator is not safe for concurrent use; the session loop owns it.
type Aggregator struct {
	mode    Correlation
	limit   int
	logger  *slog.Logger
	now     func() time.Time
	results []Result
}

// New returns an empty aggregator. limit <= 0 keeps every result.
func New(mode Correlation, limit int, logger *slog.Logger) *Aggregator {
	if mode != ByScanIndex {
		mode = Positional
	}
	return &Aggregator{mode: mode, limit: limit, logger: logger, now: time.Now}
}

// SetMode switches correlation for subsequent advice.
func (a *Aggregator) SetMode(mode Correlation) {
	if a == nil {
		return
	}
	if mode != ByScanIndex {
		mode = Positional
	}
	a.mode = mode
}

// SetLimit bounds the list, dropping the oldest entries.
func (a *Aggregator) SetLimit(limit int) {
	if a == nil {
		return
	}
	a.limit = limit
	a.trim()
}

// AddClassification prepends a new result.
func (a *Aggregator) AddClassification(c protocol.Classification) Result {
	if a == nil {
		return Result{}
	}
	r := Result{
		ScanIndex:       c.ScanIndex,
		Disease:         c.Disease,
		Confidence:      c.Confidence,
		Model:           c.Model,
		InferenceTimeMs: c.InferenceTimeMs,
		AllPredictions:  maps.Clone(c.AllPredictions),
		Position:        c.Position,
		ReceivedAt:      a.now(),
	}
	a.results = append([]Result{r}, a.results...)
	a.trim()
	return r
}

// MergeAdvice attaches adv to a result and returns the index it landed on,
// or -1 when the list is empty.
func (a *Aggregator) MergeAdvice(adv protocol.Advice) int {
	if a == nil || len(a.results) == 0 {
		if a != nil && a.logger != nil {
			a.logger.Warn("advice without a result", "scan_index", adv.ScanIndex)
		}
		return -1
	}
	idx := 0
	if a.mode == ByScanIndex && adv.HasScanIndex {
		idx = -1
		for i, r := range a.results {
			if r.ScanIndex == adv.ScanIndex {
				idx = i
				break
			}
		}
		if idx < 0 {
			if a.logger != nil {
				a.logger.Warn("advice scan index not found, using newest result", "scan_index", adv.ScanIndex)
			}
			idx = 0
		}
	}
	r := &a.results[idx]
	r.Advice = maps.Clone(adv.Advice)
	r.HasAdvice = true
	if len(adv.Image) > 0 {
		r.Thumbnail = adv.Image
	}
	return idx
}

// Clear empties the list.
func (a *Aggregator) Clear() {
	if a == nil {
		return
	}
	a.results = nil
}

// Len returns the number of results.
func (a *Aggregator) Len() int {
	if a == nil {
		return 0
	}
	return len(a.results)
}

// Results returns a copy of the list, newest first.
func (a *Aggregator) Results() []Result {
	if a == nil {
		return nil
	}
	return append([]Result(nil), a.results...)
}

func (a *Aggregator) trim() {
	if a.limit > 0 && len(a.results) > a.limit {
		a.results = a.results[:a.limit]
	}
}
