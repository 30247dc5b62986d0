package model

import (
	"sync"
	"time"
)

// FeedModel remembers what the feed view currently shows so presenters only
// recompose when the frame or detection list actually changed. It also keeps
// a smoothed render rate for the status line. Safe for concurrent use.
type FeedModel struct {
	mu        sync.Mutex
	frameSeq  uint64
	detSeq    uint64
	rendered  uint64
	lastAt    time.Time
	fps       float64
	lastCost  time.Duration
	blank     bool
	Smoothing float64 // weight of the newest sample, 0 < s <= 1
}

// NewFeedModel returns a model with the default smoothing.
func NewFeedModel() *FeedModel { return &FeedModel{Smoothing: 0.2, blank: true} }

// Stale reports whether (frameSeq, detSeq) differs from what is shown.
func (m *FeedModel) Stale(frameSeq, detSeq uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return frameSeq != m.frameSeq || detSeq != m.detSeq
}

// MarkRequested records the pair handed to the compositor.
func (m *FeedModel) MarkRequested(frameSeq, detSeq uint64) {
	m.mu.Lock()
	m.frameSeq, m.detSeq = frameSeq, detSeq
	m.mu.Unlock()
}

// Rendered records a finished composition that took cost.
func (m *FeedModel) Rendered(now time.Time, cost time.Duration, blank bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rendered++
	m.lastCost = cost
	m.blank = blank
	if !m.lastAt.IsZero() {
		if dt := now.Sub(m.lastAt).Seconds(); dt > 0 {
			s := m.Smoothing
			if s <= 0 || s > 1 {
				s = 0.2
			}
			if m.fps == 0 {
				m.fps = 1 / dt
			} else {
				m.fps = s*(1/dt) + (1-s)*m.fps
			}
		}
	}
	m.lastAt = now
}

// Reset clears the shown pair, forcing the next tick to recompose.
func (m *FeedModel) Reset() {
	m.mu.Lock()
	m.frameSeq, m.detSeq = 0, 0
	m.fps, m.lastAt, m.blank = 0, time.Time{}, true
	m.mu.Unlock()
}

// FeedStats is a read-only copy of the render counters.
type FeedStats struct {
	Rendered uint64
	FPS      float64
	LastCost time.Duration
	Blank    bool
}

// Stats returns the render counters.
func (m *FeedModel) Stats() FeedStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return FeedStats{Rendered: m.rendered, FPS: m.fps, LastCost: m.lastCost, Blank: m.blank}
}
