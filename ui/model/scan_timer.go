package model

import (
	"time"
)

// ScanTimer tracks how long the current auto-scan has run, the accumulated
// scanning time of the session and how many scans were started.
// The zero value is ready to use.
type ScanTimer struct {
	active  bool
	started time.Time
	last    time.Duration
	total   time.Duration
	scans   int
}

// NewScanTimer returns a ready-to-use ScanTimer.
func NewScanTimer() *ScanTimer { return &ScanTimer{} }

// OnTick advances the timer from the observed scanning flag.
func (m *ScanTimer) OnTick(scanning bool, now time.Time) {
	if m == nil {
		return
	}
	switch {
	case scanning && !m.active:
		m.active = true
		m.started = now
		m.last = 0
		m.scans++
	case scanning:
		m.last = now.Sub(m.started)
	case m.active:
		m.last = now.Sub(m.started)
		m.total += m.last
		m.active = false
	}
}

// Values returns the current (or last) scan duration and the total scanning
// time including a running scan.
func (m *ScanTimer) Values() (current, total time.Duration) {
	if m == nil {
		return 0, 0
	}
	current, total = m.last, m.total
	if m.active {
		total += current
	}
	return
}

// Scans returns how many scans have been observed starting.
func (m *ScanTimer) Scans() int {
	if m == nil {
		return 0
	}
	return m.scans
}

// Reset forgets all history, used when the device is disconnected.
func (m *ScanTimer) Reset() {
	if m != nil {
		*m = ScanTimer{}
	}
}
