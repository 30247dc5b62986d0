package scan

import "log/slog"

// Listener is called after every applied state label, including repeats.
type Listener func(prev, next State)

// Machine is an observer replica of the backend's scan state. It never
// decides transitions itself: every change comes from Apply.
// Not safe for concurrent use; the owning controller serializes access.
type Machine struct {
	state     State
	scanning  bool
	logger    *slog.Logger
	listeners []Listener
}

// NewMachine returns a machine in the idle state.
func NewMachine(logger *slog.Logger) *Machine {
	return &Machine{state: StateIdle, logger: logger}
}

// AddListener registers l for subsequent changes.
func (m *Machine) AddListener(l Listener) {
	if m == nil || l == nil {
		return
	}
	m.listeners = append(m.listeners, l)
}

// Current returns the last applied label.
func (m *Machine) Current() State {
	if m == nil {
		return StateIdle
	}
	return m.state
}

// Scanning reports whether a scan is in progress. It is recomputed on every
// Apply so it never lags the label.
func (m *Machine) Scanning() bool {
	if m == nil {
		return false
	}
	return m.scanning
}

// Display returns the rendering of the current label.
func (m *Machine) Display() Display { return DisplayFor(m.Current()) }

// Apply replaces the current label with next.
func (m *Machine) Apply(next State) {
	if m == nil {
		return
	}
	prev := m.state
	m.state = next
	m.scanning = next.InProgress()
	if !next.Known() && m.logger != nil {
		m.logger.Warn("unrecognized scan state", "state", string(next))
	}
	if m.logger != nil && prev != next {
		m.logger.Debug("scan state transition", "from", prev.String(), "to", next.String())
	}
	for _, l := range m.listeners {
		l(prev, next)
	}
}

// Reset forces the idle label locally (used on disconnect).
func (m *Machine) Reset() { m.Apply(StateIdle) }
