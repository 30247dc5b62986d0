package scan

import (
	"log/slog"
	"testing"
)

var discardLogger = slog.New(slog.NewTextHandler(&discardWriter{}, nil))

type discardWriter struct{}

func (d *discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestMachine_ScanningFlagFollowsEveryLabel(t *testing.T) {
	m := NewMachine(discardLogger)
	if m.Current() != StateIdle || m.Scanning() {
		t.Fatalf("expected idle start, got %v scanning=%v", m.Current(), m.Scanning())
	}
	cases := []struct {
		state    State
		scanning bool
	}{
		{StateScanning, true},
		{StateLeafDetected, true},
		{StateCapturing, true},
		{StateClassifying, true},
		{StateAdvising, true},
		{StateResultReady, false},
		{StateScanning, true},
		{StateError, false},
		{StateIdle, false},
	}
	for _, c := range cases {
		m.Apply(c.state)
		if m.Current() != c.state || m.Scanning() != c.scanning {
			t.Fatalf("after %s expected scanning=%v got state=%s scanning=%v", c.state, c.scanning, m.Current(), m.Scanning())
		}
	}
}

func TestMachine_UnknownLabelRendersNeutral(t *testing.T) {
	m := NewMachine(discardLogger)
	m.Apply(State("foo"))
	if m.Current() != "foo" {
		t.Fatalf("label should be kept verbatim, got %q", m.Current())
	}
	if m.Scanning() {
		t.Fatalf("unknown label must not count as scanning")
	}
	d := m.Display()
	if d.Label != "foo" || d.Color != NeutralColor || d.Tone != ToneNeutral || d.Pulse {
		t.Fatalf("unexpected display %+v", d)
	}
	if DisplayFor("").Label != "Unknown" {
		t.Fatalf("empty label should render as Unknown")
	}
}

func TestMachine_ListenersSeeTransitions(t *testing.T) {
	m := NewMachine(nil)
	var seq []State
	m.AddListener(func(prev, next State) { seq = append(seq, next) })
	m.Apply(StateScanning)
	m.Apply(StateLeafDetected)
	m.Reset()
	if len(seq) != 3 || seq[0] != StateScanning || seq[2] != StateIdle {
		t.Fatalf("unexpected sequence %v", seq)
	}
}

func TestMachine_NilSafe(t *testing.T) {
	var m *Machine
	m.Apply(StateScanning)
	if m.Current() != StateIdle || m.Scanning() {
		t.Fatalf("nil machine should read as idle")
	}
}
