package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/soocke/leafscan-go/domain/protocol"
	"github.com/soocke/leafscan-go/domain/results"
	"github.com/soocke/leafscan-go/domain/rig"
	"github.com/soocke/leafscan-go/domain/scan"
	"github.com/soocke/leafscan-go/domain/session"
	"github.com/soocke/leafscan-go/domain/stream"
)

type fakeCtrl struct {
	snap    session.Snapshot
	updates chan struct{}
	calls   []string
}

func newFake() *fakeCtrl {
	return &fakeCtrl{
		snap:    session.Snapshot{State: scan.StateIdle, Display: scan.DisplayFor(scan.StateIdle), Stream: stream.StatusClosed},
		updates: make(chan struct{}, 1),
	}
}

func (f *fakeCtrl) Snapshot() session.Snapshot { return f.snap }
func (f *fakeCtrl) Updates() <-chan struct{}   { return f.updates }
func (f *fakeCtrl) Connect(a string, p int)    { f.calls = append(f.calls, "connect "+a) }
func (f *fakeCtrl) Disconnect()                { f.calls = append(f.calls, "disconnect") }
func (f *fakeCtrl) StartScan()                 { f.calls = append(f.calls, "start") }
func (f *fakeCtrl) StopScan()                  { f.calls = append(f.calls, "stop") }
func (f *fakeCtrl) Detect()                    { f.calls = append(f.calls, "detect") }
func (f *fakeCtrl) Move(d rig.Direction)       { f.calls = append(f.calls, "move "+string(d)) }
func (f *fakeCtrl) DismissError()              { f.calls = append(f.calls, "dismiss") }
func (f *fakeCtrl) ClearResults()              { f.calls = append(f.calls, "clear") }

func press(m tea.Model, keys ...string) tea.Model {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, _ = m.Update(msg)
	}
	return m
}

func TestKeysDriveController(t *testing.T) {
	f := newFake()
	m := NewModel(f, "10.0.0.7", 80)
	press(m, "c", "s", "t", "d", "left", "up", "l", "j", "0", ".", "e", "r", "x")
	want := []string{
		"connect 10.0.0.7", "start", "stop", "detect",
		"move left", "move up", "move right", "move down", "move center", "move stop",
		"dismiss", "clear", "disconnect",
	}
	if strings.Join(f.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v", f.calls)
	}
}

func TestQuitKey(t *testing.T) {
	m := NewModel(newFake(), "a", 80)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
	if next.View() != "" {
		t.Fatalf("quitting view should be empty")
	}
}

func TestSnapshotRendering(t *testing.T) {
	f := newFake()
	m := NewModel(f, "10.0.0.7", 80)
	now := time.Unix(5000, 0)
	s := session.Snapshot{
		Connected: true, DeviceAddress: "10.0.0.7", DevicePort: 80, Stream: stream.StatusOpen,
		State: scan.StateScanning, Display: scan.DisplayFor(scan.StateScanning), Scanning: true,
		Frame:      &session.Frame{Seq: 3, Position: &protocol.Position{Pan: 45, Tilt: 30}, Progress: "4/91"},
		Detections: []protocol.Detection{{Confidence: 0.9}},
		Results: []results.Result{
			{ScanIndex: 1, Disease: "Tomato_Late_Blight", Confidence: 0.67, HasAdvice: true,
				Advice: protocol.AdviceBody{"severity": "High", "action_plan": "Remove infected plants."}, ReceivedAt: now},
		},
		LastError: "Event stream lost",
		Notice:    &session.Notice{Message: "Auto-scan already running", At: now},
	}
	next, cmd := m.Update(snapMsg(s))
	if cmd == nil {
		t.Fatalf("snapshot should re-arm the watcher")
	}
	next, _ = next.Update(tickMsg(now))
	out := next.View()
	for _, want := range []string{
		"Scanning...", "Connected to 10.0.0.7:80", "4/91", "Pan 45° Tilt 30°",
		"Results (1)", "Tomato Late Blight 67%", "[High]", "Remove infected plants.",
		"Event stream lost", "Auto-scan already running",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q:\n%s", want, out)
		}
	}
}

func TestWatcherReadsSnapshotAfterSignal(t *testing.T) {
	f := newFake()
	m := NewModel(f, "a", 80)
	f.snap.LastError = "boom"
	f.updates <- struct{}{}
	msg := m.waitForUpdate()()
	if s, ok := msg.(snapMsg); !ok || s.LastError != "boom" {
		t.Fatalf("unexpected message %#v", msg)
	}
}

func TestParseProgress(t *testing.T) {
	if d, n, ok := parseProgress("12/91"); !ok || d != 12 || n != 91 {
		t.Fatalf("parse failed: %d %d %v", d, n, ok)
	}
	for _, bad := range []string{"", "12", "a/b", "5/0", "9/3"} {
		if _, _, ok := parseProgress(bad); ok {
			t.Fatalf("%q should not parse", bad)
		}
	}
}
