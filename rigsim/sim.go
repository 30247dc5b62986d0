// Package rigsim is an in-process stand-in for the device-control backend:
// the REST surface for connect, motor, detect and scan control, and the
// websocket event channel carrying the auto-scan's events.
package rigsim

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/soocke/leafscan-go/domain/protocol"
	"github.com/soocke/leafscan-go/domain/rig"
	"github.com/soocke/leafscan-go/domain/scan"
)

// Servo limits and the home position.
const (
	ServoMin    = 0
	ServoMax    = 180
	CenterPan   = 90
	CenterTilt  = 90
	DefaultPort = 80
)

// Options configures a simulator. Zero values pick defaults.
type Options struct {
	Camera     Camera
	Classifier Classifier
	Advisor    Advisor
	Logger     *slog.Logger

	// Unreachable lists device addresses that refuse connections.
	Unreachable []string
	// DetectorMissing reports the detection model as not loaded.
	DetectorMissing bool

	InitialSettle time.Duration // before the first position
	SettleDelay   time.Duration // after every move
	StepPause     time.Duration // between positions
	ResultPause   time.Duration // after a processed leaf
}

// FastOptions returns options with every delay shortened for tests.
func FastOptions() Options {
	return Options{
		InitialSettle: time.Millisecond,
		SettleDelay:   time.Millisecond,
		StepPause:     time.Millisecond,
		ResultPause:   time.Millisecond,
	}
}

func (o *Options) defaults() {
	if o.Camera == nil {
		o.Camera = NewSyntheticCamera(DefaultField())
	}
	if o.Classifier == nil {
		o.Classifier = DefaultClassifier
	}
	if o.Advisor == nil {
		o.Advisor = DefaultAdvisor
	}
	if o.InitialSettle == 0 {
		o.InitialSettle = time.Second
	}
	if o.SettleDelay == 0 {
		o.SettleDelay = 300 * time.Millisecond
	}
	if o.StepPause == 0 {
		o.StepPause = 100 * time.Millisecond
	}
	if o.ResultPause == 0 {
		o.ResultPause = time.Second
	}
}

var (
	errNotConnected = errors.New("ESP32-CAM not connected")
	errNoDetector   = errors.New("YOLO model not loaded")
	errScanRunning  = errors.New("Auto-scan already running")
)

// Sim is a simulated device-control backend.
type Sim struct {
	opts   Options
	logger *slog.Logger
	hub    *Hub

	mu        sync.Mutex
	connected bool
	address   string
	port      int
	pan, tilt int
	rail      rig.RailState
	commands  []rig.MotorCommand
	state     scan.State
	results   []rig.StoredResult
	scanIndex int
	cancel    func()
	scanDone  chan struct{}
}

// New returns a simulator in the disconnected, idle state.
func New(opts Options) *Sim {
	opts.defaults()
	s := &Sim{
		opts:   opts,
		logger: opts.Logger,
		pan:    CenterPan,
		tilt:   CenterTilt,
		rail:   rig.RailState{Position: rig.RailHome, Direction: rig.Stop},
		state:  scan.StateIdle,
	}
	s.hub = NewHub(opts.Logger, s.command)
	return s
}

// Handler returns the HTTP surface.
func (s *Sim) Handler() http.Handler { return NewRouter(s) }

// Hub exposes the event channel fan-out.
func (s *Sim) Hub() *Hub { return s.hub }

// Close stops any running scan and disconnects every subscriber.
func (s *Sim) Close() {
	s.cancelScan()
	s.hub.Close()
}

// Broadcast pushes an arbitrary event to every subscriber.
func (s *Sim) Broadcast(kind protocol.Kind, state scan.State, data any) error {
	msg, err := protocol.Encode(kind, state, data)
	if err != nil {
		return err
	}
	s.hub.Broadcast(msg)
	return nil
}

// Commands returns the motor commands received so far.
func (s *Sim) Commands() []rig.MotorCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]rig.MotorCommand(nil), s.commands...)
}

// Position returns the current servo position.
func (s *Sim) Position() protocol.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return protocol.Position{Pan: s.pan, Tilt: s.tilt}
}

// State returns the scanner state.
func (s *Sim) State() scan.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status mirrors the backend's status report.
func (s *Sim) Status() rig.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := rig.Status{
		Connected:          s.connected,
		ScanState:          s.state,
		YoloLoaded:         !s.opts.DetectorMissing,
		VisionEngineLoaded: true,
		ScanResultsCount:   len(s.results),
	}
	if s.connected {
		st.IPAddress = fmt.Sprintf("http://%s:%d", s.address, s.port)
	}
	return st
}

// Connect marks the device connected unless its address is unreachable.
func (s *Sim) Connect(address string, port int) error {
	if port == 0 {
		port = DefaultPort
	}
	for _, a := range s.opts.Unreachable {
		if a == address {
			return fmt.Errorf("Cannot reach ESP32-CAM at %s:%d", address, port)
		}
	}
	s.mu.Lock()
	s.connected, s.address, s.port = true, address, port
	s.mu.Unlock()
	if s.logger != nil {
		s.logger.Info("device connected", "address", address, "port", port)
	}
	return nil
}

// Disconnect stops any scan and drops the device.
func (s *Sim) Disconnect() {
	s.cancelScan()
	s.mu.Lock()
	s.connected = false
	s.state = scan.StateIdle
	s.mu.Unlock()
}

// Move applies one motor command.
func (s *Sim) Move(cmd rig.MotorCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return errNotConnected
	}
	s.commands = append(s.commands, cmd)
	switch cmd.Direction {
	case rig.Left:
		s.pan = clamp(s.pan - cmd.Step)
	case rig.Right:
		s.pan = clamp(s.pan + cmd.Step)
	case rig.Up:
		s.tilt = clamp(s.tilt - cmd.Step)
	case rig.Down:
		s.tilt = clamp(s.tilt + cmd.Step)
	case rig.Center:
		s.pan, s.tilt = CenterPan, CenterTilt
	}
	return nil
}

// SetPosition moves both servos.
func (s *Sim) SetPosition(pos protocol.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return errNotConnected
	}
	s.pan, s.tilt = clamp(pos.Pan), clamp(pos.Tilt)
	return nil
}

// Capture takes one still at the current position.
func (s *Sim) Capture() (Shot, error) {
	s.mu.Lock()
	connected, pos := s.connected, protocol.Position{Pan: s.pan, Tilt: s.tilt}
	s.mu.Unlock()
	if !connected {
		return Shot{}, errNotConnected
	}
	return s.opts.Camera.Capture(pos)
}

// Results returns the stored results of the current or last scan.
func (s *Sim) Results() []rig.StoredResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]rig.StoredResult(nil), s.results...)
}

// command serves inbound event channel commands.
func (s *Sim) command(cmd Command) error {
	switch cmd.Command {
	case "start_scan":
		opts := rig.ScanOptions{ModelType: protocol.Model(cmd.ModelType), DetectionConfidence: cmd.DetectionConfidence}
		return s.StartScan(opts)
	case "stop_scan":
		s.StopScan()
		return nil
	case "motor_left":
		return s.Move(rig.MotorCommand{Direction: rig.Left, Step: 10})
	case "motor_right":
		return s.Move(rig.MotorCommand{Direction: rig.Right, Step: 10})
	case "motor_stop":
		return s.Move(rig.MotorCommand{Direction: rig.Stop})
	default:
		return fmt.Errorf("unknown command %q", cmd.Command)
	}
}

func clamp(v int) int {
	return max(ServoMin, min(ServoMax, v))
}

func recoverLog(logger *slog.Logger, msg string) {
	if r := recover(); r != nil && logger != nil {
		logger.Error(msg, "error", r, "stack", string(debug.Stack()))
	}
}
