// Package session owns one scan session: the device connection, its event
// channel, the observed scan state, results and actuator commands. All
// mutation happens on a single event-loop goroutine.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soocke/leafscan-go/config"
	"github.com/soocke/leafscan-go/domain/motor"
	"github.com/soocke/leafscan-go/domain/protocol"
	"github.com/soocke/leafscan-go/domain/results"
	"github.com/soocke/leafscan-go/domain/rig"
	"github.com/soocke/leafscan-go/domain/scan"
	"github.com/soocke/leafscan-go/domain/stream"
	"github.com/soocke/leafscan-go/prefs"
)

// Backend is the REST surface the controller drives.
type Backend interface {
	Status(ctx context.Context) (rig.Status, error)
	Connect(ctx context.Context, address string, port int) error
	Disconnect(ctx context.Context) error
	Motor(ctx context.Context, cmd rig.MotorCommand) error
	StartScan(ctx context.Context, opts rig.ScanOptions) error
	StopScan(ctx context.Context) error
	Detect(ctx context.Context) (rig.DetectResult, error)
}

// DeviceStore persists the last device connected to.
type DeviceStore interface {
	SaveDevice(d prefs.Device) error
}

// Controller is the single owner of a scan session. Methods only post
// requests to the loop and never block on the network.
type Controller struct {
	backend Backend
	store   DeviceStore
	logger  *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	events    chan any
	quit      chan struct{}
	done      chan struct{}
	inflight  sync.WaitGroup
	closeOnce sync.Once

	snap    atomic.Pointer[Snapshot]
	updates chan struct{}

	// loop-owned state
	machine    *scan.Machine
	agg        *results.Aggregator
	motor      *motor.Dispatcher
	stream     *stream.Client
	streamGen  uint64
	connectGen uint64
	streamOpts stream.Options
	cur        Snapshot
}

// New builds a controller from cfg, starts its loop and runs the one-shot
// status reconciliation. store may be nil.
func New(backend Backend, store DeviceStore, cfg *config.Config, logger *slog.Logger) *Controller {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		backend: backend,
		store:   store,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		events:  make(chan any, 128),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		updates: make(chan struct{}, 1),
		machine: scan.NewMachine(logger),
		agg:     results.New(results.Correlation(cfg.AdviceCorrelation), cfg.ResultLimit, logger),
	}
	c.motor = motor.NewDispatcher(backend, logger, cfg.StepDegrees, cfg.RailSpeed, cfg.HoldInterval(), c.onMotorFailure)
	c.streamOpts = streamOptions(cfg)
	c.cur = Snapshot{
		DeviceAddress:       cfg.DeviceAddress,
		DevicePort:          cfg.DevicePort,
		State:               scan.StateIdle,
		Display:             scan.DisplayFor(scan.StateIdle),
		Stream:              stream.StatusClosed,
		Model:               protocol.Model(cfg.ModelType),
		DetectionConfidence: cfg.DetectionConfidence,
	}
	c.publish()
	go func() {
		defer close(c.done)
		defer recoverLog(logger, "session loop panic")
		c.loop()
	}()
	c.ReconcileStatus()
	return c
}

func streamOptions(cfg *config.Config) stream.Options {
	return stream.Options{
		URL:         cfg.StreamURL(),
		MaxAttempts: cfg.ReconnectMaxAttempts,
		BaseDelay:   cfg.ReconnectBase(),
		MaxDelay:    cfg.ReconnectMax(),
	}
}

// Snapshot returns the latest published view.
func (c *Controller) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{State: scan.StateIdle, Display: scan.DisplayFor(scan.StateIdle), Stream: stream.StatusClosed}
	}
	return *c.snap.Load()
}

// Updates is signalled (coalesced) after every published change.
func (c *Controller) Updates() <-chan struct{} { return c.updates }

// Public API. Every call is a request to the loop.

// Connect asks the backend to connect to address:port. Ignored while another
// connect is in flight.
func (c *Controller) Connect(address string, port int) {
	c.send(evtConnect{address: address, port: port})
}

// Disconnect resets local state to idle at once and then tells the backend.
func (c *Controller) Disconnect() { c.send(evtDisconnect{}) }

// ReconcileStatus fetches the backend status once.
func (c *Controller) ReconcileStatus() { c.send(evtReconcile{}) }

// StartScan starts the automatic scan with the configured model and threshold.
func (c *Controller) StartScan() { c.send(evtStartScan{}) }

// StopScan stops the automatic scan.
func (c *Controller) StopScan() { c.send(evtStopScan{}) }

// Detect runs a one-shot detection.
func (c *Controller) Detect() { c.send(evtDetect{}) }

// Move sends one motor command.
func (c *Controller) Move(dir rig.Direction) { c.send(evtMove{dir: dir}) }

// StartHold starts hold-to-repeat motion in dir.
func (c *Controller) StartHold(dir rig.Direction) { c.send(evtStartHold{dir: dir}) }

// StopHold ends hold-to-repeat motion with a stop command.
func (c *Controller) StopHold() { c.send(evtStopHold{}) }

// DismissError clears the user-facing error.
func (c *Controller) DismissError() { c.send(evtDismiss{}) }

// ClearResults empties the result list without touching scan state.
func (c *Controller) ClearResults() { c.send(evtClearResults{}) }

// SelectModel changes the model used by the next StartScan.
func (c *Controller) SelectModel(m protocol.Model, confidence float64) {
	c.send(evtSelectModel{model: m, confidence: confidence})
}

// ApplyConfig applies a reloaded configuration without reconnecting. The
// stream settings take effect on the next channel open.
func (c *Controller) ApplyConfig(cfg *config.Config) {
	if cfg != nil {
		c.send(evtConfig{cfg: cfg})
	}
}

// Close is the single disposer: it cancels any hold, closes the event
// channel, stops the loop and waits for in-flight requests to return.
func (c *Controller) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		close(c.quit)
		<-c.done
		c.cancel()
		c.inflight.Wait()
	})
}

func (c *Controller) send(ev any) {
	if c == nil {
		return
	}
	select {
	case c.events <- ev:
	case <-c.quit:
	}
}

// request runs fn off the loop and posts its result.
func (c *Controller) request(fn func(ctx context.Context) any) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		defer recoverLog(c.logger, "session request panic")
		if ev := fn(c.ctx); ev != nil {
			c.send(ev)
		}
	}()
}

func (c *Controller) onMotorFailure(cmd rig.MotorCommand, err error) {
	select {
	case c.events <- evtNotice{message: rig.Message(err, fmt.Sprintf("Motor command %q failed", cmd.Direction)), err: err}:
	default:
	}
}

func (c *Controller) loop() {
	for {
		select {
		case <-c.quit:
			c.shutdown()
			return
		case ev := <-c.events:
			c.handle(ev)
			c.publish()
		}
	}
}

func (c *Controller) shutdown() {
	c.motor.Close()
	c.closeStream()
	c.cur.Holding, c.cur.HoldDirection = false, ""
	c.publish()
	if c.logger != nil {
		c.logger.Info("session closed", "session", c.cur.SessionID)
	}
}

func (c *Controller) publish() {
	s := c.cur
	s.State = c.machine.Current()
	s.Display = c.machine.Display()
	s.Scanning = c.machine.Scanning()
	s.Results = c.agg.Results()
	if prev := c.snap.Load(); prev != nil {
		s.Version = prev.Version + 1
	}
	c.snap.Store(&s)
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

func recoverLog(logger *slog.Logger, msg string) {
	if r := recover(); r != nil {
		if logger != nil {
			logger.Error(msg, "error", r, "stack", string(debug.Stack()))
		}
	}
}

// Loop events.
type (
	evtDisconnect   struct{}
	evtReconcile    struct{}
	evtStartScan    struct{}
	evtScanStarted  struct{ err error }
	evtStopScan     struct{}
	evtScanStopped  struct{ err error }
	evtDetect       struct{}
	evtMove         struct{ dir rig.Direction }
	evtStartHold    struct{ dir rig.Direction }
	evtStopHold     struct{}
	evtDismiss      struct{}
	evtClearResults struct{}
	evtConfig       struct{ cfg *config.Config }
)

type (
	evtConnect struct {
		address string
		port    int
	}
	evtConnectDone struct {
		gen     uint64
		address string
		port    int
		err     error
	}
	evtStatus struct {
		st  rig.Status
		err error
	}
	evtReadiness struct {
		st  rig.Status
		err error
	}
	evtDetected struct {
		res rig.DetectResult
		err error
	}
	evtSelectModel struct {
		model      protocol.Model
		confidence float64
	}
	evtNotice struct {
		message string
		err     error
	}
	evtStream struct {
		gen uint64
		ev  protocol.Event
	}
	evtStreamStatus struct {
		gen    uint64
		status stream.Status
		err    error
	}
)

// now is replaced in tests.
var now = time.Now
