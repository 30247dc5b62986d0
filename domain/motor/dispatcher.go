// Package motor issues actuator commands, including hold-to-repeat motion.
package motor

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soocke/leafscan-go/domain/rig"
)

// Sender delivers one command to the backend.
type Sender interface {
	Motor(ctx context.Context, cmd rig.MotorCommand) error
}

// FailureFunc is told about commands the backend rejected. It may run on
// several request goroutines at once and must not block.
type FailureFunc func(cmd rig.MotorCommand, err error)

type hold struct {
	dir      rig.Direction
	done     chan struct{}
	exited   chan struct{}
	inflight atomic.Bool // a command of this hold is still outstanding
}

// Dispatcher issues every command as its own request, so a hung request
// never delays a later one and callers never wait on the network. At most
// one hold is active at a time.
type Dispatcher struct {
	sender    Sender
	logger    *slog.Logger
	onFailure FailureFunc

	step     atomic.Int64
	speed    atomic.Int64
	interval atomic.Int64 // nanoseconds

	ctx     context.Context
	cancel  context.CancelFunc
	closeMu sync.RWMutex // orders wg.Add against Close
	wg      sync.WaitGroup

	mu   sync.Mutex
	hold *hold
}

// NewDispatcher returns a dispatcher over sender. step is the per-command
// servo increment in degrees; interval is the hold repeat period.
func NewDispatcher(sender Sender, logger *slog.Logger, step, speed int, interval time.Duration, onFailure FailureFunc) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{sender: sender, logger: logger, onFailure: onFailure, ctx: ctx, cancel: cancel}
	d.SetStep(step)
	d.SetSpeed(speed)
	d.SetInterval(interval)
	return d
}

// SetStep changes the servo increment for subsequent commands.
func (d *Dispatcher) SetStep(step int) {
	if step < 1 {
		step = 1
	}
	d.step.Store(int64(step))
}

// SetSpeed changes the rail speed for subsequent commands.
func (d *Dispatcher) SetSpeed(speed int) {
	d.speed.Store(int64(max(0, min(speed, 255))))
}

// SetInterval changes the hold period. A running hold keeps its period.
func (d *Dispatcher) SetInterval(iv time.Duration) {
	if iv <= 0 {
		iv = 300 * time.Millisecond
	}
	d.interval.Store(int64(iv))
}

// Interval returns the hold period.
func (d *Dispatcher) Interval() time.Duration { return time.Duration(d.interval.Load()) }

// Command builds the command for dir at the current step and speed.
func (d *Dispatcher) Command(dir rig.Direction) rig.MotorCommand {
	return rig.MotorCommand{Direction: dir, Step: int(d.step.Load()), Speed: int(d.speed.Load())}
}

// SendCommand issues one command and returns immediately.
func (d *Dispatcher) SendCommand(dir rig.Direction) {
	if d == nil {
		return
	}
	d.send(d.Command(dir), nil)
}

// StartHold issues one command for dir at once, then repeats it every
// interval until StopHold, Cancel or another StartHold. A prior hold's timer
// is stopped before the new one's first command is issued. A tick is skipped
// while the hold's previous command is still outstanding.
func (d *Dispatcher) StartHold(dir rig.Direction) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.endHoldLocked()
	if d.ctx.Err() != nil {
		return
	}
	h := &hold{dir: dir, done: make(chan struct{}), exited: make(chan struct{})}
	d.send(d.Command(dir), h)
	d.hold = h
	go d.repeat(h, d.Interval())
	if d.logger != nil {
		d.logger.Debug("hold started", "direction", dir)
	}
}

// StopHold ends any active hold and issues exactly one stop command, which
// does not wait for commands still outstanding.
func (d *Dispatcher) StopHold() {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.endHoldLocked()
	d.send(d.Command(rig.Stop), nil)
}

// Cancel ends any active hold without sending a stop command.
func (d *Dispatcher) Cancel() {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.endHoldLocked()
}

// Active reports the direction of the running hold, if any.
func (d *Dispatcher) Active() (rig.Direction, bool) {
	if d == nil {
		return "", false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.hold == nil {
		return "", false
	}
	return d.hold.dir, true
}

// Close cancels any hold, aborts outstanding requests and waits for them.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.Cancel()
	d.closeMu.Lock()
	d.cancel()
	d.closeMu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) endHoldLocked() {
	if d.hold == nil {
		return
	}
	close(d.hold.done)
	<-d.hold.exited
	if d.logger != nil {
		d.logger.Debug("hold stopped", "direction", d.hold.dir)
	}
	d.hold = nil
}

func (d *Dispatcher) repeat(h *hold, iv time.Duration) {
	defer close(h.exited)
	defer recoverLog(d.logger, "hold goroutine panic")
	ticker := time.NewTicker(iv)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			select {
			case <-h.done:
				return
			default:
			}
			if h.inflight.Load() {
				continue
			}
			d.send(d.Command(h.dir), h)
		case <-h.done:
			return
		}
	}
}

// send issues cmd on its own goroutine. h, when set, is marked busy until
// the request returns.
func (d *Dispatcher) send(cmd rig.MotorCommand, h *hold) {
	if d.sender == nil {
		return
	}
	d.closeMu.RLock()
	if d.ctx.Err() != nil {
		d.closeMu.RUnlock()
		return
	}
	d.wg.Add(1)
	d.closeMu.RUnlock()
	if h != nil {
		h.inflight.Store(true)
	}
	go func() {
		defer d.wg.Done()
		if h != nil {
			defer h.inflight.Store(false)
		}
		defer recoverLog(d.logger, "motor request panic")
		if err := d.sender.Motor(d.ctx, cmd); err != nil && d.ctx.Err() == nil {
			if d.logger != nil {
				d.logger.Warn("motor command failed", "direction", cmd.Direction, "error", err)
			}
			if d.onFailure != nil {
				d.onFailure(cmd, err)
			}
		}
	}()
}

func recoverLog(logger *slog.Logger, msg string) {
	if r := recover(); r != nil {
		if logger != nil {
			logger.Error(msg, "error", r, "stack", string(debug.Stack()))
		}
	}
}
