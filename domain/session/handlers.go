package session

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/soocke/leafscan-go/domain/protocol"
	"github.com/soocke/leafscan-go/domain/results"
	"github.com/soocke/leafscan-go/domain/rig"
	"github.com/soocke/leafscan-go/domain/scan"
	"github.com/soocke/leafscan-go/domain/stream"
	"github.com/soocke/leafscan-go/prefs"
)

// User-facing fallback messages.
const (
	msgConnectFailed   = "Connection failed"
	msgUnreachable     = "Backend not reachable"
	msgScannerError    = "Scanner error"
	msgStreamLost      = "Event stream lost"
	msgStartScanFailed = "Failed to start scan"
	msgDetectFailed    = "Detection failed"
)

func (c *Controller) handle(ev any) {
	switch e := ev.(type) {
	case evtConnect:
		c.handleConnect(e)
	case evtConnectDone:
		c.handleConnectDone(e)
	case evtDisconnect:
		c.handleDisconnect()
	case evtReconcile:
		c.request(func(ctx context.Context) any {
			st, err := c.backend.Status(ctx)
			return evtStatus{st: st, err: err}
		})
	case evtStatus:
		c.handleStatus(e)
	case evtReadiness:
		if e.err == nil {
			c.cur.YoloLoaded = e.st.YoloLoaded
			c.cur.VisionEngineLoaded = e.st.VisionEngineLoaded
			c.cur.ServerResultCount = e.st.ScanResultsCount
		}
	case evtStartScan:
		opts := rig.ScanOptions{ModelType: c.cur.Model, DetectionConfidence: c.cur.DetectionConfidence}
		c.request(func(ctx context.Context) any {
			return evtScanStarted{err: c.backend.StartScan(ctx, opts)}
		})
	case evtScanStarted:
		c.handleScanStarted(e)
	case evtStopScan:
		c.request(func(ctx context.Context) any {
			return evtScanStopped{err: c.backend.StopScan(ctx)}
		})
	case evtScanStopped:
		if e.err != nil {
			c.notice(rig.Message(e.err, "Failed to stop scan"), e.err)
			return
		}
		c.machine.Apply(scan.StateIdle)
	case evtDetect:
		c.request(func(ctx context.Context) any {
			res, err := c.backend.Detect(ctx)
			return evtDetected{res: res, err: err}
		})
	case evtDetected:
		if e.err != nil {
			c.fail(msgDetectFailed, rig.ErrDetection, e.err)
			return
		}
		c.setDetections(e.res.Detections)
	case evtMove:
		if c.requireConnected("move") {
			c.motor.SendCommand(e.dir)
		}
	case evtStartHold:
		if c.requireConnected("hold") {
			c.motor.StartHold(e.dir)
			c.cur.Holding, c.cur.HoldDirection = true, e.dir
		}
	case evtStopHold:
		c.motor.StopHold()
		c.cur.Holding, c.cur.HoldDirection = false, ""
	case evtDismiss:
		c.cur.LastError, c.cur.ErrorKind = "", nil
	case evtClearResults:
		c.agg.Clear()
		c.cur.ResultsSeq++
	case evtSelectModel:
		if e.model != "" {
			c.cur.Model = e.model
		}
		if e.confidence > 0 && e.confidence <= 1 {
			c.cur.DetectionConfidence = e.confidence
		}
	case evtConfig:
		cfg := e.cfg
		c.motor.SetStep(cfg.StepDegrees)
		c.motor.SetSpeed(cfg.RailSpeed)
		c.motor.SetInterval(cfg.HoldInterval())
		c.agg.SetMode(results.Correlation(cfg.AdviceCorrelation))
		c.agg.SetLimit(cfg.ResultLimit)
		c.cur.Model = protocol.Model(cfg.ModelType)
		c.cur.DetectionConfidence = cfg.DetectionConfidence
		c.streamOpts = streamOptions(cfg)
		if c.logger != nil {
			c.logger.Info("configuration applied", "step", cfg.StepDegrees, "hold_interval", cfg.HoldInterval(), "model", cfg.ModelType)
		}
	case evtNotice:
		c.notice(e.message, e.err)
	case evtStream:
		if e.gen == c.streamGen {
			c.handleEvent(e.ev)
		}
	case evtStreamStatus:
		if e.gen == c.streamGen {
			c.handleStreamStatus(e)
		}
	default:
		if c.logger != nil {
			c.logger.Warn("unhandled session event", "type", ev)
		}
	}
}

func (c *Controller) handleConnect(e evtConnect) {
	if c.cur.Connecting {
		if c.logger != nil {
			c.logger.Info("connect ignored, attempt already in flight", "address", e.address)
		}
		return
	}
	c.cur.Connecting = true
	c.cur.LastError, c.cur.ErrorKind = "", nil
	c.cur.DeviceAddress, c.cur.DevicePort = e.address, e.port
	c.connectGen++
	gen := c.connectGen
	c.request(func(ctx context.Context) any {
		return evtConnectDone{gen: gen, address: e.address, port: e.port, err: c.backend.Connect(ctx, e.address, e.port)}
	})
}

func (c *Controller) handleConnectDone(e evtConnectDone) {
	if e.gen != c.connectGen {
		// Superseded by a disconnect while in flight.
		if c.logger != nil {
			c.logger.Info("stale connect result dropped", "address", e.address, "error", e.err)
		}
		if e.err == nil {
			c.request(func(ctx context.Context) any {
				if err := c.backend.Disconnect(ctx); err != nil && c.logger != nil {
					c.logger.Warn("disconnect after stale connect failed", "error", err)
				}
				return nil
			})
		}
		return
	}
	c.cur.Connecting = false
	if e.err != nil {
		msg := rig.Message(e.err, msgConnectFailed)
		var re *rig.Error
		if errors.As(e.err, &re) && re.Status == 0 && re.Detail == "" {
			msg = msgUnreachable
		}
		c.fail(msg, rig.ErrConnection, e.err)
		return
	}
	c.cur.Connected = true
	c.cur.ConnectedAt = now()
	c.cur.SessionID = uuid.NewString()
	if c.store != nil {
		if err := c.store.SaveDevice(prefs.Device{Address: e.address, Port: e.port}); err != nil && c.logger != nil {
			c.logger.Warn("persist device failed", "error", err)
		}
	}
	if c.logger != nil {
		c.logger.Info("device connected", "address", e.address, "port", e.port, "session", c.cur.SessionID)
	}
	c.openStream()
	c.request(func(ctx context.Context) any {
		st, err := c.backend.Status(ctx)
		return evtReadiness{st: st, err: err}
	})
}

func (c *Controller) handleDisconnect() {
	c.connectGen++
	c.cur.Connecting = false
	c.motor.Cancel()
	c.cur.Holding, c.cur.HoldDirection = false, ""
	c.closeStream()
	c.machine.Reset()
	c.cur.StateReason, c.cur.StateMessage = "", ""
	c.cur.Connected = false
	if c.logger != nil {
		c.logger.Info("device disconnected", "session", c.cur.SessionID)
	}
	c.cur.SessionID = ""
	c.request(func(ctx context.Context) any {
		if err := c.backend.Disconnect(ctx); err != nil && c.logger != nil {
			c.logger.Warn("disconnect request failed", "error", err)
		}
		return nil
	})
}

func (c *Controller) handleStatus(e evtStatus) {
	if e.err != nil {
		if c.logger != nil {
			c.logger.Debug("status reconciliation failed", "error", e.err)
		}
		return
	}
	st := e.st
	c.cur.YoloLoaded = st.YoloLoaded
	c.cur.VisionEngineLoaded = st.VisionEngineLoaded
	c.cur.ServerResultCount = st.ScanResultsCount
	if host, port, ok := splitDeviceURL(st.IPAddress); ok {
		c.cur.DeviceAddress, c.cur.DevicePort = host, port
	}
	c.machine.Apply(st.ScanState)
	wasConnected := c.cur.Connected
	c.cur.Connected = st.Connected
	switch {
	case st.Connected && c.stream == nil:
		if c.cur.SessionID == "" {
			c.cur.SessionID = uuid.NewString()
			c.cur.ConnectedAt = now()
		}
		c.openStream()
	case !st.Connected && wasConnected:
		c.motor.Cancel()
		c.cur.Holding, c.cur.HoldDirection = false, ""
		c.closeStream()
	}
}

func (c *Controller) handleScanStarted(e evtScanStarted) {
	if e.err != nil {
		var re *rig.Error
		if errors.As(e.err, &re) && re.Status == 0 {
			c.fail(msgStartScanFailed, rig.ErrCommand, e.err)
			return
		}
		c.notice(rig.Message(e.err, msgStartScanFailed), e.err)
		return
	}
	c.agg.Clear()
	c.cur.ResultsSeq++
	c.machine.Apply(scan.StateScanning)
}

// handleEvent dispatches one decoded stream event.
func (c *Controller) handleEvent(ev protocol.Event) {
	switch e := ev.(type) {
	case protocol.StateChange:
		c.machine.Apply(e.State)
		c.cur.StateReason, c.cur.StateMessage = e.Reason, e.Message
		if e.State == scan.StateError && e.Message != "" {
			c.fail(e.Message, rig.ErrStream, nil)
		}
	case protocol.Frame:
		c.cur.Frame = &Frame{
			Seq:      c.nextFrameSeq(),
			Image:    e.Image,
			Position: e.Position,
			Progress: e.Progress,
			At:       now(),
		}
		c.setDetections(e.Detections)
	case protocol.DetectionUpdate:
		c.setDetections(e.Detections)
	case protocol.Classification:
		c.agg.AddClassification(e)
		c.cur.ResultsSeq++
	case protocol.Advice:
		if c.agg.MergeAdvice(e) >= 0 {
			c.cur.ResultsSeq++
		}
	case protocol.StreamError:
		msg := e.Message
		if msg == "" {
			msg = msgScannerError
		}
		c.fail(msg, rig.ErrStream, nil)
	case protocol.Unknown:
		if c.logger != nil {
			c.logger.Warn("unknown event kind ignored", "event_type", string(e.Type))
		}
	}
}

func (c *Controller) handleStreamStatus(e evtStreamStatus) {
	c.cur.Stream = e.status
	if e.status == stream.StatusLost {
		c.fail(msgStreamLost, rig.ErrStream, e.err)
	}
}

func (c *Controller) openStream() {
	c.closeStream()
	c.streamGen++
	gen := c.streamGen
	c.stream = stream.New(c.streamOpts, c.logger,
		func(ctx context.Context, ev protocol.Event) {
			select {
			case c.events <- evtStream{gen: gen, ev: ev}:
			case <-ctx.Done():
			case <-c.quit:
			}
		},
		func(ctx context.Context, st stream.Status, err error) {
			select {
			case c.events <- evtStreamStatus{gen: gen, status: st, err: err}:
			case <-ctx.Done():
			case <-c.quit:
			}
		})
	if err := c.stream.Open(c.ctx); err != nil {
		c.fail(msgStreamLost, rig.ErrStream, err)
		c.stream = nil
	}
}

func (c *Controller) closeStream() {
	if c.stream == nil {
		return
	}
	c.stream.Close()
	c.stream = nil
	c.streamGen++
	c.cur.Stream = stream.StatusClosed
}

func (c *Controller) setDetections(d []protocol.Detection) {
	c.cur.Detections = append([]protocol.Detection(nil), d...)
	c.cur.DetectionSeq++
}

func (c *Controller) nextFrameSeq() uint64 {
	if c.cur.Frame == nil {
		return 1
	}
	return c.cur.Frame.Seq + 1
}

func (c *Controller) requireConnected(op string) bool {
	if c.cur.Connected {
		return true
	}
	if c.logger != nil {
		c.logger.Debug("motor command ignored while disconnected", "op", op)
	}
	return false
}

// fail raises a user-facing error.
func (c *Controller) fail(msg string, kind error, cause error) {
	c.cur.LastError, c.cur.ErrorKind = msg, kind
	if c.logger != nil {
		c.logger.Error("session error", "message", msg, "kind", kind, "error", cause)
	}
}

// notice records a transient command failure without raising an error.
func (c *Controller) notice(msg string, cause error) {
	var seq uint64 = 1
	if c.cur.Notice != nil {
		seq = c.cur.Notice.Seq + 1
	}
	c.cur.Notice = &Notice{Seq: seq, Message: msg, At: now()}
	if c.logger != nil {
		c.logger.Warn("command failed", "message", msg, "error", cause)
	}
}

// splitDeviceURL parses the backend's "http://host:port" device address.
func splitDeviceURL(raw string) (string, int, bool) {
	if raw == "" {
		return "", 0, false
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "", 0, false
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		port = 80
	}
	return u.Hostname(), port, true
}
