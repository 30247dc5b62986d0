package rigsim

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soocke/leafscan-go/domain/protocol"
	"github.com/soocke/leafscan-go/domain/rig"
	"github.com/soocke/leafscan-go/domain/scan"
)

// Raster defaults applied to zero-valued scan options.
const (
	DefaultPanMin     = 0
	DefaultPanMax     = 180
	DefaultTiltMin    = 30
	DefaultTiltMax    = 120
	DefaultStepSize   = 15
	DefaultConfidence = 0.25
)

// ValidationError is an out-of-range request field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Msg }

// Pattern generates the serpentine raster: pan sweeps left to right, tilt
// steps down, pan sweeps back, and so on until tilt passes tiltMax.
func Pattern(panMin, panMax, tiltMin, tiltMax, step int) []protocol.Position {
	if step <= 0 {
		return nil
	}
	var out []protocol.Position
	forward := true
	for tilt := tiltMin; tilt <= tiltMax; tilt += step {
		if forward {
			for pan := panMin; pan <= panMax; pan += step {
				out = append(out, protocol.Position{Pan: pan, Tilt: tilt})
			}
		} else {
			for pan := panMax; pan >= panMin; pan -= step {
				out = append(out, protocol.Position{Pan: pan, Tilt: tilt})
			}
		}
		forward = !forward
	}
	return out
}

type scanConfig struct {
	model     protocol.Model
	threshold float64
	positions []protocol.Position
}

func normalize(o rig.ScanOptions) (scanConfig, error) {
	cfg := scanConfig{model: o.ModelType, threshold: o.DetectionConfidence}
	if cfg.model == "" {
		cfg.model = protocol.ModelMobileNet
	}
	if cfg.model != protocol.ModelMobileNet && cfg.model != protocol.ModelResNet {
		return cfg, &ValidationError{Field: "model_type", Msg: "must be mobilenet or resnet"}
	}
	if cfg.threshold == 0 {
		cfg.threshold = DefaultConfidence
	}
	if cfg.threshold < 0.1 || cfg.threshold > 1 {
		return cfg, &ValidationError{Field: "detection_confidence", Msg: "must be between 0.1 and 1.0"}
	}
	panMin, panMax := o.PanMin, orDefault(o.PanMax, DefaultPanMax)
	tiltMin, tiltMax := orDefault(o.TiltMin, DefaultTiltMin), orDefault(o.TiltMax, DefaultTiltMax)
	step := orDefault(o.StepSize, DefaultStepSize)
	for _, f := range []struct {
		name string
		v    int
	}{{"pan_min", panMin}, {"pan_max", panMax}, {"tilt_min", tiltMin}, {"tilt_max", tiltMax}} {
		if f.v < ServoMin || f.v > ServoMax {
			return cfg, &ValidationError{Field: f.name, Msg: "must be between 0 and 180"}
		}
	}
	if step < 5 || step > 45 {
		return cfg, &ValidationError{Field: "step_size", Msg: "must be between 5 and 45"}
	}
	cfg.positions = Pattern(panMin, panMax, tiltMin, tiltMax, step)
	if len(cfg.positions) == 0 {
		return cfg, &ValidationError{Field: "pan_min", Msg: "empty scan range"}
	}
	return cfg, nil
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// StartScan validates opts and starts the raster scan in the background.
func (s *Sim) StartScan(opts rig.ScanOptions) error {
	cfg, err := normalize(opts)
	if err != nil {
		return err
	}
	s.mu.Lock()
	switch {
	case !s.connected:
		s.mu.Unlock()
		return errNotConnected
	case s.opts.DetectorMissing:
		s.mu.Unlock()
		return errNoDetector
	case s.scanDone != nil:
		s.mu.Unlock()
		return errScanRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.scanDone = cancel, done
	s.results, s.scanIndex = nil, 0
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("raster scan started", "positions", len(cfg.positions), "model", cfg.model, "confidence", cfg.threshold)
	}
	s.setState(scan.StateScanning, map[string]any{})
	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			if s.scanDone == done {
				s.cancel, s.scanDone = nil, nil
			}
			s.mu.Unlock()
			cancel()
		}()
		defer recoverLog(s.logger, "scan loop panic")
		s.run(ctx, cfg)
	}()
	return nil
}

// StopScan cancels a running scan, recentres the servos and reports idle.
func (s *Sim) StopScan() {
	s.cancelScan()
	s.center()
	s.setState(scan.StateIdle, map[string]any{"reason": "stopped_by_user"})
	if s.logger != nil {
		s.logger.Info("auto-scan stopped")
	}
}

func (s *Sim) cancelScan() {
	s.mu.Lock()
	cancel, done := s.cancel, s.scanDone
	s.cancel, s.scanDone = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Sim) center() {
	_ = s.Move(rig.MotorCommand{Direction: rig.Center})
}

func (s *Sim) setState(state scan.State, data map[string]any) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.emit(protocol.KindStateChange, state, data)
}

func (s *Sim) emit(kind protocol.Kind, state scan.State, data any) {
	if err := s.Broadcast(kind, state, data); err != nil && s.logger != nil {
		s.logger.Error("encode event", "kind", kind, "error", err)
	}
}

func (s *Sim) current() scan.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Sim) run(ctx context.Context, cfg scanConfig) {
	defer s.center()
	if err := s.SetPosition(cfg.positions[0]); err != nil {
		s.setState(scan.StateError, map[string]any{"message": err.Error()})
		return
	}
	if !sleep(ctx, s.opts.InitialSettle) {
		return
	}
	total := len(cfg.positions)
	for i, pos := range cfg.positions {
		if err := s.SetPosition(pos); err != nil {
			s.setState(scan.StateError, map[string]any{"message": err.Error()})
			return
		}
		if !sleep(ctx, s.opts.SettleDelay) {
			return
		}
		shot, err := s.Capture()
		if err != nil {
			if s.logger != nil {
				s.logger.Error("capture failed", "pan", pos.Pan, "tilt", pos.Tilt, "error", err)
			}
			continue
		}
		dets := Detect(shot)
		s.emit(protocol.KindFrame, s.current(), protocol.FrameData{
			FrameBase64: protocol.EncodeImage(shot.JPEG),
			Detections:  dets,
			Position:    &pos,
			Progress:    fmt.Sprintf("%d/%d", i+1, total),
		})
		if best(dets) >= cfg.threshold {
			s.process(ctx, cfg, shot, dets, pos)
			if ctx.Err() != nil {
				return
			}
			if s.current() != scan.StateError {
				s.setState(scan.StateScanning, map[string]any{})
			}
		}
		if !sleep(ctx, s.opts.StepPause) {
			return
		}
	}
	s.mu.Lock()
	found := len(s.results)
	s.mu.Unlock()
	s.setState(scan.StateIdle, map[string]any{
		"reason":           "scan_complete",
		"total_positions":  total,
		"detections_found": found,
	})
	if s.logger != nil {
		s.logger.Info("raster scan complete", "results", found)
	}
}

// storedResult is the wire form of a stored result inside result_ready.
type storedResult struct {
	rig.StoredResult
	ImageBase64 string `json:"image_base64,omitempty"`
}

func (s *Sim) process(ctx context.Context, cfg scanConfig, shot Shot, dets []protocol.Detection, pos protocol.Position) {
	s.mu.Lock()
	s.scanIndex++
	idx := s.scanIndex
	s.mu.Unlock()

	s.setState(scan.StateLeafDetected, map[string]any{"detections": dets, "scan_index": idx, "position": pos})
	s.setState(scan.StateClassifying, map[string]any{})
	cls, err := s.opts.Classifier(shot, cfg.model)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("classification failed", "error", err)
		}
		s.setState(scan.StateError, map[string]any{"message": "Classification failed: " + err.Error()})
		return
	}
	s.emit(protocol.KindClassification, scan.StateClassifying, protocol.ClassificationData{
		ScanIndex:       idx,
		Disease:         cls.Disease,
		Confidence:      cls.Confidence,
		Model:           cfg.model,
		InferenceTimeMs: cls.InferenceTimeMs,
		AllPredictions:  cls.AllPredictions,
		Position:        &pos,
	})

	var advice protocol.AdviceBody
	if !isHealthy(cls.Disease) {
		s.setState(scan.StateAdvising, map[string]any{})
		if advice, err = s.opts.Advisor(cls.Disease); err != nil {
			if s.logger != nil {
				s.logger.Error("advice failed", "error", err)
			}
			advice = protocol.AdviceBody{"severity": "Unknown", "action_plan": "Advice unavailable", "rag_enabled": false}
		}
	}

	img := protocol.EncodeImage(shot.JPEG)
	res := rig.StoredResult{
		ScanIndex:           idx,
		Detections:          dets,
		Disease:             cls.Disease,
		DiseaseConfidence:   cls.Confidence,
		ClassificationModel: cfg.model,
		AllPredictions:      cls.AllPredictions,
		Advice:              advice,
		Timestamp:           time.Now().UTC().Format(time.RFC3339Nano),
	}
	s.mu.Lock()
	s.results = append(s.results, res)
	s.mu.Unlock()

	s.setState(scan.StateResultReady, map[string]any{"result": storedResult{StoredResult: res, ImageBase64: img}, "position": pos})
	s.emit(protocol.KindAdvice, scan.StateResultReady, map[string]any{
		"disease":      cls.Disease,
		"confidence":   cls.Confidence,
		"advice":       advice,
		"scan_index":   idx,
		"position":     pos,
		"image_base64": img,
	})
	if s.logger != nil {
		s.logger.Info("leaf processed", "scan_index", idx, "pan", pos.Pan, "tilt", pos.Tilt, "disease", cls.Disease, "advice", advice != nil)
	}
	sleep(ctx, s.opts.ResultPause)
}

func best(dets []protocol.Detection) float64 {
	b := -1.0
	for _, d := range dets {
		b = max(b, d.Confidence)
	}
	return b
}

func isHealthy(disease string) bool { return strings.EqualFold(disease, "healthy") }

// sleep waits d or until ctx is done, reporting whether the wait completed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// statusFor maps simulator errors to HTTP status codes.
func statusFor(err error) int {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return 422
	case errors.Is(err, errScanRunning):
		return 409
	case errors.Is(err, errNotConnected), errors.Is(err, errNoDetector):
		return 503
	default:
		return 500
	}
}
