package rigsim

import (
	"net/http"

	"github.com/soocke/leafscan-go/domain/protocol"
	"github.com/soocke/leafscan-go/domain/rig"
)

// Rail returns the rail's last commanded state.
func (s *Sim) Rail() rig.RailState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rail
}

// MoveRail drives the rail one stride in dir, or stops it.
func (s *Sim) MoveRail(dir rig.Direction, speed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return errNotConnected
	}
	s.driveRailLocked(dir, speed)
	return nil
}

// StopRail halts the rail.
func (s *Sim) StopRail() error {
	return s.MoveRail(rig.Stop, 0)
}

// HomePanTilt centers both servos.
func (s *Sim) HomePanTilt() error {
	return s.SetPosition(protocol.Position{Pan: CenterPan, Tilt: CenterTilt})
}

// HomeAll homes the servos and the rail as selected.
func (s *Sim) HomeAll(opts rig.HomeOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return errNotConnected
	}
	if opts.PanTilt {
		s.pan, s.tilt = CenterPan, CenterTilt
	}
	if opts.Rail {
		s.rail = rig.RailState{Position: rig.RailHome, Direction: rig.Stop}
	}
	return nil
}

// ApplyPreset moves to a named preset.
func (s *Sim) ApplyPreset(p rig.Preset) error {
	t, ok := p.Target()
	if !ok {
		return &ValidationError{Field: "preset", Msg: "Invalid preset"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return errNotConnected
	}
	s.pan, s.tilt = clamp(t.Position.Pan), clamp(t.Position.Tilt)
	if t.Rail != "" {
		s.rail.Direction = t.Rail
		s.rail.Moving = t.Rail != rig.Stop
		if s.rail.Moving {
			s.rail.Speed = rig.DefaultRailSpeed
		} else {
			s.rail.Speed = 0
		}
	}
	return nil
}

func (s *Sim) driveRailLocked(dir rig.Direction, speed int) {
	s.rail.Direction = dir
	s.rail.Moving = dir != rig.Stop
	s.rail.Speed = 0
	switch dir {
	case rig.Left:
		s.rail.Position = max(0, s.rail.Position-rig.RailStride)
		s.rail.Speed = speed
	case rig.Right:
		s.rail.Position = min(100, s.rail.Position+rig.RailStride)
		s.rail.Speed = speed
	}
}

func (s *Sim) handleHomePanTilt(w http.ResponseWriter, _ *http.Request) {
	if err := s.HomePanTilt(); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Pan-tilt homed to center (90°, 90°)"})
}

func (s *Sim) handlePreset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Preset string `json:"preset"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	p, err := rig.ParsePreset(req.Preset)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, &ValidationError{Field: "preset", Msg: err.Error()})
		return
	}
	if err := s.ApplyPreset(p); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	pos := s.Position()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Moved to preset: " + string(p), "pan": pos.Pan, "tilt": pos.Tilt})
}

func (s *Sim) handleHomeAll(w http.ResponseWriter, r *http.Request) {
	opts := rig.HomeOptions{Rail: true, PanTilt: true}
	if err := decode(r, &opts); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err := s.HomeAll(opts); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "System homed"})
}

func (s *Sim) handleRailState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Rail())
}

func (s *Sim) handleRailMove(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Direction string `json:"direction"`
		Speed     int    `json:"speed"`
	}{Speed: rig.DefaultRailSpeed}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	dir, err := rig.ParseDirection(req.Direction)
	if err != nil || (dir != rig.Left && dir != rig.Right && dir != rig.Stop) {
		writeError(w, http.StatusUnprocessableEntity, &ValidationError{Field: "direction", Msg: "must be left, right or stop"})
		return
	}
	if req.Speed < 0 || req.Speed > 255 {
		writeError(w, http.StatusUnprocessableEntity, &ValidationError{Field: "speed", Msg: "must be between 0 and 255"})
		return
	}
	if err := s.MoveRail(dir, req.Speed); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.Rail())
}

func (s *Sim) handleRailStop(w http.ResponseWriter, _ *http.Request) {
	if err := s.StopRail(); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.Rail())
}
