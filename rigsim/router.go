package rigsim

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/soocke/leafscan-go/domain/protocol"
	"github.com/soocke/leafscan-go/domain/rig"
)

// NewRouter builds the REST and websocket routes for s.
func NewRouter(s *Sim) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
	}).Methods(http.MethodGet)
	r.HandleFunc("/esp32/connect", s.handleConnect).Methods(http.MethodPost)
	r.HandleFunc("/esp32/disconnect", s.handleDisconnect).Methods(http.MethodPost)
	r.HandleFunc("/esp32/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/esp32/motor", s.handleMotor).Methods(http.MethodPost)
	r.HandleFunc("/esp32/motor/position", s.handleSetPosition).Methods(http.MethodPost)
	r.HandleFunc("/esp32/motor/position", s.handleGetPosition).Methods(http.MethodGet)
	r.HandleFunc("/esp32/motor/home", s.handleHomePanTilt).Methods(http.MethodPost)
	r.HandleFunc("/esp32/motor/preset", s.handlePreset).Methods(http.MethodPost)
	r.HandleFunc("/esp32/home", s.handleHomeAll).Methods(http.MethodPost)
	r.HandleFunc("/esp32/rail", s.handleRailState).Methods(http.MethodGet)
	r.HandleFunc("/esp32/rail/move", s.handleRailMove).Methods(http.MethodPost)
	r.HandleFunc("/esp32/rail/stop", s.handleRailStop).Methods(http.MethodPost)
	r.HandleFunc("/esp32/capture", s.handleCapture).Methods(http.MethodGet)
	r.HandleFunc("/esp32/detect", s.handleDetect).Methods(http.MethodPost)
	r.HandleFunc("/esp32/scan/start", s.handleScanStart).Methods(http.MethodPost)
	r.HandleFunc("/esp32/scan/stop", s.handleScanStop).Methods(http.MethodPost)
	r.HandleFunc("/esp32/scan/results", s.handleResults).Methods(http.MethodGet)
	r.Handle("/ws/scan", s.hub)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the backend's {"detail": ...} error shape.
// Validation failures carry a list detail in the FastAPI style.
func writeError(w http.ResponseWriter, status int, err error) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, status, map[string]any{"detail": []map[string]any{{"loc": []string{"body", ve.Field}, "msg": ve.Msg, "type": "value_error"}}})
		return
	}
	writeJSON(w, status, map[string]string{"detail": err.Error()})
}

func decode(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return &ValidationError{Field: "body", Msg: err.Error()}
	}
	return nil
}

func (s *Sim) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IPAddress string `json:"ip_address"`
		Port      int    `json:"port"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	req.IPAddress = strings.TrimSpace(req.IPAddress)
	if req.IPAddress == "" {
		writeError(w, http.StatusUnprocessableEntity, &ValidationError{Field: "ip_address", Msg: "field required"})
		return
	}
	if req.Port == 0 {
		req.Port = DefaultPort
	}
	if err := s.Connect(req.IPAddress, req.Port); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": fmt.Sprintf("Connected to ESP32-CAM at %s:%d", req.IPAddress, req.Port)})
}

func (s *Sim) handleDisconnect(w http.ResponseWriter, _ *http.Request) {
	s.Disconnect()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Disconnected from ESP32-CAM"})
}

func (s *Sim) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Status())
}

func (s *Sim) handleMotor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction string `json:"direction"`
		Step      *int   `json:"step"`
		Speed     int    `json:"speed"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	dir, err := rig.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, &ValidationError{Field: "direction", Msg: err.Error()})
		return
	}
	step := 5
	if req.Step != nil {
		step = *req.Step
	}
	if step < 1 || step > 45 {
		writeError(w, http.StatusUnprocessableEntity, &ValidationError{Field: "step", Msg: "must be between 1 and 45"})
		return
	}
	if err := s.Move(rig.MotorCommand{Direction: dir, Step: step, Speed: req.Speed}); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "direction": dir, "step": step})
}

func (s *Sim) handleSetPosition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pan  *int `json:"pan"`
		Tilt *int `json:"tilt"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	for _, f := range []struct {
		name string
		v    *int
	}{{"pan", req.Pan}, {"tilt", req.Tilt}} {
		if f.v == nil {
			writeError(w, http.StatusUnprocessableEntity, &ValidationError{Field: f.name, Msg: "field required"})
			return
		}
		if *f.v < ServoMin || *f.v > ServoMax {
			writeError(w, http.StatusUnprocessableEntity, &ValidationError{Field: f.name, Msg: "must be between 0 and 180"})
			return
		}
	}
	pos := protocol.Position{Pan: *req.Pan, Tilt: *req.Tilt}
	if err := s.SetPosition(pos); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "pan": pos.Pan, "tilt": pos.Tilt})
}

func (s *Sim) handleGetPosition(w http.ResponseWriter, _ *http.Request) {
	if !s.Status().Connected {
		writeError(w, http.StatusServiceUnavailable, errNotConnected)
		return
	}
	p := s.Position()
	writeJSON(w, http.StatusOK, rig.ServoAngles{PanAngle: p.Pan, TiltAngle: p.Tilt})
}

func (s *Sim) handleCapture(w http.ResponseWriter, _ *http.Request) {
	shot, err := s.Capture()
	if err != nil {
		if errors.Is(err, errNotConnected) {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Errorf("Capture failed: %w", err))
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	_, _ = w.Write(shot.JPEG)
}

func (s *Sim) handleDetect(w http.ResponseWriter, _ *http.Request) {
	if s.opts.DetectorMissing {
		writeError(w, http.StatusServiceUnavailable, errNoDetector)
		return
	}
	start := time.Now()
	shot, err := s.Capture()
	if err != nil {
		if errors.Is(err, errNotConnected) {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Errorf("Detection failed: %w", err))
		return
	}
	dets := Detect(shot)
	ms := float64(time.Since(start).Microseconds()) / 1000
	writeJSON(w, http.StatusOK, rig.DetectResult{Detections: dets, Count: len(dets), InferenceTimeMs: float64(int(ms*100)) / 100})
}

func (s *Sim) handleScanStart(w http.ResponseWriter, r *http.Request) {
	var opts rig.ScanOptions
	if err := decode(r, &opts); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err := s.StartScan(opts); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Raster scan started", "state": s.State()})
}

func (s *Sim) handleScanStop(w http.ResponseWriter, _ *http.Request) {
	s.StopScan()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Auto-scan stopped", "state": s.State()})
}

func (s *Sim) handleResults(w http.ResponseWriter, _ *http.Request) {
	res := s.Results()
	if res == nil {
		res = []rig.StoredResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": res, "count": len(res), "state": s.State()})
}
