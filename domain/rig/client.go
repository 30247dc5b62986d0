// Package rig is the REST client for the device-control backend: device
// connection, status, motor and rail control, auto-scan and detection.
package rig

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/soocke/leafscan-go/domain/protocol"
	"github.com/soocke/leafscan-go/domain/scan"
)

// Direction is a motor command direction.
type Direction string

const (
	Left   Direction = "left"
	Right  Direction = "right"
	Up     Direction = "up"
	Down   Direction = "down"
	Center Direction = "center"
	Stop   Direction = "stop"
)

// ParseDirection validates a direction name.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case Left, Right, Up, Down, Center, Stop:
		return d, nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

// MotorCommand is a stateless actuator command. Step is in degrees for the
// pan/tilt servos; Speed (0..255) drives the rail and is optional.
type MotorCommand struct {
	Direction Direction `json:"direction"`
	Step      int       `json:"step"`
	Speed     int       `json:"speed,omitempty"`
}

// Status is the backend's view of the device and scanner.
type Status struct {
	Connected          bool       `json:"connected"`
	IPAddress          string     `json:"ip_address"`
	ScanState          scan.State `json:"scan_state"`
	YoloLoaded         bool       `json:"yolo_loaded"`
	VisionEngineLoaded bool       `json:"vision_engine_loaded"`
	ScanResultsCount   int        `json:"scan_results_count"`
}

// ScanOptions configures an automatic scan. Zero raster bounds leave the
// backend defaults in place.
type ScanOptions struct {
	ModelType           protocol.Model `json:"model_type"`
	DetectionConfidence float64        `json:"detection_confidence"`
	PanMin              int            `json:"pan_min,omitempty"`
	PanMax              int            `json:"pan_max,omitempty"`
	TiltMin             int            `json:"tilt_min,omitempty"`
	TiltMax             int            `json:"tilt_max,omitempty"`
	StepSize            int            `json:"step_size,omitempty"`
}

// DetectResult is the response of a one-shot detection.
type DetectResult struct {
	Detections      []protocol.Detection `json:"detections"`
	Count           int                  `json:"count"`
	InferenceTimeMs float64              `json:"inference_time_ms"`
}

// StoredResult is one entry of the backend's result history.
type StoredResult struct {
	ScanIndex           int                  `json:"scan_index"`
	Detections          []protocol.Detection `json:"detections"`
	Disease             string               `json:"disease"`
	DiseaseConfidence   float64              `json:"disease_confidence"`
	ClassificationModel protocol.Model       `json:"classification_model"`
	AllPredictions      map[string]float64   `json:"all_predictions,omitempty"`
	Advice              protocol.AdviceBody  `json:"advice,omitempty"`
	Timestamp           string               `json:"timestamp"`
}

// Client talks to the device-control backend's REST surface. Requests carry
// no timeout of their own; callers bound them through ctx when they need to.
type Client struct {
	base   string
	http   *http.Client
	logger *slog.Logger
}

// NewClient returns a client for the backend at baseURL.
func NewClient(baseURL string, hc *http.Client, logger *slog.Logger) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc, logger: logger}
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string { return c.base }

// Status fetches connection, scan state and model readiness.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.do(ctx, http.MethodGet, "/esp32/status", nil, &st, ErrConnection, "status")
	if st.ScanState == "" {
		st.ScanState = scan.StateIdle
	}
	return st, err
}

// Connect asks the backend to connect to the device at address:port.
func (c *Client) Connect(ctx context.Context, address string, port int) error {
	body := map[string]any{"ip_address": address, "port": port}
	return c.do(ctx, http.MethodPost, "/esp32/connect", body, nil, ErrConnection, "connect")
}

// Disconnect asks the backend to drop the device connection.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/esp32/disconnect", nil, nil, ErrConnection, "disconnect")
}

// Motor sends one actuator command.
func (c *Client) Motor(ctx context.Context, cmd MotorCommand) error {
	return c.do(ctx, http.MethodPost, "/esp32/motor", cmd, nil, ErrCommand, "motor")
}

// SetPosition moves the pan/tilt servos to absolute angles (0..180).
func (c *Client) SetPosition(ctx context.Context, pos protocol.Position) error {
	if pos.Pan < 0 || pos.Pan > 180 || pos.Tilt < 0 || pos.Tilt > 180 {
		return &Error{Kind: ErrCommand, Op: "position", Detail: "pan and tilt must be within 0..180"}
	}
	return c.do(ctx, http.MethodPost, "/esp32/motor/position", pos, nil, ErrCommand, "position")
}

// ServoAngles is the device's position report.
type ServoAngles struct {
	PanAngle  int `json:"pan_angle"`
	TiltAngle int `json:"tilt_angle"`
}

// Position reads the current servo angles.
func (c *Client) Position(ctx context.Context) (protocol.Position, error) {
	var a ServoAngles
	err := c.do(ctx, http.MethodGet, "/esp32/motor/position", nil, &a, ErrCommand, "position")
	return protocol.Position{Pan: a.PanAngle, Tilt: a.TiltAngle}, err
}

// StartScan starts the automatic raster scan.
func (c *Client) StartScan(ctx context.Context, opts ScanOptions) error {
	return c.do(ctx, http.MethodPost, "/esp32/scan/start", opts, nil, ErrCommand, "scan start")
}

// StopScan stops the automatic scan.
func (c *Client) StopScan(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/esp32/scan/stop", nil, nil, ErrCommand, "scan stop")
}

// Results fetches the backend's result history for the current scan.
func (c *Client) Results(ctx context.Context) ([]StoredResult, error) {
	var out struct {
		Results []StoredResult `json:"results"`
	}
	err := c.do(ctx, http.MethodGet, "/esp32/scan/results", nil, &out, ErrCommand, "scan results")
	return out.Results, err
}

// Detect captures one frame on the device and runs leaf detection on it.
func (c *Client) Detect(ctx context.Context) (DetectResult, error) {
	var res DetectResult
	err := c.do(ctx, http.MethodPost, "/esp32/detect", nil, &res, ErrDetection, "detect")
	if res.Detections == nil {
		res.Detections = []protocol.Detection{}
	}
	return res, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, kind error, op string) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return &Error{Kind: kind, Op: op, Err: err}
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return &Error{Kind: kind, Op: op, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: kind, Op: op, Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: kind, Op: op, Status: resp.StatusCode, Err: err}
	}
	if c.logger != nil {
		c.logger.Debug("rig request", "op", op, "method", method, "path", path, "status", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Kind: kind, Op: op, Status: resp.StatusCode, Detail: detail(raw)}
	}
	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &Error{Kind: kind, Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

// detail extracts {"detail": "..."} from an error body. Non-string details
// (validation error lists) are not user-presentable and yield "".
func detail(raw []byte) string {
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if s, ok := body.Detail.(string); ok {
		return s
	}
	return ""
}
