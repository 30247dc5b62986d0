package rig

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/soocke/leafscan-go/domain/protocol"
	"github.com/soocke/leafscan-go/domain/scan"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type recorded struct {
	method, path string
	body         map[string]any
}

func newServer(t *testing.T, status int, reply string, got *recorded) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got != nil {
			got.method, got.path = r.Method, r.URL.Path
			got.body = nil
			_ = json.NewDecoder(r.Body).Decode(&got.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", nil, discardLogger())
}

func TestConnect_SendsAddressAndPort(t *testing.T) {
	var got recorded
	c := newServer(t, 200, `{"status":"connected"}`, &got)
	if err := c.Connect(context.Background(), "192.168.1.50", 80); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if got.method != http.MethodPost || got.path != "/esp32/connect" {
		t.Fatalf("unexpected request %s %s", got.method, got.path)
	}
	if got.body["ip_address"] != "192.168.1.50" || got.body["port"] != float64(80) {
		t.Fatalf("unexpected body %v", got.body)
	}
}

func TestConnect_FailureCarriesDetail(t *testing.T) {
	c := newServer(t, 503, `{"detail":"Failed to connect to ESP32 at 10.0.0.9:80"}`, nil)
	err := c.Connect(context.Background(), "10.0.0.9", 80)
	if !errors.Is(err, ErrConnection) {
		t.Fatalf("expected connection error, got %v", err)
	}
	var re *Error
	if !errors.As(err, &re) || re.Status != 503 {
		t.Fatalf("expected *Error with status, got %#v", err)
	}
	if msg := Message(err, "Connection failed"); msg != "Failed to connect to ESP32 at 10.0.0.9:80" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestMessage_FallsBackWithoutDetail(t *testing.T) {
	c := newServer(t, 500, `internal error`, nil)
	err := c.Connect(context.Background(), "10.0.0.9", 80)
	if msg := Message(err, "Connection failed"); msg != "Connection failed" {
		t.Fatalf("unexpected message %q", msg)
	}
	// validation error lists are not presentable
	c = newServer(t, 422, `{"detail":[{"loc":["body","port"],"msg":"bad"}]}`, nil)
	err = c.Connect(context.Background(), "10.0.0.9", 80)
	if msg := Message(err, "Connection failed"); msg != "Connection failed" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestTransportFailureIsKinded(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", nil, discardLogger())
	if err := c.Motor(context.Background(), MotorCommand{Direction: Left, Step: 5}); !errors.Is(err, ErrCommand) {
		t.Fatalf("expected command error, got %v", err)
	}
	if _, err := c.Detect(context.Background()); !errors.Is(err, ErrDetection) {
		t.Fatalf("expected detection error, got %v", err)
	}
	if err := c.Disconnect(context.Background()); !errors.Is(err, ErrConnection) {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestStatus_Decodes(t *testing.T) {
	c := newServer(t, 200, `{"connected":true,"ip_address":"192.168.1.50","scan_state":"classifying","yolo_loaded":true,"vision_engine_loaded":false,"scan_results_count":3}`, nil)
	st, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.Connected || st.ScanState != scan.StateClassifying || !st.YoloLoaded || st.VisionEngineLoaded || st.ScanResultsCount != 3 {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestStatus_MissingStateIsIdle(t *testing.T) {
	c := newServer(t, 200, `{"connected":false}`, nil)
	st, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.ScanState != scan.StateIdle {
		t.Fatalf("expected idle, got %q", st.ScanState)
	}
}

func TestMotor_Body(t *testing.T) {
	var got recorded
	c := newServer(t, 200, `{"status":"ok"}`, &got)
	if err := c.Motor(context.Background(), MotorCommand{Direction: Up, Step: 10}); err != nil {
		t.Fatalf("motor: %v", err)
	}
	if got.path != "/esp32/motor" || got.body["direction"] != "up" || got.body["step"] != float64(10) {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestSetPosition_RejectsOutOfRange(t *testing.T) {
	var got recorded
	c := newServer(t, 200, `{}`, &got)
	err := c.SetPosition(context.Background(), protocol.Position{Pan: 200, Tilt: 90})
	if !errors.Is(err, ErrCommand) {
		t.Fatalf("expected command error, got %v", err)
	}
	if got.path != "" {
		t.Fatalf("request should not have been sent")
	}
}

func TestStartScan_Body(t *testing.T) {
	var got recorded
	c := newServer(t, 200, `{"status":"scanning"}`, &got)
	err := c.StartScan(context.Background(), ScanOptions{ModelType: protocol.ModelResNet, DetectionConfidence: 0.4})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if got.path != "/esp32/scan/start" || got.body["model_type"] != "resnet" || got.body["detection_confidence"] != 0.4 {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestStartScan_Conflict(t *testing.T) {
	c := newServer(t, 409, `{"detail":"Scan already in progress"}`, nil)
	err := c.StartScan(context.Background(), ScanOptions{ModelType: protocol.ModelMobileNet})
	var re *Error
	if !errors.As(err, &re) || re.Status != http.StatusConflict || !errors.Is(err, ErrCommand) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestDetect_EmptyListIsNonNil(t *testing.T) {
	c := newServer(t, 200, `{"count":0,"inference_time_ms":12.5}`, nil)
	res, err := c.Detect(context.Background())
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if res.Detections == nil || res.InferenceTimeMs != 12.5 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestParseDirection(t *testing.T) {
	if d, err := ParseDirection(" Left "); err != nil || d != Left {
		t.Fatalf("unexpected %q %v", d, err)
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Fatalf("expected error")
	}
}
