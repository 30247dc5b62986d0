package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestValidate_ClampsOutOfRange(t *testing.T) {
	c := &Config{
		APIURL:              "http://rig.local:8000/",
		DevicePort:          70000,
		StepDegrees:         90,
		HoldIntervalMs:      10,
		ModelType:           "vgg",
		DetectionConfidence: 1.5,
		AdviceCorrelation:   "guess",
		RequestTimeoutMs:    -5,
	}
	_ = c.Validate()
	if c.APIURL != "http://rig.local:8000" {
		t.Fatalf("trailing slash not trimmed: %q", c.APIURL)
	}
	if c.DevicePort != 80 || c.StepDegrees != 5 || c.HoldIntervalMs != 300 {
		t.Fatalf("unexpected clamps: port=%d step=%d hold=%d", c.DevicePort, c.StepDegrees, c.HoldIntervalMs)
	}
	if c.ModelType != "mobilenet" || c.DetectionConfidence != 0.25 {
		t.Fatalf("unexpected scan defaults: model=%s conf=%v", c.ModelType, c.DetectionConfidence)
	}
	if c.AdviceCorrelation != CorrelatePositional {
		t.Fatalf("expected positional correlation, got %s", c.AdviceCorrelation)
	}
	if c.RequestTimeout() != 0 {
		t.Fatalf("negative timeout not cleared: %v", c.RequestTimeout())
	}
}

func TestDefaults_PositionalAndUnbounded(t *testing.T) {
	c := DefaultConfig()
	if c.AdviceCorrelation != CorrelatePositional {
		t.Fatalf("default correlation %s", c.AdviceCorrelation)
	}
	if c.RequestTimeout() != 0 {
		t.Fatalf("default request timeout %v", c.RequestTimeout())
	}
}

func TestStreamURL(t *testing.T) {
	c := DefaultConfig()
	if got := c.StreamURL(); got != "ws://localhost:8000/ws/scan" {
		t.Fatalf("got %s", got)
	}
	c.APIURL = "https://rig.example"
	if got := c.StreamURL(); got != "wss://rig.example/ws/scan" {
		t.Fatalf("got %s", got)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HoldIntervalMs != 300 {
		t.Fatalf("expected defaults, got hold=%d", cfg.HoldIntervalMs)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leafscan.yaml")
	c := DefaultConfig()
	c.DeviceAddress = "192.168.1.50"
	c.HoldIntervalMs = 250
	c.AdviceCorrelation = CorrelateScanIndex
	c.RequestTimeoutMs = 2000
	if err := c.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.DeviceAddress != "192.168.1.50" || got.HoldInterval() != 250*time.Millisecond || got.AdviceCorrelation != CorrelateScanIndex || got.RequestTimeout() != 2*time.Second {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("hold_interval_ms: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if cfg == nil || cfg.HoldIntervalMs != 300 {
		t.Fatalf("expected defaults alongside error")
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leafscan.yaml")
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan *Config, 1)
	go func() {
		_ = Watch(ctx, path, nil, func(c *Config) {
			select {
			case got <- c:
			default:
			}
		})
	}()
	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)
	c := DefaultConfig()
	c.StepDegrees = 12
	if err := c.Save(path); err != nil {
		t.Fatal(err)
	}
	select {
	case cfg := <-got:
		if cfg.StepDegrees != 12 {
			t.Fatalf("expected reloaded step 12, got %d", cfg.StepDegrees)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timeout waiting for reload")
	}
}
