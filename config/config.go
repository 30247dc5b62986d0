package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const configRelPath = "leafscan/config.yaml"

// Advice correlation modes.
const (
	CorrelateScanIndex  = "scan_index"
	CorrelatePositional = "positional"
)

// Config holds runtime configuration for the scan controller and its views.
// Fields may be loaded from a YAML file and overridden by command-line flags.
type Config struct {
	Debug bool `yaml:"debug"`

	// Backend and device
	APIURL        string `yaml:"api_url"`
	StreamPath    string `yaml:"stream_path"`
	DeviceAddress string `yaml:"device_address"`
	DevicePort    int    `yaml:"device_port"`

	// Motor
	StepDegrees    int `yaml:"step_degrees"`
	RailSpeed      int `yaml:"rail_speed"`
	HoldIntervalMs int `yaml:"hold_interval_ms"`

	// Auto-scan
	ModelType           string  `yaml:"model_type"`
	DetectionConfidence float64 `yaml:"detection_confidence"`

	// Event stream reconnect policy
	ReconnectMaxAttempts int `yaml:"reconnect_max_attempts"`
	ReconnectBaseMs      int `yaml:"reconnect_base_ms"`
	ReconnectMaxMs       int `yaml:"reconnect_max_ms"`

	// Per-request HTTP timeout; 0 leaves requests unbounded.
	RequestTimeoutMs int `yaml:"request_timeout_ms"`

	AdviceCorrelation string `yaml:"advice_correlation"`
	ResultLimit       int    `yaml:"result_limit"`

	// Feed view size
	DisplayWidth  int `yaml:"display_width"`
	DisplayHeight int `yaml:"display_height"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:                false,
		APIURL:               "http://localhost:8000",
		StreamPath:           "/ws/scan",
		DeviceAddress:        "192.168.1.100",
		DevicePort:           80,
		StepDegrees:          5,
		RailSpeed:            150,
		HoldIntervalMs:       300,
		ModelType:            "mobilenet",
		DetectionConfidence:  0.25,
		ReconnectMaxAttempts: 5,
		ReconnectBaseMs:      500,
		ReconnectMaxMs:       8000,
		AdviceCorrelation:    CorrelatePositional,
		ResultLimit:          50,
		DisplayWidth:         640,
		DisplayHeight:        360,
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.APIURL == "" {
		c.APIURL = "http://localhost:8000"
	}
	if !strings.HasPrefix(c.StreamPath, "/") {
		c.StreamPath = "/ws/scan"
	}
	if strings.TrimSpace(c.DeviceAddress) == "" {
		c.DeviceAddress = "192.168.1.100"
	}
	if c.DevicePort <= 0 || c.DevicePort > 65535 {
		c.DevicePort = 80
	}
	if c.StepDegrees < 1 || c.StepDegrees > 45 {
		c.StepDegrees = 5
	}
	if c.RailSpeed < 0 || c.RailSpeed > 255 {
		c.RailSpeed = 150
	}
	if c.HoldIntervalMs < 50 {
		c.HoldIntervalMs = 300
	}
	switch c.ModelType {
	case "mobilenet", "resnet":
	default:
		c.ModelType = "mobilenet"
	}
	if c.DetectionConfidence <= 0 || c.DetectionConfidence > 1 {
		c.DetectionConfidence = 0.25
	}
	if c.ReconnectMaxAttempts < 0 {
		c.ReconnectMaxAttempts = 0
	}
	if c.ReconnectBaseMs <= 0 {
		c.ReconnectBaseMs = 500
	}
	if c.ReconnectMaxMs < c.ReconnectBaseMs {
		c.ReconnectMaxMs = c.ReconnectBaseMs * 16
	}
	switch c.AdviceCorrelation {
	case CorrelateScanIndex, CorrelatePositional:
	default:
		c.AdviceCorrelation = CorrelatePositional
	}
	if c.RequestTimeoutMs < 0 {
		c.RequestTimeoutMs = 0
	}
	if c.ResultLimit <= 0 {
		c.ResultLimit = 50
	}
	if c.DisplayWidth < 160 {
		c.DisplayWidth = 640
	}
	if c.DisplayHeight < 120 {
		c.DisplayHeight = 360
	}
	return nil
}

// HoldInterval returns the hold-to-repeat period.
func (c *Config) HoldInterval() time.Duration {
	return time.Duration(c.HoldIntervalMs) * time.Millisecond
}

// ReconnectBase returns the first reconnect delay.
func (c *Config) ReconnectBase() time.Duration {
	return time.Duration(c.ReconnectBaseMs) * time.Millisecond
}

// ReconnectMax returns the reconnect delay ceiling.
func (c *Config) ReconnectMax() time.Duration {
	return time.Duration(c.ReconnectMaxMs) * time.Millisecond
}

// RequestTimeout returns the per-request HTTP timeout, 0 for none.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// StreamURL derives the event channel URL from the API URL.
func (c *Config) StreamURL() string {
	base := c.APIURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + c.StreamPath
}

// DefaultPath returns the config file under the XDG config directory,
// creating the parent directory if needed.
func DefaultPath() (string, error) {
	path, err := xdg.ConfigFile(configRelPath)
	if err != nil {
		return "", fmt.Errorf("resolve config file: %w", err)
	}
	return path, nil
}

// Load attempts to read configuration from the given YAML file path. If the file does not
// exist it returns DefaultConfig(). On parse error it returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), err
	}
	_ = cfg.Validate()
	return cfg, nil
}

// Save writes the configuration to the given path in YAML format.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
