// Package protocol defines the scan event channel's message envelope and the
// tagged event types decoded from it.
package protocol

import (
	"encoding/json"
	"strings"

	"github.com/soocke/leafscan-go/domain/scan"
)

// Kind is the envelope's event_type tag.
type Kind string

const (
	KindStateChange    Kind = "state_change"
	KindFrame          Kind = "frame"
	KindDetection      Kind = "detection"
	KindClassification Kind = "classification"
	KindAdvice         Kind = "advice"
	KindError          Kind = "error"
)

// Envelope is the wire shape of every event channel message.
type Envelope struct {
	EventType Kind            `json:"event_type"`
	State     string          `json:"state,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// Model identifies the classification model.
type Model string

const (
	ModelMobileNet Model = "mobilenet"
	ModelResNet    Model = "resnet"
)

// Label returns the display name of m.
func (m Model) Label() string {
	switch m {
	case ModelMobileNet:
		return "MobileNetV2"
	case ModelResNet:
		return "ResNet50"
	default:
		return string(m)
	}
}

// Detection is a bounding box in the source image's native pixel space.
type Detection struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"confidence"`
	ClassName  string  `json:"class_name,omitempty"`
}

// Position is a pan/tilt servo position in degrees.
type Position struct {
	Pan  int `json:"pan"`
	Tilt int `json:"tilt"`
}

// AdviceBody is the free-form advice object produced upstream. It is passed
// unmodified to the advice formatter; the accessors read the common keys.
type AdviceBody map[string]any

func (a AdviceBody) str(key string) string {
	if a == nil {
		return ""
	}
	if v, ok := a[key].(string); ok {
		return v
	}
	return ""
}

func (a AdviceBody) Severity() string        { return a.str("severity") }
func (a AdviceBody) ActionPlan() string      { return a.str("action_plan") }
func (a AdviceBody) SafetyWarning() string   { return a.str("safety_warning") }
func (a AdviceBody) WeatherAdvisory() string { return a.str("weather_advisory") }

// Text joins the textual advice fields into the single string handed to the
// advice formatter.
func (a AdviceBody) Text() string {
	var parts []string
	for _, s := range []string{a.ActionPlan(), a.SafetyWarning(), a.WeatherAdvisory()} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Event is one decoded message from the event channel.
type Event interface {
	Kind() Kind
}

// StateChange carries a new scan state label.
type StateChange struct {
	State   scan.State
	Reason  string
	Message string
}

// Frame carries a captured image and the detections found in it.
type Frame struct {
	Image      []byte
	Detections []Detection
	Position   *Position
	Progress   string
}

// DetectionUpdate carries detections without a new image.
type DetectionUpdate struct {
	Detections []Detection
}

// Classification carries a disease classification for one scan.
type Classification struct {
	ScanIndex       int
	Disease         string
	Confidence      float64
	Model           Model
	InferenceTimeMs float64
	AllPredictions  map[string]float64
	Position        *Position
}

// Advice carries treatment advice for a classification. HasScanIndex is
// false when the message did not name the scan it belongs to.
type Advice struct {
	ScanIndex    int
	HasScanIndex bool
	Disease      string
	Confidence   float64
	Advice       AdviceBody
	Image        []byte
}

// StreamError is a server-pushed error message.
type StreamError struct {
	Message string
}

// Unknown is any event kind this client does not handle.
type Unknown struct {
	Type Kind
	Raw  json.RawMessage
}

func (StateChange) Kind() Kind     { return KindStateChange }
func (Frame) Kind() Kind           { return KindFrame }
func (DetectionUpdate) Kind() Kind { return KindDetection }
func (Classification) Kind() Kind  { return KindClassification }
func (Advice) Kind() Kind          { return KindAdvice }
func (StreamError) Kind() Kind     { return KindError }
func (u Unknown) Kind() Kind       { return u.Type }
