package protocol

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/soocke/leafscan-go/domain/scan"
)

// Wire payloads. Field names follow the backend's snake_case JSON.

type StateData struct {
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

type FrameData struct {
	FrameBase64 string      `json:"frame_base64"`
	Detections  []Detection `json:"detections"`
	Position    *Position   `json:"position,omitempty"`
	Progress    string      `json:"progress,omitempty"`
}

type DetectionData struct {
	Detections []Detection `json:"detections"`
}

type ClassificationData struct {
	ScanIndex       int                `json:"scan_index"`
	Disease         string             `json:"disease"`
	Confidence      float64            `json:"confidence"`
	Model           Model              `json:"model"`
	InferenceTimeMs float64            `json:"inference_time_ms"`
	AllPredictions  map[string]float64 `json:"all_predictions,omitempty"`
	Position        *Position          `json:"position,omitempty"`
}

type AdviceData struct {
	ScanIndex   *int       `json:"scan_index,omitempty"`
	Disease     string     `json:"disease,omitempty"`
	Confidence  float64    `json:"confidence,omitempty"`
	Advice      AdviceBody `json:"advice"`
	ImageBase64 string     `json:"image_base64,omitempty"`
}

type ErrorData struct {
	Message string `json:"message"`
}

// ErrMalformed is returned for messages that are not a JSON envelope.
var ErrMalformed = errors.New("malformed event envelope")

// Decode parses one event channel message. Unknown event kinds decode to
// Unknown without error; a known kind whose payload does not parse returns
// an error wrapping ErrMalformed.
func Decode(msg []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch env.EventType {
	case KindStateChange:
		var d StateData
		if err := decodeData(env, &d); err != nil {
			return nil, err
		}
		return StateChange{State: scan.State(env.State), Reason: d.Reason, Message: d.Message}, nil
	case KindFrame:
		var d FrameData
		if err := decodeData(env, &d); err != nil {
			return nil, err
		}
		img, err := decodeImage(d.FrameBase64)
		if err != nil {
			return nil, fmt.Errorf("%w: frame image: %v", ErrMalformed, err)
		}
		return Frame{Image: img, Detections: nonNil(d.Detections), Position: d.Position, Progress: d.Progress}, nil
	case KindDetection:
		var d DetectionData
		if err := decodeData(env, &d); err != nil {
			return nil, err
		}
		return DetectionUpdate{Detections: nonNil(d.Detections)}, nil
	case KindClassification:
		var d ClassificationData
		if err := decodeData(env, &d); err != nil {
			return nil, err
		}
		return Classification{
			ScanIndex:       d.ScanIndex,
			Disease:         d.Disease,
			Confidence:      d.Confidence,
			Model:           d.Model,
			InferenceTimeMs: d.InferenceTimeMs,
			AllPredictions:  d.AllPredictions,
			Position:        d.Position,
		}, nil
	case KindAdvice:
		var d AdviceData
		if err := decodeData(env, &d); err != nil {
			return nil, err
		}
		img, err := decodeImage(d.ImageBase64)
		if err != nil {
			return nil, fmt.Errorf("%w: advice image: %v", ErrMalformed, err)
		}
		a := Advice{Disease: d.Disease, Confidence: d.Confidence, Advice: d.Advice, Image: img}
		if d.ScanIndex != nil {
			a.ScanIndex, a.HasScanIndex = *d.ScanIndex, true
		}
		return a, nil
	case KindError:
		var d ErrorData
		if err := decodeData(env, &d); err != nil {
			return nil, err
		}
		return StreamError{Message: d.Message}, nil
	default:
		return Unknown{Type: env.EventType, Raw: append(json.RawMessage(nil), msg...)}, nil
	}
}

func decodeData(env Envelope, dst any) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return fmt.Errorf("%w: %s data: %v", ErrMalformed, env.EventType, err)
	}
	return nil
}

func decodeImage(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

func nonNil(d []Detection) []Detection {
	if d == nil {
		return []Detection{}
	}
	return d
}

// Encode builds a wire message. Used by the rig simulator and tests.
func Encode(kind Kind, state scan.State, data any) ([]byte, error) {
	env := Envelope{EventType: kind, State: string(state), Timestamp: time.Now().UTC().Format(time.RFC3339Nano)}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	return json.Marshal(env)
}

// EncodeImage base64-encodes image bytes for a wire payload.
func EncodeImage(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}
