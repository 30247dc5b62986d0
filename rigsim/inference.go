package rigsim

import (
	"errors"
	"strings"

	"github.com/soocke/leafscan-go/domain/protocol"
)

// Classification is the simulated disease classifier output.
type Classification struct {
	Disease         string
	Confidence      float64
	AllPredictions  map[string]float64
	InferenceTimeMs float64
}

// Classifier labels the leaf found in shot.
type Classifier func(shot Shot, model protocol.Model) (Classification, error)

// Advisor produces treatment advice for a diseased leaf.
type Advisor func(disease string) (protocol.AdviceBody, error)

// ErrNoLeaf is returned by the default classifier when a shot has no leaf.
var ErrNoLeaf = errors.New("no leaf in frame")

// Detect converts the shot's ground truth into detections.
func Detect(shot Shot) []protocol.Detection {
	out := make([]protocol.Detection, 0, len(shot.Leaves))
	for _, l := range shot.Leaves {
		out = append(out, protocol.Detection{
			X1:         float64(l.Box.Min.X),
			Y1:         float64(l.Box.Min.Y),
			X2:         float64(l.Box.Max.X),
			Y2:         float64(l.Box.Max.Y),
			Confidence: l.Confidence,
			ClassName:  "leaf",
		})
	}
	return out
}

// Labels known to the simulated models.
var Labels = []string{"Healthy", "Tomato_Early_Blight", "Tomato_Late_Blight", "Tomato_Leaf_Mold"}

// DefaultClassifier reports the disease of the most confident leaf. ResNet is
// simulated as slightly more certain and slower than MobileNet.
func DefaultClassifier(shot Shot, model protocol.Model) (Classification, error) {
	if len(shot.Leaves) == 0 {
		return Classification{}, ErrNoLeaf
	}
	best := shot.Leaves[0]
	for _, l := range shot.Leaves[1:] {
		if l.Confidence > best.Confidence {
			best = l
		}
	}
	conf, ms := 0.88, 42.0
	if model == protocol.ModelResNet {
		conf, ms = 0.94, 118.0
	}
	preds := make(map[string]float64, len(Labels))
	rest := (1 - conf) / float64(len(Labels)-1)
	for _, l := range Labels {
		preds[l] = rest
	}
	preds[best.Disease] = conf
	return Classification{Disease: best.Disease, Confidence: conf, AllPredictions: preds, InferenceTimeMs: ms}, nil
}

var adviceTable = map[string]protocol.AdviceBody{
	"tomato_early_blight": {
		"severity":         "Medium",
		"action_plan":      "Remove lower infected leaves and apply a copper-based fungicide every 7 to 10 days.",
		"safety_warning":   "Wear gloves and avoid spraying before rain.",
		"weather_advisory": "Warm humid nights favour spread.",
	},
	"tomato_late_blight": {
		"severity":         "High",
		"action_plan":      "Destroy infected plants and treat neighbours with chlorothalonil.",
		"safety_warning":   "Do not compost infected material.",
		"weather_advisory": "Cool wet weather accelerates infection.",
	},
}

// DefaultAdvisor returns canned advice for known diseases and a generic plan
// for the rest.
func DefaultAdvisor(disease string) (protocol.AdviceBody, error) {
	if a, ok := adviceTable[strings.ToLower(disease)]; ok {
		out := make(protocol.AdviceBody, len(a)+1)
		for k, v := range a {
			out[k] = v
		}
		out["rag_enabled"] = false
		return out, nil
	}
	return protocol.AdviceBody{
		"severity":    "Unknown",
		"action_plan": "Isolate the plant and consult a local extension service.",
		"rag_enabled": false,
	}, nil
}
