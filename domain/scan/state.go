package scan

// State is a scan state label as pushed by the device-control backend.
// Labels outside the known set are kept verbatim and rendered neutrally.
type State string

const (
	StateIdle         State = "idle"
	StateScanning     State = "scanning"
	StateLeafDetected State = "leaf_detected"
	StateCapturing    State = "capturing"
	StateClassifying  State = "classifying"
	StateAdvising     State = "advising"
	StateResultReady  State = "result_ready"
	StateError        State = "error"
)

func (s State) String() string { return string(s) }

// Known reports whether s is one of the labels the backend documents.
func (s State) Known() bool {
	switch s {
	case StateIdle, StateScanning, StateLeafDetected, StateCapturing,
		StateClassifying, StateAdvising, StateResultReady, StateError:
		return true
	default:
		return false
	}
}

// InProgress reports whether a scan is running in state s.
func (s State) InProgress() bool {
	switch s {
	case StateScanning, StateLeafDetected, StateCapturing, StateClassifying, StateAdvising:
		return true
	default:
		return false
	}
}

// Tone is the semantic colour family used to render a state.
type Tone int

const (
	ToneNeutral Tone = iota
	ToneActive
	ToneAttention
	ToneBusy
	ToneSuccess
	ToneDanger
)

// Display is the rendering of a state: a human label, a colour and whether
// the indicator should pulse.
type Display struct {
	Label string
	Color string
	Tone  Tone
	Pulse bool
}

var displays = map[State]Display{
	StateIdle:         {Label: "Idle", Color: "#64748b", Tone: ToneNeutral},
	StateScanning:     {Label: "Scanning...", Color: "#10b981", Tone: ToneActive, Pulse: true},
	StateLeafDetected: {Label: "Leaf Detected!", Color: "#f59e0b", Tone: ToneAttention},
	StateCapturing:    {Label: "Capturing...", Color: "#0ea5e9", Tone: ToneBusy, Pulse: true},
	StateClassifying:  {Label: "Classifying...", Color: "#a855f7", Tone: ToneBusy, Pulse: true},
	StateAdvising:     {Label: "Getting Advice...", Color: "#6366f1", Tone: ToneBusy, Pulse: true},
	StateResultReady:  {Label: "Result Ready", Color: "#10b981", Tone: ToneSuccess},
	StateError:        {Label: "Error", Color: "#ef4444", Tone: ToneDanger},
}

// NeutralColor is used for labels without a dedicated rendering.
const NeutralColor = "#64748b"

// DisplayFor projects s to its rendering. Unknown labels fall back to the raw
// label text (or "Unknown" when empty) in the neutral colour.
func DisplayFor(s State) Display {
	if d, ok := displays[s]; ok {
		return d
	}
	label := string(s)
	if label == "" {
		label = "Unknown"
	}
	return Display{Label: label, Color: NeutralColor, Tone: ToneNeutral}
}
