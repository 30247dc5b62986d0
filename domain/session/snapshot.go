package session

import (
	"time"

	"github.com/soocke/leafscan-go/domain/protocol"
	"github.com/soocke/leafscan-go/domain/results"
	"github.com/soocke/leafscan-go/domain/rig"
	"github.com/soocke/leafscan-go/domain/scan"
	"github.com/soocke/leafscan-go/domain/stream"
)

// Frame is the latest image pushed by the backend.
type Frame struct {
	Seq      uint64
	Image    []byte
	Position *protocol.Position
	Progress string
	At       time.Time
}

// Notice is a transient, non-blocking message about a failed command.
type Notice struct {
	Seq     uint64
	Message string
	At      time.Time
}

// Snapshot is an immutable view of the controller, replaced after every
// change. Readers must not modify slices or maps reachable from it.
type Snapshot struct {
	Version   uint64
	SessionID string

	DeviceAddress string
	DevicePort    int
	Connected     bool
	Connecting    bool
	ConnectedAt   time.Time
	LastError     string
	ErrorKind     error // one of the rig.Err* kinds when LastError is set
	Notice        *Notice

	State        scan.State
	Display      scan.Display
	Scanning     bool
	StateReason  string
	StateMessage string

	Stream stream.Status

	Frame        *Frame
	Detections   []protocol.Detection
	DetectionSeq uint64
	Results      []results.Result
	ResultsSeq   uint64

	YoloLoaded         bool
	VisionEngineLoaded bool
	ServerResultCount  int

	Holding       bool
	HoldDirection rig.Direction

	Model               protocol.Model
	DetectionConfidence float64
}
