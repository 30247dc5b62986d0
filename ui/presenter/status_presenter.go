package presenter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/soocke/leafscan-go/domain/rig"
	"github.com/soocke/leafscan-go/domain/session"
	"github.com/soocke/leafscan-go/domain/stream"
)

const (
	pulsePeriod = 500 * time.Millisecond
	noticeTTL   = 4 * time.Second
)

// Controls is the enabled state of the command widgets.
type Controls struct {
	Connect    bool
	Disconnect bool
	StartScan  bool
	StopScan   bool
	Detect     bool
	Move       bool
}

// ControlsFor derives widget enablement from a snapshot.
func ControlsFor(s session.Snapshot) Controls {
	return Controls{
		Connect:    !s.Connected && !s.Connecting,
		Disconnect: s.Connected || s.Connecting,
		StartScan:  s.Connected && !s.Scanning,
		StopScan:   s.Connected && s.Scanning,
		Detect:     s.Connected && !s.Scanning,
		Move:       s.Connected,
	}
}

// StatusView shows scan state, connection, errors and notices.
type StatusView interface {
	SetState(label, color string)
	SetConnection(text string, connected bool)
	SetError(msg string)
	SetNotice(msg string)
	SetControls(c Controls)
}

// HoldView is optionally implemented by a StatusView that shows the active
// hold direction.
type HoldView interface {
	SetHolding(dir rig.Direction)
}

// StatusPresenter reflects the observed scan state and connection in the
// view. It only touches widgets whose content changed; pulsing states
// alternate between the state colour and a dimmed variant.
type StatusPresenter struct {
	view StatusView

	state, color string
	conn         string
	connected    bool
	errMsg       string
	notice       string
	controls     Controls
	hold         rig.Direction
	primed       bool
}

func NewStatusPresenter(view StatusView) *StatusPresenter {
	return &StatusPresenter{view: view}
}

// Tick pushes the parts of snap that differ from what the view shows.
func (p *StatusPresenter) Tick(snap session.Snapshot, now time.Time) {
	if p == nil || p.view == nil {
		return
	}
	label, color := StateText(snap), snap.Display.Color
	if snap.Display.Pulse && (now.UnixNano()/int64(pulsePeriod))%2 == 1 {
		color = Dim(color)
	}
	if !p.primed || label != p.state || color != p.color {
		p.state, p.color = label, color
		p.view.SetState(label, color)
	}

	conn := ConnectionText(snap, now)
	if !p.primed || conn != p.conn || snap.Connected != p.connected {
		p.conn, p.connected = conn, snap.Connected
		p.view.SetConnection(conn, snap.Connected)
	}

	if !p.primed || snap.LastError != p.errMsg {
		p.errMsg = snap.LastError
		p.view.SetError(snap.LastError)
	}

	notice := ""
	if n := snap.Notice; n != nil && now.Sub(n.At) < noticeTTL {
		notice = n.Message
	}
	if !p.primed || notice != p.notice {
		p.notice = notice
		p.view.SetNotice(notice)
	}

	if c := ControlsFor(snap); !p.primed || c != p.controls {
		p.controls = c
		p.view.SetControls(c)
	}

	if hv, ok := p.view.(HoldView); ok && (!p.primed || snap.HoldDirection != p.hold) {
		p.hold = snap.HoldDirection
		hv.SetHolding(snap.HoldDirection)
	}
	p.primed = true
}

// StateText is the state label with the reason or message the backend gave.
func StateText(s session.Snapshot) string {
	label := s.Display.Label
	switch {
	case s.StateMessage != "":
		return label + ": " + s.StateMessage
	case s.StateReason != "":
		return label + " (" + strings.ReplaceAll(s.StateReason, "_", " ") + ")"
	default:
		return label
	}
}

// ConnectionText describes the device link and the event channel.
func ConnectionText(s session.Snapshot, now time.Time) string {
	addr := s.DeviceAddress
	if s.DevicePort != 0 {
		addr += ":" + strconv.Itoa(s.DevicePort)
	}
	switch {
	case s.Connecting:
		return "Connecting to " + addr + "..."
	case !s.Connected:
		return "Disconnected"
	}
	text := "Connected to " + addr
	if !s.ConnectedAt.IsZero() {
		text += ", " + humanize.RelTime(s.ConnectedAt, now, "ago", "from now")
	}
	switch s.Stream {
	case stream.StatusReconnecting:
		text += " | stream reconnecting"
	case stream.StatusLost:
		text += " | stream lost"
	case stream.StatusClosed:
		text += " | stream closed"
	}
	// Readiness flags are only meaningful once the backend has reported them.
	if s.VisionEngineLoaded && !s.YoloLoaded {
		text += " | detector not loaded"
	}
	return text
}

// Dim blends a #rrggbb colour halfway towards black. Other inputs are
// returned unchanged.
func Dim(hex string) string {
	if len(hex) != 7 || hex[0] != '#' {
		return hex
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return hex
	}
	r, g, b := (v>>16)&0xff, (v>>8)&0xff, v&0xff
	return fmt.Sprintf("#%02x%02x%02x", r/2, g/2, b/2)
}
