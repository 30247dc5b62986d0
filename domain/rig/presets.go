package rig

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/soocke/leafscan-go/domain/protocol"
)

// Preset names a predefined camera position.
type Preset string

const (
	PresetHome       Preset = "home"
	PresetLeftScan   Preset = "left_scan"
	PresetRightScan  Preset = "right_scan"
	PresetTopView    Preset = "top_view"
	PresetBottomView Preset = "bottom_view"
	PresetFullLeft   Preset = "full_left"
	PresetFullRight  Preset = "full_right"
)

// PresetTarget is where a preset sends the rig. An empty Rail leaves the
// rail alone.
type PresetTarget struct {
	Position protocol.Position
	Rail     Direction
}

var presets = []struct {
	name   Preset
	target PresetTarget
}{
	{PresetHome, PresetTarget{protocol.Position{Pan: 90, Tilt: 90}, Stop}},
	{PresetLeftScan, PresetTarget{protocol.Position{Pan: 45, Tilt: 90}, Left}},
	{PresetRightScan, PresetTarget{protocol.Position{Pan: 135, Tilt: 90}, Right}},
	{PresetTopView, PresetTarget{protocol.Position{Pan: 90, Tilt: 45}, ""}},
	{PresetBottomView, PresetTarget{protocol.Position{Pan: 90, Tilt: 135}, ""}},
	{PresetFullLeft, PresetTarget{protocol.Position{Pan: 0, Tilt: 90}, ""}},
	{PresetFullRight, PresetTarget{protocol.Position{Pan: 180, Tilt: 90}, ""}},
}

// Presets lists the preset names in display order.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	for i, p := range presets {
		out[i] = p.name
	}
	return out
}

// ParsePreset validates a preset name.
func ParsePreset(s string) (Preset, error) {
	p := Preset(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := p.Target(); !ok {
		return "", fmt.Errorf("unknown preset %q", s)
	}
	return p, nil
}

// Target reports where p moves the rig.
func (p Preset) Target() (PresetTarget, bool) {
	for _, e := range presets {
		if e.name == p {
			return e.target, true
		}
	}
	return PresetTarget{}, false
}

// Rail limits. Position is an estimate in percent of travel.
const (
	RailHome         = 50
	RailStride       = 5
	DefaultRailSpeed = 150
)

// RailState is the rail's last commanded state.
type RailState struct {
	Position  int       `json:"linear_position"`
	Moving    bool      `json:"rail_moving"`
	Direction Direction `json:"rail_direction"`
	Speed     int       `json:"rail_speed"`
}

// HomeOptions selects what HomeAll homes.
type HomeOptions struct {
	Rail    bool `json:"home_rail"`
	PanTilt bool `json:"home_pan_tilt"`
}

// HomePanTilt centers both servos.
func (c *Client) HomePanTilt(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/esp32/motor/home", nil, nil, ErrCommand, "home")
}

// MoveToPreset moves the servos, and for some presets the rail, to p.
func (c *Client) MoveToPreset(ctx context.Context, p Preset) error {
	if _, ok := p.Target(); !ok {
		return &Error{Kind: ErrCommand, Op: "preset", Detail: fmt.Sprintf("unknown preset %q", p)}
	}
	return c.do(ctx, http.MethodPost, "/esp32/motor/preset", map[string]Preset{"preset": p}, nil, ErrCommand, "preset")
}

// HomeAll homes the rail to center and the servos to 90/90 as selected.
func (c *Client) HomeAll(ctx context.Context, opts HomeOptions) error {
	return c.do(ctx, http.MethodPost, "/esp32/home", opts, nil, ErrCommand, "home all")
}

// MoveRail drives the rail left or right at speed (0..255).
func (c *Client) MoveRail(ctx context.Context, dir Direction, speed int) error {
	if dir != Left && dir != Right && dir != Stop {
		return &Error{Kind: ErrCommand, Op: "rail", Detail: "rail direction must be left, right or stop"}
	}
	if speed < 0 || speed > 255 {
		return &Error{Kind: ErrCommand, Op: "rail", Detail: "speed must be within 0..255"}
	}
	body := map[string]any{"direction": dir, "speed": speed}
	return c.do(ctx, http.MethodPost, "/esp32/rail/move", body, nil, ErrCommand, "rail")
}

// StopRail halts the rail.
func (c *Client) StopRail(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/esp32/rail/stop", nil, nil, ErrCommand, "rail stop")
}

// Rail reads the rail state.
func (c *Client) Rail(ctx context.Context) (RailState, error) {
	var st RailState
	err := c.do(ctx, http.MethodGet, "/esp32/rail", nil, &st, ErrCommand, "rail")
	return st, err
}
