package view

import (
	"github.com/soocke/leafscan-go/domain/rig"
	"github.com/soocke/leafscan-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// MotorPad is the directional pad. Arrow buttons repeat while held; center
// and stop send a single command.
type MotorPad struct {
	buttons []*TButtonWidget
	holding *TLabelWidget
}

// NewMotorPad builds the pad inside parent.
func NewMotorPad(parent *FrameWidget, h Handlers) *MotorPad {
	m := &MotorPad{}
	hold := func(label string, dir rig.Direction, row, col int) {
		b := TButton(Txt(label), Style(theme.StyleMotorButton), Width(6))
		Grid(b, In(parent), Row(row), Column(col), Padx("0.2m"), Pady("0.2m"))
		Bind(b, "<ButtonPress-1>", Command(func() {
			if h.StartHold != nil {
				h.StartHold(dir)
			}
		}))
		Bind(b, "<ButtonRelease-1>", Command(call(h.StopHold)))
		Bind(b, "<Leave>", Command(func() {
			if h.HoldActive != nil && h.HoldActive() && h.StopHold != nil {
				h.StopHold()
			}
		}))
		m.buttons = append(m.buttons, b)
	}
	once := func(label string, dir rig.Direction, row, col int) {
		b := TButton(Txt(label), Style(theme.StyleMotorButton), Width(6), Command(func() {
			if h.Move != nil {
				h.Move(dir)
			}
		}))
		Grid(b, In(parent), Row(row), Column(col), Padx("0.2m"), Pady("0.2m"))
		m.buttons = append(m.buttons, b)
	}
	hold("Up", rig.Up, 0, 1)
	hold("Left", rig.Left, 1, 0)
	once("Center", rig.Center, 1, 1)
	hold("Right", rig.Right, 1, 2)
	hold("Down", rig.Down, 2, 1)
	once("Stop", rig.Stop, 2, 2)
	m.holding = TLabel(Txt(""), Style(theme.StyleMutedLabel))
	Grid(m.holding, In(parent), Row(3), Column(0), Columnspan(3), Sticky("we"))
	return m
}

// SetEnabled toggles every pad button.
func (m *MotorPad) SetEnabled(enabled bool) {
	for _, b := range m.buttons {
		b.Configure(stateOpt(enabled))
	}
}

// SetHolding shows the active hold direction.
func (m *MotorPad) SetHolding(dir rig.Direction) {
	if dir == "" {
		m.holding.Configure(Txt(""))
		return
	}
	m.holding.Configure(Txt("Moving " + string(dir) + "..."))
}
