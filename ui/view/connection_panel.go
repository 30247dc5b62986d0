package view

import (
	"strconv"

	"github.com/soocke/leafscan-go/ui/presenter"
	"github.com/soocke/leafscan-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// ConnectionPanel holds the device address form and the session buttons.
type ConnectionPanel struct {
	address    *TextWidget
	port       *TextWidget
	connect    *TButtonWidget
	disconnect *TButtonWidget
	start      *TButtonWidget
	stop       *TButtonWidget
	detect     *TButtonWidget
	clear      *TButtonWidget
}

// NewConnectionPanel builds the panel inside parent, prefilled with the
// last-used device.
func NewConnectionPanel(parent *FrameWidget, address string, port int, h Handlers) *ConnectionPanel {
	p := &ConnectionPanel{}
	Grid(TLabel(Txt("Device address")), In(parent), Row(0), Column(0), Sticky("w"), Padx("0.4m"))
	p.address = Text(Height(1), Width(18))
	Grid(p.address, In(parent), Row(0), Column(1), Sticky("we"), Padx("0.4m"), Pady("0.15m"))
	setText(p.address, address)
	Grid(TLabel(Txt("Port")), In(parent), Row(1), Column(0), Sticky("w"), Padx("0.4m"))
	p.port = Text(Height(1), Width(6))
	Grid(p.port, In(parent), Row(1), Column(1), Sticky("w"), Padx("0.4m"), Pady("0.15m"))
	setText(p.port, strconv.Itoa(port))

	p.connect = TButton(Txt("Connect"), Style(theme.StylePrimaryButton), Command(func() {
		if h.Connect == nil {
			return
		}
		port, err := strconv.Atoi(textValue(p.port))
		if err != nil || port <= 0 || port > 65535 {
			port = 80
			setText(p.port, "80")
		}
		h.Connect(textValue(p.address), port)
	}))
	p.disconnect = TButton(Txt("Disconnect"), Style(theme.StyleDangerButton), Command(call(h.Disconnect)))
	Grid(p.connect, In(parent), Row(2), Column(0), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	Grid(p.disconnect, In(parent), Row(2), Column(1), Sticky("we"), Padx("0.4m"), Pady("0.3m"))

	p.start = TButton(Txt("Start Auto-Scan"), Style(theme.StylePrimaryButton), Command(call(h.StartScan)))
	p.stop = TButton(Txt("Stop Scan"), Style(theme.StyleDangerButton), Command(call(h.StopScan)))
	p.detect = TButton(Txt("Detect Once"), Command(call(h.Detect)))
	p.clear = TButton(Txt("Clear Results"), Command(call(h.ClearResults)))
	Grid(p.start, In(parent), Row(3), Column(0), Sticky("we"), Padx("0.4m"), Pady("0.2m"))
	Grid(p.stop, In(parent), Row(3), Column(1), Sticky("we"), Padx("0.4m"), Pady("0.2m"))
	Grid(p.detect, In(parent), Row(4), Column(0), Sticky("we"), Padx("0.4m"), Pady("0.2m"))
	Grid(p.clear, In(parent), Row(4), Column(1), Sticky("we"), Padx("0.4m"), Pady("0.2m"))
	return p
}

// SetControls enables the buttons valid for the current session state.
func (p *ConnectionPanel) SetControls(c presenter.Controls) {
	p.connect.Configure(stateOpt(c.Connect))
	p.address.Configure(stateOpt(c.Connect))
	p.port.Configure(stateOpt(c.Connect))
	p.disconnect.Configure(stateOpt(c.Disconnect))
	p.start.Configure(stateOpt(c.StartScan))
	p.stop.Configure(stateOpt(c.StopScan))
	p.detect.Configure(stateOpt(c.Detect))
}

// SetDevice refills the form, used when reconciliation adopts a device.
func (p *ConnectionPanel) SetDevice(address string, port int) {
	if address == "" || textValue(p.address) == address {
		return
	}
	setText(p.address, address)
	setText(p.port, strconv.Itoa(port))
}

func call(fn func()) func() {
	return func() {
		if fn != nil {
			fn()
		}
	}
}
