package view

import (
	"image"
	"log/slog"
	"time"

	"github.com/soocke/leafscan-go/config"
	"github.com/soocke/leafscan-go/domain/results"
	"github.com/soocke/leafscan-go/domain/rig"
	"github.com/soocke/leafscan-go/ui/presenter"
	"github.com/soocke/leafscan-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// Handlers are the user actions the view forwards. Nil entries are ignored.
type Handlers struct {
	Connect      func(address string, port int)
	Disconnect   func()
	StartScan    func()
	StopScan     func()
	Detect       func()
	ClearResults func()
	Move         func(dir rig.Direction)
	StartHold    func(dir rig.Direction)
	StopHold     func()
	HoldActive   func() bool
	DismissError func()
	ConfigSaved  func(cfg *config.Config)
	OpenResult   func(i int)
	ToggleDark   func()
	Exit         func()
}

// UI is the subset of view operations presenters need.
type UI interface {
	presenter.StatusView
	presenter.SessionView
	presenter.FeedView
	presenter.ResultsView
}

// RootView composes the top-level layout and wires UI callbacks. It owns the
// subviews but exposes them for the app wrapper.
type RootView struct {
	cfg     *config.Config
	cfgPath string
	logger  *slog.Logger

	Status      *StatusBar
	Feed        FeedPreview
	Connection  *ConnectionPanel
	Motor       *MotorPad
	ConfigPanel ConfigPanel
	Session     SessionStats
	Results     *ResultsPanel
	Detail      ResultDetail
}

var _ UI = (*RootView)(nil)

func NewRootView(cfg *config.Config, cfgPath string, logger *slog.Logger) *RootView {
	return &RootView{cfg: cfg, cfgPath: cfgPath, logger: logger}
}

// Build constructs the layout. address/port prefill the device form.
func (rv *RootView) Build(address string, port, visibleResults int, h Handlers) {
	if rv == nil {
		return
	}
	rv.Status = NewStatusBar(0, call(h.DismissError))

	menu := Frame()
	Grid(menu, Row(0), Column(4), Sticky("ne"), Padx("0.3m"), Pady("0.3m"))
	Grid(TButton(Txt("Dark Mode"), Command(call(h.ToggleDark))), In(menu), Row(0), Column(0), Padx("0.2m"))
	Grid(TButton(Txt("Exit"), Style(theme.StyleDangerButton), Command(call(h.Exit))), In(menu), Row(0), Column(1), Padx("0.2m"))

	feedFrame := Frame()
	Grid(feedFrame, Row(2), Column(0), Columnspan(3), Sticky("nw"), Padx("0.4m"), Pady("0.4m"))
	rv.Feed = NewFeedPreview(feedFrame, rv.cfg.DisplayWidth, rv.cfg.DisplayHeight)

	side := Frame()
	Grid(side, Row(2), Column(3), Columnspan(2), Sticky("ne"), Padx("0.4m"), Pady("0.4m"))
	conn := Frame()
	Grid(conn, In(side), Row(0), Column(0), Sticky("we"), Pady("0.3m"))
	rv.Connection = NewConnectionPanel(conn, address, port, h)
	pad := Frame()
	Grid(pad, In(side), Row(1), Column(0), Pady("0.3m"))
	rv.Motor = NewMotorPad(pad, h)
	settings := Frame()
	Grid(settings, In(side), Row(2), Column(0), Sticky("we"), Pady("0.3m"))
	rv.ConfigPanel = NewConfigPanel(rv.cfg, rv.cfgPath, rv.logger, h.ConfigSaved)
	endRow := rv.ConfigPanel.Build(settings, 0)
	rv.Session = NewSessionStats(settings, endRow, 0)

	list := Frame()
	Grid(list, Row(3), Column(0), Columnspan(5), Sticky("we"), Padx("0.4m"), Pady("0.4m"))
	GridColumnConfigure(App, 2, Weight(1))
	rv.Results = NewResultsPanel(list, visibleResults, h.OpenResult)
}

func (rv *RootView) SetState(label, color string) { rv.Status.SetState(label, color) }

func (rv *RootView) SetConnection(text string, connected bool) {
	rv.Status.SetConnection(text, connected)
}

func (rv *RootView) SetError(msg string)  { rv.Status.SetError(msg) }
func (rv *RootView) SetNotice(msg string) { rv.Status.SetNotice(msg) }

// SetControls toggles the connection, scan and motor widgets.
func (rv *RootView) SetControls(c presenter.Controls) {
	rv.Connection.SetControls(c)
	rv.Motor.SetEnabled(c.Move)
}

// SetHolding reflects the active hold direction on the pad.
func (rv *RootView) SetHolding(dir rig.Direction) { rv.Motor.SetHolding(dir) }

func (rv *RootView) SetSession(current, total time.Duration, scans int) {
	rv.Session.SetSession(current, total, scans)
}

func (rv *RootView) UpdateFeed(img image.Image)      { rv.Feed.UpdateFeed(img) }
func (rv *RootView) UpdateDetection(img image.Image) { rv.Feed.UpdateDetection(img) }
func (rv *RootView) SetFeedCaption(text string)      { rv.Feed.SetFeedCaption(text) }

func (rv *RootView) SetResults(entries []presenter.ResultEntry, total int) {
	rv.Results.SetResults(entries, total)
}

// ShowResult opens the detail window for r.
func (rv *RootView) ShowResult(r results.Result) { rv.Detail.Open(r) }

// ResetFeed clears the preview images.
func (rv *RootView) ResetFeed() { rv.Feed.Reset() }
