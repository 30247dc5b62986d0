package app

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/soocke/leafscan-go/config"
	"github.com/soocke/leafscan-go/ui/theme"
	"github.com/soocke/leafscan-go/ui/view"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

const tick = 100 * time.Millisecond

type app struct {
	cfg     *config.Config
	cfgPath string
	logger  *slog.Logger
	width   int
	height  int
	afterID string
	c       *AppContainer

	// reloaded config waiting to be applied on the Tk thread
	reloaded  atomic.Pointer[config.Config]
	editable  bool
	stopWatch context.CancelFunc
	closed    bool
}

// NewApp prepares the main window. cfgPath may be empty, in which case
// settings are neither saved nor watched.
func NewApp(title string, width, height int, cfg *config.Config, cfgPath string, logger *slog.Logger) *app {
	a := &app{cfg: cfg, cfgPath: cfgPath, logger: logger, width: width, height: height, editable: true}
	App.WmTitle(title)
	WmProtocol(App, "WM_DELETE_WINDOW", a.exitHandler)
	WmGeometry(App, fmt.Sprintf("%dx%d+100+100", width, height))
	return a
}

// Start builds the UI, starts background services and enters the Tk loop.
func (a *app) Start() {
	theme.InitStyles()
	a.c = BuildContainer(a.cfg, a.cfgPath, a.logger)
	ctrl := a.c.Session
	a.c.RootView.Build(a.c.Address, a.c.Port, visibleResults, view.Handlers{
		Connect:      ctrl.Connect,
		Disconnect:   ctrl.Disconnect,
		StartScan:    ctrl.StartScan,
		StopScan:     ctrl.StopScan,
		Detect:       ctrl.Detect,
		ClearResults: ctrl.ClearResults,
		Move:         ctrl.Move,
		StartHold:    ctrl.StartHold,
		StopHold:     ctrl.StopHold,
		HoldActive:   func() bool { return ctrl.Snapshot().Holding },
		DismissError: ctrl.DismissError,
		ConfigSaved:  a.configSaved,
		OpenResult:   a.openResult,
		ToggleDark:   func() { theme.ToggleDark() },
		Exit:         a.exitHandler,
	})
	a.c.WirePresenters(a.scheduleUpdate)
	a.startWatcher()
	a.scheduleUpdate()
	App.Wait()
}

func (a *app) update() {
	if a.closed {
		return
	}
	if cfg := a.reloaded.Swap(nil); cfg != nil {
		a.applyReload(cfg)
	}
	if editable := !a.c.Session.Snapshot().Scanning; editable != a.editable {
		a.editable = editable
		a.c.RootView.ConfigPanel.SetEditable(editable)
	}
	// Loop.Tick re-arms the timer through scheduleUpdate.
	a.c.Loop.Tick()
}

func (a *app) scheduleUpdate() {
	// Schedule the next update using TclAfter to stay on Tk's event loop thread.
	a.afterID = TclAfter(tick, a.update)
}

func (a *app) exitHandler() {
	if a.closed {
		return
	}
	a.closed = true
	if a.afterID != "" {
		TclAfterCancel(a.afterID)
	}
	if a.stopWatch != nil {
		a.stopWatch()
	}
	if a.c != nil {
		a.c.Close()
	}
	Destroy(App)
}

// startWatcher follows external edits of the config file. Reloads are handed
// to the Tk thread through a.reloaded.
func (a *app) startWatcher() {
	if a.cfgPath == "" {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.stopWatch = cancel
	go func() {
		err := config.Watch(ctx, a.cfgPath, a.logger, func(cfg *config.Config) { a.reloaded.Store(cfg) })
		if err != nil {
			a.logger.Warn("config watch stopped", "path", a.cfgPath, "error", err)
		}
	}()
}

func (a *app) applyReload(cfg *config.Config) {
	*a.cfg = *cfg
	a.c.RootView.ConfigPanel.Refresh()
	a.apply(cfg)
}

// configSaved runs after the settings panel validated and saved cfg.
func (a *app) configSaved(cfg *config.Config) {
	a.apply(cfg)
}

func (a *app) apply(cfg *config.Config) {
	a.c.Session.ApplyConfig(cfg)
	a.c.FeedPresenter.Resize(image.Pt(cfg.DisplayWidth, cfg.DisplayHeight))
	if cfg.APIURL != a.c.Client.BaseURL() {
		a.logger.Warn("api_url change takes effect after restart", "current", a.c.Client.BaseURL(), "configured", cfg.APIURL)
	}
}

func (a *app) openResult(i int) {
	r, ok := a.c.ResultsPresenter.At(i)
	if !ok {
		return
	}
	a.c.RootView.ShowResult(r)
}
