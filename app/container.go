package app

import (
	"image"
	"log/slog"
	"net/http"

	"github.com/soocke/leafscan-go/config"
	"github.com/soocke/leafscan-go/domain/rig"
	"github.com/soocke/leafscan-go/domain/session"
	"github.com/soocke/leafscan-go/prefs"
	"github.com/soocke/leafscan-go/ui/images"
	"github.com/soocke/leafscan-go/ui/model"
	"github.com/soocke/leafscan-go/ui/presenter"
	"github.com/soocke/leafscan-go/ui/view"
)

const (
	visibleResults = 6
	thumbCacheSize = 64
)

var thumbSize = image.Pt(96, 72)

// AppContainer assembles the backend client, the session controller, models,
// presenters and the root view.
type AppContainer struct {
	Config     *config.Config
	ConfigPath string
	Logger     *slog.Logger

	Client   *rig.Client
	Prefs    *prefs.Store
	Session  *session.Controller
	Timer    *model.ScanTimer
	Feed     *model.FeedModel
	Thumbs   *images.ThumbCache
	RootView *view.RootView
	UI       view.UI

	StatusPresenter  *presenter.StatusPresenter
	SessionPresenter *presenter.SessionPresenter
	FeedPresenter    *presenter.FeedPresenter
	ResultsPresenter *presenter.ResultsPresenter
	Loop             *presenter.Loop

	// Device form prefill: the last saved device, else the config's.
	Address string
	Port    int
}

// BuildContainer constructs all non-Tk components and starts the session
// controller. Presenters that drive widgets are wired by WirePresenters once
// the view has been built.
func BuildContainer(cfg *config.Config, cfgPath string, logger *slog.Logger) *AppContainer {
	c := &AppContainer{Config: cfg, ConfigPath: cfgPath, Logger: logger}
	c.Client = rig.NewClient(cfg.APIURL, &http.Client{Timeout: cfg.RequestTimeout()}, logger)
	c.Address, c.Port = cfg.DeviceAddress, cfg.DevicePort
	if st, err := prefs.Default(); err != nil {
		logger.Warn("device prefs unavailable", "error", err)
	} else {
		c.Prefs = st
		if d, ok, err := st.LastDevice(); err != nil {
			logger.Warn("read last device", "path", st.Path(), "error", err)
		} else if ok {
			c.Address, c.Port = d.Address, d.Port
		}
	}
	var store session.DeviceStore
	if c.Prefs != nil {
		store = c.Prefs
	}
	c.Session = session.New(c.Client, store, cfg, logger)
	c.Timer = model.NewScanTimer()
	c.Feed = model.NewFeedModel()
	c.Thumbs = images.NewThumbCache(thumbCacheSize)
	c.RootView = view.NewRootView(cfg, cfgPath, logger)
	c.UI = c.RootView
	return c
}

// WirePresenters creates the presenters over the built view and the update
// loop that drives them. schedule re-arms the next tick.
func (c *AppContainer) WirePresenters(schedule func()) {
	c.StatusPresenter = presenter.NewStatusPresenter(c.UI)
	c.SessionPresenter = presenter.NewSessionPresenter(c.Timer, c.UI)
	c.FeedPresenter = presenter.NewFeedPresenter(c.UI, c.Feed, c.displaySize(), c.Logger)
	c.ResultsPresenter = presenter.NewResultsPresenter(c.UI, c.Thumbs, visibleResults, thumbSize)
	c.Loop = presenter.NewLoop(c.Session, c.StatusPresenter, c.SessionPresenter, c.FeedPresenter, c.ResultsPresenter, schedule)
}

func (c *AppContainer) displaySize() image.Point {
	return image.Pt(c.Config.DisplayWidth, c.Config.DisplayHeight)
}

// Close stops the presenters' workers and then the controller.
func (c *AppContainer) Close() {
	c.Loop.Close()
	c.Session.Close()
	c.Thumbs.Purge()
}
