package view

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/soocke/leafscan-go/config"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

var models = []string{"mobilenet", "resnet"}

// ConfigPanel encapsulates the settings form and apply logic.
// It writes back into *config.Config on ApplyChanges.
type ConfigPanel interface {
	Build(parent *FrameWidget, startRow int) (endRow int)
	SetEditable(enabled bool)
	ApplyChanges()
	Refresh()
}

type configPanel struct {
	cfg      *config.Config
	cfgPath  string
	logger   *slog.Logger
	onSaved  func(cfg *config.Config)
	applyBtn *TButtonWidget
	model    *TComboboxWidget
	widgets  map[string]*TextWidget
}

// NewConfigPanel creates the view bound to cfg. onSaved receives a copy of
// the validated configuration after every successful apply.
func NewConfigPanel(cfg *config.Config, cfgPath string, logger *slog.Logger, onSaved func(cfg *config.Config)) ConfigPanel {
	return &configPanel{cfg: cfg, cfgPath: cfgPath, logger: logger, onSaved: onSaved, widgets: make(map[string]*TextWidget)}
}

func (v *configPanel) Build(parent *FrameWidget, startRow int) (row int) {
	row = startRow
	makeRow := func(id, label string) {
		lbl := TLabel(Txt(label), Anchor("w"))
		Grid(lbl, In(parent), Row(row), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.15m"))
		w := Text(Height(1), Width(16))
		Grid(w, In(parent), Row(row), Column(1), Sticky("we"), Padx("0.4m"), Pady("0.15m"))
		v.widgets[id] = w
		row++
	}
	makeRow("apiURL", "Backend URL")
	makeRow("stepDegrees", "Step (degrees, 1-45)")
	makeRow("holdIntervalMs", "Hold Interval (ms)")
	makeRow("railSpeed", "Rail Speed (0-255)")
	makeRow("confidence", "Detection Confidence")

	Grid(TLabel(Txt("Model"), Anchor("w")), In(parent), Row(row), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.15m"))
	v.model = TCombobox(Values(models), Width(14))
	Grid(v.model, In(parent), Row(row), Column(1), Sticky("we"), Padx("0.4m"), Pady("0.15m"))
	row++

	v.applyBtn = TButton(Txt("Apply Changes"), Command(func() { v.ApplyChanges() }))
	Grid(v.applyBtn, In(parent), Row(row), Column(0), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	row++
	v.Refresh()
	return row
}

// Refresh reloads the widgets from the bound config, e.g. after a file reload.
func (v *configPanel) Refresh() {
	c := v.cfg
	if c == nil {
		return
	}
	setText(v.widgets["apiURL"], c.APIURL)
	setText(v.widgets["stepDegrees"], strconv.Itoa(c.StepDegrees))
	setText(v.widgets["holdIntervalMs"], strconv.Itoa(c.HoldIntervalMs))
	setText(v.widgets["railSpeed"], strconv.Itoa(c.RailSpeed))
	setText(v.widgets["confidence"], fmt.Sprintf("%.2f", c.DetectionConfidence))
	if v.model != nil {
		idx := 0
		for i, m := range models {
			if m == c.ModelType {
				idx = i
			}
		}
		v.model.Current(idx)
	}
}

func (v *configPanel) SetEditable(enabled bool) {
	for _, w := range v.widgets {
		if w != nil {
			w.Configure(stateOpt(enabled))
		}
	}
	if v.model != nil {
		v.model.Configure(stateOpt(enabled))
	}
	if v.applyBtn != nil {
		v.applyBtn.Configure(stateOpt(enabled))
	}
}

func (v *configPanel) ApplyChanges() {
	if v.cfg == nil {
		return
	}
	cfg := *v.cfg
	assignInt := func(id string, dst *int) {
		if i, ok := parseIntField(textValue(v.widgets[id])); ok {
			*dst = i
		}
	}
	if u := textValue(v.widgets["apiURL"]); u != "" {
		cfg.APIURL = u
	}
	assignInt("stepDegrees", &cfg.StepDegrees)
	assignInt("holdIntervalMs", &cfg.HoldIntervalMs)
	assignInt("railSpeed", &cfg.RailSpeed)
	if f, ok := parseFloatField(textValue(v.widgets["confidence"])); ok {
		cfg.DetectionConfidence = f
	}
	if v.model != nil {
		if i, err := strconv.Atoi(v.model.Current(nil)); err == nil && i >= 0 && i < len(models) {
			cfg.ModelType = models[i]
		}
	}
	if err := cfg.Validate(); err != nil {
		return
	}
	*v.cfg = cfg
	v.Refresh()
	if v.cfgPath != "" {
		if err := v.cfg.Save(v.cfgPath); err != nil {
			if v.logger != nil {
				v.logger.Error("config save failed", "error", err)
			}
		} else if v.logger != nil {
			v.logger.Info("config saved", "path", v.cfgPath)
		}
	}
	if v.onSaved != nil {
		saved := cfg
		v.onSaved(&saved)
	}
}

func parseFloatField(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseIntField(s string) (int, bool) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return i, true
}
