package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/soocke/leafscan-go/domain/overlay"
	"github.com/soocke/leafscan-go/domain/results"
	"github.com/soocke/leafscan-go/ui/images"
	"github.com/soocke/leafscan-go/ui/presenter"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders
	. "modernc.org/tk9.0"
)

const (
	detailImageW = 480
	detailImageH = 360
	topPredicted = 5
)

// ResultDetail is a secondary window showing one result in full: the leaf
// image, every prediction and the advice text.
type ResultDetail struct {
	win   *ToplevelWidget
	photo *Img
}

// Open shows r, replacing whatever the window showed before.
func (d *ResultDetail) Open(r results.Result) {
	d.destroy()
	win := App.Toplevel(Borderwidth(2))
	win.WmTitle(fmt.Sprintf("Result %s", presenter.DiseaseName(r.Disease)))
	d.win = win
	WmProtocol(win.Window, "WM_DELETE_WINDOW", d.destroy)

	row := 0
	if len(r.Thumbnail) > 0 {
		if img, err := overlay.DecodeFrame(r.Thumbnail); err == nil {
			d.photo = NewPhoto(Data(images.EncodePNG(images.ScaleToFit(img, detailImageW, detailImageH))))
			Grid(win.Label(Image(d.photo), Relief("sunken"), Borderwidth(1)), Row(row), Column(0), Columnspan(2), Padx("1m"), Pady("1m"))
			row++
		}
	}
	line := func(label, value string) {
		Grid(win.Label(Txt(label), Anchor("w")), Row(row), Column(0), Sticky("nw"), Padx("1m"))
		Grid(win.Label(Txt(value), Anchor("w"), Justify("left"), Wraplength("120m")), Row(row), Column(1), Sticky("w"), Padx("1m"))
		row++
	}
	rowText := presenter.RowFor(r, r.ReceivedAt)
	line("Disease", rowText.Title)
	line("Details", rowText.Detail)
	if preds := Predictions(r.AllPredictions, topPredicted); preds != "" {
		line("Predictions", preds)
	}
	if rowText.Severity != "" {
		line("Severity", rowText.Severity)
	}
	line("Advice", rowText.Advice)

	closeBtn := win.Button(Txt("Close [Esc]"), Command(d.destroy))
	Grid(closeBtn, Row(row), Column(0), Columnspan(2), Sticky("we"), Padx("1m"), Pady("1m"))
	Bind(win, "<Escape>", Command(d.destroy))
}

func (d *ResultDetail) destroy() {
	if d.win != nil {
		Destroy(d.win)
		d.win = nil
	}
	if d.photo != nil {
		d.photo.Delete()
		d.photo = nil
	}
}

// Predictions renders the n most likely classes, best first.
func Predictions(all map[string]float64, n int) string {
	type pred struct {
		name string
		p    float64
	}
	list := make([]pred, 0, len(all))
	for k, v := range all {
		list = append(list, pred{k, v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].p != list[j].p {
			return list[i].p > list[j].p
		}
		return list[i].name < list[j].name
	})
	if len(list) > n {
		list = list[:n]
	}
	parts := make([]string, len(list))
	for i, p := range list {
		parts[i] = presenter.DiseaseName(p.name) + " " + presenter.Percent(p.p)
	}
	return strings.Join(parts, "\n")
}
