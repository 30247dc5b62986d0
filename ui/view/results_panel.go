package view

import (
	"fmt"

	"github.com/soocke/leafscan-go/ui/presenter"
	"github.com/soocke/leafscan-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// ResultsPanel lists the newest results as fixed rows that are reconfigured
// in place.
type ResultsPanel struct {
	header *TLabelWidget
	rows   []*resultRow
}

type resultRow struct {
	parent *FrameWidget
	frame  *FrameWidget
	thumb  photo
	title  *LabelWidget
	detail *TLabelWidget
	advice *LabelWidget
	open   *TButtonWidget
	shown  bool
	row    int
}

// NewResultsPanel builds n empty rows inside parent.
func NewResultsPanel(parent *FrameWidget, n int, onOpen func(i int)) *ResultsPanel {
	p := &ResultsPanel{}
	p.header = TLabel(Txt("Results (0)"), Anchor("w"))
	Grid(p.header, In(parent), Row(0), Column(0), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	for i := 0; i < n; i++ {
		idx := i
		r := &resultRow{parent: parent, row: i + 1}
		r.frame = Frame(Borderwidth(1), Relief("groove"))
		r.thumb.label = Label()
		r.title = Label(Anchor("w"))
		r.detail = TLabel(Anchor("w"), Style(theme.StyleMutedLabel))
		r.advice = Label(Anchor("w"), Justify("left"), Wraplength("110m"))
		r.open = TButton(Txt("Details"), Command(func() {
			if onOpen != nil {
				onOpen(idx)
			}
		}))
		Grid(r.thumb.label, In(r.frame), Row(0), Column(0), Rowspan(3), Sticky("nw"), Padx("0.3m"), Pady("0.3m"))
		Grid(r.title, In(r.frame), Row(0), Column(1), Sticky("w"), Padx("0.3m"))
		Grid(r.detail, In(r.frame), Row(1), Column(1), Sticky("w"), Padx("0.3m"))
		Grid(r.advice, In(r.frame), Row(2), Column(1), Sticky("w"), Padx("0.3m"))
		Grid(r.open, In(r.frame), Row(0), Column(2), Sticky("ne"), Padx("0.3m"))
		p.rows = append(p.rows, r)
	}
	return p
}

func (p *ResultsPanel) SetResults(entries []presenter.ResultEntry, total int) {
	if len(entries) < total {
		p.header.Configure(Txt(fmt.Sprintf("Results (%d, showing newest %d)", total, len(entries))))
	} else {
		p.header.Configure(Txt(fmt.Sprintf("Results (%d)", total)))
	}
	for i, r := range p.rows {
		if i >= len(entries) {
			if r.shown {
				GridForget(r.frame.Window)
				r.shown = false
			}
			continue
		}
		e := entries[i]
		r.thumb.set(e.Thumb)
		fg := theme.CurrentPalette().Text
		switch {
		case e.Healthy:
			fg = theme.CurrentPalette().Accent
		case e.Severity != "":
			fg = theme.SeverityColor(e.Severity)
		}
		title := e.Title
		if e.Severity != "" {
			title += "  [" + e.Severity + "]"
		}
		r.title.Configure(Txt(title), Foreground(fg))
		r.detail.Configure(Txt(e.Detail))
		r.advice.Configure(Txt(e.Advice))
		if !r.shown {
			Grid(r.frame, In(r.parent), Row(r.row), Column(0), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.2m"))
			r.shown = true
		}
	}
}
