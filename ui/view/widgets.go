package view

import (
	"strings"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// textValue returns the trimmed content of a one-line Text widget.
func textValue(w *TextWidget) string {
	if w == nil {
		return ""
	}
	return strings.TrimSpace(strings.Join(w.Get("1.0", END), ""))
}

func setText(w *TextWidget, s string) {
	if w == nil {
		return
	}
	w.Delete("1.0", END)
	w.Insert("1.0", s)
}

func stateOpt(enabled bool) Opt {
	if enabled {
		return State("normal")
	}
	return State("disabled")
}

// photo replaces the image shown by a label, deleting the previous one so
// obsolete pixel buffers are not retained.
type photo struct {
	label *LabelWidget
	img   *Img
}

func (p *photo) set(png []byte) {
	if p == nil || p.label == nil || len(png) == 0 {
		return
	}
	if p.img != nil {
		p.img.Delete()
	}
	p.img = NewPhoto(Data(png))
	p.label.Configure(Image(p.img))
}
