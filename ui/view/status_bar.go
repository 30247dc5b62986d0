package view

import (
	"github.com/soocke/leafscan-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// StatusBar shows the scan state badge, connection line, error banner and
// transient notices.
type StatusBar struct {
	state   *LabelWidget
	conn    *TLabelWidget
	errLbl  *TLabelWidget
	dismiss *TButtonWidget
	notice  *TLabelWidget
	errRow  int
}

// NewStatusBar grids the bar into rows row and row+1 of the root window.
func NewStatusBar(row int, onDismiss func()) *StatusBar {
	b := &StatusBar{errRow: row + 1}
	b.state = Label(Txt("Idle"), Width(22), Foreground("white"), Background("#64748b"), Borderwidth(1), Relief("groove"), Padx("2m"), Pady("1m"))
	Grid(b.state, Row(row), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.3m"))
	b.conn = TLabel(Txt("Disconnected"), Style(theme.StyleMutedLabel))
	Grid(b.conn, Row(row), Column(1), Columnspan(2), Sticky("w"), Padx("0.4m"))
	b.notice = TLabel(Txt(""), Style(theme.StyleNoticeLabel))
	Grid(b.notice, Row(row), Column(3), Sticky("e"), Padx("0.4m"))

	b.errLbl = TLabel(Txt(""), Style(theme.StyleErrorLabel))
	b.dismiss = TButton(Txt("Dismiss"), Command(onDismiss))
	return b
}

func (b *StatusBar) SetState(label, color string) {
	b.state.Configure(Txt(label), Background(color))
}

func (b *StatusBar) SetConnection(text string, connected bool) {
	fg := theme.CurrentPalette().TextMuted
	if connected {
		fg = theme.CurrentPalette().Primary
	}
	b.conn.Configure(Txt(text), Foreground(fg))
}

// SetError shows msg in the banner, or removes the banner when msg is empty.
func (b *StatusBar) SetError(msg string) {
	if msg == "" {
		GridForget(b.errLbl.Window)
		GridForget(b.dismiss.Window)
		return
	}
	b.errLbl.Configure(Txt(msg))
	Grid(b.errLbl, Row(b.errRow), Column(0), Columnspan(3), Sticky("we"), Padx("0.4m"), Pady("0.2m"))
	Grid(b.dismiss, Row(b.errRow), Column(3), Sticky("e"), Padx("0.4m"), Pady("0.2m"))
}

func (b *StatusBar) SetNotice(msg string) { b.notice.Configure(Txt(msg)) }
