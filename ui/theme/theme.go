package theme

// Palette, severity colours and ttk style setup for the scan controller UI.

import (
	"strings"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// Light palette.
const (
	ColorBg        = "#f4f7f2"
	ColorSurface   = "#ffffff"
	ColorBorder    = "#d0d7de"
	ColorPrimary   = "#15803d"
	ColorDanger    = "#dc2626"
	ColorAccent    = "#10b981"
	ColorWarning   = "#f59e0b"
	ColorText      = "#1e293b"
	ColorTextMuted = "#64748b"
)

// PaletteSnapshot represents resolved colors for the active mode.
type PaletteSnapshot struct {
	AppBg     string
	Surface   string
	Border    string
	Primary   string
	Danger    string
	Accent    string
	Warning   string
	Text      string
	TextMuted string
}

var (
	light = PaletteSnapshot{
		AppBg: ColorBg, Surface: ColorSurface, Border: ColorBorder, Primary: ColorPrimary,
		Danger: ColorDanger, Accent: ColorAccent, Warning: ColorWarning, Text: ColorText, TextMuted: ColorTextMuted,
	}
	dark = PaletteSnapshot{
		AppBg: "#0f172a", Surface: "#1e293b", Border: "#334155", Primary: "#22c55e",
		Danger: "#ef4444", Accent: "#10b981", Warning: "#fbbf24", Text: "#f1f5f9", TextMuted: "#94a3b8",
	}
)

// CurrentPalette returns colors for the current dark/light mode.
func CurrentPalette() PaletteSnapshot {
	if darkMode {
		return dark
	}
	return light
}

// Style names used with Style(...).
const (
	StylePrimaryButton = "primary.TButton"
	StyleDangerButton  = "danger.TButton"
	StyleMotorButton   = "motor.TButton"
	StyleMutedLabel    = "muted.TLabel"
	StyleNoticeLabel   = "notice.TLabel"
	StyleErrorLabel    = "error.TLabel"
)

var darkMode bool

// InitStyles (re)applies styles for the current mode.
func InitStyles() { applyStyles(CurrentPalette()) }

// SetDark switches mode and reapplies styles. Returns the new mode.
func SetDark(on bool) bool {
	darkMode = on
	applyStyles(CurrentPalette())
	return darkMode
}

// ToggleDark flips dark mode and reapplies styles.
func ToggleDark() bool { return SetDark(!darkMode) }

// IsDark reports current mode.
func IsDark() bool { return darkMode }

// SeverityColor maps an advice severity to a palette colour.
func SeverityColor(severity string) string {
	p := CurrentPalette()
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "high", "critical", "severe":
		return p.Danger
	case "medium", "moderate":
		return p.Warning
	case "low", "none":
		return p.Accent
	default:
		return p.TextMuted
	}
}

func applyStyles(p PaletteSnapshot) {
	theme := "azure light"
	if darkMode {
		theme = "azure dark"
	}
	_ = ActivateTheme(theme)
	App.Configure(Background(p.AppBg))

	StyleConfigure(StylePrimaryButton, Background(p.Primary), Foreground("white"), Padding("4p 3p"), Borderwidth(1), Relief("ridge"))
	StyleConfigure(StyleDangerButton, Background(p.Danger), Foreground("white"), Padding("4p 3p"), Borderwidth(1), Relief("ridge"))
	StyleConfigure(StyleMotorButton, Padding("6p 4p"), Borderwidth(1))
	StyleConfigure(StyleMutedLabel, Foreground(p.TextMuted), Background(p.AppBg))
	StyleConfigure(StyleNoticeLabel, Foreground(p.Warning), Background(p.AppBg), Padding("2p 1p"))
	StyleConfigure(StyleErrorLabel, Foreground("white"), Background(p.Danger), Padding("4p 2p"))
}
