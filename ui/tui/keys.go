package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the dashboard shortcuts.
type KeyMap struct {
	Connect    key.Binding
	Disconnect key.Binding
	Start      key.Binding
	Stop       key.Binding
	Detect     key.Binding
	Left       key.Binding
	Right      key.Binding
	Up         key.Binding
	Down       key.Binding
	Center     key.Binding
	Halt       key.Binding
	Dismiss    key.Binding
	Clear      key.Binding
	Help       key.Binding
	Quit       key.Binding
}

var DefaultKeyMap = KeyMap{
	Connect:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "connect")),
	Disconnect: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "disconnect")),
	Start:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start scan")),
	Stop:       key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "stop scan")),
	Detect:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "detect")),
	Left:       key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "pan left")),
	Right:      key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "pan right")),
	Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "tilt up")),
	Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "tilt down")),
	Center:     key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "center")),
	Halt:       key.NewBinding(key.WithKeys("."), key.WithHelp(".", "motor stop")),
	Dismiss:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "dismiss error")),
	Clear:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "clear results")),
	Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:       key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Connect, k.Start, k.Stop, k.Detect, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Connect, k.Disconnect, k.Start, k.Stop, k.Detect},
		{k.Left, k.Right, k.Up, k.Down, k.Center, k.Halt},
		{k.Dismiss, k.Clear, k.Help, k.Quit},
	}
}
