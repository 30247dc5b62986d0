package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the dashboard until the user quits.
func Run(ctrl Controller, address string, port int) error {
	p := tea.NewProgram(NewModel(ctrl, address, port), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
