package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#22c55e"))
	badgeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Padding(0, 1)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	healthyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10b981"))
	adviceStyle  = lipgloss.NewStyle().Italic(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Background(lipgloss.Color("#dc2626")).Bold(true)
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b"))
)

func severityStyle(sev string) lipgloss.Style {
	switch strings.ToLower(sev) {
	case "high", "critical", "severe":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	case "medium", "moderate":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b"))
	default:
		return lipgloss.NewStyle()
	}
}
