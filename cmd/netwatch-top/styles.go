package main

import "github.com/charmbracelet/lipgloss"

// Color palette, carried over from the daemon's HUD conventions.
var (
	colorIce   = lipgloss.Color("#A8D8EA")
	colorDeep  = lipgloss.Color("#596E79")
	colorText  = lipgloss.Color("#E0E0E0")
	colorAlert = lipgloss.Color("#FF6B6B")
	colorGood  = lipgloss.Color("#4ECDC4")
	colorMuted = lipgloss.Color("#6c757d")
)

var (
	styleHeader = lipgloss.NewStyle().
			Foreground(colorIce).
			Bold(true).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(colorDeep).
			Padding(0, 1)

	styleSubtitle = lipgloss.NewStyle().Foreground(colorDeep).Italic(true)

	styleCard = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDeep).
			Padding(0, 1).
			Margin(0, 1)

	styleStatusGood = lipgloss.NewStyle().Foreground(colorGood).Bold(true)
	styleStatusBad  = lipgloss.NewStyle().Foreground(colorAlert).Bold(true)
	styleMuted      = lipgloss.NewStyle().Foreground(colorMuted)

	styleApp = lipgloss.NewStyle().Margin(1, 2)
)
