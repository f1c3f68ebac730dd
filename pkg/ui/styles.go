// Package ui provides the Bubble Tea dashboard for the oracle watcher.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	ColorPrimary = lipgloss.Color("#7C3AED")
	ColorOK      = lipgloss.Color("#10B981")
	ColorDanger  = lipgloss.Color("#EF4444")
	ColorWarning = lipgloss.Color("#F59E0B")
	ColorMuted   = lipgloss.Color("#6B7280")
	ColorBorder  = lipgloss.Color("#374151")
	ColorBlock   = lipgloss.Color("#60A5FA")
)

var (
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(ColorPrimary).
			Padding(0, 2)

	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)

	// Secondary text: timestamps, hints, absent candidates.
	MutedValue = lipgloss.NewStyle().Foreground(ColorMuted)

	BlockLineStyle   = lipgloss.NewStyle().Foreground(ColorBlock)
	OKStyle          = lipgloss.NewStyle().Foreground(ColorOK)
	PendingStyle     = lipgloss.NewStyle().Foreground(ColorWarning)
	ErrorStyle       = lipgloss.NewStyle().Foreground(ColorDanger)
	ErrorHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorDanger)
	PausedStyle      = lipgloss.NewStyle().Bold(true).Foreground(ColorWarning)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Padding(0, 1)
)
