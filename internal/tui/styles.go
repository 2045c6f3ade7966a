package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorPrimary = lipgloss.Color("#7C3AED")
	ColorSuccess = lipgloss.Color("#10B981")
	ColorError   = lipgloss.Color("#EF4444")
	ColorMuted   = lipgloss.Color("#6B7280")
	ColorBorder  = lipgloss.Color("#4B5563")
	ColorText    = lipgloss.Color("#E5E7EB")
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	errorStyle  = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(ColorSuccess)
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(ColorPrimary).Bold(true).Padding(0, 1)
	tabStyle    = lipgloss.NewStyle().Foreground(ColorMuted).Padding(0, 1)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ColorBorder).Padding(0, 1)
	helpStyle   = lipgloss.NewStyle().Foreground(ColorMuted).Italic(true)
)
