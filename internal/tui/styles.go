package tui

import "github.com/charmbracelet/lipgloss"

// Palette shared by every screen and by the non-interactive search output.
const (
	colorAccent = lipgloss.Color("212")
	colorLink   = lipgloss.Color("111")
	colorGood   = lipgloss.Color("78")
	colorBad    = lipgloss.Color("196")
	colorWarn   = lipgloss.Color("214")
	colorMuted  = lipgloss.Color("241")
	colorText   = lipgloss.Color("252")
	colorBar    = lipgloss.Color("236")
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	subtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

	successStyle = lipgloss.NewStyle().Foreground(colorGood)
	errorStyle   = lipgloss.NewStyle().Foreground(colorBad)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarn)
	dimStyle     = lipgloss.NewStyle().Foreground(colorMuted)

	queryStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorLink)
	resultStyle = lipgloss.NewStyle().Foreground(colorText)
	scoreStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorGood)
	pathStyle   = lipgloss.NewStyle().Underline(true).Foreground(colorLink)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Background(colorBar).
			Padding(0, 1)
)
