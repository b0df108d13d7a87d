package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorNavy   = lipgloss.Color("17")
	ColorBlue   = lipgloss.Color("39")
	ColorGreen  = lipgloss.Color("42")
	ColorYellow = lipgloss.Color("220")
	ColorOrange = lipgloss.Color("208")
	ColorRed    = lipgloss.Color("196")
	ColorGray   = lipgloss.Color("244")
	ColorWhite  = lipgloss.Color("255")
)

var (
	tabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(ColorGray)

	activeTabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Foreground(ColorWhite).
			Background(ColorBlue)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGray).
			Padding(0, 1)

	chartTitleStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	statusStyle = lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(ColorWhite)

	errorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Width(12).
			Foreground(ColorGray)
)

// severityColor returns the display color for a normalized level.
func severityColor(level string) lipgloss.Color {
	switch level {
	case "FATAL", "ERROR":
		return ColorRed
	case "WARN":
		return ColorOrange
	case "INFO":
		return ColorBlue
	default:
		return ColorGray
	}
}
