package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#7D56F4")
	colorGood    = lipgloss.Color("#04B575")
	colorBad     = lipgloss.Color("#FF5F87")
	colorWarn    = lipgloss.Color("#FFAF00")
	colorSubtle  = lipgloss.Color("241")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).MarginBottom(1)
	subtleStyle = lipgloss.NewStyle().Foreground(colorSubtle)
	activeStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	valueStyle  = lipgloss.NewStyle().Foreground(colorGood).Bold(true)
	errStyle    = lipgloss.NewStyle().Foreground(colorBad)
	warnStyle   = lipgloss.NewStyle().Foreground(colorWarn)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			Padding(1, 2)
)
