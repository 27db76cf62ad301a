package tui

import "github.com/charmbracelet/lipgloss"

var (
	cellStyle = lipgloss.NewStyle().
			Width(5).
			Align(lipgloss.Center).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")) // gray

	cursorStyle = cellStyle.
			BorderForeground(lipgloss.Color("4")) // blue

	winStyle = cellStyle.
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("2")) // green strike-through

	markXStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")) // cyan
	markOStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5")) // magenta

	statusStyle = lipgloss.NewStyle().Bold(true).MarginTop(1)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
