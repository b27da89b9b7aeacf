package tui

import "github.com/charmbracelet/lipgloss"

const (
	sidebarWidth    = 28
	minSidebarTotal = 80
	inputHeight     = 3
)

var (
	userLabel = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	botLabel  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
	activeItem = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	item       = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238"))

	affordance = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)
)
