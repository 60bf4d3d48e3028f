package display

import "github.com/charmbracelet/lipgloss"

// panelWidth matches the 16-column character display the panel imitates,
// minus the border.
const panelWidth = 14

var (
	poolBlue = lipgloss.Color("39")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(poolBlue)
	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Width(panelWidth).
			Align(lipgloss.Center)
	pumpLabelStyle = labelStyle.Foreground(lipgloss.Color("46"))
	rowStyle       = lipgloss.NewStyle().Width(panelWidth)
	faultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)
