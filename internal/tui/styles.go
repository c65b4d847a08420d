package tui

import "github.com/charmbracelet/lipgloss"

var (
	// HeaderStyle styles the column header row.
	HeaderStyle = lipgloss.NewStyle().Bold(true)

	// TitleStyle styles the line above the table.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))

	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))

	statusStyles = map[string]lipgloss.Style{
		// Terminal states
		"found":     lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"installed": lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"done":      lipgloss.NewStyle().Foreground(lipgloss.Color("2")),

		// Active states
		"checking":   lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"installing": lipgloss.NewStyle().Foreground(lipgloss.Color("4")),

		// Skipped / warning
		"skipped": lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"manual":  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),

		// Error
		"missing": lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		"error":   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),

		// Pending
		"pending": lipgloss.NewStyle().Faint(true),
	}
)

// StatusStyle returns the lipgloss style for the given status string.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
