package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette for CLI output
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers
	SuccessColor = lipgloss.Color("#43BF6D") // Green - success, connected
	ErrorColor   = lipgloss.Color("#FF5555") // Red - errors, unreachable
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Shared styles for command output
var (
	// HeaderStyle is for section headings (e.g., "DEVICES")
	HeaderStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	// LabelStyle is for field labels (e.g., "Serial:")
	LabelStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	// ValueStyle is for field values
	ValueStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	// SuccessStyle is for success markers and reachable devices
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// ErrorStyle is for error markers and unreachable devices
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)
)

// Field renders a "Label: value" line with shared styling
func Field(label, value string) string {
	return LabelStyle.Render(label+": ") + ValueStyle.Render(value)
}

// Reachable renders a reachability marker
func Reachable(ok bool) string {
	if ok {
		return SuccessStyle.Render("reachable")
	}
	return ErrorStyle.Render("unreachable")
}
