// Package style provides lipgloss styles for the command line tools
package style

import "github.com/charmbracelet/lipgloss"

var (
	// Title is a style for title text
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF69B4")).
		MarginBottom(1)

	// Section is a style for section headers
	Section = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#5F9EA0")).
		Bold(true)

	// File is a style for file names
	File = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#98FB98"))

	// Dir is a style for directory names
	Dir = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#DDA0DD")).
		Bold(true)

	// Key is a style for field names in key/value output
	Key = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#B794F6"))

	// Value is a style for numbers and field values
	Value = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#42D9C8"))

	// Measure is a style for measure type names
	Measure = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00ADD8"))

	// Muted is a style for secondary detail
	Muted = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#626262"))

	// Warn is a style for warnings such as duplicate labels
	Warn = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFD700"))

	// Error is a style for error messages
	Error = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF0000"))

	// Success is a style for success messages
	Success = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00FF00"))

	// URL is a style for URL display
	URL = lipgloss.NewStyle().
		Italic(true).
		Foreground(lipgloss.Color("#FFA500"))

	// TableHeader is a style for table header cells
	TableHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF69B4")).
			Padding(0, 1)

	// TableCell is a style for table body cells
	TableCell = lipgloss.NewStyle().
			Padding(0, 1)
)
