package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#667eea"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4facfe"))

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	placeholderStyle = lipgloss.NewStyle().
				Italic(true).
				Foreground(lipgloss.Color("#999999"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff6b6b"))

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#43e97b"))

	chipPresentStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#43e97b"))

	chipMissingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#fc6076"))

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#667eea")).
			Padding(1, 3)
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
