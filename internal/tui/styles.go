package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/charliek/podlogs/internal/domain"
)

// Colors
var (
	// Container state colors
	runningColor  = lipgloss.Color("10") // Green
	stoppedColor  = lipgloss.Color("8")  // Gray
	exitedColor   = lipgloss.Color("9")  // Red
	stoppingColor = lipgloss.Color("11") // Yellow

	// UI colors
	headerBg   = lipgloss.Color("235")
	statusBg   = lipgloss.Color("236")
	helpBg     = lipgloss.Color("234")
	errorColor = lipgloss.Color("9")
	dimColor   = lipgloss.Color("8")
	followBg   = lipgloss.Color("24")
)

// Styles
var (
	runningStyle = lipgloss.NewStyle().
			Foreground(runningColor).
			Bold(true)

	stoppedStyle = lipgloss.NewStyle().
			Foreground(stoppedColor)

	exitedStyle = lipgloss.NewStyle().
			Foreground(exitedColor).
			Bold(true)

	stoppingStyle = lipgloss.NewStyle().
			Foreground(stoppingColor)

	defaultStateStyle = lipgloss.NewStyle()

	headerStyle = lipgloss.NewStyle().
			Background(headerBg).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Background(statusBg).
			Padding(0, 1)

	followStyle = lipgloss.NewStyle().
			Background(followBg).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Background(helpBg).
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(errorColor).
			Bold(true)

	// Dim style for timestamps
	dimStyle = lipgloss.NewStyle().
			Foreground(dimColor)
)

// stateStyle returns the style for a container state
func stateStyle(state domain.ContainerState) lipgloss.Style {
	switch state {
	case domain.ContainerStateRunning:
		return runningStyle
	case domain.ContainerStateCreated, domain.ContainerStateStopped, domain.ContainerStatePaused:
		return stoppedStyle
	case domain.ContainerStateExited:
		return exitedStyle
	case domain.ContainerStateStopping:
		return stoppingStyle
	default:
		return defaultStateStyle
	}
}
