package ui

import "github.com/charmbracelet/lipgloss"

var (
	colorRed     = lipgloss.Color("#FF5555")
	colorGreen   = lipgloss.Color("#50FA7B")
	colorYellow  = lipgloss.Color("#F1FA8C")
	colorCyan    = lipgloss.Color("#8BE9FD")
	colorGray    = lipgloss.Color("#666666")
	colorDimGray = lipgloss.Color("#444444")
	colorWhite   = lipgloss.Color("#F8F8F2")
	colorPurple  = lipgloss.Color("#BD93F9")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	liveDotStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)

	connectingDotStyle = lipgloss.NewStyle().
				Foreground(colorYellow).
				Bold(true)

	idleDotStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	errorTextStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	partialTextStyle = lipgloss.NewStyle().
				Foreground(colorYellow)

	timestampStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	sourceLabelStyle = lipgloss.NewStyle().
				Foreground(colorCyan)

	translatorLabelStyle = lipgloss.NewStyle().
				Foreground(colorPurple)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	panelTitleActiveStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorCyan)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	footerDescStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	dividerStyle = lipgloss.NewStyle().
			Foreground(colorDimGray)

	levelOnStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	levelHotStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	levelOffStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	mutedBadgeStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	liveBadgeStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)

	scrollBadgeStyle = lipgloss.NewStyle().
				Foreground(colorYellow).
				Bold(true)
)
