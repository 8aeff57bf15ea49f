package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorGreen  = lipgloss.Color("10")
	colorRed    = lipgloss.Color("9")
	colorYellow = lipgloss.Color("11")
	colorCyan   = lipgloss.Color("14")
	colorGray   = lipgloss.Color("8")

	styleCorrect   = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	styleIncorrect = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	styleInfo      = lipgloss.NewStyle().Foreground(colorYellow)
	styleHighlight = lipgloss.NewStyle().Background(lipgloss.Color("22")).Foreground(lipgloss.Color("0"))
	styleSubtle    = lipgloss.NewStyle().Foreground(colorGray)
	styleHeader    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	styleError     = lipgloss.NewStyle().Foreground(colorRed).Padding(1)
	styleCursor    = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	styleTitle     = lipgloss.NewStyle().Foreground(colorYellow)
	styleCurrent   = lipgloss.NewStyle().Bold(true).Underline(true)

	styleSentence = lipgloss.NewStyle().Padding(0, 1).Italic(true)
	styleAnswers  = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(colorGreen).Padding(0, 1)

	styleSlot          = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorGray).Padding(0, 1)
	styleSlotCorrect   = styleSlot.BorderForeground(colorGreen)
	styleSlotIncorrect = styleSlot.BorderForeground(colorRed)
	styleSlotFocused   = styleSlot.BorderForeground(colorCyan)

	styleChip         = lipgloss.NewStyle().Padding(0, 1).Foreground(colorGray)
	styleChipSelected = lipgloss.NewStyle().Padding(0, 1).Background(colorCyan).Foreground(lipgloss.Color("0"))

	stylePane       = lipgloss.NewStyle().Padding(1, 2)
	styleNav        = lipgloss.NewStyle().Padding(1, 2).Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(colorGray)
	styleNavFocused = styleNav.BorderForeground(colorCyan)
)
