package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/cj3636/gblame/internal/config"
)

// Styles holds all the lipgloss styles
type Styles struct {
	text        lipgloss.Style
	selected    lipgloss.Style
	uncommitted lipgloss.Style
	lineNumber  lipgloss.Style
	title       lipgloss.Style
	help        lipgloss.Style
	statusBar   lipgloss.Style
	errorText   lipgloss.Style
	panel       lipgloss.Style
	panelTitle  lipgloss.Style
}

// createStyles initializes all lipgloss styles based on theme
func createStyles(theme config.Theme, lineNumberWidth int) *Styles {
	return &Styles{
		text: lipgloss.NewStyle().
			Foreground(theme.TextFg),
		selected: lipgloss.NewStyle().
			Foreground(theme.TextFg).
			Background(theme.SelectedBg),
		uncommitted: lipgloss.NewStyle().
			Foreground(theme.UncommittedFg).
			Italic(true),
		lineNumber: lipgloss.NewStyle().
			Foreground(theme.LineNumberFg).
			Width(lineNumberWidth).
			Align(lipgloss.Right),
		title: lipgloss.NewStyle().
			Foreground(theme.TitleFg).
			Background(theme.TitleBg).
			Bold(true).
			Padding(0, 1),
		help: lipgloss.NewStyle().
			Foreground(theme.HelpFg).
			Italic(true),
		statusBar: lipgloss.NewStyle().
			Foreground(theme.TitleFg).
			Background(theme.TitleBg).
			Padding(0, 1),
		errorText: lipgloss.NewStyle().
			Foreground(theme.ErrorFg).
			Bold(true),
		panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.BorderFg).
			Padding(0, 1),
		panelTitle: lipgloss.NewStyle().
			Foreground(theme.TitleFg).
			Bold(true),
	}
}
