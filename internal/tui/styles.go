package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent      = lipgloss.Color("#4285F4")
	success     = lipgloss.Color("#34A853")
	destructive = lipgloss.Color("#EA4335")
	muted       = lipgloss.Color("#9AA0A6")
)

type Styles struct {
	Title   lipgloss.Style
	Subtle  lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Spinner lipgloss.Style
	Prompt  lipgloss.Style
	Help    lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1),
		Subtle:  lipgloss.NewStyle().Foreground(muted),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(destructive),
		Success: lipgloss.NewStyle().Foreground(success),
		Spinner: lipgloss.NewStyle().Foreground(accent),
		Prompt:  lipgloss.NewStyle().Foreground(accent),
		Help:    lipgloss.NewStyle().Foreground(muted).Italic(true),
	}
}
