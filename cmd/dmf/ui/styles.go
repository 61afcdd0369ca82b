// Package ui provides the terminal styling shared by the dmf commands and
// the interactive shell.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	ColorPrimary = lipgloss.Color("#2196F3")
	ColorAccent  = lipgloss.Color("#8BC34A")
	ColorMuted   = lipgloss.Color("240")
	ColorError   = lipgloss.Color("#e53935")
	ColorWarning = lipgloss.Color("#FFC107")
)

// Styles holds the lipgloss styles used across the CLI output.
type Styles struct {
	Title   lipgloss.Style
	Body    lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Prompt  lipgloss.Style
}

// NewStyles builds the default style set.
func NewStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary),
		Body:    lipgloss.NewStyle(),
		Bold:    lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(ColorMuted),
		Success: lipgloss.NewStyle().Foreground(ColorAccent),
		Error:   lipgloss.NewStyle().Foreground(ColorError),
		Warning: lipgloss.NewStyle().Foreground(ColorWarning),
		Prompt:  lipgloss.NewStyle().Bold(true).Foreground(ColorAccent),
	}
}
