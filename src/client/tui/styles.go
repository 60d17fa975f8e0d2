// SPDX-License-Identifier: MIT

// Package tui holds the dashboard client's lipgloss styling and
// responsive layout logic, shared by its bubbletea model.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Grigoriy457/rocketry/src/common/theme"
)

// Styles holds the dashboard's styles, derived from a theme.Palette.
type Styles struct {
	Base     lipgloss.Style
	Title    lipgloss.Style
	Selected lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Muted    lipgloss.Style
	Border   lipgloss.Style
}

// StylesFromPalette builds Styles from a theme.Palette.
func StylesFromPalette(p theme.Palette) Styles {
	return Styles{
		Base: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Foreground)).
			Background(lipgloss.Color(p.Background)),
		Title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Primary)).Bold(true),
		Selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Background)).
			Background(lipgloss.Color(p.Primary)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(p.Error)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(p.Success)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(p.Warning)),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color(p.Muted)),
		Border:  lipgloss.NewStyle().BorderForeground(lipgloss.Color(p.Border)),
	}
}

// DefaultStyles returns the default dark-theme styles.
func DefaultStyles() Styles {
	return StylesFromPalette(theme.Dark)
}

// LightStyles returns light-theme styles.
func LightStyles() Styles {
	return StylesFromPalette(theme.Light)
}
