// Package theme holds the terminal color palette and the styles built from it.
package theme

import (
	"sync"

	"charm.land/lipgloss/v2"
)

// Theme defines the color palette for the terminal wizards.
type Theme struct {
	Name   string
	IsDark bool

	Primary   string
	Secondary string

	BgBase     string
	BgSurface0 string

	FgMuted  string
	FgSubtle string
	FgBase   string

	Success string
	Error   string

	styles     *Styles
	stylesOnce sync.Once
}

// S returns the styles for this theme, built on first use.
func (t *Theme) S() *Styles {
	t.stylesOnce.Do(func() {
		t.styles = t.buildStyles()
	})
	return t.styles
}

func (t *Theme) buildStyles() *Styles {
	return &Styles{
		Modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Secondary)).
			Padding(1, 2),
		Title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Primary)).
			Bold(true),
		Progress: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.FgSubtle)),
		Label: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.FgBase)).
			Bold(true),
		LabelFocused: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Primary)).
			Bold(true),
		HintDesc: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.FgMuted)),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Error)),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Success)),
		Option: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.FgSubtle)).
			PaddingLeft(2),
		OptionSelected: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.BgBase)).
			Background(lipgloss.Color(t.Primary)).
			PaddingLeft(1).
			PaddingRight(1),
		HintKey: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.FgSubtle)).
			Bold(true),
		HintSeparator: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.BgSurface0)),
	}
}

var (
	current     *Theme
	currentOnce sync.Once
)

// Current returns the active theme.
func Current() *Theme {
	currentOnce.Do(func() {
		current = NewMeadow()
	})
	return current
}

// NewMeadow is the default dark green theme.
func NewMeadow() *Theme {
	return &Theme{
		Name:   "meadow",
		IsDark: true,

		Primary:   "#a6e3a1",
		Secondary: "#94e2d5",

		BgBase:     "#1e1e2e",
		BgSurface0: "#45475a",

		FgMuted:  "#7f849c",
		FgSubtle: "#bac2de",
		FgBase:   "#cdd6f4",

		Success: "#a6e3a1",
		Error:   "#f38ba8",
	}
}
