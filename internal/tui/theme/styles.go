package theme

import "charm.land/lipgloss/v2"

// Styles contains the pre-built lipgloss styles of a theme.
type Styles struct {
	Modal          lipgloss.Style
	Title          lipgloss.Style
	Progress       lipgloss.Style
	Label          lipgloss.Style
	LabelFocused   lipgloss.Style
	HintDesc       lipgloss.Style
	Error          lipgloss.Style
	Success        lipgloss.Style
	Option         lipgloss.Style
	OptionSelected lipgloss.Style
	HintKey        lipgloss.Style
	HintSeparator  lipgloss.Style
}
