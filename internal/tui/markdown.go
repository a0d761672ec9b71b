package tui

import (
	"strings"

	"charm.land/glamour/v2"
)

// renderMarkdown renders content with glamour. Falls back to the raw
// markdown when rendering fails.
func renderMarkdown(content string, width int) string {
	if width > 100 {
		width = 100
	}
	if width < 20 {
		width = 20
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(rendered, "\n")
}
