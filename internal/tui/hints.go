package tui

import (
	"github.com/scibee/farmwiz/internal/tui/theme"
)

// Key labels shown in hint bars.
const (
	KeyUpDown = "↑/↓"
	KeyTab    = "tab"
	KeyEnter  = "enter"
	KeyEsc    = "esc"
	KeyCtrlE  = "ctrl+e"
	KeyCtrlR  = "ctrl+r"
	KeyCtrlC  = "ctrl+c"
)

// RenderHintBar renders key-description pairs separated by bullets.
// Example: RenderHintBar("enter", "next", "esc", "back") -> "enter next • esc back"
func RenderHintBar(pairs ...string) string {
	if len(pairs) == 0 || len(pairs)%2 != 0 {
		return ""
	}

	s := theme.Current().S()
	var result string
	for i := 0; i < len(pairs); i += 2 {
		if i > 0 {
			result += " " + s.HintSeparator.Render("•") + " "
		}
		result += s.HintKey.Render(pairs[i]) + " " + s.HintDesc.Render(pairs[i+1])
	}
	return result
}
