package tui

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/scibee/farmwiz/internal/preload"
	"github.com/scibee/farmwiz/internal/tui/theme"
	"github.com/scibee/farmwiz/internal/wizard"
)

// slot is one focusable input of a step. A location field has two slots,
// one per coordinate; every other field has one.
type slot struct {
	name    string // raw input name passed to wizard.Field.Parse
	label   string
	field   wizard.Field
	text    textinput.Model
	options []preload.Option
	cursor  int
	want    string // choice value to select once options arrive
}

func (s *slot) isChoice() bool { return s.field.Kind == wizard.KindChoice }

func (s *slot) value() string {
	if !s.isChoice() {
		return s.text.Value()
	}
	if s.cursor < 0 || s.cursor >= len(s.options) {
		return ""
	}
	return s.options[s.cursor].Value
}

func (s *slot) setOptions(opts []preload.Option) {
	s.options = opts
	s.cursor = 0
	for i, o := range opts {
		if o.Value == s.want {
			s.cursor = i
		}
	}
}

func (s *slot) move(delta int) {
	if len(s.options) == 0 {
		return
	}
	s.cursor = (s.cursor + delta + len(s.options)) % len(s.options)
	s.want = s.options[s.cursor].Value
}

func (s *slot) focus() tea.Cmd {
	if s.isChoice() {
		return nil
	}
	return s.text.Focus()
}

func (s *slot) blur() {
	if !s.isChoice() {
		s.text.Blur()
	}
}

func newTextInput(f wizard.Field) textinput.Model {
	t := theme.Current()
	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = f.Placeholder
	in.SetStyles(textinput.Styles{
		Focused: textinput.StyleState{
			Text:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgBase)),
			Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgMuted)),
		},
		Blurred: textinput.StyleState{
			Text:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgSubtle)),
			Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgMuted)),
		},
		Cursor: textinput.CursorStyle{
			Color: lipgloss.Color(t.Primary),
			Shape: tea.CursorBar,
			Blink: true,
		},
	})
	in.SetWidth(50)
	if f.Kind == wizard.KindPassword {
		in.EchoMode = textinput.EchoPassword
	}
	if f.MaxLen > 0 {
		in.CharLimit = f.MaxLen
	}
	return in
}

// buildSlots creates the inputs of step prefilled from rec. Passwords are
// never prefilled.
func buildSlots(step wizard.Step, rec wizard.Record) []*slot {
	var slots []*slot
	for _, f := range step.Fields {
		switch f.Kind {
		case wizard.KindLocation:
			lat, lng := "", ""
			if loc, ok := rec[f.Key].(map[string]any); ok {
				lat, lng = fmt.Sprint(loc["lat"]), fmt.Sprint(loc["lng"])
			}
			for _, c := range []struct{ name, label, value string }{
				{wizard.LatKey(f.Key), f.Label + " latitude", lat},
				{wizard.LngKey(f.Key), f.Label + " longitude", lng},
			} {
				s := &slot{name: c.name, label: c.label, field: f, text: newTextInput(f)}
				s.text.SetValue(c.value)
				slots = append(slots, s)
			}
		case wizard.KindChoice:
			slots = append(slots, &slot{name: f.Key, label: f.Label, field: f, want: rec.String(f.Key)})
		default:
			s := &slot{name: f.Key, label: f.Label, field: f, text: newTextInput(f)}
			if f.Kind != wizard.KindPassword {
				s.text.SetValue(rec.String(f.Key))
			}
			slots = append(slots, s)
		}
	}
	return slots
}

func (s *slot) view(focused bool, width int) string {
	st := theme.Current().S()

	label := s.label
	if s.field.Optional {
		label += " (optional)"
	}
	var b strings.Builder
	if focused {
		b.WriteString(st.LabelFocused.Render("› " + label))
	} else {
		b.WriteString(st.Label.Render("  " + label))
	}
	b.WriteString("\n")

	if !s.isChoice() {
		b.WriteString("  " + s.text.View())
		return b.String()
	}
	if len(s.options) == 0 {
		b.WriteString(st.HintDesc.Render("  Nothing to choose from yet."))
		return b.String()
	}
	// Show a window of options around the cursor.
	const window = 6
	start := max(0, s.cursor-window/2)
	end := min(len(s.options), start+window)
	start = max(0, end-window)
	for i := start; i < end; i++ {
		text := s.options[i].Label
		if r := []rune(text); width > 10 && len(r) > width-6 {
			text = string(r[:width-7]) + "…"
		}
		if i == s.cursor {
			b.WriteString("  " + st.OptionSelected.Render(text))
		} else {
			b.WriteString(st.Option.Render(text))
		}
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
