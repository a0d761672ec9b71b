package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/charmbracelet/x/editor"
	"github.com/scibee/farmwiz/internal/catalog"
	"github.com/scibee/farmwiz/internal/flows"
	"github.com/scibee/farmwiz/internal/preload"
	"github.com/scibee/farmwiz/internal/tui/theme"
	"github.com/scibee/farmwiz/internal/wizard"
)

type optionsLoadedMsg struct {
	route   string
	options preload.Options
}

type submittedMsg struct {
	result any
	err    error
}

type editedMsg struct {
	name    string
	content string
}

// Model drives one wizard in the terminal.
type Model struct {
	ctx     context.Context
	session *wizard.Session
	router  *wizard.LocalRouter
	api     preload.API
	loader  *preload.Loader

	step       wizard.Step
	slots      []*slot
	focus      int
	options    preload.Options
	errors     wizard.FieldErrors
	message    string
	summary    string
	submitting bool
	spinner    spinner.Model

	done      bool
	cancelled bool
	result    any
	width     int
	height    int
}

// NewModel opens the session of o.Flow for o.Owner and resumes at the
// first step that still lacks input.
func NewModel(ctx context.Context, o Options) *Model {
	if o.Loader == nil {
		o.Loader = preload.NewLoader(catalog.Default())
	}
	router := wizard.NewLocalRouter(o.Flow.First().Route)
	sess := wizard.Open(ctx, o.Flow, o.Store, o.key(), router, o.sessionOptions()...)
	router.Route = o.Flow.Resume(sess.Record()).Route

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Current().Primary))

	return &Model{
		ctx:     ctx,
		session: sess,
		router:  router,
		api:     o.API,
		loader:  o.Loader,
		spinner: s,
		width:   80,
		height:  24,
	}
}

// Init enters the resumed step.
func (m *Model) Init() tea.Cmd {
	return m.enter()
}

// enter runs the step guard and builds the inputs of whatever step the
// session settles on.
func (m *Model) enter() tea.Cmd {
	f := m.session.Flow()
	m.step = m.session.Settle()

	rec := m.session.Record()
	m.slots = buildSlots(m.step, rec)
	m.focus = 0
	m.errors = nil
	m.message = ""
	m.summary = ""
	m.options = nil

	var cmds []tea.Cmd
	if len(m.slots) > 0 {
		cmds = append(cmds, m.slots[0].focus())
	}

	sources := preload.Choices(m.step)
	if m.showsSummary() {
		sources = flows.Sources(f)
	}
	if len(sources) == 0 {
		m.applyOptions(preload.Options{})
		return tea.Batch(cmds...)
	}

	route := m.step.Route
	ctx, api, loader := m.ctx, m.api, m.loader
	cmds = append(cmds, func() tea.Msg {
		return optionsLoadedMsg{route: route, options: loader.Load(ctx, api, sources...)}
	})
	return tea.Batch(cmds...)
}

func (m *Model) showsSummary() bool {
	return m.session.Flow().IsReview(m.step.Route)
}

func (m *Model) applyOptions(opts preload.Options) {
	m.options = opts
	rec := m.session.Record()
	for _, s := range m.slots {
		if s.isChoice() {
			s.setOptions(opts.For(preload.Source(s.field.Source), rec))
		}
	}
	if m.showsSummary() {
		m.summary = renderMarkdown(summaryMarkdown(m.session.Flow(), rec, opts), m.contentWidth())
	}
}

// Update handles messages for the wizard.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		for _, s := range m.slots {
			if !s.isChoice() {
				s.text.SetWidth(m.contentWidth() - 4)
			}
		}
		return m, nil

	case optionsLoadedMsg:
		if msg.route == m.step.Route {
			m.applyOptions(msg.options)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.submitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case submittedMsg:
		m.submitting = false
		switch {
		case errors.Is(msg.err, wizard.ErrPrecondition):
			return m, m.enter()
		case msg.err != nil:
			m.message = wizard.UserMessage(msg.err)
			return m, nil
		}
		m.result = msg.result
		m.done = true
		return m, tea.Quit

	case editedMsg:
		for _, s := range m.slots {
			if s.name == msg.name {
				s.text.SetValue(strings.TrimSpace(msg.content))
			}
		}
		return m, nil

	case tea.KeyPressMsg:
		return m, m.handleKey(msg)
	}

	return m, m.updateFocused(msg)
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		m.cancelled = true
		return tea.Quit
	}
	if m.submitting {
		return nil
	}

	switch msg.String() {
	case "esc":
		m.session.Retreat(m.step.Route)
		if m.router.Left {
			m.cancelled = true
			return tea.Quit
		}
		return m.enter()
	case "ctrl+r":
		m.session.Reset(m.ctx)
		return m.enter()
	case "enter":
		return m.advance()
	case "tab":
		return m.moveFocus(1)
	case "shift+tab":
		return m.moveFocus(-1)
	case "ctrl+e":
		return m.openEditor()
	case "up", "down":
		if s := m.focused(); s != nil && s.isChoice() {
			if msg.String() == "up" {
				s.move(-1)
			} else {
				s.move(1)
			}
			return nil
		}
		if msg.String() == "up" {
			return m.moveFocus(-1)
		}
		return m.moveFocus(1)
	}
	return m.updateFocused(msg)
}

func (m *Model) focused() *slot {
	if m.focus < 0 || m.focus >= len(m.slots) {
		return nil
	}
	return m.slots[m.focus]
}

func (m *Model) moveFocus(delta int) tea.Cmd {
	if len(m.slots) == 0 {
		return nil
	}
	m.slots[m.focus].blur()
	m.focus = (m.focus + delta + len(m.slots)) % len(m.slots)
	return m.slots[m.focus].focus()
}

func (m *Model) updateFocused(msg tea.Msg) tea.Cmd {
	s := m.focused()
	if s == nil || s.isChoice() {
		return nil
	}
	var cmd tea.Cmd
	s.text, cmd = s.text.Update(msg)
	return cmd
}

func (m *Model) values() map[string]string {
	v := make(map[string]string, len(m.slots))
	for _, s := range m.slots {
		v[s.name] = s.value()
	}
	return v
}

// advance validates the step and moves on, or submits on the terminal step.
func (m *Model) advance() tea.Cmd {
	values := m.values()
	patch, err := m.step.Parse(func(name string) string { return values[name] })
	var fieldErrs wizard.FieldErrors
	if errors.As(err, &fieldErrs) {
		m.errors = fieldErrs
		return nil
	}
	if err != nil {
		m.message = err.Error()
		return nil
	}
	if m.options != nil {
		if errs := m.options.Check(m.step, m.session.Record(), patch); errs != nil {
			m.errors = errs
			return nil
		}
	}

	if !m.session.Flow().IsTerminal(m.step.Route) {
		if err := m.session.Advance(m.ctx, m.step.Route, patch); err != nil && !errors.Is(err, wizard.ErrPrecondition) {
			m.message = err.Error()
			return nil
		}
		return m.enter()
	}

	m.submitting = true
	m.message = ""
	ctx, sess := m.ctx, m.session
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		result, err := sess.Complete(ctx, patch)
		return submittedMsg{result: result, err: err}
	})
}

// openEditor edits the focused note field in $EDITOR.
func (m *Model) openEditor() tea.Cmd {
	s := m.focused()
	if s == nil || s.field.Kind != wizard.KindNote {
		return nil
	}

	tmp, err := os.CreateTemp("", "farmwiz_note_*.md")
	if err != nil {
		return nil
	}
	if _, err := tmp.WriteString(s.text.Value()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil
	}
	_ = tmp.Close()

	cmd, err := editor.Command("farmwiz", tmp.Name())
	if err != nil {
		_ = os.Remove(tmp.Name())
		return nil
	}
	name, path := s.name, tmp.Name()
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		defer func() { _ = os.Remove(path) }()
		if err != nil {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		return editedMsg{name: name, content: string(content)}
	})
}

func (m *Model) contentWidth() int {
	w := m.width - 10
	if w < 50 {
		w = 50
	}
	if w > 90 {
		w = 90
	}
	return w
}

// View renders the step as a centered modal.
func (m *Model) View() tea.View {
	var view tea.View
	view.AltScreen = true

	if m.done || m.width == 0 || m.height == 0 {
		view.Content = lipgloss.NewLayer("")
		return view
	}

	modal := lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.render())
	canvas := uv.NewScreenBuffer(m.width, m.height)
	uv.NewStyledString(modal).Draw(canvas, uv.Rectangle{
		Min: uv.Position{X: 0, Y: 0},
		Max: uv.Position{X: m.width, Y: m.height},
	})
	view.Content = lipgloss.NewLayer(canvas.Render())
	return view
}

// render returns the modal without placement.
func (m *Model) render() string {
	st := theme.Current().S()
	f := m.session.Flow()

	var sections []string
	sections = append(sections,
		st.Title.Render(fmt.Sprintf("%s: %s", f.Title, m.step.Title)),
		st.Progress.Render(fmt.Sprintf("Step %d of %d", f.Position(m.step.Route), len(f.Steps))),
		"",
	)

	for i, s := range m.slots {
		sections = append(sections, s.view(i == m.focus, m.contentWidth()))
		last := i == len(m.slots)-1 || m.slots[i+1].field.Key != s.field.Key
		if msg, ok := m.errors[s.field.Key]; ok && last {
			sections = append(sections, st.Error.Render("  "+msg))
		}
		sections = append(sections, "")
	}

	if m.summary != "" {
		sections = append(sections, m.summary, "")
	}
	if m.message != "" {
		sections = append(sections, st.Error.Render(m.message), "")
	}
	if m.submitting {
		sections = append(sections, m.spinner.View()+" Submitting…", "")
	}
	sections = append(sections, m.hints())

	return st.Modal.Width(m.contentWidth()).Render(strings.Join(sections, "\n"))
}

func (m *Model) hints() string {
	next := "next"
	if m.session.Flow().IsTerminal(m.step.Route) {
		next = "submit"
	}
	pairs := []string{KeyEnter, next, KeyEsc, "back"}
	if len(m.slots) > 1 {
		pairs = append(pairs, KeyTab, "field")
	}
	if s := m.focused(); s != nil && s.isChoice() {
		pairs = append(pairs, KeyUpDown, "choose")
	}
	if s := m.focused(); s != nil && s.field.Kind == wizard.KindNote && os.Getenv("EDITOR") != "" {
		pairs = append(pairs, KeyCtrlE, "edit")
	}
	pairs = append(pairs, KeyCtrlR, "start over", KeyCtrlC, "quit")
	return RenderHintBar(pairs...)
}

// summaryMarkdown lists every answer of the record for the confirm step.
func summaryMarkdown(f *wizard.Flow, rec wizard.Record, opts preload.Options) string {
	var b strings.Builder
	b.WriteString("## Review\n\n")
	for _, step := range f.Steps {
		for _, field := range step.Fields {
			if !rec.Present(field.Key) {
				continue
			}
			value := rec.String(field.Key)
			switch field.Kind {
			case wizard.KindChoice:
				value = opts.Label(preload.Source(field.Source), value)
			case wizard.KindPassword:
				value = "••••••"
			}
			fmt.Fprintf(&b, "- **%s:** %s\n", field.Label, value)
		}
	}
	return b.String()
}
