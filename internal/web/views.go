package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"github.com/scibee/farmwiz/internal/preload"
	"github.com/scibee/farmwiz/internal/wizard"
)

//go:embed templates/*.html
var templateFS embed.FS

type pages struct {
	byName map[string]*template.Template
}

func loadPages() (*pages, error) {
	base, err := template.New("").ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}

	p := &pages{byName: map[string]*template.Template{}}
	for _, name := range []string{"login", "dashboard", "list", "step"} {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		t, err := clone.ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s page: %w", name, err)
		}
		p.byName[name] = t
	}
	return p, nil
}

// render executes page into a buffer first so a template error never
// leaves a half-written response.
func (s *Server) render(w http.ResponseWriter, status int, page string, data any) {
	t, ok := s.pages.byName[page]
	if !ok {
		s.fail(w, fmt.Errorf("unknown page %q", page))
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.fail(w, fmt.Errorf("rendering %s: %w", page, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type stepView struct {
	Flow     *wizard.Flow
	Step     wizard.Step
	Position int
	Total    int
	Terminal bool
	Action   string
	ResetTo  string
	ReturnTo string
	Busy     bool
	Message  string
	Fields   []fieldView
	Summary  []summaryRow
}

type fieldView struct {
	Key         string
	Label       string
	Input       string // text, number, email, tel, password, textarea, select, location
	Optional    bool
	Placeholder string
	Hint        string
	Value       string
	Lat         string
	Lng         string
	LatKey      string
	LngKey      string
	Error       string
	Options     []preload.Option
}

type summaryRow struct {
	Label string
	Value string
}

func inputType(k wizard.Kind) string {
	switch k {
	case wizard.KindNote:
		return "textarea"
	case wizard.KindChoice:
		return "select"
	case wizard.KindLocation:
		return "location"
	case wizard.KindEmail:
		return "email"
	case wizard.KindPhone:
		return "tel"
	case wizard.KindPassword:
		return "password"
	}
	return "text"
}

// fieldViews prefills inputs from the submitted form when re-rendering
// errors, else from the record. Passwords are never echoed back.
func fieldViews(step wizard.Step, rec wizard.Record, opts preload.Options, form url.Values, errs wizard.FieldErrors) []fieldView {
	views := make([]fieldView, 0, len(step.Fields))
	for _, f := range step.Fields {
		v := fieldView{
			Key:         f.Key,
			Label:       f.Label,
			Input:       inputType(f.Kind),
			Optional:    f.Optional,
			Placeholder: f.Placeholder,
			Hint:        f.Hint,
			Error:       errs[f.Key],
		}
		switch {
		case f.Kind == wizard.KindLocation:
			v.LatKey, v.LngKey = wizard.LatKey(f.Key), wizard.LngKey(f.Key)
			if form != nil {
				v.Lat, v.Lng = form.Get(v.LatKey), form.Get(v.LngKey)
			} else if loc, ok := rec[f.Key].(map[string]any); ok {
				v.Lat, v.Lng = fmt.Sprint(loc["lat"]), fmt.Sprint(loc["lng"])
			}
		case f.Kind == wizard.KindPassword:
		case form != nil:
			v.Value = form.Get(f.Key)
		default:
			v.Value = rec.String(f.Key)
		}
		if f.Kind == wizard.KindChoice {
			v.Options = opts.For(preload.Source(f.Source), rec)
		}
		views = append(views, v)
	}
	return views
}

// summarize lists every answered field of the steps before the confirm step.
func summarize(f *wizard.Flow, rec wizard.Record, opts preload.Options) []summaryRow {
	var rows []summaryRow
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
			rows = append(rows, summaryRow{Label: field.Label, Value: value})
		}
	}
	return rows
}
