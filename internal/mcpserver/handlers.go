package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/scibee/farmwiz/internal/farmapi"
	"github.com/scibee/farmwiz/internal/flows"
	"github.com/scibee/farmwiz/internal/preload"
	"github.com/scibee/farmwiz/internal/session"
	"github.com/scibee/farmwiz/internal/submit"
	"github.com/scibee/farmwiz/internal/wizard"
)

const masked = "••••••"

type optionView struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type fieldView struct {
	Key      string       `json:"key"`
	Label    string       `json:"label"`
	Kind     wizard.Kind  `json:"kind"`
	Optional bool         `json:"optional,omitempty"`
	Hint     string       `json:"hint,omitempty"`
	Options  []optionView `json:"options,omitempty"`
}

type stepView struct {
	Route  string      `json:"route"`
	Title  string      `json:"title"`
	Fields []fieldView `json:"fields,omitempty"`
}

type flowView struct {
	Key   string     `json:"key"`
	Title string     `json:"title"`
	Steps []stepView `json:"steps"`
}

type stateView struct {
	Flow     string        `json:"flow"`
	Step     string        `json:"step"`
	Title    string        `json:"title"`
	Position int           `json:"position"`
	Total    int           `json:"total"`
	Terminal bool          `json:"terminal"`
	Record   wizard.Record `json:"record"`
	Missing  []string      `json:"missing"`
	Fields   []fieldView   `json:"fields,omitempty"`
}

type submitView struct {
	Flow        string `json:"flow"`
	Submitted   bool   `json:"submitted"`
	Destination string `json:"destination"`
	Result      any    `json:"result,omitempty"`
}

func errorResult(format string, v ...any) *mcp.CallToolResult {
	return mcp.NewToolResultText("error: " + fmt.Sprintf(format, v...))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("failed to marshal result: %v", err), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// target reads the flow and owner arguments every tool but wizard-list takes.
func (s *Server) target(request mcp.CallToolRequest) (*wizard.Flow, string, *mcp.CallToolResult) {
	key, err := request.RequireString("flow")
	if err != nil || key == "" {
		return nil, "", errorResult("missing 'flow' parameter")
	}
	f, ok := s.flows.Get(key)
	if !ok {
		return nil, "", errorResult("unknown wizard %q", key)
	}
	owner, err := request.RequireString("owner")
	if err != nil || owner == "" {
		return nil, "", errorResult("missing 'owner' parameter")
	}
	return f, owner, nil
}

// open rehydrates the owner's session of f at route. An empty route
// resumes at the first step that still lacks input. The returned context
// carries the owner's login when there is one.
func (s *Server) open(ctx context.Context, f *wizard.Flow, owner, route string) (context.Context, *wizard.Session, *wizard.LocalRouter) {
	if id, ok := session.Identity(ctx, s.store, owner); ok {
		ctx = farmapi.WithIdentity(ctx, id)
	}

	router := wizard.NewLocalRouter(route)
	opts := []wizard.Option{wizard.WithInFlight(s.inflight)}
	if s.notify != nil {
		opts = append(opts, wizard.WithNotifier(s.notify))
	}
	sess := wizard.Open(ctx, f, s.store, session.Key(owner, f.Key), router, opts...)
	if route == "" {
		router.Route = f.Resume(sess.Record()).Route
	}
	return ctx, sess, router
}

// state settles the session on a step that can be shown and describes it.
func (s *Server) state(ctx context.Context, sess *wizard.Session) stateView {
	f := sess.Flow()
	step := sess.Settle()
	rec := sess.Record()

	var opts preload.Options
	if sources := preload.Choices(step); len(sources) > 0 {
		opts = s.loader.Load(ctx, s.api, sources...)
	}

	view := stateView{
		Flow:     f.Key,
		Step:     step.Route,
		Title:    step.Title,
		Position: f.Position(step.Route),
		Total:    len(f.Steps),
		Terminal: f.IsTerminal(step.Route),
		Record:   maskRecord(f, rec),
		Missing:  rec.Missing(f.Last().Requires),
	}
	for _, field := range step.Fields {
		fv := describeField(field)
		for _, o := range opts.For(preload.Source(field.Source), rec) {
			fv.Options = append(fv.Options, optionView{Value: o.Value, Label: o.Label})
		}
		view.Fields = append(view.Fields, fv)
	}
	if view.Missing == nil {
		view.Missing = []string{}
	}
	return view
}

func describeField(f wizard.Field) fieldView {
	return fieldView{Key: f.Key, Label: f.Label, Kind: f.Kind, Optional: f.Optional, Hint: f.Hint}
}

// maskRecord hides password values.
func maskRecord(f *wizard.Flow, rec wizard.Record) wizard.Record {
	out := rec.Clone()
	for _, step := range f.Steps {
		for _, field := range step.Fields {
			if field.Kind == wizard.KindPassword && out.Present(field.Key) {
				out[field.Key] = masked
			}
		}
	}
	return out
}

// formValues flattens the fields argument into the input names
// wizard.Field.Parse reads: nested objects become "key.sub".
func formValues(raw any) map[string]string {
	out := map[string]string{}
	fields, _ := raw.(map[string]any)
	for k, v := range fields {
		if nested, ok := v.(map[string]any); ok {
			for sub, sv := range nested {
				out[k+"."+sub] = scalar(sv)
			}
			continue
		}
		out[k] = scalar(v)
	}
	return out
}

func scalar(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// handleList describes every wizard.
func (s *Server) handleList(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	views := make([]flowView, 0, len(s.flows.Keys()))
	for _, key := range s.flows.Keys() {
		f, _ := s.flows.Get(key)
		fv := flowView{Key: f.Key, Title: f.Title}
		for _, step := range f.Steps {
			sv := stepView{Route: step.Route, Title: step.Title}
			for _, field := range step.Fields {
				sv.Fields = append(sv.Fields, describeField(field))
			}
			fv.Steps = append(fv.Steps, sv)
		}
		views = append(views, fv)
	}
	return jsonResult(views)
}

// handleState shows where the owner's wizard resumes.
func (s *Server) handleState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, owner, res := s.target(request)
	if res != nil {
		return res, nil
	}
	ctx, sess, _ := s.open(ctx, f, owner, "")
	return jsonResult(s.state(ctx, sess))
}

// handleNext validates one step and advances, or submits on the confirm step.
func (s *Server) handleNext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, owner, res := s.target(request)
	if res != nil {
		return res, nil
	}
	route, err := request.RequireString("step")
	if err != nil || route == "" {
		return errorResult("missing 'step' parameter"), nil
	}

	ctx, sess, router := s.open(ctx, f, owner, route)
	step, ok := sess.Enter(route)
	if !ok {
		return errorResult("step %q is not available; continue at %q", route, router.Route), nil
	}

	values := formValues(request.GetArguments()["fields"])
	patch, err := step.Parse(func(name string) string { return values[name] })
	if err != nil {
		return errorResult("%v", err), nil
	}
	if sources := preload.Choices(step); len(sources) > 0 {
		opts := s.loader.Load(ctx, s.api, sources...)
		if errs := opts.Check(step, sess.Record(), patch); errs != nil {
			return errorResult("%v", errs), nil
		}
	}

	if f.IsTerminal(route) {
		return s.complete(ctx, sess, router, owner, patch)
	}
	if err := sess.Advance(ctx, route, patch); err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(s.state(ctx, sess))
}

// handleBack moves to the previous step.
func (s *Server) handleBack(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, owner, res := s.target(request)
	if res != nil {
		return res, nil
	}
	route, err := request.RequireString("step")
	if err != nil || route == "" {
		return errorResult("missing 'step' parameter"), nil
	}
	if _, ok := f.Step(route); !ok {
		return errorResult("unknown step %q", route), nil
	}

	ctx, sess, router := s.open(ctx, f, owner, route)
	sess.Retreat(route)
	if router.Left {
		return mcp.NewToolResultText(fmt.Sprintf("Left the %s wizard. The record is kept.", f.Key)), nil
	}
	return jsonResult(s.state(ctx, sess))
}

// handleSubmit submits a completed wizard from its confirm step.
func (s *Server) handleSubmit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, owner, res := s.target(request)
	if res != nil {
		return res, nil
	}
	ctx, sess, router := s.open(ctx, f, owner, f.Last().Route)
	return s.complete(ctx, sess, router, owner, nil)
}

// handleReset discards the owner's record.
func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, owner, res := s.target(request)
	if res != nil {
		return res, nil
	}
	ctx, sess, _ := s.open(ctx, f, owner, f.First().Route)
	sess.Reset(ctx)
	return mcp.NewToolResultText(fmt.Sprintf("Reset %s. Start again at %q.", f.Key, f.First().Route)), nil
}

func (s *Server) complete(ctx context.Context, sess *wizard.Session, router *wizard.LocalRouter, owner string, patch wizard.Record) (*mcp.CallToolResult, error) {
	f := sess.Flow()
	result, err := sess.Complete(ctx, patch)
	switch {
	case errors.Is(err, wizard.ErrPrecondition):
		return errorResult("the wizard is incomplete; continue at %q", router.Route), nil
	case err != nil:
		return errorResult("%s", wizard.UserMessage(err)), nil
	}

	view := submitView{Flow: f.Key, Submitted: true, Destination: router.Exit, Result: result}
	if reg, ok := result.(submit.Registered); ok {
		if reg.Token != "" {
			session.SignIn(ctx, s.store, owner, farmapi.Identity{Email: reg.Email, Token: reg.Token})
		}
		view.Result = map[string]string{"email": reg.Email, "farmId": reg.FarmID}
	}
	if f.Completion == wizard.KeepRecord {
		view.Result = map[string]string{"selected": flows.Selection(sess.Record())}
	}
	return jsonResult(view)
}
