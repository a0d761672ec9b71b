package web

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"github.com/scibee/farmwiz/internal/flows"
	"github.com/scibee/farmwiz/internal/journal"
	"github.com/scibee/farmwiz/internal/preload"
	"github.com/scibee/farmwiz/internal/session"
	"github.com/scibee/farmwiz/internal/submit"
	"github.com/scibee/farmwiz/internal/wizard"
)

// redirector is the wizard router of one request. The current route is the
// URL segment; navigations are collected and answered with a redirect.
type redirector struct {
	flow     *wizard.Flow
	current  string
	target   string
	back     bool
	returnTo string
}

func (n *redirector) Current() string { return n.current }

func (n *redirector) Navigate(route string, _ bool) {
	n.current = route
	n.target = route
}

func (n *redirector) Back() { n.back = true }

// location is where the collected navigation leads. Step routes keep the
// returnTo parameter; absolute paths leave the wizard.
func (n *redirector) location() string {
	switch {
	case n.back:
		if n.returnTo != "" {
			return n.returnTo
		}
		return "/dashboard"
	case strings.HasPrefix(n.target, "/"):
		return n.target
	}
	route := n.target
	if route == "" {
		route = n.flow.First().Route
	}
	loc := n.flow.Path(route)
	if n.returnTo != "" {
		loc += "?returnTo=" + url.QueryEscape(n.returnTo)
	}
	return loc
}

func (s *Server) open(r *http.Request, f *wizard.Flow, nav *redirector) *wizard.Session {
	opts := []wizard.Option{wizard.WithInFlight(s.inflight)}
	if nav.returnTo != "" {
		opts = append(opts, wizard.WithReturnTo(nav.returnTo))
	}
	if s.journal != nil {
		opts = append(opts, wizard.WithNotifier(journal.Notifier(s.journal)))
	}
	return wizard.Open(r.Context(), f, s.store, session.Key(sid(r), f.Key), nav, opts...)
}

func follow(w http.ResponseWriter, r *http.Request, nav *redirector) {
	http.Redirect(w, r, nav.location(), http.StatusSeeOther)
}

// handleStep renders (GET) or advances (POST) one step of f.
func (s *Server) handleStep(f *wizard.Flow) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nav := &redirector{
			flow:     f,
			current:  mux.Vars(r)["step"],
			returnTo: safeReturn(r.FormValue("returnTo")),
		}
		sess := s.open(r, f, nav)

		if r.Method == http.MethodPost && r.PostFormValue("action") == "back" {
			sess.Retreat(nav.current)
			follow(w, r, nav)
			return
		}

		step, ok := sess.Enter(nav.current)
		if !ok {
			follow(w, r, nav)
			return
		}
		if r.Method != http.MethodPost {
			s.renderStep(w, r, sess, step, stepState{returnTo: nav.returnTo})
			return
		}

		patch, err := step.Parse(r.PostFormValue)
		var fieldErrs wizard.FieldErrors
		if errors.As(err, &fieldErrs) {
			s.renderStep(w, r, sess, step, stepState{returnTo: nav.returnTo, form: r.PostForm, errors: fieldErrs})
			return
		}
		if err != nil {
			s.fail(w, err)
			return
		}
		if sources := preload.Choices(step); len(sources) > 0 {
			opts := s.loader.Load(r.Context(), s.api, sources...)
			if errs := opts.Check(step, sess.Record(), patch); errs != nil {
				s.renderStep(w, r, sess, step, stepState{returnTo: nav.returnTo, form: r.PostForm, errors: errs})
				return
			}
		}

		if !f.IsTerminal(step.Route) {
			if err := sess.Advance(r.Context(), step.Route, patch); err != nil && !errors.Is(err, wizard.ErrPrecondition) {
				s.fail(w, err)
				return
			}
			follow(w, r, nav)
			return
		}

		result, err := sess.Complete(r.Context(), patch)
		switch {
		case errors.Is(err, wizard.ErrPrecondition):
			follow(w, r, nav)
		case wizard.IsUserFacing(err):
			s.renderStep(w, r, sess, step, stepState{returnTo: nav.returnTo, message: wizard.UserMessage(err)})
		case err != nil:
			s.fail(w, err)
		default:
			if reg, ok := result.(submit.Registered); ok && reg.Token != "" {
				s.signIn(r.Context(), r, reg.Email, reg.Token)
			}
			follow(w, r, nav)
		}
	})
}

// handleReset abandons the wizard and goes back to its first step.
func (s *Server) handleReset(f *wizard.Flow) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nav := &redirector{flow: f, returnTo: safeReturn(r.FormValue("returnTo"))}
		s.open(r, f, nav).Reset(r.Context())
		follow(w, r, nav)
	})
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.log.Error("Request failed: %v", err)
	http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
}

type stepState struct {
	returnTo string
	form     url.Values
	errors   wizard.FieldErrors
	message  string
}

func (s *Server) renderStep(w http.ResponseWriter, r *http.Request, sess *wizard.Session, step wizard.Step, st stepState) {
	f := sess.Flow()
	rec := sess.Record()

	sources := preload.Choices(step)
	if f.IsReview(step.Route) {
		sources = flows.Sources(f)
	}
	opts := s.loader.Load(r.Context(), s.api, sources...)

	view := stepView{
		Flow:     f,
		Step:     step,
		Position: f.Position(step.Route),
		Total:    len(f.Steps),
		Terminal: f.IsTerminal(step.Route),
		Action:   f.Path(step.Route),
		ResetTo:  f.Base + "/reset",
		ReturnTo: st.returnTo,
		Busy:     sess.Busy(),
		Message:  st.message,
		Fields:   fieldViews(step, rec, opts, st.form, st.errors),
	}
	if f.IsReview(step.Route) {
		view.Summary = summarize(f, rec, opts)
	}

	status := http.StatusOK
	if len(st.errors) > 0 || st.message != "" {
		status = http.StatusUnprocessableEntity
	}
	s.render(w, status, "step", view)
}
