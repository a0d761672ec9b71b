// Package wizard implements the multi-step form engine shared by every farmwiz
// wizard: an accumulating record, a step graph with preconditions, and a
// navigator that persists before it moves.
package wizard

import (
	"context"
	"errors"
	"fmt"

	"github.com/scibee/farmwiz/internal/logger"
)

// Router moves the route pointer of a session. The current route is the
// session's state; the session never stores it separately.
type Router interface {
	// Current returns the active step route.
	Current() string
	// Navigate moves to route: a step route of the flow, or an absolute
	// path starting with "/" when leaving the wizard. replace=true means
	// the move must not leave a history entry (redirects).
	Navigate(route string, replace bool)
	// Back performs a history back navigation.
	Back()
}

// NoticeKind classifies session lifecycle notices.
type NoticeKind string

const (
	NoticeStarted   NoticeKind = "started"
	NoticeAdvanced  NoticeKind = "advanced"
	NoticeSubmitted NoticeKind = "submitted"
	NoticeFailed    NoticeKind = "failed"
	NoticeReset     NoticeKind = "reset"
)

// Notice describes something that happened to a session.
type Notice struct {
	Flow   string
	Key    string
	Kind   NoticeKind
	Step   string
	Detail string
}

// Session is a live wizard: one flow, its record, the storage key and a router.
type Session struct {
	flow     *Flow
	store    *Store
	key      string
	router   Router
	record   Record
	secrets  Record // password values; never stored
	inflight *InFlight
	returnTo string
	notify   func(context.Context, Notice)
	log      *logger.Logger
}

// Option customizes a session.
type Option func(*Session)

// WithInFlight shares a busy tracker between sessions of different requests.
func WithInFlight(g *InFlight) Option {
	return func(s *Session) { s.inflight = g }
}

// WithReturnTo sets where a successful submit leads instead of the flow destination.
func WithReturnTo(path string) Option {
	return func(s *Session) { s.returnTo = path }
}

// WithNotifier registers a callback for lifecycle notices.
func WithNotifier(fn func(context.Context, Notice)) Option {
	return func(s *Session) { s.notify = fn }
}

// Open rehydrates the session for key from the store.
func Open(ctx context.Context, flow *Flow, store *Store, key string, router Router, opts ...Option) *Session {
	s := &Session{
		flow:   flow,
		store:  store,
		key:    key,
		router: router,
		log:    logger.With("wizard"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.inflight == nil {
		s.inflight = NewInFlight()
	}
	s.record = store.Load(ctx, key)
	return s
}

// Flow returns the step graph driving the session.
func (s *Session) Flow() *Flow { return s.flow }

// Key returns the storage key of the record.
func (s *Session) Key() string { return s.key }

// Record returns a copy of the current record.
func (s *Session) Record() Record { return s.record.Clone() }

// Busy reports whether a submit for this record is in flight.
func (s *Session) Busy() bool { return s.inflight.Busy(s.key) }

// Destination is where a successful submit navigates.
func (s *Session) Destination() string {
	if s.returnTo != "" {
		return s.returnTo
	}
	return s.flow.Destination
}

// GoNext merges patch into the record, persists it, then navigates to route.
// The save completes before the route changes so the next step's guard
// always sees the merged record.
func (s *Session) GoNext(ctx context.Context, route string, patch Record) {
	wasEmpty := len(s.record) == 0
	from := s.router.Current()

	s.absorb(patch)
	s.store.Save(ctx, s.key, s.record)

	if wasEmpty && len(s.record) > 0 {
		s.emit(ctx, NoticeStarted, from, "")
	}
	s.emit(ctx, NoticeAdvanced, from, route)
	s.log.Debug("%s: %s -> %s", s.flow.Key, from, route)
	s.router.Navigate(route, false)
}

// absorb merges patch into the record. Password values go to the
// in-memory secrets instead and only reach the submitter.
func (s *Session) absorb(patch Record) {
	public := make(Record, len(patch))
	for k, v := range patch {
		if !s.flow.Secret(k) {
			public[k] = v
			continue
		}
		if s.secrets == nil {
			s.secrets = Record{}
		}
		s.secrets[k] = v
	}
	s.record = s.record.Merge(public)
}

// GoBack navigates to route without touching the record. An empty route
// performs a history back navigation.
func (s *Session) GoBack(route string) {
	if route == "" {
		s.router.Back()
		return
	}
	s.router.Navigate(route, false)
}

// Ensure reports whether every required key is present. When one is missing
// it redirects to fallback, unless the router is already there.
func (s *Session) Ensure(required []string, fallback string) bool {
	missing := s.record.Missing(required)
	if len(missing) == 0 {
		return true
	}
	if s.router.Current() != fallback {
		s.log.Debug("%s: missing %v, redirecting to %s", s.flow.Key, missing, fallback)
		s.router.Navigate(fallback, true)
	}
	return false
}

// Enter is the guard phase of rendering route. Callers must only render
// the returned step when ok is true; otherwise the session has redirected.
func (s *Session) Enter(route string) (Step, bool) {
	step, known := s.flow.Step(route)
	if !known {
		first := s.flow.First()
		if s.router.Current() != first.Route {
			s.router.Navigate(first.Route, true)
		}
		return first, false
	}
	if !s.Ensure(step.Requires, s.flow.FallbackFor(step, s.record)) {
		return step, false
	}
	return step, true
}

// Settle enters the router's current step and follows redirects until a
// step can be shown. It is Enter for front ends that render in process.
func (s *Session) Settle() Step {
	for range s.flow.Steps {
		if step, ok := s.Enter(s.router.Current()); ok {
			return step
		}
	}
	first := s.flow.First()
	s.router.Navigate(first.Route, true)
	return first
}

// Advance moves from route to the next state of the flow, merging patch.
func (s *Session) Advance(ctx context.Context, route string, patch Record) error {
	step, ok := s.flow.Step(route)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStep, route)
	}
	if s.flow.IsTerminal(route) {
		return ErrTerminal
	}
	if !s.Ensure(step.Requires, s.flow.FallbackFor(step, s.record)) {
		return ErrPrecondition
	}
	next, _ := s.flow.Target(route, EventNext)
	s.GoNext(ctx, next, patch)
	return nil
}

// Retreat moves from route to the previous state. From the first step it
// falls back to a history back navigation.
func (s *Session) Retreat(route string) {
	prev, ok := s.flow.Target(route, EventBack)
	if !ok || prev == Exit {
		s.GoBack("")
		return
	}
	s.GoBack(prev)
}

// Submit runs the flow's submitter from the confirm step. On success the
// completion policy is applied and the router leaves the wizard; on failure
// the record and route are untouched and a *SubmitError is returned.
func (s *Session) Submit(ctx context.Context) (any, error) {
	route := s.router.Current()
	if !s.flow.IsTerminal(route) {
		return nil, ErrNotTerminal
	}
	last := s.flow.Last()
	if !s.Ensure(last.Requires, s.flow.FallbackFor(last, s.record)) {
		return nil, ErrPrecondition
	}

	if !s.inflight.Acquire(s.key) {
		return nil, ErrBusy
	}
	defer s.inflight.Release(s.key)
	defer func() { s.secrets = nil }()

	// A submit that held the guard before us may have cleared the record.
	s.record = s.store.Load(ctx, s.key)
	if !s.Ensure(last.Requires, s.flow.FallbackFor(last, s.record)) {
		return nil, ErrPrecondition
	}
	submitted := s.record.Merge(s.secrets)
	if errs := requiredFields(last, submitted); len(errs) > 0 {
		return nil, errs
	}

	var (
		result any
		err    error
	)
	if s.flow.Submitter != nil {
		result, err = s.flow.Submitter.Submit(ctx, submitted)
	}
	if err != nil {
		se := toSubmitError(err)
		s.log.Warn("%s: submit failed: %v", s.flow.Key, err)
		s.emit(ctx, NoticeFailed, route, se.Message)
		return nil, se
	}

	if s.flow.Completion == ClearRecord {
		s.store.Clear(ctx, s.key)
		s.record = Record{}
	}
	s.emit(ctx, NoticeSubmitted, route, s.Destination())
	s.log.Info("%s: submitted, leaving for %s", s.flow.Key, s.Destination())
	s.router.Navigate(s.Destination(), false)
	return result, nil
}

// Complete stores the confirm step's own fields, then submits. Flows whose
// last step collects input (single-step selections, registration
// passwords) finish this way. Password fields are passed to the submitter
// without being stored.
func (s *Session) Complete(ctx context.Context, patch Record) (any, error) {
	if !s.flow.IsTerminal(s.router.Current()) {
		return nil, ErrNotTerminal
	}
	if len(patch) > 0 {
		s.absorb(patch)
		s.store.Save(ctx, s.key, s.record)
	}
	return s.Submit(ctx)
}

// requiredFields reports the terminal step's own required fields missing
// from rec.
func requiredFields(step Step, rec Record) FieldErrors {
	errs := FieldErrors{}
	for _, f := range step.Fields {
		if !f.Optional && !rec.Present(f.Key) {
			errs[f.Key] = "is required"
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Reset abandons the wizard: the record is cleared and the router returns
// to the first step.
func (s *Session) Reset(ctx context.Context) {
	s.store.Clear(ctx, s.key)
	s.record = Record{}
	s.emit(ctx, NoticeReset, s.router.Current(), "")
	s.router.Navigate(s.flow.First().Route, true)
}

func (s *Session) emit(ctx context.Context, kind NoticeKind, step, detail string) {
	if s.notify == nil {
		return
	}
	s.notify(ctx, Notice{
		Flow:   s.flow.Key,
		Key:    s.key,
		Kind:   kind,
		Step:   step,
		Detail: detail,
	})
}

// IsUserFacing reports whether err should be shown on the confirm step.
func IsUserFacing(err error) bool {
	var (
		se *SubmitError
		fe FieldErrors
	)
	return errors.As(err, &se) || errors.As(err, &fe) || errors.Is(err, ErrBusy)
}

// UserMessage is the text a front end shows for a failed submit.
func UserMessage(err error) string {
	if errors.Is(err, ErrBusy) {
		return "Already submitting. Please wait."
	}
	var se *SubmitError
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}
