package wizard

import (
	"errors"
	"fmt"
	"strings"
)

// Step describes one screen of a wizard: the route segment it lives on,
// the record keys it needs before it can be shown and the keys it writes.
type Step struct {
	Route    string
	Title    string
	Requires []string
	Produces []string // defaults to the keys of Fields
	Fields   []Field
	Fallback string // route used when Requires is unmet; defaults to the earliest producer
}

// Outputs returns the keys this step writes.
func (s Step) Outputs() []string {
	if len(s.Produces) > 0 {
		return s.Produces
	}
	keys := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		keys = append(keys, f.Key)
	}
	return keys
}

// Parse validates every field of the step and returns the patch to merge.
// Optional fields left blank are omitted from the patch.
func (s Step) Parse(get func(name string) string) (Record, error) {
	patch := Record{}
	errs := FieldErrors{}
	for _, f := range s.Fields {
		v, err := f.Parse(get)
		if err != nil {
			var fe *FieldError
			if errors.As(err, &fe) {
				errs[fe.Key] = fe.Message
				continue
			}
			return nil, err
		}
		if v != nil {
			patch[f.Key] = v
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return patch, nil
}

// Completion decides what happens to the record after a successful submit.
type Completion int

const (
	// ClearRecord removes the persisted record once the submit succeeds.
	ClearRecord Completion = iota
	// KeepRecord leaves the record in place, e.g. a selection read by a list view.
	KeepRecord
)

func (c Completion) String() string {
	if c == KeepRecord {
		return "keep"
	}
	return "clear"
}

// Flow is the step graph of one wizard type.
type Flow struct {
	Key         string // storage namespace, e.g. "parcel-add"
	Title       string
	Base        string // route prefix, e.g. "/parcels/add"
	Steps       []Step
	Destination string // where a successful submit leads when no returnTo is given
	Completion  Completion
	Submitter   Submitter // nil: completing the flow needs no request
}

// Event names a transition of the wizard state machine.
type Event string

const (
	EventNext      Event = "next"
	EventBack      Event = "back"
	EventSubmitted Event = "submitted"
	EventFailed    Event = "failed"
	EventReset     Event = "reset"
)

// Exit is the pseudo-state for leaving the wizard (back from the first step,
// or a successful submit).
const Exit = ""

// Transition is one row of the state machine's transition table.
type Transition struct {
	From  string
	Event Event
	To    string
}

// First returns the initial step.
func (f *Flow) First() Step {
	return f.Steps[0]
}

// Last returns the terminal step.
func (f *Flow) Last() Step {
	return f.Steps[len(f.Steps)-1]
}

func (f *Flow) index(route string) int {
	for i, s := range f.Steps {
		if s.Route == route {
			return i
		}
	}
	return -1
}

// Step looks up a step by route.
func (f *Flow) Step(route string) (Step, bool) {
	i := f.index(route)
	if i < 0 {
		return Step{}, false
	}
	return f.Steps[i], true
}

// Position returns the 1-based position of route in the flow, or 0.
func (f *Flow) Position(route string) int {
	return f.index(route) + 1
}

// IsTerminal reports whether route is the submit step.
func (f *Flow) IsTerminal(route string) bool {
	return len(f.Steps) > 0 && f.Last().Route == route
}

// Resume returns the first step with a required field missing from rec,
// or the terminal step when every step is filled in.
func (f *Flow) Resume(rec Record) Step {
	for _, s := range f.Steps {
		for _, field := range s.Fields {
			if !field.Optional && !rec.Present(field.Key) {
				return s
			}
		}
	}
	return f.Last()
}

// Resolve maps a URL segment to a step. The index segment and unknown
// segments resolve to the first step with ok=false, meaning the caller
// should redirect there.
func (f *Flow) Resolve(segment string) (Step, bool) {
	segment = strings.Trim(segment, "/")
	if s, ok := f.Step(segment); ok {
		return s, true
	}
	return f.First(), false
}

// Path returns the absolute route of a step.
func (f *Flow) Path(route string) string {
	return strings.TrimSuffix(f.Base, "/") + "/" + route
}

// Table returns the transition table of the flow.
func (f *Flow) Table() []Transition {
	var table []Transition
	for i, s := range f.Steps {
		back := Exit
		if i > 0 {
			back = f.Steps[i-1].Route
		}
		table = append(table, Transition{From: s.Route, Event: EventBack, To: back})
		table = append(table, Transition{From: s.Route, Event: EventReset, To: f.First().Route})
		if i < len(f.Steps)-1 {
			table = append(table, Transition{From: s.Route, Event: EventNext, To: f.Steps[i+1].Route})
			continue
		}
		table = append(table,
			Transition{From: s.Route, Event: EventSubmitted, To: Exit},
			Transition{From: s.Route, Event: EventFailed, To: s.Route},
		)
	}
	return table
}

// IsReview reports whether route is the confirm step of a multi-step flow,
// which shows the answers given so far.
func (f *Flow) IsReview(route string) bool {
	return len(f.Steps) > 1 && f.IsTerminal(route)
}

// Secret reports whether key belongs to a password field. Secret values
// are submitted but never stored.
func (f *Flow) Secret(key string) bool {
	for _, s := range f.Steps {
		for _, field := range s.Fields {
			if field.Key == key && field.Kind == KindPassword {
				return true
			}
		}
	}
	return false
}

// Target returns the state reached from route on event.
func (f *Flow) Target(route string, event Event) (string, bool) {
	for _, t := range f.Table() {
		if t.From == route && t.Event == event {
			return t.To, true
		}
	}
	return "", false
}

// FallbackFor returns the route to send the user to when step's requirements
// are not met by rec: the step's explicit fallback, else the earliest step
// producing a missing key, else the first step.
func (f *Flow) FallbackFor(step Step, rec Record) string {
	if step.Fallback != "" {
		return step.Fallback
	}
	missing := rec.Missing(step.Requires)
	for _, s := range f.Steps {
		if s.Route == step.Route {
			break
		}
		for _, out := range s.Outputs() {
			for _, m := range missing {
				if out == m {
					return s.Route
				}
			}
		}
	}
	return f.First().Route
}

// Validate checks that the flow is a well-formed step graph.
func (f *Flow) Validate() error {
	if f.Key == "" {
		return errors.New("flow key is required")
	}
	if len(f.Steps) == 0 {
		return fmt.Errorf("flow %s: no steps", f.Key)
	}
	if len(f.First().Requires) > 0 {
		return fmt.Errorf("flow %s: first step %q cannot have requirements", f.Key, f.First().Route)
	}

	seen := map[string]bool{}
	produced := map[string]bool{}
	last := f.Last().Route
	for _, s := range f.Steps {
		for _, field := range s.Fields {
			if field.Kind == KindPassword && s.Route != last {
				return fmt.Errorf("flow %s: password field %q must be on the terminal step", f.Key, field.Key)
			}
		}
		if s.Route == "" || strings.Contains(s.Route, "/") {
			return fmt.Errorf("flow %s: invalid step route %q", f.Key, s.Route)
		}
		if seen[s.Route] {
			return fmt.Errorf("flow %s: duplicate step route %q", f.Key, s.Route)
		}
		for _, req := range s.Requires {
			if !produced[req] {
				return fmt.Errorf("flow %s: step %q requires %q which no earlier step produces", f.Key, s.Route, req)
			}
		}
		if s.Fallback != "" && !seen[s.Fallback] {
			return fmt.Errorf("flow %s: step %q falls back to %q which is not an earlier step", f.Key, s.Route, s.Fallback)
		}
		seen[s.Route] = true
		for _, out := range s.Outputs() {
			produced[out] = true
		}
	}
	return nil
}
