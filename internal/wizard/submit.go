package wizard

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrBusy is returned when a submit for the same record is already in flight.
	ErrBusy = errors.New("submission already in progress")
	// ErrNotTerminal is returned when Submit is called away from the confirm step.
	ErrNotTerminal = errors.New("current step is not the confirm step")
	// ErrTerminal is returned when Advance is called on the confirm step.
	ErrTerminal = errors.New("confirm step must be submitted")
	// ErrUnknownStep is returned for routes that are not part of the flow.
	ErrUnknownStep = errors.New("unknown step")
	// ErrPrecondition is returned when the record lacks keys the step requires.
	// The session has already redirected to the fallback step.
	ErrPrecondition = errors.New("step requirements not met")
)

// Submitter turns a completed record into an external resource.
type Submitter interface {
	Submit(ctx context.Context, rec Record) (any, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, rec Record) (any, error)

func (f SubmitterFunc) Submit(ctx context.Context, rec Record) (any, error) {
	return f(ctx, rec)
}

// ResourceSubmitter creates one resource type from a typed wizard input.
type ResourceSubmitter[In, Out any] interface {
	Submit(ctx context.Context, in In) (Out, error)
}

// Bind adapts a typed submitter to the record-level Submitter used by flows.
// The record is decoded into In before any request is made.
func Bind[In, Out any](rs ResourceSubmitter[In, Out]) Submitter {
	return SubmitterFunc(func(ctx context.Context, rec Record) (any, error) {
		in, err := Decode[In](rec)
		if err != nil {
			return nil, &SubmitError{Message: "The form data is incomplete. Please review the previous steps.", Err: err}
		}
		return rs.Submit(ctx, in)
	})
}

// SubmitError is the user-facing form of a failed submit.
type SubmitError struct {
	Message string // human readable
	Body    string // raw server response, when there was one
	Err     error
}

func (e *SubmitError) Error() string {
	return e.Message
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// bodyCarrier is implemented by API errors that keep the server's response body.
type bodyCarrier interface {
	ResponseBody() string
}

func toSubmitError(err error) *SubmitError {
	var se *SubmitError
	if errors.As(err, &se) {
		return se
	}
	out := &SubmitError{Message: err.Error(), Err: err}
	var bc bodyCarrier
	if errors.As(err, &bc) {
		out.Body = bc.ResponseBody()
	}
	return out
}

// InFlight tracks which records currently have a submit running.
// It is the busy flag shared by every front end serving the same records.
type InFlight struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewInFlight creates an empty tracker.
func NewInFlight() *InFlight {
	return &InFlight{keys: make(map[string]struct{})}
}

// Acquire marks key busy. It returns false if key is already busy.
func (g *InFlight) Acquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.keys[key]; busy {
		return false
	}
	g.keys[key] = struct{}{}
	return true
}

// Release clears the busy mark for key.
func (g *InFlight) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, key)
}

// Busy reports whether key has a submit in flight.
func (g *InFlight) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.keys[key]
	return busy
}
