package wizard

import "strings"

// LocalRouter is the Router of front ends without URLs. It keeps the step
// route in memory and records how the wizard was left.
type LocalRouter struct {
	Route string // active step
	Exit  string // absolute path the session navigated to, if any
	Left  bool   // a back navigation from the first step
}

// NewLocalRouter starts at route.
func NewLocalRouter(route string) *LocalRouter {
	return &LocalRouter{Route: route}
}

func (r *LocalRouter) Current() string { return r.Route }

func (r *LocalRouter) Navigate(route string, _ bool) {
	if strings.HasPrefix(route, "/") {
		r.Exit = route
		return
	}
	r.Route = route
}

func (r *LocalRouter) Back() { r.Left = true }

// Done reports whether the session has left the wizard.
func (r *LocalRouter) Done() bool {
	return r.Exit != "" || r.Left
}
