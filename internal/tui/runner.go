// Package tui runs a wizard as a terminal program.
package tui

import (
	"context"
	"errors"
	"fmt"

	tea "charm.land/bubbletea/v2"
	"github.com/scibee/farmwiz/internal/farmapi"
	"github.com/scibee/farmwiz/internal/preload"
	"github.com/scibee/farmwiz/internal/session"
	"github.com/scibee/farmwiz/internal/submit"
	"github.com/scibee/farmwiz/internal/wizard"
)

// Options configures a terminal wizard run.
type Options struct {
	Flow     *wizard.Flow
	Store    *wizard.Store
	Owner    string
	API      preload.API
	Loader   *preload.Loader
	Notifier func(context.Context, wizard.Notice)
}

func (o Options) key() string {
	return session.Key(o.Owner, o.Flow.Key)
}

func (o Options) sessionOptions() []wizard.Option {
	var opts []wizard.Option
	if o.Notifier != nil {
		opts = append(opts, wizard.WithNotifier(o.Notifier))
	}
	return opts
}

// Result reports how a terminal run ended.
type Result struct {
	// Completed is true when the wizard was submitted.
	Completed bool
	// Value is what the submitter returned.
	Value any
	// Destination is where the wizard leads after a submit.
	Destination string
}

// Run shows the wizard until it is submitted or the user leaves. Progress
// survives a cancelled run, so the next run resumes where this one stopped.
func Run(ctx context.Context, o Options) (*Result, error) {
	if o.Flow == nil || o.Store == nil {
		return nil, errors.New("flow and store are required")
	}
	if id, ok := session.Identity(ctx, o.Store, o.Owner); ok {
		ctx = farmapi.WithIdentity(ctx, id)
	}

	m := NewModel(ctx, o)
	p := tea.NewProgram(m, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return nil, fmt.Errorf("running wizard: %w", err)
	}

	res := m.outcome()
	if reg, ok := res.Value.(submit.Registered); ok && reg.Token != "" {
		session.SignIn(ctx, o.Store, o.Owner, farmapi.Identity{Email: reg.Email, Token: reg.Token})
	}
	return res, nil
}

// Reset discards the saved progress of the owner's wizard.
func Reset(ctx context.Context, o Options) {
	o.Store.Clear(ctx, o.key())
}

func (m *Model) outcome() *Result {
	if !m.done {
		return &Result{}
	}
	return &Result{
		Completed:   true,
		Value:       m.result,
		Destination: m.router.Exit,
	}
}
