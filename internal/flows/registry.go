// Package flows declares every farmwiz wizard: its routes, steps, fields
// and the submitter that finishes it.
package flows

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/scibee/farmwiz/internal/farmapi"
	"github.com/scibee/farmwiz/internal/preload"
	"github.com/scibee/farmwiz/internal/submit"
	"github.com/scibee/farmwiz/internal/wizard"
)

// Registry holds the flows by key.
type Registry struct {
	flows []*wizard.Flow
	byKey map[string]*wizard.Flow
}

// New returns a registry of every wizard. Flows have no submitters until
// Bind is called.
func New() *Registry {
	r := &Registry{byKey: map[string]*wizard.Flow{}}
	for _, f := range definitions() {
		r.flows = append(r.flows, f)
		r.byKey[f.Key] = f
	}
	return r
}

// Get returns the flow with key.
func (r *Registry) Get(key string) (*wizard.Flow, bool) {
	f, ok := r.byKey[key]
	return f, ok
}

// All returns the flows in declaration order.
func (r *Registry) All() []*wizard.Flow {
	return append([]*wizard.Flow(nil), r.flows...)
}

// Keys returns the sorted flow keys.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.byKey))
	for k := range r.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Match finds the flow whose base route prefixes path and returns the
// remaining step segment. "/parcels/add" and "/parcels/add/" match with an
// empty segment.
func (r *Registry) Match(path string) (*wizard.Flow, string, bool) {
	for _, f := range r.flows {
		if path == f.Base {
			return f, "", true
		}
		if rest, ok := strings.CutPrefix(path, f.Base+"/"); ok {
			return f, rest, true
		}
	}
	return nil, "", false
}

// Validate checks every flow's step graph and that confirm steps gate on
// every required key.
func (r *Registry) Validate() error {
	var errs []error
	for _, f := range r.flows {
		if err := f.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if missing := uncovered(f); len(missing) > 0 {
			errs = append(errs, fmt.Errorf("flow %s: terminal step does not require %v", f.Key, missing))
		}
	}
	return errors.Join(errs...)
}

// uncovered lists required keys produced before the terminal step that the
// terminal step does not require.
func uncovered(f *wizard.Flow) []string {
	last := f.Last()
	required := map[string]bool{}
	for _, k := range last.Requires {
		required[k] = true
	}
	var missing []string
	for _, s := range f.Steps[:len(f.Steps)-1] {
		for _, field := range s.Fields {
			if !field.Optional && !required[field.Key] {
				missing = append(missing, field.Key)
			}
		}
	}
	return missing
}

// Bind attaches submitters built from d to the flows that create resources.
// Search flows keep a nil submitter.
func (r *Registry) Bind(d *submit.Deps) *Registry {
	subs := map[string]wizard.Submitter{
		ParcelAdd:     wizard.Bind[submit.ParcelInput, farmapi.Created](submit.NewParcel(d)),
		ApiaryAdd:     wizard.Bind[submit.ApiaryInput, farmapi.Created](submit.NewApiary(d)),
		BeehiveAdd:    wizard.Bind[submit.BeehiveInput, farmapi.Created](submit.NewBeehive(d)),
		CropAdd:       wizard.Bind[submit.CropInput, farmapi.Created](submit.NewCrop(d)),
		FarmAdd:       wizard.Bind[submit.FarmInput, farmapi.Created](submit.NewFarm(d)),
		Registration:  wizard.Bind[submit.RegistrationInput, submit.Registered](submit.NewRegistration(d)),
		CropObserve:   wizard.Bind[submit.ObservationInput, farmapi.Created](submit.NewCropObservation(d)),
		ApiaryObserve: wizard.Bind[submit.ObservationInput, farmapi.Created](submit.NewApiaryObservation(d)),
		CropManage:    wizard.Bind[submit.ActionInput, farmapi.Created](submit.NewAction(d, submit.TargetCrop)),
		ApiaryManage:  wizard.Bind[submit.ActionInput, farmapi.Created](submit.NewAction(d, submit.TargetApiary)),
		BeehiveManage: wizard.Bind[submit.ActionInput, farmapi.Created](submit.NewAction(d, submit.TargetBeehive)),
	}
	for key, sub := range subs {
		r.byKey[key].Submitter = sub
	}
	return r
}

// Sources returns the option lists the steps of f select from.
func Sources(f *wizard.Flow) []preload.Source {
	var out []preload.Source
	seen := map[string]bool{}
	for _, s := range f.Steps {
		for _, field := range s.Fields {
			if field.Kind == wizard.KindChoice && field.Source != "" && !seen[field.Source] {
				seen[field.Source] = true
				out = append(out, preload.Source(field.Source))
			}
		}
	}
	return out
}

// Selection returns the value a search flow's record holds.
func Selection(rec wizard.Record) string {
	return rec.String(SelectedKey)
}
