// Package preload fetches the option lists that select fields offer.
package preload

import (
	"context"
	"sync"

	"github.com/scibee/farmwiz/internal/catalog"
	"github.com/scibee/farmwiz/internal/farmapi"
	"github.com/scibee/farmwiz/internal/logger"
	"github.com/scibee/farmwiz/internal/wizard"
	"golang.org/x/sync/errgroup"
)

// Source names an option list.
type Source string

const (
	Parcels                Source = "parcels"
	Crops                  Source = "crops"
	Apiaries               Source = "apiaries"
	Beehives               Source = "beehives"
	Farms                  Source = "farms"
	CropSpecies            Source = "crop-species"
	CropActions            Source = "crop-actions"
	CropObservationTypes   Source = "crop-observation-types"
	ApiaryObservationTypes Source = "apiary-observation-types"
	ApiaryActions          Source = "apiary-actions"
	BeehiveActions         Source = "beehive-actions"
	BeehiveModels          Source = "beehive-models"
)

// Option is one choice of a select field.
type Option struct {
	Value  string
	Label  string
	Unit   string // measured unit, for observation types and actions
	Parent string // owning resource UUID: the parcel of a crop, the region of a beehive
}

// API is the part of the farm API client the loader reads from.
type API interface {
	ListParcels(ctx context.Context, kind string) ([]farmapi.Parcel, error)
	ListCrops(ctx context.Context) ([]farmapi.Crop, error)
	ListFarms(ctx context.Context) ([]farmapi.Farm, error)
	ListActivityTypes(ctx context.Context, category, name string) ([]farmapi.ActivityType, error)
}

// Options holds loaded lists by source.
type Options map[Source][]Option

// For returns the options of source applicable to rec. Crops are narrowed
// to the parcel chosen earlier in the wizard, when there is one.
func (o Options) For(source Source, rec wizard.Record) []Option {
	opts := o[source]
	if source != Crops {
		return opts
	}
	parcel := rec.String("parcelId")
	if parcel == "" {
		return opts
	}
	var out []Option
	for _, opt := range opts {
		if opt.Parent == parcel {
			out = append(out, opt)
		}
	}
	return out
}

// Find returns the option of source with the given value.
func (o Options) Find(source Source, value string) (Option, bool) {
	for _, opt := range o[source] {
		if opt.Value == value {
			return opt, true
		}
	}
	return Option{}, false
}

// Label returns the display label of value in source, or value itself.
func (o Options) Label(source Source, value string) string {
	if opt, ok := o.Find(source, value); ok {
		return opt.Label
	}
	return value
}

// Choices lists the sources of step's choice fields.
func Choices(step wizard.Step) []Source {
	var out []Source
	for _, f := range step.Fields {
		if f.Kind == wizard.KindChoice && f.Source != "" {
			out = append(out, Source(f.Source))
		}
	}
	return out
}

// Check rejects choice values in patch that are not among the options the
// step offers for rec. It returns nil when every choice is known.
func (o Options) Check(step wizard.Step, rec, patch wizard.Record) wizard.FieldErrors {
	merged := rec.Merge(patch)
	errs := wizard.FieldErrors{}
	for _, f := range step.Fields {
		value := patch.String(f.Key)
		if f.Kind != wizard.KindChoice || value == "" {
			continue
		}
		if !contains(o.For(Source(f.Source), merged), value) {
			errs[f.Key] = "is not one of the options"
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func contains(opts []Option, value string) bool {
	for _, opt := range opts {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// Loader fills Options from the catalog and the farm API.
type Loader struct {
	catalog *catalog.Catalog
	limit   int
	log     *logger.Logger
}

// NewLoader creates a loader over cat.
func NewLoader(cat *catalog.Catalog) *Loader {
	return &Loader{catalog: cat, limit: 4, log: logger.With("preload")}
}

// Load fetches every requested source. Remote sources are fetched
// concurrently; a failing source is logged and yields an empty list so
// a step can always render.
func (l *Loader) Load(ctx context.Context, api API, sources ...Source) Options {
	out := Options{}
	var mu sync.Mutex
	set := func(src Source, opts []Option) {
		mu.Lock()
		defer mu.Unlock()
		out[src] = opts
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.limit)
	for _, src := range dedupe(sources) {
		if opts, ok := l.static(src); ok {
			set(src, opts)
			continue
		}
		if api == nil {
			set(src, l.offline(src))
			continue
		}
		g.Go(func() error {
			opts, err := l.remote(ctx, api, src)
			if err != nil {
				l.log.Warn("Failed to load %s options: %v", src, err)
				opts = nil
			}
			set(src, opts)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func dedupe(sources []Source) []Source {
	seen := make(map[Source]bool, len(sources))
	var out []Source
	for _, s := range sources {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func (l *Loader) static(src Source) ([]Option, bool) {
	c := l.catalog
	switch src {
	case CropSpecies:
		opts := make([]Option, 0, len(c.CropSpecies))
		for _, s := range c.CropSpecies {
			opts = append(opts, Option{Value: s.ID, Label: s.Label()})
		}
		return opts, true
	case CropActions:
		return actionOptions(c.CropActions), true
	case ApiaryActions:
		return actionOptions(c.ApiaryActions), true
	case BeehiveActions:
		return actionOptions(c.BeehiveActions), true
	case BeehiveModels:
		opts := make([]Option, 0, len(c.BeehiveModels))
		for _, m := range c.BeehiveModels {
			opts = append(opts, Option{Value: m, Label: m})
		}
		return opts, true
	}
	return nil, false
}

// offline is what a remote source offers without an API client.
func (l *Loader) offline(src Source) []Option {
	switch src {
	case CropObservationTypes:
		return observationOptions(l.catalog.CropObservationTypes)
	case ApiaryObservationTypes:
		return observationOptions(l.catalog.ApiaryObservationTypes)
	}
	return nil
}

func actionOptions(actions []catalog.Action) []Option {
	opts := make([]Option, 0, len(actions))
	for _, a := range actions {
		opts = append(opts, Option{Value: a.Key, Label: a.Label, Unit: a.Unit})
	}
	return opts
}

func observationOptions(types []catalog.ObservationType) []Option {
	opts := make([]Option, 0, len(types))
	for _, o := range types {
		opts = append(opts, Option{Value: o.Key, Label: o.Label, Unit: o.Unit})
	}
	return opts
}

// activityNames are the farm-calendar activity types observations are filed under.
var activityNames = map[Source]string{
	CropObservationTypes:   "Crop Growth Stage Observation",
	ApiaryObservationTypes: "Apiary Observation",
}

func (l *Loader) remote(ctx context.Context, api API, src Source) ([]Option, error) {
	switch src {
	case Parcels, Apiaries, Beehives:
		kind := map[Source]string{
			Parcels:  farmapi.KindField,
			Apiaries: farmapi.KindApiary,
			Beehives: farmapi.KindBeehive,
		}[src]
		parcels, err := api.ListParcels(ctx, kind)
		if err != nil {
			return nil, err
		}
		opts := make([]Option, 0, len(parcels))
		for _, p := range parcels {
			opts = append(opts, Option{Value: p.UUID(), Label: parcelLabel(p), Parent: farmapi.UUIDOf(p.InRegion)})
		}
		return opts, nil
	case Crops:
		crops, err := api.ListCrops(ctx)
		if err != nil {
			return nil, err
		}
		opts := make([]Option, 0, len(crops))
		for _, c := range crops {
			opts = append(opts, Option{Value: c.UUID(), Label: c.Name, Parent: c.ParcelID()})
		}
		return opts, nil
	case Farms:
		farms, err := api.ListFarms(ctx)
		if err != nil {
			return nil, err
		}
		opts := make([]Option, 0, len(farms))
		for _, f := range farms {
			opts = append(opts, Option{Value: f.UUID(), Label: f.Name})
		}
		return opts, nil
	case CropObservationTypes, ApiaryObservationTypes:
		return l.observationTypes(ctx, api, src)
	}
	return nil, nil
}

// observationTypes offers the catalog's types, followed by any observation
// activity types the service defines beyond the one they are filed under.
func (l *Loader) observationTypes(ctx context.Context, api API, src Source) ([]Option, error) {
	opts := l.offline(src)

	remote, err := api.ListActivityTypes(ctx, "observation", "")
	if err != nil {
		// The catalog alone is still a usable list.
		l.log.Warn("Failed to load observation activity types: %v", err)
		return opts, nil
	}
	known := make(map[string]bool, len(opts))
	for _, o := range opts {
		known[o.Label] = true
	}
	for _, at := range remote {
		if at.Name == "" || at.Name == activityNames[src] || known[at.Name] || at.UUID() == "" {
			continue
		}
		opts = append(opts, Option{Value: at.UUID(), Label: at.Name})
	}
	return opts, nil
}

func parcelLabel(p farmapi.Parcel) string {
	switch {
	case p.HasToponym != "":
		return p.HasToponym
	case p.Identifier != "":
		return p.Identifier
	}
	return p.UUID()
}
