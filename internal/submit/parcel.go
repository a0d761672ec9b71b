package submit

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/scibee/farmwiz/internal/farmapi"
)

const openEnded = "9999-12-31T00:00:00Z"

// Point is a picked map location.
type Point struct {
	Lat float64 `wizard:"lat"`
	Lng float64 `wizard:"lng"`
}

// ParcelInput is the record of the parcel-add wizard.
type ParcelInput struct {
	Location    Point   `wizard:"location"`
	SizeHa      float64 `wizard:"sizeHa"`
	Description string  `wizard:"description"`
}

// ParcelPayload builds a FIELD parcel.
func ParcelPayload(in ParcelInput, farmID string, now time.Time, suffix string) farmapi.NewParcel {
	return farmapi.NewParcel{
		Status:      1,
		Identifier:  "PAR-" + now.UTC().Format("2006-01-02") + "-" + suffix,
		Description: optional(in.Description),
		ValidFrom:   iso(now),
		ValidTo:     openEnded,
		Area:        twoDecimals(in.SizeHa),
		Category:    farmapi.KindField,
		HasGeometry: farmapi.Geometry{AsWKT: wktPoint(in.Location.Lng, in.Location.Lat)},
		Location:    farmapi.Location{Lat: in.Location.Lat, Long: in.Location.Lng},
		Farm:        farmID,
	}
}

// Parcel creates field parcels.
type Parcel struct{ deps *Deps }

// NewParcel returns the parcel submitter.
func NewParcel(d *Deps) Parcel { return Parcel{deps: d} }

func (p Parcel) Submit(ctx context.Context, in ParcelInput) (farmapi.Created, error) {
	if in.SizeHa <= 0 {
		return farmapi.Created{}, userError("Invalid area: size must be greater than 0.", nil)
	}
	farmID, err := p.deps.resolveFarm(ctx)
	if err != nil {
		return farmapi.Created{}, err
	}
	payload := ParcelPayload(in, farmID, p.deps.now(), p.deps.Suffix())
	return p.deps.API.CreateParcel(ctx, "create parcel", payload)
}

// ApiaryInput is the record of the apiary-add wizard.
type ApiaryInput struct {
	Location    Point  `wizard:"location"`
	Name        string `wizard:"name"`
	Description string `wizard:"description"`
}

// ApiaryPayload builds an APIARY parcel named after the apiary.
func ApiaryPayload(in ApiaryInput, farmID string, now time.Time) farmapi.NewParcel {
	name := strings.TrimSpace(in.Name)
	return farmapi.NewParcel{
		Status:      1,
		Identifier:  "APIARY-" + slug.Make(name),
		Description: optional(in.Description),
		ValidFrom:   iso(now),
		ValidTo:     openEnded,
		Area:        twoDecimals(0),
		Category:    farmapi.KindApiary,
		HasToponym:  optional(name),
		HasGeometry: farmapi.Geometry{AsWKT: wktPoint(in.Location.Lng, in.Location.Lat)},
		Location:    farmapi.Location{Lat: in.Location.Lat, Long: in.Location.Lng},
		Farm:        farmID,
	}
}

// Apiary creates apiaries.
type Apiary struct{ deps *Deps }

// NewApiary returns the apiary submitter.
func NewApiary(d *Deps) Apiary { return Apiary{deps: d} }

func (a Apiary) Submit(ctx context.Context, in ApiaryInput) (farmapi.Created, error) {
	farmID, err := a.deps.resolveFarm(ctx)
	if err != nil {
		return farmapi.Created{}, err
	}
	return a.deps.API.CreateParcel(ctx, "create apiary", ApiaryPayload(in, farmID, a.deps.now()))
}

// BeehiveInput is the record of the beehive-add wizard.
type BeehiveInput struct {
	ApiaryID string  `wizard:"apiaryId"`
	Code     string  `wizard:"code"`
	Model    string  `wizard:"model"`
	Frames   float64 `wizard:"frames"`
	Notes    string  `wizard:"notes"`
}

// BeehiveDescription summarizes model, frame count and notes.
func BeehiveDescription(in BeehiveInput) string {
	var parts []string
	if m := strings.TrimSpace(in.Model); m != "" {
		parts = append(parts, "Model: "+m)
	}
	if in.Frames > 0 {
		parts = append(parts, "Frames: "+formatFloat(in.Frames))
	}
	if n := strings.TrimSpace(in.Notes); n != "" {
		parts = append(parts, n)
	}
	return strings.Join(parts, ". ")
}

// BeehivePayload builds a BEEHIVE parcel placed next to its apiary. offset
// moves the point by less than a metre so hives do not overlap on a map.
func BeehivePayload(in BeehiveInput, apiary farmapi.Parcel, farmID string, now time.Time, offset func() float64) farmapi.NewParcel {
	lat := round14(apiary.Location.Lat + offset())
	lng := round14(apiary.Location.Long + offset())
	region := in.ApiaryID
	return farmapi.NewParcel{
		Status:      1,
		Identifier:  strings.TrimSpace(in.Code),
		Description: optional(BeehiveDescription(in)),
		ValidFrom:   iso(now),
		ValidTo:     iso(now.AddDate(10, 0, 0)),
		Area:        twoDecimals(0),
		Category:    farmapi.KindBeehive,
		InRegion:    &region,
		HasGeometry: farmapi.Geometry{AsWKT: wktPoint(lng, lat)},
		Location:    farmapi.Location{Lat: lat, Long: lng},
		Farm:        farmID,
	}
}

func round14(f float64) float64 {
	const p = 1e14
	return math.Round(f*p) / p
}

// Beehive creates beehives inside an apiary.
type Beehive struct{ deps *Deps }

// NewBeehive returns the beehive submitter.
func NewBeehive(d *Deps) Beehive { return Beehive{deps: d} }

func (b Beehive) Submit(ctx context.Context, in BeehiveInput) (farmapi.Created, error) {
	apiary, err := b.deps.API.GetParcel(ctx, in.ApiaryID)
	if err != nil {
		return farmapi.Created{}, err
	}
	if apiary.Location == nil {
		return farmapi.Created{}, userError("The selected apiary has no location.", nil)
	}
	farmID := farmapi.UUIDOf(apiary.Farm)
	if farmID == "" {
		if farmID, err = b.deps.resolveFarm(ctx); err != nil {
			return farmapi.Created{}, err
		}
	}
	payload := BeehivePayload(in, apiary, farmID, b.deps.now(), b.deps.Jitter)
	return b.deps.API.CreateParcel(ctx, "create beehive", payload)
}
