package submit

import (
	"context"
	"strings"
	"time"

	"github.com/scibee/farmwiz/internal/catalog"
	"github.com/scibee/farmwiz/internal/farmapi"
)

// ObservationInput is the record of the crop-observe and apiary-observe
// wizards. CropID is empty for apiaries.
type ObservationInput struct {
	ParcelID         string `wizard:"parcelId"`
	ApiaryID         string `wizard:"apiaryId"`
	CropID           string `wizard:"cropId"`
	ObservationKey   string `wizard:"observationKey"`
	ObservationValue string `wizard:"observationValue"`
}

// ObservationPayload builds an observation. Keys that are not catalog
// types are activity type UUIDs offered by the service itself.
func ObservationPayload(in ObservationInput, types []catalog.ObservationType, activityType *string, now time.Time) farmapi.NewObservation {
	parcel := in.ParcelID
	if parcel == "" {
		parcel = in.ApiaryID
	}
	obs := farmapi.NewObservation{
		ActivityType:     activityType,
		HasResult:        farmapi.Result{HasValue: strings.TrimSpace(in.ObservationValue)},
		HasAgriParcel:    parcel,
		HasAgriCrop:      in.CropID,
		PhenomenonTime:   iso(now),
		ObservedProperty: in.ObservationKey,
	}
	if t, ok := catalog.FindObservation(types, in.ObservationKey); ok {
		obs.HasResult.Unit = optional(t.Unit)
	} else if id := farmapi.UUIDOf(in.ObservationKey); id != "" {
		obs.ActivityType = &id
	}
	return obs
}

// CropObservation records crop observations.
type CropObservation struct{ deps *Deps }

// NewCropObservation returns the crop observation submitter.
func NewCropObservation(d *Deps) CropObservation { return CropObservation{deps: d} }

func (s CropObservation) Submit(ctx context.Context, in ObservationInput) (farmapi.Created, error) {
	at := s.deps.activityType(ctx, "observation", "Crop Growth Stage Observation")
	payload := ObservationPayload(in, s.deps.Catalog.CropObservationTypes, at, s.deps.now())
	return s.deps.API.CreateCropObservation(ctx, payload)
}

// ApiaryObservation records apiary observations.
type ApiaryObservation struct{ deps *Deps }

// NewApiaryObservation returns the apiary observation submitter.
func NewApiaryObservation(d *Deps) ApiaryObservation { return ApiaryObservation{deps: d} }

func (s ApiaryObservation) Submit(ctx context.Context, in ObservationInput) (farmapi.Created, error) {
	in.CropID = ""
	at := s.deps.activityType(ctx, "observation", "Apiary Observation")
	payload := ObservationPayload(in, s.deps.Catalog.ApiaryObservationTypes, at, s.deps.now())
	return s.deps.API.CreateApiaryObservation(ctx, payload)
}
