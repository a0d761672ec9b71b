package submit

import (
	"context"
	"strings"

	"github.com/scibee/farmwiz/internal/catalog"
	"github.com/scibee/farmwiz/internal/farmapi"
)

// CropInput is the record of the crop-add wizard.
type CropInput struct {
	ParcelID    string `wizard:"parcelId"`
	SpeciesID   string `wizard:"speciesId"`
	GrowthStage string `wizard:"growthStage"`
	Description string `wizard:"description"`
}

// CropPayload builds a crop of species on the chosen parcel.
func CropPayload(in CropInput, species catalog.Species) farmapi.NewCrop {
	name := species.Variety
	if name == "" {
		name = species.Latin
	}
	var stage *string
	if s := optional(in.GrowthStage); s != nil {
		t := truncate(*s, 255)
		stage = &t
	}
	return farmapi.NewCrop{
		Status:        1,
		Name:          truncate(name, 100),
		Description:   optional(in.Description),
		HasAgriParcel: strings.TrimSpace(in.ParcelID),
		CropSpecies:   farmapi.Species{Name: species.Latin, Variety: species.Variety},
		GrowthStage:   stage,
	}
}

// Crop plants crops on parcels.
type Crop struct{ deps *Deps }

// NewCrop returns the crop submitter.
func NewCrop(d *Deps) Crop { return Crop{deps: d} }

func (c Crop) Submit(ctx context.Context, in CropInput) (farmapi.Created, error) {
	species, ok := c.deps.Catalog.Species(in.SpeciesID)
	if !ok {
		return farmapi.Created{}, userError("Unknown crop species. Please pick one from the list.", nil)
	}
	return c.deps.API.CreateCrop(ctx, CropPayload(in, species))
}
