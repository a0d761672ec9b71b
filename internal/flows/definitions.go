package flows

import (
	"regexp"

	"github.com/scibee/farmwiz/internal/preload"
	"github.com/scibee/farmwiz/internal/wizard"
)

// Flow keys.
const (
	ParcelAdd     = "parcel-add"
	ApiaryAdd     = "apiary-add"
	BeehiveAdd    = "beehive-add"
	CropAdd       = "crop-add"
	FarmAdd       = "farm-add"
	Registration  = "registration"
	CropObserve   = "crop-observe"
	ApiaryObserve = "apiary-observe"
	CropManage    = "crop-manage"
	ApiaryManage  = "apiary-manage"
	BeehiveManage = "beehive-manage"
	ParcelSearch  = "parcel-search"
	CropSearch    = "crop-search"
	ApiarySearch  = "apiary-search"
	BeehiveSearch = "beehive-search"
)

// SelectedKey is the record key search flows store their selection under.
const SelectedKey = "selectedId"

const confirm = "confirm"

var houseNumberPattern = regexp.MustCompile(`^[0-9]+[A-Za-z]?(/[0-9A-Za-z]+)?$`)

func choice(key, label string, source preload.Source) wizard.Field {
	return wizard.Field{Key: key, Label: label, Kind: wizard.KindChoice, Source: string(source)}
}

func text(key, label string, maxLen int) wizard.Field {
	return wizard.Field{Key: key, Label: label, Kind: wizard.KindText, MaxLen: maxLen}
}

func note(key, label string) wizard.Field {
	return wizard.Field{Key: key, Label: label, Kind: wizard.KindNote, Optional: true, MaxLen: 2000}
}

func location(key, label string) wizard.Field {
	return wizard.Field{Key: key, Label: label, Kind: wizard.KindLocation, Hint: "Pick the point on the map."}
}

// confirmStep requires everything the earlier steps produce except the
// listed optional keys.
func confirmStep(steps []wizard.Step) wizard.Step {
	var requires []string
	for _, s := range steps {
		for _, f := range s.Fields {
			if !f.Optional {
				requires = append(requires, f.Key)
			}
		}
	}
	return wizard.Step{Route: confirm, Title: "Confirm", Requires: requires}
}

// chain sets each step's requirements to the required keys of the steps
// before it and appends the confirm step.
func chain(steps ...wizard.Step) []wizard.Step {
	var before []string
	for i := range steps {
		steps[i].Requires = append([]string(nil), before...)
		for _, f := range steps[i].Fields {
			if !f.Optional {
				before = append(before, f.Key)
			}
		}
	}
	return append(steps, confirmStep(steps))
}

// onConfirm asks for fields on the confirm step. Password fields live there
// so they go straight to the submitter without being stored.
func onConfirm(steps []wizard.Step, fields ...wizard.Field) []wizard.Step {
	steps[len(steps)-1].Fields = fields
	return steps
}

func search(key, title, base, destination, label string, source preload.Source) *wizard.Flow {
	return &wizard.Flow{
		Key:         key,
		Title:       title,
		Base:        base,
		Destination: destination,
		Completion:  wizard.KeepRecord,
		Steps: []wizard.Step{{
			Route:  "select",
			Title:  label,
			Fields: []wizard.Field{choice(SelectedKey, label, source)},
		}},
	}
}

func definitions() []*wizard.Flow {
	return []*wizard.Flow{
		{
			Key: ParcelAdd, Title: "Add parcel", Base: "/parcels/add", Destination: "/parcels",
			Steps: chain(
				wizard.Step{Route: "location", Title: "Location", Fields: []wizard.Field{
					location("location", "Parcel location"),
				}},
				wizard.Step{Route: "size", Title: "Size", Fields: []wizard.Field{
					{Key: "sizeHa", Label: "Size (ha)", Kind: wizard.KindNumber, Positive: true, Placeholder: "2.5"},
					note("description", "Description"),
				}},
			),
		},
		{
			Key: ApiaryAdd, Title: "Add apiary", Base: "/apiary/add", Destination: "/apiary",
			Steps: chain(
				wizard.Step{Route: "location", Title: "Location", Fields: []wizard.Field{
					location("location", "Apiary location"),
				}},
				wizard.Step{Route: "details", Title: "Details", Fields: []wizard.Field{
					text("name", "Name", 100),
					note("description", "Description"),
				}},
			),
		},
		{
			Key: BeehiveAdd, Title: "Add beehive", Base: "/beehives/add", Destination: "/beehives",
			Steps: chain(
				wizard.Step{Route: "apiary", Title: "Apiary", Fields: []wizard.Field{
					choice("apiaryId", "Apiary", preload.Apiaries),
				}},
				wizard.Step{Route: "details", Title: "Details", Fields: []wizard.Field{
					text("code", "Hive code", 50),
					choice("model", "Model", preload.BeehiveModels),
					{Key: "frames", Label: "Frames", Kind: wizard.KindInteger, Positive: true, Optional: true},
					note("notes", "Notes"),
				}},
			),
		},
		{
			Key: CropAdd, Title: "Add crop", Base: "/crops/add", Destination: "/dashboard",
			Steps: chain(
				wizard.Step{Route: "parcel", Title: "Parcel", Fields: []wizard.Field{
					choice("parcelId", "Parcel", preload.Parcels),
				}},
				wizard.Step{Route: "crop", Title: "Crop", Fields: []wizard.Field{
					choice("speciesId", "Species", preload.CropSpecies),
					{Key: "growthStage", Label: "Growth stage", Kind: wizard.KindText, Optional: true, MaxLen: 255},
				}},
			),
		},
		{
			Key: FarmAdd, Title: "Add farm", Base: "/farms/add", Destination: "/farms",
			Steps: chain(
				wizard.Step{Route: "name", Title: "Owner", Fields: []wizard.Field{
					text("firstName", "First name", 50),
					text("lastName", "Last name", 50),
				}},
				wizard.Step{Route: "contact", Title: "Contact", Fields: []wizard.Field{
					{Key: "email", Label: "Email", Kind: wizard.KindEmail},
					{Key: "phone", Label: "Phone", Kind: wizard.KindPhone, Optional: true},
				}},
				wizard.Step{Route: "address", Title: "Address", Fields: addressFields()},
			),
		},
		{
			Key: Registration, Title: "Create account", Base: "/register", Destination: "/dashboard",
			Steps: onConfirm(chain(
				single("first-name", "First name", text("firstName", "First name", 50)),
				single("last-name", "Last name", text("lastName", "Last name", 50)),
				single("email", "Email", wizard.Field{Key: "email", Label: "Email", Kind: wizard.KindEmail}),
				single("phone", "Phone", wizard.Field{Key: "phone", Label: "Phone", Kind: wizard.KindPhone, Optional: true}),
				single("country", "Country", text("country", "Country", 60)),
				single("city", "City", text("city", "City", 60)),
				single("street", "Street", text("street", "Street", 100)),
				single("house-number", "House number", wizard.Field{
					Key: "houseNumber", Label: "House number", Kind: wizard.KindText, Pattern: houseNumberPattern, MaxLen: 10,
				}),
			),
				wizard.Field{Key: "password", Label: "Password", Kind: wizard.KindPassword, MinLen: 6},
				wizard.Field{Key: "accessCode", Label: "Access code", Kind: wizard.KindPassword, MinLen: 1},
			),
		},
		{
			Key: CropObserve, Title: "Observe crop", Base: "/crops/observe", Destination: "/dashboard",
			Steps: chain(
				single("parcel", "Parcel", choice("parcelId", "Parcel", preload.Parcels)),
				single("crop", "Crop", choice("cropId", "Crop", preload.Crops)),
				single("type", "Observation", choice("observationKey", "Observation", preload.CropObservationTypes)),
				single("value", "Value", text("observationValue", "Value", 255)),
			),
		},
		{
			Key: ApiaryObserve, Title: "Observe apiary", Base: "/apiary/observe", Destination: "/apiary",
			Steps: chain(
				single("apiary", "Apiary", choice("apiaryId", "Apiary", preload.Apiaries)),
				single("type", "Observation", choice("observationKey", "Observation", preload.ApiaryObservationTypes)),
				single("value", "Value", text("observationValue", "Value", 255)),
			),
		},
		{
			Key: CropManage, Title: "Manage crop", Base: "/crops/manage", Destination: "/dashboard",
			Steps: chain(
				single("crop", "Crop", choice("cropId", "Crop", preload.Crops)),
				wizard.Step{Route: "action", Title: "Action", Fields: []wizard.Field{
					choice("actionKey", "Action", preload.CropActions),
					note("notes", "Notes"),
				}},
			),
		},
		{
			Key: ApiaryManage, Title: "Manage apiary", Base: "/apiary/manage", Destination: "/apiary",
			Steps: chain(
				single("apiary", "Apiary", choice("apiaryId", "Apiary", preload.Apiaries)),
				single("action", "Action", choice("actionKey", "Action", preload.ApiaryActions)),
				single("value", "Value", text("value", "Value", 100)),
			),
		},
		{
			Key: BeehiveManage, Title: "Manage beehive", Base: "/beehives/manage", Destination: "/beehives",
			Steps: chain(
				single("beehive", "Beehive", choice("beehiveId", "Beehive", preload.Beehives)),
				single("action", "Action", choice("actionKey", "Action", preload.BeehiveActions)),
				single("value", "Value", text("value", "Value", 100)),
			),
		},
		search(ParcelSearch, "Find parcel", "/parcels/search", "/parcels", "Parcel", preload.Parcels),
		search(CropSearch, "Find crop", "/crops/search", "/crops", "Crop", preload.Crops),
		search(ApiarySearch, "Find apiary", "/apiary/search", "/apiary", "Apiary", preload.Apiaries),
		search(BeehiveSearch, "Find beehive", "/beehives/search", "/beehives", "Beehive", preload.Beehives),
	}
}

func single(route, title string, f wizard.Field) wizard.Step {
	return wizard.Step{Route: route, Title: title, Fields: []wizard.Field{f}}
}

func addressFields() []wizard.Field {
	return []wizard.Field{
		text("country", "Country", 60),
		text("city", "City", 60),
		text("street", "Street", 100),
		{Key: "houseNumber", Label: "House number", Kind: wizard.KindText, Pattern: houseNumberPattern, MaxLen: 10},
	}
}
