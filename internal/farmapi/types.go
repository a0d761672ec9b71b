package farmapi

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var uuidPattern = regexp.MustCompile(`(?i)[0-9a-f-]{36}$`)

// UUIDOf extracts the trailing UUID of a resource reference: a bare id, an
// "@id" URL, or an object carrying either.
func UUIDOf(ref any) string {
	switch v := ref.(type) {
	case nil:
		return ""
	case string:
		return uuidPattern.FindString(strings.TrimRight(strings.TrimSpace(v), "/"))
	case map[string]any:
		for _, key := range []string{"id", "@id"} {
			if id := UUIDOf(v[key]); id != "" {
				return id
			}
		}
		return ""
	default:
		return UUIDOf(fmt.Sprint(v))
	}
}

// Ref holds the two identifier fields every resource carries.
type Ref struct {
	ID  string `json:"id"`
	IRI string `json:"@id"`
}

// UUID returns the resource's UUID from whichever identifier is set.
func (r Ref) UUID() string {
	if id := UUIDOf(r.ID); id != "" {
		return id
	}
	return UUIDOf(r.IRI)
}

// Location is the service's lat/long pair.
type Location struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}

// Geometry carries a WKT representation.
type Geometry struct {
	AsWKT string `json:"asWKT"`
}

// Farm as listed by /v1/Farm/.
type Farm struct {
	Ref
	Name          string `json:"name"`
	Description   string `json:"description"`
	Administrator string `json:"administrator"`
	Telephone     string `json:"telephone"`
}

// Parcel as listed by /v1/FarmParcels/. Fields, apiaries and beehives are
// all parcels, told apart by Category.
type Parcel struct {
	Ref
	Identifier  string      `json:"identifier"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Area        json.Number `json:"area"`
	HasToponym  string      `json:"hasToponym"`
	InRegion    any         `json:"inRegion"`
	Location    *Location   `json:"location"`
	Farm        any         `json:"farm"`
}

// Crop as listed by /v1/FarmCrops/.
type Crop struct {
	Ref
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	HasAgriParcel any     `json:"hasAgriParcel"`
	CropSpecies   Species `json:"cropSpecies"`
	GrowthStage   string  `json:"growth_stage"`
}

// ParcelID returns the UUID of the parcel the crop grows on.
func (c Crop) ParcelID() string {
	return UUIDOf(c.HasAgriParcel)
}

// Species names a crop species and variety.
type Species struct {
	Name    string `json:"name"`
	Variety string `json:"variety"`
}

// ActivityType as listed by /v1/FarmCalendarActivityTypes/.
type ActivityType struct {
	Ref
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// Parcel categories.
const (
	KindField   = "FIELD"
	KindApiary  = "APIARY"
	KindBeehive = "BEEHIVE"
)

// Account is a gatekeeper registration.
type Account struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Email       string `json:"email"`
	ServiceName string `json:"service_name"`
}

// NewFarm is the create payload of /v1/Farm/.
type NewFarm struct {
	Status        int           `json:"status"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Administrator string        `json:"administrator"`
	Telephone     string        `json:"telephone"`
	VatID         string        `json:"vatID"`
	ContactPerson ContactPerson `json:"contactPerson"`
	Address       Address       `json:"address"`
}

// ContactPerson of a farm.
type ContactPerson struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

// Address of a farm.
type Address struct {
	AdminUnitL1  string `json:"adminUnitL1"`
	AdminUnitL2  string `json:"adminUnitL2"`
	AddressArea  string `json:"addressArea"`
	Municipality string `json:"municipality"`
	Community    string `json:"community"`
	LocatorName  string `json:"locatorName"`
}

// NewParcel is the create payload of /v1/FarmParcels/.
type NewParcel struct {
	Status               int      `json:"status"`
	Identifier           string   `json:"identifier"`
	Description          *string  `json:"description"`
	ValidFrom            string   `json:"validFrom"`
	ValidTo              string   `json:"validTo"`
	Area                 string   `json:"area"`
	HasIrrigationFlow    *float64 `json:"hasIrrigationFlow"`
	Category             string   `json:"category"`
	InRegion             *string  `json:"inRegion"`
	HasToponym           *string  `json:"hasToponym"`
	IsNitroArea          bool     `json:"isNitroArea"`
	IsNatura2000Area     bool     `json:"isNatura2000Area"`
	IsPdopgArea          bool     `json:"isPdopgArea"`
	IsIrrigated          bool     `json:"isIrrigated"`
	IsCultivatedInLevels bool     `json:"isCultivatedInLevels"`
	IsGroundSlope        bool     `json:"isGroundSlope"`
	Depiction            *string  `json:"depiction"`
	HasGeometry          Geometry `json:"hasGeometry"`
	Location             Location `json:"location"`
	Farm                 string   `json:"farm"`
}

// NewCrop is the create payload of /v1/FarmCrops/.
type NewCrop struct {
	Status        int     `json:"status"`
	Name          string  `json:"name"`
	Description   *string `json:"description"`
	HasAgriParcel string  `json:"hasAgriParcel"`
	CropSpecies   Species `json:"cropSpecies"`
	GrowthStage   *string `json:"growth_stage"`
}

// Result is an observed value with its unit.
type Result struct {
	Unit     *string `json:"unit"`
	HasValue string  `json:"hasValue"`
}

// NewObservation is the create payload of the observation endpoints.
type NewObservation struct {
	ActivityType     *string `json:"activityType"`
	HasResult        Result  `json:"hasResult"`
	HasAgriParcel    string  `json:"hasAgriParcel"`
	HasAgriCrop      string  `json:"hasAgriCrop,omitempty"`
	PhenomenonTime   string  `json:"phenomenonTime"`
	ObservedProperty string  `json:"observedProperty"`
}

// NewActivity is the create payload of /v1/FarmCalendarActivities/.
type NewActivity struct {
	ActivityType     *string `json:"activityType"`
	Title            string  `json:"title"`
	Details          string  `json:"details"`
	HasStartDatetime string  `json:"hasStartDatetime"`
	HasEndDatetime   string  `json:"hasEndDatetime"`
	HasAgriParcel    string  `json:"hasAgriParcel,omitempty"`
	HasAgriCrop      string  `json:"hasAgriCrop,omitempty"`
}

// Created is the part of a create response farmwiz reads back.
type Created struct {
	Ref
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
}
