// Package catalog holds the static option lists farmwiz ships with: crop
// species, manage actions, observation types and beehive models.
package catalog

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yml
var data []byte

// Species is a crop species with its display variety.
type Species struct {
	ID      string `yaml:"id"`
	Latin   string `yaml:"latin"`
	Variety string `yaml:"variety"`
}

// Label renders the species as "Variety (Latin)".
func (s Species) Label() string {
	if s.Variety == "" {
		return s.Latin
	}
	return fmt.Sprintf("%s (%s)", s.Variety, s.Latin)
}

// Action is a manage action. ValueLabel and Unit describe the value the
// action records, if any.
type Action struct {
	Key        string `yaml:"key"`
	Label      string `yaml:"label"`
	ValueLabel string `yaml:"value_label"`
	Unit       string `yaml:"unit"`
}

// ObservationType is something a user can observe and measure.
type ObservationType struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
	Unit  string `yaml:"unit"`
}

// Catalog is the parsed option data.
type Catalog struct {
	CropSpecies            []Species         `yaml:"crop_species"`
	CropActions            []Action          `yaml:"crop_actions"`
	CropObservationTypes   []ObservationType `yaml:"crop_observation_types"`
	ApiaryObservationTypes []ObservationType `yaml:"apiary_observation_types"`
	ApiaryActions          []Action          `yaml:"apiary_actions"`
	BeehiveActions         []Action          `yaml:"beehive_actions"`
	BeehiveModels          []string          `yaml:"beehive_models"`
}

// Parse decodes catalog YAML.
func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return &c, nil
}

var (
	once     sync.Once
	builtin  *Catalog
	parseErr error
)

// Default returns the embedded catalog. It panics if the embedded data is
// malformed, which the package tests rule out.
func Default() *Catalog {
	once.Do(func() {
		builtin, parseErr = Parse(data)
	})
	if parseErr != nil {
		panic(parseErr)
	}
	return builtin
}

// Species looks up a crop species by id.
func (c *Catalog) Species(id string) (Species, bool) {
	for _, s := range c.CropSpecies {
		if s.ID == id {
			return s, true
		}
	}
	return Species{}, false
}

// FindAction looks up an action by key.
func FindAction(actions []Action, key string) (Action, bool) {
	for _, a := range actions {
		if a.Key == key {
			return a, true
		}
	}
	return Action{}, false
}

// FindObservation looks up an observation type by key.
func FindObservation(types []ObservationType, key string) (ObservationType, bool) {
	for _, o := range types {
		if o.Key == key {
			return o, true
		}
	}
	return ObservationType{}, false
}
