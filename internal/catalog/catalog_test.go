package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Parses(t *testing.T) {
	c := Default()
	assert.NotEmpty(t, c.CropSpecies)
	assert.NotEmpty(t, c.CropActions)
	assert.NotEmpty(t, c.CropObservationTypes)
	assert.NotEmpty(t, c.ApiaryObservationTypes)
	assert.NotEmpty(t, c.ApiaryActions)
	assert.NotEmpty(t, c.BeehiveActions)
	assert.Contains(t, c.BeehiveModels, "Langstroth")
}

func TestDefault_KeysAreUnique(t *testing.T) {
	c := Default()
	seen := map[string]bool{}
	for _, s := range c.CropSpecies {
		require.False(t, seen[s.ID], "duplicate species %s", s.ID)
		seen[s.ID] = true
		assert.NotEmpty(t, s.Latin, s.ID)
	}
	for name, actions := range map[string][]Action{
		"crop": c.CropActions, "apiary": c.ApiaryActions, "beehive": c.BeehiveActions,
	} {
		keys := map[string]bool{}
		for _, a := range actions {
			require.False(t, keys[a.Key], "duplicate %s action %s", name, a.Key)
			keys[a.Key] = true
			assert.NotEmpty(t, a.Label)
		}
	}
}

func TestLookups(t *testing.T) {
	c := Default()

	s, ok := c.Species("wheat")
	require.True(t, ok)
	assert.Equal(t, "Wheat (Triticum aestivum)", s.Label())
	_, ok = c.Species("kale")
	assert.False(t, ok)

	a, ok := FindAction(c.ApiaryActions, "HONEY_HARVEST")
	require.True(t, ok)
	assert.Equal(t, "kg", a.Unit)

	o, ok := FindObservation(c.CropObservationTypes, "plant_height")
	require.True(t, ok)
	assert.Equal(t, "cm", o.Unit)
	_, ok = FindObservation(c.CropObservationTypes, "nope")
	assert.False(t, ok)
}

func TestParse_Rejects(t *testing.T) {
	_, err := Parse([]byte("crop_species: {"))
	assert.Error(t, err)
}

func TestSpecies_LabelWithoutVariety(t *testing.T) {
	assert.Equal(t, "Zea mays", Species{Latin: "Zea mays"}.Label())
}
