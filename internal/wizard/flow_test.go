package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlow_Validate(t *testing.T) {
	require.NoError(t, parcelFlow().Validate())

	tests := []struct {
		name    string
		mutate  func(f *Flow)
		wantErr string
	}{
		{"no key", func(f *Flow) { f.Key = "" }, "flow key is required"},
		{"no steps", func(f *Flow) { f.Steps = nil }, "no steps"},
		{"duplicate route", func(f *Flow) { f.Steps[1].Route = "location" }, "duplicate step route"},
		{"nested route", func(f *Flow) { f.Steps[1].Route = "size/more" }, "invalid step route"},
		{"requirement not produced earlier", func(f *Flow) { f.Steps[1].Requires = []string{"sizeHa"} }, `requires "sizeHa"`},
		{"first step with requirements", func(f *Flow) { f.Steps[0].Requires = []string{"x"} }, "cannot have requirements"},
		{"fallback to later step", func(f *Flow) { f.Steps[1].Fallback = "confirm" }, "not an earlier step"},
		{"password before terminal step", func(f *Flow) {
			f.Steps[1].Fields = append(f.Steps[1].Fields, Field{Key: "pin", Kind: KindPassword})
		}, `password field "pin" must be on the terminal step`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := parcelFlow()
			tt.mutate(f)
			err := f.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFlow_SecretAndReview(t *testing.T) {
	f := parcelFlow()
	f.Steps[2].Fields = []Field{{Key: "pin", Kind: KindPassword}}
	require.NoError(t, f.Validate())

	assert.True(t, f.Secret("pin"))
	assert.False(t, f.Secret("sizeHa"))
	assert.False(t, f.Secret("unknown"))

	assert.True(t, f.IsReview("confirm"))
	assert.False(t, f.IsReview("size"))
	single := &Flow{Key: "pick", Steps: []Step{{Route: "select"}}}
	assert.False(t, single.IsReview("select"), "a one-step flow has nothing to review")
}

func TestFlow_Resolve(t *testing.T) {
	f := parcelFlow()

	step, ok := f.Resolve("size")
	assert.True(t, ok)
	assert.Equal(t, "size", step.Route)

	for _, segment := range []string{"", "/", "unknown", "confirm/extra"} {
		step, ok := f.Resolve(segment)
		assert.False(t, ok, segment)
		assert.Equal(t, "location", step.Route, segment)
	}
}

func TestFlow_TransitionTable(t *testing.T) {
	f := parcelFlow()

	tests := []struct {
		from  string
		event Event
		to    string
	}{
		{"location", EventNext, "size"},
		{"size", EventNext, "confirm"},
		{"location", EventBack, Exit},
		{"confirm", EventBack, "size"},
		{"confirm", EventSubmitted, Exit},
		{"confirm", EventFailed, "confirm"},
		{"size", EventReset, "location"},
	}
	for _, tt := range tests {
		to, ok := f.Target(tt.from, tt.event)
		require.True(t, ok, "%s on %s", tt.event, tt.from)
		assert.Equal(t, tt.to, to, "%s on %s", tt.event, tt.from)
	}

	_, ok := f.Target("confirm", EventNext)
	assert.False(t, ok, "the confirm step has no next transition")
	_, ok = f.Target("location", EventSubmitted)
	assert.False(t, ok, "only the confirm step submits")
}

func TestFlow_PathAndPosition(t *testing.T) {
	f := parcelFlow()
	assert.Equal(t, "/parcels/add/size", f.Path("size"))
	assert.Equal(t, 3, f.Position("confirm"))
	assert.Equal(t, 0, f.Position("nope"))
	assert.True(t, f.IsTerminal("confirm"))
	assert.False(t, f.IsTerminal("size"))
	assert.Equal(t, []string{"sizeHa"}, f.Steps[1].Outputs())
}

func TestFlow_Resume(t *testing.T) {
	f := parcelFlow()

	assert.Equal(t, "location", f.Resume(Record{}).Route)
	assert.Equal(t, "size", f.Resume(Record{"location": map[string]any{"lat": 1.0, "lng": 2.0}}).Route)
	assert.Equal(t, "confirm", f.Resume(Record{
		"location": map[string]any{"lat": 1.0, "lng": 2.0},
		"sizeHa":   3.0,
	}).Route)
}

func TestLocalRouter(t *testing.T) {
	r := NewLocalRouter("location")
	r.Navigate("size", false)
	assert.Equal(t, "size", r.Current())
	assert.False(t, r.Done())

	r.Navigate("/parcels", false)
	assert.Equal(t, "size", r.Current(), "leaving keeps the last step")
	assert.Equal(t, "/parcels", r.Exit)
	assert.True(t, r.Done())

	r = NewLocalRouter("location")
	r.Back()
	assert.True(t, r.Left)
	assert.True(t, r.Done())
}
