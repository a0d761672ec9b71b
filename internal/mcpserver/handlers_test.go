package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/scibee/farmwiz/internal/farmapi"
	"github.com/scibee/farmwiz/internal/flows"
	"github.com/scibee/farmwiz/internal/session"
	"github.com/scibee/farmwiz/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	owner    = "jane@example.com"
	parcelID = "b0000000-0000-4000-8000-000000000001"
)

type fakeAPI struct{}

func (fakeAPI) ListParcels(_ context.Context, kind string) ([]farmapi.Parcel, error) {
	if kind != farmapi.KindField {
		return nil, nil
	}
	return []farmapi.Parcel{{Ref: farmapi.Ref{ID: parcelID}, Identifier: "PAR-1"}}, nil
}

func (fakeAPI) ListCrops(context.Context) ([]farmapi.Crop, error) { return nil, nil }

func (fakeAPI) ListFarms(context.Context) ([]farmapi.Farm, error) { return nil, nil }

func (fakeAPI) ListActivityTypes(context.Context, string, string) ([]farmapi.ActivityType, error) {
	return nil, nil
}

type harness struct {
	srv   *Server
	store *wizard.Store
	got   []wizard.Record
	ids   []farmapi.Identity
	fail  error
}

func setupTestServer(t *testing.T) *harness {
	t.Helper()
	reg := flows.New()
	h := &harness{store: wizard.NewStore(wizard.NewMemoryBackend())}

	f, ok := reg.Get(flows.ParcelAdd)
	require.True(t, ok)
	f.Submitter = wizard.SubmitterFunc(func(ctx context.Context, rec wizard.Record) (any, error) {
		if h.fail != nil {
			return nil, h.fail
		}
		id, _ := farmapi.IdentityFrom(ctx)
		h.ids = append(h.ids, id)
		h.got = append(h.got, rec)
		return map[string]string{"id": "parcel-1"}, nil
	})

	h.srv = New(Options{Flows: reg, Store: h.store, API: fakeAPI{}})
	return h
}

func call(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	}
}

// extractText extracts text from CallToolResult.Content[0]
func extractText(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	if textContent, ok := result.Content[0].(mcp.TextContent); ok {
		return textContent.Text
	}
	return ""
}

func run(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), name string, args map[string]any) string {
	t.Helper()
	res, err := handler(context.Background(), call(name, args))
	require.NoError(t, err)
	return extractText(res)
}

func decode[T any](t *testing.T, text string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(text), &v), text)
	return v
}

func parcelArgs(extra map[string]any) map[string]any {
	args := map[string]any{"flow": flows.ParcelAdd, "owner": owner}
	for k, v := range extra {
		args[k] = v
	}
	return args
}

func (h *harness) fillParcel(t *testing.T) {
	t.Helper()
	st := decode[stateView](t, run(t, h.srv.handleNext, "wizard-next", parcelArgs(map[string]any{
		"step":   "location",
		"fields": map[string]any{"location": map[string]any{"lat": 46.05, "lng": 14.5}},
	})))
	require.Equal(t, "size", st.Step)

	st = decode[stateView](t, run(t, h.srv.handleNext, "wizard-next", parcelArgs(map[string]any{
		"step":   "size",
		"fields": map[string]any{"sizeHa": "2,5"},
	})))
	require.Equal(t, "confirm", st.Step)
	require.True(t, st.Terminal)
	require.Empty(t, st.Missing)
}

func TestHandleList(t *testing.T) {
	h := setupTestServer(t)

	views := decode[[]flowView](t, run(t, h.srv.handleList, "wizard-list", nil))

	require.Len(t, views, 15)
	var parcel flowView
	for _, v := range views {
		if v.Key == flows.ParcelAdd {
			parcel = v
		}
	}
	routes := make([]string, 0, len(parcel.Steps))
	for _, s := range parcel.Steps {
		routes = append(routes, s.Route)
	}
	if diff := cmp.Diff([]string{"location", "size", "confirm"}, routes); diff != "" {
		t.Errorf("parcel-add steps (-want +got):\n%s", diff)
	}
}

func TestHandleState_Fresh(t *testing.T) {
	h := setupTestServer(t)

	st := decode[stateView](t, run(t, h.srv.handleState, "wizard-state", parcelArgs(nil)))

	assert.Equal(t, "location", st.Step)
	assert.Equal(t, 1, st.Position)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, []string{"location", "sizeHa"}, st.Missing)
	require.Len(t, st.Fields, 1)
	assert.Equal(t, wizard.KindLocation, st.Fields[0].Kind)
}

func TestHandleNext_HappyPath(t *testing.T) {
	h := setupTestServer(t)
	session.SignIn(context.Background(), h.store, owner, farmapi.Identity{Email: owner, Token: "tok"})

	h.fillParcel(t)

	// The state tool resumes at the confirm step.
	st := decode[stateView](t, run(t, h.srv.handleState, "wizard-state", parcelArgs(nil)))
	assert.Equal(t, "confirm", st.Step)

	out := decode[submitView](t, run(t, h.srv.handleNext, "wizard-next", parcelArgs(map[string]any{"step": "confirm"})))
	assert.True(t, out.Submitted)
	assert.Equal(t, "/parcels", out.Destination)

	require.Len(t, h.got, 1)
	if diff := cmp.Diff(wizard.Record{
		"location": map[string]any{"lat": 46.05, "lng": 14.5},
		"sizeHa":   2.5,
	}, h.got[0]); diff != "" {
		t.Errorf("submitted record (-want +got):\n%s", diff)
	}
	assert.Equal(t, "tok", h.ids[0].Token, "the owner's login reaches the submitter")
	assert.Empty(t, h.store.Load(context.Background(), session.Key(owner, flows.ParcelAdd)))
}

func TestHandleNext_DeepLinkToConfirm(t *testing.T) {
	h := setupTestServer(t)

	text := run(t, h.srv.handleNext, "wizard-next", parcelArgs(map[string]any{"step": "confirm"}))

	assert.Equal(t, `error: step "confirm" is not available; continue at "location"`, text)
	assert.Empty(t, h.got)
}

func TestHandleNext_FieldErrors(t *testing.T) {
	h := setupTestServer(t)
	run(t, h.srv.handleNext, "wizard-next", parcelArgs(map[string]any{
		"step":   "location",
		"fields": map[string]any{"location": map[string]any{"lat": 46.05, "lng": 14.5}},
	}))

	text := run(t, h.srv.handleNext, "wizard-next", parcelArgs(map[string]any{
		"step":   "size",
		"fields": map[string]any{"sizeHa": -1},
	}))

	assert.Equal(t, "error: invalid input: sizeHa: must be greater than 0", text)
	rec := h.store.Load(context.Background(), session.Key(owner, flows.ParcelAdd))
	assert.False(t, rec.Present("sizeHa"))
}

func TestHandleSubmit_FailureKeepsRecord(t *testing.T) {
	h := setupTestServer(t)
	h.fillParcel(t)
	key := session.Key(owner, flows.ParcelAdd)
	before := h.store.Load(context.Background(), key)

	h.fail = &wizard.SubmitError{Message: "Failed to create parcel (500)", Err: errors.New("500")}
	text := run(t, h.srv.handleSubmit, "wizard-submit", parcelArgs(nil))

	assert.Equal(t, "error: Failed to create parcel (500)", text)
	assert.Equal(t, before, h.store.Load(context.Background(), key))
	assert.False(t, h.srv.inflight.Busy(key))

	h.fail = nil
	out := decode[submitView](t, run(t, h.srv.handleSubmit, "wizard-submit", parcelArgs(nil)))
	assert.True(t, out.Submitted)
}

func TestHandleSubmit_Incomplete(t *testing.T) {
	h := setupTestServer(t)

	text := run(t, h.srv.handleSubmit, "wizard-submit", parcelArgs(nil))

	assert.Equal(t, `error: the wizard is incomplete; continue at "location"`, text)
}

func TestHandleBack(t *testing.T) {
	h := setupTestServer(t)
	h.fillParcel(t)

	st := decode[stateView](t, run(t, h.srv.handleBack, "wizard-back", parcelArgs(map[string]any{"step": "confirm"})))
	assert.Equal(t, "size", st.Step)
	assert.Equal(t, 2.5, st.Record["sizeHa"], "going back keeps the record")

	text := run(t, h.srv.handleBack, "wizard-back", parcelArgs(map[string]any{"step": "location"}))
	assert.Equal(t, "Left the parcel-add wizard. The record is kept.", text)

	text = run(t, h.srv.handleBack, "wizard-back", parcelArgs(map[string]any{"step": "nowhere"}))
	assert.Equal(t, `error: unknown step "nowhere"`, text)
}

func TestHandleReset(t *testing.T) {
	h := setupTestServer(t)
	h.fillParcel(t)

	text := run(t, h.srv.handleReset, "wizard-reset", parcelArgs(nil))

	assert.Equal(t, `Reset parcel-add. Start again at "location".`, text)
	assert.Empty(t, h.store.Load(context.Background(), session.Key(owner, flows.ParcelAdd)))
}

func TestHandleSubmit_SearchReportsSelection(t *testing.T) {
	h := setupTestServer(t)

	out := decode[submitView](t, run(t, h.srv.handleNext, "wizard-next", map[string]any{
		"flow":   flows.ParcelSearch,
		"owner":  owner,
		"step":   "select",
		"fields": map[string]any{flows.SelectedKey: parcelID},
	}))

	assert.True(t, out.Submitted)
	assert.Equal(t, map[string]any{"selected": parcelID}, out.Result)
}

func TestHandleNext_UnknownChoiceRejected(t *testing.T) {
	h := setupTestServer(t)

	text := run(t, h.srv.handleNext, "wizard-next", map[string]any{
		"flow":   flows.ParcelSearch,
		"owner":  owner,
		"step":   "select",
		"fields": map[string]any{flows.SelectedKey: "b0000000-0000-4000-8000-00000000dead"},
	})

	assert.Equal(t, "error: invalid input: selectedId: is not one of the options", text)
	rec := h.store.Load(context.Background(), session.Key(owner, flows.ParcelSearch))
	assert.False(t, rec.Present(flows.SelectedKey))
}

func TestTargetErrors(t *testing.T) {
	h := setupTestServer(t)

	assert.Equal(t, "error: missing 'flow' parameter", run(t, h.srv.handleState, "wizard-state", map[string]any{"owner": owner}))
	assert.Equal(t, `error: unknown wizard "hay-add"`, run(t, h.srv.handleState, "wizard-state", map[string]any{"flow": "hay-add", "owner": owner}))
	assert.Equal(t, "error: missing 'owner' parameter", run(t, h.srv.handleState, "wizard-state", map[string]any{"flow": flows.ParcelAdd}))
	assert.Equal(t, "error: missing 'step' parameter", run(t, h.srv.handleNext, "wizard-next", parcelArgs(nil)))
}

func TestMaskRecord(t *testing.T) {
	f, _ := flows.New().Get(flows.Registration)
	rec := wizard.Record{"email": owner, "password": "secret", "accessCode": "1234"}

	got := maskRecord(f, rec)

	assert.Equal(t, masked, got["password"])
	assert.Equal(t, masked, got["accessCode"])
	assert.Equal(t, owner, got["email"])
	assert.Equal(t, "secret", rec["password"], "the stored record is untouched")
}

func TestFormValues(t *testing.T) {
	got := formValues(map[string]any{
		"location": map[string]any{"lat": 46.05, "lng": 14.5},
		"sizeHa":   2.5,
		"frames":   "10",
		"note":     nil,
	})

	want := map[string]string{
		"location.lat": "46.05",
		"location.lng": "14.5",
		"sizeHa":       "2.5",
		"frames":       "10",
		"note":         "",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("form values (-want +got):\n%s", diff)
	}
	assert.Empty(t, formValues(nil))
}
