package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/scibee/farmwiz/internal/catalog"
	"github.com/scibee/farmwiz/internal/farmapi"
	"github.com/scibee/farmwiz/internal/flows"
	"github.com/scibee/farmwiz/internal/journal"
	"github.com/scibee/farmwiz/internal/preload"
	"github.com/scibee/farmwiz/internal/session"
	"github.com/scibee/farmwiz/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	parcels map[string][]farmapi.Parcel
}

func (f *fakeAPI) ListParcels(_ context.Context, kind string) ([]farmapi.Parcel, error) {
	return f.parcels[kind], nil
}

func (f *fakeAPI) ListCrops(context.Context) ([]farmapi.Crop, error) { return nil, nil }

func (f *fakeAPI) ListFarms(context.Context) ([]farmapi.Farm, error) {
	return nil, errors.New("farm service down")
}

func (f *fakeAPI) ListActivityTypes(context.Context, string, string) ([]farmapi.ActivityType, error) {
	return nil, nil
}

func (f *fakeAPI) Login(_ context.Context, username, password string) (string, error) {
	if password != "secret1" {
		return "", &farmapi.APIError{Op: "log in", Status: 401}
	}
	return "tok-" + username, nil
}

type harness struct {
	srv     *Server
	handler http.Handler
	store   *wizard.Store
	flows   *flows.Registry
	journal *journal.Memory
	sid     string
	records []wizard.Record
	fail    error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:   wizard.NewStore(wizard.NewMemoryBackend()),
		flows:   flows.New(),
		journal: journal.NewMemory(0),
		sid:     uuid.NewString(),
	}
	parcelAdd, _ := h.flows.Get(flows.ParcelAdd)
	parcelAdd.Submitter = wizard.SubmitterFunc(func(_ context.Context, rec wizard.Record) (any, error) {
		if h.fail != nil {
			return nil, h.fail
		}
		h.records = append(h.records, rec)
		return nil, nil
	})

	srv, err := New(Options{
		Flows:   h.flows,
		Store:   h.store,
		API:     &fakeAPI{parcels: map[string][]farmapi.Parcel{farmapi.KindField: testParcels}},
		Loader:  preload.NewLoader(catalog.Default()),
		Journal: h.journal,
	})
	require.NoError(t, err)
	h.srv = srv
	h.handler = srv.Handler()
	return h
}

var testParcels = []farmapi.Parcel{
	{Ref: farmapi.Ref{ID: "b0000000-0000-4000-8000-000000000001"}, Identifier: "PAR-1", Area: "2.50"},
	{Ref: farmapi.Ref{ID: "b0000000-0000-4000-8000-000000000002"}, Identifier: "PAR-2", HasToponym: "North field"},
}

func (h *harness) signIn(t *testing.T) {
	t.Helper()
	h.store.Save(context.Background(), session.Key(h.sid, session.AuthFlow), wizard.Record{
		"email": "jane@example.com", "token": "tok",
	})
}

func (h *harness) get(path string) *httptest.ResponseRecorder {
	return h.send(http.MethodGet, path, nil)
}

func (h *harness) post(path string, form url.Values) *httptest.ResponseRecorder {
	return h.send(http.MethodPost, path, form)
}

func (h *harness) send(method, path string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if h.sid != "" {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: h.sid})
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) record(flow string) wizard.Record {
	return h.store.Load(context.Background(), session.Key(h.sid, flow))
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, location, rec.Header().Get("Location"))
}

func TestIndexAndUnknownStepsRedirectToFirstStep(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	for _, path := range []string{"/parcels/add", "/parcels/add/", "/parcels/add/bogus", "/parcels/add/confirm/extra"} {
		assertRedirect(t, h.get(path), "/parcels/add/location")
	}
	assertRedirect(t, h.get("/parcels/add?returnTo=/dashboard"), "/parcels/add/location?returnTo=%2Fdashboard")

	rec := h.get("/parcels/add/location")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Step 1 of 3")
}

func TestStepsRequireLogin(t *testing.T) {
	h := newHarness(t)
	assertRedirect(t, h.get("/parcels/add/location"), "/login?returnTo=%2Fparcels%2Fadd%2Flocation")
	assertRedirect(t, h.get("/parcels"), "/login?returnTo=%2Fparcels")

	rec := h.get("/register/first-name")
	assert.Equal(t, http.StatusOK, rec.Code, "registration is public")
}

func TestNewVisitorGetsSessionCookie(t *testing.T) {
	h := newHarness(t)
	h.sid = ""
	rec := h.get("/login")
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	_, err := uuid.Parse(c.Value)
	assert.NoError(t, err)
}

func TestDeepLinkToConfirmWithEmptyRecord(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	assertRedirect(t, h.get("/parcels/add/confirm"), "/parcels/add/location")
	assertRedirect(t, h.get("/parcels/add/size"), "/parcels/add/location")
	assert.Equal(t, http.StatusOK, h.get("/parcels/add/location").Code)
	assert.Empty(t, h.records)
}

func TestParcelAdd_HappyPathWithReturnTo(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	rec := h.post("/parcels/add/location", url.Values{
		"location.lat": {"46.05"}, "location.lng": {"14.5"}, "returnTo": {"/dashboard"},
	})
	assertRedirect(t, rec, "/parcels/add/size?returnTo=%2Fdashboard")

	rec = h.post("/parcels/add/size", url.Values{"sizeHa": {"2.5"}, "returnTo": {"/dashboard"}})
	assertRedirect(t, rec, "/parcels/add/confirm?returnTo=%2Fdashboard")

	rec = h.get("/parcels/add/confirm?returnTo=/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "46.05, 14.5")

	rec = h.post("/parcels/add/confirm", url.Values{"action": {"submit"}, "returnTo": {"/dashboard"}})
	assertRedirect(t, rec, "/dashboard")

	require.Len(t, h.records, 1)
	want := wizard.Record{"location": map[string]any{"lat": 46.05, "lng": 14.5}, "sizeHa": 2.5}
	if diff := cmp.Diff(want, h.records[0]); diff != "" {
		t.Errorf("submitted record (-want +got):\n%s", diff)
	}
	assert.Empty(t, h.record(flows.ParcelAdd))

	entries, err := h.journal.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "submitted", entries[len(entries)-1].Kind)
}

func TestSubmitWithoutReturnToGoesToDestination(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	h.store.Save(context.Background(), session.Key(h.sid, flows.ParcelAdd), wizard.Record{
		"location": map[string]any{"lat": 1.0, "lng": 2.0}, "sizeHa": 3.0,
	})
	assertRedirect(t, h.post("/parcels/add/confirm", url.Values{"action": {"submit"}}), "/parcels")
}

func TestFieldErrorsRerenderStep(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	h.post("/parcels/add/location", url.Values{"location.lat": {"46.05"}, "location.lng": {"14.5"}})

	rec := h.post("/parcels/add/size", url.Values{"sizeHa": {"0"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "must be greater than 0")
	assert.NotContains(t, h.record(flows.ParcelAdd), "sizeHa")
}

func TestFailedSubmitKeepsRecord(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	stored := wizard.Record{"location": map[string]any{"lat": 1.0, "lng": 2.0}, "sizeHa": 3.0}
	h.store.Save(context.Background(), session.Key(h.sid, flows.ParcelAdd), stored)
	h.fail = &wizard.SubmitError{Message: "Failed to create parcel (400)"}

	rec := h.post("/parcels/add/confirm", url.Values{"action": {"submit"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to create parcel (400)")

	if diff := cmp.Diff(stored, h.record(flows.ParcelAdd)); diff != "" {
		t.Errorf("record changed by a failed submit (-want +got):\n%s", diff)
	}
	assert.False(t, h.srv.inflight.Busy(session.Key(h.sid, flows.ParcelAdd)))
}

func TestSearchRejectsUnknownChoice(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	rec := h.post("/parcels/search/select", url.Values{flows.SelectedKey: {"b0000000-0000-4000-8000-00000000dead"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "is not one of the options")
	assert.Empty(t, h.record(flows.ParcelSearch))

	rec = h.post("/parcels/search/select", url.Values{flows.SelectedKey: {"b0000000-0000-4000-8000-000000000002"}})
	assertRedirect(t, rec, "/parcels")
	assert.Equal(t, "b0000000-0000-4000-8000-000000000002", flows.Selection(h.record(flows.ParcelSearch)))
}

func TestRegistrationConfirmDoesNotStorePasswords(t *testing.T) {
	h := newHarness(t)
	reg, _ := h.flows.Get(flows.Registration)
	reg.Submitter = wizard.SubmitterFunc(func(context.Context, wizard.Record) (any, error) {
		return nil, &wizard.SubmitError{Message: "Failed to register (500)"}
	})
	stored := wizard.Record{
		"firstName": "Jane", "lastName": "Doe", "email": "jane@example.com",
		"country": "Slovenia", "city": "Ljubljana", "street": "Main", "houseNumber": "5",
	}
	h.store.Save(context.Background(), session.Key(h.sid, flows.Registration), stored)

	rec := h.post("/register/confirm", url.Values{"password": {"hunter22secret"}, "accessCode": {"1234"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Failed to register (500)")
	assert.Contains(t, body, "Ljubljana", "the confirm step reviews the answers")
	assert.NotContains(t, body, "hunter22secret")

	if diff := cmp.Diff(stored, h.record(flows.Registration)); diff != "" {
		t.Errorf("stored registration record (-want +got):\n%s", diff)
	}
}

func TestBackAndReset(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	h.post("/parcels/add/location", url.Values{"location.lat": {"46.05"}, "location.lng": {"14.5"}})

	assertRedirect(t, h.post("/parcels/add/size", url.Values{"action": {"back"}}), "/parcels/add/location")
	assert.True(t, h.record(flows.ParcelAdd).Present("location"), "back keeps the record")
	assertRedirect(t, h.post("/parcels/add/location", url.Values{"action": {"back"}}), "/dashboard")

	assertRedirect(t, h.post("/parcels/add/reset", url.Values{}), "/parcels/add/location")
	assert.Empty(t, h.record(flows.ParcelAdd))
}

func TestLogin(t *testing.T) {
	h := newHarness(t)

	rec := h.post("/login", url.Values{"email": {"Jane@Example.com"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email or password.")

	rec = h.post("/login", url.Values{"email": {"Jane@Example.com"}, "password": {"secret1"}, "returnTo": {"/parcels/add/location"}})
	assertRedirect(t, rec, "/parcels/add/location")
	auth := h.record(session.AuthFlow)
	assert.Equal(t, "jane@example.com", auth.String("email"))
	assert.Equal(t, "tok-jane@example.com", auth.String("token"))

	rec = h.post("/login", url.Values{"email": {"jane@example.com"}, "password": {"secret1"}, "returnTo": {"//evil.example"}})
	assertRedirect(t, rec, "/dashboard")
}

func TestLogoutClearsEveryRecord(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	ctx := context.Background()
	h.store.Save(ctx, session.Key(h.sid, flows.ParcelAdd), wizard.Record{"sizeHa": 1.0})
	h.store.Save(ctx, session.Key(h.sid, flows.CropSearch), wizard.Record{flows.SelectedKey: "x"})

	rec := h.post("/logout", url.Values{})
	assertRedirect(t, rec, "/login")

	assert.Empty(t, h.record(flows.ParcelAdd))
	assert.Empty(t, h.record(flows.CropSearch))
	assert.Empty(t, h.record(session.AuthFlow))
	assertRedirect(t, h.get("/dashboard"), "/login?returnTo=%2Fdashboard")
}

func TestListMarksSearchSelection(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	h.store.Save(context.Background(), session.Key(h.sid, flows.ParcelSearch), wizard.Record{
		flows.SelectedKey: "b0000000-0000-4000-8000-000000000002",
	})

	rec := h.get("/parcels")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<li id="item-b0000000-0000-4000-8000-000000000002" class="selected"`)
	assert.Contains(t, body, "North field")
	assert.Contains(t, body, "2.50 ha")
	assert.Equal(t, 1, strings.Count(body, `class="selected"`))
}

func TestListShowsLoadFailure(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	rec := h.get("/farms")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Could not load the list.")
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	rec := h.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestSafeReturn(t *testing.T) {
	assert.Equal(t, "/parcels", safeReturn("/parcels"))
	assert.Empty(t, safeReturn("https://evil.example"))
	assert.Empty(t, safeReturn("//evil.example"))
	assert.Empty(t, safeReturn(""))
}
