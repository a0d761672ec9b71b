package farmapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/scibee/farmwiz/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const farmUUID = "0b6f3a4e-1c2d-4e5f-8a9b-0c1d2e3f4a5b"

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := config.Default()
	cfg.FarmCalendarURL = srv.URL + "/"
	cfg.GatekeeperURL = srv.URL
	cfg.APITimeout = 5 * time.Second
	return New(cfg)
}

func TestLogin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["username"] != "jane@example.com" || body["password"] != "secret1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"bad credentials"}`)
			return
		}
		_, _ = io.WriteString(w, `{"access":"tok-1","refresh":"r"}`)
	})
	c := newTestClient(t, mux)

	token, err := c.Login(context.Background(), "jane@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	_, err = c.Login(context.Background(), "jane@example.com", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, `Failed to log in (401) {"detail":"bad credentials"}`, err.Error())
}

func TestRegister_SendsAdminToken(t *testing.T) {
	var got Account
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer admin-tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	})
	c := newTestClient(t, mux)

	err := c.Register(context.Background(), "admin-tok", Account{
		Username: "jane@example.com", Password: "secret1", Email: "jane@example.com", ServiceName: "farm_calendar",
	})
	require.NoError(t, err)
	assert.Equal(t, "farm_calendar", got.ServiceName)

	assert.ErrorIs(t, c.Register(context.Background(), "", Account{}), ErrUnauthenticated)
}

func TestListParcels_UnwrapsEnvelopes(t *testing.T) {
	bodies := map[string]string{
		"FIELD":   `[{"@id":"https://x/api/v1/FarmParcels/` + farmUUID + `/","identifier":"PAR-1","area":"2.50","category":"FIELD"}]`,
		"APIARY":  `{"results":[{"id":"` + farmUUID + `","identifier":"APIARY-hill","area":0,"location":{"lat":46.05,"long":14.5}}]}`,
		"BEEHIVE": `{"count":0,"next":null}`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/FarmParcels/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-tok", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, bodies[r.URL.Query().Get("parcel_type")])
	})
	c := newTestClient(t, mux).WithToken("user-tok")
	ctx := context.Background()

	fields, err := c.ListParcels(ctx, KindField)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, farmUUID, fields[0].UUID())
	assert.Equal(t, "2.50", fields[0].Area.String())

	apiaries, err := c.ListParcels(ctx, KindApiary)
	require.NoError(t, err)
	require.Len(t, apiaries, 1)
	require.NotNil(t, apiaries[0].Location)
	assert.Equal(t, 14.5, apiaries[0].Location.Long)

	hives, err := c.ListParcels(ctx, KindBeehive)
	require.NoError(t, err)
	assert.Empty(t, hives)
}

func TestList_RequiresToken(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls.Add(1) }))

	_, err := c.ListCrops(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Zero(t, calls.Load(), "no request without a token")
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/FarmCrops/", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"items":[{"id":"c1","name":"Wheat","hasAgriParcel":"https://x/v1/FarmParcels/`+farmUUID+`/"}]}`)
	})
	c := newTestClient(t, mux).WithToken("t")

	crops, err := c.ListCrops(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, crops, 1)
	assert.Equal(t, farmUUID, crops[0].ParcelID())
}

func TestPost_DoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/FarmParcels/", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "boom")
	})
	c := newTestClient(t, mux).WithToken("t")

	_, err := c.CreateParcel(context.Background(), "create parcel", NewParcel{Category: KindField})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Failed to create parcel (500) boom", err.Error())
	assert.Equal(t, "boom", apiErr.ResponseBody())
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, errors.Is(err, ErrUnauthenticated))
}

func TestCreateCrop_Payload(t *testing.T) {
	var got map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/FarmCrops/", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"`+farmUUID+`","name":"Wheat"}`)
	})
	c := newTestClient(t, mux).WithToken("t")

	created, err := c.CreateCrop(context.Background(), NewCrop{
		Status:        1,
		Name:          "Wheat",
		HasAgriParcel: farmUUID,
		CropSpecies:   Species{Name: "Wheat", Variety: "Triticum aestivum"},
	})
	require.NoError(t, err)
	assert.Equal(t, farmUUID, created.UUID())
	assert.Nil(t, got["description"])
	assert.Nil(t, got["growth_stage"])
	assert.Equal(t, map[string]any{"name": "Wheat", "variety": "Triticum aestivum"}, got["cropSpecies"])
}

func TestListActivityTypes_Query(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/FarmCalendarActivityTypes/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "observation", r.URL.Query().Get("category"))
		assert.Equal(t, "Apiary Observation", r.URL.Query().Get("name"))
		_, _ = io.WriteString(w, `{"data":[{"id":"`+farmUUID+`","name":"Apiary Observation","category":"observation"}]}`)
	})
	c := newTestClient(t, mux).WithToken("t")

	types, err := c.ListActivityTypes(context.Background(), "observation", "Apiary Observation")
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "Apiary Observation", types[0].Name)
}

func TestUUIDOf(t *testing.T) {
	tests := []struct {
		name string
		ref  any
		want string
	}{
		{"bare", farmUUID, farmUUID},
		{"iri with slash", "https://host/api/v1/Farm/" + farmUUID + "/", farmUUID},
		{"urn", "urn:farmcalendar:Farm:" + farmUUID, farmUUID},
		{"object id", map[string]any{"id": farmUUID}, farmUUID},
		{"object @id", map[string]any{"@id": "/Farm/" + farmUUID}, farmUUID},
		{"not a uuid", "farm-7", ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UUIDOf(tt.ref))
		})
	}
}

func TestWithToken_Copies(t *testing.T) {
	c := New(config.Default())
	u := c.WithToken("abc")
	assert.Empty(t, c.Token())
	assert.Equal(t, "abc", u.Token())
}

func TestIdentityTokenFromContext(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/Farm/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ctx-tok", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[{"id":"`+farmUUID+`","name":"Jane Doe","administrator":"jane@example.com"}]`)
	})
	c := newTestClient(t, mux)

	ctx := WithIdentity(context.Background(), Identity{Email: "jane@example.com", Token: "ctx-tok"})
	farms, err := c.ListFarms(ctx)
	require.NoError(t, err)
	require.Len(t, farms, 1)
	assert.Equal(t, "jane@example.com", farms[0].Administrator)

	id, ok := IdentityFrom(ctx)
	assert.True(t, ok)
	assert.Equal(t, "jane@example.com", id.Email)
}

func TestPing(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))

	require.NoError(t, c.Ping(context.Background()), "any response means the service is up")
	assert.Equal(t, int32(2), hits.Load())

	cfg := config.Default()
	cfg.FarmCalendarURL = "http://127.0.0.1:1"
	cfg.APITimeout = time.Second
	assert.Error(t, New(cfg).Ping(context.Background()))
}
