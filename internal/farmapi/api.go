package farmapi

import (
	"context"
	"net/http"
	"net/url"
)

// Login exchanges credentials for an access token at the gatekeeper.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out struct {
		Access string `json:"access"`
	}
	err := c.do(ctx, request{
		op:     "log in",
		method: http.MethodPost,
		url:    c.gatekeeper("/login/"),
		body:   map[string]string{"username": username, "password": password},
	}, &out)
	if err != nil {
		return "", err
	}
	if out.Access == "" {
		return "", ErrUnauthenticated
	}
	return out.Access, nil
}

// Register creates a gatekeeper account using an admin token.
func (c *Client) Register(ctx context.Context, adminToken string, acct Account) error {
	return c.do(ctx, request{
		op:     "register",
		method: http.MethodPost,
		url:    c.gatekeeper("/register/"),
		body:   acct,
		token:  adminToken,
		auth:   true,
	}, nil)
}

// ListFarms returns the farms visible to the token.
func (c *Client) ListFarms(ctx context.Context) ([]Farm, error) {
	raw, err := c.list(ctx, "fetch farms", "/v1/Farm/")
	if err != nil {
		return nil, err
	}
	return decodeList[Farm](raw)
}

// CreateFarm creates a farm.
func (c *Client) CreateFarm(ctx context.Context, farm NewFarm) (Created, error) {
	return c.create(ctx, "add farm", "/v1/Farm/", farm)
}

// ListParcels returns parcels of one category: KindField, KindApiary or KindBeehive.
func (c *Client) ListParcels(ctx context.Context, kind string) ([]Parcel, error) {
	op := map[string]string{
		KindField:   "fetch farm plots",
		KindApiary:  "fetch apiaries",
		KindBeehive: "fetch beehives",
	}[kind]
	if op == "" {
		op = "fetch parcels"
	}
	raw, err := c.list(ctx, op, "/v1/FarmParcels/?parcel_type="+url.QueryEscape(kind))
	if err != nil {
		return nil, err
	}
	return decodeList[Parcel](raw)
}

// GetParcel returns one parcel by UUID.
func (c *Client) GetParcel(ctx context.Context, id string) (Parcel, error) {
	var p Parcel
	err := c.do(ctx, request{
		op:     "fetch parcel",
		method: http.MethodGet,
		url:    c.calendar("/v1/FarmParcels/" + url.PathEscape(id) + "/"),
		auth:   true,
	}, &p)
	return p, err
}

// CreateParcel creates a field, apiary or beehive parcel. op names the
// resource in error messages, e.g. "create apiary".
func (c *Client) CreateParcel(ctx context.Context, op string, parcel NewParcel) (Created, error) {
	return c.create(ctx, op, "/v1/FarmParcels/", parcel)
}

// ListCrops returns every crop visible to the token.
func (c *Client) ListCrops(ctx context.Context) ([]Crop, error) {
	raw, err := c.list(ctx, "fetch crops", "/v1/FarmCrops/")
	if err != nil {
		return nil, err
	}
	return decodeList[Crop](raw)
}

// CreateCrop plants a crop on a parcel.
func (c *Client) CreateCrop(ctx context.Context, crop NewCrop) (Created, error) {
	return c.create(ctx, "create crop", "/v1/FarmCrops/", crop)
}

// ListActivityTypes returns activity types filtered by category and name;
// empty filters are omitted.
func (c *Client) ListActivityTypes(ctx context.Context, category, name string) ([]ActivityType, error) {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	if name != "" {
		q.Set("name", name)
	}
	path := "/v1/FarmCalendarActivityTypes/"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	raw, err := c.list(ctx, "fetch activity types", path)
	if err != nil {
		return nil, err
	}
	return decodeList[ActivityType](raw)
}

// CreateCropObservation records an observation of a crop.
func (c *Client) CreateCropObservation(ctx context.Context, obs NewObservation) (Created, error) {
	return c.create(ctx, "create crop observation", "/v1/CropObservations/", obs)
}

// CreateApiaryObservation records an observation of an apiary.
func (c *Client) CreateApiaryObservation(ctx context.Context, obs NewObservation) (Created, error) {
	return c.create(ctx, "create apiary observation", "/v1/ApiaryObservations/", obs)
}

// CreateActivity records a calendar activity (a manage action).
func (c *Client) CreateActivity(ctx context.Context, op string, act NewActivity) (Created, error) {
	return c.create(ctx, op, "/v1/FarmCalendarActivities/", act)
}

func (c *Client) create(ctx context.Context, op, path string, body any) (Created, error) {
	var out Created
	err := c.do(ctx, request{
		op:     op,
		method: http.MethodPost,
		url:    c.calendar(path),
		body:   body,
		auth:   true,
	}, &out)
	return out, err
}
