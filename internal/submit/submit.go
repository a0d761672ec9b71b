// Package submit turns completed wizard records into farm-calendar
// resources. Each resource has a typed input, a pure payload builder and a
// wizard.ResourceSubmitter that sends the payload.
package submit

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/scibee/farmwiz/internal/catalog"
	"github.com/scibee/farmwiz/internal/farmapi"
	"github.com/scibee/farmwiz/internal/logger"
	"github.com/scibee/farmwiz/internal/wizard"
)

var (
	// ErrNoFarm is returned when the signed-in user administers no farm.
	ErrNoFarm = errors.New("no farm administered by the current user")
	// ErrAccessCode is returned for a registration with the wrong access code.
	ErrAccessCode = errors.New("invalid access code")
)

// userError wraps err with the message shown on the confirm step.
func userError(msg string, err error) error {
	return &wizard.SubmitError{Message: msg, Err: err}
}

// API is the part of the farm API client submitters use.
type API interface {
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, adminToken string, acct farmapi.Account) error
	ListFarms(ctx context.Context) ([]farmapi.Farm, error)
	CreateFarm(ctx context.Context, farm farmapi.NewFarm) (farmapi.Created, error)
	GetParcel(ctx context.Context, id string) (farmapi.Parcel, error)
	CreateParcel(ctx context.Context, op string, parcel farmapi.NewParcel) (farmapi.Created, error)
	CreateCrop(ctx context.Context, crop farmapi.NewCrop) (farmapi.Created, error)
	ListActivityTypes(ctx context.Context, category, name string) ([]farmapi.ActivityType, error)
	CreateCropObservation(ctx context.Context, obs farmapi.NewObservation) (farmapi.Created, error)
	CreateApiaryObservation(ctx context.Context, obs farmapi.NewObservation) (farmapi.Created, error)
	CreateActivity(ctx context.Context, op string, act farmapi.NewActivity) (farmapi.Created, error)
}

// Gatekeeper holds the registration settings.
type Gatekeeper struct {
	AdminUsername string
	AdminPassword string
	AccessCode    string // empty disables the check
	ServiceName   string
}

// Deps is what every submitter shares.
type Deps struct {
	API        API
	Catalog    *catalog.Catalog
	Gatekeeper Gatekeeper
	Now        func() time.Time
	Suffix     func() string  // identifier suffix for generated parcel identifiers
	Jitter     func() float64 // beehive position offset in degrees
	log        *logger.Logger
}

// NewDeps fills in clocks and randomness.
func NewDeps(api API, cat *catalog.Catalog, gk Gatekeeper) *Deps {
	return &Deps{
		API:        api,
		Catalog:    cat,
		Gatekeeper: gk,
		Now:        time.Now,
		Suffix:     randomSuffix,
		Jitter:     func() float64 { return (rand.Float64() - 0.5) * 0.00001 },
	}
}

func (d *Deps) logger() *logger.Logger {
	if d.log == nil {
		d.log = logger.With("submit")
	}
	return d.log
}

func (d *Deps) now() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now().UTC()
}

const suffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomSuffix() string {
	var b strings.Builder
	for range 4 {
		b.WriteByte(suffixAlphabet[rand.IntN(len(suffixAlphabet))])
	}
	return b.String()
}

// resolveFarm returns the UUID of the first farm administered by the
// signed-in user.
func (d *Deps) resolveFarm(ctx context.Context) (string, error) {
	id, ok := farmapi.IdentityFrom(ctx)
	if !ok || id.Email == "" {
		return "", farmapi.ErrUnauthenticated
	}
	farms, err := d.API.ListFarms(ctx)
	if err != nil {
		return "", err
	}
	for _, f := range farms {
		if strings.EqualFold(strings.TrimSpace(f.Administrator), id.Email) {
			if uuid := f.UUID(); uuid != "" {
				return uuid, nil
			}
		}
	}
	return "", userError("No farm found for the current user.", ErrNoFarm)
}

// activityType looks up the UUID of a named activity type. Lookup failures
// leave the type unset; the service accepts a null activity type.
func (d *Deps) activityType(ctx context.Context, category, name string) *string {
	types, err := d.API.ListActivityTypes(ctx, category, name)
	if err != nil {
		d.logger().Warn("Failed to resolve activity type %q: %v", name, err)
		return nil
	}
	for _, t := range types {
		if strings.EqualFold(t.Name, name) && t.UUID() != "" {
			id := t.UUID()
			return &id
		}
	}
	return nil
}

const isoLayout = "2006-01-02T15:04:05.000Z"

func iso(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func twoDecimals(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

func wktPoint(lng, lat float64) string {
	return fmt.Sprintf("POINT (%s %s)", formatFloat(lng), formatFloat(lat))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
