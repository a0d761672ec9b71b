package submit

import (
	"context"
	"strings"

	"github.com/scibee/farmwiz/internal/farmapi"
)

// FarmInput is the record of the farm-add wizard.
type FarmInput struct {
	FirstName   string `wizard:"firstName"`
	LastName    string `wizard:"lastName"`
	Email       string `wizard:"email"`
	Phone       string `wizard:"phone"`
	Country     string `wizard:"country"`
	City        string `wizard:"city"`
	Street      string `wizard:"street"`
	HouseNumber string `wizard:"houseNumber"`
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return "N/A"
}

func joinNonEmpty(sep string, vals ...string) string {
	var parts []string
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, sep)
}

// FarmPayload builds a farm administered by in.Email.
func FarmPayload(in FarmInput) farmapi.NewFarm {
	line1 := joinNonEmpty(" ", in.Street, in.HouseNumber)
	return farmapi.NewFarm{
		Status:        1,
		Name:          joinNonEmpty(" ", in.FirstName, in.LastName),
		Description:   firstNonEmpty(joinNonEmpty(", ", line1, in.City, in.Country), "No description provided"),
		Administrator: firstNonEmpty(strings.ToLower(in.Email), "NA"),
		Telephone:     firstNonEmpty(in.Phone, "000000000"),
		VatID:         "NA",
		ContactPerson: farmapi.ContactPerson{
			Firstname: firstNonEmpty(in.FirstName, "Unknown"),
			Lastname:  firstNonEmpty(in.LastName, "Unknown"),
		},
		Address: farmapi.Address{
			AdminUnitL1:  strings.TrimSpace(in.Country),
			AdminUnitL2:  strings.TrimSpace(in.City),
			AddressArea:  line1,
			Municipality: "NA",
			Community:    "NA",
			LocatorName:  "NA",
		},
	}
}

// Farm creates farms.
type Farm struct{ deps *Deps }

// NewFarm returns the farm submitter.
func NewFarm(d *Deps) Farm { return Farm{deps: d} }

func (f Farm) Submit(ctx context.Context, in FarmInput) (farmapi.Created, error) {
	if strings.TrimSpace(in.Email) == "" {
		if id, ok := farmapi.IdentityFrom(ctx); ok {
			in.Email = id.Email
		}
	}
	return f.deps.API.CreateFarm(ctx, FarmPayload(in))
}

// RegistrationInput is the record of the registration wizard.
type RegistrationInput struct {
	FarmInput  `wizard:",squash"`
	Password   string `wizard:"password"`
	AccessCode string `wizard:"accessCode"`
}

// Registered is the outcome of a registration: the new user is signed in.
type Registered struct {
	Email string
	Token string
	// FarmID is empty when the farm could not be created.
	FarmID string
}

// Registration creates an account, signs the user in and creates their farm.
type Registration struct{ deps *Deps }

// NewRegistration returns the registration submitter.
func NewRegistration(d *Deps) Registration { return Registration{deps: d} }

func (r Registration) Submit(ctx context.Context, in RegistrationInput) (Registered, error) {
	gk := r.deps.Gatekeeper
	if gk.AccessCode != "" && strings.TrimSpace(in.AccessCode) != gk.AccessCode {
		return Registered{}, userError("The access code is not valid.", ErrAccessCode)
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	adminToken, err := r.deps.API.Login(ctx, gk.AdminUsername, gk.AdminPassword)
	if err != nil {
		r.deps.logger().Error("Admin login failed during registration: %v", err)
		return Registered{}, userError("Registration is unavailable right now. Please try again later.", err)
	}

	err = r.deps.API.Register(ctx, adminToken, farmapi.Account{
		Username:    email,
		Password:    in.Password,
		Email:       email,
		ServiceName: gk.ServiceName,
	})
	if err != nil {
		return Registered{}, err
	}

	token, err := r.deps.API.Login(ctx, email, in.Password)
	if err != nil {
		return Registered{}, err
	}
	out := Registered{Email: email, Token: token}

	in.FarmInput.Email = email
	userCtx := farmapi.WithIdentity(ctx, farmapi.Identity{Email: email, Token: token})
	created, err := r.deps.API.CreateFarm(userCtx, FarmPayload(in.FarmInput))
	if err != nil {
		// The account exists; the farm can be added later from the farm wizard.
		r.deps.logger().Warn("Created account %s but not its farm: %v", email, err)
		return out, nil
	}
	out.FarmID = created.UUID()
	return out, nil
}
