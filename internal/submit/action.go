package submit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/scibee/farmwiz/internal/catalog"
	"github.com/scibee/farmwiz/internal/farmapi"
)

// Target is what a manage wizard acts on.
type Target string

const (
	TargetCrop    Target = "crop"
	TargetApiary  Target = "apiary"
	TargetBeehive Target = "beehive"
)

// ActionInput is the record of the manage wizards. Exactly one of the ids is
// set, matching the wizard's target.
type ActionInput struct {
	CropID    string `wizard:"cropId"`
	ApiaryID  string `wizard:"apiaryId"`
	BeehiveID string `wizard:"beehiveId"`
	ActionKey string `wizard:"actionKey"`
	Value     string `wizard:"value"`
	Notes     string `wizard:"notes"`
}

// ActionPayload builds the calendar activity for a manage action.
func ActionPayload(target Target, in ActionInput, action catalog.Action, now time.Time) farmapi.NewActivity {
	label := action.Label
	if label == "" {
		label = in.ActionKey
	}

	var details []string
	if v := strings.TrimSpace(in.Value); v != "" {
		name := action.ValueLabel
		if name == "" {
			name = "Value"
		}
		details = append(details, strings.TrimSpace(fmt.Sprintf("%s: %s %s", name, v, action.Unit)))
	}
	if n := strings.TrimSpace(in.Notes); n != "" {
		details = append(details, n)
	}

	act := farmapi.NewActivity{
		Title:            label,
		Details:          strings.Join(details, "\n"),
		HasStartDatetime: iso(now),
		HasEndDatetime:   iso(now),
	}
	switch target {
	case TargetCrop:
		act.HasAgriCrop = in.CropID
	case TargetApiary:
		act.HasAgriParcel = in.ApiaryID
	case TargetBeehive:
		act.HasAgriParcel = in.BeehiveID
	}
	return act
}

// Action records manage actions on crops, apiaries or beehives.
type Action struct {
	deps   *Deps
	target Target
}

// NewAction returns the action submitter for target.
func NewAction(d *Deps, target Target) Action { return Action{deps: d, target: target} }

func (a Action) actions() []catalog.Action {
	switch a.target {
	case TargetApiary:
		return a.deps.Catalog.ApiaryActions
	case TargetBeehive:
		return a.deps.Catalog.BeehiveActions
	}
	return a.deps.Catalog.CropActions
}

func (a Action) Submit(ctx context.Context, in ActionInput) (farmapi.Created, error) {
	action, ok := catalog.FindAction(a.actions(), in.ActionKey)
	if !ok {
		return farmapi.Created{}, userError("Unknown action. Please pick one from the list.", nil)
	}
	payload := ActionPayload(a.target, in, action, a.deps.now())
	return a.deps.API.CreateActivity(ctx, fmt.Sprintf("create %s action", a.target), payload)
}
