package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/scibee/farmwiz/internal/farmapi"
	"github.com/scibee/farmwiz/internal/flows"
	"github.com/scibee/farmwiz/internal/session"
)

type listItem struct {
	ID       string
	Label    string
	Detail   string
	Selected bool
}

type listView struct {
	Title      string
	AddPath    string
	SearchPath string
	Items      []listItem
	Error      string
}

// listSpec describes one resource list page.
type listSpec struct {
	Path   string
	Title  string
	Add    string // flow key of the create wizard
	Search string // flow key of the search wizard, empty when there is none
	fetch  func(ctx context.Context, api API) ([]listItem, error)
}

var listViews = []listSpec{
	{Path: "/parcels", Title: "Parcels", Add: flows.ParcelAdd, Search: flows.ParcelSearch, fetch: parcels(farmapi.KindField)},
	{Path: "/apiary", Title: "Apiaries", Add: flows.ApiaryAdd, Search: flows.ApiarySearch, fetch: parcels(farmapi.KindApiary)},
	{Path: "/beehives", Title: "Beehives", Add: flows.BeehiveAdd, Search: flows.BeehiveSearch, fetch: parcels(farmapi.KindBeehive)},
	{Path: "/crops", Title: "Crops", Add: flows.CropAdd, Search: flows.CropSearch, fetch: crops},
	{Path: "/farms", Title: "Farms", Add: flows.FarmAdd, fetch: farms},
}

func parcels(kind string) func(context.Context, API) ([]listItem, error) {
	return func(ctx context.Context, api API) ([]listItem, error) {
		ps, err := api.ListParcels(ctx, kind)
		if err != nil {
			return nil, err
		}
		items := make([]listItem, 0, len(ps))
		for _, p := range ps {
			label := p.HasToponym
			if label == "" {
				label = p.Identifier
			}
			detail := p.Description
			if kind == farmapi.KindField && p.Area != "" {
				detail = fmt.Sprintf("%s ha", p.Area)
			}
			items = append(items, listItem{ID: p.UUID(), Label: label, Detail: detail})
		}
		return items, nil
	}
}

func crops(ctx context.Context, api API) ([]listItem, error) {
	cs, err := api.ListCrops(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]listItem, 0, len(cs))
	for _, c := range cs {
		items = append(items, listItem{ID: c.UUID(), Label: c.Name, Detail: c.CropSpecies.Name})
	}
	return items, nil
}

func farms(ctx context.Context, api API) ([]listItem, error) {
	fs, err := api.ListFarms(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]listItem, 0, len(fs))
	for _, f := range fs {
		items = append(items, listItem{ID: f.UUID(), Label: f.Name, Detail: f.Administrator})
	}
	return items, nil
}

// handleList renders a resource list, marking the item picked in the
// matching search wizard.
func (s *Server) handleList(spec listSpec) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		view := listView{Title: spec.Title}
		if f, ok := s.flows.Get(spec.Add); ok {
			view.AddPath = f.Base + "?returnTo=" + spec.Path
		}

		selected := ""
		if f, ok := s.flows.Get(spec.Search); ok {
			view.SearchPath = f.Base
			selected = flows.Selection(s.store.Load(r.Context(), session.Key(sid(r), f.Key)))
		}

		items, err := spec.fetch(r.Context(), s.api)
		if err != nil {
			s.log.Warn("Failed to list %s: %v", spec.Path, err)
			view.Error = "Could not load the list. Please try again later."
		}
		for i := range items {
			items[i].Selected = selected != "" && items[i].ID == selected
		}
		view.Items = items
		s.render(w, http.StatusOK, "list", view)
	})
}

type dashboardView struct {
	Email   string
	Flows   []flowLink
	Lists   []flowLink
	Recent  []activity
	HasFeed bool
}

type flowLink struct {
	Title string
	Path  string
}

type activity struct {
	When string
	Text string
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	id, _ := farmapi.IdentityFrom(r.Context())
	view := dashboardView{Email: id.Email}
	for _, f := range s.flows.All() {
		if f.Key == flows.Registration {
			continue
		}
		view.Flows = append(view.Flows, flowLink{Title: f.Title, Path: f.Base})
	}
	for _, lv := range listViews {
		view.Lists = append(view.Lists, flowLink{Title: lv.Title, Path: lv.Path})
	}

	if s.journal != nil {
		view.HasFeed = true
		owner := session.Owner(session.Key(sid(r), ""))
		entries, err := s.journal.Recent(r.Context(), 200)
		if err != nil {
			s.log.Warn("Failed to read journal: %v", err)
		}
		for i := len(entries) - 1; i >= 0 && len(view.Recent) < 10; i-- {
			e := entries[i]
			if e.Owner != owner || (e.Kind != "submitted" && e.Kind != "failed") {
				continue
			}
			text := fmt.Sprintf("%s %s", e.Flow, e.Kind)
			if e.Kind == "failed" && e.Detail != "" {
				text += ": " + e.Detail
			}
			view.Recent = append(view.Recent, activity{When: e.Time.Local().Format("Jan 2 15:04"), Text: text})
		}
	}
	s.render(w, http.StatusOK, "dashboard", view)
}
