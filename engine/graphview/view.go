// Package graphview decides, for a set of filter criteria, which nodes and
// edges of the brand/model graph are visible. It owns the visibility flags
// and emits only the flag flips needed to reach the new state, so the
// rendering collaborator touches as few entities as possible.
package graphview

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/motorgraph/motorgraph/engine/catalog"
)

// Criteria is the ephemeral filter state, rebuilt on every filter change.
// Empty collections mean no restriction for their facet. YearRange is the
// inclusive [lo, hi] production-year interval; a zero range means the full
// selectable interval.
type Criteria struct {
	Search    string   `json:"searchTerm"`
	Brands    []string `json:"brands"`
	Types     []string `json:"types"`
	YearRange [2]int   `json:"yearRange"`
}

// Update is a single visibility-flag flip.
type Update struct {
	ID     string `json:"id"`
	Hidden bool   `json:"hidden"`
}

// Changes is the minimal update set produced by one filter application.
type Changes struct {
	Nodes         []Update `json:"nodes"`
	Edges         []Update `json:"edges"`
	VisibleModels int      `json:"visibleModels"`
}

// Renderer consumes visibility changes. Graph rendering itself is an opaque
// external capability; the engine only pushes flag flips at it.
type Renderer interface {
	Apply(ch Changes) error
}

// View holds the full entity set with its current visibility flags.
type View struct {
	mu       sync.Mutex
	brands   []catalog.BrandNode
	models   []catalog.ModelNode
	edges    []catalog.ContainmentEdge
	clusters map[string]*bool // cluster id -> hidden flag
	years    catalog.YearRange
	logger   *slog.Logger
}

// NewView builds a view over a normalized graph. All entities start visible.
func NewView(g *catalog.Graph, logger *slog.Logger) *View {
	if logger == nil {
		logger = slog.Default()
	}
	v := &View{
		brands:   make([]catalog.BrandNode, len(g.Brands)),
		models:   make([]catalog.ModelNode, len(g.Models)),
		edges:    make([]catalog.ContainmentEdge, len(g.Edges)),
		clusters: make(map[string]*bool),
		years:    g.Years,
		logger:   logger,
	}
	copy(v.brands, g.Brands)
	copy(v.models, g.Models)
	copy(v.edges, g.Edges)
	return v
}

// RegisterCluster tracks a collapsed model group. Clusters are presentation
// entities; they are always kept visible.
func (v *View) RegisterCluster(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.clusters[id]; !ok {
		hidden := false
		v.clusters[id] = &hidden
	}
}

// Years returns the selectable year interval of the underlying catalog.
func (v *View) Years() catalog.YearRange { return v.years }

// Filter applies criteria and returns the visibility flips. Node visibility
// is decided first; edge visibility is then derived from the post-update
// node state, never from the state before this call.
func (v *View) Filter(c Criteria) Changes {
	v.mu.Lock()
	defer v.mu.Unlock()

	term := strings.ToLower(strings.TrimSpace(c.Search))
	brandSel := toSet(c.Brands)
	typeSel := toSet(c.Types)
	lo, hi := c.YearRange[0], c.YearRange[1]
	if lo == 0 && hi == 0 {
		lo, hi = v.years.Min, v.years.Max
	}

	var ch Changes
	visibleBrandIDs := make(map[string]struct{})

	// Models first.
	for i := range v.models {
		m := &v.models[i]
		visible := v.modelVisible(m, term, brandSel, typeSel, lo, hi)
		if visible {
			ch.VisibleModels++
			visibleBrandIDs[m.BrandID] = struct{}{}
		}
		if m.Hidden == visible {
			m.Hidden = !visible
			ch.Nodes = append(ch.Nodes, Update{ID: m.ID, Hidden: m.Hidden})
		}
	}

	// Brands: forced visible when explicitly selected, even with zero visible
	// models; otherwise visible iff at least one of their models survived.
	for i := range v.brands {
		b := &v.brands[i]
		var visible bool
		if len(brandSel) == 0 {
			_, visible = visibleBrandIDs[b.ID]
		} else {
			_, visible = brandSel[b.Label]
		}
		if b.Hidden == visible {
			b.Hidden = !visible
			ch.Nodes = append(ch.Nodes, Update{ID: b.ID, Hidden: b.Hidden})
		}
	}

	// Clusters stay visible regardless of criteria.
	for id, hidden := range v.clusters {
		if *hidden {
			*hidden = false
			ch.Nodes = append(ch.Nodes, Update{ID: id, Hidden: false})
		}
	}

	// Edges: derived from the post-update node state.
	visibleNodes := make(map[string]struct{}, len(v.models)+len(v.brands))
	for i := range v.models {
		if !v.models[i].Hidden {
			visibleNodes[v.models[i].ID] = struct{}{}
		}
	}
	for i := range v.brands {
		if !v.brands[i].Hidden {
			visibleNodes[v.brands[i].ID] = struct{}{}
		}
	}
	for id := range v.clusters {
		visibleNodes[id] = struct{}{}
	}
	for i := range v.edges {
		e := &v.edges[i]
		_, fromOK := visibleNodes[e.From]
		_, toOK := visibleNodes[e.To]
		visible := fromOK && toOK
		if e.Hidden == visible {
			e.Hidden = !visible
			ch.Edges = append(ch.Edges, Update{ID: e.ID, Hidden: e.Hidden})
		}
	}

	v.logger.Debug("graphview: filtered",
		"visibleModels", ch.VisibleModels,
		"nodeUpdates", len(ch.Nodes),
		"edgeUpdates", len(ch.Edges),
	)
	return ch
}

// modelVisible applies the four model rules: search term, brand set, type
// set, and year overlap. Models with no known start year are never excluded
// by the year filter.
func (v *View) modelVisible(m *catalog.ModelNode, term string, brandSel, typeSel map[string]struct{}, lo, hi int) bool {
	if term != "" && !strings.Contains(strings.ToLower(m.Label), term) {
		return false
	}
	if len(brandSel) > 0 {
		if _, ok := brandSel[m.Brand]; !ok {
			return false
		}
	}
	if len(typeSel) > 0 {
		if _, ok := typeSel[m.Type]; !ok {
			return false
		}
	}
	if m.StartYear != 0 {
		end := m.EndYear
		if m.IsCurrent {
			// Open-ended production overlaps any interval reaching the top of
			// the selectable range.
			end = v.years.Max + 1
		} else if end == 0 {
			end = m.StartYear
		}
		if end < lo || m.StartYear > hi {
			return false
		}
	}
	return true
}

func toSet(items []string) map[string]struct{} {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(items))
	for _, s := range items {
		set[s] = struct{}{}
	}
	return set
}
