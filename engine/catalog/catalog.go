// Package catalog normalizes the raw nested brand/model catalog into flat
// typed graph entities: brand nodes, model nodes, and the containment edges
// linking them, plus the derived facets the filter UI is built from.
package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/motorgraph/motorgraph/engine/domain"
	"github.com/motorgraph/motorgraph/pkg/fn"
)

// Node group labels, matching the groups the rendering collaborator styles.
const (
	GroupBrands   = "brands"
	GroupModels   = "models"
	GroupClusters = "clusters"
)

// BrandNode is a brand root in the two-level containment tree.
type BrandNode struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Group  string `json:"group"`
	Title  string `json:"title"`
	Hidden bool   `json:"hidden"`
}

// ModelNode is a model leaf. StartYear/EndYear of 0 mean unknown; EndYear is
// always 0 (open-ended) while IsCurrent is set, regardless of catalog input.
type ModelNode struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Group     string `json:"group"`
	Brand     string `json:"brand"`
	BrandID   string `json:"brandId"`
	SoundLink string `json:"soundLink,omitempty"`
	StartYear int    `json:"startYear,omitempty"`
	EndYear   int    `json:"endYear,omitempty"`
	IsCurrent bool   `json:"isCurrent"`
	Type      string `json:"modelType"`
	Title     string `json:"title"`
	Hidden    bool   `json:"hidden"`
}

// ContainmentEdge links a model to the brand that owns it. Its visibility is
// always derived from its endpoints, never set directly.
type ContainmentEdge struct {
	ID     string `json:"id"`
	From   string `json:"from"` // model
	To     string `json:"to"`   // brand
	Hidden bool   `json:"hidden"`
}

// YearRange is the inclusive selectable production-year interval.
type YearRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Graph is the normalized entity set plus derived facets.
type Graph struct {
	Brands []BrandNode       `json:"brands"`
	Models []ModelNode       `json:"models"`
	Edges  []ContainmentEdge `json:"edges"`

	Types      []string  `json:"types"`  // sorted distinct type labels
	BrandNames []string  `json:"brandNames"` // sorted distinct brand names
	Years      YearRange `json:"years"`
}

var slugRe = regexp.MustCompile(`[^a-z0-9]`)

func slug(s string) string {
	return slugRe.ReplaceAllString(strings.ToLower(s), "")
}

// Normalize flattens raw brand records into a Graph. Brand records without a
// name are skipped with their models; model records without a usable name are
// dropped with a diagnostic. Node identities embed a single monotonically
// increasing counter so duplicates in the source never collide.
func Normalize(records []domain.BrandRecord, logger *slog.Logger) *Graph {
	if logger == nil {
		logger = slog.Default()
	}

	g := &Graph{}
	counter := 0

	for _, br := range records {
		if err := domain.ValidateBrand(br); err != nil {
			logger.Warn("catalog: skipping brand record", "error", err)
			continue
		}

		counter++
		brandID := fmt.Sprintf("brand_%s_%d", slug(br.Brand), counter)
		g.Brands = append(g.Brands, BrandNode{
			ID:    brandID,
			Label: br.Brand,
			Group: GroupBrands,
			Title: "Brand: " + br.Brand,
		})

		for _, raw := range br.Models {
			var mr domain.ModelRecord
			if err := json.Unmarshal(raw, &mr); err != nil {
				logger.Warn("catalog: dropping model record",
					"error", fmt.Errorf("%w: %v", domain.ErrMalformedModel, err),
					"brand", br.Brand)
				continue
			}
			if err := domain.ValidateModel(br.Brand, mr); err != nil {
				logger.Warn("catalog: dropping model record", "error", err)
				continue
			}

			name := strings.TrimSpace(mr.Name)
			typ := domain.TypeLabel(mr.Type)

			start, haveStart := domain.Year(mr.StartYear)
			end := domain.EndYear(mr.IsCurrent, mr.EndYear, start, haveStart)
			if !haveStart {
				start = 0
			}

			counter++
			modelID := fmt.Sprintf("model_%s_%s_%d", brandID, slug(name), counter)
			node := ModelNode{
				ID:        modelID,
				Label:     name,
				Group:     GroupModels,
				Brand:     br.Brand,
				BrandID:   brandID,
				SoundLink: mr.SoundLink,
				StartYear: start,
				EndYear:   end,
				IsCurrent: mr.IsCurrent,
				Type:      typ,
			}
			node.Title = tooltip(node)
			g.Models = append(g.Models, node)

			g.Edges = append(g.Edges, ContainmentEdge{
				ID:   fmt.Sprintf("edge_%s_%s", modelID, brandID),
				From: modelID,
				To:   brandID,
			})
		}
	}

	g.Types = fn.Unique(fn.Map(g.Models, func(m ModelNode) string { return m.Type }))
	sort.Strings(g.Types)
	g.BrandNames = fn.Unique(fn.Map(g.Brands, func(b BrandNode) string { return b.Label }))
	sort.Strings(g.BrandNames)
	g.Years = DeriveYearRange(g.Models, time.Now().Year())

	logger.Info("catalog: normalized",
		"brands", len(g.Brands),
		"models", len(g.Models),
		"edges", len(g.Edges),
		"types", len(g.Types),
		"yearMin", g.Years.Min,
		"yearMax", g.Years.Max,
	)
	return g
}

// DeriveYearRange scans models with a known start year. The minimum is the
// smallest start year; the maximum is each model's end year, or the current
// calendar year while production is ongoing, whichever overall is largest.
// With no usable years, or a pathological min > max, the interval resets to
// [DefaultMinYear, currentYear].
func DeriveYearRange(models []ModelNode, currentYear int) YearRange {
	min, max := 0, 0
	for _, m := range fn.Filter(models, func(m ModelNode) bool { return m.StartYear != 0 }) {
		if min == 0 || m.StartYear < min {
			min = m.StartYear
		}
		end := m.EndYear
		if m.IsCurrent {
			end = currentYear
		} else if end == 0 {
			end = m.StartYear
		}
		if end > max {
			max = end
		}
	}
	if min == 0 || max == 0 || min > max {
		return YearRange{Min: domain.DefaultMinYear, Max: currentYear}
	}
	return YearRange{Min: min, Max: max}
}

// Load reads and normalizes the catalog data file.
func Load(path string, logger *slog.Logger) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var records []domain.BrandRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return Normalize(records, logger), nil
}

// tooltip renders the hover title for a model node, e.g.
// "Acme Roadster (Coupe) [1990 - Present]".
func tooltip(m ModelNode) string {
	year := ""
	switch {
	case m.StartYear != 0 && m.IsCurrent:
		year = fmt.Sprintf(" [%d - Present]", m.StartYear)
	case m.StartYear != 0 && m.EndYear != 0 && m.EndYear != m.StartYear:
		year = fmt.Sprintf(" [%d - %d]", m.StartYear, m.EndYear)
	case m.StartYear != 0:
		year = fmt.Sprintf(" [%d]", m.StartYear)
	}
	return fmt.Sprintf("Model: %s %s (%s)%s", m.Brand, m.Label, m.Type, year)
}
