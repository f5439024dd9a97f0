package catalog

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/motorgraph/motorgraph/engine/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func record(brand string, models ...string) domain.BrandRecord {
	r := domain.BrandRecord{Brand: brand}
	for _, m := range models {
		r.Models = append(r.Models, json.RawMessage(m))
	}
	return r
}

func TestNormalizeIDs(t *testing.T) {
	g := Normalize([]domain.BrandRecord{
		record("Toyota",
			`{"name":"Corolla","type":"Sedan","startYear":1966,"isCurrent":true}`,
			`{"name":"Supra","type":"Sports","startYear":1978,"endYear":2002}`,
		),
	}, testLogger())

	if len(g.Brands) != 1 || len(g.Models) != 2 || len(g.Edges) != 2 {
		t.Fatalf("got %d brands, %d models, %d edges", len(g.Brands), len(g.Models), len(g.Edges))
	}
	if g.Brands[0].ID != "brand_toyota_1" {
		t.Fatalf("brand id = %q", g.Brands[0].ID)
	}
	if g.Models[0].ID != "model_brand_toyota_1_corolla_2" {
		t.Fatalf("model id = %q", g.Models[0].ID)
	}
	if g.Models[1].ID != "model_brand_toyota_1_supra_3" {
		t.Fatalf("model id = %q", g.Models[1].ID)
	}
	if g.Edges[0].ID != "edge_model_brand_toyota_1_corolla_2_brand_toyota_1" {
		t.Fatalf("edge id = %q", g.Edges[0].ID)
	}
	if g.Edges[0].From != g.Models[0].ID || g.Edges[0].To != g.Brands[0].ID {
		t.Fatalf("edge endpoints = %q -> %q", g.Edges[0].From, g.Edges[0].To)
	}
}

func TestNormalizeSkipsInvalidRecords(t *testing.T) {
	g := Normalize([]domain.BrandRecord{
		record("  ", `{"name":"Ghost"}`),
		record("Honda",
			`{"name":"Civic","type":"Sedan","startYear":1972,"isCurrent":true}`,
			`{"name":""}`,
			`{broken json`,
		),
	}, testLogger())

	if len(g.Brands) != 1 {
		t.Fatalf("brands = %d, want 1 (nameless brand skipped)", len(g.Brands))
	}
	if len(g.Models) != 1 {
		t.Fatalf("models = %d, want 1 (nameless and malformed dropped)", len(g.Models))
	}
	if g.Models[0].Label != "Civic" {
		t.Fatalf("surviving model = %q", g.Models[0].Label)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	g := Normalize([]domain.BrandRecord{
		record("Lada", `{"name":"Niva"}`),
	}, testLogger())

	m := g.Models[0]
	if m.Type != domain.DefaultType {
		t.Fatalf("type = %q, want %q", m.Type, domain.DefaultType)
	}
	if m.StartYear != 0 || m.EndYear != 0 {
		t.Fatalf("years = [%d, %d], want unset", m.StartYear, m.EndYear)
	}
}

func TestNormalizeFacets(t *testing.T) {
	g := Normalize([]domain.BrandRecord{
		record("Toyota",
			`{"name":"Corolla","type":"Sedan"}`,
			`{"name":"Camry","type":"Sedan"}`,
			`{"name":"Supra","type":"Sports"}`,
		),
		record("Audi", `{"name":"A4","type":"Sedan"}`),
	}, testLogger())

	wantTypes := []string{"Sedan", "Sports"}
	if len(g.Types) != len(wantTypes) {
		t.Fatalf("types = %v", g.Types)
	}
	for i := range wantTypes {
		if g.Types[i] != wantTypes[i] {
			t.Fatalf("types = %v, want %v", g.Types, wantTypes)
		}
	}

	wantBrands := []string{"Audi", "Toyota"}
	for i := range wantBrands {
		if g.BrandNames[i] != wantBrands[i] {
			t.Fatalf("brand names = %v, want %v", g.BrandNames, wantBrands)
		}
	}
}

func TestNormalizeEndYearFallsBackToStart(t *testing.T) {
	g := Normalize([]domain.BrandRecord{
		record("DMC", `{"name":"DeLorean","startYear":1981}`),
	}, testLogger())

	m := g.Models[0]
	if m.EndYear != 1981 {
		t.Fatalf("end year = %d, want start year 1981", m.EndYear)
	}
}

func TestDeriveYearRange(t *testing.T) {
	models := []ModelNode{
		{StartYear: 1966, IsCurrent: true},
		{StartYear: 1978, EndYear: 2002},
		{StartYear: 0}, // unknown years do not count
	}
	got := DeriveYearRange(models, 2026)
	if got.Min != 1966 || got.Max != 2026 {
		t.Fatalf("range = [%d, %d], want [1966, 2026]", got.Min, got.Max)
	}
}

func TestDeriveYearRangeClosedProduction(t *testing.T) {
	models := []ModelNode{{StartYear: 1981, EndYear: 1983}}
	got := DeriveYearRange(models, 2026)
	if got.Min != 1981 || got.Max != 1983 {
		t.Fatalf("range = [%d, %d], want [1981, 1983]", got.Min, got.Max)
	}
}

func TestDeriveYearRangeEmpty(t *testing.T) {
	got := DeriveYearRange(nil, 2026)
	if got.Min != domain.DefaultMinYear || got.Max != 2026 {
		t.Fatalf("range = [%d, %d], want defaults", got.Min, got.Max)
	}
}

func TestTooltip(t *testing.T) {
	g := Normalize([]domain.BrandRecord{
		record("Toyota", `{"name":"Corolla","type":"Sedan","startYear":1966,"isCurrent":true}`),
	}, testLogger())

	want := "Model: Toyota Corolla (Sedan) [1966 - Present]"
	if g.Models[0].Title != want {
		t.Fatalf("title = %q, want %q", g.Models[0].Title, want)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "car_data.json")
	data := `[{"brand":"Toyota","models":[{"name":"Corolla","type":"Sedan","startYear":1966,"isCurrent":true}]}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	g, err := Load(path, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Brands) != 1 || len(g.Models) != 1 {
		t.Fatalf("got %d brands, %d models", len(g.Brands), len(g.Models))
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json"), testLogger()); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not a list"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, testLogger()); err == nil {
		t.Fatal("expected error for malformed file")
	}
}
