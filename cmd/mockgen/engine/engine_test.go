package engine

import (
	"path/filepath"
	"reflect"
	"testing"

	"avail-risk/internal/dataset"
)

func TestGenerate_ShapeAndBounds(t *testing.T) {
	tests := []struct {
		name string
		cfg  GeneratorConfig
	}{
		{"MildUniform", GeneratorConfig{Scenario: "mild", Distribution: "uniform", Farms: 3, Years: 2, Seed: 1}},
		{"ChaosBeta", GeneratorConfig{Scenario: "chaos", Distribution: "beta", Farms: 2, Years: 3, Seed: 2}},
		{"DriftFraction", GeneratorConfig{Scenario: "drift", Farms: 1, Years: 4, Seed: 3, Scale: dataset.Fraction}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := Generate(tt.cfg)
			if want := tt.cfg.Farms * tt.cfg.Years * 12; len(records) != want {
				t.Fatalf("expected %d records, got %d", want, len(records))
			}
			scale := tt.cfg.Scale
			if scale == "" {
				scale = dataset.Percent
			}
			bound := dataset.BoundFor(scale)
			for _, r := range records {
				if err := r.Validate(bound); err != nil {
					t.Fatalf("invalid record: %v", err)
				}
			}
		})
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	cfg := GeneratorConfig{Scenario: "chaos", Distribution: "beta", Farms: 2, Years: 2, MissingRate: 0.1, Seed: 9}
	if !reflect.DeepEqual(Generate(cfg), Generate(cfg)) {
		t.Error("same seed must generate the same records")
	}
}

func TestGenerate_DriftDegrades(t *testing.T) {
	records := Generate(GeneratorConfig{Scenario: "drift", Farms: 1, Years: 6, Seed: 4})
	first, last := 0.0, 0.0
	for _, r := range records[:12] {
		first += *r.Availability
	}
	for _, r := range records[len(records)-12:] {
		last += *r.Availability
	}
	if last >= first {
		t.Errorf("expected the last year (%.2f) below the first (%.2f)", last/12, first/12)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	records := Generate(GeneratorConfig{Farms: 2, Years: 1, MissingRate: 0.2, Seed: 5})
	for _, name := range []string{"farms.jsonl", "farms.xlsx"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := Save(path, records, dataset.Percent); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			store := dataset.NewStore(dataset.BoundFor(dataset.Percent))
			n, err := store.Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if n != len(records) {
				t.Errorf("expected %d records, got %d", len(records), n)
			}
		})
	}
}
