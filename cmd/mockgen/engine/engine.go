package engine

import (
	"fmt"
	"math"
	"math/rand/v2"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"

	"avail-risk/internal/dataset"
)

type GeneratorConfig struct {
	Scenario     string // "mild", "chaos" or "drift"
	Distribution string // "uniform" or "beta"
	Farms        int
	Years        int
	StartYear    int
	MissingRate  float64 // Share of months without a reading
	Seed         uint64
	Scale        dataset.Scale
}

// Generate produces monthly availability records for cfg.Farms wind farms.
// The same config always yields the same records.
func Generate(cfg GeneratorConfig) []dataset.Record {
	if cfg.StartYear == 0 {
		cfg.StartYear = 2018
	}
	if cfg.Scale == "" {
		cfg.Scale = dataset.Percent
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, 0))
	beta := distuv.Beta{Alpha: 60, Beta: 2.2, Src: rng} // Mean ~96.5%

	months := cfg.Years * 12
	var records []dataset.Record
	for f := 0; f < cfg.Farms; f++ {
		entity := fmt.Sprintf("WF-%02d", f+1)
		turbines := 8 + 4*f
		offset := float64(f%3) * 0.8

		for i := 0; i < months; i++ {
			year, month := cfg.StartYear+i/12, i%12+1
			rec := dataset.Record{EntityID: entity, Year: year, Month: month, TurbineCount: turbines}
			if rng.Float64() < cfg.MissingRate {
				records = append(records, rec)
				continue
			}

			// 1. Baseline
			var v float64
			if cfg.Distribution == "beta" {
				v = beta.Rand()*100 - 1 + offset
			} else {
				v = 94.5 + offset + rng.Float64()*3
			}

			// 2. Winter storms and summer maintenance
			v -= 0.8 * math.Cos(2*math.Pi*float64(month-1)/12)

			// 3. Scenario
			switch cfg.Scenario {
			case "chaos":
				if rng.Float64() < 0.1 {
					v -= 10 + rng.Float64()*25 // Major component failures
				}
			case "drift":
				v -= 4 * float64(i) / float64(months) // Ageing fleet
			}

			v = min(max(v, 0), 100)
			if cfg.Scale == dataset.Fraction {
				v /= 100
			}
			rec.Availability = dataset.Float(math.Round(v*1e4) / 1e4)
			records = append(records, rec)
		}
	}
	return records
}

// Save writes records as JSON Lines or, for a .xlsx path, as a long-format
// workbook.
func Save(path string, records []dataset.Record, scale dataset.Scale) error {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return dataset.WriteXLSX(path, records)
	}
	store := dataset.NewStore(dataset.BoundFor(scale))
	if _, err := store.Append(records); err != nil {
		return err
	}
	return store.SaveJSONL(path)
}
