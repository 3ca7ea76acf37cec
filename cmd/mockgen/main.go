package main

import (
	"flag"
	"fmt"
	"os"

	"avail-risk/cmd/mockgen/engine"
	"avail-risk/internal/dataset"
)

func main() {
	scenario := flag.String("scenario", "mild", "Scenario to generate: mild, chaos, drift")
	distribution := flag.String("distribution", "uniform", "Distribution to use: uniform, beta")
	out := flag.String("out", "./.cache/farms.jsonl", "Output file (.jsonl or .xlsx)")
	farms := flag.Int("farms", 5, "Number of wind farms")
	years := flag.Int("years", 5, "Years of monthly history per farm")
	startYear := flag.Int("start-year", 2018, "First year of history")
	missing := flag.Float64("missing", 0.02, "Share of months without a reading")
	seed := flag.Uint64("seed", 1, "Random seed")
	scale := flag.String("scale", string(dataset.Percent), "Availability scale: percent, fraction")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Scenario:     *scenario,
		Distribution: *distribution,
		Farms:        *farms,
		Years:        *years,
		StartYear:    *startYear,
		MissingRate:  *missing,
		Seed:         *seed,
		Scale:        dataset.Scale(*scale),
	}

	fmt.Printf("Generating scenario '%s' (Distribution: %s, Farms: %d, Years: %d) to %s...\n", cfg.Scenario, cfg.Distribution, cfg.Farms, cfg.Years, *out)

	records := engine.Generate(cfg)
	if err := engine.Save(*out, records, cfg.Scale); err != nil {
		fmt.Printf("Failed to save mock data: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Done. %d records written.\n", len(records))
}
