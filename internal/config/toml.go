package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file. Unset keys are nil.
type FileConfig struct {
	Contract struct {
		Threshold              *float64 `toml:"contractual_threshold"`
		PenaltyFactor          *float64 `toml:"penalty_factor"`
		BonusFactor            *float64 `toml:"bonus_factor"`
		EnergyPrice            *float64 `toml:"energy_price_per_mwh"`
		EnergyPerTurbinePerDay *float64 `toml:"energy_per_turbine_per_day"`
	} `toml:"contract"`
	Simulation struct {
		Trials           *int    `toml:"trial_count"`
		BootstrapSamples *int    `toml:"bootstrap_sample_count"`
		Seed             *uint64 `toml:"random_seed"`
		Workers          *int    `toml:"workers"`
		BatchSize        *int    `toml:"batch_size"`
		AnnualDraws      *int    `toml:"annual_draws"`
	} `toml:"simulation"`
	Analysis struct {
		MovingAverageWindow *int     `toml:"moving_average_window"`
		AcceptancePValue    *float64 `toml:"acceptance_p_value"`
		MinAnnualYears      *int     `toml:"min_annual_years"`
		AvailabilityScale   *string  `toml:"availability_scale"`
		FitCacheSize        *int     `toml:"fit_cache_size"`
	} `toml:"analysis"`
	DatasetFile *string `toml:"dataset_file"`
	MetricsAddr *string `toml:"metrics_addr"`
}

// LoadFile reads a TOML config from path.
func LoadFile(path string) (FileConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config keys: %v", undecoded)
	}
	return cfg, nil
}

// apply copies every key set in the file into cfg unless the matching
// environment variable is set.
func (f FileConfig) apply(cfg *AppConfig) {
	overlay(&cfg.Contract.Threshold, f.Contract.Threshold, "CONTRACTUAL_THRESHOLD")
	overlay(&cfg.Contract.PenaltyFactor, f.Contract.PenaltyFactor, "PENALTY_FACTOR")
	overlay(&cfg.Contract.BonusFactor, f.Contract.BonusFactor, "BONUS_FACTOR")
	overlay(&cfg.Contract.EnergyPrice, f.Contract.EnergyPrice, "ENERGY_PRICE_PER_MWH")
	overlay(&cfg.Contract.EnergyPerTurbinePerDay, f.Contract.EnergyPerTurbinePerDay, "ENERGY_PER_TURBINE_PER_DAY")

	overlay(&cfg.Simulation.Trials, f.Simulation.Trials, "TRIAL_COUNT")
	overlay(&cfg.Simulation.BootstrapSamples, f.Simulation.BootstrapSamples, "BOOTSTRAP_SAMPLE_COUNT")
	overlay(&cfg.Simulation.Seed, f.Simulation.Seed, "RANDOM_SEED")
	overlay(&cfg.Simulation.Workers, f.Simulation.Workers, "WORKERS")
	overlay(&cfg.Simulation.BatchSize, f.Simulation.BatchSize, "BATCH_SIZE")
	overlay(&cfg.Simulation.AnnualDraws, f.Simulation.AnnualDraws, "ANNUAL_DRAWS")

	overlay(&cfg.Analysis.MovingAverageWindow, f.Analysis.MovingAverageWindow, "MOVING_AVERAGE_WINDOW")
	overlay(&cfg.Analysis.AcceptancePValue, f.Analysis.AcceptancePValue, "ACCEPTANCE_P_VALUE")
	overlay(&cfg.Analysis.MinAnnualYears, f.Analysis.MinAnnualYears, "MIN_ANNUAL_YEARS")
	overlay(&cfg.Analysis.AvailabilityScale, f.Analysis.AvailabilityScale, "AVAILABILITY_SCALE")
	overlay(&cfg.Analysis.FitCacheSize, f.Analysis.FitCacheSize, "FIT_CACHE_SIZE")

	overlay(&cfg.DatasetFile, f.DatasetFile, "DATASET_FILE")
	overlay(&cfg.MetricsAddr, f.MetricsAddr, "METRICS_ADDR")
}

func overlay[T any](dst *T, v *T, key string) {
	if v == nil {
		return
	}
	if _, ok := os.LookupEnv(EnvPrefix + "_" + key); ok {
		return
	}
	*dst = *v
}
