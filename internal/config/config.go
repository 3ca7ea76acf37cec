package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"avail-risk/internal/dataset"
)

// EnvPrefix prefixes every engine environment variable.
const EnvPrefix = "AVR"

// DefaultThresholdShare is the default contractual threshold as a share of
// the availability scale maximum: 95 on the percent scale, 0.95 on fraction.
const DefaultThresholdShare = 0.95

// Contract holds the contractual and market terms.
type Contract struct {
	Threshold              float64 `envconfig:"CONTRACTUAL_THRESHOLD"` // Unset defaults per scale, see DefaultThresholdShare
	PenaltyFactor          float64 `envconfig:"PENALTY_FACTOR" default:"1" validate:"gte=0"`
	BonusFactor            float64 `envconfig:"BONUS_FACTOR" default:"1" validate:"gte=0"`
	EnergyPrice            float64 `envconfig:"ENERGY_PRICE_PER_MWH" default:"100" validate:"gte=0"`
	EnergyPerTurbinePerDay float64 `envconfig:"ENERGY_PER_TURBINE_PER_DAY" default:"20" validate:"gte=0"`
}

// Simulation holds the Monte Carlo settings.
type Simulation struct {
	Trials           int    `envconfig:"TRIAL_COUNT" default:"10000" validate:"gt=0"`
	BootstrapSamples int    `envconfig:"BOOTSTRAP_SAMPLE_COUNT" default:"1000" validate:"gt=0"`
	Seed             uint64 `envconfig:"RANDOM_SEED" default:"0"` // 0 derives a seed from the clock
	Workers          int    `envconfig:"WORKERS" default:"0" validate:"gte=0"`
	BatchSize        int    `envconfig:"BATCH_SIZE" default:"1000" validate:"gt=0"`
	AnnualDraws      int    `envconfig:"ANNUAL_DRAWS" default:"12" validate:"gt=0"`
}

// Analysis holds the statistical settings.
type Analysis struct {
	MovingAverageWindow int     `envconfig:"MOVING_AVERAGE_WINDOW" default:"3" validate:"gt=0"`
	AcceptancePValue    float64 `envconfig:"ACCEPTANCE_P_VALUE" default:"0.05" validate:"gt=0,lt=1"`
	MinAnnualYears      int     `envconfig:"MIN_ANNUAL_YEARS" default:"3" validate:"gte=1"`
	AvailabilityScale   string  `envconfig:"AVAILABILITY_SCALE" default:"percent" validate:"oneof=percent fraction"`
	FitCacheSize        int     `envconfig:"FIT_CACHE_SIZE" default:"256" validate:"gt=0"`
}

// Bound is the availability range implied by AvailabilityScale.
func (a Analysis) Bound() dataset.Bound {
	return dataset.BoundFor(dataset.Scale(a.AvailabilityScale))
}

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Contract
	Simulation
	Analysis

	DatasetFile string `envconfig:"DATASET_FILE"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`

	DataPath   string `ignored:"true"`
	LogDir     string `ignored:"true"`
	ConfigFile string `ignored:"true"`
}

// ResolveSeed returns the configured seed, or a clock-derived one when the
// seed is 0. The second value reports whether the seed was derived.
func (c *AppConfig) ResolveSeed() (uint64, bool) {
	if c.Seed != 0 {
		return c.Seed, false
	}
	return uint64(time.Now().UnixNano()), true
}

// Load loads the configuration from .env files, AVR_* environment variables
// and an optional TOML file. Environment variables win over the file. An
// empty configFile falls back to AVR_CONFIG_FILE.
func Load(configFile string) (*AppConfig, error) {
	// 1. Try to load from the executable's directory (highest priority for MCP servers)
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory (useful for development/go run)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	// 3. Environment with defaults
	var cfg AppConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. Optional file, for keys the environment left unset
	if configFile == "" {
		configFile = os.Getenv(EnvPrefix + "_CONFIG_FILE")
	}
	_, thresholdSet := os.LookupEnv(EnvPrefix + "_CONTRACTUAL_THRESHOLD")
	if configFile != "" {
		fileCfg, err := LoadFile(configFile)
		if err != nil {
			return nil, err
		}
		thresholdSet = thresholdSet || fileCfg.Contract.Threshold != nil
		fileCfg.apply(&cfg)
		cfg.ConfigFile = configFile
		log.Debug().Str("path", configFile).Msg("Applied configuration file")
	}

	if !thresholdSet {
		cfg.Contract.Threshold = DefaultThresholdShare * cfg.Analysis.Bound().Max
	}

	// 5. Resolve Data Paths
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}
	cfg.DataPath = dataPath
	cfg.LogDir = filepath.Join(dataPath, "logs")
	if cfg.DatasetFile != "" && !filepath.IsAbs(cfg.DatasetFile) {
		cfg.DatasetFile = filepath.Join(dataPath, cfg.DatasetFile)
	}

	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", cfg.LogDir).Msg("Failed to create log directory")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and that the contractual threshold lies in
// (Min, Max] of the configured availability scale.
func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if b := c.Analysis.Bound(); !(c.Contract.Threshold > b.Min && c.Contract.Threshold <= b.Max) {
		return fmt.Errorf("config validation failed: contractual threshold %g outside (%g, %g] of the %s scale",
			c.Contract.Threshold, b.Min, b.Max, c.Analysis.AvailabilityScale)
	}
	return nil
}
