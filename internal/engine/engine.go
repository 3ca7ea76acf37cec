// Package engine wires the dataset, fitting, probability, finance and
// simulation packages together behind the operations exposed by the CLI and
// the MCP server.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"avail-risk/internal/config"
	"avail-risk/internal/dataset"
	"avail-risk/internal/fitcache"
	"avail-risk/internal/finance"
	"avail-risk/internal/fitting"
	"avail-risk/internal/observability"
	"avail-risk/internal/probability"
	"avail-risk/internal/riskerr"
	"avail-risk/internal/simulation"
)

// SeasonalPeriod is the period, in months, of the seasonal decomposition.
const SeasonalPeriod = 12

// Engine is safe for concurrent use. A dataset reload swaps the record store
// atomically; operations already running keep the store they started with.
type Engine struct {
	cfg     *config.AppConfig
	bound   dataset.Bound
	pool    simulation.PoolOptions
	metrics *observability.Metrics

	fitter    *fitting.Fitter
	cache     *fitcache.Cache
	estimator *probability.Estimator
	calc      *finance.Calculator
	sim       *simulation.Simulator

	mu      sync.RWMutex
	store   *dataset.Store
	dataset string
}

// New builds an engine from cfg. A nil metrics gets a private instance. When
// cfg names a dataset file it is loaded before New returns.
func New(cfg *config.AppConfig, metrics *observability.Metrics) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("engine: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = observability.NewMetrics("")
	}

	seed, derived := cfg.ResolveSeed()
	if derived {
		log.Info().Uint64("seed", seed).Msg("No random seed configured, derived one from the clock")
	}

	cache, err := fitcache.New(cfg.FitCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create fit cache: %w", err)
	}

	bound := cfg.Analysis.Bound()
	pool := simulation.PoolOptions{Seed: seed, Workers: cfg.Workers, BatchSize: cfg.BatchSize}

	estimator := probability.NewEstimator(bound, pool)
	estimator.Trials = cfg.Trials
	estimator.AnnualDraws = cfg.AnnualDraws
	estimator.MinAnnualYears = cfg.MinAnnualYears

	e := &Engine{
		cfg:       cfg,
		bound:     bound,
		pool:      pool,
		metrics:   metrics,
		fitter:    fitting.NewFitter(bound, cfg.AcceptancePValue),
		cache:     cache,
		estimator: estimator,
		calc:      finance.NewCalculator(bound),
		sim:       simulation.NewSimulator(bound),
		store:     dataset.NewStore(bound),
	}

	if cfg.DatasetFile != "" {
		if _, err := e.LoadDataset(cfg.DatasetFile); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() *config.AppConfig { return e.cfg }

// Metrics returns the engine's metrics.
func (e *Engine) Metrics() *observability.Metrics { return e.metrics }

// Seed is the resolved base seed of every stochastic operation.
func (e *Engine) Seed() uint64 { return e.pool.Seed }

// Bound is the availability range records are validated against.
func (e *Engine) Bound() dataset.Bound { return e.bound }

// FitCacheStats reports the fit cache counters.
func (e *Engine) FitCacheStats() fitcache.Stats { return e.cache.Stats() }

// ContractParams returns the configured contract and market terms. The
// energy exposure is left at zero and is derived per entity.
func (e *Engine) ContractParams() finance.Params {
	return finance.Params{
		Threshold:     e.cfg.Contract.Threshold,
		PenaltyFactor: e.cfg.PenaltyFactor,
		BonusFactor:   e.cfg.BonusFactor,
		EnergyPrice:   e.cfg.EnergyPrice,
	}
}

func (e *Engine) currentStore() *dataset.Store {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store
}

// records returns an entity's records or an InputError for an unknown id.
func (e *Engine) records(entityID string) ([]dataset.Record, error) {
	if entityID == "" {
		return nil, riskerr.NewInput("entity_id", "is required")
	}
	recs := e.currentStore().Records(entityID)
	if len(recs) == 0 {
		return nil, riskerr.NewInput("entity_id", "unknown entity %q", entityID)
	}
	return recs, nil
}

func (e *Engine) observe(operation string, started time.Time, err *error) {
	e.metrics.RecordOperation(operation, started, *err)
	if *err != nil {
		log.Debug().Err(*err).Str("operation", operation).Msg("Engine operation failed")
	}
}
