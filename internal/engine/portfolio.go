package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"avail-risk/internal/finance"
	"avail-risk/internal/riskerr"
	"avail-risk/internal/simulation"
	"avail-risk/internal/stats"
)

// PortfolioParams configure a portfolio simulation. Nil fields fall back to
// the configuration; an empty EntityIDs selects every loaded entity.
type PortfolioParams struct {
	EntityIDs        []string        `json:"entity_ids,omitempty"`
	TargetPenalty    float64         `json:"target_penalty"`
	Trials           *int            `json:"trial_count,omitempty"`
	BootstrapSamples *int            `json:"bootstrap_sample_count,omitempty"`
	Finance          *finance.Params `json:"finance,omitempty"`
}

// RunPortfolioSimulation fits every selected entity and runs the Monte Carlo
// simulation of the portfolio's total annual penalty.
func (e *Engine) RunPortfolioSimulation(ctx context.Context, p PortfolioParams) (res *simulation.Result, err error) {
	defer e.observe("run_portfolio_simulation", time.Now(), &err)

	ids := p.EntityIDs
	if len(ids) == 0 {
		ids = e.currentStore().Entities()
	}
	if len(ids) == 0 {
		return nil, riskerr.NewInput("entities", "no entities loaded")
	}

	models := make([]simulation.EntityModel, 0, len(ids))
	for _, id := range ids {
		m, err := e.entityModel(id)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}

	params := simulation.Params{
		Entities:         models,
		Finance:          e.ContractParams(),
		TargetPenalty:    p.TargetPenalty,
		Trials:           e.cfg.Trials,
		BootstrapSamples: e.cfg.BootstrapSamples,
		AnnualDraws:      e.cfg.AnnualDraws,
		Pool:             e.pool,
	}
	if p.Finance != nil {
		params.Finance = *p.Finance
	}
	if p.Trials != nil {
		params.Trials = *p.Trials
	}
	if p.BootstrapSamples != nil {
		params.BootstrapSamples = *p.BootstrapSamples
	}

	res, err = e.sim.Run(ctx, params)
	if err != nil {
		return nil, err
	}
	e.metrics.RecordSimulation(res.TrialCount, res.Duration)
	log.Info().
		Str("run_id", res.RunID).
		Int("entities", len(models)).
		Int("trials", res.TrialCount).
		Float64("exceedance", res.ExceedanceProbability).
		Dur("elapsed", res.Duration).
		Msg("Portfolio simulation completed")
	return res, nil
}

// entityModel fits an entity and derives its annual energy exposure from the
// latest year's turbine count.
func (e *Engine) entityModel(entityID string) (simulation.EntityModel, error) {
	fd, err := e.fitEntity(entityID)
	if err != nil {
		return simulation.EntityModel{}, err
	}
	yearStats, err := e.yearStats(entityID)
	if err != nil {
		return simulation.EntityModel{}, err
	}

	exposure := 0.0
	if n := len(yearStats); n > 0 {
		exposure = finance.AnnualExposure(yearStats[n-1].TurbineCount, e.cfg.EnergyPerTurbinePerDay)
	}
	return simulation.EntityModel{
		EntityID:       entityID,
		Distribution:   fd,
		AnnualMeans:    stats.AnnualMeans(yearStats),
		EnergyExposure: exposure,
	}, nil
}
